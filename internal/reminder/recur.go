package reminder

import (
	"fmt"
	"time"

	"github.com/hitoshi/remindcast/internal/model"
)

// Advance は繰り返しルールに基づいて次回期日を計算する。
// repeatがnilの場合は同じ日付をそのまま返す（恒等変換）。
// 月・年の加算はカレンダー対応で行い、存在しない日付は
// その月の最終日に丸める（2025-01-31 + 1ヶ月 → 2025-02-28）。
func Advance(dueAtDate string, rep *model.Repeat) (string, error) {
	if rep == nil {
		return dueAtDate, nil
	}
	if rep.Interval <= 0 {
		return "", fmt.Errorf("繰り返し間隔は正の整数である必要があります: %d", rep.Interval)
	}

	t, err := time.Parse(dateLayout, dueAtDate)
	if err != nil {
		return "", fmt.Errorf("期日のパースに失敗しました: %w", err)
	}

	switch rep.Unit {
	case model.RepeatUnitDay:
		t = t.AddDate(0, 0, rep.Interval)
	case model.RepeatUnitWeek:
		t = t.AddDate(0, 0, 7*rep.Interval)
	case model.RepeatUnitMonth:
		t = addMonthsClamped(t, rep.Interval)
	case model.RepeatUnitYear:
		t = addMonthsClamped(t, 12*rep.Interval)
	default:
		return "", fmt.Errorf("未知の繰り返し単位です: %s", rep.Unit)
	}

	return t.Format(dateLayout), nil
}

// addMonthsClamped は月数を加算し、加算先の月に存在しない日は
// その月の最終日に丸める。time.AddDateは月末超過分を翌月へ
// 繰り越すため使用しない。
func addMonthsClamped(t time.Time, months int) time.Time {
	total := int(t.Month()) - 1 + months
	year := t.Year() + total/12
	month := time.Month(total%12 + 1)

	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysInMonth は指定年月の日数を返す。
func daysInMonth(year int, month time.Month) int {
	// 翌月0日 = 当月最終日
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
