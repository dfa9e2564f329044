// Package reminder はリマインダーの期日判定と繰り返し処理を提供する。
// 期日判定はカレンダー日付（yyyy-MM-dd）の文字列比較で行い、
// 瞬間時刻への二重変換によるタイムゾーンバグを避ける。
package reminder

import (
	"time"

	"github.com/hitoshi/remindcast/internal/model"
)

// dateLayout はカレンダー日付のフォーマット。
const dateLayout = "2006-01-02"

// LocalDate は指定時刻をタイムゾーンに変換したローカル日付（yyyy-MM-dd）を返す。
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// ValidDate はyyyy-MM-dd形式の有効なカレンダー日付かを返す。
func ValidDate(date string) bool {
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

// IsDue はリマインダーが期日到来かつ配信対象かを判定する。
// 完了済み・ソフト削除済み・完全削除済みは対象外。
// 期日が今日以前（昨日や先週を含む）であれば期日到来とみなし、
// 期限切れによる除外は行わない。未来の期日は1日先でも対象外。
// ゼロパディングされたyyyy-MM-dd同士は文字列比較で日付順になる。
func IsDue(r *model.Reminder, todayLocal string) bool {
	if r.Done || r.IsDeleted() {
		return false
	}
	if !ValidDate(r.DueAtDate) {
		return false
	}
	return r.DueAtDate <= todayLocal
}

// CountDue は全Personを走査し、期日到来リマインダーの件数を返す。
// 削除済みPersonに属するリマインダーは期日に関わらず除外される。
func CountDue(persons []*model.Person, todayLocal string) int {
	count := 0
	for _, p := range persons {
		if p == nil || p.IsDeleted() {
			continue
		}
		for i := range p.Reminders {
			if IsDue(&p.Reminders[i], todayLocal) {
				count++
			}
		}
	}
	return count
}
