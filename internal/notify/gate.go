// Package notify はリマインダーのPush通知配信パイプラインを提供する。
// 配信ゲート、アカウントごとの適格性判定、デバイスファンアウト、
// 実行全体のオーケストレーションを含む。
package notify

import (
	"time"

	"github.com/hitoshi/remindcast/internal/model"
)

// スキップ理由。想定内の非エラーであり、毎時起動のうち通知時刻に
// 一致しない大多数の実行はここで終わる。
const (
	SkipReasonBeforeSendTime   = "notification time not reached"
	SkipReasonAlreadyDelivered = "already delivered today"
	SkipReasonNoDevices        = "no enabled devices"
)

// hhmmLayout はローカル通知時刻のフォーマット。ゼロパディング必須。
const hhmmLayout = "15:04"

// CanDeliver はアカウントへの配信が現時点で許可されるかを判定する。
// 注入された時刻に対して純粋であり、判定はすべてアカウントの
// タイムゾーンにおけるローカル時刻・ローカル日付で行う。
//
// ゲート1: ローカル時刻が設定された通知時刻（HH:MM）に到達していること。
// ゼロパディングされたHH:MM同士は辞書順比較で時刻順になる。
// ゲート2: 当日（ローカル日付）まだ配信していないこと。最終配信が
// 同一ローカル日でも、その日の送信予定時刻より前に記録されたものは
// タイムゾーンや通知時刻の途中変更とみなして再配信を許可する。
func CanDeliver(account *model.Account, nowUTC time.Time) (bool, string) {
	loc := account.Location()
	localNow := nowUTC.In(loc)

	if localNow.Format(hhmmLayout) < account.NotificationTime {
		return false, SkipReasonBeforeSendTime
	}

	last := account.LastDeliveredAt
	if last == nil {
		return true, ""
	}

	lastLocal := last.In(loc)
	if lastLocal.Format("2006-01-02") != localNow.Format("2006-01-02") {
		// ローカル日付が変わっていれば新しい1日の配信として許可
		return true, ""
	}

	sendInstant, err := sendInstantOn(localNow, account.NotificationTime, loc)
	if err != nil {
		// 通知時刻が不正な場合は同日再配信を行わない
		return false, SkipReasonAlreadyDelivered
	}
	if lastLocal.Before(sendInstant) {
		return true, ""
	}
	return false, SkipReasonAlreadyDelivered
}

// sendInstantOn は指定ローカル日における送信予定時刻を返す。
func sendInstantOn(dayLocal time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(hhmmLayout, hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(
		dayLocal.Year(), dayLocal.Month(), dayLocal.Day(),
		t.Hour(), t.Minute(), 0, 0, loc,
	), nil
}
