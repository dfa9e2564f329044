package reminder

import (
	"time"

	"github.com/hitoshi/remindcast/internal/model"
)

// MarkDone はリマインダーを完了にする。
// 繰り返しありの場合は期日を次回分へ進め、doneをfalseに戻す。
// つまり繰り返しリマインダーが done == true の状態で観測されることはなく、
// 「完了」は実質「完了して再スケジュール」を意味する。
func MarkDone(r *model.Reminder, now time.Time) error {
	if r.Repeat == nil {
		r.Done = true
		r.UpdatedAt = now
		return nil
	}

	next, err := Advance(r.DueAtDate, r.Repeat)
	if err != nil {
		return err
	}
	r.DueAtDate = next
	r.Done = false
	r.UpdatedAt = now
	return nil
}

// MarkUndone は完了済みリマインダーを未完了に戻す。
// 繰り返しありのリマインダーは完了状態を持たないため対象は繰り返しなしのみ。
func MarkUndone(r *model.Reminder, now time.Time) {
	r.Done = false
	r.UpdatedAt = now
}

// SoftDelete はリマインダーにソフト削除マーカーを付ける。
// 削除中は完了状態に関わらず期日判定から除外される。
func SoftDelete(r *model.Reminder, now time.Time) {
	t := now
	r.DeletedAt = &t
	r.UpdatedAt = now
}

// Restore はソフト削除を取り消す。完全削除済みは復元できない。
func Restore(r *model.Reminder, now time.Time) {
	if r.PermanentlyDeletedAt != nil {
		return
	}
	r.DeletedAt = nil
	r.UpdatedAt = now
}

// PermanentlyDelete はリマインダーを完全削除として記録する。
func PermanentlyDelete(r *model.Reminder, now time.Time) {
	t := now
	if r.DeletedAt == nil {
		r.DeletedAt = &t
	}
	r.PermanentlyDeletedAt = &t
	r.UpdatedAt = now
}
