// Package model はドメインモデルを定義する。
package model

import "time"

// Person はリマインダーの対象となる人物を表す。
// 1人のPersonは1つのAccountに属し、複数のReminderを持つ。
type Person struct {
	ID                   string
	AccountID            string
	Name                 string
	DeletedAt            *time.Time // ソフト削除日時。復元可能な削除マーカー。
	PermanentlyDeletedAt *time.Time // 完全削除日時。
	Reminders            []Reminder
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsDeleted はPersonがソフト削除または完全削除されているかを返す。
// 削除済みPersonのリマインダーは配信対象から除外される。
func (p *Person) IsDeleted() bool {
	return p.DeletedAt != nil || p.PermanentlyDeletedAt != nil
}

// RepeatUnit はリマインダーの繰り返し単位を表す。
type RepeatUnit string

const (
	// RepeatUnitDay は日単位の繰り返し。
	RepeatUnitDay RepeatUnit = "day"
	// RepeatUnitWeek は週単位の繰り返し。
	RepeatUnitWeek RepeatUnit = "week"
	// RepeatUnitMonth は月単位の繰り返し。月末はその月の最終日に丸める。
	RepeatUnitMonth RepeatUnit = "month"
	// RepeatUnitYear は年単位の繰り返し。うるう日は2月28日に丸める。
	RepeatUnitYear RepeatUnit = "year"
)

// Repeat はリマインダーの繰り返しルールを表す。
// Intervalは正の整数でなければならない。
type Repeat struct {
	Interval int
	Unit     RepeatUnit
}

// Reminder は特定の日付に期日を持つリマインダーを表す。
// DueAtDateは時刻成分を持たないカレンダー日付（yyyy-MM-dd）であり、
// 期日判定はアカウントのタイムゾーンにおけるローカル日付との比較で行う。
type Reminder struct {
	ID                   string
	PersonID             string
	Title                string
	DueAtDate            string  // yyyy-MM-dd形式のカレンダー日付
	Repeat               *Repeat // nilの場合は繰り返しなし
	Done                 bool
	DeletedAt            *time.Time
	PermanentlyDeletedAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsDeleted はReminderがソフト削除または完全削除されているかを返す。
func (r *Reminder) IsDeleted() bool {
	return r.DeletedAt != nil || r.PermanentlyDeletedAt != nil
}
