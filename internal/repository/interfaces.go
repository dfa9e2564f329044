// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/remindcast/internal/model"
)

// AccountRepository はアカウントと登録デバイスの永続化インターフェース。
type AccountRepository interface {
	// ListIDsAfter はID昇順でafterIDより後のアカウントIDを最大limit件返す。
	// キーセットページネーションの1ページに相当し、afterIDが空文字列の
	// 場合は先頭から取得する。
	ListIDsAfter(ctx context.Context, afterID string, limit int) ([]string, error)

	// FindByID は通知設定とデバイス一覧を含むアカウントを取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// SetLastDeliveredAt は最終配信日時を設定する。
	// ロールバックは行わない。リセットは外部運用でのみ行う。
	SetLastDeliveredAt(ctx context.Context, accountID string, deliveredAt time.Time) error

	// RemoveDevice は指定endpointのデバイス登録を削除する。
	// 既に存在しない場合もエラーにしない（冪等）。
	RemoveDevice(ctx context.Context, accountID, endpoint string) error
}

// ReminderRepository はPersonとReminderの永続化インターフェース。
type ReminderRepository interface {
	// ListPersonsByAccountID はアカウントの全Personをリマインダー付きで返す。
	// 削除済みのPerson・リマインダーも含めて返し、除外判定は呼び出し側の
	// 期日評価で行う。
	ListPersonsByAccountID(ctx context.Context, accountID string) ([]*model.Person, error)

	// UpdateReminder はリマインダーの完了・期日・削除マーカーを更新する。
	UpdateReminder(ctx context.Context, r *model.Reminder) error
}
