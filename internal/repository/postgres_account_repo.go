package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/remindcast/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// ListIDsAfter はID昇順でafterIDより後のアカウントIDを最大limit件返す。
func (r *PostgresAccountRepo) ListIDsAfter(ctx context.Context, afterID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM accounts WHERE id > $1 ORDER BY id LIMIT $2`,
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("アカウントIDページの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("アカウントIDの読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アカウントIDページの走査に失敗しました: %w", err)
	}

	return ids, nil
}

// FindByID は通知設定とデバイス一覧を含むアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	var lastDeliveredAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, timezone, language, notification_time, last_delivered_at,
		        created_at, updated_at
		 FROM accounts WHERE id = $1`,
		id,
	).Scan(
		&account.ID, &account.Timezone, &account.Language,
		&account.NotificationTime, &lastDeliveredAt,
		&account.CreatedAt, &account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}

	account.LastDeliveredAt = nullTimeValue(lastDeliveredAt)

	devices, err := r.listDevices(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Devices = devices

	return account, nil
}

// listDevices はアカウントの登録デバイスを登録順に返す。
func (r *PostgresAccountRepo) listDevices(ctx context.Context, accountID string) ([]model.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id, endpoint, p256dh, auth, enabled, created_at
		 FROM devices WHERE account_id = $1 ORDER BY created_at, endpoint`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("デバイス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.AccountID, &d.Endpoint, &d.P256dh, &d.Auth, &d.Enabled, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("デバイスの読み取りに失敗しました: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("デバイス一覧の走査に失敗しました: %w", err)
	}

	return devices, nil
}

// SetLastDeliveredAt は最終配信日時を設定する。
func (r *PostgresAccountRepo) SetLastDeliveredAt(ctx context.Context, accountID string, deliveredAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_delivered_at = $2, updated_at = now() WHERE id = $1`,
		accountID, deliveredAt,
	)
	if err != nil {
		return fmt.Errorf("最終配信日時の更新に失敗しました: %w", err)
	}
	return nil
}

// RemoveDevice は指定endpointのデバイス登録を削除する。冪等。
func (r *PostgresAccountRepo) RemoveDevice(ctx context.Context, accountID, endpoint string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM devices WHERE account_id = $1 AND endpoint = $2`,
		accountID, endpoint,
	)
	if err != nil {
		return fmt.Errorf("デバイスの削除に失敗しました: %w", err)
	}
	return nil
}

// nullTimeValue はsql.NullTimeを*time.Timeに変換する。
func nullTimeValue(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullTime は*time.Timeをsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
