package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/remindcast/internal/model"
)

// PostgresReminderRepo はPostgreSQLを使用したPerson/リマインダーリポジトリ。
type PostgresReminderRepo struct {
	db *sql.DB
}

// NewPostgresReminderRepo はPostgresReminderRepoを生成する。
func NewPostgresReminderRepo(db *sql.DB) *PostgresReminderRepo {
	return &PostgresReminderRepo{db: db}
}

// ListPersonsByAccountID はアカウントの全Personをリマインダー付きで返す。
// 削除マーカー付きの行も含めて返す。除外は期日評価側の責務。
func (r *PostgresReminderRepo) ListPersonsByAccountID(ctx context.Context, accountID string) ([]*model.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, name, deleted_at, permanently_deleted_at,
		        created_at, updated_at
		 FROM persons WHERE account_id = $1 ORDER BY id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("Person一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var persons []*model.Person
	byID := make(map[string]*model.Person)
	for rows.Next() {
		p := &model.Person{}
		var deletedAt, permanentlyDeletedAt sql.NullTime
		if err := rows.Scan(
			&p.ID, &p.AccountID, &p.Name, &deletedAt, &permanentlyDeletedAt,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("Personの読み取りに失敗しました: %w", err)
		}
		p.DeletedAt = nullTimeValue(deletedAt)
		p.PermanentlyDeletedAt = nullTimeValue(permanentlyDeletedAt)
		persons = append(persons, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Person一覧の走査に失敗しました: %w", err)
	}

	if len(persons) == 0 {
		return persons, nil
	}

	remRows, err := r.db.QueryContext(ctx,
		`SELECT rm.id, rm.person_id, rm.title, rm.due_at_date,
		        rm.repeat_interval, rm.repeat_unit, rm.done,
		        rm.deleted_at, rm.permanently_deleted_at,
		        rm.created_at, rm.updated_at
		 FROM reminders rm
		 JOIN persons p ON p.id = rm.person_id
		 WHERE p.account_id = $1
		 ORDER BY rm.id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("リマインダー一覧の取得に失敗しました: %w", err)
	}
	defer remRows.Close()

	for remRows.Next() {
		var rem model.Reminder
		var repeatInterval sql.NullInt64
		var repeatUnit sql.NullString
		var deletedAt, permanentlyDeletedAt sql.NullTime
		if err := remRows.Scan(
			&rem.ID, &rem.PersonID, &rem.Title, &rem.DueAtDate,
			&repeatInterval, &repeatUnit, &rem.Done,
			&deletedAt, &permanentlyDeletedAt,
			&rem.CreatedAt, &rem.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("リマインダーの読み取りに失敗しました: %w", err)
		}
		if repeatInterval.Valid && repeatUnit.Valid {
			rem.Repeat = &model.Repeat{
				Interval: int(repeatInterval.Int64),
				Unit:     model.RepeatUnit(repeatUnit.String),
			}
		}
		rem.DeletedAt = nullTimeValue(deletedAt)
		rem.PermanentlyDeletedAt = nullTimeValue(permanentlyDeletedAt)

		if p, ok := byID[rem.PersonID]; ok {
			p.Reminders = append(p.Reminders, rem)
		}
	}
	if err := remRows.Err(); err != nil {
		return nil, fmt.Errorf("リマインダー一覧の走査に失敗しました: %w", err)
	}

	return persons, nil
}

// UpdateReminder はリマインダーの完了・期日・削除マーカーを更新する。
func (r *PostgresReminderRepo) UpdateReminder(ctx context.Context, rem *model.Reminder) error {
	var repeatInterval sql.NullInt64
	var repeatUnit sql.NullString
	if rem.Repeat != nil {
		repeatInterval = sql.NullInt64{Int64: int64(rem.Repeat.Interval), Valid: true}
		repeatUnit = sql.NullString{String: string(rem.Repeat.Unit), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET
		    due_at_date = $2, repeat_interval = $3, repeat_unit = $4,
		    done = $5, deleted_at = $6, permanently_deleted_at = $7,
		    updated_at = $8
		 WHERE id = $1`,
		rem.ID, rem.DueAtDate, repeatInterval, repeatUnit,
		rem.Done, nullTime(rem.DeletedAt), nullTime(rem.PermanentlyDeletedAt),
		rem.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("リマインダーの更新に失敗しました: %w", err)
	}
	return nil
}
