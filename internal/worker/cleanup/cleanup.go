// Package cleanup は完全削除済みデータの自動削除ジョブを提供する。
// 完全削除マーカーが保持期間（デフォルト90日）を超過したリマインダーと
// Personを日次バッチで物理削除する。Personに紐づくリマインダーは
// CASCADE削除で自動的に処理される。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は保持期間を超過した完全削除済みデータの物理削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 完全削除マーカーの保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は90日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 90,
	}
}

// Run は完全削除マーカーが保持期間を超過した行を物理削除する。
// リマインダー単体の完全削除を先に処理し、その後Personを削除する。
// Person削除時は紐づくリマインダーがCASCADE削除される。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	reminderQuery := `DELETE FROM reminders WHERE permanently_deleted_at < now() - $1::interval`
	reminderResult, err := j.db.ExecContext(ctx, reminderQuery, interval)
	if err != nil {
		j.logger.Error("リマインダークリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("リマインダークリーンアップの実行に失敗: %w", err)
	}

	deletedReminders, err := reminderResult.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	personQuery := `DELETE FROM persons WHERE permanently_deleted_at < now() - $1::interval`
	personResult, err := j.db.ExecContext(ctx, personQuery, interval)
	if err != nil {
		j.logger.Error("Personクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("Personクリーンアップの実行に失敗: %w", err)
	}

	deletedPersons, err := personResult.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_reminders", deletedReminders),
		slog.Int64("deleted_persons", deletedPersons),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunDaily は24時間間隔でRunを繰り返し実行する。
// コンテキストのキャンセルで停止する。serveコマンドのバックグラウンド
// ジョブとして起動される。
func (j *CleanupJob) RunDaily(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("日次クリーンアップに失敗しました",
					slog.String("error", err.Error()),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}
