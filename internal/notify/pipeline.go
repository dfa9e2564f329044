package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/remindcast/internal/model"
	"github.com/hitoshi/remindcast/internal/reminder"
	"github.com/hitoshi/remindcast/internal/repository"
)

// AccountResult は1アカウントの配信試行の終端結果。
// 配信実行のレスポンスに集約される。
type AccountResult struct {
	UserID            string
	NotificationCount int
	Success           bool
}

// PipelineOutcome はパイプライン1回分の結果。
// Resultは終端到達（件数0での配信済みマーク、または実際の配信試行）時のみ
// 設定され、スキップ時はSkipReasonのみが設定される。
type PipelineOutcome struct {
	Result     *AccountResult
	SkipReason string
}

// DeviceFanout は全有効デバイスへの並列送信のインターフェース。
type DeviceFanout interface {
	Send(ctx context.Context, devices []model.Device, payload []byte) []DeviceOutcome
}

// DeliveryMetrics は配信メトリクスの収集インターフェース。
type DeliveryMetrics interface {
	RecordDelivered(success bool)
	RecordZeroDue()
	RecordSkip(reason string)
	RecordAccountError()
	RecordDeviceRemoved()
	RecordRunDuration(d time.Duration)
}

// Pipeline は1アカウント分の配信適格性判定と配信を行う。
// 設定ロード → 配信ゲート → 期日件数の算出 → デバイス選択 → ファンアウト →
// 配信状態の永続化、の順に段階的に処理する。各段階の失敗・スキップは
// そのアカウントの処理だけを打ち切り、呼び出し元へ波及しない。
type Pipeline struct {
	accountRepo  repository.AccountRepository
	reminderRepo repository.ReminderRepository
	fanout       DeviceFanout
	metrics      DeliveryMetrics
	logger       *slog.Logger
	now          func() time.Time // テストで注入可能な時刻源
}

// NewPipeline はPipelineを生成する。
func NewPipeline(
	accountRepo repository.AccountRepository,
	reminderRepo repository.ReminderRepository,
	fanout DeviceFanout,
	metrics DeliveryMetrics,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		accountRepo:  accountRepo,
		reminderRepo: reminderRepo,
		fanout:       fanout,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// ProcessAccount は1アカウントの配信パイプラインを実行する。
// 返り値のエラーはアカウント単位の致命的失敗（設定ロード失敗など）であり、
// スキップはエラーではなくPipelineOutcome.SkipReasonとして返る。
func (p *Pipeline) ProcessAccount(ctx context.Context, accountID string) (*PipelineOutcome, error) {
	account, err := p.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		p.metrics.RecordAccountError()
		return nil, fmt.Errorf("通知設定のロードに失敗しました: %w", err)
	}
	if account == nil {
		p.metrics.RecordAccountError()
		return nil, fmt.Errorf("アカウントが見つかりません: %s", accountID)
	}

	nowUTC := p.now().UTC()

	ok, reason := CanDeliver(account, nowUTC)
	if !ok {
		p.metrics.RecordSkip(reason)
		return &PipelineOutcome{SkipReason: reason}, nil
	}

	persons, err := p.reminderRepo.ListPersonsByAccountID(ctx, accountID)
	if err != nil {
		p.metrics.RecordAccountError()
		return nil, fmt.Errorf("リマインダーのロードに失敗しました: %w", err)
	}

	todayLocal := reminder.LocalDate(nowUTC, account.Location())
	dueCount := reminder.CountDue(persons, todayLocal)

	if dueCount == 0 {
		// 同日中の再評価を避けるため、送信なしでも配信済みとして記録する
		if err := p.accountRepo.SetLastDeliveredAt(ctx, accountID, nowUTC); err != nil {
			p.metrics.RecordAccountError()
			return nil, fmt.Errorf("配信済みマークに失敗しました: %w", err)
		}
		p.metrics.RecordZeroDue()
		p.logger.Info("期日のリマインダーがないため送信をスキップしました",
			slog.String("account_id", accountID),
		)
		return &PipelineOutcome{
			Result: &AccountResult{UserID: accountID, NotificationCount: 0, Success: true},
		}, nil
	}

	devices := account.EnabledDevices()
	if len(devices) == 0 {
		// 配信済みマークはしない。次回実行までにデバイスが有効化されれば
		// 同日中でも配信される。
		p.metrics.RecordSkip(SkipReasonNoDevices)
		return &PipelineOutcome{SkipReason: SkipReasonNoDevices}, nil
	}

	payload, err := BuildPayload(account, dueCount)
	if err != nil {
		p.metrics.RecordAccountError()
		return nil, err
	}

	outcomes := p.fanout.Send(ctx, devices, payload)

	// 購読が消滅したデバイスはユーザーレベルの成否に関わらず削除する
	for _, o := range outcomes {
		if !o.ShouldRemove {
			continue
		}
		if err := p.accountRepo.RemoveDevice(ctx, accountID, o.Endpoint); err != nil {
			p.logger.Error("デバイスの削除に失敗しました",
				slog.String("account_id", accountID),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.metrics.RecordDeviceRemoved()
	}

	// 配信試行後は成否に関わらず当日分を配信済みとする
	if err := p.accountRepo.SetLastDeliveredAt(ctx, accountID, nowUTC); err != nil {
		p.metrics.RecordAccountError()
		return nil, fmt.Errorf("配信済みマークに失敗しました: %w", err)
	}

	success := AnySucceeded(outcomes)
	p.metrics.RecordDelivered(success)

	p.logger.Info("Push通知を配信しました",
		slog.String("account_id", accountID),
		slog.Int("due_count", dueCount),
		slog.Int("device_count", len(devices)),
		slog.Bool("success", success),
	)

	return &PipelineOutcome{
		Result: &AccountResult{UserID: accountID, NotificationCount: dueCount, Success: success},
	}, nil
}
