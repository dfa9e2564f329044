package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/remindcast/internal/repository"
)

// AccountProcessor は1アカウント分の配信パイプラインのインターフェース。
type AccountProcessor interface {
	ProcessAccount(ctx context.Context, accountID string) (*PipelineOutcome, error)
}

// Runner は全アカウントの配信パイプラインを実行し、結果を集約する。
// アカウントはページ単位でストリーミング取得し、semaphoreパターンで
// 同時実行中のアカウント数を上限以下に保つ。
type Runner struct {
	accountRepo    repository.AccountRepository
	processor      AccountProcessor
	metrics        DeliveryMetrics
	logger         *slog.Logger
	maxConcurrency int
	pageSize       int
	listTimeout    time.Duration
}

// NewRunner はRunnerを生成する。
// maxConcurrencyが0以下の場合はデフォルト値50、pageSizeが0以下の場合は
// デフォルト値500を使用する。
func NewRunner(
	accountRepo repository.AccountRepository,
	processor AccountProcessor,
	metrics DeliveryMetrics,
	logger *slog.Logger,
	maxConcurrency int,
	pageSize int,
	listTimeout time.Duration,
) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 50
	}
	if pageSize <= 0 {
		pageSize = 500
	}
	if listTimeout <= 0 {
		listTimeout = 30 * time.Second
	}
	return &Runner{
		accountRepo:    accountRepo,
		processor:      processor,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		pageSize:       pageSize,
		listTimeout:    listTimeout,
	}
}

// Run は全アカウントを走査して配信パイプラインを実行し、終端結果の一覧を返す。
// 個別アカウントの失敗・スキップは記録されるだけで実行全体を止めない。
// エラーを返すのはアカウント列挙自体が失敗した場合のみ。
func (r *Runner) Run(ctx context.Context) ([]AccountResult, error) {
	start := time.Now()

	// 実行サイクルごとにIDを振り、同サイクルのログを突合できるようにする
	logger := r.logger.With(slog.String("run_id", uuid.NewString()))
	logger.Info("配信サイクルを開始します",
		slog.Int("max_concurrency", r.maxConcurrency),
	)

	ids, errCh := r.streamAccountIDs(ctx)

	// semaphoreパターンで同時実行アカウント数を制御
	sem := make(chan struct{}, r.maxConcurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var results []AccountResult
	var skipped, failed int

	for id := range ids {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(accountID string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			outcome, err := r.processor.ProcessAccount(ctx, accountID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				logger.Error("アカウントの配信処理に失敗しました",
					slog.String("account_id", accountID),
					slog.String("error", err.Error()),
				)
			case outcome.Result != nil:
				results = append(results, *outcome.Result)
			default:
				skipped++
				logger.Info("アカウントの配信をスキップしました",
					slog.String("account_id", accountID),
					slog.String("reason", outcome.SkipReason),
				)
			}
		}(id)
	}

	wg.Wait()

	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("アカウント一覧の列挙に失敗しました: %w", err)
	}

	duration := time.Since(start)
	r.metrics.RecordRunDuration(duration)
	logger.Info("配信サイクルが完了しました",
		slog.Int("delivered", len(results)),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return results, nil
}

// streamAccountIDs はアカウントIDをキーセットページネーションで取得し、
// チャネルへ流す。全件をメモリに保持しない。列挙エラーはerrChへ1件だけ
// 送られ、チャネルはクローズされる。
func (r *Runner) streamAccountIDs(ctx context.Context) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		afterID := ""
		for {
			listCtx, cancel := context.WithTimeout(ctx, r.listTimeout)
			ids, err := r.accountRepo.ListIDsAfter(listCtx, afterID, r.pageSize)
			cancel()
			if err != nil {
				errCh <- err
				return
			}
			if len(ids) == 0 {
				return
			}

			for _, id := range ids {
				select {
				case out <- id:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}

			afterID = ids[len(ids)-1]
			if len(ids) < r.pageSize {
				return
			}
		}
	}()

	return out, errCh
}
