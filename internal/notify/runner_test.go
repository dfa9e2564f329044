package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockProcessor はAccountProcessorのモック。
type mockProcessor struct {
	processFunc func(ctx context.Context, accountID string) (*PipelineOutcome, error)
}

func (m *mockProcessor) ProcessAccount(ctx context.Context, accountID string) (*PipelineOutcome, error) {
	return m.processFunc(ctx, accountID)
}

// pagedAccountRepo はID昇順のキーセットページネーションをメモリ上で再現する。
type pagedAccountRepo struct {
	mockAccountRepo
	ids       []string
	listCalls int32
}

func newPagedAccountRepo(n int) *pagedAccountRepo {
	repo := &pagedAccountRepo{}
	for i := 0; i < n; i++ {
		repo.ids = append(repo.ids, fmt.Sprintf("acct-%04d", i))
	}
	repo.listIDsAfterFunc = func(_ context.Context, afterID string, limit int) ([]string, error) {
		atomic.AddInt32(&repo.listCalls, 1)
		var page []string
		for _, id := range repo.ids {
			if id > afterID {
				page = append(page, id)
				if len(page) == limit {
					break
				}
			}
		}
		return page, nil
	}
	return repo
}

func TestRunner_AggregatesTerminalResultsOnly(t *testing.T) {
	repo := newPagedAccountRepo(10)
	processor := &mockProcessor{
		processFunc: func(_ context.Context, accountID string) (*PipelineOutcome, error) {
			switch accountID {
			case "acct-0003":
				return &PipelineOutcome{SkipReason: SkipReasonAlreadyDelivered}, nil
			case "acct-0007":
				return nil, errors.New("boom")
			default:
				return &PipelineOutcome{
					Result: &AccountResult{UserID: accountID, NotificationCount: 1, Success: true},
				}, nil
			}
		},
	}

	r := NewRunner(repo, processor, nopMetrics{}, discardLogger(), 4, 3, time.Second)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(results) != 8 {
		t.Errorf("スキップと失敗を除く8件の結果が返るべきです: got=%d", len(results))
	}
	for _, res := range results {
		if res.UserID == "acct-0003" || res.UserID == "acct-0007" {
			t.Errorf("スキップ・失敗したアカウントが結果に含まれています: %s", res.UserID)
		}
	}
}

func TestRunner_ConcurrencyLimit(t *testing.T) {
	const (
		accounts = 200
		limit    = 50
	)

	repo := newPagedAccountRepo(accounts)

	var current, peak int64
	processor := &mockProcessor{
		processFunc: func(_ context.Context, accountID string) (*PipelineOutcome, error) {
			n := atomic.AddInt64(&current, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond) // 同時実行の重なりを作る
			atomic.AddInt64(&current, -1)
			return &PipelineOutcome{
				Result: &AccountResult{UserID: accountID, Success: true},
			}, nil
		},
	}

	r := NewRunner(repo, processor, nopMetrics{}, discardLogger(), limit, 64, time.Second)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(results) != accounts {
		t.Errorf("全アカウントが処理されるべきです: got=%d want=%d", len(results), accounts)
	}
	if got := atomic.LoadInt64(&peak); got > limit {
		t.Errorf("同時実行数が上限を超えました: peak=%d limit=%d", got, limit)
	}
}

func TestRunner_PaginatesByPageSize(t *testing.T) {
	repo := newPagedAccountRepo(25)
	processor := &mockProcessor{
		processFunc: func(_ context.Context, accountID string) (*PipelineOutcome, error) {
			return &PipelineOutcome{Result: &AccountResult{UserID: accountID, Success: true}}, nil
		},
	}

	r := NewRunner(repo, processor, nopMetrics{}, discardLogger(), 4, 10, time.Second)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(results) != 25 {
		t.Errorf("全25件が処理されるべきです: got=%d", len(results))
	}
	// 10件×2ページ + 端数5件の3回
	if calls := atomic.LoadInt32(&repo.listCalls); calls != 3 {
		t.Errorf("列挙は3回行われるべきです: got=%d", calls)
	}
}

func TestRunner_EnumerationFailureFailsRun(t *testing.T) {
	repo := &pagedAccountRepo{}
	repo.listIDsAfterFunc = func(_ context.Context, _ string, _ int) ([]string, error) {
		return nil, errors.New("connection refused")
	}
	processor := &mockProcessor{
		processFunc: func(_ context.Context, accountID string) (*PipelineOutcome, error) {
			t.Error("列挙が失敗した場合にアカウントを処理してはいけません")
			return nil, nil
		},
	}

	r := NewRunner(repo, processor, nopMetrics{}, discardLogger(), 4, 10, time.Second)

	if _, err := r.Run(context.Background()); err == nil {
		t.Error("列挙失敗はエラーを返すべきです")
	}
}

func TestRunner_NoAccounts(t *testing.T) {
	repo := newPagedAccountRepo(0)
	processor := &mockProcessor{
		processFunc: func(_ context.Context, _ string) (*PipelineOutcome, error) {
			t.Error("アカウントが存在しない場合に処理してはいけません")
			return nil, nil
		},
	}

	r := NewRunner(repo, processor, nopMetrics{}, discardLogger(), 4, 10, time.Second)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("結果は空であるべきです: got=%d", len(results))
	}
}

func TestRunner_AccountFailureIsIsolated(t *testing.T) {
	repo := newPagedAccountRepo(5)
	var processed sync.Map
	processor := &mockProcessor{
		processFunc: func(_ context.Context, accountID string) (*PipelineOutcome, error) {
			processed.Store(accountID, true)
			if accountID == "acct-0000" {
				return nil, errors.New("boom")
			}
			return &PipelineOutcome{Result: &AccountResult{UserID: accountID, Success: true}}, nil
		},
	}

	r := NewRunner(repo, processor, nopMetrics{}, discardLogger(), 2, 10, time.Second)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("個別アカウントの失敗で実行全体が失敗してはいけません: %v", err)
	}
	if len(results) != 4 {
		t.Errorf("失敗1件を除く4件の結果が返るべきです: got=%d", len(results))
	}
	count := 0
	processed.Range(func(_, _ any) bool { count++; return true })
	if count != 5 {
		t.Errorf("全アカウントが処理対象になるべきです: got=%d", count)
	}
}

func TestRunner_RunIDBindsCycleLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	repo := newPagedAccountRepo(2)
	processor := &mockProcessor{
		processFunc: func(_ context.Context, accountID string) (*PipelineOutcome, error) {
			return &PipelineOutcome{Result: &AccountResult{UserID: accountID, Success: true}}, nil
		},
	}

	r := NewRunner(repo, processor, nopMetrics{}, logger, 2, 10, time.Second)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	var runIDs []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("ログのデコードに失敗しました: %v", err)
		}
		id, ok := entry["run_id"].(string)
		if !ok {
			t.Fatalf("サイクルのログにはrun_idが付くべきです: %s", line)
		}
		runIDs = append(runIDs, id)
	}
	if len(runIDs) < 2 {
		t.Fatalf("開始と完了のログが出力されるべきです: got=%d", len(runIDs))
	}
	if _, err := uuid.Parse(runIDs[0]); err != nil {
		t.Errorf("run_idはUUIDであるべきです: %v", err)
	}
	for _, id := range runIDs[1:] {
		if id != runIDs[0] {
			t.Errorf("同一サイクルのログは同じrun_idを共有するべきです: %s != %s", id, runIDs[0])
		}
	}
}
