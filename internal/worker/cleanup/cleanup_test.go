package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// mockExecutor はExecutorのモック。実行されたクエリと引数を記録する。
type mockExecutor struct {
	queries []string
	args    [][]interface{}
	result  sql.Result
	err     error
}

func (m *mockExecutor) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.queries = append(m.queries, query)
	m.args = append(m.args, args)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestCleanupJob_DefaultRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{result: &fakeResult{}}, newTestLogger(&buf))

	if job.RetentionDays != 90 {
		t.Errorf("デフォルト保持日数が一致しません: got=%d want=90", job.RetentionDays)
	}
}

func TestCleanupJob_DeletesRemindersThenPersons(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 2}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if len(mock.queries) != 2 {
		t.Fatalf("2つの削除クエリが実行されるべきです: got=%d", len(mock.queries))
	}
	if !strings.Contains(mock.queries[0], "DELETE FROM reminders") {
		t.Errorf("1番目はリマインダー削除であるべきです: %s", mock.queries[0])
	}
	if !strings.Contains(mock.queries[1], "DELETE FROM persons") {
		t.Errorf("2番目はPerson削除であるべきです: %s", mock.queries[1])
	}
	for _, q := range mock.queries {
		if !strings.Contains(q, "permanently_deleted_at") {
			t.Errorf("完全削除マーカーを条件にするべきです: %s", q)
		}
	}
}

func TestCleanupJob_PassesRetentionInterval(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&buf))
	job.RetentionDays = 30

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	for _, args := range mock.args {
		if len(args) != 1 || args[0] != "30 days" {
			t.Errorf("interval引数が一致しません: got=%v", args)
		}
	}
}

func TestCleanupJob_NoRowsIsSuccess(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 0}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("削除対象がなくてもエラーにしてはいけません: %v", err)
	}
}

func TestCleanupJob_QueryFailureReturnsError(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{err: errors.New("connection refused")}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err == nil {
		t.Error("クエリ失敗はエラーを返すべきです")
	}
}
