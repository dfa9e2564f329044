package app

import (
	"bytes"
	"testing"
)

// TestRun_ServeCommand はserveコマンドがDB接続を試みることを検証する。
// テスト環境ではDB接続が失敗するため、エラーが返ることを許容する。
func TestRun_ServeCommand(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		// CI/ローカルにDBがある場合はここに到達する可能性がある。
		t.Log("Run(serve) succeeded - DB is available in test environment")
	}
}

// TestRun_DeliverCommand はdeliverコマンドがDB接続を試みることを検証する。
func TestRun_DeliverCommand(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"deliver"})
	if err == nil {
		t.Log("Run(deliver) succeeded - DB is available in test environment")
	}
}

// TestRun_MigrateCommand はmigrateコマンドがDB接続を試みることを検証する。
func TestRun_MigrateCommand(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"migrate"})
	if err == nil {
		t.Log("Run(migrate) succeeded - DB is available in test environment")
	}
}

func TestRun_MissingEnvReturnsError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PUSH_TRIGGER_TOKEN", "")
	t.Setenv("VAPID_PUBLIC_KEY", "")
	t.Setenv("VAPID_PRIVATE_KEY", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("必須環境変数が無い場合はエラーを返すべきです")
	}
}

func TestRun_HealthcheckWithoutServerReturnsError(t *testing.T) {
	t.Setenv("SERVER_PORT", "1")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"healthcheck"}); err == nil {
		t.Error("サーバーが起動していない場合のhealthcheckはエラーを返すべきです")
	}
}
