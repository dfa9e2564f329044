package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Info("テストメッセージ", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("JSONログが出力されるべきです: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "テストメッセージ" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v", entry["key"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("timeフィールドが含まれるべきです")
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestSetup_SuppressesDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Debug("デバッグメッセージ")

	if buf.Len() != 0 {
		t.Errorf("デフォルトレベルはInfoのためDebugは出力されないべきです: %s", buf.String())
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Info("グローバルログ")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("JSONログが出力されるべきです: %v", err)
	}
	if entry["msg"] != "グローバルログ" {
		t.Errorf("msg = %v", entry["msg"])
	}
}
