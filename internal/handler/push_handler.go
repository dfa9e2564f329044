// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/remindcast/internal/notify"
)

// DeliveryRunner は配信サイクル実行のインターフェース。
type DeliveryRunner interface {
	// Run は全アカウントの配信パイプラインを実行し、終端結果の一覧を返す。
	Run(ctx context.Context) ([]notify.AccountResult, error)
}

// PushHandler は配信トリガーのHTTPハンドラー。
type PushHandler struct {
	runner DeliveryRunner
}

// NewPushHandler はPushHandlerを生成する。
func NewPushHandler(runner DeliveryRunner) *PushHandler {
	return &PushHandler{runner: runner}
}

// accountResultResponse は1アカウントの配信結果のAPIレスポンス。
// 通知ペイロード内のキーはuserIdだが、実行レポートのキーはuserID。
type accountResultResponse struct {
	UserID            string `json:"userID"`
	NotificationCount int    `json:"notificationCount"`
	Success           bool   `json:"success"`
}

// deliverResponse は配信トリガーのレスポンスボディ。
type deliverResponse struct {
	Message string                  `json:"message"`
	Results []accountResultResponse `json:"results"`
}

// DeliverNotifications は配信サイクルを1回実行する。
// POST /push/deliver-notifications
//
// 個別アカウントの失敗・スキップは結果に含まれないだけで200を返す。
// 500を返すのはアカウント列挙自体が失敗した場合のみ。
func (h *PushHandler) DeliverNotifications(w http.ResponseWriter, r *http.Request) {
	results, err := h.runner.Run(r.Context())
	if err != nil {
		slog.Error("配信サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		writeErrorResponse(w, http.StatusInternalServerError, "delivery_run_failed", "配信サイクルの実行に失敗しました。")
		return
	}

	// 結果ゼロ件でもnullではなく空配列を返す
	resp := deliverResponse{
		Message: "notification delivery completed",
		Results: make([]accountResultResponse, 0, len(results)),
	}
	for _, res := range results {
		resp.Results = append(resp.Results, accountResultResponse{
			UserID:            res.UserID,
			NotificationCount: res.NotificationCount,
			Success:           res.Success,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("レスポンスのエンコードに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// errorResponse は統一エラーフォーマットのレスポンス。
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{
		Code:    code,
		Message: message,
	})
}
