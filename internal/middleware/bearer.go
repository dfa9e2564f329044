package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// NewBearerAuthMiddleware は静的トークンによるBearer認証ミドルウェアを生成する。
// 配信トリガーはスケジューラーからのサーバー間呼び出しのみを想定しており、
// 共有シークレットの一致を定数時間比較で検証する。
func NewBearerAuthMiddleware(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				slog.Warn("認証に失敗したトリガー要求を拒否しました",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"code":    "unauthorized",
					"message": "認証情報が不正です。",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
