package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// TriggerRateLimiter は配信トリガーエンドポイントのレート制限を管理する。
// トリガーは外部スケジューラーからの呼び出しであり発信元ユーザーの区別が
// ないため、エンドポイント全体で単一のリミッターを共有する。
type TriggerRateLimiter struct {
	limiter *rate.Limiter
}

// NewTriggerRateLimiter は新しいTriggerRateLimiterを生成する。
// perMinuteは1分あたりの許容リクエスト数。バーストも同じ値を使う。
func NewTriggerRateLimiter(perMinute int) *TriggerRateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &TriggerRateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

// Middleware はレート制限ミドルウェアを返す。
// 上限超過時は429とRetry-Afterヘッダーを返す。
func (rl *TriggerRateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.limiter.Allow() {
				writeRateLimitResponse(w, rl.limiter.Limit())
				slog.Warn("rate limit exceeded",
					slog.String("path", r.URL.Path),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Reserve はテスト用にリミッターのトークンを消費する。
func (rl *TriggerRateLimiter) Reserve() *rate.Reservation {
	return rl.limiter.ReserveN(time.Now(), 1)
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":    "rate_limit_exceeded",
		"message": "Too many requests. Please try again later.",
	})
}
