package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth_ValidToken(t *testing.T) {
	mw := NewBearerAuthMiddleware("secret-token")
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/push/deliver-notifications", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("正しいトークンは通過するべきです: got=%d", rec.Code)
	}
}

func TestBearerAuth_InvalidTokenReturns401(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"ヘッダーなし", ""},
		{"トークン不一致", "Bearer wrong-token"},
		{"Bearerプレフィックスなし", "secret-token"},
		{"Basic認証", "Basic c2VjcmV0"},
	}

	mw := NewBearerAuthMiddleware("secret-token")
	handler := mw(okHandler())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/push/deliver-notifications", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("不正な認証情報は401を返すべきです: got=%d", rec.Code)
			}
		})
	}
}
