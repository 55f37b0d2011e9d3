package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestRateLimiter(generalRPS float64, generalBurst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		GeneralRPS:      generalRPS,
		GeneralBurst:    generalBurst,
		UploadRPS:       0.1,
		UploadBurst:     1,
		CleanupInterval: time.Hour,
	})
}

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(1, 3)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if !rl.Allow("user-1", LimiterClassGeneral) {
			t.Errorf("request %d should be allowed within burst", i+1)
		}
	}
	if rl.Allow("user-1", LimiterClassGeneral) {
		t.Error("request beyond burst should be denied")
	}
}

func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Close()

	if !rl.Allow("user-1", LimiterClassGeneral) {
		t.Error("first request for user-1 should be allowed")
	}
	if rl.Allow("user-1", LimiterClassGeneral) {
		t.Error("second request for user-1 should be denied")
	}
	// 別ユーザーには影響しない
	if !rl.Allow("user-2", LimiterClassGeneral) {
		t.Error("first request for user-2 should be allowed")
	}
}

func TestRateLimiter_ClassIsolation(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Close()

	if !rl.Allow("user-1", LimiterClassGeneral) {
		t.Error("general request should be allowed")
	}
	// アップロード区分は独立したバケットを持つ
	if !rl.Allow("user-1", LimiterClassUpload) {
		t.Error("upload request should use an independent bucket")
	}
}

func TestRateLimitMiddleware_TooManyRequests(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Close()

	handler := NewRateLimitMiddleware(rl, LimiterClassGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	makeRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/papers", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := makeRequest(); rec.Code != http.StatusOK {
		t.Errorf("first request status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec := makeRequest()
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got == "" {
		t.Error("Retry-After header should be set on 429 response")
	}
}

func TestRateLimitMiddleware_UnauthenticatedPassthrough(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Close()

	handler := NewRateLimitMiddleware(rl, LimiterClassGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 認証コンテキストのないリクエストはリミット対象外
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("unauthenticated request %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := &RateLimiter{
		limiters: make(map[string]*userLimiter),
		config: RateLimiterConfig{
			GeneralRPS:      1,
			GeneralBurst:    1,
			CleanupInterval: time.Minute,
		},
		done: make(chan struct{}),
	}

	rl.Allow("stale-user", LimiterClassGeneral)
	rl.Allow("active-user", LimiterClassGeneral)

	rl.mu.Lock()
	rl.limiters["stale-user:0"].lastAccess = time.Now().Add(-3 * time.Minute)
	rl.mu.Unlock()

	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters["stale-user:0"]; ok {
		t.Error("stale limiter should be removed by cleanup")
	}
	if _, ok := rl.limiters["active-user:0"]; !ok {
		t.Error("active limiter should survive cleanup")
	}
}
