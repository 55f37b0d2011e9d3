package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterClass はレートリミットの適用区分を表す。
type LimiterClass int

const (
	// LimiterClassGeneral は通常のAPIリクエストに適用する区分。
	LimiterClassGeneral LimiterClass = iota
	// LimiterClassUpload はメディアアップロードに適用する区分。
	LimiterClassUpload
)

// RateLimiterConfig はレートリミッターの設定。
type RateLimiterConfig struct {
	// GeneralRPS は通常APIの1秒あたり許可リクエスト数。
	GeneralRPS float64
	// GeneralBurst は通常APIのバースト許容量。
	GeneralBurst int
	// UploadRPS はアップロードAPIの1秒あたり許可リクエスト数。
	UploadRPS float64
	// UploadBurst はアップロードAPIのバースト許容量。
	UploadBurst int
	// CleanupInterval は非アクティブユーザーのリミッターを削除する間隔。
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig はレートリミッターのデフォルト設定を返す。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRPS:      10,
		GeneralBurst:    20,
		UploadRPS:       0.5,
		UploadBurst:     3,
		CleanupInterval: 10 * time.Minute,
	}
}

// userLimiter はユーザーごとのリミッターと最終アクセス時刻を保持する。
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はユーザー単位のトークンバケット式レートリミッター。
// 区分ごとに独立したリミッターを管理する。
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	config   RateLimiterConfig
	done     chan struct{}
	closed   sync.Once
}

// NewRateLimiter はレートリミッターを生成し、クリーンアップループを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*userLimiter),
		config:   config,
		done:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Close はクリーンアップループを停止する。
func (rl *RateLimiter) Close() {
	rl.closed.Do(func() {
		close(rl.done)
	})
}

// classParams は区分に応じたレートとバーストを返す。
func (rl *RateLimiter) classParams(class LimiterClass) (rate.Limit, int) {
	if class == LimiterClassUpload {
		return rate.Limit(rl.config.UploadRPS), rl.config.UploadBurst
	}
	return rate.Limit(rl.config.GeneralRPS), rl.config.GeneralBurst
}

// getLimiter はユーザーと区分に対応するリミッターを取得または生成する。
func (rl *RateLimiter) getLimiter(userID string, class LimiterClass) *rate.Limiter {
	key := fmt.Sprintf("%s:%d", userID, class)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[key]
	if !ok {
		limit, burst := rl.classParams(class)
		ul = &userLimiter{limiter: rate.NewLimiter(limit, burst)}
		rl.limiters[key] = ul
	}
	ul.lastAccess = time.Now()
	return ul.limiter
}

// Allow は指定ユーザーのリクエストが許可されるか判定する。
func (rl *RateLimiter) Allow(userID string, class LimiterClass) bool {
	return rl.getLimiter(userID, class).Allow()
}

// cleanupLoop は定期的に非アクティブユーザーのリミッターを削除する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup はCleanupIntervalの2倍以上アクセスのないリミッターを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	cutoff := time.Now().Add(-ttl)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, ul := range rl.limiters {
		if ul.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("rate limiter cleanup",
			slog.Int("removed", removed),
			slog.Int("remaining", len(rl.limiters)),
		)
	}
}

// NewRateLimitMiddleware は認証済みユーザーに対してレートリミットを適用するミドルウェアを返す。
// 認証ミドルウェアの内側に配置すること。
func NewRateLimitMiddleware(rl *RateLimiter, class LimiterClass) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				// 未認証リクエストにはリミットを適用しない（認証ミドルウェアが先に処理する）
				next.ServeHTTP(w, r)
				return
			}

			if !rl.Allow(userID, class) {
				slog.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("path", r.URL.Path),
				)
				writeRateLimitResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeRateLimitResponse は429レスポンスをRetry-Afterヘッダー付きで書き込む。
func writeRateLimitResponse(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprint(w, `{"code":"rate_limit_exceeded","message":"リクエストが多すぎます。しばらくしてから再度お試しください。","category":"system","action":"指定された時間の後に再試行してください。"}`)
}
