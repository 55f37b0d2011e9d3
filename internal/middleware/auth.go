// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/yshimura/magfeed/internal/model"
)

// リクエストヘッダー名。全クライアントが共通インターセプターで付与する。
const (
	HeaderDeviceID   = "X-Device-Id"
	HeaderTenantName = "X-Tenant-Name"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// deviceIDContextKey はリクエストコンテキストにデバイスIDを格納するためのキー。
var deviceIDContextKey = contextKey("device_id")

// TokenVerifier はアクセストークンの検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// NewAuthMiddleware はBearerトークンとデバイス/テナントヘッダーを検証するミドルウェアを返す。
// 認証済みユーザーIDとデバイスIDをリクエストコンテキストに注入する。
// 未認証リクエストおよびテナント不一致には401 Unauthorizedを返す。
func NewAuthMiddleware(verifier TokenVerifier, tenantName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからトークンを取得
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")

			// 2. テナント検証
			if r.Header.Get(HeaderTenantName) != tenantName {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. デバイスIDの存在確認
			deviceID := r.Header.Get(HeaderDeviceID)
			if deviceID == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 4. トークンの有効性を検証（セッション失効も含む）
			userID, err := verifier.Verify(r.Context(), token)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 5. 認証済みユーザーID・デバイスIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			ctx = context.WithValue(ctx, deviceIDContextKey, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// DeviceIDFromContext はリクエストコンテキストからデバイスIDを取得する。
func DeviceIDFromContext(ctx context.Context) (string, error) {
	deviceID, ok := ctx.Value(deviceIDContextKey).(string)
	if !ok || deviceID == "" {
		return "", fmt.Errorf("device ID not found in context")
	}
	return deviceID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
