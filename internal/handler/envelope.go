// Package handler はHTTP APIハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yshimura/magfeed/internal/model"
)

// resultEnvelope はAPIレスポンスの内側のエンベロープ。
type resultEnvelope struct {
	Result any `json:"result"`
}

// dataEnvelope はAPIレスポンスの外側のエンベロープ。
// 全エンドポイントが {"data":{"result":...}} 形式で返す。
type dataEnvelope struct {
	Data resultEnvelope `json:"data"`
}

// listPayload は一覧レスポンスのペイロード。
// クライアントはhasmoreフラグで追加ページの有無を判定する。
type listPayload struct {
	Data    any  `json:"data"`
	HasMore bool `json:"hasmore"`
}

// writeResult は単一オブジェクトをエンベロープに包んで書き込む。
func writeResult(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(dataEnvelope{Data: resultEnvelope{Result: v}})
}

// writeListResult は一覧をhasmoreフラグ付きエンベロープに包んで書き込む。
// itemsがnilの場合は空配列として出力する。
func writeListResult(w http.ResponseWriter, statusCode int, items any, hasMore bool) {
	if items == nil {
		items = []struct{}{}
	}
	writeResult(w, statusCode, listPayload{Data: items, HasMore: hasMore})
}

// apiErrorResponse はエラーレスポンスのボディ。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse はAPIErrorをJSONレスポンスとして書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodePaperNotFound,
		model.ErrCodeMagazineNotFound, model.ErrCodeCommentNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailTaken, model.ErrCodeNotPublished:
		return http.StatusConflict
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidPage,
		model.ErrCodeReplyDepthExceeded, model.ErrCodeRemoteFetchBlocked:
		return http.StatusBadRequest
	case model.ErrCodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// writeUnauthorized は未認証レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
}
