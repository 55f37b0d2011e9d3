package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yshimura/magfeed/internal/comment"
	"github.com/yshimura/magfeed/internal/middleware"
	"github.com/yshimura/magfeed/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	ListComments(ctx context.Context, viewerID, paperID string, page int) (*comment.CommentListResult, error)
	ListReplies(ctx context.Context, viewerID, commentID string, page int) (*comment.CommentListResult, error)
	AddComment(ctx context.Context, userID, paperID, parentID, body string) (*model.Comment, error)
	SetLike(ctx context.Context, userID, commentID string, liked bool) (bool, error)
	DeleteComment(ctx context.Context, userID, commentID string) error
}

// CommentHandler はコメント管理のHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

// addCommentRequest はコメント投稿リクエストのボディ。
type addCommentRequest struct {
	Body     string `json:"body"`
	ParentID string `json:"parent_id"`
}

// ListComments はペーパー直下のコメント1ページ分を取得する。
// GET /sns/papers/:id/comments?page=1
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	page, err := pageParam(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.ListComments(r.Context(), userID, chi.URLParam(r, "id"), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeListResult(w, http.StatusOK, toCommentResponses(result.Comments), result.HasMore)
}

// ListReplies はコメントへの返信1ページ分を取得する。
// GET /sns/comments/:id/replies?page=1
func (h *CommentHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	page, err := pageParam(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.ListReplies(r.Context(), userID, chi.URLParam(r, "id"), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeListResult(w, http.StatusOK, toCommentResponses(result.Comments), result.HasMore)
}

// AddComment はペーパーにコメントを投稿する。parent_idを指定すると返信になる。
// POST /sns/papers/:id/comments
func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	c, err := h.service.AddComment(r.Context(), userID, chi.URLParam(r, "id"), req.ParentID, req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusCreated, toCommentResponse(model.CommentWithViewerState{Comment: *c}))
}

// SetLike はコメントのいいね状態を設定する。冪等。
// PUT /sns/comments/:id/like
func (h *CommentHandler) SetLike(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req setValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	changed, err := h.service.SetLike(r.Context(), userID, chi.URLParam(r, "id"), req.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, changedResponse{Changed: changed})
}

// DeleteComment はコメントを削除する。コメント投稿者またはペーパー投稿者のみ実行できる。
// DELETE /sns/comments/:id
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeleteComment(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
