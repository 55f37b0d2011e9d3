package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yshimura/magfeed/internal/comment"
	"github.com/yshimura/magfeed/internal/model"
)

// mockCommentService はCommentServiceInterfaceのモック実装。
type mockCommentService struct {
	listCommentsFn  func(ctx context.Context, viewerID, paperID string, page int) (*comment.CommentListResult, error)
	listRepliesFn   func(ctx context.Context, viewerID, commentID string, page int) (*comment.CommentListResult, error)
	addCommentFn    func(ctx context.Context, userID, paperID, parentID, body string) (*model.Comment, error)
	setLikeFn       func(ctx context.Context, userID, commentID string, liked bool) (bool, error)
	deleteCommentFn func(ctx context.Context, userID, commentID string) error
}

func (m *mockCommentService) ListComments(ctx context.Context, viewerID, paperID string, page int) (*comment.CommentListResult, error) {
	if m.listCommentsFn != nil {
		return m.listCommentsFn(ctx, viewerID, paperID, page)
	}
	return &comment.CommentListResult{Page: page}, nil
}

func (m *mockCommentService) ListReplies(ctx context.Context, viewerID, commentID string, page int) (*comment.CommentListResult, error) {
	if m.listRepliesFn != nil {
		return m.listRepliesFn(ctx, viewerID, commentID, page)
	}
	return &comment.CommentListResult{Page: page}, nil
}

func (m *mockCommentService) AddComment(ctx context.Context, userID, paperID, parentID, body string) (*model.Comment, error) {
	if m.addCommentFn != nil {
		return m.addCommentFn(ctx, userID, paperID, parentID, body)
	}
	return &model.Comment{}, nil
}

func (m *mockCommentService) SetLike(ctx context.Context, userID, commentID string, liked bool) (bool, error) {
	if m.setLikeFn != nil {
		return m.setLikeFn(ctx, userID, commentID, liked)
	}
	return false, nil
}

func (m *mockCommentService) DeleteComment(ctx context.Context, userID, commentID string) error {
	if m.deleteCommentFn != nil {
		return m.deleteCommentFn(ctx, userID, commentID)
	}
	return nil
}

func TestCommentHandler_ListComments_Success(t *testing.T) {
	svc := &mockCommentService{
		listCommentsFn: func(ctx context.Context, viewerID, paperID string, page int) (*comment.CommentListResult, error) {
			if paperID != "paper-1" {
				t.Errorf("paperID = %q, want %q", paperID, "paper-1")
			}
			return &comment.CommentListResult{
				Comments: []model.CommentWithViewerState{
					{Comment: model.Comment{ID: "comment-1", PaperID: "paper-1", Body: "いいですね"}},
				},
				Page:    1,
				HasMore: true,
			}, nil
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/papers/paper-1/comments", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-1")
	w := httptest.NewRecorder()

	h.ListComments(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeResult(t, w)
	if result["hasmore"] != true {
		t.Errorf("hasmore = %v, want true", result["hasmore"])
	}
}

func TestCommentHandler_AddComment_Success(t *testing.T) {
	svc := &mockCommentService{
		addCommentFn: func(ctx context.Context, userID, paperID, parentID, body string) (*model.Comment, error) {
			if paperID != "paper-1" {
				t.Errorf("paperID = %q, want %q", paperID, "paper-1")
			}
			if parentID != "" {
				t.Errorf("parentID = %q, want empty", parentID)
			}
			return &model.Comment{ID: "comment-new", PaperID: paperID, Body: body}, nil
		},
	}

	h := NewCommentHandler(svc)

	body := jsonBody(t, map[string]string{"body": "素晴らしい動画でした"})
	req := httptest.NewRequest(http.MethodPost, "/sns/papers/paper-1/comments", body)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-1")
	w := httptest.NewRecorder()

	h.AddComment(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	result := decodeResult(t, w)
	if result["id"] != "comment-new" {
		t.Errorf("id = %v, want %q", result["id"], "comment-new")
	}
}

func TestCommentHandler_AddComment_ReplyDepthExceeded(t *testing.T) {
	svc := &mockCommentService{
		addCommentFn: func(ctx context.Context, userID, paperID, parentID, body string) (*model.Comment, error) {
			return nil, model.NewReplyDepthExceededError()
		},
	}

	h := NewCommentHandler(svc)

	body := jsonBody(t, map[string]string{"body": "返信の返信", "parent_id": "comment-reply"})
	req := httptest.NewRequest(http.MethodPost, "/sns/papers/paper-1/comments", body)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-1")
	w := httptest.NewRecorder()

	h.AddComment(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeReplyDepthExceeded {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeReplyDepthExceeded)
	}
}

func TestCommentHandler_ListReplies_PassesCommentID(t *testing.T) {
	svc := &mockCommentService{
		listRepliesFn: func(ctx context.Context, viewerID, commentID string, page int) (*comment.CommentListResult, error) {
			if commentID != "comment-1" {
				t.Errorf("commentID = %q, want %q", commentID, "comment-1")
			}
			return &comment.CommentListResult{Page: page}, nil
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/comments/comment-1/replies", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "comment-1")
	w := httptest.NewRecorder()

	h.ListReplies(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestCommentHandler_DeleteComment_Forbidden(t *testing.T) {
	svc := &mockCommentService{
		deleteCommentFn: func(ctx context.Context, userID, commentID string) error {
			return model.NewForbiddenError()
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/sns/comments/comment-1", nil)
	req = withUserID(req, "user-789")
	req = withChiURLParam(req, "id", "comment-1")
	w := httptest.NewRecorder()

	h.DeleteComment(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestCommentHandler_SetLike_Changed(t *testing.T) {
	svc := &mockCommentService{
		setLikeFn: func(ctx context.Context, userID, commentID string, liked bool) (bool, error) {
			return true, nil
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/sns/comments/comment-1/like", jsonBody(t, map[string]bool{"value": true}))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "comment-1")
	w := httptest.NewRecorder()

	h.SetLike(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeResult(t, w)
	if result["changed"] != true {
		t.Errorf("changed = %v, want true", result["changed"])
	}
}
