package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yshimura/magfeed/internal/middleware"
	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/paper"
)

// --- モック定義 ---

// mockPaperService はPaperServiceInterfaceのモック実装。
type mockPaperService struct {
	feedPageFn    func(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, page int) (*paper.FeedPageResult, error)
	getPaperFn    func(ctx context.Context, viewerID, paperID string) (*model.PaperWithViewerState, error)
	createPaperFn func(ctx context.Context, authorID string, input paper.CreatePaperInput) (*model.Paper, error)
	submitPaperFn func(ctx context.Context, authorID, paperID string) error
	updatePaperFn func(ctx context.Context, authorID, paperID string, input paper.UpdatePaperInput) (*model.Paper, error)
	setLikeFn     func(ctx context.Context, userID, paperID string, liked bool) (bool, error)
	setStarFn     func(ctx context.Context, userID, paperID string, starred bool) (bool, error)
	setTopFn      func(ctx context.Context, authorID, paperID string, top bool) error
	setHiddenFn   func(ctx context.Context, authorID, paperID string, hidden bool) error
	deletePaperFn func(ctx context.Context, authorID, paperID string) error
	recordPlayFn  func(ctx context.Context, paperID string) error
}

func (m *mockPaperService) FeedPage(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, page int) (*paper.FeedPageResult, error) {
	if m.feedPageFn != nil {
		return m.feedPageFn(ctx, viewerID, scope, scopeID, page)
	}
	return &paper.FeedPageResult{Page: page}, nil
}

func (m *mockPaperService) GetPaper(ctx context.Context, viewerID, paperID string) (*model.PaperWithViewerState, error) {
	if m.getPaperFn != nil {
		return m.getPaperFn(ctx, viewerID, paperID)
	}
	return &model.PaperWithViewerState{}, nil
}

func (m *mockPaperService) CreatePaper(ctx context.Context, authorID string, input paper.CreatePaperInput) (*model.Paper, error) {
	if m.createPaperFn != nil {
		return m.createPaperFn(ctx, authorID, input)
	}
	return &model.Paper{}, nil
}

func (m *mockPaperService) SubmitPaper(ctx context.Context, authorID, paperID string) error {
	if m.submitPaperFn != nil {
		return m.submitPaperFn(ctx, authorID, paperID)
	}
	return nil
}

func (m *mockPaperService) UpdatePaper(ctx context.Context, authorID, paperID string, input paper.UpdatePaperInput) (*model.Paper, error) {
	if m.updatePaperFn != nil {
		return m.updatePaperFn(ctx, authorID, paperID, input)
	}
	return &model.Paper{}, nil
}

func (m *mockPaperService) SetLike(ctx context.Context, userID, paperID string, liked bool) (bool, error) {
	if m.setLikeFn != nil {
		return m.setLikeFn(ctx, userID, paperID, liked)
	}
	return false, nil
}

func (m *mockPaperService) SetStar(ctx context.Context, userID, paperID string, starred bool) (bool, error) {
	if m.setStarFn != nil {
		return m.setStarFn(ctx, userID, paperID, starred)
	}
	return false, nil
}

func (m *mockPaperService) SetTop(ctx context.Context, authorID, paperID string, top bool) error {
	if m.setTopFn != nil {
		return m.setTopFn(ctx, authorID, paperID, top)
	}
	return nil
}

func (m *mockPaperService) SetHidden(ctx context.Context, authorID, paperID string, hidden bool) error {
	if m.setHiddenFn != nil {
		return m.setHiddenFn(ctx, authorID, paperID, hidden)
	}
	return nil
}

func (m *mockPaperService) DeletePaper(ctx context.Context, authorID, paperID string) error {
	if m.deletePaperFn != nil {
		return m.deletePaperFn(ctx, authorID, paperID)
	}
	return nil
}

func (m *mockPaperService) RecordPlay(ctx context.Context, paperID string) error {
	if m.recordPlayFn != nil {
		return m.recordPlayFn(ctx, paperID)
	}
	return nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeResult はエンベロープをパースしてresult部分を返すヘルパー。
func decodeResult(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data struct {
			Result map[string]interface{} `json:"result"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return envelope.Data.Result
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	return buf
}

// --- GET /sns/papers テスト ---

func TestPaperHandler_Feed_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	svc := &mockPaperService{
		feedPageFn: func(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, page int) (*paper.FeedPageResult, error) {
			if viewerID != "user-123" {
				t.Errorf("viewerID = %q, want %q", viewerID, "user-123")
			}
			if scope != model.FeedScopeAll {
				t.Errorf("scope = %q, want %q", scope, model.FeedScopeAll)
			}
			if page != 2 {
				t.Errorf("page = %d, want 2", page)
			}
			return &paper.FeedPageResult{
				Papers: []model.PaperWithViewerState{
					{
						Paper: model.Paper{
							ID:        "paper-1",
							Title:     "テストペーパー",
							Status:    model.ReviewStatusPublished,
							CreatedAt: now,
						},
						IsLiked: true,
					},
				},
				Page:    2,
				HasMore: true,
			}, nil
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/papers?page=2", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Feed(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	result := decodeResult(t, w)
	hasMore, ok := result["hasmore"].(bool)
	if !ok || !hasMore {
		t.Errorf("hasmore = %v, want true", result["hasmore"])
	}
	items, ok := result["data"].([]interface{})
	if !ok {
		t.Fatal("expected data array in result")
	}
	if len(items) != 1 {
		t.Errorf("data length = %d, want 1", len(items))
	}
	first, ok := items[0].(map[string]interface{})
	if !ok {
		t.Fatal("expected object in data array")
	}
	if first["is_liked"] != true {
		t.Errorf("is_liked = %v, want true", first["is_liked"])
	}
}

func TestPaperHandler_Feed_DefaultsToFirstPageAllScope(t *testing.T) {
	svc := &mockPaperService{
		feedPageFn: func(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, page int) (*paper.FeedPageResult, error) {
			if page != 1 {
				t.Errorf("page = %d, want 1", page)
			}
			if scope != model.FeedScopeAll {
				t.Errorf("scope = %q, want %q", scope, model.FeedScopeAll)
			}
			return &paper.FeedPageResult{Page: 1}, nil
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/papers", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Feed(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	// 空の一覧は空配列として返る
	result := decodeResult(t, w)
	items, ok := result["data"].([]interface{})
	if !ok {
		t.Fatal("expected data array in result")
	}
	if len(items) != 0 {
		t.Errorf("data length = %d, want 0", len(items))
	}
}

func TestPaperHandler_Feed_ScopeParams(t *testing.T) {
	svc := &mockPaperService{
		feedPageFn: func(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, page int) (*paper.FeedPageResult, error) {
			if scope != model.FeedScopeMagazine {
				t.Errorf("scope = %q, want %q", scope, model.FeedScopeMagazine)
			}
			if scopeID != "mag-1" {
				t.Errorf("scopeID = %q, want %q", scopeID, "mag-1")
			}
			return &paper.FeedPageResult{Page: 1}, nil
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/papers?scope=magazine&scope_id=mag-1", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Feed(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestPaperHandler_Feed_NonNumericPage(t *testing.T) {
	h := NewPaperHandler(&mockPaperService{
		feedPageFn: func(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, page int) (*paper.FeedPageResult, error) {
			t.Error("FeedPage should not be called for non-numeric page")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/sns/papers?page=abc", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Feed(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPaperHandler_Feed_InvalidPage(t *testing.T) {
	svc := &mockPaperService{
		feedPageFn: func(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, page int) (*paper.FeedPageResult, error) {
			return nil, model.NewInvalidPageError(page)
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/papers?page=0", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Feed(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeInvalidPage {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidPage)
	}
}

func TestPaperHandler_Feed_Unauthorized(t *testing.T) {
	h := NewPaperHandler(&mockPaperService{})

	req := httptest.NewRequest(http.MethodGet, "/sns/papers", nil)
	w := httptest.NewRecorder()

	h.Feed(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- GET /sns/papers/:id テスト ---

func TestPaperHandler_GetPaper_NotFound(t *testing.T) {
	svc := &mockPaperService{
		getPaperFn: func(ctx context.Context, viewerID, paperID string) (*model.PaperWithViewerState, error) {
			return nil, model.NewPaperNotFoundError(paperID)
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/papers/paper-404", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-404")
	w := httptest.NewRecorder()

	h.GetPaper(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- POST /sns/papers テスト ---

func TestPaperHandler_CreatePaper_Success(t *testing.T) {
	svc := &mockPaperService{
		createPaperFn: func(ctx context.Context, authorID string, input paper.CreatePaperInput) (*model.Paper, error) {
			if authorID != "user-123" {
				t.Errorf("authorID = %q, want %q", authorID, "user-123")
			}
			if input.Title != "新しいペーパー" {
				t.Errorf("title = %q, want %q", input.Title, "新しいペーパー")
			}
			if !input.Submit {
				t.Error("submit should be true")
			}
			return &model.Paper{ID: "paper-new", Title: input.Title, Status: model.ReviewStatusPending}, nil
		},
	}

	h := NewPaperHandler(svc)

	body := jsonBody(t, map[string]any{
		"title":     "新しいペーパー",
		"video_url": "/media/ab/abc.mp4",
		"submit":    true,
	})
	req := httptest.NewRequest(http.MethodPost, "/sns/papers", body)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreatePaper(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	result := decodeResult(t, w)
	if result["id"] != "paper-new" {
		t.Errorf("id = %v, want %q", result["id"], "paper-new")
	}
	if result["status"] != string(model.ReviewStatusPending) {
		t.Errorf("status = %v, want %q", result["status"], model.ReviewStatusPending)
	}
}

func TestPaperHandler_CreatePaper_InvalidBody(t *testing.T) {
	h := NewPaperHandler(&mockPaperService{
		createPaperFn: func(ctx context.Context, authorID string, input paper.CreatePaperInput) (*model.Paper, error) {
			t.Error("CreatePaper should not be called for invalid body")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/sns/papers", bytes.NewBufferString("{invalid"))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreatePaper(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /sns/papers/:id/like テスト ---

func TestPaperHandler_SetLike_Changed(t *testing.T) {
	svc := &mockPaperService{
		setLikeFn: func(ctx context.Context, userID, paperID string, liked bool) (bool, error) {
			if paperID != "paper-1" {
				t.Errorf("paperID = %q, want %q", paperID, "paper-1")
			}
			if !liked {
				t.Error("liked should be true")
			}
			return true, nil
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/sns/papers/paper-1/like", jsonBody(t, map[string]bool{"value": true}))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-1")
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

func TestPaperHandler_SetLike_NotChanged(t *testing.T) {
	svc := &mockPaperService{
		setLikeFn: func(ctx context.Context, userID, paperID string, liked bool) (bool, error) {
			return false, nil
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/sns/papers/paper-1/like", jsonBody(t, map[string]bool{"value": true}))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-1")
	w := httptest.NewRecorder()

	h.SetLike(w, req)

	result := decodeResult(t, w)
	if result["changed"] != false {
		t.Errorf("changed = %v, want false", result["changed"])
	}
}

func TestPaperHandler_SetLike_NotPublished(t *testing.T) {
	svc := &mockPaperService{
		setLikeFn: func(ctx context.Context, userID, paperID string, liked bool) (bool, error) {
			return false, model.NewNotPublishedError(paperID)
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/sns/papers/paper-1/like", jsonBody(t, map[string]bool{"value": true}))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-1")
	w := httptest.NewRecorder()

	h.SetLike(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// --- DELETE /sns/papers/:id テスト ---

func TestPaperHandler_DeletePaper_Success(t *testing.T) {
	var deletedID string
	svc := &mockPaperService{
		deletePaperFn: func(ctx context.Context, authorID, paperID string) error {
			deletedID = paperID
			return nil
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/sns/papers/paper-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-1")
	w := httptest.NewRecorder()

	h.DeletePaper(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedID != "paper-1" {
		t.Errorf("deletedID = %q, want %q", deletedID, "paper-1")
	}
}

func TestPaperHandler_DeletePaper_Forbidden(t *testing.T) {
	svc := &mockPaperService{
		deletePaperFn: func(ctx context.Context, authorID, paperID string) error {
			return model.NewForbiddenError()
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/sns/papers/paper-1", nil)
	req = withUserID(req, "user-456")
	req = withChiURLParam(req, "id", "paper-1")
	w := httptest.NewRecorder()

	h.DeletePaper(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// --- POST /sns/papers/:id/play テスト ---

func TestPaperHandler_RecordPlay_Success(t *testing.T) {
	var playedID string
	svc := &mockPaperService{
		recordPlayFn: func(ctx context.Context, paperID string) error {
			playedID = paperID
			return nil
		},
	}

	h := NewPaperHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/sns/papers/paper-1/play", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "paper-1")
	w := httptest.NewRecorder()

	h.RecordPlay(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if playedID != "paper-1" {
		t.Errorf("playedID = %q, want %q", playedID, "paper-1")
	}
}
