package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/yshimura/magfeed/internal/model"
)

// Signup は新規ユーザーを登録し、取得したトークンをクライアントに保存する。
func (c *Client) Signup(ctx context.Context, email, password, nickname string) (*model.User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/passport/signup", map[string]string{
		"email":    email,
		"password": password,
		"nickname": nickname,
	})
	if err != nil {
		return nil, err
	}
	var payload authPayload
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	c.SetToken(payload.Token)
	return userFromPayload(payload.User), nil
}

// Login はログインし、取得したトークンをクライアントに保存する。
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/passport/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var payload authPayload
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	c.SetToken(payload.Token)
	return userFromPayload(payload.User), nil
}

// Logout はサーバー側のセッションを失効させ、保存しているトークンを破棄する。冪等。
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/passport/logout", nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func userFromPayload(p userPayload) *model.User {
	return &model.User{
		ID:        p.ID,
		Email:     p.Email,
		Nickname:  p.Nickname,
		AvatarURL: p.AvatarURL,
		Signature: p.Signature,
	}
}

// FeedPage はフィードの1ページを取得する。pageは1始まり。
func (c *Client) FeedPage(ctx context.Context, scope model.FeedScope, scopeID string, page int) ([]model.PaperWithViewerState, bool, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if scope != "" {
		query.Set("scope", string(scope))
	}
	if scopeID != "" {
		query.Set("scope_id", scopeID)
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/sns/papers?"+query.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	var payloads []paperPayload
	hasMore, err := c.doList(req, &payloads)
	if err != nil {
		return nil, false, err
	}
	return toPapers(payloads), hasMore, nil
}

// GetPaper はペーパーを1件取得する。
func (c *Client) GetPaper(ctx context.Context, paperID string) (model.PaperWithViewerState, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/sns/papers/"+url.PathEscape(paperID), nil)
	if err != nil {
		return model.PaperWithViewerState{}, err
	}
	var payload paperPayload
	if err := c.do(req, &payload); err != nil {
		return model.PaperWithViewerState{}, err
	}
	return payload.toModel(), nil
}

// setPaperValue はペーパーに対する冪等な状態設定操作の共通処理。
func (c *Client) setPaperValue(ctx context.Context, paperID, op string, value bool) (bool, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut,
		"/sns/papers/"+url.PathEscape(paperID)+"/"+op, map[string]bool{"value": value})
	if err != nil {
		return false, err
	}
	var payload changedPayload
	if err := c.do(req, &payload); err != nil {
		return false, err
	}
	return payload.Changed, nil
}

// SetLike はペーパーのいいね状態を設定する。
// 実際に状態が変化した場合にtrueを返す。
func (c *Client) SetLike(ctx context.Context, paperID string, value bool) (bool, error) {
	return c.setPaperValue(ctx, paperID, "like", value)
}

// SetStar はペーパーのスター状態を設定する。
func (c *Client) SetStar(ctx context.Context, paperID string, value bool) (bool, error) {
	return c.setPaperValue(ctx, paperID, "star", value)
}

// SetTop はペーパーのピン留めフラグを設定する（投稿者のみ）。
func (c *Client) SetTop(ctx context.Context, paperID string, value bool) error {
	req, err := c.newJSONRequest(ctx, http.MethodPut,
		"/sns/papers/"+url.PathEscape(paperID)+"/top", map[string]bool{"value": value})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// SetHidden はペーパーの非表示フラグを設定する（投稿者のみ）。
func (c *Client) SetHidden(ctx context.Context, paperID string, value bool) error {
	req, err := c.newJSONRequest(ctx, http.MethodPut,
		"/sns/papers/"+url.PathEscape(paperID)+"/hidden", map[string]bool{"value": value})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// DeletePaper はペーパーを削除する（投稿者のみ）。
func (c *Client) DeletePaper(ctx context.Context, paperID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/sns/papers/"+url.PathEscape(paperID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// RecordPlay は再生イベントを記録する。
func (c *Client) RecordPlay(ctx context.Context, paperID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/sns/papers/"+url.PathEscape(paperID)+"/play", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListComments はペーパー直下のコメント一覧を取得する。pageは1始まり。
func (c *Client) ListComments(ctx context.Context, paperID string, page int) ([]model.CommentWithViewerState, bool, error) {
	path := "/sns/papers/" + url.PathEscape(paperID) + "/comments?page=" + strconv.Itoa(page)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, false, err
	}
	var payloads []commentPayload
	hasMore, err := c.doList(req, &payloads)
	if err != nil {
		return nil, false, err
	}
	return toComments(payloads), hasMore, nil
}

// ListReplies はコメントへの返信一覧を取得する。pageは1始まり。
func (c *Client) ListReplies(ctx context.Context, commentID string, page int) ([]model.CommentWithViewerState, bool, error) {
	path := "/sns/comments/" + url.PathEscape(commentID) + "/replies?page=" + strconv.Itoa(page)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, false, err
	}
	var payloads []commentPayload
	hasMore, err := c.doList(req, &payloads)
	if err != nil {
		return nil, false, err
	}
	return toComments(payloads), hasMore, nil
}

// AddComment はペーパーにコメントを投稿する。parentIDが空でない場合は返信になる。
func (c *Client) AddComment(ctx context.Context, paperID, parentID, body string) (model.CommentWithViewerState, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost,
		"/sns/papers/"+url.PathEscape(paperID)+"/comments", map[string]string{
			"body":      body,
			"parent_id": parentID,
		})
	if err != nil {
		return model.CommentWithViewerState{}, err
	}
	var payload commentPayload
	if err := c.do(req, &payload); err != nil {
		return model.CommentWithViewerState{}, err
	}
	return payload.toModel(), nil
}

// SetCommentLike はコメントのいいね状態を設定する。
func (c *Client) SetCommentLike(ctx context.Context, commentID string, value bool) (bool, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut,
		"/sns/comments/"+url.PathEscape(commentID)+"/like", map[string]bool{"value": value})
	if err != nil {
		return false, err
	}
	var payload changedPayload
	if err := c.do(req, &payload); err != nil {
		return false, err
	}
	return payload.Changed, nil
}

// DeleteComment はコメントを削除する（投稿者のみ）。
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/sns/comments/"+url.PathEscape(commentID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListRecommendedMagazines はおすすめマガジン一覧を取得する。
func (c *Client) ListRecommendedMagazines(ctx context.Context, page int) ([]model.MagazineWithViewerState, bool, error) {
	return c.listMagazines(ctx, "/sns/magazines/recommended?page="+strconv.Itoa(page))
}

// ListSubscribedMagazines は購読中マガジン一覧を取得する。
func (c *Client) ListSubscribedMagazines(ctx context.Context, page int) ([]model.MagazineWithViewerState, bool, error) {
	return c.listMagazines(ctx, "/sns/magazines/subscribed?page="+strconv.Itoa(page))
}

// ListMagazinesByAuthor は投稿者のマガジン一覧を取得する。
func (c *Client) ListMagazinesByAuthor(ctx context.Context, authorID string, page int) ([]model.MagazineWithViewerState, bool, error) {
	return c.listMagazines(ctx, "/sns/users/"+url.PathEscape(authorID)+"/magazines?page="+strconv.Itoa(page))
}

func (c *Client) listMagazines(ctx context.Context, path string) ([]model.MagazineWithViewerState, bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, false, err
	}
	var payloads []magazinePayload
	hasMore, err := c.doList(req, &payloads)
	if err != nil {
		return nil, false, err
	}
	return toMagazines(payloads), hasMore, nil
}

// GetMagazine はマガジンを1件取得する。
func (c *Client) GetMagazine(ctx context.Context, magazineID string) (model.MagazineWithViewerState, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/sns/magazines/"+url.PathEscape(magazineID), nil)
	if err != nil {
		return model.MagazineWithViewerState{}, err
	}
	var payload magazinePayload
	if err := c.do(req, &payload); err != nil {
		return model.MagazineWithViewerState{}, err
	}
	return payload.toModel(), nil
}

// SetSubscribed はマガジンの購読状態を設定する。
func (c *Client) SetSubscribed(ctx context.Context, magazineID string, value bool) (bool, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut,
		"/sns/magazines/"+url.PathEscape(magazineID)+"/subscribe", map[string]bool{"value": value})
	if err != nil {
		return false, err
	}
	var payload changedPayload
	if err := c.do(req, &payload); err != nil {
		return false, err
	}
	return payload.Changed, nil
}

// GetProfile はユーザープロフィールを取得する。userIDに"me"を指定すると自分自身。
func (c *Client) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/sns/users/"+url.PathEscape(userID)+"/profile", nil)
	if err != nil {
		return nil, err
	}
	var payload profilePayload
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	return payload.toModel(), nil
}

// SetFollow はユーザーのフォロー状態を設定する。
func (c *Client) SetFollow(ctx context.Context, userID string, value bool) (bool, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut,
		"/sns/users/"+url.PathEscape(userID)+"/follow", map[string]bool{"value": value})
	if err != nil {
		return false, err
	}
	var payload changedPayload
	if err := c.do(req, &payload); err != nil {
		return false, err
	}
	return payload.Changed, nil
}

// Upload はメディアファイルをアップロードする。
// ボディはストリーミングされ、ctxのキャンセルで送信を中断できる。
func (c *Client) Upload(ctx context.Context, filename, contentType string, data io.Reader) (*UploadResult, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, data); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/sns/uploads", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportRemote はリモートURLからメディアを取り込む。
func (c *Client) ImportRemote(ctx context.Context, mediaURL string) (*UploadResult, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/sns/uploads/remote", map[string]string{"url": mediaURL})
	if err != nil {
		return nil, err
	}
	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
