// Package client はmagfeed APIの型付きクライアントSDKを提供する。
// 全リクエストに認証ヘッダーを付与し、エンベロープ形式のレスポンスを
// デコードしてモデル型へ変換する。401応答を検知するとログアウトフックを
// ちょうど1回だけ発火する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yshimura/magfeed/internal/model"
)

// Client はmagfeed APIクライアント。
type Client struct {
	baseURL    string
	tenantName string
	deviceID   string
	httpClient *http.Client

	mu    sync.RWMutex
	token string

	onLogout   func()
	logoutOnce sync.Once
}

// Option はClientの設定オプション。
type Option func(*Client)

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDeviceID はX-Device-Idヘッダーに載せる端末識別子を設定する。
func WithDeviceID(deviceID string) Option {
	return func(c *Client) { c.deviceID = deviceID }
}

// WithLogoutHook は401応答を検知したときに呼び出すフックを設定する。
// フックはクライアントの生存期間中ちょうど1回だけ発火する。
func WithLogoutHook(fn func()) Option {
	return func(c *Client) { c.onLogout = fn }
}

// WithToken は保存済みのアクセストークンで初期化する（セッション復元用）。
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New はClientを生成する。
func New(baseURL, tenantName string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tenantName: tenantName,
		deviceID:   "unknown",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token は現在のアクセストークンを返す。
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken はアクセストークンを設定する。
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// newRequest は認証ヘッダー付きのリクエストを生成する。
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Device-Id", c.deviceID)
	req.Header.Set("X-Tenant-Name", c.tenantName)
	return req, nil
}

// newJSONRequest はJSONボディ付きのリクエストを生成する。
func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// resultEnvelope はサーバーのエンベロープ形式 {"data":{"result":...}} に対応する。
type resultEnvelope struct {
	Data struct {
		Result json.RawMessage `json:"result"`
	} `json:"data"`
}

// listPayload は一覧レスポンスのペイロード。
type listPayload struct {
	Data    json.RawMessage `json:"data"`
	HasMore bool            `json:"hasmore"`
}

// apiErrorBody はエラーレスポンスのボディ。
type apiErrorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// do はリクエストを送信し、成功レスポンスのresultをoutへデコードする。
// outがnilの場合はボディを読み捨てる。
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("リクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.fireLogout()
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	var envelope resultEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	if err := json.Unmarshal(envelope.Data.Result, out); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	return nil
}

// doList は一覧エンドポイントのレスポンスをデコードし、itemsと続きフラグを返す。
func (c *Client) doList(req *http.Request, items any) (bool, error) {
	var payload listPayload
	if err := c.do(req, &payload); err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload.Data, items); err != nil {
		return false, fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	return payload.HasMore, nil
}

// decodeError はエラーレスポンスをAPIErrorへデコードする。
func (c *Client) decodeError(resp *http.Response) error {
	var body apiErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
		return fmt.Errorf("サーバーエラーが発生しました: status=%d", resp.StatusCode)
	}
	return &model.APIError{
		Code:     body.Code,
		Message:  body.Message,
		Category: body.Category,
		Action:   body.Action,
	}
}

// fireLogout はログアウトフックをちょうど1回だけ発火する。
func (c *Client) fireLogout() {
	c.logoutOnce.Do(func() {
		if c.onLogout != nil {
			c.onLogout()
		}
	})
}
