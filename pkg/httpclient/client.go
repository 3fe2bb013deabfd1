package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultTimeout はリクエスト全体のデフォルトタイムアウト。
const defaultTimeout = 30 * time.Second

// ErrCORSBlocked はレスポンスがクロスオリジンを許可していないことを表す。
// メッセージはブラウザが報告するCORSエラーに揃えている。
var ErrCORSBlocked = errors.New("blocked by CORS policy: no 'Access-Control-Allow-Origin' header is present on the requested resource")

// StatusError は2xx以外のレスポンスを表す。
type StatusError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body []byte
}

// Error はエラーメッセージを返す。
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, string(e.Body))
}

// Client はJSON APIを呼び出すHTTPクライアント。
// 並行利用しても安全。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先のベースURL。
	baseURL string
	// origin はCORS検証に使うオリジン。空なら検証しない。
	origin string
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithTimeout はリクエスト全体のタイムアウトを設定する。0で無制限。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithOrigin はOriginヘッダーを付与し、レスポンスのCORSヘッダーを検証する。
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = origin
	}
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先のベースURL（例: "http://localhost:8080"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。bodyがnilならボディなしで送信する。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	var (
		bodyReader  io.Reader
		contentType string
	)
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}
	return c.Do(ctx, http.MethodPost, path, bodyReader, contentType, result)
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodGet, path, nil, "", result)
}

// Do は任意のメソッドとボディでリクエストを送信する。
// 2xx以外は *StatusError を返す。resultがnilの場合はボディを読み捨てる。
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string, result any) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	// コンテキストからBearerトークンを付与する
	if token, ok := ctx.Value(contextKeyToken).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if !c.corsAllowed(resp) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %w", method, url, ErrCORSBlocked)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
	}
	return nil
}

// corsAllowed はレスポンスがoriginからのアクセスを許可しているかを判定する。
func (c *Client) corsAllowed(resp *http.Response) bool {
	if c.origin == "" {
		return true
	}
	allow := resp.Header.Get("Access-Control-Allow-Origin")
	return allow == "*" || allow == c.origin
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyToken はコンテキストにBearerトークンを格納するためのキー。
const contextKeyToken contextKey = "bearer_token"

// WithToken はコンテキストにBearerトークンを設定する。
// 空文字列の場合はAuthorizationヘッダーを付与しない。
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKeyToken, token)
}
