package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/cmsadmin/pkg/httpclient"
)

// AuthAPI はログイン・ログアウトを行う上流の認証API。
type AuthAPI interface {
	// Login は資格情報を送り、上流の応答を返す。
	// 通信やデコードに失敗した場合のみエラーを返し、認証失敗は Code で表す。
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	// Logout はトークンを失効させる。
	Logout(ctx context.Context, token string) error
	// LogoutWithoutCredential は資格情報を付けずに失効APIを呼ぶ。
	LogoutWithoutCredential(ctx context.Context) error
}

// LoginResponse はログインAPIの応答。Code が0なら成功。
type LoginResponse struct {
	Code int        `json:"code"`
	Msg  string     `json:"msg"`
	Data *LoginData `json:"data"`
}

// LoginData はログイン成功時のデータ部。
type LoginData struct {
	Admin *AdminProfile `json:"admin"`
	Token string        `json:"token"`
}

// AdminProfile は上流が返す管理者情報。
type AdminProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// toUser はセッションに保持するプロフィールに変換する。
// 表示名はニックネーム、無ければユーザー名を使う。
func (a *AdminProfile) toUser() User {
	display := a.Nickname
	if display == "" {
		display = a.Username
	}
	return User{
		ID:          a.ID,
		Username:    a.Username,
		DisplayName: display,
		Role:        a.Role,
		Status:      a.Status,
	}
}

// apiResponse はログアウトAPIの応答。
type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Endpoints は認証APIのパス。
type Endpoints struct {
	Login          string
	Logout         string
	FallbackLogout string
}

// HTTPAuthAPI はゲートウェイ経由で認証APIを呼ぶAuthAPI実装。
type HTTPAuthAPI struct {
	client    *httpclient.Client
	endpoints Endpoints
}

// NewHTTPAuthAPI は新しいHTTPAuthAPIを生成する。
func NewHTTPAuthAPI(client *httpclient.Client, endpoints Endpoints) *HTTPAuthAPI {
	return &HTTPAuthAPI{client: client, endpoints: endpoints}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login はユーザー名とパスワードでログインAPIを呼ぶ。
// 2xx以外でもボディが {code, msg} 形式ならアプリケーションレベルの失敗として返す。
func (a *HTTPAuthAPI) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := a.client.PostJSON(ctx, a.endpoints.Login, loginRequest{Username: username, Password: password}, &resp)

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		var failed LoginResponse
		if json.Unmarshal(statusErr.Body, &failed) == nil && failed.Code != 0 {
			return &failed, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ログインAPIの呼び出しに失敗: %w", err)
	}
	return &resp, nil
}

// Logout はBearerトークン付きでログアウトAPIを呼ぶ。
func (a *HTTPAuthAPI) Logout(ctx context.Context, token string) error {
	return a.postLogout(httpclient.WithToken(ctx, token), a.endpoints.Logout)
}

// LogoutWithoutCredential はAuthorizationヘッダーなしで代替のログアウトAPIを呼ぶ。
func (a *HTTPAuthAPI) LogoutWithoutCredential(ctx context.Context) error {
	return a.postLogout(httpclient.WithToken(ctx, ""), a.endpoints.FallbackLogout)
}

func (a *HTTPAuthAPI) postLogout(ctx context.Context, path string) error {
	var resp apiResponse
	if err := a.client.PostJSON(ctx, path, nil, &resp); err != nil {
		return fmt.Errorf("ログアウトAPI %s の呼び出しに失敗: %w", path, err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("ログアウトAPI %s が失敗を返した: code=%d, msg=%s", path, resp.Code, resp.Msg)
	}
	return nil
}
