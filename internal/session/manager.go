package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/nao1215/cmsadmin/pkg/httpclient"
)

// Manager はセッションのライフサイクルを管理する。
// アプリケーション起動時に1つだけ生成し、必要なコンポーネントへ参照で渡す。
type Manager struct {
	store    Store
	api      AuthAPI
	redirect func()

	bootOnce sync.Once
	ready    chan struct{}

	mu            sync.RWMutex
	user          *User
	token         string
	authenticated bool
	loading       bool
	// logoutsInFlight は実行中のログアウト数。並行ログアウトは直列化しない。
	logoutsInFlight int
}

// Option はManagerの設定を変更する関数。
type Option func(*Manager)

// WithRedirect はログアウト完了時に呼ぶログイン画面への遷移処理を設定する。
func WithRedirect(fn func()) Option {
	return func(m *Manager) {
		m.redirect = fn
	}
}

// NewManager は復元前（Loading）状態のManagerを生成する。
// 永続化データの復元は Bootstrap で行う。
func NewManager(store Store, api AuthAPI, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		api:     api,
		ready:   make(chan struct{}),
		loading: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bootstrap は永続化ストアからセッションを復元する。
// 何度呼んでも復元は1度だけ実行され、並行呼び出しは完了まで待つ。
// ネットワーク呼び出しは行わない。
func (m *Manager) Bootstrap(ctx context.Context) {
	m.bootOnce.Do(func() {
		defer close(m.ready)

		user, token, err := m.readPersisted(ctx)
		if err != nil {
			log.Printf("[Session] セッションの復元に失敗したため破棄します: %v", err)
			m.clearPersisted(ctx)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.loading = false
		if err != nil || user == nil {
			return
		}
		m.user = user
		m.token = token
		m.authenticated = true
	})
}

// Ready は復元が完了すると閉じられるチャネルを返す。
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// readPersisted は永続化データを読み出す。何も保存されていなければnilを返す。
// フラグ・プロフィール・トークンが揃っていない場合はエラーにする。
func (m *Manager) readPersisted(ctx context.Context) (*User, string, error) {
	flag, hasFlag, err := m.store.Get(ctx, keyAuthenticated)
	if err != nil {
		return nil, "", err
	}
	userJSON, hasUser, err := m.store.Get(ctx, keyUser)
	if err != nil {
		return nil, "", err
	}
	token, hasToken, err := m.store.Get(ctx, keyToken)
	if err != nil {
		return nil, "", err
	}

	if !hasFlag && !hasUser && !hasToken {
		return nil, "", nil
	}
	if flag != authenticatedFlag || !hasUser || token == "" {
		return nil, "", errInconsistentSession
	}

	var user *User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, "", fmt.Errorf("プロフィールのデコードに失敗: %w", err)
	}
	// "null" や識別子の欠けたプロフィールは復元しない
	if !user.valid() {
		return nil, "", errInconsistentSession
	}
	return user, token, nil
}

// Login は資格情報でログインする。
// 成功時はトークンとプロフィールを永続化してから認証済みに遷移する。
// 失敗時は永続化データを変更せず、表示用メッセージを返す。
func (m *Manager) Login(ctx context.Context, username, password string) (result LoginResult) {
	m.Bootstrap(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Session] ログイン中に予期しないエラー: %v", r)
			result = loginFailure(MessageTryAgainLater)
		}
	}()

	if strings.TrimSpace(username) == "" || password == "" {
		return loginFailure(MessageCredentialsRequired)
	}

	resp, err := m.api.Login(ctx, username, password)
	if err != nil {
		log.Printf("[Session] ログインに失敗: user=%s error=%v", username, err)
		return loginFailure(MessageTryAgainLater)
	}
	if resp.Code != 0 {
		if resp.Msg == "" {
			return loginFailure(MessageLoginFailed)
		}
		return loginFailure(resp.Msg)
	}
	if resp.Data == nil || resp.Data.Admin == nil || resp.Data.Token == "" {
		log.Printf("[Session] ログイン応答にトークンまたはプロフィールがありません: user=%s", username)
		return loginFailure(MessageTryAgainLater)
	}

	user := resp.Data.Admin.toUser()
	token := resp.Data.Token
	if !user.valid() {
		log.Printf("[Session] ログイン応答のプロフィールにIDまたはユーザー名がありません: user=%s", username)
		return loginFailure(MessageTryAgainLater)
	}
	if err := m.persist(ctx, user, token); err != nil {
		log.Printf("[Session] セッションの永続化に失敗: %v", err)
		m.clearPersisted(ctx)
		m.clearMemory()
		return loginFailure(MessageTryAgainLater)
	}

	m.mu.Lock()
	m.user = &user
	m.token = token
	m.authenticated = true
	m.mu.Unlock()

	return LoginResult{Success: true}
}

// persist はトークン、プロフィール、フラグの順に保存する。
// フラグを最後に書くため、途中で失敗した場合は復元時に不整合として破棄される。
func (m *Manager) persist(ctx context.Context, user User, token string) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("プロフィールのシリアライズに失敗: %w", err)
	}
	if err := m.store.Set(ctx, keyToken, token); err != nil {
		return err
	}
	if err := m.store.Set(ctx, keyUser, string(userJSON)); err != nil {
		return err
	}
	return m.store.Set(ctx, keyAuthenticated, authenticatedFlag)
}

// Logout はセッションを終了する。
// 上流での失効はベストエフォートで、結果によらずローカルのセッション削除と
// リダイレクトを必ず1度実行する。
func (m *Manager) Logout(ctx context.Context) {
	m.Bootstrap(ctx)

	m.mu.Lock()
	m.logoutsInFlight++
	token := m.token
	m.mu.Unlock()

	defer m.finishLogout(ctx)

	// トークンが無ければ失効させるものが無いため上流は呼ばない。後始末はdeferで必ず行う。
	if token == "" {
		return
	}
	err := m.api.Logout(ctx, token)
	if err == nil {
		return
	}
	if !IsCORSError(err) {
		log.Printf("[Session] ログアウトAPIの呼び出しに失敗: %v", err)
		return
	}

	log.Printf("[Session] ログアウトAPIがCORSで遮断されたため代替APIを呼びます: %v", err)
	if err := m.api.LogoutWithoutCredential(ctx); err != nil {
		log.Printf("[Session] 代替ログアウトAPIの呼び出しに失敗: %v", err)
	}
}

// finishLogout はログアウトの後始末。deferで呼ぶ。
func (m *Manager) finishLogout(ctx context.Context) {
	if r := recover(); r != nil {
		log.Printf("[Session] ログアウト中に予期しないエラー: %v", r)
	}

	// 呼び出し元のキャンセルでローカル削除が止まらないようにする
	m.clearPersisted(context.WithoutCancel(ctx))

	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.authenticated = false
	m.logoutsInFlight--
	m.mu.Unlock()

	if m.redirect != nil {
		m.redirect()
	}
}

func (m *Manager) clearPersisted(ctx context.Context) {
	if err := m.store.Delete(ctx, keyAuthenticated, keyUser, keyToken); err != nil {
		log.Printf("[Session] 永続化セッションの削除に失敗: %v", err)
	}
}

func (m *Manager) clearMemory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	m.token = ""
	m.authenticated = false
}

// State は現在のセッションのスナップショットを返す。
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := State{
		IsAuthenticated: m.authenticated,
		Loading:         m.loading,
		LogoutLoading:   m.logoutsInFlight > 0,
	}
	if m.user != nil {
		u := *m.user
		st.User = &u
	}
	return st
}

// Token は現在のBearerトークンを返す。未認証なら空文字列。
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// AuthorizedContext は現在のトークンを付与したコンテキストを返す。
// 未認証の場合は ErrNotAuthenticated を返す。
func (m *Manager) AuthorizedContext(ctx context.Context) (context.Context, error) {
	token := m.Token()
	if token == "" {
		return ctx, ErrNotAuthenticated
	}
	return httpclient.WithToken(ctx, token), nil
}
