package console

import (
	"context"
	"fmt"
	"io"

	"github.com/nao1215/cmsadmin/internal/config"
	"github.com/nao1215/cmsadmin/internal/session"
	"github.com/nao1215/cmsadmin/pkg/httpclient"
)

// MessageLoggedOut はログアウト完了時に表示するメッセージ。
const MessageLoggedOut = "ログアウトしました。再度ログインしてください"

// App はコマンド間で共有する依存関係。
type App struct {
	// Session はセッションマネージャー。
	Session *session.Manager
	// Client はゲートウェイへのHTTPクライアント。
	Client *httpclient.Client

	closeStore func() error
}

// NewApp は設定からAppを生成し、保存済みセッションを復元する。
// SessionDB が空の場合はセッションをメモリにのみ保持する。
// ログアウト完了時の案内は out に書き出す。
func NewApp(ctx context.Context, cfg config.Console, out io.Writer) (*App, error) {
	opts := []httpclient.Option{httpclient.WithTimeout(cfg.Timeout)}
	if cfg.Origin != "" {
		opts = append(opts, httpclient.WithOrigin(cfg.Origin))
	}
	client := httpclient.New(cfg.GatewayURL, opts...)

	var (
		store      session.Store
		closeStore = func() error { return nil }
	)
	if cfg.SessionDB == "" {
		store = session.NewMemoryStore()
	} else {
		sqliteStore, err := session.OpenSQLiteStore(ctx, cfg.SessionDB)
		if err != nil {
			return nil, fmt.Errorf("セッションストアの初期化に失敗: %w", err)
		}
		store = sqliteStore
		closeStore = sqliteStore.Close
	}

	api := session.NewHTTPAuthAPI(client, session.Endpoints{
		Login:          cfg.LoginPath,
		Logout:         cfg.LogoutPath,
		FallbackLogout: cfg.FallbackLogoutPath,
	})
	manager := session.NewManager(store, api, session.WithRedirect(func() {
		fmt.Fprintln(out, MessageLoggedOut)
	}))
	manager.Bootstrap(ctx)

	return &App{
		Session:    manager,
		Client:     client,
		closeStore: closeStore,
	}, nil
}

// Close はセッションストアを閉じる。
func (a *App) Close() error {
	return a.closeStore()
}
