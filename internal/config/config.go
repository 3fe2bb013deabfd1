package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Gateway はAPIプロキシゲートウェイの設定。
type Gateway struct {
	// Port はリッスンポート。
	Port string `env:"PORT" envDefault:"8080"`
	// UpstreamURL は全リクエストの転送先となる固定のオリジン。
	UpstreamURL string `env:"UPSTREAM_URL" envDefault:"http://localhost:8090"`
	// UpstreamTimeout は上流呼び出しのタイムアウト。0で無制限。
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	// AllowedOrigins はCORSで許可するオリジン。"*" で全オリジンを許可する。
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	// MaxMultipartMemory はマルチパートのデコード時にメモリへ保持する最大バイト数。
	MaxMultipartMemory int64 `env:"MAX_MULTIPART_MEMORY" envDefault:"52428800"`
}

// Console は管理コンソール（cmsctl）の設定。
type Console struct {
	// GatewayURL はゲートウェイのベースURL。
	GatewayURL string `env:"GATEWAY_URL" envDefault:"http://localhost:8080"`
	// SessionDB はセッションを永続化するSQLiteファイルのパス。空ならメモリに保持する。
	SessionDB string `env:"SESSION_DB" envDefault:"cmsctl-session.db"`
	// Origin はブラウザ同様のCORS検証に使うオリジン。空なら検証しない。
	Origin string `env:"CMS_ORIGIN"`
	// LoginPath はログインAPIのパス。
	LoginPath string `env:"LOGIN_PATH" envDefault:"/api/admin/login"`
	// LogoutPath はトークン付きログアウトAPIのパス。
	LogoutPath string `env:"LOGOUT_PATH" envDefault:"/api/admin/logout"`
	// FallbackLogoutPath は資格情報なしのログアウトAPIのパス。
	FallbackLogoutPath string `env:"LOGOUT_FALLBACK_PATH" envDefault:"/api/admin/logout/fallback"`
	// Timeout はAPI呼び出しのタイムアウト。
	Timeout time.Duration `env:"CMS_TIMEOUT" envDefault:"30s"`
}

// DevUpstream は開発用上流サーバーの設定。
type DevUpstream struct {
	// Port はリッスンポート。
	Port string `env:"PORT" envDefault:"8090"`
	// DBPath はSQLiteデータベースのパス。
	DBPath string `env:"DEV_DB_PATH" envDefault:"devupstream.db"`
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-key"`
	// AdminUsername は起動時に投入する管理者のユーザー名。
	AdminUsername string `env:"DEV_ADMIN_USERNAME" envDefault:"admin"`
	// AdminPassword は起動時に投入する管理者のパスワード。
	AdminPassword string `env:"DEV_ADMIN_PASSWORD" envDefault:"admin123"`
}

// Load は .env を読み込んだうえで環境変数を T にパースする。
func Load[T any]() (T, error) {
	var zero T
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zero, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}
	cfg, err := env.ParseAs[T]()
	if err != nil {
		return zero, fmt.Errorf("環境変数のパースに失敗: %w", err)
	}
	return cfg, nil
}
