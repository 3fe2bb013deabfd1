package devupstream

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/nao1215/cmsadmin/pkg/migration"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// 管理者アカウントの状態。
const (
	statusActive   = "active"
	statusDisabled = "disabled"
)

// admin は admins テーブルの1行。
type admin struct {
	ID           int64
	Username     string
	PasswordHash string
	Nickname     string
	Role         string
	Status       string
}

// errAdminNotFound は該当する管理者が存在しないことを表す。
var errAdminNotFound = errors.New("管理者が見つかりません")

// openDB はpathのSQLiteを開いてマイグレーションを適用する。
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return db, nil
}

// seedAdmin は管理者が存在しなければbcryptでハッシュ化したパスワードで作成する。
func seedAdmin(ctx context.Context, db *sql.DB, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	_, err = db.ExecContext(ctx,
		"INSERT OR IGNORE INTO admins (username, password_hash, role, status) VALUES (?, ?, ?, ?)",
		username, string(hash), role, statusActive)
	if err != nil {
		return fmt.Errorf("管理者 %q の作成に失敗: %w", username, err)
	}
	return nil
}

// findAdminByUsername はユーザー名で管理者を取得する。
func findAdminByUsername(ctx context.Context, db *sql.DB, username string) (admin, error) {
	var a admin
	err := db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, nickname, role, status FROM admins WHERE username = ?",
		username).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Nickname, &a.Role, &a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return admin{}, errAdminNotFound
	}
	if err != nil {
		return admin{}, fmt.Errorf("管理者の取得に失敗: %w", err)
	}
	return a, nil
}

// findAdminByID はIDで管理者を取得する。
func findAdminByID(ctx context.Context, db *sql.DB, id string) (admin, error) {
	var a admin
	err := db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, nickname, role, status FROM admins WHERE id = ?",
		id).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Nickname, &a.Role, &a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return admin{}, errAdminNotFound
	}
	if err != nil {
		return admin{}, fmt.Errorf("管理者の取得に失敗: %w", err)
	}
	return a, nil
}

// revokeToken はトークンIDを失効済みにする。同じIDの再失効はエラーにしない。
func revokeToken(ctx context.Context, db *sql.DB, tokenID, adminID string) error {
	_, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO revoked_tokens (token_id, admin_id) VALUES (?, ?)", tokenID, adminID)
	if err != nil {
		return fmt.Errorf("トークンの失効に失敗: %w", err)
	}
	return nil
}

// isRevoked はトークンIDが失効済みかを返す。
func isRevoked(ctx context.Context, db *sql.DB, tokenID string) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ?", tokenID).Scan(&n); err != nil {
		return false, fmt.Errorf("失効状態の取得に失敗: %w", err)
	}
	return n > 0, nil
}
