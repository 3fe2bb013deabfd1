package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/nao1215/cmsadmin/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore はSQLiteファイルにセッションを保存するStore。
// コンソールを再起動してもセッションが残る。
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore はpathのSQLiteファイルを開き、スキーマを適用する。
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("セッションDBの接続に失敗: %w", err)
	}
	if err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("セッションDBのマイグレーションに失敗: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get はキーの値を返す。
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM session_kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("セッション値 %q の取得に失敗: %w", key, err)
	}
	return value, true, nil
}

// Set はキーに値を保存する。
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("セッション値 %q の保存に失敗: %w", key, err)
	}
	return nil
}

// Delete はキーをまとめて削除する。
func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM session_kv WHERE key = ?", k); err != nil {
			return fmt.Errorf("セッション値 %q の削除に失敗: %w", k, err)
		}
	}
	return tx.Commit()
}
