// Package migration はSQLiteデータベースのマイグレーションを管理する。
// embed.FSからSQLファイルを読み込み、バージョンとチェックサムで適用状態を追跡する。
// 適用済みのファイルが書き換えられていた場合は、何も適用せずにエラーを返す。
package migration

import (
	"cmp"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrChecksumMismatch は適用済みのマイグレーションの内容が変更されたことを表す。
	ErrChecksumMismatch = errors.New("適用済みマイグレーションの内容が変更されています")
	// ErrDuplicateVersion は同じバージョンのマイグレーションが複数あることを表す。
	ErrDuplicateVersion = errors.New("マイグレーションのバージョンが重複しています")
)

// Run はfsys内dirのマイグレーションファイルをバージョン順に適用する。
// 適用済みのものはスキップする。
// ファイル名形式: 000001_description.up.sql
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) error {
	migrations, err := load(fsys, dir)
	if err != nil {
		return fmt.Errorf("マイグレーションファイルの読み込みに失敗: %w", err)
	}

	if err := ensureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}
	applied, err := appliedChecksums(ctx, db)
	if err != nil {
		return fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	for _, m := range migrations {
		if sum, ok := applied[m.version]; ok && sum != m.checksum {
			return fmt.Errorf("%06d_%s: %w", m.version, m.name, ErrChecksumMismatch)
		}
	}

	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}
		if err := m.apply(ctx, db); err != nil {
			return fmt.Errorf("マイグレーション %06d の適用に失敗: %w", m.version, err)
		}
		log.Printf("[Migration] %06d_%s を適用しました", m.version, m.name)
	}
	return nil
}

// migrationFile は読み込み済みの1つのマイグレーション。
type migrationFile struct {
	version  int
	name     string
	sql      string
	checksum string
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

// appliedChecksums は適用済みバージョンとそのチェックサムを返す。
func appliedChecksums(ctx context.Context, db *sql.DB) (map[int]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]string)
	for rows.Next() {
		var (
			v   int
			sum string
		)
		if err := rows.Scan(&v, &sum); err != nil {
			return nil, err
		}
		applied[v] = sum
	}
	return applied, rows.Err()
}

// load はdirのup.sqlファイルを読み込み、バージョン順に並べる。
// 命名規則に合わないファイルは無視する。
func load(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []migrationFile
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if entry.IsDir() || !ok {
			continue
		}
		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s の読み込みに失敗: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(content)
		migrations = append(migrations, migrationFile{
			version:  version,
			name:     rest,
			sql:      string(content),
			checksum: hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(migrations, func(a, b migrationFile) int {
		return cmp.Compare(a.version, b.version)
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version == migrations[i-1].version {
			return nil, fmt.Errorf("%06d (%s, %s): %w",
				migrations[i].version, migrations[i-1].name, migrations[i].name, ErrDuplicateVersion)
		}
	}
	return migrations, nil
}

// apply はマイグレーションをトランザクション内で適用し、チェックサムと共に記録する。
func (m migrationFile) apply(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)",
		m.version, m.name, m.checksum); err != nil {
		return fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	return tx.Commit()
}
