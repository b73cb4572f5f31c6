package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/hitoshi/workboard/internal/database"
	"github.com/hitoshi/workboard/internal/model"
)

// newTestDB はテストごとに一時ディレクトリのSQLiteデータベースを作成し、
// 本番と同じマイグレーションを適用して返す。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := database.SQLiteURL(filepath.Join(t.TempDir(), "workboard.db"))
	if err := database.RunMigrations(url); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	db, err := database.Open(url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func mustCreateTag(t *testing.T, repo *SQLTagRepo, name string) int64 {
	t.Helper()
	_, id, err := repo.Create(context.Background(), model.TagCreate{Name: name})
	if err != nil {
		t.Fatalf("create tag %q: %v", name, err)
	}
	return id
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func int64p(v int64) *int64 {
	return &v
}
