package sqlitemigrate

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query).Scan(&n))
	return n
}

func TestApplyRunsFilesOnce(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	logger := zerolog.New(io.Discard)

	fsys := fstest.MapFS{
		"0002_more.sql":   {Data: []byte("-- +migrate Up\nALTER TABLE items ADD COLUMN label TEXT;\n-- +migrate Down\nSELECT 1;")},
		"0001_create.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;")},
		"README.md":       {Data: []byte("not a migration")},
	}

	n, err := Apply(ctx, db, fsys, "", logger)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM schema_migrations"))

	_, err = db.Exec("INSERT INTO items (id, label) VALUES ('a', 'b')")
	require.NoError(t, err)

	n, err = Apply(ctx, db, fsys, ".", logger)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM items"), "down section must never run")
}

func TestApplyLeavesFailedMigrationUnrecorded(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	logger := zerolog.New(io.Discard)

	bad := fstest.MapFS{"0001_bad.sql": {Data: []byte("CREAT TABLE things(id INT);")}}
	_, err := Apply(ctx, db, bad, "", logger)
	require.Error(t, err)
	assert.Zero(t, count(t, db, "SELECT COUNT(*) FROM schema_migrations"))

	fixed := fstest.MapFS{"0001_bad.sql": {Data: []byte("CREATE TABLE things(id INT);")}}
	n, err := Apply(ctx, db, fixed, "", logger)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExtractUp(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no markers", "CREATE TABLE a(x);", "CREATE TABLE a(x);"},
		{"up only", "-- +migrate Up\nCREATE TABLE a(x);", "\nCREATE TABLE a(x);"},
		{"up and down", "-- +migrate Up\nCREATE TABLE a(x);\n-- +migrate Down\nDROP TABLE a;", "\nCREATE TABLE a(x);\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractUp(tt.content); got != tt.want {
				t.Errorf("ExtractUp() = %q, want %q", got, tt.want)
			}
		})
	}
}
