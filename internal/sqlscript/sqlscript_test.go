package sqlscript

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"financeshub/internal/pkg/errkind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadTests_OrderAndBlocks(t *testing.T) {
	block := "DO $$\nBEGIN\n  IF (SELECT count(*) FROM gold.prices) = 0 THEN RAISE EXCEPTION 'empty'; END IF;\nEND $$;\n"
	dir := writeFiles(t, map[string]string{
		"02_block.sql": block,
		"01_split.sql": "SELECT 1;\n\n SELECT 2 ;;",
		"notes.txt":    "SELECT 3;",
	})
	stmts, err := LoadTests(dir)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "SELECT 1", stmts[0])
	assert.Equal(t, "SELECT 2", stmts[1])
	assert.Contains(t, stmts[2], "RAISE EXCEPTION 'empty'; END IF;")
}

func TestLoadTransforms_SkipsSchema(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.sql":     "CREATE SCHEMA gold;",
		"10_prices.sql":  "INSERT INTO a SELECT 1; INSERT INTO b SELECT 2;",
		"20_returns.sql": "INSERT INTO c SELECT 3;",
	})
	stmts, err := LoadTransforms(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"INSERT INTO a SELECT 1", "INSERT INTO b SELECT 2", "INSERT INTO c SELECT 3"}, stmts)
}

func TestLoadSchema(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.sql":    "CREATE SCHEMA IF NOT EXISTS gold;\nCREATE TABLE gold.t (id int);\n",
		"10_prices.sql": "INSERT INTO a SELECT 1;",
	})
	stmts, err := LoadSchema(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"CREATE SCHEMA IF NOT EXISTS gold", "CREATE TABLE gold.t (id int)"}, stmts)

	stmts, err = LoadSchema(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	stmts, err := LoadTests(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestRun_Transactional(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "wh.db")
	r := NewRunner("", sqlite.Open)

	n, err := r.Run(context.Background(), dsn, []string{
		"CREATE TABLE prices (day TEXT, value REAL)",
		"INSERT INTO prices VALUES ('2024-01-01', 1.5)",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = r.Run(context.Background(), dsn, []string{
		"INSERT INTO prices VALUES ('2024-01-02', 2.5)",
		"INSERT INTO missing VALUES (1)",
	})
	require.Error(t, err)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Table("prices").Count(&count).Error)
	assert.EqualValues(t, 1, count)
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
}

func TestRun_EmptyAndMissingDSN(t *testing.T) {
	r := NewRunner("", nil)
	n, err := r.Run(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.Run(context.Background(), "", []string{"SELECT 1"})
	assert.ErrorIs(t, err, errkind.ErrConfig)
}

func TestRunDir_LoadsThenRuns(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.sql":    "CREATE TABLE prices (day TEXT, value REAL);",
		"10_prices.sql": "INSERT INTO prices VALUES ('2024-01-02', 1.5); INSERT INTO prices VALUES ('2024-01-03', 2.5);",
	})
	dsn := filepath.Join(t.TempDir(), "wh.db")
	r := NewRunner(dsn, sqlite.Open)

	n, err := RunDir(context.Background(), r, "", dir, LoadSchema)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = RunDir(context.Background(), r, "", dir, LoadTransforms)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = RunDir(context.Background(), r, "", filepath.Join(dir, "missing.sql"), func(string) ([]string, error) {
		return nil, errkind.Config("unreadable")
	})
	assert.ErrorIs(t, err, errkind.ErrConfig)
}
