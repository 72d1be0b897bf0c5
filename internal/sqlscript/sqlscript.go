// Package sqlscript loads the downstream SQL directories (silver/gold transforms and data
// quality tests) and executes them against the warehouse.
package sqlscript

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"financeshub/internal/logger"
	"financeshub/internal/pkg/errkind"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	schemaFile = "schema.sql"
	// files containing an anonymous block are executed whole
	plpgsqlBlock = "DO $$"
)

// LoadTests reads every *.sql file of dir in name order. A file containing an anonymous
// block is one statement; other files are split on ';'.
func LoadTests(dir string) ([]string, error) {
	return load(dir, false)
}

// LoadTransforms reads every *.sql file of dir in name order, skipping schema.sql, and splits
// each on ';'.
func LoadTransforms(dir string) ([]string, error) {
	return load(dir, true)
}

// LoadSchema reads the schema.sql of dir, split on ';'. A directory without one yields no
// statements.
func LoadSchema(dir string) ([]string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, schemaFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s schema: %w", dir, err)
	}
	return Split(string(raw)), nil
}

func load(dir string, transforms bool) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(paths)
	var out []string
	for _, p := range paths {
		if transforms && filepath.Base(p) == schemaFile {
			continue
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		sql := string(raw)
		if !transforms && strings.Contains(sql, plpgsqlBlock) {
			if s := strings.TrimSpace(sql); s != "" {
				out = append(out, s)
			}
			continue
		}
		out = append(out, Split(sql)...)
	}
	return out, nil
}

// Split breaks a script on ';' and drops blank statements.
func Split(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Runner struct {
	defaultDSN string
	dialector  func(dsn string) gorm.Dialector
}

// NewRunner builds a runner; dialector defaults to Postgres.
func NewRunner(defaultDSN string, dialector func(dsn string) gorm.Dialector) *Runner {
	if dialector == nil {
		dialector = postgres.Open
	}
	return &Runner{defaultDSN: strings.TrimSpace(defaultDSN), dialector: dialector}
}

// Run executes statements in order inside one transaction and returns how many ran. No
// statements means no connection.
func (r *Runner) Run(ctx context.Context, dsn string, statements []string) (int, error) {
	if len(statements) == 0 {
		return 0, nil
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = r.defaultDSN
	}
	if dsn == "" {
		return 0, errkind.Config("FINANCES_HUB_PG_DSN is not set")
	}
	db, err := gorm.Open(r.dialector(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return 0, fmt.Errorf("connect warehouse: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, stmt := range statements {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Debugf("sqlscript: executed %d statements", len(statements))
	return len(statements), nil
}

// Executor runs a batch of statements against dsn; *Runner is the production one.
type Executor interface {
	Run(ctx context.Context, dsn string, statements []string) (int, error)
}

// RunDir loads dir with load (LoadTests, LoadTransforms or LoadSchema) and hands the
// statements to exec.
func RunDir(ctx context.Context, exec Executor, dsn, dir string, load func(string) ([]string, error)) (int, error) {
	statements, err := load(dir)
	if err != nil {
		return 0, err
	}
	return exec.Run(ctx, dsn, statements)
}
