package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finanzas/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the durable ledger store. All mutations run through WithTx so
// a failed write never leaves a partial balance adjustment behind.
type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Queries returns the read-side query interface, bound to the pool.
func (r *Repository) Queries() *Queries {
	return r.queries
}

// WithTx runs fn inside a single transaction, rolling back on any error.
func (r *Repository) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetOrCreateAccount looks an account up by exact name, creating it with a
// zero balance when absent. Matching is case-sensitive; no normalization
// happens at this layer.
func GetOrCreateAccount(ctx context.Context, q *Queries, name string) (core.Account, error) {
	account, err := q.GetAccountByName(ctx, name)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("get account %q: %w", name, err)
	}
	account, err = q.CreateAccount(ctx, name, 0)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account %q: %w", name, err)
	}
	return account, nil
}

// GetOrCreateCategory resolves an optional category name to an id, creating
// the category lazily. A nil result means no category was given.
func GetOrCreateCategory(ctx context.Context, q *Queries, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	category, err := q.GetCategoryByName(ctx, name)
	if err == nil {
		return &category.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get category %q: %w", name, err)
	}
	category, err = q.CreateCategory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return &category.ID, nil
}

// GetOrCreateTag resolves an optional tag name to an id, creating the tag
// lazily. A nil result means no tag was given.
func GetOrCreateTag(ctx context.Context, q *Queries, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	tag, err := q.GetTagByName(ctx, name)
	if err == nil {
		return &tag.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tag %q: %w", name, err)
	}
	tag, err = q.CreateTag(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create tag %q: %w", name, err)
	}
	return &tag.ID, nil
}
