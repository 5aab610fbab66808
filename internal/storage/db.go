package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid document status transition")
)

//go:embed schema.sql
var schemaSQL string

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Migrate creates the documents and chunks tables. embedDim fixes the
// pgvector column width and must match the embedding provider.
func (d *DB) Migrate(ctx context.Context, embedDim int) error {
	if embedDim <= 0 {
		return fmt.Errorf("migrate: embedding dimension must be positive, got %d", embedDim)
	}
	if _, err := d.Pool.Exec(ctx, Schema(embedDim)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func Schema(embedDim int) string {
	return strings.ReplaceAll(schemaSQL, "{{EMBED_DIM}}", strconv.Itoa(embedDim))
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}
