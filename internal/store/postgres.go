package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresBackend struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, dsn string, maxConns int) (*postgresBackend, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Driver() string { return "postgres" }

func (b *postgresBackend) Close() error {
	if b != nil && b.pool != nil {
		b.pool.Close()
	}
	return nil
}

func (b *postgresBackend) Exec(ctx context.Context, query string, args ...any) error {
	return pgxExecer{b.pool}.Exec(ctx, query, args...)
}

func (b *postgresBackend) Query(ctx context.Context, query string, args ...any) (rows, error) {
	return pgxExecer{b.pool}.Query(ctx, query, args...)
}

func (b *postgresBackend) QueryRow(ctx context.Context, query string, args ...any) row {
	return pgxExecer{b.pool}.QueryRow(ctx, query, args...)
}

func (b *postgresBackend) InTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(pgxExecer{tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pgxConn is satisfied by *pgxpool.Pool and pgx.Tx.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxExecer struct {
	conn pgxConn
}

func (e pgxExecer) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.conn.Exec(ctx, rebind(query), args...)
	return err
}

func (e pgxExecer) Query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := e.conn.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (e pgxExecer) QueryRow(ctx context.Context, query string, args ...any) row {
	return pgxRow{e.conn.QueryRow(ctx, rebind(query), args...)}
}

type pgxRow struct {
	r pgx.Row
}

func (r pgxRow) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return errNoRows
	}
	return err
}
