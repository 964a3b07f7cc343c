package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"edgarfeed/internal/config"
	"edgarfeed/internal/filing"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/services"
)

// Store is the structured-store surface the pipeline consumes. Ingestion
// only upserts; reconstruction only loads.
type Store interface {
	UpsertFiling(ctx context.Context, f *filing.Filing) error
	LoadFiling(ctx context.Context, accession string) (*filing.Filing, error)
	Close() error
}

// DB is a Store backed by SQLite or PostgreSQL.
type DB struct {
	b      backend
	logger *slog.Logger
}

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*DB, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", "config is nil", nil)
	}
	logger = logging.NewComponentLogger(logger, "store")

	var (
		b   backend
		err error
	)
	switch strings.ToLower(cfg.Store.Driver) {
	case config.StoreDriverPostgres:
		b, err = openPostgres(ctx, cfg.Store.DSN, cfg.Store.MaxConns)
	case config.StoreDriverSQLite, "":
		b, err = openSQLite(cfg.SQLitePath())
	default:
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", fmt.Sprintf("unsupported driver %q", cfg.Store.Driver), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "open", cfg.Store.Driver, err)
	}
	if err := applyMigrations(ctx, b); err != nil {
		_ = b.Close()
		return nil, services.Wrap(services.ErrStore, "store", "migrate", b.Driver(), err)
	}
	logger.Debug("store opened", logging.String("driver", b.Driver()))
	return &DB{b: b, logger: logger}, nil
}

// Driver names the active backend.
func (d *DB) Driver() string {
	if d == nil || d.b == nil {
		return ""
	}
	return d.b.Driver()
}

// Close releases the underlying connections.
func (d *DB) Close() error {
	if d == nil || d.b == nil {
		return nil
	}
	return d.b.Close()
}

// RowCounts reports the number of rows per table for one accession.
func (d *DB) RowCounts(ctx context.Context, accession string) (map[string]int, error) {
	counts := make(map[string]int, len(childTables)+1)
	for _, table := range append([]string{"submissions"}, childTables...) {
		var n int
		if err := d.b.QueryRow(ctx, "SELECT COUNT(1) FROM "+table+" WHERE accession = ?", accession).Scan(&n); err != nil {
			return nil, services.Wrap(services.ErrStore, "store", "count", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

var childTables = []string{"entities", "former_names", "series", "class_contracts", "mergers", "documents"}
