package repositories

import (
	"commute-area-service/internal/platform/db"
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
)

// schemaTypes holds the column types that differ between dialects.
type schemaTypes struct {
	blob  string
	float string
}

func typesFor(dialect db.Dialect) schemaTypes {
	if dialect == db.Postgres {
		return schemaTypes{blob: "BYTEA", float: "DOUBLE PRECISION"}
	}
	return schemaTypes{blob: "BLOB", float: "REAL"}
}

// InitSchema creates the key-value store and cache tables when missing.
func InitSchema(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
	if conn == nil {
		return eris.New("init schema: DB is nil")
	}

	t := typesFor(dialect)

	createKVStoreQuery := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value ` + t.blob + ` NOT NULL,
		updated_at BIGINT NOT NULL
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		query TEXT PRIMARY KEY,
		lat ` + t.float + ` NOT NULL,
		lng ` + t.float + ` NOT NULL
	);
	`

	createIsochroneCacheQuery := `
	CREATE TABLE IF NOT EXISTS isochrone_cache (
		cache_key TEXT PRIMARY KEY,
		geojson ` + t.blob + ` NOT NULL,
		created_at BIGINT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_isochrone_cache_created_at
	ON isochrone_cache(created_at);
	`

	statements := []string{
		createKVStoreQuery,
		createGeocodeCacheQuery,
		createIsochroneCacheQuery,
		createIndexQuery,
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "init schema: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "init schema: exec statement #%d", i+1)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "init schema: commit tx")
	}

	return nil
}
