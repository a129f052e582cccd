package cache

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/platform/db"
	"commute-area-service/internal/platform/obs"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// SQLGeocodeCache is a SQL-backed cache mapping query text to coordinates.
// Query keys are expected to be normalized by the caller.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLGeocodeCache(conn *sql.DB, dialect db.Dialect) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: conn, Dialect: dialect}
}

// Fetch cached coordinates for the given queries.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	queries []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, eris.New("geocode cache: db is nil")
	}

	uniq := dedupe(queries)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	ph := make([]string, len(uniq))
	args := make([]any, len(uniq))
	for i, q := range uniq {
		ph[i] = "?"
		args[i] = q
	}

	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := s.Dialect.Rebind(fmt.Sprintf(`
	SELECT query, lat, lng
	FROM geocode_cache
	WHERE query IN (%s);
	`, strings.Join(ph, ",")))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "get geocode cache: query geocode_cache table")
	}
	defer rows.Close()

	out := make(map[string]domain.Coordinates, len(uniq))
	for rows.Next() {
		var query string
		var lat, lng float64
		if err := rows.Scan(&query, &lat, &lng); err != nil {
			return nil, eris.Wrap(err, "get geocode cache: scan rows")
		}
		out[query] = domain.Coordinates{Lat: lat, Lng: lng}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "get geocode cache: row iteration")
	}

	return out, nil
}

// Store query -> coordinate mappings in the cache.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	if s.DB == nil {
		return eris.New("geocode cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "insert geocode cache: db begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO geocode_cache (query, lat, lng)
	VALUES (?, ?, ?)
	ON CONFLICT (query) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng;
	`))
	if err != nil {
		return eris.Wrap(err, "insert geocode cache: db prepare")
	}
	defer stmt.Close()

	for query, c := range results {
		if strings.TrimSpace(query) == "" {
			return eris.New("insert geocode cache: empty query key")
		}
		if !c.Valid() {
			return eris.Errorf("insert geocode cache query=%q: invalid coordinates %s", query, c)
		}

		if _, err := stmt.ExecContext(ctx, query, c.Lat, c.Lng); err != nil {
			return eris.Wrapf(err, "insert geocode cache query=%q", query)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "insert geocode cache commit")
	}

	return nil
}

func dedupe(keys []string) []string {
	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}

		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	return uniq
}
