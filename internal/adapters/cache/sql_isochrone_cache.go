package cache

import (
	"commute-area-service/internal/platform/db"
	"commute-area-service/internal/platform/obs"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SQLIsochroneCache stores provider isoline responses by normalized request key.
// Entries older than TTL are treated as misses; a zero TTL never expires.
type SQLIsochroneCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	TTL     time.Duration

	now func() time.Time
}

func NewSQLIsochroneCache(conn *sql.DB, dialect db.Dialect, ttl time.Duration) *SQLIsochroneCache {
	return &SQLIsochroneCache{DB: conn, Dialect: dialect, TTL: ttl, now: time.Now}
}

func (s *SQLIsochroneCache) Get(ctx context.Context, key string) (_ json.RawMessage, _ bool, err error) {
	defer obs.Time(ctx, "isochrone.cache.Get")(&err)

	if s.DB == nil {
		return nil, false, eris.New("isochrone cache: db is nil")
	}

	q := s.Dialect.Rebind(`
	SELECT geojson, created_at
	FROM isochrone_cache
	WHERE cache_key = ?;
	`)

	var body []byte
	var createdAt int64
	err = s.DB.QueryRowContext(ctx, q, key).Scan(&body, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "get isochrone cache: key=%q", key)
	}

	if s.TTL > 0 && s.now().Sub(time.UnixMilli(createdAt)) > s.TTL {
		return nil, false, nil
	}
	return json.RawMessage(body), true, nil
}

func (s *SQLIsochroneCache) Put(ctx context.Context, key string, geoJSON json.RawMessage) error {
	if s.DB == nil {
		return eris.New("isochrone cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return eris.New("insert isochrone cache: empty key")
	}
	if len(geoJSON) == 0 {
		return eris.Errorf("insert isochrone cache key=%q: empty document", key)
	}

	q := s.Dialect.Rebind(`
	INSERT INTO isochrone_cache (cache_key, geojson, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT (cache_key) DO UPDATE
	SET geojson = EXCLUDED.geojson,
		created_at = EXCLUDED.created_at;
	`)

	if _, err := s.DB.ExecContext(ctx, q, key, []byte(geoJSON), s.now().UnixMilli()); err != nil {
		return eris.Wrapf(err, "insert isochrone cache key=%q", key)
	}
	return nil
}

// Prune removes entries older than TTL and reports how many were dropped.
func (s *SQLIsochroneCache) Prune(ctx context.Context) (int64, error) {
	if s.DB == nil {
		return 0, eris.New("isochrone cache: db is nil")
	}
	if s.TTL <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.TTL).UnixMilli()
	res, err := s.DB.ExecContext(ctx, s.Dialect.Rebind(`DELETE FROM isochrone_cache WHERE created_at < ?;`), cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "prune isochrone cache")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
