package kvstore

import (
	"commute-area-service/internal/platform/db"
	"commute-area-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
)

// SQLStore keeps values in the kv_store table of a SQLite or Postgres database.
type SQLStore struct {
	DB      *sql.DB
	Dialect db.Dialect

	now func() time.Time
}

func NewSQLStore(conn *sql.DB, dialect db.Dialect) *SQLStore {
	return &SQLStore{DB: conn, Dialect: dialect, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "kvstore.sql.Get")(&err)

	if s.DB == nil {
		return nil, false, eris.New("kv store: db is nil")
	}

	q := s.Dialect.Rebind(`SELECT value FROM kv_store WHERE key = ?;`)

	var value []byte
	err = s.DB.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "get kv store: key=%q", key)
	}
	return value, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) (err error) {
	defer obs.Time(ctx, "kvstore.sql.Put")(&err)

	if s.DB == nil {
		return eris.New("kv store: db is nil")
	}
	if key == "" {
		return eris.New("put kv store: key must not be empty")
	}
	if value == nil {
		value = []byte{}
	}

	q := s.Dialect.Rebind(`
	INSERT INTO kv_store (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at;
	`)

	if _, err := s.DB.ExecContext(ctx, q, key, value, s.now().UnixMilli()); err != nil {
		return eris.Wrapf(err, "put kv store: key=%q", key)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) (err error) {
	defer obs.Time(ctx, "kvstore.sql.Delete")(&err)

	if s.DB == nil {
		return eris.New("kv store: db is nil")
	}

	q := s.Dialect.Rebind(`DELETE FROM kv_store WHERE key = ?;`)
	if _, err := s.DB.ExecContext(ctx, q, key); err != nil {
		return eris.Wrapf(err, "delete kv store: key=%q", key)
	}
	return nil
}
