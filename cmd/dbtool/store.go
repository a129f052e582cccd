package main

import (
	"commute-area-service/internal/adapters/kvstore"
	"commute-area-service/internal/config"
	"commute-area-service/internal/platform/db"
	"commute-area-service/internal/ports"
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
)

// openedStore bundles a KV store with the SQL handle behind it, if any.
type openedStore struct {
	ports.KVStore
	DB      *sql.DB
	Dialect db.Dialect
	close   func()
}

func (s *openedStore) Close() {
	if s.close != nil {
		s.close()
	}
}

func openStore(ctx context.Context, sc config.StoreConfig) (*openedStore, error) {
	switch strings.ToLower(sc.Driver) {
	case "memory":
		return nil, eris.New("open store: the memory driver keeps nothing to maintain")
	case "redis":
		rs, err := kvstore.NewRedisStoreFromURL(ctx, sc.DSN, sc.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return &openedStore{KVStore: rs, close: func() { rs.Close() }}, nil
	}

	dialect, err := db.ParseDialect(sc.Driver)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(dialect, sc.DSN)
	if err != nil {
		return nil, err
	}
	return &openedStore{
		KVStore: kvstore.NewSQLStore(conn, dialect),
		DB:      conn,
		Dialect: dialect,
		close:   func() { conn.Close() },
	}, nil
}

// requireSQL fails for stores that have no schema or caches.
func (s *openedStore) requireSQL(op string) error {
	if s.DB == nil {
		return eris.Errorf("%s: requires a sqlite or postgres store", op)
	}
	return nil
}
