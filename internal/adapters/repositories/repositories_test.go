package repositories

import (
	"commute-area-service/internal/adapters/kvstore"
	"commute-area-service/internal/platform/db"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.SQLite, filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, InitSchema(ctx, conn, db.SQLite))
	require.NoError(t, InitSchema(ctx, conn, db.SQLite))

	for _, table := range []string{"kv_store", "geocode_cache", "isochrone_cache"} {
		var name string
		err := conn.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestInitSchemaNilDB(t *testing.T) {
	assert.Error(t, InitSchema(context.Background(), nil, db.SQLite))
}

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedFromJSON(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	path := writeSeed(t, `[{"id":"a"}]`)

	require.NoError(t, SeedFromJSON(ctx, store, "areas", path, nil))

	got, ok, err := store.Get(ctx, "areas")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))
}

func TestSeedFromJSONRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "areas", []byte(`["kept"]`)))

	tests := []struct {
		name     string
		path     string
		validate Validator
		want     string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.json"), nil, "read"},
		{"invalid json", writeSeed(t, `[{"id":`), nil, "not valid JSON"},
		{
			"validator rejects",
			writeSeed(t, `[]`),
			func([]byte) error { return errors.New("bad record") },
			"bad record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SeedFromJSON(ctx, store, "areas", tt.path, tt.validate)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			got, _, _ := store.Get(ctx, "areas")
			assert.Equal(t, `["kept"]`, string(got))
		})
	}
}

func TestSeedFromJSONArguments(t *testing.T) {
	ctx := context.Background()
	path := writeSeed(t, `[]`)

	assert.Error(t, SeedFromJSON(ctx, nil, "areas", path, nil))
	assert.Error(t, SeedFromJSON(ctx, kvstore.NewMemoryStore(), " ", path, nil))
}

func TestSeedFromJSONStoreFailure(t *testing.T) {
	store := kvstore.NewMemoryStore()
	store.FailWith = errors.New("disk full")

	err := SeedFromJSON(context.Background(), store, "areas", writeSeed(t, `[]`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
