package main

import (
	"bytes"
	"commute-area-service/internal/domain"
	"commute-area-service/internal/services/commute"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"init", "show", "import", "clear", "prune"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestShowCommand_Flags(t *testing.T) {
	flag := showCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)
}

// setupEnv points the tool at a fresh sqlite file inside a temp working dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("COMMUTE_STORE_DRIVER", "sqlite")
	t.Setenv("COMMUTE_STORE_DSN", filepath.Join(dir, "tool.db"))
	t.Setenv("COMMUTE_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	require.NoError(t, rootCmd.PersistentFlags().Set("key", ""))
	require.NoError(t, showCmd.Flags().Set("format", "table"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func sampleRecord(t *testing.T) []byte {
	t.Helper()
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	raw, err := commute.EncodeAreas([]domain.CommuteArea{
		{
			ID:            "a1",
			Location:      domain.Location{Address: "Paris", Coordinates: domain.Paris},
			Mode:          domain.ModeDrive,
			TimeInMinutes: 30,
			GeoJSON:       json.RawMessage(`{"type":"FeatureCollection","features":[]}`),
			Color:         domain.ColorAt(0),
			CreatedAt:     created,
		},
		{
			ID:            "a2",
			Location:      domain.Location{Address: "Lyon", Coordinates: domain.Coordinates{Lat: 45.764, Lng: 4.8357}},
			Mode:          domain.ModeWalk,
			TimeInMinutes: 90,
			GeoJSON:       json.RawMessage(`{"type":"FeatureCollection","features":[]}`),
			Color:         domain.ColorAt(1),
			CreatedAt:     created.Add(time.Minute),
		},
	})
	require.NoError(t, err)
	return raw
}

func TestImportShowClear(t *testing.T) {
	dir := setupEnv(t)
	seed := filepath.Join(dir, "areas.json")
	require.NoError(t, os.WriteFile(seed, sampleRecord(t), 0o644))

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema ready.")

	out, err = execute(t, "import", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "Import complete.")

	out, err = execute(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Paris (30min)")
	assert.Contains(t, out, "1h30")
	assert.Contains(t, out, "#3B82F6")

	out, err = execute(t, "show", "--format", "json")
	require.NoError(t, err)
	areas, err := commute.DecodeAreas([]byte(out))
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, "a2", areas[1].ID)

	out, err = execute(t, "show", "--format", "yaml")
	require.NoError(t, err)
	var views []areaView
	require.NoError(t, yaml.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "Lyon", views[1].Address)
	assert.Equal(t, "walk", views[1].Mode)

	out, err = execute(t, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Record cleared.")

	out, err = execute(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No areas stored.")
}

func TestImportRejectsInvalidRecord(t *testing.T) {
	dir := setupEnv(t)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"id":"x","mode":"teleport"}]`), 0o644))

	_, err := execute(t, "init")
	require.NoError(t, err)

	_, err = execute(t, "import", bad)
	require.Error(t, err)

	out, err := execute(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No areas stored.")
}

func TestImportCustomKey(t *testing.T) {
	dir := setupEnv(t)
	seed := filepath.Join(dir, "areas.json")
	require.NoError(t, os.WriteFile(seed, sampleRecord(t), 0o644))

	_, err := execute(t, "init")
	require.NoError(t, err)
	_, err = execute(t, "import", "--key", "other", seed)
	require.NoError(t, err)

	out, err := execute(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No areas stored.")

	out, err = execute(t, "show", "--key", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "Lyon (90min)")
}

func TestPrune(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "init")
	require.NoError(t, err)

	out, err := execute(t, "prune", "--ttl-hours", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 expired entries.")
}

func TestShowUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeAreas(&buf, nil, "xml")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown format"))
}

func TestMemoryDriverRejected(t *testing.T) {
	setupEnv(t)
	t.Setenv("COMMUTE_STORE_DRIVER", "memory")

	_, err := execute(t, "show")
	require.Error(t, err)
}
