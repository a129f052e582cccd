package commute

import (
	"commute-area-service/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	areas := []domain.CommuteArea{
		{
			ID:            "5f1c6a7e-1111-4a1b-9c2d-000000000001",
			Location:      paris,
			Mode:          domain.ModeDrive,
			TimeInMinutes: 30,
			GeoJSON:       json.RawMessage(`{"type":"FeatureCollection","features":[]}`),
			Color:         domain.Palette[0],
			CreatedAt:     time.Date(2025, 1, 2, 3, 4, 5, 678000000, time.UTC),
		},
		{
			ID:            "5f1c6a7e-1111-4a1b-9c2d-000000000002",
			Location:      lyon,
			Mode:          domain.ModeTransit,
			TimeInMinutes: 60,
			GeoJSON:       json.RawMessage(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"range":3600},"geometry":{"type":"Point","coordinates":[4.83,45.76]}}]}`),
			Color:         domain.Palette[1],
			CreatedAt:     time.Date(2025, 1, 2, 3, 4, 6, 0, time.UTC),
		},
	}

	raw, err := EncodeAreas(areas)
	require.NoError(t, err)

	got, err := DecodeAreas(raw)
	require.NoError(t, err)
	assert.Equal(t, areas, got)
}

func TestEncodeAreasFieldNames(t *testing.T) {
	raw, err := EncodeAreas([]domain.CommuteArea{{
		ID:            "a",
		Location:      paris,
		Mode:          domain.ModeWalk,
		TimeInMinutes: 15,
		GeoJSON:       json.RawMessage(`{"type":"FeatureCollection","features":[]}`),
		Color:         "#3B82F6",
		CreatedAt:     time.Date(2025, 3, 9, 14, 0, 0, 0, time.FixedZone("CET", 3600)),
	}})
	require.NoError(t, err)

	assert.JSONEq(t, `[{
		"id": "a",
		"location": {"address": "Paris", "coordinates": {"lat": 48.8566, "lng": 2.3522}},
		"mode": "walk",
		"timeInMinutes": 15,
		"geoJSON": {"type": "FeatureCollection", "features": []},
		"color": "#3B82F6",
		"createdAt": "2025-03-09T13:00:00.000Z"
	}]`, string(raw))
}

func TestEncodeAreasRequiresGeoJSON(t *testing.T) {
	_, err := EncodeAreas([]domain.CommuteArea{{ID: "a", Mode: domain.ModeDrive}})
	assert.Error(t, err)
}

func TestDecodeAreas(t *testing.T) {
	entry := func(id, mode, createdAt string) string {
		return fmt.Sprintf(`{"id":%q,"location":{"address":"x","coordinates":{"lat":1,"lng":2}},"mode":%q,"timeInMinutes":5,"geoJSON":{"type":"FeatureCollection","features":[]},"color":"#3B82F6","createdAt":%q}`, id, mode, createdAt)
	}

	t.Run("null is empty", func(t *testing.T) {
		got, err := DecodeAreas([]byte(`null`))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("second-precision timestamps", func(t *testing.T) {
		got, err := DecodeAreas([]byte(`[` + entry("a", "walk", "2024-06-01T08:00:00Z") + `]`))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), got[0].CreatedAt)
	})

	t.Run("duplicate ids keep the first", func(t *testing.T) {
		got, err := DecodeAreas([]byte(`[` + entry("a", "walk", "2024-06-01T08:00:00Z") + `,` + entry("a", "drive", "2024-06-01T08:00:00Z") + `]`))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, domain.ModeWalk, got[0].Mode)
	})

	for name, raw := range map[string]string{
		"missing id":      `[` + entry("", "walk", "2024-06-01T08:00:00Z") + `]`,
		"unknown mode":    `[` + entry("a", "plane", "2024-06-01T08:00:00Z") + `]`,
		"bad timestamp":   `[` + entry("a", "walk", "06/01/2024") + `]`,
		"null geometry":   `[{"id":"a","location":{"address":"x","coordinates":{"lat":1,"lng":2}},"mode":"walk","timeInMinutes":5,"geoJSON":null,"color":"#3B82F6","createdAt":"2024-06-01T08:00:00Z"}]`,
		"bad coordinates": `[{"id":"a","location":{"address":"x","coordinates":{"lat":91,"lng":2}},"mode":"walk","timeInMinutes":5,"geoJSON":{},"color":"#3B82F6","createdAt":"2024-06-01T08:00:00Z"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAreas([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "zone not found", Message(eris.Wrap(ErrAreaNotFound, "update area")))
	assert.Equal(t, ErrNotConfigured.Error(), Message(ErrNotConfigured))
	assert.Equal(t, "context canceled", Message(fmt.Errorf("fetch: %w", context.Canceled)))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, UnknownErrorMessage, Message(errors.New("")))
}

func TestCursorCodec(t *testing.T) {
	n, err := decodeCursor(encodeCursor(42))
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = decodeCursor([]byte("-1"))
	assert.Error(t, err)
	_, err = decodeCursor([]byte("x"))
	assert.Error(t, err)
}
