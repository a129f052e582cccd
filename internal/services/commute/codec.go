package commute

import (
	"bytes"
	"commute-area-service/internal/domain"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// CreatedAtLayout is the ISO-8601 form createdAt is stored in.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

type coordinatesRecord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type locationRecord struct {
	Address     string            `json:"address"`
	Coordinates coordinatesRecord `json:"coordinates"`
}

// areaRecord is the persisted shape of one area.
type areaRecord struct {
	ID            string          `json:"id"`
	Location      locationRecord  `json:"location"`
	Mode          string          `json:"mode"`
	TimeInMinutes int             `json:"timeInMinutes"`
	GeoJSON       json.RawMessage `json:"geoJSON"`
	Color         string          `json:"color"`
	CreatedAt     string          `json:"createdAt"`
}

// EncodeAreas serializes areas into the persisted record format.
func EncodeAreas(areas []domain.CommuteArea) ([]byte, error) {
	records := make([]areaRecord, 0, len(areas))
	for _, a := range areas {
		if len(bytes.TrimSpace(a.GeoJSON)) == 0 {
			return nil, eris.Errorf("encode areas: area %q has no geoJSON", a.ID)
		}
		records = append(records, areaRecord{
			ID: a.ID,
			Location: locationRecord{
				Address: a.Location.Address,
				Coordinates: coordinatesRecord{
					Lat: a.Location.Coordinates.Lat,
					Lng: a.Location.Coordinates.Lng,
				},
			},
			Mode:          string(a.Mode),
			TimeInMinutes: a.TimeInMinutes,
			GeoJSON:       a.GeoJSON,
			Color:         a.Color,
			CreatedAt:     a.CreatedAt.UTC().Format(CreatedAtLayout),
		})
	}

	b, err := json.Marshal(records)
	if err != nil {
		return nil, eris.Wrap(err, "encode areas")
	}
	return b, nil
}

// DecodeAreas parses a persisted record. Entries repeating an earlier id are
// dropped; any other malformed entry fails the whole record.
func DecodeAreas(raw []byte) ([]domain.CommuteArea, error) {
	var records []areaRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, eris.Wrap(err, "decode areas")
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]domain.CommuteArea, 0, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return nil, eris.Errorf("decode areas: entry #%d has no id", i)
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		mode, err := domain.ParseTransportMode(r.Mode)
		if err != nil {
			return nil, eris.Wrapf(err, "decode areas: entry %q", r.ID)
		}

		coords := domain.Coordinates{Lat: r.Location.Coordinates.Lat, Lng: r.Location.Coordinates.Lng}
		if err := coords.Validate(); err != nil {
			return nil, eris.Wrapf(err, "decode areas: entry %q", r.ID)
		}

		geo := bytes.TrimSpace(r.GeoJSON)
		if len(geo) == 0 || bytes.Equal(geo, []byte("null")) {
			return nil, eris.Errorf("decode areas: entry %q has no geoJSON", r.ID)
		}

		createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
		if err != nil {
			return nil, eris.Wrapf(err, "decode areas: entry %q createdAt", r.ID)
		}

		out = append(out, domain.CommuteArea{
			ID:            r.ID,
			Location:      domain.Location{Address: r.Location.Address, Coordinates: coords},
			Mode:          mode,
			TimeInMinutes: r.TimeInMinutes,
			GeoJSON:       append(json.RawMessage(nil), r.GeoJSON...),
			Color:         r.Color,
			CreatedAt:     createdAt.UTC(),
		})
	}
	return out, nil
}

func encodeCursor(n int) []byte { return []byte(strconv.Itoa(n)) }

func decodeCursor(raw []byte) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, eris.Wrap(err, "decode colour cursor")
	}
	if n < 0 {
		return 0, eris.Errorf("decode colour cursor: negative value %d", n)
	}
	return n, nil
}
