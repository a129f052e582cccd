package repositories

import (
	"commute-area-service/internal/ports"
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Validator checks a persisted record before it is written.
type Validator func(raw []byte) error

// SeedFromJSON imports the record stored in jsonPath under key, replacing
// whatever is stored there. The file must hold valid JSON; validate, when
// set, applies the record's own schema checks first.
func SeedFromJSON(
	ctx context.Context,
	store ports.KVStore,
	key string,
	jsonPath string,
	validate Validator,
) error {
	if store == nil {
		return eris.New("seed record: store is nil")
	}
	if strings.TrimSpace(key) == "" {
		return eris.New("seed record: key must not be empty")
	}

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return eris.Wrapf(err, "seed record: read %q", jsonPath)
	}

	if !json.Valid(raw) {
		return eris.Errorf("seed record: %q is not valid JSON", jsonPath)
	}

	if validate != nil {
		if err := validate(raw); err != nil {
			return eris.Wrapf(err, "seed record: validate %q", jsonPath)
		}
	}

	if err := store.Put(ctx, key, raw); err != nil {
		return eris.Wrapf(err, "seed record: put key=%q", key)
	}

	return nil
}
