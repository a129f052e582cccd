package domain

import (
	"strings"

	"github.com/rotisserie/eris"
)

// TransportMode is the travel mode used to compute a reachable area.
type TransportMode string

const (
	ModeDrive   TransportMode = "drive"
	ModeWalk    TransportMode = "walk"
	ModeBicycle TransportMode = "bicycle"
	ModeTransit TransportMode = "transit"
)

// TransportModes lists every supported mode in display order.
var TransportModes = []TransportMode{ModeDrive, ModeWalk, ModeBicycle, ModeTransit}

func (m TransportMode) Valid() bool {
	switch m {
	case ModeDrive, ModeWalk, ModeBicycle, ModeTransit:
		return true
	}
	return false
}

func (m TransportMode) String() string { return string(m) }

// ParseTransportMode accepts a mode name case-insensitively.
func ParseTransportMode(s string) (TransportMode, error) {
	m := TransportMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", eris.Errorf("unknown transport mode %q", s)
	}
	return m, nil
}
