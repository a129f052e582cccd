package commute

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/platform/obs"
	"commute-area-service/internal/ports"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is a point-in-time copy of the manager's observable state.
type State struct {
	Areas     []domain.CommuteArea
	IsLoading bool
	// Error holds the last failure message; empty means none.
	Error string
}

// Manager owns the ordered list of commute areas.
//
// Areas are appended in the order their isochrone fetches complete. Every
// successful mutation is written to the store: the list when non-empty, a
// delete of the record when empty. Colours come from a monotonic cursor kept
// next to the list so concurrent adds never share a palette slot.
//
// A Manager is safe for concurrent use. Its mutex is never held across a
// provider call.
type Manager struct {
	store    ports.KVStore
	provider ports.IsochroneProvider

	key     string
	now     func() time.Time
	newID   func() string
	log     *zap.Logger
	metrics *obs.Metrics

	initOnce sync.Once

	// persistMu orders store writes so the last mutation is the last write.
	persistMu sync.Mutex

	mu       sync.Mutex
	areas    []domain.CommuteArea
	cursor   int
	inFlight int
	lastErr  string
}

func NewManager(store ports.KVStore, provider ports.IsochroneProvider, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		provider: provider,
		key:      DefaultStorageKey,
		now:      time.Now,
		newID:    defaultID,
		log:      zap.L(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StorageKey returns the key the list is persisted under.
func (m *Manager) StorageKey() string { return m.key }

func (m *Manager) cursorKey() string { return CursorKey(m.key) }

// Initialize loads the persisted list. Only the first call has any effect.
// A missing or unreadable record leaves the manager empty.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		areas, cursor := m.load(ctx)

		m.mu.Lock()
		m.areas = areas
		m.cursor = cursor
		m.mu.Unlock()

		m.metrics.SetAreas(len(areas))
		m.log.Info("commute areas restored", zap.Int("count", len(areas)), zap.Int("color_cursor", cursor))
	})
}

func (m *Manager) load(ctx context.Context) ([]domain.CommuteArea, int) {
	raw, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.log.Warn("read persisted areas failed", zap.String("key", m.key), zap.Error(err))
		return nil, 0
	}
	if !ok {
		return nil, 0
	}

	areas, err := DecodeAreas(raw)
	if err != nil {
		m.log.Warn("discarding malformed persisted areas", zap.String("key", m.key), zap.Error(err))
		return nil, 0
	}
	if len(areas) == 0 {
		return nil, 0
	}

	// Records written before the cursor existed resume at the list length.
	cursor := len(areas)
	rawCursor, ok, err := m.store.Get(ctx, m.cursorKey())
	switch {
	case err != nil:
		m.log.Warn("read colour cursor failed", zap.String("key", m.cursorKey()), zap.Error(err))
	case ok:
		n, err := decodeCursor(rawCursor)
		if err != nil {
			m.log.Warn("discarding malformed colour cursor", zap.String("key", m.cursorKey()), zap.Error(err))
		} else if n > cursor {
			cursor = n
		}
	}
	return areas, cursor
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	areas := make([]domain.CommuteArea, len(m.areas))
	for i, a := range m.areas {
		areas[i] = a.Clone()
	}
	return State{Areas: areas, IsLoading: m.inFlight > 0, Error: m.lastErr}
}

// Area returns a copy of the area with the given id.
func (m *Manager) Area(id string) (domain.CommuteArea, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOf(id); i >= 0 {
		return m.areas[i].Clone(), true
	}
	return domain.CommuteArea{}, false
}

// AddArea fetches the isochrone for location and appends a new area.
// On failure the list is unchanged and the failure is recorded in State.Error.
func (m *Manager) AddArea(
	ctx context.Context,
	location domain.Location,
	mode domain.TransportMode,
	minutes int,
) (_ domain.CommuteArea, err error) {
	defer obs.Time(ctx, "commute.AddArea")(&err)

	if !m.provider.Configured() {
		m.setError(ErrNotConfigured)
		return domain.CommuteArea{}, ErrNotConfigured
	}

	m.begin()
	defer m.end()

	if !mode.Valid() {
		err := eris.Errorf("unknown transport mode %q", mode)
		m.setError(err)
		return domain.CommuteArea{}, err
	}

	geo, err := m.fetch(ctx, "add", location.Coordinates, mode, minutes)
	if err != nil {
		m.setError(err)
		return domain.CommuteArea{}, err
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	area := domain.CommuteArea{
		ID:            m.newID(),
		Location:      location,
		Mode:          mode,
		TimeInMinutes: minutes,
		GeoJSON:       geo,
		Color:         domain.ColorAt(m.cursor),
		CreatedAt:     m.now().UTC().Truncate(time.Millisecond),
	}
	m.cursor++
	m.areas = append(m.areas, area)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snap)

	m.log.Info("commute area added",
		zap.String("id", area.ID),
		zap.String("mode", string(mode)),
		zap.Int("minutes", minutes),
		zap.String("color", area.Color),
	)
	return area.Clone(), nil
}

// UpdateArea refetches an existing area's isochrone with a new mode and time.
// The area's id, colour, creation time and location are kept.
func (m *Manager) UpdateArea(
	ctx context.Context,
	id string,
	mode domain.TransportMode,
	minutes int,
) (_ domain.CommuteArea, err error) {
	defer obs.Time(ctx, "commute.UpdateArea")(&err)

	if !m.provider.Configured() {
		m.setError(ErrNotConfigured)
		return domain.CommuteArea{}, ErrNotConfigured
	}

	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.lastErr = ErrAreaNotFound.Error()
		m.mu.Unlock()
		return domain.CommuteArea{}, ErrAreaNotFound
	}
	origin := m.areas[i].Location.Coordinates
	m.mu.Unlock()

	m.begin()
	defer m.end()

	if !mode.Valid() {
		err := eris.Errorf("unknown transport mode %q", mode)
		m.setError(err)
		return domain.CommuteArea{}, err
	}

	geo, err := m.fetch(ctx, "update", origin, mode, minutes)
	if err != nil {
		m.setError(err)
		return domain.CommuteArea{}, err
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	// The area may have been removed while the fetch was in flight.
	i = m.indexOf(id)
	if i < 0 {
		m.lastErr = ErrAreaNotFound.Error()
		m.mu.Unlock()
		return domain.CommuteArea{}, ErrAreaNotFound
	}
	m.areas[i].Mode = mode
	m.areas[i].TimeInMinutes = minutes
	m.areas[i].GeoJSON = geo
	updated := m.areas[i].Clone()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snap)

	m.log.Info("commute area updated",
		zap.String("id", id),
		zap.String("mode", string(mode)),
		zap.Int("minutes", minutes),
	)
	return updated, nil
}

// RemoveArea deletes the area with the given id and clears the error slot.
// It reports whether an area was removed; an unknown id is a no-op.
func (m *Manager) RemoveArea(ctx context.Context, id string) bool {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	m.lastErr = ""
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	m.areas = append(m.areas[:i:i], m.areas[i+1:]...)
	if len(m.areas) == 0 {
		m.cursor = 0
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snap)
	m.log.Info("commute area removed", zap.String("id", id))
	return true
}

// ClearAllAreas empties the list and deletes the persisted record.
func (m *Manager) ClearAllAreas(ctx context.Context) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	n := len(m.areas)
	m.areas = nil
	m.cursor = 0
	m.lastErr = ""
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snap)
	m.log.Info("commute areas cleared", zap.Int("count", n))
}

func (m *Manager) fetch(
	ctx context.Context,
	op string,
	origin domain.Coordinates,
	mode domain.TransportMode,
	minutes int,
) (json.RawMessage, error) {
	geo, err := m.provider.GetIsochrone(ctx, ports.IsochroneRequest{
		Origin:    origin,
		Mode:      mode,
		Range:     minutes * 60,
		RangeType: ports.RangeTime,
	})
	if err == nil && len(geo) == 0 {
		err = eris.New("isochrone provider returned an empty response")
	}
	m.metrics.ObserveIsochrone(op, err)
	return geo, err
}

// begin marks a fetch as in flight and clears the previous error.
func (m *Manager) begin() {
	m.mu.Lock()
	m.inFlight++
	m.lastErr = ""
	m.mu.Unlock()
}

func (m *Manager) end() {
	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
}

func (m *Manager) setError(err error) {
	msg := Message(err)

	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()

	m.log.Warn("commute area operation failed", zap.String("error", msg))
}

func (m *Manager) indexOf(id string) int {
	for i := range m.areas {
		if m.areas[i].ID == id {
			return i
		}
	}
	return -1
}

type persistSnapshot struct {
	areas  []domain.CommuteArea
	cursor int
}

func (m *Manager) snapshotLocked() persistSnapshot {
	areas := make([]domain.CommuteArea, len(m.areas))
	copy(areas, m.areas)
	return persistSnapshot{areas: areas, cursor: m.cursor}
}

// persist writes snap to the store. Failures are logged and counted only.
// Callers hold persistMu.
func (m *Manager) persist(ctx context.Context, snap persistSnapshot) {
	m.metrics.SetAreas(len(snap.areas))

	// The mutation already happened; finish the write even if the caller gives up.
	ctx = context.WithoutCancel(ctx)

	if err := m.write(ctx, snap); err != nil {
		m.metrics.PersistFailed()
		m.log.Error("persist commute areas failed",
			zap.String("key", m.key),
			zap.Int("count", len(snap.areas)),
			zap.Error(err),
		)
	}
}

func (m *Manager) write(ctx context.Context, snap persistSnapshot) error {
	if len(snap.areas) == 0 {
		if err := m.store.Delete(ctx, m.key); err != nil {
			return eris.Wrap(err, "delete area record")
		}
		if err := m.store.Delete(ctx, m.cursorKey()); err != nil {
			return eris.Wrap(err, "delete colour cursor")
		}
		return nil
	}

	raw, err := EncodeAreas(snap.areas)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, m.key, raw); err != nil {
		return eris.Wrap(err, "write area record")
	}
	if err := m.store.Put(ctx, m.cursorKey(), encodeCursor(snap.cursor)); err != nil {
		return eris.Wrap(err, "write colour cursor")
	}
	return nil
}
