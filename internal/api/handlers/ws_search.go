package handlers

import (
	"commute-area-service/internal/api/dto"
	"commute-area-service/internal/domain"
	"commute-area-service/internal/platform/obs"
	"commute-area-service/internal/ports"
	"commute-area-service/internal/services/search"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum message size allowed from client.
	maxMessageSize = 1024
)

// SearchSocket serves debounced autocomplete over a websocket. Clients send
// {"kind":"address"|"city","query":"..."}; only the freshest query of each
// kind is answered.
type SearchSocket struct {
	Addresses ports.AddressSearcher
	Cities    ports.CitySearcher
	CityLimit int
	Delay     time.Duration
	Metrics   *obs.Metrics

	// CheckOrigin overrides the upgrader's same-origin check when set.
	CheckOrigin func(r *http.Request) bool
}

func (s *SearchSocket) Serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.CheckOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan dto.SearchMessage, 8)
	send := func(m dto.SearchMessage) {
		select {
		case out <- m:
		case <-ctx.Done():
		}
	}

	onStale := func(string) { s.Metrics.StaleDropped() }

	addresses := search.New(
		func(ctx context.Context, q string) ([]domain.AddressCandidate, error) {
			return s.Addresses.SearchAddresses(ctx, q)
		},
		func(res search.Result[[]domain.AddressCandidate]) {
			send(searchMessage(dto.SearchKindAddress, res.Query, dto.FromAddressCandidates(res.Value), res.Err))
		},
		search.WithDelay[[]domain.AddressCandidate](s.Delay),
		search.WithOnStale[[]domain.AddressCandidate](onStale),
	)
	defer addresses.Close()

	cities := search.New(
		func(ctx context.Context, q string) ([]domain.City, error) {
			return s.Cities.SearchCities(ctx, q, s.CityLimit)
		},
		func(res search.Result[[]domain.City]) {
			results := res.Value
			if results == nil {
				results = []domain.City{}
			}
			send(searchMessage(dto.SearchKindCity, res.Query, results, res.Err))
		},
		search.WithDelay[[]domain.City](s.Delay),
		search.WithOnStale[[]domain.City](onStale),
	)
	defer cities.Close()

	go s.writeLoop(ctx, cancel, conn, out)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req dto.SearchRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("search socket closed", zap.Error(err))
			}
			return
		}

		switch strings.ToLower(req.Kind) {
		case dto.SearchKindAddress:
			addresses.Submit(ctx, req.Query)
		case dto.SearchKindCity:
			cities.Submit(ctx, req.Query)
		default:
			msg := "unknown search kind"
			send(dto.SearchMessage{Kind: req.Kind, Query: req.Query, Results: []struct{}{}, Error: &msg})
		}
	}
}

func (s *SearchSocket) writeLoop(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	out <-chan dto.SearchMessage,
) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		// Unblocks the read loop.
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func searchMessage(kind, query string, results any, err error) dto.SearchMessage {
	m := dto.SearchMessage{Kind: kind, Query: query, Results: results}
	if err != nil {
		zap.L().Warn("search failed", zap.String("kind", kind), zap.String("query", query), zap.Error(err))
		msg := "search failed"
		m.Error = &msg
	}
	return m
}
