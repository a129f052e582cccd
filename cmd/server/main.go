package main

import (
	"commute-area-service/internal/adapters/cache"
	"commute-area-service/internal/adapters/geocoding"
	"commute-area-service/internal/adapters/isochrone"
	"commute-area-service/internal/adapters/kvstore"
	"commute-area-service/internal/adapters/repositories"
	"commute-area-service/internal/api"
	"commute-area-service/internal/config"
	"commute-area-service/internal/platform/db"
	"commute-area-service/internal/platform/httpx"
	"commute-area-service/internal/platform/obs"
	"commute-area-service/internal/ports"
	"commute-area-service/internal/services/commute"
	geocodingsvc "commute-area-service/internal/services/geocoding"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (SQL/Redis store, Geoapify, Nominatim) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatal(err)
	}
	defer zap.L().Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, conn, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics := obs.NewMetrics("commute")

	provider := newIsochroneProvider(ctx, cfg, conn)
	if !provider.Configured() {
		zap.L().Warn("geoapify api key missing, isochrone requests will fail until configured")
	}

	nominatim := geocoding.NewNominatimSearcher(
		geocoding.WithNominatimURL(cfg.Nominatim.BaseURL),
		geocoding.WithNominatimClient(httpx.New(
			httpx.WithUserAgent(cfg.Nominatim.UserAgent),
			httpx.WithRateLimit(cfg.Nominatim.RPS),
			httpx.WithCircuitBreaker("nominatim"),
		)),
	)
	communes := geocoding.NewCommuneSearcher(geocoding.WithCommunesURL(cfg.Communes.BaseURL))

	var resolverOpts []geocodingsvc.ResolverOption
	if conn != nil && cfg.Cache.Enabled {
		resolverOpts = append(resolverOpts, geocodingsvc.WithCache(cache.NewSQLGeocodeCache(conn.DB, conn.Dialect)))
	}
	resolver := geocodingsvc.NewResolver(nominatim, communes, resolverOpts...)

	manager := commute.NewManager(store, provider,
		commute.WithStorageKey(cfg.Store.Key),
		commute.WithMetrics(metrics),
	)
	manager.Initialize(ctx)

	router := api.NewRouter(api.Deps{
		Manager:     manager,
		Resolver:    resolver,
		Searcher:    resolver,
		Addresses:   nominatim,
		Cities:      communes,
		Preview:     provider,
		Metrics:     metrics,
		CORSOrigins: cfg.Server.CORSOrigins,
		CityLimit:   cfg.Communes.Limit,
		SearchDelay: cfg.Search.Delay(),
	})

	// Timeouts are tuned for cold-cache isochrone fetches (external API latency).
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeoutDuration(),
		ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
		WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:       cfg.Server.IdleTimeoutDuration(),
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

// sqlConn is set when the store lives in a SQL database the caches can share.
type sqlConn struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func openStore(ctx context.Context, cfg config.StoreConfig) (ports.KVStore, *sqlConn, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		zap.L().Warn("using in-memory store, areas are lost on restart")
		return kvstore.NewMemoryStore(), nil, func() {}, nil

	case "redis":
		rs, err := kvstore.NewRedisStoreFromURL(ctx, cfg.DSN, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, nil, err
		}
		return rs, nil, func() { rs.Close() }, nil
	}

	dialect, err := db.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, nil, nil, err
	}
	conn, err := db.Open(dialect, cfg.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	// Initialize schema on startup so a fresh database works without dbtool.
	if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
		conn.Close()
		return nil, nil, nil, err
	}
	return kvstore.NewSQLStore(conn, dialect), &sqlConn{DB: conn, Dialect: dialect}, func() { conn.Close() }, nil
}

// newIsochroneProvider returns the configured provider, wrapped in the SQL
// cache when one is available.
func newIsochroneProvider(ctx context.Context, cfg *config.Config, conn *sqlConn) ports.IsochroneBatchProvider {
	var provider ports.IsochroneBatchProvider
	if strings.EqualFold(cfg.Geoapify.Provider, "stub") {
		zap.L().Warn("using stub isochrone provider")
		provider = isochrone.NewStubProvider()
	} else {
		provider = isochrone.NewGeoapifyProvider(cfg.Geoapify.APIKey,
			isochrone.WithBaseURL(cfg.Geoapify.BaseURL),
			isochrone.WithClient(httpx.New(httpx.WithRateLimit(cfg.Geoapify.RPS))),
		)
	}

	if conn == nil || !cfg.Cache.Enabled {
		return provider
	}

	isoCache := cache.NewSQLIsochroneCache(conn.DB, conn.Dialect, cfg.Cache.TTL())
	if n, err := isoCache.Prune(ctx); err != nil {
		zap.L().Warn("isochrone cache prune failed", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("isochrone cache pruned", zap.Int64("removed", n))
	}
	return isochrone.NewCachedProvider(provider, isoCache)
}
