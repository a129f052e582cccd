package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Geoapify  GeoapifyConfig  `yaml:"geoapify" mapstructure:"geoapify"`
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	Communes  CommunesConfig  `yaml:"communes" mapstructure:"communes"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port              int      `yaml:"port" mapstructure:"port"`
	ReadHeaderTimeout int      `yaml:"read_header_timeout_secs" mapstructure:"read_header_timeout_secs"`
	ReadTimeout       int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeout      int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	IdleTimeout       int      `yaml:"idle_timeout_secs" mapstructure:"idle_timeout_secs"`
	ShutdownTimeout   int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	CORSOrigins       []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig selects where the commute-area record lives.
type StoreConfig struct {
	// Driver is one of sqlite, postgres, redis or memory.
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	Key         string `yaml:"key" mapstructure:"key"`
	RedisPrefix string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// GeoapifyConfig holds the isoline API credentials.
type GeoapifyConfig struct {
	APIKey  string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
	// Provider is "geoapify" or "stub" (offline polygons).
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// NominatimConfig configures the address search adapter.
type NominatimConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string  `yaml:"user_agent" mapstructure:"user_agent"`
	RPS       float64 `yaml:"rps" mapstructure:"rps"`
}

// CommunesConfig configures the commune directory adapter.
type CommunesConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Limit   int    `yaml:"limit" mapstructure:"limit"`
}

// CacheConfig toggles the SQL isochrone and geocode caches.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	TTLHours int  `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// SearchConfig configures debounced autocomplete.
type SearchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

func (s ServerConfig) ReadHeaderTimeoutDuration() time.Duration { return secs(s.ReadHeaderTimeout) }
func (s ServerConfig) ReadTimeoutDuration() time.Duration       { return secs(s.ReadTimeout) }
func (s ServerConfig) WriteTimeoutDuration() time.Duration      { return secs(s.WriteTimeout) }
func (s ServerConfig) IdleTimeoutDuration() time.Duration       { return secs(s.IdleTimeout) }
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration   { return secs(s.ShutdownTimeout) }

func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

func (s SearchConfig) Delay() time.Duration { return time.Duration(s.DebounceMS) * time.Millisecond }

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// Load reads configuration from config.yaml (optional) and COMMUTE_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COMMUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout_secs", 5)
	v.SetDefault("server.read_timeout_secs", 10)
	v.SetDefault("server.write_timeout_secs", 120)
	v.SetDefault("server.idle_timeout_secs", 60)
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "commute.db")
	v.SetDefault("store.key", "ville-calculator-commute-areas")
	v.SetDefault("store.redis_prefix", "commute:")
	v.SetDefault("geoapify.api_key", "")
	v.SetDefault("geoapify.base_url", "https://api.geoapify.com")
	v.SetDefault("geoapify.rps", 5)
	v.SetDefault("geoapify.provider", "geoapify")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "commute-area-service/1.0")
	v.SetDefault("nominatim.rps", 1)
	v.SetDefault("communes.base_url", "https://geo.api.gouv.fr")
	v.SetDefault("communes.limit", 5)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_hours", 24*7)
	v.SetDefault("search.debounce_ms", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the composition root cannot act on.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "postgres", "redis", "memory":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	switch strings.ToLower(c.Geoapify.Provider) {
	case "geoapify", "stub":
	default:
		return eris.Errorf("config: unsupported isochrone provider %q", c.Geoapify.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Store.Key) == "" {
		return eris.New("config: store key must not be empty")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
