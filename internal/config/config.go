// Package config loads riftstats settings from the environment and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverTurso    = "turso"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// EnvPaths are searched in order; the first readable file wins.
var EnvPaths = []string{".env", "../.env", "../../.env"}

// Config holds every runtime setting.
type Config struct {
	RiotAPIKey string
	RiotRegion string

	StoreDriver      string
	SQLitePath       string
	TursoDatabaseURL string
	TursoAuthToken   string
	DatabaseURL      string

	IngestConcurrency    int
	TimelineSamplingRate float64
	ArchiveDir           string
	DefaultTier          string

	Port              string
	LogLevel          string
	DDragonVersion    string
	DiscordWebhookURL string
}

// LoadEnvFile loads the first .env file found and returns its path, or ""
// when none exists. Variables already set in the environment win.
func LoadEnvFile(paths ...string) string {
	if len(paths) == 0 {
		paths = EnvPaths
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	if path := LoadEnvFile(); path != "" {
		log.Debug("Loaded .env", "path", path)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		RiotAPIKey:        get("RIOT_API_KEY", getenv("RIOT-DEV-KEY")),
		RiotRegion:        strings.ToLower(get("RIOT_REGION", "americas")),
		StoreDriver:       strings.ToLower(get("STORE_DRIVER", DriverSQLite)),
		SQLitePath:        get("SQLITE_PATH", "riftstats.db"),
		TursoDatabaseURL:  get("TURSO_DATABASE_URL", ""),
		TursoAuthToken:    get("TURSO_AUTH_TOKEN", ""),
		DatabaseURL:       get("DATABASE_URL", ""),
		ArchiveDir:        get("ARCHIVE_DIR", ""),
		DefaultTier:       strings.ToUpper(get("DEFAULT_TIER", "UNRANKED")),
		Port:              get("PORT", "8080"),
		LogLevel:          strings.ToLower(get("LOG_LEVEL", "info")),
		DDragonVersion:    get("DDRAGON_VERSION", ""),
		DiscordWebhookURL: get("DISCORD_WEBHOOK_URL", ""),
	}

	var err error
	if cfg.IngestConcurrency, err = strconv.Atoi(get("INGEST_CONCURRENCY", "8")); err != nil || cfg.IngestConcurrency <= 0 {
		return Config{}, fmt.Errorf("INGEST_CONCURRENCY must be a positive integer, got %q", getenv("INGEST_CONCURRENCY"))
	}
	rate, err := strconv.ParseFloat(get("TIMELINE_SAMPLING_RATE", "1.0"), 64)
	if err != nil || rate < 0 || rate > 1 {
		return Config{}, fmt.Errorf("TIMELINE_SAMPLING_RATE must be between 0 and 1, got %q", getenv("TIMELINE_SAMPLING_RATE"))
	}
	cfg.TimelineSamplingRate = rate

	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	if err := cfg.validateStore(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validateStore() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
		return nil
	case DriverTurso:
		if c.TursoDatabaseURL == "" {
			return fmt.Errorf("STORE_DRIVER=turso requires TURSO_DATABASE_URL")
		}
		return nil
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
		return nil
	}
	return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
}

// RequireAPIKey fails when no Riot API key is configured.
func (c Config) RequireAPIKey() error {
	if c.RiotAPIKey == "" {
		return fmt.Errorf("RIOT_API_KEY (or RIOT-DEV-KEY) is not set")
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
