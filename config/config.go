package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                string `envconfig:"PORT" default:"8080"`
		LogLevel            string `envconfig:"LOG_LEVEL" default:"info"`
		RateLimitPerSecond  int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"10"`
		RateLimitBurstLimit int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"20"`
		APIKey              string `envconfig:"API_KEY" default:""`
		APIKeyRequired      bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
		AllowedOrigins      string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

		// Music server
		MusicServerURL             string `envconfig:"MUSIC_SERVER_URL" default:"http://localhost:5000"`
		MusicServerTimeoutSecs     int    `envconfig:"MUSIC_SERVER_TIMEOUT_SECS" default:"15"`
		MusicServerEmail           string `envconfig:"MUSIC_SERVER_EMAIL" default:""`
		MusicServerPassword        string `envconfig:"MUSIC_SERVER_PASSWORD" default:""`
		CircuitBreakerThreshold    int    `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`      // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int    `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"30"` // Seconds to wait before retrying

		// Snapshot storage
		SnapshotDBPath     string `envconfig:"SNAPSHOT_DB_PATH" default:"./data/snapshot.db"`
		SnapshotBackupPath string `envconfig:"SNAPSHOT_BACKUP_PATH" default:"./data/backups"`

		// Player behaviour
		SearchDebounceMs    int     `envconfig:"SEARCH_DEBOUNCE_MS" default:"300"`
		AudioTickIntervalMs int     `envconfig:"AUDIO_TICK_INTERVAL_MS" default:"250"`
		ScrubThresholdSecs  float64 `envconfig:"SCRUB_THRESHOLD_SECS" default:"3"`
		DisplayPageSize     int     `envconfig:"DISPLAY_PAGE_SIZE" default:"8"`
	}

	FeatureFlags struct {
		SnapshotCompression bool `envconfig:"FF_SNAPSHOT_COMPRESSION" default:"false"`
		AutoLogin           bool `envconfig:"FF_AUTO_LOGIN" default:"true"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// AllowedOriginList splits ALLOWED_ORIGINS on commas, dropping blanks.
func (c Config) AllowedOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.Configuration.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// SearchDebounce returns the suggestion debounce window.
func (c Config) SearchDebounce() time.Duration {
	return time.Duration(c.Configuration.SearchDebounceMs) * time.Millisecond
}

// AudioTickInterval returns the cadence of time-update events.
func (c Config) AudioTickInterval() time.Duration {
	return time.Duration(c.Configuration.AudioTickIntervalMs) * time.Millisecond
}

// MusicServerTimeout returns the per-request timeout for the music server client.
func (c Config) MusicServerTimeout() time.Duration {
	return time.Duration(c.Configuration.MusicServerTimeoutSecs) * time.Second
}

// HasCredentials reports whether login credentials were configured.
func (c Config) HasCredentials() bool {
	return c.Configuration.MusicServerEmail != "" && c.Configuration.MusicServerPassword != ""
}
