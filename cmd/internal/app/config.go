package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"guestlist/cmd/internal/api"
	"guestlist/cmd/internal/realtime"
	"guestlist/cmd/internal/storage"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string `env:"GUESTLIST_HTTP_ADDR" envDefault:"0.0.0.0:8080"`

	LogLevel      string `env:"GUESTLIST_LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"GUESTLIST_LOG_FORMAT" envDefault:"json"`
	LogFile       string `env:"GUESTLIST_LOG_FILE"`
	LogMaxSizeMB  int    `env:"GUESTLIST_LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"GUESTLIST_LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"GUESTLIST_LOG_MAX_AGE_DAYS" envDefault:"28"`

	ReadHeaderTimeout time.Duration `env:"GUESTLIST_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"GUESTLIST_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"GUESTLIST_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"GUESTLIST_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	MaxHeaderBytes    int           `env:"GUESTLIST_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	DatabaseURL       string `env:"GUESTLIST_DATABASE_URL"`
	DBSchema          string `env:"GUESTLIST_DB_SCHEMA" envDefault:"guestlist"`
	DBMaxConns        int32  `env:"GUESTLIST_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32  `env:"GUESTLIST_DB_MIN_CONNS" envDefault:"0"`
	DBMigrate         bool   `env:"GUESTLIST_DB_MIGRATE" envDefault:"false"`
	DBConnectAttempts uint   `env:"GUESTLIST_DB_CONNECT_ATTEMPTS" envDefault:"5"`

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool `env:"GUESTLIST_READINESS_REQUIRE_DB" envDefault:"false"`

	// If true, GUESTLIST_TOKEN_HMAC_KEY must be set (>= 32 bytes) so token fingerprints
	// in logs are keyed.
	RequireTokenHMAC bool `env:"GUESTLIST_REQUIRE_TOKEN_HMAC" envDefault:"false"`

	AuthMode        string `env:"GUESTLIST_AUTH_MODE" envDefault:"jwt"`
	AuthJWTSecret   string `env:"GUESTLIST_AUTH_JWT_SECRET"`
	AuthJWTIssuer   string `env:"GUESTLIST_AUTH_JWT_ISSUER"`
	AuthJWTAudience string `env:"GUESTLIST_AUTH_JWT_AUDIENCE"`
	AuthUserHeader  string `env:"GUESTLIST_AUTH_USER_HEADER" envDefault:"X-User-ID"`

	TrustProxy       bool          `env:"GUESTLIST_TRUST_PROXY" envDefault:"false"`
	MaxBodyBytes     int64         `env:"GUESTLIST_MAX_BODY_BYTES" envDefault:"1048576"`
	InviteRateLimit  int           `env:"GUESTLIST_INVITE_RATE_LIMIT" envDefault:"60"`
	InviteRateWindow time.Duration `env:"GUESTLIST_INVITE_RATE_WINDOW" envDefault:"1m"`

	// DirectorySeed is a JSON file loaded into the in-memory directory when no DB is configured.
	DirectorySeed string `env:"GUESTLIST_DIRECTORY_SEED"`

	CORSAllowedOrigins   []string `env:"GUESTLIST_CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"GUESTLIST_CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	CORSMaxAgeSeconds    int      `env:"GUESTLIST_CORS_MAX_AGE_SECONDS" envDefault:"600"`

	// Host live activity feed over WebSocket. Allowed origins follow the CORS list.
	LiveEnabled           bool          `env:"GUESTLIST_LIVE_ENABLED" envDefault:"true"`
	LiveSendQueue         int           `env:"GUESTLIST_LIVE_SEND_QUEUE" envDefault:"64"`
	LiveHeartbeatInterval time.Duration `env:"GUESTLIST_LIVE_HEARTBEAT_INTERVAL" envDefault:"25s"`
	LiveHeartbeatTimeout  time.Duration `env:"GUESTLIST_LIVE_HEARTBEAT_TIMEOUT" envDefault:"5s"`
}

const (
	authModeJWT    = "jwt"
	authModeHeader = "header"
)

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: GUESTLIST_HTTP_ADDR is empty")
	}
	switch c.LogFormat {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("config: GUESTLIST_LOG_FORMAT must be json or pretty, got %q", c.LogFormat)
	}
	if !storage.ValidIdent(c.DBSchema) {
		return fmt.Errorf("config: GUESTLIST_DB_SCHEMA %q is not a valid identifier", c.DBSchema)
	}
	if c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns {
		return errors.New("config: GUESTLIST_DB_MIN_CONNS exceeds GUESTLIST_DB_MAX_CONNS")
	}
	if c.DBMigrate && c.DatabaseURL == "" {
		return errors.New("config: GUESTLIST_DB_MIGRATE requires GUESTLIST_DATABASE_URL")
	}
	switch c.AuthMode {
	case authModeJWT:
		if strings.TrimSpace(c.AuthJWTSecret) == "" {
			return errors.New("config: GUESTLIST_AUTH_MODE=jwt requires GUESTLIST_AUTH_JWT_SECRET")
		}
	case authModeHeader:
		if strings.TrimSpace(c.AuthUserHeader) == "" {
			return errors.New("config: GUESTLIST_AUTH_MODE=header requires GUESTLIST_AUTH_USER_HEADER")
		}
	default:
		return fmt.Errorf("config: GUESTLIST_AUTH_MODE must be jwt or header, got %q", c.AuthMode)
	}
	if c.InviteRateLimit < 0 || c.InviteRateWindow < 0 {
		return errors.New("config: invite rate limit values must not be negative")
	}
	if c.LiveEnabled && c.LiveHeartbeatTimeout >= c.LiveHeartbeatInterval && c.LiveHeartbeatInterval > 0 {
		return errors.New("config: GUESTLIST_LIVE_HEARTBEAT_TIMEOUT must be shorter than GUESTLIST_LIVE_HEARTBEAT_INTERVAL")
	}
	return nil
}

// APIConfig projects the HTTP API settings.
func (c Config) APIConfig() api.Config {
	return api.Config{
		TrustProxy:       c.TrustProxy,
		MaxBodyBytes:     c.MaxBodyBytes,
		InviteRateLimit:  c.InviteRateLimit,
		InviteRateWindow: c.InviteRateWindow,
	}
}

// LiveConfig projects the live gateway settings.
func (c Config) LiveConfig() realtime.GatewayConfig {
	return realtime.GatewayConfig{
		AllowedOrigins:   c.CORSAllowedOrigins,
		SendQueueSize:    c.LiveSendQueue,
		HeartbeatEvery:   c.LiveHeartbeatInterval,
		HeartbeatTimeout: c.LiveHeartbeatTimeout,
	}
}
