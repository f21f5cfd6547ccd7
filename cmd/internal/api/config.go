package api

import "time"

const (
	defaultMaxBodyBytes     = 1 << 20 // 1 MiB
	defaultInviteRateLimit  = 60
	defaultInviteRateWindow = time.Minute
)

// Config controls HTTP API behavior and abuse limits.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// InviteRateLimit caps requests per client IP on the public /invite endpoints
	// within InviteRateWindow. Zero or less falls back to the default.
	InviteRateLimit  int
	InviteRateWindow time.Duration
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:     defaultMaxBodyBytes,
		InviteRateLimit:  defaultInviteRateLimit,
		InviteRateWindow: defaultInviteRateWindow,
	}
}

func (c Config) normalize() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.InviteRateLimit <= 0 {
		c.InviteRateLimit = defaultInviteRateLimit
	}
	if c.InviteRateWindow <= 0 {
		c.InviteRateWindow = defaultInviteRateWindow
	}
	return c
}
