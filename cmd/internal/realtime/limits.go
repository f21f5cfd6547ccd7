package realtime

import "time"

const (
	// Hosts only listen; inbound frames are tiny keep-alives at most.
	maxFrameBytes = 4 << 10

	defaultSendQueue = 64
	minSendQueue     = 8

	defaultWriteTimeout = 5 * time.Second
	closeGrace          = 1 * time.Second

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second
	maxPingFailures   = 3

	// Per-connection inbound frame budget.
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second
)
