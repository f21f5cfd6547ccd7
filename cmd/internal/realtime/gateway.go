package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"guestlist/cmd/internal/ids"

	"github.com/coder/websocket"
)

// Subprotocol is the only WebSocket subprotocol the gateway speaks.
const Subprotocol = "guestlist.live.v1"

// GatewayConfig tunes the live gateway. Zero values take package defaults.
type GatewayConfig struct {
	// AllowedOrigins uses the same entries as the CORS allowlist
	// (e.g. "https://app.example.com", "http://localhost:*", "*").
	AllowedOrigins []string

	SendQueueSize    int
	WriteTimeout     time.Duration
	HeartbeatEvery   time.Duration
	HeartbeatTimeout time.Duration
	RateEvents       int
	RateWindow       time.Duration
}

func (c GatewayConfig) normalize() GatewayConfig {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = defaultSendQueue
	}
	if c.SendQueueSize < minSendQueue {
		c.SendQueueSize = minSendQueue
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.HeartbeatEvery <= 0 {
		c.HeartbeatEvery = heartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = heartbeatTimeout
	}
	if c.RateEvents <= 0 {
		c.RateEvents = rateLimitEvents
	}
	if c.RateWindow <= 0 {
		c.RateWindow = rateLimitWindow
	}
	return c
}

// Gateway upgrades authorized host requests into live activity subscriptions.
//
// Authentication and the host check happen before Serve; the gateway only owns the
// socket lifecycle.
type Gateway struct {
	log *slog.Logger
	hub *Hub
	cfg GatewayConfig

	// websocket.Accept allows same-host origins by itself; cross-origin needs patterns.
	originPatterns []string
}

// NewGateway constructs a Gateway bound to hub.
func NewGateway(log *slog.Logger, hub *Hub, cfg GatewayConfig) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	cfg = cfg.normalize()
	return &Gateway{
		log:            log,
		hub:            hub,
		cfg:            cfg,
		originPatterns: originPatterns(cfg.AllowedOrigins),
	}
}

// Hub returns the hub the gateway subscribes clients to.
func (g *Gateway) Hub() *Hub {
	if g == nil {
		return nil
	}
	return g.hub
}

type helloPayload struct {
	SessionID   string `json:"session_id"`
	EventID     string `json:"event_id"`
	Subscribers int    `json:"subscribers"`
}

// Serve runs one subscription until the peer leaves, the heartbeat fails, or r's
// context ends.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, eventID, userID string) {
	// Server read/write timeouts are sized for request/response, not long-lived sockets.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Info("live.accept.fail", "event_id", eventID, "origin", r.Header.Get("Origin"), "err", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	if sp := conn.Subprotocol(); sp != Subprotocol {
		g.log.Info("live.reject.subprotocol", "got", sp, "want", Subprotocol)
		_ = conn.Close(websocket.StatusPolicyViolation, "subprotocol required")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	now := time.Now().UTC()
	sessionID, err := ids.New(now)
	if err != nil {
		g.log.Error("live.session.fail", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	client := NewClient(userID, sessionID, g.cfg.SendQueueSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Unsubscribe(eventID, sessionID)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	g.hub.Subscribe(eventID, client)

	hello, err := newEnvelope(TypeHello, helloPayload{
		SessionID:   sessionID,
		EventID:     eventID,
		Subscribers: g.hub.Subscribers(eventID),
	}, now)
	if err == nil {
		enqueue(client, hello)
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				// Hub.Close or unsubscribe; no-op if already shutting down.
				shutdown(websocket.StatusGoingAway, "going away")
				return
			case env := <-client.Send:
				if err := writeEnvelope(ctx, conn, env, g.cfg.WriteTimeout); err != nil {
					g.log.Info("live.write.fail", "session_id", sessionID, "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.cfg.HeartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()
				if err != nil {
					failures++
					g.log.Info("live.ping.fail", "session_id", sessionID, "failures", failures, "err", err)
					if failures >= maxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	// Inbound frames carry nothing; reading keeps control frames flowing.
	rl := NewRateLimiter(g.cfg.RateEvents, g.cfg.RateWindow)
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			switch {
			case websocket.CloseStatus(err) != -1:
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				shutdown(websocket.StatusNormalClosure, "context done")
			case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF):
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
			default:
				g.log.Info("live.read.fail", "session_id", sessionID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			break
		}
		if !rl.Allow(time.Now().UTC()) {
			g.log.Info("live.rate_limited", "session_id", sessionID, "event_id", eventID)
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			break
		}
	}

	<-writerDone
	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
}

func enqueue(client *Client, env Envelope) bool {
	select {
	case <-client.Done():
		return false
	case client.Send <- env:
		return true
	default:
		return false
	}
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// originPatterns turns allowlist origins into the host[:port] patterns websocket.Accept
// matches with filepath.Match.
func originPatterns(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if p := originHostPattern(a); p != "" {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func originHostPattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if s == "*" {
		return "*"
	}
	if !strings.Contains(s, "://") {
		return s
	}

	// url.Parse rejects a "*" port, so keep it aside.
	wildPort := strings.HasSuffix(s, ":*")
	if wildPort {
		s = strings.TrimSuffix(s, ":*")
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	if wildPort {
		return u.Host + ":*"
	}
	return u.Host
}
