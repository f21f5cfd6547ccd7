package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, cfg GatewayConfig) (*Gateway, *httptest.Server) {
	t.Helper()

	g := NewGateway(testLogger(), NewHub(testLogger()), cfg)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Serve(w, r, r.URL.Query().Get("event"), "host-1")
	}))
	t.Cleanup(srv.Close)
	return g, srv
}

func wsURL(srv *httptest.Server, eventID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?event=" + eventID
}

func readEnvelopeT(t *testing.T, ctx context.Context, conn *websocket.Conn) Envelope {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestGatewayHelloThenActivity(t *testing.T) {
	g, srv := newTestGateway(t, GatewayConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, "ev1"), &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	hello := readEnvelopeT(t, ctx, conn)
	require.Equal(t, TypeHello, hello.Type)
	var hp helloPayload
	require.NoError(t, json.Unmarshal(hello.Payload, &hp))
	require.Equal(t, "ev1", hp.EventID)
	require.NotEmpty(t, hp.SessionID)
	require.Equal(t, 1, hp.Subscribers)

	g.Hub().Publish(Activity{Type: TypeGiftRecorded, EventID: "ev1", GuestID: "g1", GiftID: "gf1"})

	env := readEnvelopeT(t, ctx, conn)
	require.Equal(t, TypeGiftRecorded, env.Type)
	require.Contains(t, string(env.Payload), `"gift_id":"gf1"`)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return g.Hub().Subscribers("ev1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestGatewayRejectsMissingSubprotocol(t *testing.T) {
	_, srv := newTestGateway(t, GatewayConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, "ev1"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	_, _, err = conn.Read(ctx)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestGatewayClosesChattyClient(t *testing.T) {
	g, srv := newTestGateway(t, GatewayConfig{RateEvents: 2, RateWindow: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, "ev1"), &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	_ = readEnvelopeT(t, ctx, conn)
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{}`)))
	}

	_, _, err = conn.Read(ctx)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
	require.Eventually(t, func() bool { return g.Hub().Subscribers("ev1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestGatewayRejectsForeignOrigin(t *testing.T) {
	_, srv := newTestGateway(t, GatewayConfig{AllowedOrigins: []string{"https://app.example.com"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := http.Header{}
	h.Set("Origin", "https://evil.example.net")
	_, resp, err := websocket.Dial(ctx, wsURL(srv, "ev1"), &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   h,
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{
		"https://app.example.com",
		"http://localhost:*",
		"HTTP://LOCALHOST:*",
		"http://127.0.0.1:3000",
		"",
	})
	require.Equal(t, []string{"127.0.0.1:3000", "app.example.com", "localhost:*"}, got)
	require.Equal(t, []string{"*"}, originPatterns([]string{"*"}))
}

func TestGatewayHubCloseDisconnects(t *testing.T) {
	g, srv := newTestGateway(t, GatewayConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, "ev1"), &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	_ = readEnvelopeT(t, ctx, conn)
	g.Hub().Close()

	_, _, err = conn.Read(ctx)
	require.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
