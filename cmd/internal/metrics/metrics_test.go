package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusClass(t *testing.T) {
	t.Parallel()

	cases := map[int]string{200: "2xx", 201: "2xx", 404: "4xx", 429: "4xx", 503: "5xx", 0: "unknown", 700: "unknown"}
	for in, want := range cases {
		if got := StatusClass(in); got != want {
			t.Fatalf("StatusClass(%d)=%q want %q", in, got, want)
		}
	}
}

func TestMetrics_CountersAndHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveHTTP(http.MethodGet, "/invite/{token}", 200, 5*time.Millisecond)
	m.Tracked("open", TrackRecorded)
	m.Tracked("open", TrackRepeat)
	m.Tracked("open", TrackRepeat)
	m.GiftRecorded("khr", "cash")

	if got := testutil.ToFloat64(m.inviteTracking.WithLabelValues("open", TrackRepeat)); got != 2 {
		t.Fatalf("repeat opens=%v want 2", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/invite/{token}", "2xx")); got != 1 {
		t.Fatalf("http requests=%v want 1", got)
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{"guestlist_gifts_recorded_total", "guestlist_invite_tracking_total", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in exposition", want)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	m.Tracked("click", TrackError)
	m.InvitationResponded("approved")
	m.MaterializeFailed()
	m.RSVPSubmitted("confirmed")
	m.TokenRotated()
	m.GiftRecorded("usd", "khqr")
	m.RateLimited("/invite/{token}")
	if m.Registry() != nil {
		t.Fatalf("nil metrics must have nil registry")
	}
}
