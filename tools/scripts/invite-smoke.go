// Package main provides a CI-friendly HTTP smoke test for the guestlist invite flow.
//
// It runs against a live server with seeded directory data and validates:
//   - requester creates an invitation, a duplicate is rejected
//   - host approves and the guest is materialized
//   - the invite token renders, tracks and accepts RSVPs
//   - token rotation invalidates the old token
//   - a gift is recorded and flips has_given_gift
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type smokeClient struct {
	base    string
	http    *http.Client
	secret  []byte
	verbose bool
}

func main() {
	var (
		baseURL   = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		secret    = flag.String("secret", os.Getenv("GUESTLIST_AUTH_JWT_SECRET"), "HS256 secret shared with the server")
		hostID    = flag.String("host", "host", "User id of the event host")
		requester = flag.String("requester", "u1", "User id of the requester")
		eventID   = flag.String("event", "e1", "Event id to request an invitation for")
		timeout   = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose   = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if len(*secret) < 32 {
		fatalf("-secret must be at least 32 bytes")
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: *timeout},
		secret:  []byte(*secret),
		verbose: *verbose,
	}

	var inv struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	c.mustCall(http.MethodPost, "/invitations", *requester, map[string]any{"event_id": *eventID, "message": "smoke"}, http.StatusCreated, &inv)
	expect(inv.Status == "pending", "new invitation status=%q", inv.Status)
	c.mustCall(http.MethodPost, "/invitations", *requester, map[string]any{"event_id": *eventID}, http.StatusConflict, nil)

	var approved struct {
		Status            string `json:"status"`
		GuestMaterialized *bool  `json:"guest_materialized"`
	}
	c.mustCall(http.MethodPatch, "/invitations/"+inv.ID+"/status", *hostID, map[string]any{"status": "approved"}, http.StatusOK, &approved)
	expect(approved.Status == "approved", "approved status=%q", approved.Status)
	expect(approved.GuestMaterialized != nil && *approved.GuestMaterialized, "guest not materialized")

	var g struct {
		ID          string `json:"id"`
		InviteToken string `json:"invite_token"`
		Status      string `json:"status"`
	}
	c.mustCall(http.MethodPost, "/invitations/"+inv.ID+"/materialize", *hostID, nil, http.StatusOK, &g)
	expect(g.Status == "confirmed", "guest status=%q", g.Status)

	c.mustCall(http.MethodGet, "/invite/"+g.InviteToken, "", nil, http.StatusOK, nil)
	c.mustCall(http.MethodGet, "/invite/"+g.InviteToken+"/track/open", "", nil, http.StatusOK, nil)
	c.mustCall(http.MethodPost, "/invite/"+g.InviteToken+"/track/click", "", nil, http.StatusOK, nil)
	c.mustCall(http.MethodPost, "/invite/"+g.InviteToken+"/rsvp", "", map[string]any{"status": "declined"}, http.StatusOK, nil)

	var rsvp struct {
		Status string `json:"status"`
	}
	c.mustCall(http.MethodPost, "/invite/"+g.InviteToken+"/rsvp", "", map[string]any{"status": "confirmed", "message": "see you"}, http.StatusOK, &rsvp)
	expect(rsvp.Status == "confirmed", "rsvp status=%q", rsvp.Status)

	var rotated struct {
		Token string `json:"token"`
	}
	c.mustCall(http.MethodPost, "/invite/guest/"+g.ID+"/regenerate-token", *hostID, nil, http.StatusOK, &rotated)
	c.mustCall(http.MethodGet, "/invite/"+g.InviteToken, "", nil, http.StatusNotFound, nil)
	c.mustCall(http.MethodGet, "/invite/"+rotated.Token, "", nil, http.StatusOK, nil)

	c.mustCall(http.MethodPost, "/guests/"+g.ID+"/gifts", *hostID, map[string]any{"payment_method": "cash", "currency": "khr", "amount": -5}, http.StatusBadRequest, nil)
	c.mustCall(http.MethodPost, "/guests/"+g.ID+"/gifts", *hostID, map[string]any{"payment_method": "cash", "currency": "khr", "amount": "50000"}, http.StatusCreated, nil)

	var after struct {
		HasGivenGift bool `json:"has_given_gift"`
	}
	c.mustCall(http.MethodGet, "/guests/"+g.ID, *hostID, nil, http.StatusOK, &after)
	expect(after.HasGivenGift, "has_given_gift not set after gift")

	// Leave the event clean for the next run.
	c.mustCall(http.MethodDelete, "/guests/"+g.ID, *hostID, nil, http.StatusOK, nil)
	c.mustCall(http.MethodDelete, "/invitations/"+inv.ID, *requester, nil, http.StatusOK, nil)

	fmt.Println("invite smoke: OK")
}

func (c *smokeClient) mustCall(method, path, actor string, body any, wantStatus int, out any) {
	status, raw, err := c.call(method, path, actor, body)
	if err != nil {
		fatalf("%s %s: %v", method, redact(path), err)
	}
	if status != wantStatus {
		fatalf("%s %s: status=%d want=%d body=%s", method, redact(path), status, wantStatus, truncate(raw, 300))
	}
	if c.verbose {
		fmt.Printf("ok %s %s -> %d\n", method, redact(path), status)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fatalf("%s %s: decode: %v", method, redact(path), err)
		}
	}
}

func (c *smokeClient) call(method, path, actor string, body any) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		tok, err := c.sign(actor)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

// sign mints a short-lived HS256 operator token the way the identity service does.
func (c *smokeClient) sign(sub string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// redact keeps invite tokens out of CI logs.
func redact(path string) string {
	const prefix = "/invite/"
	if !strings.HasPrefix(path, prefix) || strings.HasPrefix(path, prefix+"guest/") {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + "{token}" + rest[i:]
	}
	return prefix + "{token}"
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func expect(ok bool, format string, args ...any) {
	if !ok {
		fatalf(format, args...)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "invite smoke: "+format+"\n", args...)
	os.Exit(1)
}
