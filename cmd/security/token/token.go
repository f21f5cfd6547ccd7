package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "GUESTLIST_TOKEN_HMAC_KEY"

	// InviteTokenBytes is the entropy carried by every invite token.
	InviteTokenBytes = 32

	fingerprintLen = 12
)

// NewInviteToken returns a cryptographically random, URL-safe invite token.
func NewInviteToken() (string, error) {
	return NewOpaqueToken(InviteTokenBytes)
}

// NewOpaqueToken returns nBytes of crypto/rand entropy as base64url without padding.
func NewOpaqueToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = InviteTokenBytes
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// LooksValid reports whether s has the shape of a token produced by NewInviteToken.
// It lets callers reject garbage before touching storage.
func LooksValid(s string) bool {
	if len(s) != base64.RawURLEncoding.EncodedLen(InviteTokenBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// HMACEnabled reports whether the env key is present (non-empty after trim).
// Note: This does not enforce minimum length. Use HMACKeyFromEnv for policy checks.
func HMACEnabled() bool {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	return raw != ""
}

// HashInviteTokenHex returns the full keyed digest of an invite token.
// Behavior:
//   - If GUESTLIST_TOKEN_HMAC_KEY is set (non-empty), uses HMAC-SHA256(token, key).
//   - Otherwise falls back to SHA-256(token) for dev.
func HashInviteTokenHex(tokenStr string) string {
	key := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if key == "" {
		return HashSHA256Hex(tokenStr)
	}
	return HashHMACSHA256Hex(tokenStr, []byte(key))
}

// Fingerprint returns a short, non-reversible tag for an invite token, safe to log.
func Fingerprint(tokenStr string) string {
	if tokenStr == "" {
		return ""
	}
	return HashInviteTokenHex(tokenStr)[:fingerprintLen]
}
