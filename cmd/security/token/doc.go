// Package token provides invite-token primitives for guestlist.
//
// It is the single source of truth for invite-token generation and for the
// fingerprints used to correlate log lines without exposing the bearer secret.
//
// Design goals:
//   - Tokens carry 32 bytes from crypto/rand, base64url encoded without padding.
//   - Default dev mode: fingerprints are SHA-256(token) when no HMAC key is configured.
//   - Production-enforced mode: HMAC-SHA256(token, key) when policy requires it.
//
// Environment:
//   - GUESTLIST_TOKEN_HMAC_KEY: when set, enables HMAC mode.
//
// Policy:
//   - If RequireTokenHMAC=true, callers MUST enforce a minimum key size (>= 32 bytes).
package token
