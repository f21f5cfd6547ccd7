package app

import (
	"errors"

	"guestlist/cmd/security/token"
)

// ValidateSecurityConfig enforces the security policy at startup.
//
// Fail fast: a production deployment that asked for keyed token fingerprints must not
// silently fall back to plain SHA-256.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Raw bytes, not runes: the key is used as-is.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: GUESTLIST_REQUIRE_TOKEN_HMAC=true but GUESTLIST_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: GUESTLIST_REQUIRE_TOKEN_HMAC=true but GUESTLIST_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: GUESTLIST_REQUIRE_TOKEN_HMAC=true but token fingerprints are not keyed")
	}

	return nil
}
