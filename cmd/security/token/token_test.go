package token

import (
	"encoding/base64"
	"testing"
)

func TestNewInviteToken(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		tok, err := NewInviteToken()
		if err != nil {
			t.Fatalf("NewInviteToken: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("expected base64url token, decode failed: %v", err)
		}
		if len(raw) != InviteTokenBytes {
			t.Fatalf("expected %d bytes of entropy, got %d", InviteTokenBytes, len(raw))
		}
		if !LooksValid(tok) {
			t.Fatalf("LooksValid(%q)=false", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token generated")
		}
		seen[tok] = struct{}{}
	}
}

func TestLooksValid_Rejects(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"short",
		"this-token-has-the-right-length-but-bad-ch!",
	}
	for _, in := range cases {
		if LooksValid(in) {
			t.Fatalf("LooksValid(%q)=true", in)
		}
	}
}

func TestFingerprint_SHAMode(t *testing.T) {
	t.Setenv(HMACEnvKey, "")

	fp := Fingerprint("abc")
	if len(fp) != fingerprintLen {
		t.Fatalf("expected %d chars, got %q", fingerprintLen, fp)
	}
	if fp != HashSHA256Hex("abc")[:fingerprintLen] {
		t.Fatalf("expected SHA-256 prefix, got %q", fp)
	}
	if Fingerprint("") != "" {
		t.Fatalf("expected empty fingerprint for empty token")
	}
}

func TestFingerprint_HMACMode(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	t.Setenv(HMACEnvKey, key)

	if !HMACEnabled() {
		t.Fatalf("expected HMAC mode")
	}
	want := HashHMACSHA256Hex("abc", []byte(key))[:fingerprintLen]
	if got := Fingerprint("abc"); got != want {
		t.Fatalf("Fingerprint()=%q want=%q", got, want)
	}
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "  ")
	if _, err := HMACKeyFromEnv(32); err != ErrHMACKeyMissing {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(32); err != ErrHMACKeyTooShort {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")
	if _, err := HMACKeyFromEnv(32); err != nil {
		t.Fatalf("expected key accepted, got %v", err)
	}
}
