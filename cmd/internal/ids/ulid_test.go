package ids

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	a, err := New(now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(a) != 26 {
		t.Fatalf("expected 26 chars, got %d", len(a))
	}
	if !Valid(a) {
		t.Fatalf("expected %q to be valid", a)
	}

	later, err := New(now.Add(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if later <= a {
		t.Fatalf("expected later id to sort after earlier: %q <= %q", later, a)
	}
}

func TestValid_Rejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "short", "not-a-ulid-not-a-ulid-1234"} {
		if Valid(in) {
			t.Fatalf("Valid(%q)=true", in)
		}
	}
}
