// Package pgtest provides Postgres integration-test helpers shared by the store packages.
//
// Integration tests are enabled when GUESTLIST_DATABASE_URL is set.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.
package pgtest

import (
	"context"
	"crypto/rand"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"guestlist/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// EnvDatabaseURL enables integration tests when set.
const EnvDatabaseURL = "GUESTLIST_DATABASE_URL"

// DB is a migrated, throwaway schema on the integration database.
type DB struct {
	Pool   *pgxpool.Pool
	Schema string
}

// Open connects, creates a fresh schema, applies the embedded migrations and
// registers cleanup. It skips the test when integration is disabled.
func Open(t *testing.T, prefix string) DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	if dsn == "" {
		t.Skipf("integration test skipped: %s not set", EnvDatabaseURL)
	}

	pool := mustOpenPool(t, dsn)
	schema := prefix + "_it_" + strings.ToLower(NewULID(t))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := storage.Migrate(ctx, dsn, schema); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_, _ = pool.Exec(dropCtx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
		pool.Close()
	})

	return DB{Pool: pool, Schema: schema}
}

// InsertUser inserts a directory user row.
func (db DB) InsertUser(t *testing.T, id, name string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	users := storage.Ident(db.Schema, "users")
	if _, err := db.Pool.Exec(ctx, `INSERT INTO `+users+` (id, name, created_at) VALUES ($1, $2, now())`, id, name); err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

// InsertEvent inserts a directory event row.
func (db DB) InsertEvent(t *testing.T, id, hostID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events := storage.Ident(db.Schema, "events")
	if _, err := db.Pool.Exec(ctx, `INSERT INTO `+events+` (id, host_id, title, created_at) VALUES ($1, $2, $3, now())`, id, hostID, "Event "+id); err != nil {
		t.Fatalf("insert event: %v", err)
	}
}

// NewULID returns a fresh ULID for fixtures.
func NewULID(t *testing.T) string {
	t.Helper()
	id := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), ulid.Monotonic(rand.Reader, 0)).String()
	if len(id) != 26 {
		t.Fatalf("expected ULID length 26, got %d", len(id))
	}
	return id
}

func mustOpenPool(t *testing.T, dsn string) *pgxpool.Pool {
	t.Helper()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse %s: %v", EnvDatabaseURL, err)
	}
	cfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable: %v", err)
		}
		t.Fatalf("new pool: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (%s set): %v", EnvDatabaseURL, err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}
