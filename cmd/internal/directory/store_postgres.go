package directory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads directory rows written by the CRUD service.
// The pgx pool is owned by the caller; this store must NOT close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "guestlist").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !storage.ValidIdent(schema) {
			return errs.ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: storage.DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errs.ErrInvalidInput
	}
	return st, nil
}

// GetEvent fetches an event by id.
func (s *PostgresStore) GetEvent(ctx context.Context, id string) (Event, error) {
	const op = "directory.GetEvent"

	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Event{}, errs.NotFound(op, "event")
	}

	var (
		out    Event
		rawCfg []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, host_id, title, template_slug, user_template_config
		   FROM `+storage.Ident(s.schema, "events")+`
		  WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.HostID, &out.Title, &out.TemplateSlug, &rawCfg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, errs.NotFound(op, "event")
		}
		return Event{}, err
	}
	if len(rawCfg) > 0 {
		if err := json.Unmarshal(rawCfg, &out.UserTemplateConfig); err != nil {
			return Event{}, errs.OpError{Op: op, Kind: errs.ErrInvalidInput, Msg: "malformed user_template_config"}
		}
	}
	out.TemplateSlug = storage.TrimPtr(out.TemplateSlug)
	return out, nil
}

// GetUser fetches a user profile by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	const op = "directory.GetUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, errs.NotFound(op, "user")
	}

	var out User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, phone
		   FROM `+storage.Ident(s.schema, "users")+`
		  WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.Name, &out.Email, &out.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errs.NotFound(op, "user")
		}
		return User{}, err
	}
	return out, nil
}

// GetTemplate fetches a template by slug.
func (s *PostgresStore) GetTemplate(ctx context.Context, slug string) (Template, error) {
	const op = "directory.GetTemplate"

	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Template{}, errs.NotFound(op, "template")
	}

	var (
		out       Template
		rawAssets []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT slug, name, assets
		   FROM `+storage.Ident(s.schema, "templates")+`
		  WHERE slug = $1`,
		slug,
	).Scan(&out.Slug, &out.Name, &rawAssets)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, errs.NotFound(op, "template")
		}
		return Template{}, err
	}
	if len(rawAssets) > 0 {
		if err := json.Unmarshal(rawAssets, &out.Assets); err != nil {
			return Template{}, errs.OpError{Op: op, Kind: errs.ErrInvalidInput, Msg: "malformed assets"}
		}
	}
	return out, nil
}
