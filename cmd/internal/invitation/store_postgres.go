package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const invitationColumns = `id, event_id, user_id, message, status, responded_at, created_at, updated_at`

// PostgresStore persists invitations in PostgreSQL.
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

func (s *PostgresStore) table() string { return storage.Ident(s.schema, "invitations") }

// Create inserts a pending invitation. The (event_id, user_id) unique constraint is the
// only duplicate check.
func (s *PostgresStore) Create(ctx context.Context, in CreateRecord) (Invitation, error) {
	const op = "invitation.Create"

	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table()+` (id, event_id, user_id, message, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'pending', $5, $5)
		RETURNING `+invitationColumns,
		in.ID, in.EventID, in.UserID, in.Message, in.CreatedAt,
	)
	inv, err := scanInvitation(row)
	if err != nil {
		if c, ok := storage.UniqueViolation(err); ok {
			if c == "uq_invitations_event_user" {
				return Invitation{}, errs.ConflictError{Op: op, Field: ConflictEventUser}
			}
			return Invitation{}, errs.ConflictError{Op: op, Field: "unique"}
		}
		if c, ok := storage.ForeignKeyViolation(err); ok {
			if strings.Contains(c, "user") {
				return Invitation{}, errs.NotFound(op, "user")
			}
			return Invitation{}, errs.NotFound(op, "event")
		}
		return Invitation{}, err
	}
	return inv, nil
}

// Get fetches an invitation by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+`
		   FROM `+s.table()+`
		  WHERE id = $1`,
		id,
	)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invitation{}, errs.NotFound("invitation.Get", "invitation")
		}
		return Invitation{}, err
	}
	return inv, nil
}

// Transition performs the guarded status change in one statement. When nothing is updated,
// a follow-up read distinguishes a missing row from one that already responded.
func (s *PostgresStore) Transition(ctx context.Context, in TransitionRecord) (Invitation, error) {
	const op = "invitation.Transition"

	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.table()+`
		    SET status = $1,
		        responded_at = $2,
		        updated_at = $2
		  WHERE id = $3
		    AND status = 'pending'
		RETURNING `+invitationColumns,
		string(in.To), in.Now, in.ID,
	)
	inv, err := scanInvitation(row)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Invitation{}, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.table()+` WHERE id = $1)`,
		in.ID,
	).Scan(&exists); err != nil {
		return Invitation{}, err
	}
	if !exists {
		return Invitation{}, errs.NotFound(op, "invitation")
	}
	return Invitation{}, errNotPending
}

// Delete removes an invitation.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("invitation.Delete", "invitation")
	}
	return nil
}

// List returns a filtered page, newest first, plus the total count.
func (s *PostgresStore) List(ctx context.Context, f Filter, limit, offset int) ([]Invitation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	where, args := buildFilter(f)

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+s.table()+where,
		args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []Invitation{}, 0, nil
	}
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	rows, err := s.pool.Query(ctx,
		`SELECT `+invitationColumns+`
		   FROM `+s.table()+where+`
		  ORDER BY created_at DESC, id DESC
		  LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Invitation, 0, limit)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func buildFilter(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.EventID != "" {
		add("event_id", f.EventID)
	}
	if f.UserID != "" {
		add("user_id", f.UserID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanInvitation(row pgx.Row) (Invitation, error) {
	var (
		inv    Invitation
		status string
	)
	if err := row.Scan(
		&inv.ID,
		&inv.EventID,
		&inv.UserID,
		&inv.Message,
		&status,
		&inv.RespondedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		return Invitation{}, err
	}
	inv.Status = Status(status)
	return inv, nil
}
