package guest

import (
	"context"
	"errors"
	"strings"
	"time"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const guestColumns = `id, event_id, user_id, name, email, phone, status, invite_token,
       opened_at, clicked_at, notes, has_given_gift, created_at, updated_at`

// PostgresStore persists guests in PostgreSQL.
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

func (s *PostgresStore) table() string { return storage.Ident(s.schema, "guests") }

// Create inserts a new guest record.
func (s *PostgresStore) Create(ctx context.Context, in CreateRecord) (Guest, error) {
	const op = "guest.Create"

	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.InviteToken) == "" || strings.TrimSpace(in.EventID) == "" {
		return Guest{}, errs.Invalid(op, "missing id, event or token")
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table()+` (
		     id, event_id, user_id, name, email, phone, status, invite_token, notes, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING `+guestColumns,
		in.ID,
		in.EventID,
		in.UserID,
		in.Name,
		in.Email,
		in.Phone,
		string(in.Status),
		in.InviteToken,
		in.Notes,
		in.CreatedAt,
	)
	g, err := scanGuest(row)
	if err != nil {
		return Guest{}, classifyWriteErr(op, err)
	}
	return g, nil
}

// Get fetches a guest by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Guest, error) {
	return s.getOne(ctx, "guest.Get", `id = $1`, id)
}

// GetByToken fetches a guest by invite token.
func (s *PostgresStore) GetByToken(ctx context.Context, token string) (Guest, error) {
	return s.getOne(ctx, "guest.GetByToken", `invite_token = $1`, token)
}

// GetByEventUser fetches the guest materialized for (eventID, userID).
func (s *PostgresStore) GetByEventUser(ctx context.Context, eventID, userID string) (Guest, error) {
	const op = "guest.GetByEventUser"

	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+guestColumns+`
		   FROM `+s.table()+`
		  WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	g, err := scanGuest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guest{}, errs.NotFound(op, "guest")
		}
		return Guest{}, err
	}
	return g, nil
}

func (s *PostgresStore) getOne(ctx context.Context, op, where, arg string) (Guest, error) {
	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	if strings.TrimSpace(arg) == "" {
		return Guest{}, errs.NotFound(op, "guest")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+guestColumns+`
		   FROM `+s.table()+`
		  WHERE `+where,
		arg,
	)
	g, err := scanGuest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guest{}, errs.NotFound(op, "guest")
		}
		return Guest{}, err
	}
	return g, nil
}

// ListByEvent returns an event's guests, newest first.
func (s *PostgresStore) ListByEvent(ctx context.Context, eventID string) ([]Guest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+guestColumns+`
		   FROM `+s.table()+`
		  WHERE event_id = $1
		  ORDER BY created_at DESC, id DESC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Guest, 0, 16)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Delete removes a guest; its gifts cascade.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("guest.Delete", "guest")
	}
	return nil
}

// MarkOpened sets opened_at only when it is still NULL.
func (s *PostgresStore) MarkOpened(ctx context.Context, token string, now time.Time) (bool, error) {
	return s.markFirstTouch(ctx, "opened_at", token, now)
}

// MarkClicked sets clicked_at only when it is still NULL.
func (s *PostgresStore) MarkClicked(ctx context.Context, token string, now time.Time) (bool, error) {
	return s.markFirstTouch(ctx, "clicked_at", token, now)
}

func (s *PostgresStore) markFirstTouch(ctx context.Context, column, token string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	col := pgx.Identifier{column}.Sanitize()
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table()+`
		    SET `+col+` = $1,
		        updated_at = $1
		  WHERE invite_token = $2
		    AND `+col+` IS NULL`,
		now, token,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateRSVP sets status (and notes when given) for the token's guest.
func (s *PostgresStore) UpdateRSVP(ctx context.Context, in RSVPRecord) (Guest, error) {
	const op = "guest.UpdateRSVP"

	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.table()+`
		    SET status = $1,
		        notes = COALESCE($2, notes),
		        updated_at = $3
		  WHERE invite_token = $4
		RETURNING `+guestColumns,
		string(in.Status), in.Notes, in.Now, in.Token,
	)
	g, err := scanGuest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guest{}, errs.NotFound(op, "guest")
		}
		return Guest{}, err
	}
	return g, nil
}

// RotateToken overwrites the invite token in one statement.
func (s *PostgresStore) RotateToken(ctx context.Context, id, newToken string, now time.Time) (Guest, error) {
	const op = "guest.RotateToken"

	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	if strings.TrimSpace(newToken) == "" {
		return Guest{}, errs.Invalid(op, "empty token")
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.table()+`
		    SET invite_token = $1,
		        updated_at = $2
		  WHERE id = $3
		RETURNING `+guestColumns,
		newToken, now, id,
	)
	g, err := scanGuest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guest{}, errs.NotFound(op, "guest")
		}
		return Guest{}, classifyWriteErr(op, err)
	}
	return g, nil
}

// SetHasGivenGift stores the derived gift indicator.
func (s *PostgresStore) SetHasGivenGift(ctx context.Context, id string, has bool, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table()+`
		    SET has_given_gift = $1,
		        updated_at = CASE WHEN has_given_gift = $1 THEN updated_at ELSE $2 END
		  WHERE id = $3`,
		has, now, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("guest.SetHasGivenGift", "guest")
	}
	return nil
}

func scanGuest(row pgx.Row) (Guest, error) {
	var (
		g      Guest
		status string
	)
	err := row.Scan(
		&g.ID,
		&g.EventID,
		&g.UserID,
		&g.Name,
		&g.Email,
		&g.Phone,
		&status,
		&g.InviteToken,
		&g.OpenedAt,
		&g.ClickedAt,
		&g.Notes,
		&g.HasGivenGift,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return Guest{}, err
	}
	g.Status = Status(status)
	return g, nil
}

func classifyWriteErr(op string, err error) error {
	if c, ok := storage.UniqueViolation(err); ok {
		switch {
		case c == "uq_guests_event_user":
			return errs.ConflictError{Op: op, Field: ConflictEventUser}
		case c == "uq_guests_invite_token", strings.Contains(c, "token"):
			return errs.ConflictError{Op: op, Field: ConflictInviteToken}
		default:
			return errs.ConflictError{Op: op, Field: "unique"}
		}
	}
	if c, ok := storage.ForeignKeyViolation(err); ok {
		switch {
		case strings.Contains(c, "user"):
			return errs.NotFound(op, "user")
		default:
			return errs.NotFound(op, "event")
		}
	}
	return err
}
