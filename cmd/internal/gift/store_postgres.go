package gift

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

// amount is read back as text so the two-decimal form parses exactly.
const giftColumns = `id, guest_id, event_id, payment_method, currency, amount::text, note, receipt_image, created_at, updated_at`

// PostgresStore persists gifts in PostgreSQL.
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

func (s *PostgresStore) table() string { return storage.Ident(s.schema, "gifts") }

// Create inserts a gift.
func (s *PostgresStore) Create(ctx context.Context, in CreateRecord) (Gift, error) {
	const op = "gift.Create"

	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table()+` (
		     id, guest_id, event_id, payment_method, currency, amount, note, receipt_image, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $9)
		RETURNING `+giftColumns,
		in.ID,
		in.GuestID,
		in.EventID,
		string(in.PaymentMethod),
		string(in.Currency),
		in.Amount.String(),
		in.Note,
		in.ReceiptImage,
		in.CreatedAt,
	)
	g, err := scanGift(row)
	if err != nil {
		if c, ok := storage.ForeignKeyViolation(err); ok {
			if strings.Contains(c, "guest") {
				return Gift{}, errs.NotFound(op, "guest")
			}
			return Gift{}, errs.NotFound(op, "event")
		}
		if _, ok := storage.UniqueViolation(err); ok {
			return Gift{}, errs.ConflictError{Op: op, Field: "id"}
		}
		return Gift{}, err
	}
	return g, nil
}

// Get fetches a gift by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Gift, error) {
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+giftColumns+`
		   FROM `+s.table()+`
		  WHERE id = $1`,
		id,
	)
	g, err := scanGift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Gift{}, errs.NotFound("gift.Get", "gift")
		}
		return Gift{}, err
	}
	return g, nil
}

// Update applies the non-nil fields of in in one statement. An empty note or receipt
// clears the column.
func (s *PostgresStore) Update(ctx context.Context, in UpdateRecord) (Gift, error) {
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}

	sets := []string{"updated_at = $1"}
	args := []any{in.Now}
	set := func(col string, v any, cast string) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", col, len(args), cast))
	}
	if in.PaymentMethod != nil {
		set("payment_method", string(*in.PaymentMethod), "")
	}
	if in.Currency != nil {
		set("currency", string(*in.Currency), "")
	}
	if in.Amount != nil {
		set("amount", in.Amount.String(), "::numeric")
	}
	if in.Note != nil {
		set("note", clearable(in.Note), "")
	}
	if in.ReceiptImage != nil {
		set("receipt_image", clearable(in.ReceiptImage), "")
	}
	args = append(args, in.ID)

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.table()+`
		    SET `+strings.Join(sets, ", ")+`
		  WHERE id = $`+fmt.Sprint(len(args))+`
		RETURNING `+giftColumns,
		args...,
	)
	g, err := scanGift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Gift{}, errs.NotFound("gift.Update", "gift")
		}
		return Gift{}, err
	}
	return g, nil
}

// Delete removes a gift and returns the removed row.
func (s *PostgresStore) Delete(ctx context.Context, id string) (Gift, error) {
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}
	row := s.pool.QueryRow(ctx,
		`DELETE FROM `+s.table()+`
		  WHERE id = $1
		RETURNING `+giftColumns,
		id,
	)
	g, err := scanGift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Gift{}, errs.NotFound("gift.Delete", "gift")
		}
		return Gift{}, err
	}
	return g, nil
}

// DeleteByGuest removes every gift of a guest.
func (s *PostgresStore) DeleteByGuest(ctx context.Context, guestID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE guest_id = $1`, guestID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ListByGuest returns a guest's gifts, newest first.
func (s *PostgresStore) ListByGuest(ctx context.Context, guestID string) ([]Gift, error) {
	return s.list(ctx, "guest_id", guestID)
}

// ListByEvent returns an event's gifts, newest first.
func (s *PostgresStore) ListByEvent(ctx context.Context, eventID string) ([]Gift, error) {
	return s.list(ctx, "event_id", eventID)
}

// CountByGuest counts a guest's gifts.
func (s *PostgresStore) CountByGuest(ctx context.Context, guestID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+s.table()+` WHERE guest_id = $1`,
		guestID,
	).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) list(ctx context.Context, column, value string) ([]Gift, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+giftColumns+`
		   FROM `+s.table()+`
		  WHERE `+pgx.Identifier{column}.Sanitize()+` = $1
		  ORDER BY created_at DESC, id DESC`,
		value,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Gift, 0, 8)
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGift(row pgx.Row) (Gift, error) {
	var (
		g        Gift
		method   string
		currency string
		amount   string
	)
	if err := row.Scan(
		&g.ID,
		&g.GuestID,
		&g.EventID,
		&method,
		&currency,
		&amount,
		&g.Note,
		&g.ReceiptImage,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		return Gift{}, err
	}
	a, err := ParseAmount(amount)
	if err != nil {
		return Gift{}, fmt.Errorf("gift: stored amount %q: %w", amount, err)
	}
	g.PaymentMethod = PaymentMethod(method)
	g.Currency = Currency(currency)
	g.Amount = a
	return g, nil
}
