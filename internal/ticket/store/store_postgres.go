package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clubgate/internal/ticket/models"
	id "clubgate/pkg/domain"
	"clubgate/pkg/platform/sentinel"
)

// PostgresStore persists tickets in PostgreSQL. The redemption transition is a
// single conditional UPDATE; the WHERE clause is the compare-and-set.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, ticket models.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, event_id, tier_id, purchaser_name, purchaser_email, is_validated, validated_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, stmt,
		ticket.ID.String(),
		ticket.EventID,
		ticket.TierID,
		ticket.PurchaserName,
		ticket.PurchaserEmail,
		ticket.Validated,
		ticket.ValidatedAt,
		ticket.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, ticketID id.TicketID) (models.Ticket, error) {
	const query = `
SELECT id, event_id, tier_id, purchaser_name, purchaser_email, is_validated, validated_at, created_at
FROM tickets
WHERE id = $1`

	ticket, err := scanTicket(s.pool.QueryRow(ctx, query, ticketID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, sentinel.ErrNotFound
		}
		return models.Ticket{}, fmt.Errorf("find ticket: %w", err)
	}
	return ticket, nil
}

func (s *PostgresStore) RedeemIfUnvalidated(ctx context.Context, ticketID id.TicketID, at time.Time) (models.Ticket, error) {
	const stmt = `
UPDATE tickets
SET is_validated = TRUE, validated_at = $2
WHERE id = $1 AND is_validated = FALSE
RETURNING id, event_id, tier_id, purchaser_name, purchaser_email, is_validated, validated_at, created_at`

	ticket, err := scanTicket(s.pool.QueryRow(ctx, stmt, ticketID.String(), at))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Ticket{}, fmt.Errorf("redeem ticket: %w", err)
	}

	// No row matched: either the ticket is already validated or it does not
	// exist. Distinguish with a follow-up read; the transition itself has
	// already been decided atomically by the UPDATE above.
	if _, err := s.FindByID(ctx, ticketID); err != nil {
		return models.Ticket{}, err
	}
	return models.Ticket{}, sentinel.ErrAlreadyUsed
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var (
		t       models.Ticket
		rawID   string
		stamped *time.Time
	)
	if err := row.Scan(&rawID, &t.EventID, &t.TierID, &t.PurchaserName, &t.PurchaserEmail, &t.Validated, &stamped, &t.CreatedAt); err != nil {
		return models.Ticket{}, err
	}
	parsed, err := id.ParseTicketID(rawID)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("corrupt ticket id %q: %w", rawID, err)
	}
	t.ID = parsed
	t.ValidatedAt = stamped
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
