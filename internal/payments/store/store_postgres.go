package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clubgate/internal/payments/models"
	"clubgate/pkg/platform/sentinel"
)

// PostgresStore persists markers in the processed_events table. The primary
// key on event_id is what makes InsertMarker an atomic claim.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertMarker(ctx context.Context, marker models.ProcessedEventMarker) error {
	const stmt = `INSERT INTO processed_events (event_id, type, received_at) VALUES ($1, $2, $3)`

	_, err := s.pool.Exec(ctx, stmt, marker.EventID, marker.Type, marker.ReceivedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert event marker: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasMarker(ctx context.Context, eventID string) (bool, error) {
	const query = `SELECT 1 FROM processed_events WHERE event_id = $1`

	var one int
	err := s.pool.QueryRow(ctx, query, eventID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check event marker: %w", err)
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
