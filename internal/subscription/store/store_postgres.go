package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clubgate/internal/subscription/models"
	id "clubgate/pkg/domain"
	"clubgate/pkg/platform/sentinel"
)

// PostgresStore persists subscriptions in PostgreSQL. Activation is a single
// conditional UPDATE keyed by the gateway reference.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const subscriptionColumns = `id, subscription_type_id, purchaser_name, purchaser_email, valid_from, valid_to, gateway_subscription_id, status`

func (s *PostgresStore) Insert(ctx context.Context, sub models.Subscription) error {
	const stmt = `
INSERT INTO subscriptions (id, subscription_type_id, purchaser_name, purchaser_email, valid_from, valid_to, gateway_subscription_id, status)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`

	_, err := s.pool.Exec(ctx, stmt,
		sub.ID.String(),
		sub.SubscriptionTypeID,
		sub.PurchaserName,
		sub.PurchaserEmail,
		sub.ValidFrom,
		sub.ValidTo,
		sub.GatewaySubscriptionID,
		string(sub.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, subID id.SubscriptionID) (models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	sub, err := scanSubscription(s.pool.QueryRow(ctx, query, subID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Subscription{}, sentinel.ErrNotFound
		}
		return models.Subscription{}, fmt.Errorf("find subscription: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) ActivateByGatewayRef(ctx context.Context, gatewayRef string) (models.Subscription, bool, error) {
	stmt := `
UPDATE subscriptions
SET status = 'active'
WHERE gateway_subscription_id = $1 AND status <> 'active'
RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(s.pool.QueryRow(ctx, stmt, gatewayRef))
	if err == nil {
		return sub, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Subscription{}, false, fmt.Errorf("activate subscription: %w", err)
	}

	// Either already active (benign re-application) or the reference is
	// unknown; a follow-up read distinguishes the two.
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE gateway_subscription_id = $1`
	sub, err = scanSubscription(s.pool.QueryRow(ctx, query, gatewayRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Subscription{}, false, sentinel.ErrNotFound
		}
		return models.Subscription{}, false, fmt.Errorf("find subscription by gateway ref: %w", err)
	}
	return sub, false, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, subID id.SubscriptionID, status models.Status) error {
	const stmt = `UPDATE subscriptions SET status = $2 WHERE id = $1`

	tag, err := s.pool.Exec(ctx, stmt, subID.String(), string(status))
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanSubscription(row pgx.Row) (models.Subscription, error) {
	var (
		sub        models.Subscription
		rawID      string
		gatewayRef sql.NullString
		status     string
	)
	if err := row.Scan(&rawID, &sub.SubscriptionTypeID, &sub.PurchaserName, &sub.PurchaserEmail,
		&sub.ValidFrom, &sub.ValidTo, &gatewayRef, &status); err != nil {
		return models.Subscription{}, err
	}
	parsed, err := id.ParseSubscriptionID(rawID)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("corrupt subscription id %q: %w", rawID, err)
	}
	sub.ID = parsed
	sub.GatewaySubscriptionID = gatewayRef.String
	sub.Status = models.Status(status)
	return sub, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
