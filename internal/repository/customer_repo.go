package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRepository maps Stripe customer IDs to user IDs. The linkage is
// written once when a customer is created and read-only afterwards.
type CustomerRepository interface {
	// GetUserID resolves a Stripe customer ID to a user ID. Returns "" with a
	// nil error when no linkage exists.
	GetUserID(ctx context.Context, customerID string) (string, error)
	// GetCustomerID resolves a user ID to their Stripe customer ID. Returns ""
	// with a nil error when the user has no customer yet.
	GetCustomerID(ctx context.Context, userID string) (string, error)
	// Link records the customer->user mapping. Re-linking an existing customer
	// is a no-op.
	Link(ctx context.Context, customerID, userID string) error
}

type customerRepo struct {
	pool *pgxpool.Pool
}

// NewCustomerRepo creates a new CustomerRepository.
func NewCustomerRepo(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepo{pool: pool}
}

func (r *customerRepo) GetUserID(ctx context.Context, customerID string) (string, error) {
	const q = `SELECT user_id FROM stripe_customers WHERE customer_id = $1`
	var userID string
	err := r.pool.QueryRow(ctx, q, customerID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup user for customer %s: %w", customerID, err)
	}
	return userID, nil
}

func (r *customerRepo) GetCustomerID(ctx context.Context, userID string) (string, error) {
	const q = `SELECT customer_id FROM stripe_customers WHERE user_id = $1`
	var customerID string
	err := r.pool.QueryRow(ctx, q, userID).Scan(&customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup customer for user %s: %w", userID, err)
	}
	return customerID, nil
}

func (r *customerRepo) Link(ctx context.Context, customerID, userID string) error {
	const q = `
		INSERT INTO stripe_customers (customer_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (customer_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, q, customerID, userID); err != nil {
		return fmt.Errorf("link customer %s to user %s: %w", customerID, userID, err)
	}
	return nil
}
