package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrQuotaExceeded is returned when a user has reached their monthly quota.
var ErrQuotaExceeded = errors.New("quota_exceeded")

// UsageRepository is the append-only ledger of metered requests.
type UsageRepository interface {
	// AdmitAndRecord atomically counts the user's events since the reset date
	// and, if the count is below quota, records a new event. Returns the usage
	// count including the new event, or ErrQuotaExceeded with the current
	// count when the quota is reached. A zero since counts all events.
	AdmitAndRecord(ctx context.Context, userID, requestType string, fileSize int64, since time.Time, quota int) (int, error)
	// Append records one event without a quota check. Never retried
	// internally: a transient false-negative could double-count.
	Append(ctx context.Context, userID, requestType string, fileSize int64) error
	// CountSince counts the user's events with created_at >= since. A zero
	// since counts all events for the user.
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) AdmitAndRecord(ctx context.Context, userID, requestType string, fileSize int64, since time.Time, quota int) (int, error) {
	// Serializable so two concurrent admissions for the same user cannot both
	// read a below-quota count and both insert.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, fmt.Errorf("starting transaction for admission: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	count, err := countSince(ctx, tx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("counting usage for user %s: %w", userID, err)
	}
	if quota > 0 && count >= quota {
		return count, ErrQuotaExceeded
	}

	const insertQ = `INSERT INTO user_usage (user_id, request_type, file_size, created_at) VALUES ($1, $2, $3, NOW())`
	if _, err := tx.Exec(ctx, insertQ, userID, requestType, fileSize); err != nil {
		return 0, fmt.Errorf("recording usage event for user %s: %w", userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing usage event for user %s: %w", userID, err)
	}
	return count + 1, nil
}

func (r *usageRepo) Append(ctx context.Context, userID, requestType string, fileSize int64) error {
	const q = `INSERT INTO user_usage (user_id, request_type, file_size, created_at) VALUES ($1, $2, $3, NOW())`
	if _, err := r.pool.Exec(ctx, q, userID, requestType, fileSize); err != nil {
		return fmt.Errorf("recording usage event for user %s: %w", userID, err)
	}
	return nil
}

func (r *usageRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	count, err := countSince(ctx, r.pool, userID, since)
	if err != nil {
		return 0, fmt.Errorf("counting usage events for user %s: %w", userID, err)
	}
	return count, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countSince(ctx context.Context, q querier, userID string, since time.Time) (int, error) {
	var count int
	if since.IsZero() {
		const allQ = `SELECT COUNT(*) FROM user_usage WHERE user_id = $1`
		if err := q.QueryRow(ctx, allQ, userID).Scan(&count); err != nil {
			return 0, err
		}
		return count, nil
	}
	const sinceQ = `SELECT COUNT(*) FROM user_usage WHERE user_id = $1 AND created_at >= $2`
	if err := q.QueryRow(ctx, sinceQ, userID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
