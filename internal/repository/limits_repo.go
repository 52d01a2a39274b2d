package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BoweryJG/mUiLinguistics/internal/model"
	"github.com/BoweryJG/mUiLinguistics/internal/tier"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultResetGrace is how far in the future a newly synthesized free-tier
// row sets its usage_reset_date.
const defaultResetGrace = 30 * 24 * time.Hour

// LimitsRepository reads and writes a user's entitlement row.
type LimitsRepository interface {
	// Get returns the user's limits, creating the free-tier default row if
	// none exists. Safe to call concurrently for the same new user.
	Get(ctx context.Context, userID string) (*model.UserLimits, error)
	// Upsert replaces the user's tier, quota, size limit and reset date,
	// creating the row if absent. Writes carrying a subscription version older
	// than the stored one are dropped.
	Upsert(ctx context.Context, limits model.UserLimits) error
}

type limitsRepo struct {
	pool *pgxpool.Pool
}

// NewLimitsRepo creates a new LimitsRepository.
func NewLimitsRepo(pool *pgxpool.Pool) LimitsRepository {
	return &limitsRepo{pool: pool}
}

const selectLimitsQ = `
	SELECT user_id, tier, monthly_quota, max_file_size, usage_reset_date, subscription_version, created_at, updated_at
	FROM user_limits
	WHERE user_id = $1
`

func (r *limitsRepo) Get(ctx context.Context, userID string) (*model.UserLimits, error) {
	ul, err := r.scanLimits(ctx, userID)
	if err == nil {
		return ul, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fetch limits for user %s: %w", userID, err)
	}

	// First contact: synthesize the free-tier default. ON CONFLICT DO NOTHING
	// makes the insert a no-op when a concurrent request got there first; the
	// re-read below returns whichever row won.
	free := tier.LimitsFor(tier.Free)
	const insertQ = `
		INSERT INTO user_limits (user_id, tier, monthly_quota, max_file_size, usage_reset_date, subscription_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	resetDate := time.Now().Add(defaultResetGrace)
	if _, err := r.pool.Exec(ctx, insertQ, userID, string(tier.Free), free.MonthlyQuota, free.MaxFileSize, resetDate); err != nil {
		return nil, fmt.Errorf("create default limits for user %s: %w", userID, err)
	}

	ul, err = r.scanLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("re-read limits for user %s: %w", userID, err)
	}
	return ul, nil
}

func (r *limitsRepo) scanLimits(ctx context.Context, userID string) (*model.UserLimits, error) {
	var ul model.UserLimits
	err := r.pool.QueryRow(ctx, selectLimitsQ, userID).Scan(
		&ul.UserID,
		&ul.Tier,
		&ul.MonthlyQuota,
		&ul.MaxFileSize,
		&ul.UsageResetDate,
		&ul.SubscriptionVersion,
		&ul.CreatedAt,
		&ul.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ul, nil
}

func (r *limitsRepo) Upsert(ctx context.Context, limits model.UserLimits) error {
	// The WHERE clause on the conflict update drops stale snapshots: a
	// redelivered or out-of-order event with an older version leaves the row
	// untouched, so entitlement converges to the latest known subscription
	// state regardless of delivery order.
	const q = `
		INSERT INTO user_limits (user_id, tier, monthly_quota, max_file_size, usage_reset_date, subscription_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier,
			monthly_quota = EXCLUDED.monthly_quota,
			max_file_size = EXCLUDED.max_file_size,
			usage_reset_date = EXCLUDED.usage_reset_date,
			subscription_version = EXCLUDED.subscription_version,
			updated_at = NOW()
		WHERE user_limits.subscription_version <= EXCLUDED.subscription_version
	`
	_, err := r.pool.Exec(ctx, q,
		limits.UserID,
		limits.Tier,
		limits.MonthlyQuota,
		limits.MaxFileSize,
		limits.UsageResetDate,
		limits.SubscriptionVersion,
	)
	if err != nil {
		return fmt.Errorf("upsert limits for user %s: %w", limits.UserID, err)
	}
	return nil
}
