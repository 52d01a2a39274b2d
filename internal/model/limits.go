package model

import "time"

// UserLimits is a user's current entitlement: the tier they are subscribed to
// and the limits that tier grants for the current counting period. Exactly one
// row exists per known user; a default free-tier row is synthesized on first
// contact.
type UserLimits struct {
	UserID         string    `db:"user_id" json:"user_id"`
	Tier           string    `db:"tier" json:"tier"`
	MonthlyQuota   int       `db:"monthly_quota" json:"monthly_quota"`
	MaxFileSize    int64     `db:"max_file_size" json:"max_file_size"`
	UsageResetDate time.Time `db:"usage_reset_date" json:"usage_reset_date"`
	// SubscriptionVersion is the Stripe event timestamp of the last applied
	// subscription snapshot. Reconciliation events older than it are ignored.
	SubscriptionVersion int64     `db:"subscription_version" json:"-"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// UsageEvent is one metered request, append-only. The current-period usage
// count is always derived from these rows, never stored redundantly.
type UsageEvent struct {
	ID          int64     `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	RequestType string    `db:"request_type" json:"request_type"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UsageStats is the current/limit pair returned to clients for display.
type UsageStats struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
}

// AdmissionResult is the outcome of a metered request's quota check.
type AdmissionResult struct {
	Admitted bool       `json:"admitted"`
	Reason   string     `json:"reason,omitempty"`
	Usage    UsageStats `json:"usage"`
}

// UsageSummary is the account view of tier, usage and quota.
type UsageSummary struct {
	Tier      string    `json:"tier"`
	Usage     int       `json:"usage"`
	Quota     int       `json:"quota"`
	ResetDate time.Time `json:"reset_date"`
}
