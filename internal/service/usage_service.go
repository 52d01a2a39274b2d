package service

import (
	"context"
	"errors"

	"github.com/BoweryJG/mUiLinguistics/internal/model"
	"github.com/BoweryJG/mUiLinguistics/internal/repository"
	"github.com/BoweryJG/mUiLinguistics/internal/tier"

	"github.com/rs/zerolog"
)

// ReasonQuotaExceeded is the rejection reason reported to clients when the
// monthly quota is used up.
const ReasonQuotaExceeded = "quota_exceeded"

// UsageService decides whether a metered request may proceed and reports
// current usage against the user's entitlement.
type UsageService interface {
	// Admit checks the user's current-period usage against their quota and,
	// if below it, records the request in the usage ledger. A non-nil error
	// means the request must be treated as failed even if the quota check
	// passed: an unrecorded admission would grant unmetered access.
	Admit(ctx context.Context, userID, requestType string, fileSize int64) (*model.AdmissionResult, error)
	// Summary returns the user's tier, current-period usage, quota and reset
	// date, degrading to free-tier defaults on store failure.
	Summary(ctx context.Context, userID string) (*model.UsageSummary, error)
	// Limits returns the user's entitlement, creating the default row for a
	// never-seen user.
	Limits(ctx context.Context, userID string) (*model.UserLimits, error)
}

type usageService struct {
	limitsRepo repository.LimitsRepository
	usageRepo  repository.UsageRepository
	logger     zerolog.Logger
}

// NewUsageService creates a new UsageService with a scoped logger.
func NewUsageService(limitsRepo repository.LimitsRepository, usageRepo repository.UsageRepository, logger zerolog.Logger) UsageService {
	return &usageService{
		limitsRepo: limitsRepo,
		usageRepo:  usageRepo,
		logger:     logger.With().Str("service", "UsageService").Logger(),
	}
}

func (s *usageService) Admit(ctx context.Context, userID, requestType string, fileSize int64) (*model.AdmissionResult, error) {
	limits := s.limitsOrDefault(ctx, userID)

	current, err := s.usageRepo.AdmitAndRecord(ctx, userID, requestType, fileSize, limits.UsageResetDate, limits.MonthlyQuota)
	if errors.Is(err, repository.ErrQuotaExceeded) {
		s.logger.Info().Str("user_id", userID).Int("quota", limits.MonthlyQuota).Msg("Admission rejected, quota exceeded")
		return &model.AdmissionResult{
			Admitted: false,
			Reason:   ReasonQuotaExceeded,
			Usage:    model.UsageStats{Current: current, Limit: limits.MonthlyQuota},
		}, nil
	}
	if err != nil {
		// The quota check may have passed, but an unrecorded event cannot be
		// admitted. Not retried here: the insert may have committed.
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to record usage event, admission failed")
		return nil, err
	}

	return &model.AdmissionResult{
		Admitted: true,
		Usage:    model.UsageStats{Current: current, Limit: limits.MonthlyQuota},
	}, nil
}

func (s *usageService) Summary(ctx context.Context, userID string) (*model.UsageSummary, error) {
	limits := s.limitsOrDefault(ctx, userID)

	usage, err := s.usageRepo.CountSince(ctx, userID, limits.UsageResetDate)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to count usage, reporting 0")
		usage = 0
	}

	return &model.UsageSummary{
		Tier:      limits.Tier,
		Usage:     usage,
		Quota:     limits.MonthlyQuota,
		ResetDate: limits.UsageResetDate,
	}, nil
}

func (s *usageService) Limits(ctx context.Context, userID string) (*model.UserLimits, error) {
	return s.limitsRepo.Get(ctx, userID)
}

// limitsOrDefault fetches the user's entitlement, falling back to free-tier
// limits when the store is unavailable. Degrading beats failing every metered
// request during a store blip.
func (s *usageService) limitsOrDefault(ctx context.Context, userID string) *model.UserLimits {
	limits, err := s.limitsRepo.Get(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user limits, using free-tier defaults")
		free := tier.LimitsFor(tier.Free)
		return &model.UserLimits{
			UserID:       userID,
			Tier:         string(tier.Free),
			MonthlyQuota: free.MonthlyQuota,
			MaxFileSize:  free.MaxFileSize,
		}
	}
	if limits.UsageResetDate.IsZero() {
		// The store accessor always sets a reset date on creation; a missing
		// one is a data-integrity defect. Counting all events is the safe
		// direction while it gets fixed.
		s.logger.Error().Str("user_id", userID).Msg("User limits row has no usage_reset_date, counting all usage")
	}
	return limits
}
