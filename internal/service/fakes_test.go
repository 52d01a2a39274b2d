package service

import (
	"context"
	"time"

	"github.com/BoweryJG/mUiLinguistics/internal/model"
	"github.com/BoweryJG/mUiLinguistics/internal/repository"
	"github.com/BoweryJG/mUiLinguistics/internal/tier"
)

// fakeLimitsRepo is an in-memory LimitsRepository honoring the same contract
// as the Postgres one: default synthesis on miss and version-guarded upserts.
type fakeLimitsRepo struct {
	rows   map[string]*model.UserLimits
	getErr error
}

func newFakeLimitsRepo() *fakeLimitsRepo {
	return &fakeLimitsRepo{rows: make(map[string]*model.UserLimits)}
}

func (f *fakeLimitsRepo) Get(ctx context.Context, userID string) (*model.UserLimits, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if l, ok := f.rows[userID]; ok {
		cp := *l
		return &cp, nil
	}
	free := tier.LimitsFor(tier.Free)
	l := &model.UserLimits{
		UserID:         userID,
		Tier:           string(tier.Free),
		MonthlyQuota:   free.MonthlyQuota,
		MaxFileSize:    free.MaxFileSize,
		UsageResetDate: time.Now().Add(30 * 24 * time.Hour),
	}
	f.rows[userID] = l
	cp := *l
	return &cp, nil
}

func (f *fakeLimitsRepo) Upsert(ctx context.Context, limits model.UserLimits) error {
	if existing, ok := f.rows[limits.UserID]; ok && existing.SubscriptionVersion > limits.SubscriptionVersion {
		return nil
	}
	cp := limits
	f.rows[limits.UserID] = &cp
	return nil
}

// fakeUsageRepo is an in-memory append-only usage ledger.
type fakeUsageRepo struct {
	events    []model.UsageEvent
	insertErr error
}

func (f *fakeUsageRepo) count(userID string, since time.Time) int {
	n := 0
	for _, e := range f.events {
		if e.UserID != userID {
			continue
		}
		if since.IsZero() || !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

func (f *fakeUsageRepo) AdmitAndRecord(ctx context.Context, userID, requestType string, fileSize int64, since time.Time, quota int) (int, error) {
	count := f.count(userID, since)
	if quota > 0 && count >= quota {
		return count, repository.ErrQuotaExceeded
	}
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.events = append(f.events, model.UsageEvent{
		UserID:      userID,
		RequestType: requestType,
		FileSize:    fileSize,
		CreatedAt:   time.Now(),
	})
	return count + 1, nil
}

func (f *fakeUsageRepo) Append(ctx context.Context, userID, requestType string, fileSize int64) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.events = append(f.events, model.UsageEvent{
		UserID:      userID,
		RequestType: requestType,
		FileSize:    fileSize,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (f *fakeUsageRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return f.count(userID, since), nil
}

// fakeCustomerRepo is an in-memory customer->user linkage.
type fakeCustomerRepo struct {
	byCustomer map[string]string
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{byCustomer: make(map[string]string)}
}

func (f *fakeCustomerRepo) GetUserID(ctx context.Context, customerID string) (string, error) {
	return f.byCustomer[customerID], nil
}

func (f *fakeCustomerRepo) GetCustomerID(ctx context.Context, userID string) (string, error) {
	for c, u := range f.byCustomer {
		if u == userID {
			return c, nil
		}
	}
	return "", nil
}

func (f *fakeCustomerRepo) Link(ctx context.Context, customerID, userID string) error {
	if _, ok := f.byCustomer[customerID]; !ok {
		f.byCustomer[customerID] = userID
	}
	return nil
}
