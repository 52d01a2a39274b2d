package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestAdmitAndRecordEnforcesQuota needs a real Postgres with the user_usage
// table; it skips unless TEST_DATABASE_URL is set.
func TestAdmitAndRecordEnforcesQuota(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skip database integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	defer pool.Close()

	repo := NewUsageRepo(pool)
	userID := fmt.Sprintf("test-user-%d", time.Now().UnixNano())
	since := time.Now().Add(-time.Hour)
	const quota = 3

	for i := 1; i <= quota; i++ {
		count, err := repo.AdmitAndRecord(ctx, userID, "audio_analysis", 1000, since, quota)
		if err != nil {
			t.Fatalf("admission %d returned error: %v", i, err)
		}
		if count != i {
			t.Fatalf("admission %d: expected count %d, got %d", i, i, count)
		}
	}

	count, err := repo.AdmitAndRecord(ctx, userID, "audio_analysis", 1000, since, quota)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded after %d admissions, got count=%d err=%v", quota, count, err)
	}
	if count != quota {
		t.Fatalf("expected rejected admission to report count %d, got %d", quota, count)
	}

	total, err := repo.CountSince(ctx, userID, since)
	if err != nil {
		t.Fatalf("CountSince returned error: %v", err)
	}
	if total != quota {
		t.Fatalf("rejected admission must not write an event: expected %d events, got %d", quota, total)
	}
}
