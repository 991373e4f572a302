package ops_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/internal/ops"
)

var thresholds = ops.Thresholds{
	StuckNew:            15 * time.Minute,
	SilentBroadcast:     20 * time.Minute,
	StalledConfirmation: 10 * time.Minute,
	FlagThreshold:       3,
	RateFloor:           0.85,
	RateTarget:          0.90,
}

func request(status string, verified bool, age time.Duration, responses int, now time.Time) ops.RequestRow {
	return ops.RequestRow{
		ID:                  uuid.New(),
		Status:              status,
		PhoneVerified:       verified,
		AuditBundleComplete: true,
		ResponseCount:       responses,
		CreatedAt:           now.Add(-age),
		LastStateChangeAt:   now.Add(-age),
	}
}

func TestIntegrityOnEmptySnapshot(t *testing.T) {
	got := ops.ComputeIntegrity(ops.Snapshot{})
	if got.Score != 100 {
		t.Errorf("score = %d, expected 100 on zero requests", got.Score)
	}
}

func TestIntegrityRounding(t *testing.T) {
	now := time.Now()
	snap := ops.Snapshot{Requests: []ops.RequestRow{
		request("New", true, 0, 0, now),
		request("New", true, 0, 0, now),
		request("New", false, 0, 0, now),
	}}

	got := ops.ComputeIntegrity(snap)
	if got.Score != 67 {
		t.Errorf("score = %d, expected 67", got.Score)
	}
	if got.Verified != 2 || got.Total != 3 {
		t.Errorf("verified/total = %d/%d, expected 2/3", got.Verified, got.Total)
	}
}

func TestAuditVacuouslyReady(t *testing.T) {
	got := ops.ComputeAudit(ops.Snapshot{})
	if !got.Ready {
		t.Error("expected audit readiness to be vacuously true on zero requests")
	}
}

func TestAuditOneIncompleteBreaksReadiness(t *testing.T) {
	now := time.Now()
	complete := request("New", true, 0, 0, now)
	incomplete := request("New", true, 0, 0, now)
	incomplete.AuditBundleComplete = false

	got := ops.ComputeAudit(ops.Snapshot{Requests: []ops.RequestRow{complete, incomplete}})
	if got.Ready {
		t.Error("expected readiness to fail with one incomplete bundle")
	}
	if got.Incomplete != 1 {
		t.Errorf("incomplete = %d, expected 1", got.Incomplete)
	}
}

func TestAttentionThresholds(t *testing.T) {
	now := time.Now()
	snap := ops.Snapshot{Requests: []ops.RequestRow{
		request("New", true, 16*time.Minute, 0, now),                // stuck
		request("New", true, 14*time.Minute, 0, now),                // under threshold
		request("New", false, time.Hour, 0, now),                    // unverified, ignored
		request("Broadcasted", true, 21*time.Minute, 0, now),        // silent
		request("Broadcasted", true, 21*time.Minute, 2, now),        // has replies
		request("Provider Confirmed", true, 11*time.Minute, 0, now), // stalled
		request("In Progress", true, time.Hour, 3, now),             // locked, never flagged
	}}

	got := ops.ComputeAttention(snap, thresholds, now)
	if got.Total != 3 {
		t.Fatalf("total = %d, expected 3; items: %+v", got.Total, got.Items)
	}

	counts := make(map[string]int)
	for _, item := range got.Items {
		counts[item.Signal]++
	}

	for signal, expected := range map[string]int{
		ops.SignalStuckNew:            1,
		ops.SignalSilentBroadcast:     1,
		ops.SignalStalledConfirmation: 1,
	} {
		if counts[signal] != expected {
			t.Errorf("%s = %d, expected %d", signal, counts[signal], expected)
		}
	}
}

func TestRiskBands(t *testing.T) {
	provider := func(flags int, rate float64, status string) ops.ProviderRow {
		return ops.ProviderRow{
			ID:           uuid.New(),
			CompanyName:  "P",
			Status:       status,
			ConductFlags: flags,
			ResponseRate: rate,
		}
	}

	snap := ops.Snapshot{Providers: []ops.ProviderRow{
		provider(2, 0.95, "Active"),  // conduct watch
		provider(1, 0.95, "Active"),  // clean
		provider(3, 0.95, "Observed"), // already demoted, not one-below
		provider(0, 0.85, "Active"),  // floor is inclusive
		provider(0, 0.89, "Active"),  // inside band
		provider(0, 0.90, "Active"),  // target is exclusive
		provider(2, 0.85, "Removed"), // removed providers are ignored
	}}

	got := ops.ComputeRisk(snap, thresholds)
	if len(got.ConductWatch) != 1 {
		t.Errorf("conduct watch = %d, expected 1", len(got.ConductWatch))
	}
	if len(got.ResponseWatch) != 2 {
		t.Errorf("response watch = %d, expected 2", len(got.ResponseWatch))
	}
}

func TestFlowTalliesAndThroughput(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	completedToday := request("Completed", true, time.Hour, 1, now)
	completedYesterday := request("Completed", true, 30*time.Hour, 1, now)

	snap := ops.Snapshot{Requests: []ops.RequestRow{
		request("New", true, time.Hour, 0, now),
		request("New", true, 48*time.Hour, 0, now),
		completedToday,
		completedYesterday,
	}}

	got := ops.ComputeFlow(snap, now)
	if got.ByStatus["New"] != 2 || got.ByStatus["Completed"] != 2 {
		t.Errorf("by_status = %v, expected 2 New and 2 Completed", got.ByStatus)
	}
	if got.CreatedToday != 2 {
		t.Errorf("created_today = %d, expected 2", got.CreatedToday)
	}
	if got.CompletedToday != 1 {
		t.Errorf("completed_today = %d, expected 1", got.CompletedToday)
	}
}
