package sqlite

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"playermap/internal/domain"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory journal for testing
func newTestRepo(t *testing.T, retention int) *Repository {
	t.Helper()
	repo, err := New(MemoryDSN, retention)
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// ============================================================================
// Scans
// ============================================================================

func TestRecordAndListScans(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	hits := []domain.ClassificationHit{
		{
			Node: domain.GraphNode{
				InstanceID: 7, Name: "Visuals", TypeNames: []string{"PlayerAvatar"},
				Active: true, SceneValid: true, Position: domain.Vec3{X: 10, Z: 5}, ParentID: 3,
			},
			MatchedBy: domain.MatchTypeName,
			Keyword:   "player",
			TypeName:  "PlayerAvatar",
		},
	}
	first := domain.ScanReport{
		Trigger: domain.TriggerScheduled, Attempt: 1, TypeHits: 1,
		Started: t0, Duration: 3 * time.Millisecond,
	}
	second := domain.ScanReport{
		Trigger: domain.TriggerManual, Started: t0.Add(time.Second), Err: "enumerate behaviours: boom",
	}

	assertNoError(t, repo.RecordScan(ctx, first, hits))
	assertNoError(t, repo.RecordScan(ctx, second, nil))

	scans, err := repo.ListScans(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, 2, len(scans))

	// Newest first
	assertEqual(t, second, scans[0].Report)
	assertEqual(t, 0, len(scans[0].Hits))
	assertEqual(t, first, scans[1].Report)
	assertEqual(t, hits, scans[1].Hits)

	limited, err := repo.ListScans(ctx, 1)
	assertNoError(t, err)
	assertEqual(t, 1, len(limited))
	assertEqual(t, domain.TriggerManual, limited[0].Report.Trigger)
}

func TestListScansEmpty(t *testing.T) {
	repo := newTestRepo(t, 0)

	scans, err := repo.ListScans(context.Background(), 10)
	assertNoError(t, err)
	if scans == nil {
		t.Fatal("expected empty slice, not nil")
	}
	assertEqual(t, 0, len(scans))
}

func TestZeroStartedRoundTrips(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	assertNoError(t, repo.RecordScan(ctx, domain.ScanReport{Trigger: domain.TriggerManual}, nil))
	scans, err := repo.ListScans(ctx, 1)
	assertNoError(t, err)
	if !scans[0].Report.Started.IsZero() {
		t.Errorf("expected zero start time, got %s", scans[0].Report.Started)
	}
}

// ============================================================================
// Events
// ============================================================================

func TestRecordAndListEvents(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	assertNoError(t, repo.RecordEvent(ctx, "rearmed", "phase=armed attempts=0/30 reason=start", t0))
	assertNoError(t, repo.RecordEvent(ctx, "root_resolved", "", t0.Add(2*time.Second)))

	events, err := repo.ListEvents(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, 2, len(events))
	assertEqual(t, "root_resolved", events[0].Kind)
	assertEqual(t, "", events[0].Detail)
	assertEqual(t, "rearmed", events[1].Kind)
	if !events[1].At.Equal(t0) {
		t.Errorf("expected %s, got %s", t0, events[1].At)
	}
}

// ============================================================================
// Retention and Clear
// ============================================================================

func TestRetentionPrunesOldest(t *testing.T) {
	repo := newTestRepo(t, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		assertNoError(t, repo.RecordScan(ctx, domain.ScanReport{
			Trigger: domain.TriggerScheduled, Attempt: i, Started: t0,
		}, nil))
		assertNoError(t, repo.RecordEvent(ctx, fmt.Sprintf("e%d", i), "", t0))
	}

	scans, err := repo.ListScans(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, 3, len(scans))
	assertEqual(t, 5, scans[0].Report.Attempt)
	assertEqual(t, 3, scans[2].Report.Attempt)

	events, err := repo.ListEvents(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, 3, len(events))
	assertEqual(t, "e3", events[2].Kind)
}

func TestClear(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	assertNoError(t, repo.RecordScan(ctx, domain.ScanReport{Trigger: domain.TriggerManual, Started: t0}, nil))
	assertNoError(t, repo.RecordEvent(ctx, "rearmed", "start", t0))
	assertNoError(t, repo.Clear(ctx))

	scans, err := repo.ListScans(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, 0, len(scans))

	events, err := repo.ListEvents(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, 0, len(events))
}

func TestCanceledContext(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.RecordEvent(ctx, "rearmed", "", t0); err == nil {
		t.Error("expected error with canceled context")
	}
}
