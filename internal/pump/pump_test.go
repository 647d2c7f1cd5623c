package pump

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"playermap/internal/domain"
	"playermap/internal/scene"
	"playermap/internal/service"
)

var quiet = log.New(io.Discard, "", 0)

// fakeClock is advanced by hand
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newPump(t *testing.T) (*Pump, *scene.Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := scene.NewMemory()
	svc, err := service.NewTrackerService(service.DefaultConfig(), service.Deps{
		Graph: m, Factory: m, Logger: quiet,
	}, clock.Now())
	if err != nil {
		t.Fatalf("NewTrackerService: %v", err)
	}
	return New(svc, Config{Now: clock.Now}, quiet), m, clock
}

func TestStepTicksAndPublishes(t *testing.T) {
	p, m, clock := newPump(t)
	id := m.MustAdd(domain.GraphNode{
		Name: "PlayerAvatar", Active: true, SceneValid: true,
		Position: domain.Vec3{X: 10, Z: 5},
	})

	p.Step(context.Background())
	if p.Snapshot().Root != nil {
		t.Fatal("expected no root inside the grace window")
	}

	clock.Advance(2 * time.Second)
	res := p.Step(context.Background())
	if !res.Resolved {
		t.Fatalf("expected root resolved, got %+v", res)
	}

	snap := p.Snapshot()
	if snap.Root == nil || snap.Root.Node.InstanceID != id {
		t.Fatalf("expected root %d in snapshot, got %+v", id, snap.Root)
	}
	if snap.Scan.Phase != domain.PhaseSucceeded {
		t.Errorf("expected succeeded, got %s", snap.Scan.Phase)
	}
	if p.Frames() != 2 {
		t.Errorf("expected 2 frames, got %d", p.Frames())
	}
	if !p.LastTick().Scanned {
		t.Error("expected last tick to record the scan")
	}
}

func TestRequestRearmRunsOnNextFrame(t *testing.T) {
	p, m, clock := newPump(t)
	m.MustAdd(domain.GraphNode{
		Name: "PlayerAvatar", Active: true, SceneValid: true,
		Position: domain.Vec3{X: 10, Z: 5},
	})

	clock.Advance(2 * time.Second)
	p.Step(context.Background())
	if p.Snapshot().Root == nil {
		t.Fatal("expected root before rearm")
	}

	if err := p.RequestRearm("scene file changed: lobby.yaml"); err != nil {
		t.Fatalf("RequestRearm: %v", err)
	}
	// Queued, not applied yet
	if p.Snapshot().Root == nil {
		t.Fatal("rearm must wait for the pump")
	}

	p.Step(context.Background())
	snap := p.Snapshot()
	if snap.Root != nil {
		t.Error("expected root cleared by rearm")
	}
	if snap.Scan.Phase != domain.PhaseArmed || snap.Scan.Reason != "scene file changed: lobby.yaml" {
		t.Errorf("unexpected scan state %+v", snap.Scan)
	}
}

func TestManualScanWaitsForPump(t *testing.T) {
	p, m, _ := newPump(t)
	m.MustAdd(domain.GraphNode{Name: "PlayerAvatar", Active: true, SceneValid: true})

	done := make(chan struct{})
	var (
		report domain.ScanReport
		err    error
	)
	go func() {
		defer close(done)
		report, err = p.ManualScan(context.Background())
	}()

	// Wait for the request to land in the queue, then run a frame
	deadline := time.Now().Add(2 * time.Second)
	for len(p.commands) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("manual scan never queued")
		}
		time.Sleep(time.Millisecond)
	}
	p.Step(context.Background())
	<-done

	if err != nil {
		t.Fatalf("ManualScan: %v", err)
	}
	if report.Trigger != domain.TriggerManual || report.NameHits != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if p.Snapshot().Scan.AttemptsUsed != 0 {
		t.Error("manual scan must not consume scheduled attempts")
	}
}

func TestManualScanContextCanceled(t *testing.T) {
	p, _, _ := newPump(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.ManualScan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestQueueFull(t *testing.T) {
	p, _, _ := newPump(t)
	for i := 0; i < queueSize; i++ {
		if err := p.RequestManualScan(); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := p.RequestRearm("overflow"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m := scene.NewMemory()
	svc, err := service.NewTrackerService(service.DefaultConfig(), service.Deps{
		Graph: m, Factory: m, Logger: quiet,
	}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	p := New(svc, Config{FrameInterval: time.Millisecond}, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for p.Frames() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("pump did not produce frames")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if reason := p.Snapshot().Scan.Reason; reason != "start" {
		t.Errorf("expected start rearm, got %q", reason)
	}
}
