package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"playermap/internal/classify"
	"playermap/internal/domain"
	"playermap/internal/marker"
	"playermap/internal/resolve"
	"playermap/internal/scene"
	"playermap/internal/scheduler"
)

// Journal records scan passes and lifecycle events for diagnostics
type Journal interface {
	RecordScan(ctx context.Context, report domain.ScanReport, hits []domain.ClassificationHit) error
	RecordEvent(ctx context.Context, kind, detail string, at time.Time) error
}

// Config aggregates the settings of every engine component
type Config struct {
	Classifier classify.Config
	Scheduler  scheduler.Config
	Resolver   resolve.Config
	Markers    marker.Config
	// RetryOnUnresolved treats a hit with no surviving root as a miss, so
	// scanning continues under the attempt cap instead of stopping.
	RetryOnUnresolved bool
}

// DefaultConfig returns defaults for every component
func DefaultConfig() Config {
	return Config{
		Classifier: classify.DefaultConfig(),
		Scheduler:  scheduler.DefaultConfig(),
		Resolver:   resolve.DefaultConfig(),
		Markers:    marker.DefaultConfig(),
	}
}

// Deps are the collaborators injected into the tracker
type Deps struct {
	Graph   scene.Graph
	Factory marker.Factory
	Events  *EventBus
	Journal Journal
	Logger  *log.Logger
	Tracer  trace.Tracer
}

// TickResult describes what one tick did
type TickResult struct {
	Scanned        bool
	Attempt        int
	Report         domain.ScanReport
	Phase          domain.ScanPhase
	Resolved       bool
	MarkersCreated int
	Err            error
}

// Snapshot is a read-only copy of tracker state
type Snapshot struct {
	Ticks       uint64                 `json:"ticks"`
	TakenAt     time.Time              `json:"taken_at"`
	Scan        domain.ScanState       `json:"scan"`
	Root        *domain.TrackedRoot    `json:"root,omitempty"`
	RootLive    *domain.GraphNode      `json:"root_live,omitempty"`
	Markers     []domain.MarkerBinding `json:"markers"`
	LastReport  *domain.ScanReport     `json:"last_report,omitempty"`
	LastOutcome *resolve.Outcome       `json:"last_outcome,omitempty"`
	Keywords    []string               `json:"keywords"`
}

// TrackerService is the discovery-and-tracking controller. It is driven by a
// single goroutine; none of its methods are safe for concurrent use.
type TrackerService struct {
	graph      scene.Graph
	classifier *classify.Classifier
	scheduler  *scheduler.Scheduler
	resolver   *resolve.Resolver
	markers    *marker.Synchronizer
	events     *EventBus
	journal    Journal
	tracer     trace.Tracer
	logger     *log.Logger

	retryOnUnresolved bool

	root        *domain.TrackedRoot
	lastReport  *domain.ScanReport
	lastOutcome *resolve.Outcome
	ticks       uint64
}

// NewTrackerService builds the tracker and arms it at now
func NewTrackerService(cfg Config, deps Deps, now time.Time) (*TrackerService, error) {
	if deps.Graph == nil {
		return nil, errors.New("tracker: graph is required")
	}
	if deps.Factory == nil {
		return nil, errors.New("tracker: marker factory is required")
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Events == nil {
		deps.Events = NewEventBus()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("playermap/service")
	}

	sched, err := scheduler.New(cfg.Scheduler, now)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}

	return &TrackerService{
		graph:             deps.Graph,
		classifier:        classify.New(cfg.Classifier, deps.Logger),
		scheduler:         sched,
		resolver:          resolve.New(cfg.Resolver, deps.Logger),
		markers:           marker.New(cfg.Markers, deps.Factory, deps.Logger),
		events:            deps.Events,
		journal:           deps.Journal,
		tracer:            deps.Tracer,
		logger:            deps.Logger,
		retryOnUnresolved: cfg.RetryOnUnresolved,
	}, nil
}

// Tick runs one scheduling step followed by marker reconciliation
func (s *TrackerService) Tick(ctx context.Context, now time.Time) TickResult {
	s.ticks++
	var res TickResult

	if s.scheduler.Due(now) {
		res.Scanned = true
		res.Attempt = s.scheduler.Begin(now)
		found, report, err := s.scheduledPass(ctx, now, res.Attempt)
		res.Report = report
		res.Err = err
		res.Resolved = s.root != nil && found
		res.Phase = s.scheduler.Finish(found)

		if res.Phase == domain.PhaseExhausted {
			s.logger.Printf("tracker: scan exhausted after %d attempts, waiting for rearm", res.Attempt)
			s.publish(ctx, now, EventScanExhausted, s.scheduler.State())
		}
	} else {
		res.Phase = s.scheduler.Phase()
	}

	created, err := s.reconcileMarkers(ctx, now)
	res.MarkersCreated = created
	if err != nil && res.Err == nil {
		res.Err = err
	}
	return res
}

// scheduledPass classifies the graph and, on a hit, resolves the root exactly
// once. found is what the scheduler should record.
func (s *TrackerService) scheduledPass(ctx context.Context, now time.Time, attempt int) (bool, domain.ScanReport, error) {
	ctx, span := s.tracer.Start(ctx, "tracker.scan", trace.WithAttributes(
		attribute.Int("scan.attempt", attempt),
	))
	defer span.End()

	s.logger.Printf("tracker: scan tick #%d (max %d)", attempt, s.scheduler.Config().MaxAttempts)
	s.events.Publish(Event{Type: EventScanStarted, Payload: map[string]int{"attempt": attempt}})

	var (
		report domain.ScanReport
		hits   []domain.ClassificationHit
	)
	err := s.safely("scan", func() error {
		var err error
		report, hits, err = s.classifier.Scan(s.graph, domain.TriggerScheduled)
		return err
	})
	report.Attempt = attempt
	s.recordScan(ctx, &report, hits, err)

	span.SetAttributes(
		attribute.Int("scan.type_hits", report.TypeHits),
		attribute.Int("scan.name_hits", report.NameHits),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		s.publish(ctx, now, EventScanFailed, report)
		return false, report, err
	}

	s.events.Publish(Event{Type: EventScanCompleted, Payload: report})
	if !report.Found() {
		s.logger.Printf("tracker: no player-like objects yet (attempt %d)", attempt)
		return false, report, nil
	}

	s.logger.Printf("tracker: scan success (%d hits), resolving root", report.Total())
	resolved, err := s.resolveRoot(ctx, hits, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return false, report, err
	}
	if !resolved && s.retryOnUnresolved {
		s.logger.Printf("tracker: hits but no usable root, continuing to scan")
		return false, report, nil
	}
	return true, report, nil
}

func (s *TrackerService) resolveRoot(ctx context.Context, hits []domain.ClassificationHit, now time.Time) (bool, error) {
	_, span := s.tracer.Start(ctx, "tracker.resolve", trace.WithAttributes(
		attribute.Int("resolve.hits", len(hits)),
	))
	defer span.End()

	var (
		root    domain.TrackedRoot
		ok      bool
		outcome resolve.Outcome
	)
	err := s.safely("resolve", func() error {
		root, ok, outcome = s.resolver.Resolve(s.graph, hits, now)
		return nil
	})
	if err != nil {
		return false, err
	}
	s.lastOutcome = &outcome

	if !ok {
		s.publish(ctx, now, EventRootUnresolved, outcome)
		return false, nil
	}

	s.root = &root
	span.SetAttributes(
		attribute.Int64("resolve.root_id", root.Node.InstanceID),
		attribute.String("resolve.kind", root.Kind),
	)
	s.publish(ctx, now, EventRootResolved, root)
	return true, nil
}

func (s *TrackerService) reconcileMarkers(ctx context.Context, now time.Time) (int, error) {
	var res marker.Result
	err := s.safely("reconcile markers", func() error {
		var err error
		res, err = s.markers.Reconcile(s.graph, now)
		return err
	})
	if err != nil {
		s.logger.Printf("tracker: marker reconcile failed: %v", err)
		return 0, err
	}
	for _, b := range res.Created {
		s.publish(ctx, now, EventMarkerCreated, b)
	}
	return len(res.Created), nil
}

// ManualScan runs one classification pass immediately. It bypasses scheduler
// timing and leaves scheduler state and the tracked root untouched.
func (s *TrackerService) ManualScan(ctx context.Context, now time.Time) (domain.ScanReport, error) {
	ctx, span := s.tracer.Start(ctx, "tracker.manual_scan")
	defer span.End()

	s.logger.Printf("tracker: manual scan triggered")

	var (
		report domain.ScanReport
		hits   []domain.ClassificationHit
	)
	err := s.safely("manual scan", func() error {
		var err error
		report, hits, err = s.classifier.Scan(s.graph, domain.TriggerManual)
		return err
	})
	s.recordScan(ctx, &report, hits, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "manual scan failed")
	}
	s.publish(ctx, now, EventManualScan, report)
	return report, err
}

// Rearm is the single full-state reset: clear the root, destroy every marker
// and restart the scheduler's grace window.
func (s *TrackerService) Rearm(ctx context.Context, now time.Time, reason string) {
	s.logger.Printf("tracker: rearm (%s)", reason)

	s.root = nil
	s.lastOutcome = nil
	bound := s.markers.Len()
	destroyed := 0
	_ = s.safely("reset markers", func() error {
		destroyed = s.markers.Reset()
		return nil
	})
	if bound > 0 {
		s.publish(ctx, now, EventMarkersReset, map[string]int{"bound": bound, "destroyed": destroyed})
	}
	s.scheduler.Rearm(now, reason)

	s.publish(ctx, now, EventRearmed, s.scheduler.State())
}

// TrackedRoot returns the current root, if any
func (s *TrackerService) TrackedRoot() (domain.TrackedRoot, bool) {
	if s.root == nil {
		return domain.TrackedRoot{}, false
	}
	return *s.root, true
}

// RootLive looks up the tracked root in the host graph. ok is false when no
// root is tracked or the node has since been destroyed.
func (s *TrackerService) RootLive() (domain.GraphNode, bool) {
	if s.root == nil {
		return domain.GraphNode{}, false
	}
	return s.graph.Lookup(s.root.Node.InstanceID)
}

// Markers returns a copy of the binding map
func (s *TrackerService) Markers() map[int64]domain.MarkerBinding {
	return s.markers.Bindings()
}

// ScanState returns the scheduler state
func (s *TrackerService) ScanState() domain.ScanState {
	return s.scheduler.State()
}

// Snapshot copies all readable state
func (s *TrackerService) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Ticks:    s.ticks,
		TakenAt:  now,
		Scan:     s.scheduler.State(),
		Markers:  s.markers.SortedBindings(),
		Keywords: s.classifier.Keywords(),
	}
	if s.root != nil {
		root := *s.root
		snap.Root = &root
		if live, ok := s.graph.Lookup(root.Node.InstanceID); ok {
			snap.RootLive = &live
		}
	}
	if s.lastReport != nil {
		report := *s.lastReport
		snap.LastReport = &report
	}
	if s.lastOutcome != nil {
		outcome := *s.lastOutcome
		snap.LastOutcome = &outcome
	}
	return snap
}

func (s *TrackerService) recordScan(ctx context.Context, report *domain.ScanReport, hits []domain.ClassificationHit, err error) {
	if err != nil {
		report.Err = err.Error()
	}
	stored := *report
	s.lastReport = &stored

	if s.journal == nil {
		return
	}
	if jerr := s.journal.RecordScan(ctx, stored, hits); jerr != nil {
		s.logger.Printf("tracker: journal scan: %v", jerr)
	}
}

func (s *TrackerService) publish(ctx context.Context, now time.Time, kind EventType, payload interface{}) {
	s.events.Publish(Event{Type: kind, Payload: payload})

	if s.journal == nil {
		return
	}
	if err := s.journal.RecordEvent(ctx, string(kind), describe(payload), now); err != nil {
		s.logger.Printf("tracker: journal event %s: %v", kind, err)
	}
}

// safely runs fn, turning a panic into an error logged with its stack
func (s *TrackerService) safely(what string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("tracker: %s panicked: %v\n%s", what, r, debug.Stack())
			err = fmt.Errorf("%s panicked: %v", what, r)
		}
	}()
	if err = fn(); err != nil {
		s.logger.Printf("tracker: %s failed: %v", what, err)
	}
	return err
}

func describe(payload interface{}) string {
	switch p := payload.(type) {
	case domain.TrackedRoot:
		return fmt.Sprintf("root %q (%d) kind=%s pos=%s", p.Node.Name, p.Node.InstanceID, p.Kind, p.Node.Position)
	case domain.MarkerBinding:
		return fmt.Sprintf("marker %d on anchor %d (%s)", p.Marker, p.AnchorID, p.AnchorPath)
	case domain.ScanState:
		return fmt.Sprintf("phase=%s attempts=%d/%d reason=%s", p.Phase, p.AttemptsUsed, p.MaxAttempts, p.Reason)
	case domain.ScanReport:
		return fmt.Sprintf("trigger=%s type=%d name=%d err=%s", p.Trigger, p.TypeHits, p.NameHits, p.Err)
	case resolve.Outcome:
		return fmt.Sprintf("candidates=%d rejections=%d", p.Candidates, len(p.Rejections))
	default:
		return fmt.Sprintf("%v", p)
	}
}
