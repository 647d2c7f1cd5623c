// Package service implements the tracker controller for playermap.
//
// TrackerService owns all mutable engine state: the scan scheduler, the
// tracked root and the marker binding map. It is driven by a single caller
// (the frame pump) through Tick, Rearm and ManualScan, and exposes read-only
// accessors for the presentation layer and diagnostics.
//
// # Tick Ordering
//
// Within one tick the scheduler decides first, then the classifier scans,
// then the resolver runs (only on a hit), then markers are reconciled. Marker
// reconciliation runs on every tick regardless of scan phase.
//
// # Failure Isolation
//
// Errors and panics from scanning, resolution or reconciliation are recovered
// at the tick boundary and logged. A failed scan counts as a miss for that
// tick. Nothing here is fatal to the host.
//
// # Event System
//
// Every state change is published on an EventBus for the SSE hub, and every
// pass is written to an optional Journal.
package service
