// Package scheduler decides when the classifier runs and when polling stops.
//
// The host graph fills in asynchronously after a world change, so the
// scheduler waits a short grace period, then polls at a fixed interval up to a
// hard attempt cap. A hit ends the epoch in Succeeded; running out of attempts
// ends it in Exhausted. Both are terminal until the next Rearm.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"playermap/internal/domain"
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("invalid scheduler config")

// Config holds scheduler timing
type Config struct {
	// InitialDelay is the grace period after a rearm before the first pass
	InitialDelay time.Duration
	// Interval between passes
	Interval time.Duration
	// MaxAttempts caps passes per epoch
	MaxAttempts int
}

// DefaultConfig returns the standard 2s grace, 5s interval, 30 attempts
func DefaultConfig() Config {
	return Config{
		InitialDelay: 2 * time.Second,
		Interval:     5 * time.Second,
		MaxAttempts:  30,
	}
}

// Validate checks the config for values that would stall or spin
func (c Config) Validate() error {
	if c.InitialDelay < 0 {
		return fmt.Errorf("%w: initial delay %s is negative", ErrInvalidConfig, c.InitialDelay)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, c.Interval)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	return nil
}

// Scheduler is the scan state machine. It is not safe for concurrent use;
// the owning controller drives it from a single goroutine.
type Scheduler struct {
	cfg   Config
	state domain.ScanState
}

// New creates a scheduler armed at now
func New(cfg Config, now time.Time) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{cfg: cfg}
	s.Rearm(now, "start")
	return s, nil
}

// Config returns the scheduler timing
func (s *Scheduler) Config() Config {
	return s.cfg
}

// State returns a copy of the current state
func (s *Scheduler) State() domain.ScanState {
	return s.state
}

// Phase returns the current phase
func (s *Scheduler) Phase() domain.ScanPhase {
	return s.state.Phase
}

// Rearm discards the current epoch and waits InitialDelay before polling again
func (s *Scheduler) Rearm(now time.Time, reason string) {
	s.state = domain.ScanState{
		Phase:        domain.PhaseArmed,
		AttemptsUsed: 0,
		MaxAttempts:  s.cfg.MaxAttempts,
		NextDeadline: now.Add(s.cfg.InitialDelay),
		ArmedAt:      now,
		Reason:       reason,
	}
}

// Due reports whether a scheduled pass should run at now
func (s *Scheduler) Due(now time.Time) bool {
	if s.state.Phase.Terminal() {
		return false
	}
	return !now.Before(s.state.NextDeadline)
}

// Begin records the start of a scheduled pass and returns its attempt number.
// Callers must check Due first.
func (s *Scheduler) Begin(now time.Time) int {
	s.state.AttemptsUsed++
	s.state.NextDeadline = now.Add(s.cfg.Interval)
	s.state.Phase = domain.PhaseScanning
	return s.state.AttemptsUsed
}

// Finish records the outcome of the pass started by Begin and returns the
// resulting phase.
func (s *Scheduler) Finish(found bool) domain.ScanPhase {
	if s.state.Phase != domain.PhaseScanning {
		return s.state.Phase
	}
	switch {
	case found:
		s.state.Phase = domain.PhaseSucceeded
	case s.state.AttemptsUsed >= s.cfg.MaxAttempts:
		s.state.Phase = domain.PhaseExhausted
	}
	return s.state.Phase
}
