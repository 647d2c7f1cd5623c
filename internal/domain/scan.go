package domain

import "time"

// ScanPhase is the scheduler's lifecycle phase
type ScanPhase string

const (
	PhaseArmed     ScanPhase = "armed"
	PhaseScanning  ScanPhase = "scanning"
	PhaseSucceeded ScanPhase = "succeeded"
	PhaseExhausted ScanPhase = "exhausted"
)

// Terminal reports whether the phase stops polling until the next rearm
func (p ScanPhase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseExhausted
}

// ScanState is the scheduler state. AttemptsUsed never exceeds MaxAttempts.
type ScanState struct {
	Phase        ScanPhase `json:"phase"`
	AttemptsUsed int       `json:"attempts_used"`
	MaxAttempts  int       `json:"max_attempts"`
	NextDeadline time.Time `json:"next_deadline"`
	ArmedAt      time.Time `json:"armed_at"`
	Reason       string    `json:"reason,omitempty"`
}

// TrackedRoot is the canonical anchor for the entity of interest
type TrackedRoot struct {
	Node GraphNode `json:"node"`
	// Kind is the resolver priority kind that produced this root
	Kind string `json:"kind"`
	// CandidateID is the classified node the ancestor walk started from
	CandidateID int64     `json:"candidate_id"`
	ResolvedAt  time.Time `json:"resolved_at"`
}
