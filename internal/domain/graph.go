package domain

import "time"

// MatchSource records which classifier pass produced a hit
type MatchSource string

const (
	MatchTypeName    MatchSource = "type_name"
	MatchDisplayName MatchSource = "display_name"
)

// ClassificationHit is a node the classifier judged a plausible match
type ClassificationHit struct {
	Node      GraphNode   `json:"node"`
	MatchedBy MatchSource `json:"matched_by"`
	Keyword   string      `json:"keyword"`
	// TypeName is the matching behaviour type for type-name hits
	TypeName string `json:"type_name,omitempty"`
}

// ScanTrigger identifies what started a classification pass
type ScanTrigger string

const (
	TriggerScheduled ScanTrigger = "scheduled"
	TriggerManual    ScanTrigger = "manual"
)

// ScanReport summarises one classification pass
type ScanReport struct {
	Trigger  ScanTrigger   `json:"trigger"`
	Attempt  int           `json:"attempt,omitempty"`
	TypeHits int           `json:"type_hits"`
	NameHits int           `json:"name_hits"`
	Skipped  int           `json:"skipped"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Total returns the combined hit count of both passes
func (r ScanReport) Total() int {
	return r.TypeHits + r.NameHits
}

// Found reports whether the pass produced at least one hit
func (r ScanReport) Found() bool {
	return r.Total() > 0
}
