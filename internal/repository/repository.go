package repository

import (
	"context"
	"time"

	"playermap/internal/domain"
)

// ScanRecord is one journaled classification pass
type ScanRecord struct {
	ID     int64                      `json:"id"`
	Report domain.ScanReport          `json:"report"`
	Hits   []domain.ClassificationHit `json:"hits,omitempty"`
}

// EventRecord is one journaled tracker event
type EventRecord struct {
	ID     int64     `json:"id"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// Journal defines the diagnostic scan journal
type Journal interface {
	// Write operations
	RecordScan(ctx context.Context, report domain.ScanReport, hits []domain.ClassificationHit) error
	RecordEvent(ctx context.Context, kind, detail string, at time.Time) error

	// Read operations, newest first
	ListScans(ctx context.Context, limit int) ([]ScanRecord, error)
	ListEvents(ctx context.Context, limit int) ([]EventRecord, error)

	// Clear drops every record
	Clear(ctx context.Context) error

	// Close releases resources
	Close() error
}
