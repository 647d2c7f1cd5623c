package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"playermap/internal/domain"
	"playermap/internal/repository"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Timestamps are stored as UTC unix nanoseconds; 0 is the zero time
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// sqlLimit maps "no limit" onto SQLite's LIMIT -1
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalHits marshals hits to a nullable JSON string; no hits stores NULL
func marshalHits(hits []domain.ClassificationHit) (sql.NullString, error) {
	if len(hits) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(hits)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Scan Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between scanColumns, scanRow.scanArgs()
// and scanInsertArgs (minus id).

// scanRow holds all columns from a scans query for scanning
type scanRow struct {
	ID         int64
	Trigger    string
	Attempt    int
	TypeHits   int
	NameHits   int
	Skipped    int
	StartedAt  int64
	DurationNS int64
	Error      sql.NullString
	HitsJSON   sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *scanRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,         // 1
		&r.Trigger,    // 2
		&r.Attempt,    // 3
		&r.TypeHits,   // 4
		&r.NameHits,   // 5
		&r.Skipped,    // 6
		&r.StartedAt,  // 7
		&r.DurationNS, // 8
		&r.Error,      // 9
		&r.HitsJSON,   // 10
	}
}

// toDomain converts the scanned row to a repository.ScanRecord
func (r *scanRow) toDomain() (repository.ScanRecord, error) {
	rec := repository.ScanRecord{
		ID: r.ID,
		Report: domain.ScanReport{
			Trigger:  domain.ScanTrigger(r.Trigger),
			Attempt:  r.Attempt,
			TypeHits: r.TypeHits,
			NameHits: r.NameHits,
			Skipped:  r.Skipped,
			Started:  fromNanos(r.StartedAt),
			Duration: time.Duration(r.DurationNS),
			Err:      nullToString(r.Error),
		},
	}

	if err := unmarshalJSONField(r.HitsJSON, &rec.Hits); err != nil {
		return rec, fmt.Errorf("unmarshal hits: %w", err)
	}

	return rec, nil
}

// scanColumns is the SELECT column list for scan queries
const scanColumns = `id, scan_trigger, attempt, type_hits, name_hits, skipped,
	started_at, duration_ns, error, hits`

// scanInsertArgs prepares arguments for a scans INSERT
func scanInsertArgs(report domain.ScanReport, hits []domain.ClassificationHit) ([]interface{}, error) {
	hitsJSON, err := marshalHits(hits)
	if err != nil {
		return nil, fmt.Errorf("marshal hits: %w", err)
	}

	return []interface{}{
		string(report.Trigger),
		report.Attempt,
		report.TypeHits,
		report.NameHits,
		report.Skipped,
		toNanos(report.Started),
		int64(report.Duration),
		stringToNull(report.Err),
		hitsJSON,
	}, nil
}
