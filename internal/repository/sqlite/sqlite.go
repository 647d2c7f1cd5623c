package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"playermap/internal/domain"
	"playermap/internal/repository"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// DefaultRetention is the per-table row cap
const DefaultRetention = 1000

var _ repository.Journal = (*Repository)(nil)

// Repository implements repository.Journal using SQLite
type Repository struct {
	db        *sql.DB
	retention int
}

// New opens the journal at dsn and migrates the schema. A retention of zero
// or less selects DefaultRetention.
func New(dsn string, retention int) (*Repository, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &Repository{db: db, retention: retention}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_trigger TEXT NOT NULL,
		attempt INTEGER NOT NULL DEFAULT 0,
		type_hits INTEGER NOT NULL DEFAULT 0,
		name_hits INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		hits JSON
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		detail TEXT,
		at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`

	_, err := r.db.Exec(schema)
	return err
}

// RecordScan stores one classification pass
func (r *Repository) RecordScan(ctx context.Context, report domain.ScanReport, hits []domain.ClassificationHit) error {
	args, err := scanInsertArgs(report, hits)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO scans (scan_trigger, attempt, type_hits, name_hits, skipped, started_at, duration_ns, error, hits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...); err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	return r.prune(ctx, "scans")
}

// RecordEvent stores one tracker event
func (r *Repository) RecordEvent(ctx context.Context, kind, detail string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO events (kind, detail, at) VALUES (?, ?, ?)
	`, kind, stringToNull(detail), toNanos(at)); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return r.prune(ctx, "events")
}

// prune drops rows beyond the retention cap, oldest first
func (r *Repository) prune(ctx context.Context, table string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id <= (SELECT MAX(id) FROM %s) - ?
	`, table, table)
	if _, err := r.db.ExecContext(ctx, query, r.retention); err != nil {
		return fmt.Errorf("failed to prune %s: %w", table, err)
	}
	return nil
}

// ListScans returns up to limit scans, newest first. A limit of zero or less
// returns everything retained.
func (r *Repository) ListScans(ctx context.Context, limit int) ([]repository.ScanRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scanColumns+`
		FROM scans
		ORDER BY id DESC
		LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	records := make([]repository.ScanRecord, 0)
	for rows.Next() {
		var row scanRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan scan row: %w", err)
		}
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListEvents returns up to limit events, newest first
func (r *Repository) ListEvents(ctx context.Context, limit int) ([]repository.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, detail, at
		FROM events
		ORDER BY id DESC
		LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	records := make([]repository.EventRecord, 0)
	for rows.Next() {
		var (
			rec    repository.EventRecord
			detail sql.NullString
			at     int64
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		rec.Detail = nullToString(detail)
		rec.At = fromNanos(at)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Clear drops every record
func (r *Repository) Clear(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"scans", "events"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
