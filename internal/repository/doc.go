// Package repository defines the diagnostic scan journal.
//
// The journal records every classification pass and every tracker lifecycle
// event so an operator can see why discovery did or did not find a player.
// It is diagnostics only: the engine never reads it back to make decisions.
//
// # SQLite Implementation
//
// The sqlite subpackage stores the journal in SQLite. The default DSN is an
// in-memory database, so nothing survives a restart. Each table is capped;
// the oldest rows are pruned on insert.
package repository
