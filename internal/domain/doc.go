// Package domain defines the core types shared by the playermap discovery engine.
//
// The host scene is owned by someone else. Everything in this package describes
// either a borrowed view of that scene or state the engine owns outright.
//
// # Borrowed Types
//
// GraphNode is a snapshot of one live node in the host graph. It is only valid
// for the duration of a single poll; the engine keeps nothing but InstanceID
// across polls, and only as an identity key.
//
// ClassificationHit pairs a node with the reason the classifier matched it.
// Hits are produced and consumed within one scan pass.
//
// # Owned State
//
// ScanState tracks the scan scheduler (Armed, Scanning, Succeeded, Exhausted).
//
// TrackedRoot is the single canonical anchor for the entity of interest.
//
// MarkerBinding records one owned marker visual parented to an overlay anchor.
//
// # Presentation
//
// PlayerInfo and Color feed the 2D panel projector. They carry no engine state.
package domain
