// Package handler implements the HTTP diagnostic API of the tracker.
//
// # Routes
//
//	GET  /healthz       liveness
//	GET  /api/state     latest tracker snapshot published by the pump
//	GET  /api/root      tracked root and its live view (404 when none)
//	GET  /api/markers   marker bindings
//	GET  /api/scans     journaled scan passes, newest first (?limit=N)
//	GET  /api/events    journaled tracker events, newest first (?limit=N)
//	GET  /api/panel     2D panel projection of the tracked players
//	GET  /api/scene     host graph export (?format=json|yaml)
//	POST /api/scan      manual scan; waits for the pump and returns the report
//	POST /api/rearm     queue a world-change rearm ({"reason": "..."})
//
// Reads never touch the tracker directly; they go through the snapshot the
// pump publishes after every frame. Writes are queued onto the pump.
//
// Errors are returned as JSON with {error, details}.
//
// Middleware provides panic recovery, request logging and CORS.
package handler
