package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"playermap/internal/codec"
	"playermap/internal/domain"
	"playermap/internal/panel"
	"playermap/internal/pump"
	"playermap/internal/repository"
	"playermap/internal/scene"
	"playermap/internal/service"
)

// defaultScanLimit caps /api/scans when no limit is given
const defaultScanLimit = 50

// Engine is the tracker as seen through the pump
type Engine interface {
	Snapshot() service.Snapshot
	ManualScan(ctx context.Context) (domain.ScanReport, error)
	RequestRearm(reason string) error
}

// SceneSource exposes the host graph for the panel and scene export
type SceneSource interface {
	scene.Graph
	Snapshot() []domain.GraphNode
}

// ScanLog is the read side of the scan journal
type ScanLog interface {
	ListScans(ctx context.Context, limit int) ([]repository.ScanRecord, error)
	ListEvents(ctx context.Context, limit int) ([]repository.EventRecord, error)
}

// TrackerHandler serves the diagnostic API
type TrackerHandler struct {
	engine    Engine
	scene     SceneSource
	journal   ScanLog
	projector panel.Projector
	sceneName string
	logger    *log.Logger
}

// NewTrackerHandler creates a new tracker handler
func NewTrackerHandler(engine Engine, src SceneSource, logger *log.Logger) *TrackerHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &TrackerHandler{
		engine:    engine,
		scene:     src,
		projector: panel.DefaultProjector(),
		sceneName: "scene",
		logger:    logger,
	}
}

// SetJournal sets the scan journal behind /api/scans and /api/events
func (h *TrackerHandler) SetJournal(j ScanLog) {
	h.journal = j
}

// SetProjector sets the panel projection
func (h *TrackerHandler) SetProjector(p panel.Projector) {
	h.projector = p
}

// SetSceneName sets the name written into scene exports
func (h *TrackerHandler) SetSceneName(name string) {
	if name != "" {
		h.sceneName = name
	}
}

// Register adds every route to mux
func (h *TrackerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /api/state", h.GetState)
	mux.HandleFunc("GET /api/root", h.GetRoot)
	mux.HandleFunc("GET /api/markers", h.GetMarkers)
	mux.HandleFunc("GET /api/scans", h.ListScans)
	mux.HandleFunc("GET /api/events", h.ListEvents)
	mux.HandleFunc("GET /api/panel", h.GetPanel)
	mux.HandleFunc("GET /api/scene", h.ExportScene)
	mux.HandleFunc("POST /api/scan", h.ManualScan)
	mux.HandleFunc("POST /api/rearm", h.Rearm)
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Health reports liveness
func (h *TrackerHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// GetState returns the latest published tracker snapshot
func (h *TrackerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.engine.Snapshot(), http.StatusOK)
}

// RootResponse is the tracked root with its current live view
type RootResponse struct {
	Root *domain.TrackedRoot `json:"root"`
	Live *domain.GraphNode   `json:"live,omitempty"`
}

// GetRoot returns the tracked root, or 404 when none is tracked
func (h *TrackerHandler) GetRoot(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap.Root == nil {
		h.writeError(w, "Not found", "no tracked root", http.StatusNotFound)
		return
	}
	h.writeJSON(w, RootResponse{Root: snap.Root, Live: snap.RootLive}, http.StatusOK)
}

// GetMarkers returns the current marker bindings
func (h *TrackerHandler) GetMarkers(w http.ResponseWriter, r *http.Request) {
	markers := h.engine.Snapshot().Markers
	if markers == nil {
		markers = []domain.MarkerBinding{}
	}
	h.writeJSON(w, markers, http.StatusOK)
}

// ListScans returns journaled scan passes, newest first
func (h *TrackerHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		h.writeError(w, "Journal not configured", "no scan journal is registered", http.StatusServiceUnavailable)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, "Invalid limit", err.Error(), http.StatusBadRequest)
		return
	}

	scans, err := h.journal.ListScans(r.Context(), limit)
	if err != nil {
		h.logger.Printf("handler: failed to list scans: %v", err)
		h.writeError(w, "Failed to list scans", err.Error(), http.StatusInternalServerError)
		return
	}
	if scans == nil {
		scans = []repository.ScanRecord{}
	}
	h.writeJSON(w, scans, http.StatusOK)
}

// ListEvents returns journaled tracker events, newest first
func (h *TrackerHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		h.writeError(w, "Journal not configured", "no scan journal is registered", http.StatusServiceUnavailable)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, "Invalid limit", err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.journal.ListEvents(r.Context(), limit)
	if err != nil {
		h.logger.Printf("handler: failed to list events: %v", err)
		h.writeError(w, "Failed to list events", err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []repository.EventRecord{}
	}
	h.writeJSON(w, events, http.StatusOK)
}

// PanelResponse is the projected player panel
type PanelResponse struct {
	Title   string              `json:"title"`
	Rect    panel.Rect          `json:"rect"`
	Players []domain.PlayerInfo `json:"players"`
	Dots    []panel.Dot         `json:"dots"`
}

// GetPanel projects the tracked players onto the 2D panel
func (h *TrackerHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	players := panel.PlayersFromRoot(h.scene, snap.RootLive, snap.Markers)
	dots := h.projector.Project(players, panel.LocalPlayer(players))

	resp := PanelResponse{
		Title:   panel.Title,
		Rect:    h.projector.Rect,
		Players: players,
		Dots:    dots,
	}
	if resp.Players == nil {
		resp.Players = []domain.PlayerInfo{}
	}
	if resp.Dots == nil {
		resp.Dots = []panel.Dot{}
	}
	h.writeJSON(w, resp, http.StatusOK)
}

// ExportScene writes the host graph as a scene fixture. The format query
// parameter selects json (default) or yaml.
func (h *TrackerHandler) ExportScene(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		h.writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	s := &codec.Scene{Name: h.sceneName, Nodes: h.scene.Snapshot()}
	if c.Format() == "yaml" {
		w.Header().Set("Content-Type", "application/x-yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+h.sceneName+"."+c.Format())

	if err := c.Export(s, w); err != nil {
		h.logger.Printf("handler: failed to export scene: %v", err)
		// Can't write error response as we already set headers
		return
	}
}

// ManualScan runs one classification pass on the pump and returns its report
func (h *TrackerHandler) ManualScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report, err := h.engine.ManualScan(ctx)
	if err != nil {
		h.writeCommandError(w, "Manual scan failed", err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// RearmRequest is the optional body of POST /api/rearm
type RearmRequest struct {
	Reason string `json:"reason"`
}

// Rearm queues a world-change rearm
func (h *TrackerHandler) Rearm(w http.ResponseWriter, r *http.Request) {
	var req RearmRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "api"
	}

	if err := h.engine.RequestRearm(req.Reason); err != nil {
		h.writeCommandError(w, "Rearm failed", err)
		return
	}
	h.writeJSON(w, map[string]string{"status": "rearm_queued", "reason": req.Reason}, http.StatusAccepted)
}

// Helper methods

func (h *TrackerHandler) writeCommandError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, pump.ErrQueueFull):
		h.writeError(w, msg, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.writeError(w, msg, err.Error(), http.StatusGatewayTimeout)
	default:
		h.logger.Printf("handler: %s: %v", msg, err)
		h.writeError(w, msg, err.Error(), http.StatusInternalServerError)
	}
}

func (h *TrackerHandler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("handler: failed to encode JSON: %v", err)
	}
}

func (h *TrackerHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Printf("handler: failed to encode error response: %v", err)
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultScanLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}
