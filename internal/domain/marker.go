package domain

import "time"

// MarkerHandle identifies an owned marker visual
type MarkerHandle int64

// MarkerSpec describes how a marker is attached to its anchor
type MarkerSpec struct {
	Name        string `json:"name"`
	LocalOffset Vec3   `json:"local_offset"`
	Scale       Vec3   `json:"scale"`
	Layer       int    `json:"layer"`
	Material    string `json:"material,omitempty"`
}

// MarkerBinding ties an overlay anchor to the marker created for it
type MarkerBinding struct {
	AnchorID   int64        `json:"anchor_id"`
	Marker     MarkerHandle `json:"marker"`
	AnchorPath string       `json:"anchor_path"`
	Layer      int          `json:"layer"`
	Material   string       `json:"material,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
