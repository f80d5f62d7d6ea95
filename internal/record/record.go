// Package record defines the page-scoped interchange records exchanged
// between pipeline stages and the filesystem layout that stores them.
package record

import (
	"wiring-tracer/pkg/geometry"
)

// Candidate is an externally produced component guess for one tile.
type Candidate struct {
	ID            string        `json:"id,omitempty"`
	PDF           string        `json:"pdf"`
	Page          int           `json:"page"`
	BBox          geometry.BBox `json:"tile_bbox"`
	Type          string        `json:"type,omitempty"`
	Confidence    float64       `json:"confidence"`
	LabelsContext []string      `json:"labels_context"`
	TilePath      string        `json:"tile_path,omitempty"`
}

// Component is a page-level deduplicated component.
type Component struct {
	ID            string        `json:"id"`
	PDF           string        `json:"pdf"`
	Page          int           `json:"page"`
	BBox          geometry.BBox `json:"bbox"`
	Type          string        `json:"type,omitempty"`
	Confidence    float64       `json:"confidence"`
	LabelsContext []string      `json:"labels_context"`
	Sources       []string      `json:"sources"`
	SourceTiles   []string      `json:"source_tiles,omitempty"`
	SourceCount   int           `json:"source_count"`
}

// ComponentIndexEntry points at one persisted Component.
type ComponentIndexEntry struct {
	PDF      string  `json:"pdf"`
	Page     int     `json:"page"`
	Path     string  `json:"path"`
	Type     string  `json:"type,omitempty"`
	Conf     float64 `json:"conf"`
	NSources int     `json:"n_sources"`
}

// Polyline is one merged wire run.
type Polyline struct {
	Points []geometry.PointInt `json:"polyline"`
}

// Ends returns the first and last points of the polyline.
func (p Polyline) Ends() (geometry.PointInt, geometry.PointInt, bool) {
	if len(p.Points) < 2 {
		return geometry.PointInt{}, geometry.PointInt{}, false
	}
	return p.Points[0], p.Points[len(p.Points)-1], true
}

// Wires is the Wire Extraction output for one page.
type Wires struct {
	PNG          string              `json:"png,omitempty"`
	PDF          string              `json:"pdf,omitempty"`
	Page         int                 `json:"page"`
	NSegmentsRaw int                 `json:"n_segments_raw"`
	NPolylines   int                 `json:"n_polylines"`
	Polylines    []Polyline          `json:"polylines"`
	Endpoints    []geometry.PointInt `json:"endpoints"`
}

// Junction is a cluster of wire endpoints collapsed to their centroid.
type Junction struct {
	ID      string              `json:"id"`
	XY      geometry.Point2D    `json:"xy"`
	Members []geometry.PointInt `json:"members"`
}

// Port is an anchor on a component's boundary.
type Port struct {
	CompID string           `json:"comp_id"`
	PortID string           `json:"port_id"`
	XY     geometry.Point2D `json:"xy"`
	Side   geometry.Side    `json:"side"`
}

// Connection records which port a raw wire endpoint snapped to.
type Connection struct {
	Endpoint geometry.PointInt `json:"endpoint"`
	CompID   string            `json:"comp_id"`
	PortID   string            `json:"port_id"`
}

// Ports is the Port & Junction Resolver output for one page.
type Ports struct {
	PDF         string       `json:"pdf"`
	Page        int          `json:"page"`
	Junctions   []Junction   `json:"junctions"`
	Ports       []Port       `json:"ports"`
	Connections []Connection `json:"connections"`
}

// TextToken is a positioned piece of page text.
type TextToken struct {
	Text string        `json:"text"`
	BBox geometry.BBox `json:"bbox"`
	X    float64       `json:"x"`
	Y    float64       `json:"y"`
}

// Center returns the center of the token's bounding box.
func (t TextToken) Center() geometry.Point2D {
	return t.BBox.Center()
}

// NetSummary aggregates one net.
type NetSummary struct {
	NetID      int            `json:"net_id"`
	Nodes      int            `json:"nodes"`
	Components int            `json:"components"`
	Ports      int            `json:"ports"`
	Junctions  int            `json:"junctions"`
	Phase      *string        `json:"phase"`
	Voltage    *int           `json:"voltage"`
	Votes      map[string]int `json:"votes,omitempty"`
}

// Nets is the Net Assignment and Phase Inference output for one page.
type Nets struct {
	PDF   string       `json:"pdf"`
	Page  int          `json:"page"`
	Count int          `json:"count"`
	Nets  []NetSummary `json:"nets"`
}

// Severity of a violation.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Violation type tags.
const (
	ViolationGiantNet     = "giant_net"
	ViolationSourceBridge = "source_bridge_without_changeover"
	ViolationRCCB         = "rccb_no_isolation"
	ViolationPortOffEdge  = "port_off_edge"
)

// Violation is one rule-engine finding. Evidence fields are populated per rule.
type Violation struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	NetID    *int     `json:"net_id,omitempty"`
	Node     string   `json:"node,omitempty"`

	Size            int               `json:"size,omitempty"`
	Limit           int               `json:"limit,omitempty"`
	SourcesDetected []string          `json:"sources_detected,omitempty"`
	NeighborNets    []int             `json:"neighbor_nets,omitempty"`
	Component       string            `json:"component,omitempty"`
	BBox            *geometry.BBox    `json:"bbox,omitempty"`
	XY              *geometry.Point2D `json:"xy,omitempty"`
	Distance        float64           `json:"distance,omitempty"`

	Message string `json:"message"`
}

// Stats summarises a graph for the violations record.
type Stats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	NetsCount  int `json:"nets_count"`
	LargestNet int `json:"largest_net"`
}

// Violations is the Violation Detector output for one page.
type Violations struct {
	PDF        string      `json:"pdf"`
	Page       int         `json:"page"`
	Stats      Stats       `json:"stats"`
	Violations []Violation `json:"violations"`
}

// Manifest lists the rasterized pages of one document.
type Manifest struct {
	PDF   string         `json:"pdf,omitempty"`
	Pages []ManifestPage `json:"pages"`
}

// ManifestPage is one raster page in a Manifest.
type ManifestPage struct {
	Page int    `json:"page"`
	PNG  string `json:"png"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
