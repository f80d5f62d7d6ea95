// Package circuit assembles the per-page circuit graph of components, ports
// and junctions.
package circuit

import (
	"strings"

	"wiring-tracer/pkg/geometry"
)

// Kind is the variant of a graph node.
type Kind string

const (
	KindComponent Kind = "component"
	KindPort      Kind = "port"
	KindJunction  Kind = "junction"
)

// EdgeKind is the variant of a graph edge.
type EdgeKind string

const (
	EdgeHasPort EdgeKind = "has_port"
	EdgeWire    EdgeKind = "wire"
	EdgeSegment EdgeKind = "segment"
)

// NodeData holds the variant-specific attributes of a node.
type NodeData interface {
	Kind() Kind
	clone() NodeData
}

// ComponentData describes a merged component node.
type ComponentData struct {
	CompID        string
	BBox          geometry.BBox
	Type          string
	Confidence    float64
	LabelsContext []string
}

func (*ComponentData) Kind() Kind { return KindComponent }

func (d *ComponentData) clone() NodeData {
	c := *d
	c.LabelsContext = append([]string(nil), d.LabelsContext...)
	return &c
}

// Text returns the label context followed by the type, if any.
func (d *ComponentData) Text() []string {
	out := append([]string(nil), d.LabelsContext...)
	if d.Type != "" {
		out = append(out, d.Type)
	}
	return out
}

// TokenCount counts whitespace-separated tokens across the label context.
func (d *ComponentData) TokenCount() int {
	n := 0
	for _, s := range d.LabelsContext {
		n += len(strings.Fields(s))
	}
	return n
}

// PortData describes a port node.
type PortData struct {
	CompID string
	PortID string
	XY     geometry.Point2D
	Side   geometry.Side
}

func (*PortData) Kind() Kind { return KindPort }

func (d *PortData) clone() NodeData {
	c := *d
	return &c
}

// JunctionData describes a junction node.
type JunctionData struct {
	JuncID string
	XY     geometry.Point2D
}

func (*JunctionData) Kind() Kind { return KindJunction }

func (d *JunctionData) clone() NodeData {
	c := *d
	return &c
}

// NetAttrs are the per-node net annotations added after Net Assignment and
// Phase Inference.
type NetAttrs struct {
	NetID   *int
	Phase   *string
	Voltage *int
}

// Node is one graph vertex.
type Node struct {
	ID   string
	Data NodeData
	Net  NetAttrs
}

// Kind returns the node variant.
func (n *Node) Kind() Kind {
	return n.Data.Kind()
}

// XY returns the node coordinate for ports and junctions.
func (n *Node) XY() (geometry.Point2D, bool) {
	switch d := n.Data.(type) {
	case *PortData:
		return d.XY, true
	case *JunctionData:
		return d.XY, true
	}
	return geometry.Point2D{}, false
}

// Component returns the component attributes, or nil for other kinds.
func (n *Node) Component() *ComponentData {
	d, _ := n.Data.(*ComponentData)
	return d
}

// Port returns the port attributes, or nil for other kinds.
func (n *Node) Port() *PortData {
	d, _ := n.Data.(*PortData)
	return d
}

// Junction returns the junction attributes, or nil for other kinds.
func (n *Node) Junction() *JunctionData {
	d, _ := n.Data.(*JunctionData)
	return d
}

func (n *Node) clone() *Node {
	c := &Node{ID: n.ID, Data: n.Data.clone()}
	if n.Net.NetID != nil {
		v := *n.Net.NetID
		c.Net.NetID = &v
	}
	if n.Net.Phase != nil {
		v := *n.Net.Phase
		c.Net.Phase = &v
	}
	if n.Net.Voltage != nil {
		v := *n.Net.Voltage
		c.Net.Voltage = &v
	}
	return c
}

// ComponentNodeID is the node id of a merged component.
func ComponentNodeID(compID string) string { return "comp:" + compID }

// PortNodeID is the node id of a component port.
func PortNodeID(compID, portID string) string { return "port:" + compID + ":" + portID }

// JunctionNodeID is the node id of a junction.
func JunctionNodeID(juncID string) string { return "junc:" + juncID }
