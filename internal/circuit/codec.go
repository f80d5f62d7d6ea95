package circuit

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

// nodeJSON is the flat on-disk node shape; only fields of the node's kind
// are populated.
type nodeJSON struct {
	ID            string            `json:"id"`
	Kind          Kind              `json:"kind"`
	CompID        string            `json:"comp_id,omitempty"`
	BBox          *geometry.BBox    `json:"bbox,omitempty"`
	Type          string            `json:"type,omitempty"`
	Confidence    *float64          `json:"confidence,omitempty"`
	LabelsContext []string          `json:"labels_context,omitempty"`
	PortID        string            `json:"port_id,omitempty"`
	JuncID        string            `json:"junc_id,omitempty"`
	XY            *geometry.Point2D `json:"xy,omitempty"`
	Side          geometry.Side     `json:"side,omitempty"`
	NetID         *int              `json:"net_id,omitempty"`
	NetPhase      *string           `json:"net_phase,omitempty"`
	NetVoltage    *int              `json:"net_voltage,omitempty"`
}

type edgeJSON struct {
	U        string   `json:"u"`
	V        string   `json:"v"`
	Kind     EdgeKind `json:"kind"`
	Segments int      `json:"segments,omitempty"`
}

type graphAttrs struct {
	PDF  string `json:"pdf"`
	Page int    `json:"page"`
}

type graphJSON struct {
	GraphAttrs graphAttrs `json:"graph_attrs"`
	Nodes      []nodeJSON `json:"nodes"`
	Edges      []edgeJSON `json:"edges"`
}

func encodeNode(n *Node) nodeJSON {
	out := nodeJSON{
		ID:         n.ID,
		Kind:       n.Kind(),
		NetID:      n.Net.NetID,
		NetPhase:   n.Net.Phase,
		NetVoltage: n.Net.Voltage,
	}
	switch d := n.Data.(type) {
	case *ComponentData:
		bbox, conf := d.BBox, d.Confidence
		out.CompID = d.CompID
		out.BBox = &bbox
		out.Type = d.Type
		out.Confidence = &conf
		out.LabelsContext = d.LabelsContext
	case *PortData:
		xy := d.XY
		out.CompID = d.CompID
		out.PortID = d.PortID
		out.XY = &xy
		out.Side = d.Side
	case *JunctionData:
		xy := d.XY
		out.JuncID = d.JuncID
		out.XY = &xy
	}
	return out
}

func decodeNode(nj nodeJSON) (*Node, error) {
	n := &Node{
		ID:  nj.ID,
		Net: NetAttrs{NetID: nj.NetID, Phase: nj.NetPhase, Voltage: nj.NetVoltage},
	}
	switch nj.Kind {
	case KindComponent:
		d := &ComponentData{CompID: nj.CompID, Type: nj.Type, LabelsContext: nj.LabelsContext}
		if nj.BBox != nil {
			d.BBox = *nj.BBox
		}
		if nj.Confidence != nil {
			d.Confidence = *nj.Confidence
		}
		n.Data = d
	case KindPort:
		d := &PortData{CompID: nj.CompID, PortID: nj.PortID, Side: nj.Side}
		if nj.XY != nil {
			d.XY = *nj.XY
		}
		n.Data = d
	case KindJunction:
		d := &JunctionData{JuncID: nj.JuncID}
		if nj.XY != nil {
			d.XY = *nj.XY
		}
		n.Data = d
	default:
		return nil, eris.Errorf("node %q has unknown kind %q", nj.ID, nj.Kind)
	}
	return n, nil
}

// MarshalJSON encodes the graph record.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{
		GraphAttrs: graphAttrs{PDF: g.PDF, Page: g.Page},
		Nodes:      make([]nodeJSON, 0, len(g.nodes)),
		Edges:      make([]edgeJSON, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		out.Nodes = append(out.Nodes, encodeNode(n))
	}
	for _, e := range g.edges {
		out.Edges = append(out.Edges, edgeJSON{U: e.U, V: e.V, Kind: e.Kind, Segments: e.Segments})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a graph record, replacing the receiver's contents.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*g = *New(in.GraphAttrs.PDF, in.GraphAttrs.Page)
	for _, nj := range in.Nodes {
		n, err := decodeNode(nj)
		if err != nil {
			return err
		}
		g.AddNode(n)
	}
	for _, ej := range in.Edges {
		e := g.AddEdge(ej.U, ej.V, ej.Kind)
		if e == nil {
			return eris.Errorf("edge %s-%s references an unknown node", ej.U, ej.V)
		}
		e.Segments = ej.Segments
	}
	return nil
}

// Load reads a graph record from path, reporting a missing file as a
// record.MissingInputError.
func Load(path, hint string) (*Graph, error) {
	g := New("", 0)
	if err := record.ReadRequired(path, "graph", hint, g); err != nil {
		return nil, eris.Wrap(err, "circuit: load graph")
	}
	return g, nil
}

// Save writes the graph record to path.
func Save(path string, g *Graph) error {
	return record.WriteJSON(path, g)
}

// MarshalJSON encodes one node in its graph record shape.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodeNode(n))
}

// UnmarshalJSON decodes one node from its graph record shape.
func (n *Node) UnmarshalJSON(data []byte) error {
	var nj nodeJSON
	if err := json.Unmarshal(data, &nj); err != nil {
		return err
	}
	dec, err := decodeNode(nj)
	if err != nil {
		return err
	}
	*n = *dec
	return nil
}
