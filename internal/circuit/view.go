package circuit

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/iterator"
)

// View exposes a Graph as a gonum undirected graph. Node ids are insertion
// positions and From lists neighbours in edge insertion order, so traversals
// over a View are deterministic.
type View struct {
	g     *Graph
	nodes []graph.Node
}

// NewView wraps g. The view reflects g at creation time; rebuild it after
// adding nodes.
func NewView(g *Graph) *View {
	v := &View{g: g, nodes: make([]graph.Node, len(g.nodes))}
	for i, n := range g.nodes {
		v.nodes[i] = ViewNode{id: int64(i), Node: n}
	}
	return v
}

// ViewNode is a gonum node carrying the circuit node.
type ViewNode struct {
	id int64
	*Node
}

func (n ViewNode) ID() int64 { return n.id }

// DOTID uses the circuit node id.
func (n ViewNode) DOTID() string { return n.Node.ID }

// Attributes lists the DOT attributes of the node.
func (n ViewNode) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "kind", Value: string(n.Kind())}}
	switch d := n.Data.(type) {
	case *ComponentData:
		if d.Type != "" {
			attrs = append(attrs, encoding.Attribute{Key: "type", Value: strconv.Quote(d.Type)})
		}
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "box"})
	case *PortData:
		attrs = append(attrs, encoding.Attribute{Key: "side", Value: string(d.Side)})
	case *JunctionData:
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "point"})
	}
	if n.Net.NetID != nil {
		attrs = append(attrs, encoding.Attribute{Key: "net_id", Value: strconv.Itoa(*n.Net.NetID)})
	}
	if n.Net.Phase != nil {
		attrs = append(attrs, encoding.Attribute{Key: "net_phase", Value: strconv.Quote(*n.Net.Phase)})
	}
	return attrs
}

// ViewEdge is a gonum edge carrying the circuit edge.
type ViewEdge struct {
	F, T ViewNode
	*Edge
}

func (e ViewEdge) From() graph.Node { return e.F }
func (e ViewEdge) To() graph.Node   { return e.T }

func (e ViewEdge) ReversedEdge() graph.Edge { return ViewEdge{F: e.T, T: e.F, Edge: e.Edge} }

// Attributes lists the DOT attributes of the edge.
func (e ViewEdge) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "kind", Value: string(e.Kind)}}
	if e.Segments > 1 {
		attrs = append(attrs, encoding.Attribute{Key: "segments", Value: fmt.Sprint(e.Segments)})
	}
	return attrs
}

// Node returns the node with the given view id, or nil.
func (v *View) Node(id int64) graph.Node {
	if id < 0 || id >= int64(len(v.nodes)) {
		return nil
	}
	return v.nodes[id]
}

// NodeByID returns the view node of a circuit node id.
func (v *View) NodeByID(id string) (ViewNode, bool) {
	i, ok := v.g.index[id]
	if !ok || i >= len(v.nodes) {
		return ViewNode{}, false
	}
	return v.nodes[i].(ViewNode), true
}

// Nodes returns all nodes in insertion order.
func (v *View) Nodes() graph.Nodes {
	return iterator.NewOrderedNodes(v.nodes)
}

// From returns the neighbours of id.
func (v *View) From(id int64) graph.Nodes {
	n, ok := v.Node(id).(ViewNode)
	if !ok {
		return iterator.NewOrderedNodes(nil)
	}
	var out []graph.Node
	for _, nb := range v.g.Neighbors(n.Node.ID) {
		if m, ok := v.NodeByID(nb); ok {
			out = append(out, m)
		}
	}
	return iterator.NewOrderedNodes(out)
}

// HasEdgeBetween reports whether x and y are adjacent.
func (v *View) HasEdgeBetween(xid, yid int64) bool {
	return v.EdgeBetween(xid, yid) != nil
}

// Edge returns the edge from uid to vid, or nil.
func (v *View) Edge(uid, vid int64) graph.Edge {
	return v.EdgeBetween(uid, vid)
}

// EdgeBetween returns the edge between x and y, or nil.
func (v *View) EdgeBetween(xid, yid int64) graph.Edge {
	x, ok := v.Node(xid).(ViewNode)
	if !ok {
		return nil
	}
	y, ok := v.Node(yid).(ViewNode)
	if !ok {
		return nil
	}
	e, ok := v.g.Edge(x.Node.ID, y.Node.ID)
	if !ok {
		return nil
	}
	return ViewEdge{F: x, T: y, Edge: e}
}

var _ graph.Undirected = (*View)(nil)
