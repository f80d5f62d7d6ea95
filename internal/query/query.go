// Package query answers questions about a built circuit graph: which nodes
// mention some text, how two labelled parts are connected, and what lies
// around a node.
package query

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/graph/path"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/record"
)

// Load reads the refined graph of a page if one exists, else the base graph.
func Load(l record.Layout, pdf string, page int) (*circuit.Graph, error) {
	return circuit.Load(l.CurrentGraphPath(pdf, page), "stitch")
}

// Match is one node found by FindByText.
type Match struct {
	ID            string       `json:"id"`
	Kind          circuit.Kind `json:"kind"`
	Type          string       `json:"type,omitempty"`
	LabelsContext []string     `json:"labels_context,omitempty"`
	NetID         *int         `json:"net_id,omitempty"`
}

func kindFilter(kinds []circuit.Kind) func(circuit.Kind) bool {
	if len(kinds) == 0 {
		return func(circuit.Kind) bool { return true }
	}
	set := make(map[circuit.Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return func(k circuit.Kind) bool { return set[k] }
}

func searchText(n *circuit.Node) string {
	c := n.Component()
	if c == nil {
		return ""
	}
	blob := strings.Join(c.LabelsContext, " | ")
	if c.Type != "" {
		blob += " | " + c.Type
	}
	return blob
}

// FindByText returns the nodes whose label context or type matches pattern,
// case-insensitively, in node order. An empty kinds list accepts every kind.
func FindByText(g *circuit.Graph, pattern string, kinds ...circuit.Kind) ([]Match, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "query: bad pattern %q", pattern)
	}
	accept := kindFilter(kinds)

	out := []Match{}
	for _, n := range g.Nodes() {
		if !accept(n.Kind()) || !re.MatchString(searchText(n)) {
			continue
		}
		m := Match{ID: n.ID, Kind: n.Kind(), NetID: n.Net.NetID}
		if c := n.Component(); c != nil {
			m.Type = c.Type
			m.LabelsContext = c.LabelsContext
		}
		out = append(out, m)
	}
	return out, nil
}

// Path is the result of ShortestPath. Length counts edges; an empty path
// means no pair of matches is connected.
type Path struct {
	Path   []string `json:"path"`
	Length *int     `json:"length"`
	Src    *string  `json:"src"`
	Dst    *string  `json:"dst"`
}

// ShortestPath finds the shortest hop path between any node matching srcPattern
// and any node matching dstPattern. Among equally short paths the first pair
// in node order wins.
func ShortestPath(g *circuit.Graph, srcPattern, dstPattern string, kinds ...circuit.Kind) (Path, error) {
	srcs, err := FindByText(g, srcPattern, kinds...)
	if err != nil {
		return Path{}, err
	}
	dsts, err := FindByText(g, dstPattern, kinds...)
	if err != nil {
		return Path{}, err
	}

	best := Path{Path: []string{}}
	v := circuit.NewView(g)
	for _, s := range srcs {
		from, _ := v.NodeByID(s.ID)
		tree := path.DijkstraFrom(from, v)
		for _, d := range dsts {
			to, _ := v.NodeByID(d.ID)
			nodes, _ := tree.To(to.ID())
			if len(nodes) == 0 {
				continue
			}
			hops := len(nodes) - 1
			if best.Length != nil && hops >= *best.Length {
				continue
			}
			ids := make([]string, len(nodes))
			for i, n := range nodes {
				ids[i] = n.(circuit.ViewNode).Node.ID
			}
			best = Path{Path: ids, Length: record.IntPtr(hops), Src: record.StringPtr(s.ID), Dst: record.StringPtr(d.ID)}
		}
	}
	return best, nil
}

// Subgraph returns the nodes within hops edges of center and the edges among
// them, preserving g's order. An unknown center yields an empty graph.
func Subgraph(g *circuit.Graph, center string, hops int) *circuit.Graph {
	out := circuit.New(g.PDF, g.Page)
	if !g.HasNode(center) {
		return out
	}

	keep := map[string]bool{center: true}
	frontier := []string{center}
	for i := 0; i < hops && len(frontier) > 0; i++ {
		var next []string
		for _, u := range frontier {
			for _, w := range g.Neighbors(u) {
				if !keep[w] {
					keep[w] = true
					next = append(next, w)
				}
			}
		}
		frontier = next
	}

	full := g.Clone()
	for _, n := range full.Nodes() {
		if keep[n.ID] {
			out.AddNode(n)
		}
	}
	for _, e := range full.Edges() {
		if keep[e.U] && keep[e.V] {
			ne := out.AddEdge(e.U, e.V, e.Kind)
			ne.Segments = e.Segments
		}
	}
	return out
}

// Save writes a query result to the page's query directory.
func Save(l record.Layout, pdf string, page int, name string, v any) (string, error) {
	p := l.QueryPath(pdf, page, name)
	if err := record.WriteJSON(p, v); err != nil {
		return "", eris.Wrap(err, "query: save result")
	}
	return p, nil
}
