package circuit

// Edge is an undirected edge. Segments counts parallel polylines for
// segment edges and is zero otherwise.
type Edge struct {
	U, V     string
	Kind     EdgeKind
	Segments int
}

type pairKey struct{ a, b string }

func keyOf(u, v string) pairKey {
	if v < u {
		u, v = v, u
	}
	return pairKey{u, v}
}

// Graph is an undirected, simple graph whose nodes and edges keep their
// insertion order.
type Graph struct {
	PDF  string
	Page int

	nodes []*Node
	index map[string]int
	edges []*Edge
	pairs map[pairKey]int
	adj   map[string][]string
}

// New creates an empty graph for one page.
func New(pdf string, page int) *Graph {
	return &Graph{
		PDF:   pdf,
		Page:  page,
		index: make(map[string]int),
		pairs: make(map[pairKey]int),
		adj:   make(map[string][]string),
	}
}

// AddNode inserts n, or replaces the attributes of an existing node with the
// same id while keeping its position.
func (g *Graph) AddNode(n *Node) {
	if i, ok := g.index[n.ID]; ok {
		g.nodes[i] = n
		return
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []*Edge { return g.edges }

func (g *Graph) NumNodes() int { return len(g.nodes) }

func (g *Graph) NumEdges() int { return len(g.edges) }

// Edge returns the edge between u and v, if any.
func (g *Graph) Edge(u, v string) (*Edge, bool) {
	i, ok := g.pairs[keyOf(u, v)]
	if !ok {
		return nil, false
	}
	return g.edges[i], true
}

// AddEdge connects two existing nodes. Self loops and edges touching unknown
// nodes are ignored. Adding an existing pair updates its kind.
func (g *Graph) AddEdge(u, v string, kind EdgeKind) *Edge {
	if u == v || !g.HasNode(u) || !g.HasNode(v) {
		return nil
	}
	if e, ok := g.Edge(u, v); ok {
		e.Kind = kind
		return e
	}
	e := &Edge{U: u, V: v, Kind: kind}
	g.pairs[keyOf(u, v)] = len(g.edges)
	g.edges = append(g.edges, e)
	g.adj[u] = append(g.adj[u], v)
	g.adj[v] = append(g.adj[v], u)
	return e
}

// AddSegment adds a segment edge or increments the multiplicity of an
// existing one.
func (g *Graph) AddSegment(u, v string) *Edge {
	if e, ok := g.Edge(u, v); ok {
		e.Segments++
		return e
	}
	e := g.AddEdge(u, v, EdgeSegment)
	if e != nil {
		e.Segments = 1
	}
	return e
}

// Neighbors returns the ids adjacent to id in edge insertion order.
func (g *Graph) Neighbors(id string) []string {
	return g.adj[id]
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := New(g.PDF, g.Page)
	for _, n := range g.nodes {
		c.AddNode(n.clone())
	}
	for _, e := range g.edges {
		ce := c.AddEdge(e.U, e.V, e.Kind)
		ce.Segments = e.Segments
	}
	return c
}

// NodesOfKind returns the nodes of one variant in insertion order.
func (g *Graph) NodesOfKind(k Kind) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind() == k {
			out = append(out, n)
		}
	}
	return out
}
