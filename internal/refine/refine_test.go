package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/netlist"
	"wiring-tracer/internal/record"
	"wiring-tracer/internal/rules"
	"wiring-tracer/pkg/geometry"
)

func offEdgeGraph() *circuit.Graph {
	g := circuit.New("doc", 1)
	g.AddNode(&circuit.Node{
		ID:   "comp:c1",
		Data: &circuit.ComponentData{CompID: "c1", BBox: geometry.NewBBox(0, 0, 10, 10), Type: "mcb"},
	})
	g.AddNode(&circuit.Node{
		ID:   "port:c1:P01",
		Data: &circuit.PortData{CompID: "c1", PortID: "P01", XY: geometry.NewPoint2D(12, 5), Side: geometry.SideRight},
	})
	g.AddNode(&circuit.Node{
		ID:   "port:c1:P02",
		Data: &circuit.PortData{CompID: "c1", PortID: "P02", XY: geometry.NewPoint2D(5, -4), Side: geometry.SideLeft},
	})
	g.AddEdge("comp:c1", "port:c1:P01", circuit.EdgeHasPort)
	g.AddEdge("comp:c1", "port:c1:P02", circuit.EdgeHasPort)
	netlist.Assign(g)
	return g
}

func detector(t *testing.T) *rules.Detector {
	t.Helper()
	d, err := rules.NewDetector(rules.DefaultParams())
	require.NoError(t, err)
	return d
}

func TestFix_ProjectsOntoPreferredSide(t *testing.T) {
	g := offEdgeGraph()
	vs := detector(t).Detect(g)
	require.Len(t, rules.OfType(vs.Violations, record.ViolationPortOffEdge), 2)

	fixed, n := Fix(g, vs.Violations)
	assert.Equal(t, 2, n)

	p1, _ := fixed.Node("port:c1:P01")
	assert.Equal(t, geometry.NewPoint2D(10, 5), p1.Port().XY)
	assert.Equal(t, geometry.SideRight, p1.Port().Side)

	p2, _ := fixed.Node("port:c1:P02")
	assert.Equal(t, geometry.NewPoint2D(5, 0), p2.Port().XY)
	assert.Equal(t, geometry.SideTop, p2.Port().Side)

	t.Run("Original graph untouched", func(t *testing.T) {
		orig, _ := g.Node("port:c1:P01")
		assert.Equal(t, geometry.NewPoint2D(12, 5), orig.Port().XY)
	})

	t.Run("Other attributes unchanged", func(t *testing.T) {
		assert.Equal(t, g.NumEdges(), fixed.NumEdges())
		c, _ := fixed.Node("comp:c1")
		assert.Equal(t, "mcb", c.Component().Type)
		assert.Equal(t, 0, *p1.Net.NetID)
	})
}

func TestFix_IgnoresOtherViolations(t *testing.T) {
	g := offEdgeGraph()
	_, n := Fix(g, []record.Violation{{Type: record.ViolationGiantNet, Node: "port:c1:P01"}})
	assert.Zero(t, n)
}

func TestRun_Converges(t *testing.T) {
	out := Run(offEdgeGraph(), detector(t), 3)
	assert.True(t, out.Converged)
	assert.Equal(t, 1, out.Iterations)
	assert.Equal(t, 2, out.Fixed)
	assert.Empty(t, rules.OfType(out.Violations.Violations, record.ViolationPortOffEdge))
}

func TestRun_CleanGraphIsNoop(t *testing.T) {
	g := circuit.New("doc", 1)
	out := Run(g, detector(t), 3)
	assert.True(t, out.Converged)
	assert.Zero(t, out.Iterations)
	assert.Same(t, g, out.Graph)
}

func TestRun_RespectsCap(t *testing.T) {
	out := Run(offEdgeGraph(), detector(t), 1)
	assert.Equal(t, 1, out.Iterations)
	assert.True(t, out.Converged, "nothing left to fix after the last round")
	assert.Empty(t, rules.OfType(out.Violations.Violations, record.ViolationPortOffEdge))
}

func TestResume_RefinedGraphStaysRepaired(t *testing.T) {
	d := detector(t)
	first := Run(offEdgeGraph(), d, 3)
	require.Equal(t, 2, first.Fixed)

	again := Resume(first.Graph, d, first.Violations, 3)
	assert.Zero(t, again.Fixed)
	assert.True(t, again.Converged)
	p1, _ := again.Graph.Node("port:c1:P01")
	assert.Equal(t, geometry.NewPoint2D(10, 5), p1.Port().XY)
	assert.Equal(t, geometry.SideRight, p1.Port().Side)
}

func TestResume_UsesSeedViolations(t *testing.T) {
	g := offEdgeGraph()
	seed := record.Violations{Violations: []record.Violation{{
		Type: record.ViolationPortOffEdge,
		Node: "port:c1:P01",
	}}}

	out := Resume(g, detector(t), seed, 1)
	assert.Equal(t, 1, out.Fixed)
	assert.False(t, out.Converged)

	p2, _ := out.Graph.Node("port:c1:P02")
	assert.Equal(t, geometry.NewPoint2D(5, -4), p2.Port().XY)
	assert.Len(t, rules.OfType(out.Violations.Violations, record.ViolationPortOffEdge), 1)
}
