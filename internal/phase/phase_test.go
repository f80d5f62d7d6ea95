package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/netlist"
	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

func TestResolve_Precedence(t *testing.T) {
	t.Run("L-family beats RYB with fewer votes", func(t *testing.T) {
		tag, ok := Resolve(Votes{"L1": 3, "L2": 2, "R": 5}, 1)
		require.True(t, ok)
		assert.Equal(t, "L1/L2", tag)
	})

	t.Run("Minimum votes filter", func(t *testing.T) {
		tag, _ := Resolve(Votes{"L1": 3, "L2": 2, "R": 5}, 3)
		assert.Equal(t, "L1", tag)

		tag, _ = Resolve(Votes{"L1": 1, "R": 2, "N": 2}, 2)
		assert.Equal(t, "R/N", tag)
	})

	t.Run("Three phase markers", func(t *testing.T) {
		tag, _ := Resolve(Votes{"TPN": 1, "1PH": 4}, 1)
		assert.Equal(t, "3PH", tag)
	})

	t.Run("Single phase", func(t *testing.T) {
		tag, _ := Resolve(Votes{"1PH": 1, "N": 1}, 1)
		assert.Equal(t, "1PH", tag)
	})

	t.Run("Neutral alone is no phase", func(t *testing.T) {
		_, ok := Resolve(Votes{"N": 3}, 1)
		assert.False(t, ok)
	})
}

func TestTokenVotes(t *testing.T) {
	assert.Equal(t, Votes{"L1": 2, "L2": 2, "L3": 2, "N": 1}, TokenVotes("L1 L2 L3 N"))
	assert.Equal(t, Votes{"N": 1}, TokenVotes("Neutral bar"))
	assert.Equal(t, Votes{"3PH": 1}, TokenVotes("3PH, 50Hz"))
	assert.Empty(t, TokenVotes("MCB 32A"))
}

func TestVoltage(t *testing.T) {
	v, ok := Voltage("415 V AC")
	require.True(t, ok)
	assert.Equal(t, 415, v)

	v, ok = Voltage("TPN 230v")
	require.True(t, ok)
	assert.Equal(t, 230, v)

	_, ok = Voltage("5V")
	assert.False(t, ok)
}

func TestMode(t *testing.T) {
	v, ok := Mode([]int{415, 230, 415, 230})
	require.True(t, ok)
	assert.Equal(t, 230, v, "ties go to the smallest value")

	v, _ = Mode([]int{230, 415, 415})
	assert.Equal(t, 415, v)

	_, ok = Mode(nil)
	assert.False(t, ok)
}

func tok(text string, cx, cy float64) record.TextToken {
	return record.TextToken{Text: text, BBox: geometry.NewBBox(cx-2, cy-2, cx+2, cy+2), X: cx, Y: cy}
}

func TestInfer(t *testing.T) {
	g := circuit.New("doc", 1)
	g.AddNode(&circuit.Node{ID: "junc:J0000", Data: &circuit.JunctionData{JuncID: "J0000", XY: geometry.NewPoint2D(0, 0)}})
	g.AddNode(&circuit.Node{ID: "junc:J0001", Data: &circuit.JunctionData{JuncID: "J0001", XY: geometry.NewPoint2D(40, 0)}})
	g.AddNode(&circuit.Node{ID: "junc:J0002", Data: &circuit.JunctionData{JuncID: "J0002", XY: geometry.NewPoint2D(500, 500)}})
	g.AddSegment("junc:J0000", "junc:J0001")
	netlist.Assign(g)

	tokens := []record.TextToken{
		tok("L1", 5, 5),
		tok("L2 415V", 45, 0),
		tok("R", 200, 200),
	}
	info := Infer(g, tokens, Params{SearchRadiusPx: 10, MinTokenVotes: 1})

	require.Contains(t, info, 0)
	require.NotNil(t, info[0].Phase)
	assert.Equal(t, "L1/L2", *info[0].Phase)
	require.NotNil(t, info[0].Voltage)
	assert.Equal(t, 415, *info[0].Voltage)

	for _, id := range []string{"junc:J0000", "junc:J0001"} {
		n, _ := g.Node(id)
		require.NotNil(t, n.Net.Phase)
		assert.Equal(t, "L1/L2", *n.Net.Phase)
	}

	t.Run("Net without nearby text has no phase", func(t *testing.T) {
		assert.Nil(t, info[1].Phase)
		assert.Nil(t, info[1].Voltage)
		n, _ := g.Node("junc:J0002")
		assert.Nil(t, n.Net.Phase)
	})

	t.Run("Annotate summaries", func(t *testing.T) {
		sums := netlist.Summaries(g)
		Annotate(sums, info)
		assert.Equal(t, "L1/L2", *sums[0].Phase)
		assert.Equal(t, map[string]int{"L1": 1, "L2": 1}, sums[0].Votes)
		assert.Nil(t, sums[1].Votes)
	})
}

func TestInfer_NoTokens(t *testing.T) {
	g := circuit.New("doc", 1)
	g.AddNode(&circuit.Node{ID: "junc:J0000", Data: &circuit.JunctionData{JuncID: "J0000"}})
	netlist.Assign(g)
	info := Infer(g, nil, DefaultParams())
	assert.Nil(t, info[0].Phase)
}
