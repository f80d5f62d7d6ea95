package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

func seg(x1, y1, x2, y2 int) Segment {
	return Segment{A: geometry.PointInt{X: x1, Y: y1}, B: geometry.PointInt{X: x2, Y: y2}}
}

func pt(x, y int) geometry.PointInt { return geometry.PointInt{X: x, Y: y} }

func TestMergeCollinear(t *testing.T) {
	p := MergeParams{AngleDegEps: 3, EndpointPxEps: 6}

	t.Run("Chains touching runs", func(t *testing.T) {
		polys := MergeCollinear([]Segment{
			seg(0, 0, 50, 0),
			seg(54, 1, 100, 1),
			seg(100, 1, 150, 0),
		}, p)
		require.Len(t, polys, 1)
		assert.Equal(t, []geometry.PointInt{pt(0, 0), pt(150, 0)}, polys[0].Points)
	})

	t.Run("Opposite direction still merges", func(t *testing.T) {
		polys := MergeCollinear([]Segment{seg(0, 0, 50, 0), seg(90, 0, 52, 0)}, p)
		require.Len(t, polys, 1)
		assert.Equal(t, []geometry.PointInt{pt(0, 0), pt(90, 0)}, polys[0].Points)
	})

	t.Run("Perpendicular runs stay apart", func(t *testing.T) {
		polys := MergeCollinear([]Segment{seg(0, 0, 50, 0), seg(50, 0, 50, 40)}, p)
		assert.Len(t, polys, 2)
	})

	t.Run("Gap beyond tolerance stays apart", func(t *testing.T) {
		polys := MergeCollinear([]Segment{seg(0, 0, 50, 0), seg(60, 0, 90, 0)}, p)
		assert.Len(t, polys, 2)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, MergeCollinear(nil, p))
	})
}

func TestEndpoints_UniqueInOrder(t *testing.T) {
	polys := []record.Polyline{
		{Points: []geometry.PointInt{pt(0, 0), pt(10, 0)}},
		{Points: []geometry.PointInt{pt(10, 0), pt(10, 10)}},
		{Points: []geometry.PointInt{pt(3, 3)}},
	}
	assert.Equal(t, []geometry.PointInt{pt(0, 0), pt(10, 0), pt(10, 10)}, Endpoints(polys))
}
