package geometry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBox_IoU(t *testing.T) {
	a := NewBBox(0, 0, 10, 10)
	b := NewBBox(8, 8, 20, 20)
	far := NewBBox(30, 30, 40, 40)

	t.Run("Identity", func(t *testing.T) {
		assert.InDelta(t, 1.0, a.IoU(a), 1e-9)
	})

	t.Run("Symmetric and bounded", func(t *testing.T) {
		ab, ba := a.IoU(b), b.IoU(a)
		assert.InDelta(t, ab, ba, 1e-12)
		assert.Greater(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
		// 2x2 overlap over 100 + 144 - 4
		assert.InDelta(t, 4.0/240.0, ab, 1e-9)
	})

	t.Run("Disjoint", func(t *testing.T) {
		assert.Equal(t, 0.0, a.IoU(far))
	})

	t.Run("Touching edges have no area", func(t *testing.T) {
		assert.Equal(t, 0.0, a.IoU(NewBBox(10, 0, 20, 10)))
	})
}

func TestBBox_EdgeGap(t *testing.T) {
	a := NewBBox(0, 0, 10, 10)
	assert.Equal(t, 0.0, a.EdgeGap(NewBBox(5, 5, 15, 15)))
	assert.Equal(t, 0.0, a.EdgeGap(NewBBox(10, 0, 20, 10)))
	assert.Equal(t, 3.0, a.EdgeGap(NewBBox(13, 0, 20, 10)))
	// diagonal gap is the larger axis gap
	assert.Equal(t, 5.0, a.EdgeGap(NewBBox(12, 15, 20, 20)))
}

func TestBBox_PointDistance(t *testing.T) {
	b := NewBBox(0, 0, 4, 4)
	assert.Equal(t, 0.0, b.PointDistance(NewPoint2D(2, 2)))
	assert.Equal(t, 1.0, b.PointDistance(NewPoint2D(5, 5)))
	assert.Equal(t, 3.0, b.PointDistance(NewPoint2D(-3, 1)))
	assert.Equal(t, 1.0, b.BoundaryDistance(NewPoint2D(1, 2)))
}

func TestBBox_NearestSide(t *testing.T) {
	b := NewBBox(0, 0, 4, 4)

	t.Run("Corner tie falls back to fixed order", func(t *testing.T) {
		assert.Equal(t, SideRight, b.NearestSide(NewPoint2D(5, 5)))
	})

	t.Run("Center breaks ties on wide boxes", func(t *testing.T) {
		wide := NewBBox(0, 0, 20, 4)
		// right and bottom are both 1px away; |dx|/10 = 1.1 < |dy|/2 = 1.5
		assert.Equal(t, SideBottom, wide.NearestSide(NewPoint2D(21, 5)))
	})

	t.Run("Clear winner", func(t *testing.T) {
		assert.Equal(t, SideLeft, b.NearestSide(NewPoint2D(-1, 2)))
		assert.Equal(t, SideTop, b.NearestSide(NewPoint2D(2, -1)))
	})
}

func TestBBox_ProjectToNearestEdge(t *testing.T) {
	b := NewBBox(0, 0, 10, 10)

	side, q := b.ProjectToNearestEdge(NewPoint2D(12, 5), SideRight)
	assert.Equal(t, SideRight, side)
	assert.Equal(t, NewPoint2D(10, 5), q)

	t.Run("Preferred side wins ties", func(t *testing.T) {
		side, q := b.ProjectToNearestEdge(NewPoint2D(5, 5), SideTop)
		assert.Equal(t, SideTop, side)
		assert.Equal(t, NewPoint2D(5, 0), q)
	})

	t.Run("Cross coordinate is clamped", func(t *testing.T) {
		side, q := b.ProjectToNearestEdge(NewPoint2D(13, 14), "")
		assert.Equal(t, SideRight, side)
		assert.Equal(t, NewPoint2D(10, 10), q)
		assert.Equal(t, 0.0, b.BoundaryDistance(q))
	})
}

func TestJSONArrays(t *testing.T) {
	data, err := json.Marshal(struct {
		P  Point2D  `json:"p"`
		PI PointInt `json:"pi"`
		B  BBox     `json:"b"`
	}{NewPoint2D(1.5, 2), PointInt{3, 4}, NewBBox(0, 1, 2, 3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":[1.5,2],"pi":[3,4],"b":[0,1,2,3]}`, string(data))

	var b BBox
	require.NoError(t, json.Unmarshal([]byte(`[5,6,1,2]`), &b))
	assert.Equal(t, NewBBox(1, 2, 5, 6), b)

	var p Point2D
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &p))
}
