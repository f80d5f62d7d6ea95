// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
// It is encoded as a two-element JSON array [x, y].
type Point2D struct {
	X float64
	Y float64
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// ChebyshevDistance returns the L∞ distance to another point.
func (p Point2D) ChebyshevDistance(other Point2D) float64 {
	return math.Max(math.Abs(p.X-other.X), math.Abs(p.Y-other.Y))
}

// Round returns the point with both coordinates rounded to the given number of decimals.
func (p Point2D) Round(decimals int) Point2D {
	f := math.Pow(10, float64(decimals))
	return Point2D{X: math.Round(p.X*f) / f, Y: math.Round(p.Y*f) / f}
}

// MarshalJSON encodes the point as [x, y].
func (p Point2D) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a point from [x, y].
func (p *Point2D) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// PointInt represents a 2D point with integer pixel coordinates.
// It is encoded as a two-element JSON array [x, y].
type PointInt struct {
	X int
	Y int
}

// ToFloat converts to Point2D.
func (p PointInt) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// ChebyshevDistance returns the L∞ distance to another integer point.
func (p PointInt) ChebyshevDistance(other PointInt) int {
	return max(absInt(p.X-other.X), absInt(p.Y-other.Y))
}

// MarshalJSON encodes the point as [x, y].
func (p PointInt) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON decodes a point from [x, y]. Fractional values are truncated.
func (p *PointInt) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = int(xy[0]), int(xy[1])
	return nil
}

// BBox is an axis-aligned rectangle given by its corners (X1,Y1)-(X2,Y2)
// with X1 <= X2 and Y1 <= Y2. It is encoded as [x1, y1, x2, y2].
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// NewBBox creates a BBox, normalising the corner order.
func NewBBox(x1, y1, x2, y2 float64) BBox {
	return BBox{
		X1: math.Min(x1, x2), Y1: math.Min(y1, y2),
		X2: math.Max(x1, x2), Y2: math.Max(y1, y2),
	}
}

// Width returns the box width.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area.
func (b BBox) Area() float64 { return b.Width() * b.Height() }

// Center returns the center point of the box.
func (b BBox) Center() Point2D {
	return Point2D{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Contains returns true if the point is inside the box or on its boundary.
func (b BBox) Contains(p Point2D) bool {
	return p.X >= b.X1 && p.X <= b.X2 && p.Y >= b.Y1 && p.Y <= b.Y2
}

// Union returns the smallest box containing both boxes.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X1: math.Min(b.X1, other.X1), Y1: math.Min(b.Y1, other.Y1),
		X2: math.Max(b.X2, other.X2), Y2: math.Max(b.Y2, other.Y2),
	}
}

// IoU returns the intersection-over-union ratio of two boxes, in [0, 1].
// Boxes that do not overlap with positive area yield 0.
func (b BBox) IoU(other BBox) float64 {
	iw := math.Min(b.X2, other.X2) - math.Max(b.X1, other.X1)
	ih := math.Min(b.Y2, other.Y2) - math.Max(b.Y1, other.Y1)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	return inter / math.Max(1e-6, b.Area()+other.Area()-inter)
}

// EdgeGap returns the L∞ edge-to-edge gap between two boxes, 0 if they touch or overlap.
func (b BBox) EdgeGap(other BBox) float64 {
	dx := math.Max(0, math.Max(b.X1-other.X2, other.X1-b.X2))
	dy := math.Max(0, math.Max(b.Y1-other.Y2, other.Y1-b.Y2))
	return math.Max(dx, dy)
}

// PointDistance returns the L∞ distance from a point to the box: 0 when the
// point is inside, otherwise the larger of the horizontal and vertical overshoot.
func (b BBox) PointDistance(p Point2D) float64 {
	dx := math.Max(0, math.Max(b.X1-p.X, p.X-b.X2))
	dy := math.Max(0, math.Max(b.Y1-p.Y, p.Y-b.Y2))
	return math.Max(dx, dy)
}

// BoundaryDistance returns the L∞ distance from a point to the nearest point
// on the box outline. Points inside the box measure to the closest edge.
func (b BBox) BoundaryDistance(p Point2D) float64 {
	if !b.Contains(p) {
		return b.PointDistance(p)
	}
	return math.Min(
		math.Min(p.X-b.X1, b.X2-p.X),
		math.Min(p.Y-b.Y1, b.Y2-p.Y),
	)
}

// MarshalJSON encodes the box as [x1, y1, x2, y2].
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a box from [x1, y1, x2, y2].
func (b *BBox) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("bbox must have 4 values, got %d", len(v))
	}
	*b = NewBBox(v[0], v[1], v[2], v[3])
	return nil
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
