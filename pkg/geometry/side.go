package geometry

import "math"

// Side names one edge of a BBox.
type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// Sides lists the edges in their fixed tie-break order.
var Sides = [4]Side{SideLeft, SideRight, SideTop, SideBottom}

// Valid reports whether s is one of the four edge names.
func (s Side) Valid() bool {
	switch s {
	case SideLeft, SideRight, SideTop, SideBottom:
		return true
	}
	return false
}

// edgeDistance returns the absolute distance from p to the line carrying side s.
func (b BBox) edgeDistance(p Point2D, s Side) float64 {
	switch s {
	case SideLeft:
		return math.Abs(p.X - b.X1)
	case SideRight:
		return math.Abs(p.X - b.X2)
	case SideTop:
		return math.Abs(p.Y - b.Y1)
	default:
		return math.Abs(p.Y - b.Y2)
	}
}

// NearestSide returns the edge whose line is closest to p.
//
// Ties are resolved with the box center: the axis on which p lies farther
// from the center (relative to the half extent) wins. Any tie left after
// that falls back to left, right, top, bottom order.
func (b BBox) NearestSide(p Point2D) Side {
	best := Sides[0]
	bestD := b.edgeDistance(p, best)
	for _, s := range Sides[1:] {
		d := b.edgeDistance(p, s)
		switch {
		case d < bestD:
			best, bestD = s, d
		case d == bestD && b.centerPrefers(p, s, best):
			best = s
		}
	}
	return best
}

// centerPrefers reports whether candidate should replace current when both
// edges are equally near.
func (b BBox) centerPrefers(p Point2D, candidate, current Side) bool {
	if isHorizontalAxis(candidate) == isHorizontalAxis(current) {
		return false
	}
	c := b.Center()
	rx := relOffset(p.X-c.X, b.Width()/2)
	ry := relOffset(p.Y-c.Y, b.Height()/2)
	if isHorizontalAxis(candidate) {
		return rx > ry
	}
	return ry > rx
}

// isHorizontalAxis is true for the left/right edges, whose distance is measured along X.
func isHorizontalAxis(s Side) bool {
	return s == SideLeft || s == SideRight
}

func relOffset(d, half float64) float64 {
	if half <= 0 {
		return math.Abs(d)
	}
	return math.Abs(d) / half
}

// ProjectToEdge moves p onto the segment of the given edge, clamping the
// cross coordinate into the box. It returns the projected point and its L∞
// distance from p.
func (b BBox) ProjectToEdge(p Point2D, s Side) (Point2D, float64) {
	var q Point2D
	switch s {
	case SideLeft:
		q = Point2D{X: b.X1, Y: clamp(p.Y, b.Y1, b.Y2)}
	case SideRight:
		q = Point2D{X: b.X2, Y: clamp(p.Y, b.Y1, b.Y2)}
	case SideTop:
		q = Point2D{X: clamp(p.X, b.X1, b.X2), Y: b.Y1}
	default:
		q = Point2D{X: clamp(p.X, b.X1, b.X2), Y: b.Y2}
	}
	return q, p.ChebyshevDistance(q)
}

// ProjectToNearestEdge projects p onto the closest edge segment by L∞
// distance. When prefer is a valid side it is tried first, so it wins ties.
func (b BBox) ProjectToNearestEdge(p Point2D, prefer Side) (Side, Point2D) {
	order := make([]Side, 0, 4)
	if prefer.Valid() {
		order = append(order, prefer)
	}
	for _, s := range Sides {
		if s != prefer {
			order = append(order, s)
		}
	}

	bestSide := order[0]
	bestPt, bestD := b.ProjectToEdge(p, bestSide)
	for _, s := range order[1:] {
		q, d := b.ProjectToEdge(p, s)
		if d < bestD {
			bestSide, bestPt, bestD = s, q, d
		}
	}
	return bestSide, bestPt
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
