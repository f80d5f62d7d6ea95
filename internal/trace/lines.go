package trace

import (
	"math"

	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

// Segment is one raw line segment from the Hough transform.
type Segment struct {
	A, B geometry.PointInt
}

// angle returns the direction of the segment folded into [0, π), so two
// segments drawn in opposite directions along one line compare equal.
func (s Segment) angle() float64 {
	a := math.Atan2(float64(s.B.Y-s.A.Y), float64(s.B.X-s.A.X))
	if a < 0 {
		a += math.Pi
	}
	if a >= math.Pi {
		a -= math.Pi
	}
	return a
}

// angleDiff returns the smallest difference between two line directions.
func angleDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	return math.Min(d, math.Pi-d)
}

// MergeParams controls collinear merging.
type MergeParams struct {
	AngleDegEps   float64
	EndpointPxEps float64
}

// MergeCollinear greedily chains segments that run in the same direction and
// share an endpoint (within EndpointPxEps, L∞) with the growing chain's first
// or last point. Each chain is reduced to its two mutually farthest points.
// Input order decides which segment seeds each chain.
func MergeCollinear(segs []Segment, p MergeParams) []record.Polyline {
	if len(segs) == 0 {
		return nil
	}
	angleEps := p.AngleDegEps * math.Pi / 180
	distEps := p.EndpointPxEps

	used := make([]bool, len(segs))
	var polys []record.Polyline
	for i, s := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		ax := s.angle()
		pts := []geometry.PointInt{s.A, s.B}

		for changed := true; changed; {
			changed = false
			for j, t := range segs {
				if used[j] || angleDiff(ax, t.angle()) >= angleEps {
					continue
				}
				if near, far, ok := touching(pts, t, distEps); ok {
					pts = append(pts, near, far)
					used[j] = true
					changed = true
				}
			}
		}

		a, b := farthestPair(pts)
		polys = append(polys, record.Polyline{Points: []geometry.PointInt{a, b}})
	}
	return polys
}

// touching finds the endpoint of t within eps of the chain's first or last
// point. It returns that endpoint and the opposite one, which becomes the
// chain's new last point.
func touching(pts []geometry.PointInt, t Segment, eps float64) (near, far geometry.PointInt, ok bool) {
	for _, a := range []geometry.PointInt{pts[0], pts[len(pts)-1]} {
		if float64(a.ChebyshevDistance(t.A)) <= eps {
			return t.A, t.B, true
		}
		if float64(a.ChebyshevDistance(t.B)) <= eps {
			return t.B, t.A, true
		}
	}
	return near, far, false
}

// farthestPair returns the first pair (in index order) at maximal distance.
func farthestPair(pts []geometry.PointInt) (geometry.PointInt, geometry.PointInt) {
	bi, bj, best := 0, 0, -1
	for i := range pts {
		for j := range pts {
			dx, dy := pts[i].X-pts[j].X, pts[i].Y-pts[j].Y
			if d := dx*dx + dy*dy; d > best {
				bi, bj, best = i, j, d
			}
		}
	}
	return pts[bi], pts[bj]
}

// Endpoints lists every polyline end point once, in first-appearance order.
func Endpoints(polys []record.Polyline) []geometry.PointInt {
	seen := make(map[geometry.PointInt]bool)
	out := []geometry.PointInt{}
	for _, p := range polys {
		a, b, ok := p.Ends()
		if !ok {
			continue
		}
		for _, q := range []geometry.PointInt{a, b} {
			if !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	}
	return out
}
