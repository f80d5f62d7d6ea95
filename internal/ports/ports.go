// Package ports resolves wire endpoints into junctions and component ports.
package ports

import (
	"fmt"
	"sort"

	"wiring-tracer/internal/config"
	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
	"wiring-tracer/pkg/unionfind"
)

// Params holds the snapping radii, all measured as L∞ pixels.
type Params struct {
	SnapPx       float64
	JunctionPx   float64
	PortDedupePx float64
}

// DefaultParams returns the default snapping radii.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Geometry.Snap)
}

// ParamsFromConfig converts the snap section of the configuration.
func ParamsFromConfig(c config.SnapConfig) Params {
	return Params{SnapPx: c.SnapPx, JunctionPx: c.JunctionPx, PortDedupePx: c.PortDedupePx}
}

// JunctionID formats the id of the i-th junction.
func JunctionID(i int) string {
	return fmt.Sprintf("J%04d", i)
}

// PortID formats the n-th port id of a component (1-based).
func PortID(n int) string {
	return fmt.Sprintf("P%02d", n)
}

// ClusterJunctions groups endpoints lying within radius of each other
// (transitively) and places each junction at its members' centroid,
// rounded to one decimal.
func ClusterJunctions(endpoints []geometry.PointInt, radius float64) []record.Junction {
	set := unionfind.ClusterPairs(len(endpoints), func(i, j int) bool {
		return float64(endpoints[i].ChebyshevDistance(endpoints[j])) <= radius
	})

	clusters := set.Clusters()
	out := make([]record.Junction, 0, len(clusters))
	for i, members := range clusters {
		pts := make([]geometry.PointInt, len(members))
		fpts := make([]geometry.Point2D, len(members))
		for k, m := range members {
			pts[k] = endpoints[m]
			fpts[k] = endpoints[m].ToFloat()
		}
		out = append(out, record.Junction{
			ID:      JunctionID(i),
			XY:      geometry.Centroid(fpts).Round(1),
			Members: pts,
		})
	}
	return out
}

// nearestComponent returns the index of the closest component within snapPx
// of p, or -1. Only a strictly smaller distance displaces the current best,
// so the earliest component wins ties.
func nearestComponent(p geometry.Point2D, comps []record.Component, snapPx float64) int {
	best, bestD := -1, 0.0
	for i, c := range comps {
		d := c.BBox.PointDistance(p)
		if d > snapPx {
			continue
		}
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// Resolve clusters the page's endpoints into junctions and snaps each
// endpoint onto its nearest component, creating or reusing a port there.
// Components are considered in id order. Endpoints with no component within
// SnapPx produce no connection.
func Resolve(pdf string, page int, endpoints []geometry.PointInt, comps []record.Component, p Params) record.Ports {
	sorted := make([]record.Component, len(comps))
	copy(sorted, comps)
	sort.SliceStable(sorted, func(i, j int) bool { return record.IDLess(sorted[i].ID, sorted[j].ID) })

	out := record.Ports{
		PDF:         pdf,
		Page:        page,
		Junctions:   ClusterJunctions(endpoints, p.JunctionPx),
		Ports:       []record.Port{},
		Connections: []record.Connection{},
	}

	counters := make(map[string]int)
	for _, ep := range endpoints {
		xy := ep.ToFloat()
		ci := nearestComponent(xy, sorted, p.SnapPx)
		if ci < 0 {
			continue
		}
		comp := sorted[ci]

		portID := ""
		for _, existing := range out.Ports {
			if existing.CompID == comp.ID && existing.XY.ChebyshevDistance(xy) <= p.PortDedupePx {
				portID = existing.PortID
				break
			}
		}
		if portID == "" {
			counters[comp.ID]++
			portID = PortID(counters[comp.ID])
			out.Ports = append(out.Ports, record.Port{
				CompID: comp.ID,
				PortID: portID,
				XY:     xy,
				Side:   comp.BBox.NearestSide(xy),
			})
		}

		out.Connections = append(out.Connections, record.Connection{
			Endpoint: ep,
			CompID:   comp.ID,
			PortID:   portID,
		})
	}
	return out
}
