// Package refine repairs port geometry flagged by the rule engine and
// re-runs detection until nothing is left to fix.
package refine

import (
	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/record"
	"wiring-tracer/internal/rules"
	"wiring-tracer/pkg/geometry"
)

// Fix returns a copy of g in which every port named by a port_off_edge
// violation has been projected onto the nearest edge of its component box.
// The port's recorded side is tried first. Only port coordinates and sides
// change. The second result is the number of ports moved.
func Fix(g *circuit.Graph, violations []record.Violation) (*circuit.Graph, int) {
	out := g.Clone()
	fixed := 0
	for _, v := range violations {
		if v.Type != record.ViolationPortOffEdge {
			continue
		}
		n, ok := out.Node(v.Node)
		if !ok || n.Port() == nil {
			continue
		}
		p := n.Port()

		bbox, found := ownerBBox(out, p, v)
		if !found {
			continue
		}
		side, q := bbox.ProjectToNearestEdge(p.XY, p.Side)
		if q == p.XY && side == p.Side {
			continue
		}
		p.XY = q
		p.Side = side
		fixed++
	}
	return out, fixed
}

func ownerBBox(g *circuit.Graph, p *circuit.PortData, v record.Violation) (bbox geometry.BBox, ok bool) {
	if v.BBox != nil {
		return *v.BBox, true
	}
	owner, found := g.Node(circuit.ComponentNodeID(p.CompID))
	if !found || owner.Component() == nil {
		return bbox, false
	}
	return owner.Component().BBox, true
}

// Outcome is the result of a bounded refine loop.
type Outcome struct {
	Graph      *circuit.Graph
	Violations record.Violations
	Iterations int
	Fixed      int
	Converged  bool
}

// Run alternates detection and repair. A round that moves no port ends the
// loop; otherwise it stops after maxIterations rounds and reports the
// violations of the last graph. The outcome is converged whenever those
// violations leave no port to move.
func Run(g *circuit.Graph, d *rules.Detector, maxIterations int) Outcome {
	return run(g, d, nil, maxIterations)
}

// Resume is Run with the first round's violations already detected.
func Resume(g *circuit.Graph, d *rules.Detector, initial record.Violations, maxIterations int) Outcome {
	return run(g, d, &initial, maxIterations)
}

func run(g *circuit.Graph, d *rules.Detector, seed *record.Violations, maxIterations int) Outcome {
	out := Outcome{Graph: g}
	for out.Iterations < maxIterations {
		var vs record.Violations
		if seed != nil {
			vs, seed = *seed, nil
		} else {
			vs = d.Detect(out.Graph)
		}
		next, n := Fix(out.Graph, vs.Violations)
		if n == 0 {
			out.Violations = vs
			out.Converged = true
			return out
		}
		out.Graph = next
		out.Fixed += n
		out.Iterations++
	}
	out.Violations = d.Detect(out.Graph)
	_, left := Fix(out.Graph, out.Violations.Violations)
	out.Converged = left == 0
	return out
}
