package circuit

import (
	"sort"

	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

// JunctionIndex resolves raw endpoints to junction ids.
type JunctionIndex struct {
	junctions []record.Junction
	member    map[geometry.PointInt]string
}

// NewJunctionIndex indexes junctions in id order.
func NewJunctionIndex(junctions []record.Junction) *JunctionIndex {
	js := make([]record.Junction, len(junctions))
	copy(js, junctions)
	sort.SliceStable(js, func(i, j int) bool { return record.IDLess(js[i].ID, js[j].ID) })

	idx := &JunctionIndex{junctions: js, member: make(map[geometry.PointInt]string)}
	for _, j := range js {
		for _, m := range j.Members {
			if _, ok := idx.member[m]; !ok {
				idx.member[m] = j.ID
			}
		}
	}
	return idx
}

// Resolve returns the junction whose members include p, else the junction
// with the nearest centroid (L∞). Equal distances keep the lowest id.
func (idx *JunctionIndex) Resolve(p geometry.PointInt) (string, bool) {
	if id, ok := idx.member[p]; ok {
		return id, true
	}
	best, bestD := "", 0.0
	fp := p.ToFloat()
	for _, j := range idx.junctions {
		d := j.XY.ChebyshevDistance(fp)
		if best == "" || d < bestD {
			best, bestD = j.ID, d
		}
	}
	return best, best != ""
}

// Build assembles the circuit graph of one page. Nodes are added as
// components, then ports, then junctions; edges as has_port, wire, then
// segment.
func Build(pdf string, page int, comps []record.Component, ports record.Ports, wires record.Wires) *Graph {
	g := New(pdf, page)

	for _, c := range comps {
		g.AddNode(&Node{
			ID: ComponentNodeID(c.ID),
			Data: &ComponentData{
				CompID:        c.ID,
				BBox:          c.BBox,
				Type:          c.Type,
				Confidence:    c.Confidence,
				LabelsContext: append([]string(nil), c.LabelsContext...),
			},
		})
	}

	for _, p := range ports.Ports {
		id := PortNodeID(p.CompID, p.PortID)
		g.AddNode(&Node{
			ID:   id,
			Data: &PortData{CompID: p.CompID, PortID: p.PortID, XY: p.XY, Side: p.Side},
		})
		g.AddEdge(ComponentNodeID(p.CompID), id, EdgeHasPort)
	}

	for _, j := range ports.Junctions {
		g.AddNode(&Node{
			ID:   JunctionNodeID(j.ID),
			Data: &JunctionData{JuncID: j.ID, XY: j.XY},
		})
	}

	idx := NewJunctionIndex(ports.Junctions)

	for _, conn := range ports.Connections {
		jid, ok := idx.Resolve(conn.Endpoint)
		if !ok {
			continue
		}
		g.AddEdge(PortNodeID(conn.CompID, conn.PortID), JunctionNodeID(jid), EdgeWire)
	}

	for _, poly := range wires.Polylines {
		a, b, ok := poly.Ends()
		if !ok {
			continue
		}
		ja, okA := idx.Resolve(a)
		jb, okB := idx.Resolve(b)
		if !okA || !okB || ja == jb {
			continue
		}
		g.AddSegment(JunctionNodeID(ja), JunctionNodeID(jb))
	}

	return g
}
