// Package netlist labels circuit graph nodes with electrical nets.
package netlist

import (
	"sort"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/record"
)

// Assign labels every node with a net id so that two nodes share an id
// exactly when a path connects them. Nets are numbered 0..k-1 in the order
// their first node appears in the graph. It returns k.
func Assign(g *circuit.Graph) int {
	visited := make(map[string]bool, g.NumNodes())
	next := 0
	for _, start := range g.Nodes() {
		if visited[start.ID] {
			continue
		}
		id := next
		next++

		queue := []string{start.ID}
		visited[start.ID] = true
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			n, _ := g.Node(curr)
			netID := id
			n.Net.NetID = &netID
			for _, neighbor := range g.Neighbors(curr) {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
	}
	return next
}

// Members groups node ids by net id. Nodes without a net are skipped.
func Members(g *circuit.Graph) map[int][]string {
	out := make(map[int][]string)
	for _, n := range g.Nodes() {
		if n.Net.NetID == nil {
			continue
		}
		out[*n.Net.NetID] = append(out[*n.Net.NetID], n.ID)
	}
	return out
}

// IDs returns the net ids present in the graph, ascending.
func IDs(g *circuit.Graph) []int {
	m := Members(g)
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Summaries aggregates node counts per net, ordered by net id. Phase and
// voltage are taken from the first node of each net.
func Summaries(g *circuit.Graph) []record.NetSummary {
	byID := make(map[int]*record.NetSummary)
	for _, n := range g.Nodes() {
		if n.Net.NetID == nil {
			continue
		}
		nid := *n.Net.NetID
		s, ok := byID[nid]
		if !ok {
			s = &record.NetSummary{NetID: nid, Phase: n.Net.Phase, Voltage: n.Net.Voltage}
			byID[nid] = s
		}
		s.Nodes++
		switch n.Kind() {
		case circuit.KindComponent:
			s.Components++
		case circuit.KindPort:
			s.Ports++
		case circuit.KindJunction:
			s.Junctions++
		}
	}

	out := make([]record.NetSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetID < out[j].NetID })
	return out
}
