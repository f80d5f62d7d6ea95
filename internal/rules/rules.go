// Package rules evaluates design-rule checks over a circuit graph.
//
// The detector never mutates the graph. Findings are returned as data in a
// fixed order: giant nets (largest first), source bridges (by net id), RCCB
// isolation (by node order), then ports off their component edge.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/config"
	"wiring-tracer/internal/record"
)

// Params is the rule configuration.
type Params struct {
	MaxNodesWarning     int
	MaxNodesError       int
	SourceKeywords      map[string][]string
	TypingHints         map[string][]string
	CompositeTokenLimit int
	PortOffEdge         bool
	EdgeTolerancePx     float64
	RCCBPatterns        []string
}

// ParamsFromConfig converts a constraints pack.
func ParamsFromConfig(c config.ConstraintsConfig) Params {
	return Params{
		MaxNodesWarning:     c.Nets.MaxNodesWarning,
		MaxNodesError:       c.Nets.MaxNodesError,
		SourceKeywords:      c.Inference.SourceKeywords,
		TypingHints:         c.Inference.TypingHintsContains,
		CompositeTokenLimit: c.Components.CompositeHeuristics.MaxLabelsTokensForDeviceChecks,
		PortOffEdge:         c.Rules.PortOffEdge,
		EdgeTolerancePx:     c.Rules.EdgeTolerancePx,
		RCCBPatterns:        c.Rules.RCCBPatterns,
	}
}

// DefaultParams returns the default rule configuration.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Constraints)
}

// changeoverTags are typing-hint keys whose substrings identify a changeover device.
var changeoverTags = map[string]bool{"ACCL": true, "ATS": true, "SELECTOR": true, "THREEWAY": true}

var changeoverFallback = []string{"changeover", "selector", "3way", "threeway"}

type sourceCategory struct {
	name     string
	patterns []*regexp.Regexp
}

func (c sourceCategory) matches(text string) bool {
	for _, re := range c.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Detector runs the rule catalog. Build one with NewDetector.
type Detector struct {
	p              Params
	sources        []sourceCategory
	changeoverKeys []string
	rccb           []string
}

// NewDetector compiles the configured patterns.
func NewDetector(p Params) (*Detector, error) {
	d := &Detector{p: p}

	names := make([]string, 0, len(p.SourceKeywords))
	for name := range p.SourceKeywords {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cat := sourceCategory{name: name}
		for _, pat := range p.SourceKeywords[name] {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, eris.Wrapf(err, "rules: source_keywords.%s", name)
			}
			cat.patterns = append(cat.patterns, re)
		}
		d.sources = append(d.sources, cat)
	}

	keys := map[string]bool{}
	for tag, vals := range p.TypingHints {
		if changeoverTags[strings.ToUpper(tag)] {
			for _, v := range vals {
				keys[strings.ToLower(v)] = true
			}
		}
	}
	for _, k := range changeoverFallback {
		keys[k] = true
	}
	for k := range keys {
		d.changeoverKeys = append(d.changeoverKeys, k)
	}
	sort.Strings(d.changeoverKeys)

	for _, pat := range p.RCCBPatterns {
		d.rccb = append(d.rccb, strings.ToUpper(pat))
	}
	return d, nil
}

// Detect evaluates every rule against g.
func (d *Detector) Detect(g *circuit.Graph) record.Violations {
	sizes := netSizes(g)

	var vs []record.Violation
	vs = append(vs, d.giantNets(sizes)...)
	vs = append(vs, d.sourceBridges(g, sizes)...)
	vs = append(vs, d.rccbNoIsolation(g)...)
	if d.p.PortOffEdge {
		vs = append(vs, d.portsOffEdge(g)...)
	}
	if vs == nil {
		vs = []record.Violation{}
	}

	return record.Violations{
		PDF:        g.PDF,
		Page:       g.Page,
		Stats:      Stats(g),
		Violations: vs,
	}
}

func netSizes(g *circuit.Graph) map[int]int {
	sizes := make(map[int]int)
	for _, n := range g.Nodes() {
		if n.Net.NetID != nil {
			sizes[*n.Net.NetID]++
		}
	}
	return sizes
}

func sortedNetIDs(sizes map[int]int) []int {
	ids := make([]int, 0, len(sizes))
	for id := range sizes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Stats summarises node, edge and net counts.
func Stats(g *circuit.Graph) record.Stats {
	sizes := netSizes(g)
	largest := 0
	for _, s := range sizes {
		largest = max(largest, s)
	}
	return record.Stats{
		Nodes:      g.NumNodes(),
		Edges:      g.NumEdges(),
		NetsCount:  len(sizes),
		LargestNet: largest,
	}
}

func (d *Detector) giantNets(sizes map[int]int) []record.Violation {
	ids := sortedNetIDs(sizes)
	sort.SliceStable(ids, func(i, j int) bool { return sizes[ids[i]] > sizes[ids[j]] })

	var out []record.Violation
	for _, id := range ids {
		size := sizes[id]
		var sev record.Severity
		var limit int
		switch {
		case size >= d.p.MaxNodesError:
			sev, limit = record.SeverityError, d.p.MaxNodesError
		case size >= d.p.MaxNodesWarning:
			sev, limit = record.SeverityWarning, d.p.MaxNodesWarning
		default:
			continue
		}
		out = append(out, record.Violation{
			Type:     record.ViolationGiantNet,
			Severity: sev,
			NetID:    record.IntPtr(id),
			Size:     size,
			Limit:    limit,
			Message:  fmt.Sprintf("Net %d has %d nodes (>= %s limit %d).", id, size, sev, limit),
		})
	}
	return out
}

// netText joins the label context and type of every component on each net.
func netText(g *circuit.Graph) map[int][]string {
	out := make(map[int][]string)
	for _, n := range g.Nodes() {
		c := n.Component()
		if c == nil || n.Net.NetID == nil {
			continue
		}
		out[*n.Net.NetID] = append(out[*n.Net.NetID], c.Text()...)
	}
	return out
}

func (d *Detector) isChangeover(c *circuit.ComponentData) bool {
	labels := strings.ToLower(strings.Join(c.LabelsContext, " | "))
	typ := strings.ToLower(c.Type)
	for _, k := range d.changeoverKeys {
		if strings.Contains(labels, k) || strings.Contains(typ, k) {
			return true
		}
	}
	return false
}

func (d *Detector) sourceBridges(g *circuit.Graph, sizes map[int]int) []record.Violation {
	if len(d.sources) < 2 {
		return nil
	}
	texts := netText(g)

	hasChangeover := make(map[int]bool)
	for _, n := range g.Nodes() {
		if c := n.Component(); c != nil && n.Net.NetID != nil && d.isChangeover(c) {
			hasChangeover[*n.Net.NetID] = true
		}
	}

	var out []record.Violation
	for _, id := range sortedNetIDs(sizes) {
		blob := strings.Join(texts[id], " | ")
		var present []string
		for _, cat := range d.sources {
			if cat.matches(blob) {
				present = append(present, cat.name)
			}
		}
		if len(present) < 2 || hasChangeover[id] {
			continue
		}
		out = append(out, record.Violation{
			Type:            record.ViolationSourceBridge,
			Severity:        record.SeverityWarning,
			NetID:           record.IntPtr(id),
			SourcesDetected: present,
			Message: fmt.Sprintf("Net %d shows multiple source signatures [%s] without a changeover/ATS.",
				id, strings.Join(present, ", ")),
		})
	}
	return out
}

func (d *Detector) looksLikeRCCB(c *circuit.ComponentData) bool {
	labels := strings.ToUpper(strings.Join(c.LabelsContext, " | "))
	typ := strings.ToUpper(c.Type)
	for _, pat := range d.rccb {
		if strings.Contains(labels, pat) || strings.Contains(typ, pat) {
			return true
		}
	}
	return false
}

// IsComposite reports whether a component's label context is large enough
// to be a drawing region rather than one device.
func (d *Detector) IsComposite(c *circuit.ComponentData) bool {
	return c.TokenCount() >= d.p.CompositeTokenLimit
}

func (d *Detector) rccbNoIsolation(g *circuit.Graph) []record.Violation {
	var out []record.Violation
	for _, n := range g.Nodes() {
		c := n.Component()
		if c == nil || d.IsComposite(c) || !d.looksLikeRCCB(c) {
			continue
		}
		nets := map[int]bool{}
		for _, nb := range g.Neighbors(n.ID) {
			if m, ok := g.Node(nb); ok && m.Net.NetID != nil {
				nets[*m.Net.NetID] = true
			}
		}
		if len(nets) > 1 {
			continue
		}
		ids := make([]int, 0, len(nets))
		for id := range nets {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out = append(out, record.Violation{
			Type:         record.ViolationRCCB,
			Severity:     record.SeverityWarning,
			NetID:        n.Net.NetID,
			Node:         n.ID,
			NeighborNets: ids,
			Message:      "RCCB appears not to isolate (all neighbors share one net).",
		})
	}
	return out
}

func (d *Detector) portsOffEdge(g *circuit.Graph) []record.Violation {
	var out []record.Violation
	for _, n := range g.Nodes() {
		p := n.Port()
		if p == nil {
			continue
		}
		owner, ok := g.Node(circuit.ComponentNodeID(p.CompID))
		if !ok || owner.Component() == nil {
			continue
		}
		bbox := owner.Component().BBox
		dist := bbox.BoundaryDistance(p.XY)
		if dist <= d.p.EdgeTolerancePx {
			continue
		}
		xy := p.XY
		out = append(out, record.Violation{
			Type:      record.ViolationPortOffEdge,
			Severity:  record.SeverityWarning,
			NetID:     n.Net.NetID,
			Node:      n.ID,
			Component: owner.ID,
			BBox:      &bbox,
			XY:        &xy,
			Distance:  dist,
			Message:   fmt.Sprintf("Port %s is %.1fpx off the edge of %s.", n.ID, dist, owner.ID),
		})
	}
	return out
}

// OfType filters violations by type tag.
func OfType(vs []record.Violation, typ string) []record.Violation {
	var out []record.Violation
	for _, v := range vs {
		if v.Type == typ {
			out = append(out, v)
		}
	}
	return out
}
