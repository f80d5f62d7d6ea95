// Package phase infers a phase tag and a voltage for each net by voting over
// text tokens found near the net's ports and junctions.
package phase

import (
	"regexp"
	"strconv"
	"strings"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/config"
	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

// Params controls the neighbourhood search and vote filtering.
type Params struct {
	SearchRadiusPx float64
	MinTokenVotes  int
}

// DefaultParams returns the default inference parameters.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Graph.PhaseLabel)
}

// ParamsFromConfig converts the phase_label section of the configuration.
func ParamsFromConfig(c config.PhaseLabelConfig) Params {
	return Params{SearchRadiusPx: c.SearchRadiusPx, MinTokenVotes: c.MinTokenVotes}
}

var phaseTokens = map[string]string{
	"l1": "L1", "l2": "L2", "l3": "L3", "n": "N",
	"r": "R", "y": "Y", "b": "B",
	"tpn": "TPN", "3ph": "3PH", "1ph": "1PH",
}

var phaseWords = map[string]string{"neutral": "N"}

var (
	tokenSplit  = regexp.MustCompile(`[^a-z0-9+]+`)
	voltPattern = regexp.MustCompile(`(?i)(\d{2,4})\s*V`)
)

// Votes counts phase tags.
type Votes map[string]int

func (v Votes) add(other Votes) {
	for k, c := range other {
		v[k] += c
	}
}

// TokenVotes scores the phase tags mentioned in one text string.
func TokenVotes(s string) Votes {
	votes := Votes{}
	low := strings.ToLower(s)
	for _, tok := range tokenSplit.Split(low, -1) {
		if tok == "" {
			continue
		}
		if tag, ok := phaseTokens[tok]; ok {
			votes[tag]++
		}
		if tag, ok := phaseWords[tok]; ok {
			votes[tag]++
		}
	}
	if strings.Contains(low, "l1") && strings.Contains(low, "l2") && strings.Contains(low, "l3") {
		votes["L1"]++
		votes["L2"]++
		votes["L3"]++
	}
	return votes
}

// Voltage extracts the first "<digits>V" value in s.
func Voltage(s string) (int, bool) {
	m := voltPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// Nearby returns the texts whose box center lies within radius (L∞) of xy.
func Nearby(tokens []record.TextToken, xy geometry.Point2D, radius float64) []string {
	var out []string
	for _, t := range tokens {
		if t.Center().ChebyshevDistance(xy) <= radius {
			out = append(out, t.Text)
		}
	}
	return out
}

// Resolve applies tag precedence: the L1/L2/L3 family, then R/Y/B, then
// three-phase, then single-phase markers.
func Resolve(votes Votes, minVotes int) (string, bool) {
	has := func(tag string) bool { return votes[tag] > 0 && votes[tag] >= minVotes }
	join := func(order ...string) string {
		var parts []string
		for _, t := range order {
			if has(t) {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "/")
	}

	switch {
	case has("L1") || has("L2") || has("L3"):
		return join("L1", "L2", "L3", "N"), true
	case has("R") || has("Y") || has("B"):
		return join("R", "Y", "B", "N"), true
	case has("TPN") || has("3PH"):
		return "3PH", true
	case has("1PH"):
		return "1PH", true
	}
	return "", false
}

// Mode returns the most frequent value; ties go to the smallest value.
func Mode(values []int) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	counts := make(map[int]int)
	for _, v := range values {
		counts[v]++
	}
	best, bestN := 0, 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, true
}

// NetInfo is the inference result for one net.
type NetInfo struct {
	Phase   *string
	Voltage *int
	Votes   Votes
}

// Infer votes phase and voltage per net and writes the result onto every
// node of that net. Nodes must already carry net ids. Nets without nearby
// text get no phase and no voltage.
func Infer(g *circuit.Graph, tokens []record.TextToken, p Params) map[int]NetInfo {
	votesByNet := make(map[int]Votes)
	voltsByNet := make(map[int][]int)

	for _, n := range g.Nodes() {
		if n.Net.NetID == nil {
			continue
		}
		xy, ok := n.XY()
		if !ok {
			continue
		}
		nid := *n.Net.NetID
		for _, s := range Nearby(tokens, xy, p.SearchRadiusPx) {
			v := TokenVotes(s)
			if len(v) > 0 {
				if votesByNet[nid] == nil {
					votesByNet[nid] = Votes{}
				}
				votesByNet[nid].add(v)
			}
			if volt, ok := Voltage(s); ok {
				voltsByNet[nid] = append(voltsByNet[nid], volt)
			}
		}
	}

	info := make(map[int]NetInfo)
	for _, n := range g.Nodes() {
		if n.Net.NetID == nil {
			continue
		}
		nid := *n.Net.NetID
		ni, ok := info[nid]
		if !ok {
			ni = NetInfo{Votes: votesByNet[nid]}
			if tag, ok := Resolve(ni.Votes, p.MinTokenVotes); ok {
				ni.Phase = &tag
			}
			if v, ok := Mode(voltsByNet[nid]); ok {
				ni.Voltage = &v
			}
			info[nid] = ni
		}
		n.Net.Phase = ni.Phase
		n.Net.Voltage = ni.Voltage
	}
	return info
}

// Annotate copies votes from an Infer result onto net summaries.
func Annotate(sums []record.NetSummary, info map[int]NetInfo) {
	for i := range sums {
		ni, ok := info[sums[i].NetID]
		if !ok {
			continue
		}
		sums[i].Phase = ni.Phase
		sums[i].Voltage = ni.Voltage
		if len(ni.Votes) > 0 {
			sums[i].Votes = map[string]int(ni.Votes)
		}
	}
}
