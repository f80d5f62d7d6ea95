// Package merge deduplicates overlapping per-tile component detections into
// page-level components.
package merge

import (
	"fmt"
	"sort"

	"wiring-tracer/internal/config"
	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/unionfind"
)

// Params holds clustering parameters.
type Params struct {
	IoUThreshold     float64
	TouchPx          float64
	PreferHigherConf bool
	UnionBBox        bool
}

// DefaultParams returns the default merge parameters.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Merge)
}

// ParamsFromConfig converts the merge section of the configuration.
func ParamsFromConfig(c config.MergeConfig) Params {
	return Params{
		IoUThreshold:     c.IoUThreshold,
		TouchPx:          c.TouchPx,
		PreferHigherConf: c.PreferHigherConf,
		UnionBBox:        c.UnionBBox,
	}
}

// PageKey identifies one (document, page) unit.
type PageKey struct {
	PDF  string
	Page int
}

// GroupByPage splits candidates per page, keeping input order inside each
// group. Keys are returned sorted by document then page.
func GroupByPage(cands []record.Candidate) ([]PageKey, map[PageKey][]record.Candidate) {
	groups := make(map[PageKey][]record.Candidate)
	var keys []PageKey
	for _, c := range cands {
		k := PageKey{PDF: c.PDF, Page: c.Page}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], c)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PDF != keys[j].PDF {
			return keys[i].PDF < keys[j].PDF
		}
		return keys[i].Page < keys[j].Page
	})
	return keys, groups
}

// Cluster partitions candidates: two detections join when their IoU reaches
// the threshold or their edge gap is within TouchPx. Clusters are listed in
// order of their first member, members ascending.
func Cluster(cands []record.Candidate, p Params) [][]int {
	set := unionfind.ClusterPairs(len(cands), func(i, j int) bool {
		a, b := cands[i].BBox, cands[j].BBox
		return a.IoU(b) >= p.IoUThreshold || a.EdgeGap(b) <= p.TouchPx
	})
	return set.Clusters()
}

// Page merges all candidates of one page into components.
func Page(pdf string, page int, cands []record.Candidate, p Params) []record.Component {
	clusters := Cluster(cands, p)
	out := make([]record.Component, 0, len(clusters))
	for ordinal, members := range clusters {
		out = append(out, mergeCluster(pdf, page, ordinal+1, cands, members, p))
	}
	return out
}

// representative picks the member with the highest (confidence, label count);
// the earliest member wins ties.
func representative(cands []record.Candidate, members []int, preferHigherConf bool) int {
	best := members[0]
	if !preferHigherConf {
		return best
	}
	for _, i := range members[1:] {
		c, b := cands[i], cands[best]
		if c.Confidence > b.Confidence ||
			(c.Confidence == b.Confidence && len(c.LabelsContext) > len(b.LabelsContext)) {
			best = i
		}
	}
	return best
}

func mergeCluster(pdf string, page, ordinal int, cands []record.Candidate, members []int, p Params) record.Component {
	rep := cands[representative(cands, members, p.PreferHigherConf)]

	bbox := rep.BBox
	if p.UnionBBox {
		for _, i := range members {
			bbox = bbox.Union(cands[i].BBox)
		}
	}

	var labels []string
	seen := make(map[string]bool)
	sources := make([]string, 0, len(members))
	var tiles []string
	for _, i := range members {
		c := cands[i]
		for _, s := range c.LabelsContext {
			if !seen[s] {
				seen[s] = true
				labels = append(labels, s)
			}
		}
		src := c.ID
		if src == "" {
			src = fmt.Sprintf("%s:%d:%d", pdf, page, i)
		}
		sources = append(sources, src)
		if c.TilePath != "" {
			tiles = append(tiles, c.TilePath)
		}
	}
	if labels == nil {
		labels = []string{}
	}

	return record.Component{
		ID:            ComponentID(pdf, page, ordinal),
		PDF:           pdf,
		Page:          page,
		BBox:          bbox,
		Type:          rep.Type,
		Confidence:    rep.Confidence,
		LabelsContext: labels,
		Sources:       sources,
		SourceTiles:   tiles,
		SourceCount:   len(members),
	}
}

// ComponentID formats a merged component id.
func ComponentID(pdf string, page, ordinal int) string {
	return fmt.Sprintf("%s:%d:comp:%s", pdf, page, Disambiguator(ordinal))
}

// Disambiguator formats the per-page component ordinal.
func Disambiguator(ordinal int) string {
	return fmt.Sprintf("%04d", ordinal)
}

// AsCandidates turns merged components back into single detections so a
// merge result can be fed through the merger again.
func AsCandidates(comps []record.Component) []record.Candidate {
	out := make([]record.Candidate, len(comps))
	for i, c := range comps {
		out[i] = record.Candidate{
			ID:            c.ID,
			PDF:           c.PDF,
			Page:          c.Page,
			BBox:          c.BBox,
			Type:          c.Type,
			Confidence:    c.Confidence,
			LabelsContext: c.LabelsContext,
		}
	}
	return out
}
