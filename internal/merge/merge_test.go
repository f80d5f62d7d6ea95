package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

func cand(id string, x1, y1, x2, y2, conf float64, labels ...string) record.Candidate {
	return record.Candidate{
		ID:            id,
		PDF:           "doc",
		Page:          1,
		BBox:          geometry.NewBBox(x1, y1, x2, y2),
		Confidence:    conf,
		LabelsContext: labels,
	}
}

func TestPage_OverlappingBoxesMerge(t *testing.T) {
	cands := []record.Candidate{
		cand("a", 0, 0, 10, 10, 0.5, "MCB"),
		cand("b", 8, 8, 20, 20, 0.9, "RCCB", "MCB"),
	}
	p := DefaultParams()
	p.IoUThreshold = 0.01
	p.TouchPx = 0

	comps := Page("doc", 1, cands, p)
	require.Len(t, comps, 1)
	c := comps[0]
	assert.Equal(t, geometry.NewBBox(0, 0, 20, 20), c.BBox)
	assert.Equal(t, "doc:1:comp:0001", c.ID)
	assert.Equal(t, []string{"MCB", "RCCB"}, c.LabelsContext)
	assert.Equal(t, []string{"a", "b"}, c.Sources)
	assert.Equal(t, 0.9, c.Confidence)
	assert.Equal(t, 2, c.SourceCount)
}

func TestPage_TouchJoinsWithoutOverlap(t *testing.T) {
	cands := []record.Candidate{
		cand("a", 0, 0, 10, 10, 0.5),
		cand("b", 13, 0, 20, 10, 0.5),
		cand("c", 40, 0, 50, 10, 0.5),
	}
	p := DefaultParams()
	p.TouchPx = 3

	comps := Page("doc", 1, cands, p)
	require.Len(t, comps, 2)
	assert.Equal(t, []string{"a", "b"}, comps[0].Sources)
	assert.Equal(t, []string{"c"}, comps[1].Sources)
	assert.Equal(t, "doc:1:comp:0002", comps[1].ID)
}

func TestRepresentative(t *testing.T) {
	cands := []record.Candidate{
		cand("a", 0, 0, 10, 10, 0.8, "x"),
		cand("b", 0, 0, 10, 10, 0.8, "x", "y"),
		cand("c", 0, 0, 10, 10, 0.8, "x", "y"),
	}
	cands[0].Type = "mcb"
	cands[1].Type = "rccb"
	cands[2].Type = "isolator"

	t.Run("Highest confidence then label count, earliest on ties", func(t *testing.T) {
		assert.Equal(t, 1, representative(cands, []int{0, 1, 2}, true))
	})

	t.Run("First member when not preferring confidence", func(t *testing.T) {
		p := DefaultParams()
		p.PreferHigherConf = false
		comps := Page("doc", 1, cands, p)
		require.Len(t, comps, 1)
		assert.Equal(t, "mcb", comps[0].Type)
	})

	t.Run("Representative box only without union", func(t *testing.T) {
		cs := []record.Candidate{
			cand("a", 0, 0, 10, 10, 0.2),
			cand("b", 5, 5, 12, 12, 0.9),
		}
		p := DefaultParams()
		p.IoUThreshold = 0.1
		p.UnionBBox = false
		comps := Page("doc", 1, cs, p)
		require.Len(t, comps, 1)
		assert.Equal(t, geometry.NewBBox(5, 5, 12, 12), comps[0].BBox)
	})
}

func TestPage_Idempotent(t *testing.T) {
	cands := []record.Candidate{
		cand("a", 0, 0, 10, 10, 0.5, "one"),
		cand("b", 2, 2, 11, 11, 0.7, "two"),
		cand("c", 100, 100, 110, 110, 0.4, "three"),
		cand("d", 112, 100, 120, 110, 0.6),
		cand("e", 300, 0, 310, 10, 0.1),
	}
	p := DefaultParams()

	first := Page("doc", 1, cands, p)
	second := Page("doc", 1, AsCandidates(first), p)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].BBox, second[i].BBox)
		assert.Equal(t, first[i].LabelsContext, second[i].LabelsContext)
		assert.Equal(t, []string{first[i].ID}, second[i].Sources)
	}
}

func TestPage_Empty(t *testing.T) {
	assert.Empty(t, Page("doc", 1, nil, DefaultParams()))
}

func TestGroupByPage(t *testing.T) {
	a := cand("a", 0, 0, 1, 1, 0)
	b := cand("b", 0, 0, 1, 1, 0)
	b.Page = 2
	c := cand("c", 0, 0, 1, 1, 0)
	c.PDF = "alpha"

	keys, groups := GroupByPage([]record.Candidate{b, a, c})
	assert.Equal(t, []PageKey{{"alpha", 1}, {"doc", 1}, {"doc", 2}}, keys)
	assert.Len(t, groups[PageKey{"doc", 2}], 1)
}
