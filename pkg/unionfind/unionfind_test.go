package unionfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_UnionFind(t *testing.T) {
	s := New(6)
	assert.Equal(t, 6, s.Len())
	assert.True(t, s.Union(0, 3))
	assert.True(t, s.Union(3, 5))
	assert.False(t, s.Union(5, 0))
	assert.True(t, s.Union(1, 2))

	assert.True(t, s.Same(0, 5))
	assert.False(t, s.Same(0, 1))
	assert.Equal(t, [][]int{{0, 3, 5}, {1, 2}, {4}}, s.Clusters())
}

func TestClusters_IndependentOfVisitOrder(t *testing.T) {
	// chain 0-1-2-3 linked transitively, 4 isolated
	edges := [][2]int{{0, 1}, {1, 2}, {2, 3}}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}

	var want [][]int
	for _, order := range orders {
		s := New(5)
		for _, k := range order {
			s.Union(edges[k][1], edges[k][0])
		}
		got := s.Clusters()
		if want == nil {
			want = got
		}
		assert.Equal(t, want, got)
	}
	assert.Equal(t, [][]int{{0, 1, 2, 3}, {4}}, want)
}

func TestClusterPairs(t *testing.T) {
	vals := []int{1, 2, 10, 11, 30}
	s := ClusterPairs(len(vals), func(i, j int) bool {
		d := vals[i] - vals[j]
		return d*d <= 1
	})
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {4}}, s.Clusters())
}
