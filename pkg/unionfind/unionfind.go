// Package unionfind implements a disjoint-set forest over dense integer indices.
package unionfind

// Set is a disjoint-set forest over the indices [0, n).
// Union by rank keeps trees shallow; Find halves paths as it walks.
type Set struct {
	parent []int
	rank   []uint8
}

// New creates a Set where every index starts in its own cluster.
func New(n int) *Set {
	s := &Set{
		parent: make([]int, n),
		rank:   make([]uint8, n),
	}
	for i := range s.parent {
		s.parent[i] = i
	}
	return s
}

// Len returns the number of elements in the set.
func (s *Set) Len() int {
	return len(s.parent)
}

// Find returns the representative index of the cluster containing x.
func (s *Set) Find(x int) int {
	for s.parent[x] != x {
		s.parent[x] = s.parent[s.parent[x]]
		x = s.parent[x]
	}
	return x
}

// Union merges the clusters containing a and b. It reports whether they
// were previously separate.
func (s *Set) Union(a, b int) bool {
	ra, rb := s.Find(a), s.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case s.rank[ra] < s.rank[rb]:
		s.parent[ra] = rb
	case s.rank[ra] > s.rank[rb]:
		s.parent[rb] = ra
	default:
		s.parent[rb] = ra
		s.rank[ra]++
	}
	return true
}

// Same reports whether a and b are in the same cluster.
func (s *Set) Same(a, b int) bool {
	return s.Find(a) == s.Find(b)
}

// Clusters lists every cluster as ascending member indices. Clusters are
// ordered by their smallest member, so the result does not depend on
// which element became the representative.
func (s *Set) Clusters() [][]int {
	slot := make(map[int]int)
	var out [][]int
	for i := range s.parent {
		r := s.Find(i)
		k, ok := slot[r]
		if !ok {
			k = len(out)
			slot[r] = k
			out = append(out, nil)
		}
		out[k] = append(out[k], i)
	}
	return out
}

// ClusterPairs builds a Set of n elements and unions every pair (i, j), i < j,
// for which join returns true.
func ClusterPairs(n int, join func(i, j int) bool) *Set {
	s := New(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if join(i, j) {
				s.Union(i, j)
			}
		}
	}
	return s
}
