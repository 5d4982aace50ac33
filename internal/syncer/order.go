package syncer

import "bloc-editor/internal/tree"

// ranked is a durable top-level node competing to keep its position.
type ranked struct {
	key      tree.NodeKey
	position string
	// pinned nodes did not see both neighbours change.
	pinned bool
	// bonus favours nodes that were not edited themselves: 2 untouched,
	// 1 dirty through a neighbour, 0 changed.
	bonus int
}

type keepScore struct {
	pinned, count, bonus int
}

func (a keepScore) less(b keepScore) bool {
	if a.pinned != b.pinned {
		return a.pinned < b.pinned
	}
	if a.count != b.count {
		return a.count < b.count
	}
	return a.bonus < b.bonus
}

func (a keepScore) plus(r ranked) keepScore {
	a.count++
	a.bonus += r.bonus
	if r.pinned {
		a.pinned++
	}
	return a
}

// keepInOrder returns the nodes that keep their position: the best scoring
// subsequence of nodes, in document order, whose positions strictly
// increase. Every other node has to move.
func keepInOrder(nodes []ranked) map[tree.NodeKey]bool {
	kept := make(map[tree.NodeKey]bool, len(nodes))
	if sorted(nodes) {
		for _, n := range nodes {
			kept[n.key] = true
		}
		return kept
	}
	best := make([]keepScore, len(nodes))
	parent := make([]int, len(nodes))
	top := 0
	for i, n := range nodes {
		parent[i] = -1
		best[i] = keepScore{}.plus(n)
		for j := 0; j < i; j++ {
			if nodes[j].position >= n.position {
				continue
			}
			if s := best[j].plus(n); best[i].less(s) {
				best[i] = s
				parent[i] = j
			}
		}
		if best[top].less(best[i]) {
			top = i
		}
	}
	for i := top; i >= 0; i = parent[i] {
		kept[nodes[i].key] = true
	}
	return kept
}

func sorted(nodes []ranked) bool {
	for i := 1; i < len(nodes); i++ {
		if nodes[i-1].position >= nodes[i].position {
			return false
		}
	}
	return true
}
