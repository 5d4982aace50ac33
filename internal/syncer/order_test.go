package syncer

import (
	"testing"

	"bloc-editor/internal/tree"

	"github.com/stretchr/testify/assert"
)

func keptKeys(m map[tree.NodeKey]bool) []tree.NodeKey {
	var out []tree.NodeKey
	for _, k := range []tree.NodeKey{"a", "b", "c", "d", "e"} {
		if m[k] {
			out = append(out, k)
		}
	}
	return out
}

func TestKeepInOrder(t *testing.T) {
	tests := []struct {
		name  string
		nodes []ranked
		want  []tree.NodeKey
	}{
		{
			name: "sorted",
			nodes: []ranked{
				{key: "a", position: "a0", pinned: true},
				{key: "b", position: "a1"},
			},
			want: []tree.NodeKey{"a", "b"},
		},
		{
			name: "moved node leaves, neighbours stay",
			nodes: []ranked{
				{key: "b", position: "a1", pinned: true, bonus: 1},
				{key: "c", position: "a2", pinned: true, bonus: 1},
				{key: "a", position: "a0", bonus: 0},
			},
			want: []tree.NodeKey{"b", "c"},
		},
		{
			name: "pinned nodes win over a longer run",
			nodes: []ranked{
				{key: "d", position: "a3", pinned: true},
				{key: "a", position: "a0"},
				{key: "b", position: "a1"},
				{key: "c", position: "a2"},
			},
			want: []tree.NodeKey{"d"},
		},
		{
			name: "untouched nodes break ties",
			nodes: []ranked{
				{key: "b", position: "a1", bonus: 2},
				{key: "a", position: "a0", bonus: 0},
			},
			want: []tree.NodeKey{"b"},
		},
		{
			name: "duplicate positions",
			nodes: []ranked{
				{key: "a", position: "a0", bonus: 2},
				{key: "b", position: "a0", bonus: 0},
				{key: "c", position: "a1", bonus: 2},
			},
			want: []tree.NodeKey{"a", "c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keptKeys(keepInOrder(tt.nodes)))
		})
	}
	assert.Empty(t, keepInOrder(nil))
}
