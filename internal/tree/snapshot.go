package tree

import "strings"

// Snapshot is an immutable view of the whole tree at one instant. It is
// never modified once built; edits produce a new snapshot.
type Snapshot struct {
	nodes   map[NodeKey]*Node
	version uint64
}

// NewSnapshot returns a snapshot holding only an empty root.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		nodes: map[NodeKey]*Node{
			RootKey: {Key: RootKey, Children: []NodeKey{}, Data: RootData{}},
		},
	}
}

// Version increases by one for every committed update.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of nodes, root included.
func (s *Snapshot) Len() int { return len(s.nodes) }

// Has reports whether key is attached to the tree.
func (s *Snapshot) Has(key NodeKey) bool {
	_, ok := s.nodes[key]
	return ok
}

// Node returns a copy of the node stored under key.
func (s *Snapshot) Node(key NodeKey) (Node, bool) {
	n, ok := s.nodes[key]
	if !ok {
		return Node{}, false
	}
	return *n.clone(), true
}

// Type returns the node kind of key, or "" when absent.
func (s *Snapshot) Type(key NodeKey) string {
	n, ok := s.nodes[key]
	if !ok {
		return ""
	}
	return n.Data.Type()
}

// Parent returns the parent key of key.
func (s *Snapshot) Parent(key NodeKey) (NodeKey, bool) {
	n, ok := s.nodes[key]
	if !ok || key == RootKey {
		return "", false
	}
	return n.Parent, true
}

// Children returns a copy of the children of key.
func (s *Snapshot) Children(key NodeKey) []NodeKey {
	n, ok := s.nodes[key]
	if !ok {
		return nil
	}
	return append([]NodeKey(nil), n.Children...)
}

// TopLevel returns the children of the root in document order.
func (s *Snapshot) TopLevel() []NodeKey {
	return s.Children(RootKey)
}

// IsTopLevel reports whether key is a direct child of the root.
func (s *Snapshot) IsTopLevel(key NodeKey) bool {
	n, ok := s.nodes[key]
	return ok && key != RootKey && n.Parent == RootKey
}

// IndexOf returns the position of key among its siblings, or -1.
func (s *Snapshot) IndexOf(key NodeKey) int {
	n, ok := s.nodes[key]
	if !ok || key == RootKey {
		return -1
	}
	for i, k := range s.nodes[n.Parent].Children {
		if k == key {
			return i
		}
	}
	return -1
}

// PrevSibling returns the sibling just before key.
func (s *Snapshot) PrevSibling(key NodeKey) (NodeKey, bool) {
	i := s.IndexOf(key)
	if i <= 0 {
		return "", false
	}
	return s.nodes[s.nodes[key].Parent].Children[i-1], true
}

// NextSibling returns the sibling just after key.
func (s *Snapshot) NextSibling(key NodeKey) (NodeKey, bool) {
	i := s.IndexOf(key)
	if i < 0 {
		return "", false
	}
	siblings := s.nodes[s.nodes[key].Parent].Children
	if i+1 >= len(siblings) {
		return "", false
	}
	return siblings[i+1], true
}

// Owner returns the top-level node containing key: key itself when its
// parent is the root, otherwise its closest ancestor under the root.
func (s *Snapshot) Owner(key NodeKey) (NodeKey, bool) {
	if key == RootKey {
		return "", false
	}
	for {
		n, ok := s.nodes[key]
		if !ok {
			return "", false
		}
		if n.Parent == RootKey {
			return key, true
		}
		key = n.Parent
	}
}

// TextContent returns the concatenated text under key.
func (s *Snapshot) TextContent(key NodeKey) string {
	var b strings.Builder
	s.writeText(&b, key)
	return b.String()
}

func (s *Snapshot) writeText(b *strings.Builder, key NodeKey) {
	n, ok := s.nodes[key]
	if !ok {
		return
	}
	switch d := n.Data.(type) {
	case TextData:
		b.WriteString(d.Text)
	case LineBreakData:
		b.WriteByte('\n')
	case WidgetData:
		b.WriteString(d.Widget.TextContent())
	case RootData, ParagraphData, HeadingData, QuoteData:
		for i, c := range n.Children {
			if key == RootKey && i > 0 {
				b.WriteString("\n\n")
			}
			s.writeText(b, c)
		}
	}
}

// IsEmpty reports whether the root has no children.
func (s *Snapshot) IsEmpty() bool {
	return len(s.nodes[RootKey].Children) == 0
}
