package tree

import (
	"slices"
	"strconv"

	"golang.org/x/xerrors"
)

// Mutator is the write handle passed to Editor.Update. It works on a
// copy-on-write draft of the current snapshot and records which nodes it
// touched: elements in dirtyElements (true when the node itself was
// changed, false when only a descendant or a neighbour was), leaves in
// dirtyLeaves.
type Mutator struct {
	nodes         map[NodeKey]*Node
	owned         map[NodeKey]bool
	nextKey       *uint64
	dirtyElements map[NodeKey]bool
	dirtyLeaves   map[NodeKey]struct{}
}

func newMutator(base *Snapshot, nextKey *uint64) *Mutator {
	nodes := make(map[NodeKey]*Node, len(base.nodes))
	for k, n := range base.nodes {
		nodes[k] = n
	}
	return &Mutator{
		nodes:         nodes,
		owned:         make(map[NodeKey]bool),
		nextKey:       nextKey,
		dirtyElements: make(map[NodeKey]bool),
		dirtyLeaves:   make(map[NodeKey]struct{}),
	}
}

// Root returns the root key.
func (m *Mutator) Root() NodeKey { return RootKey }

// Get returns a copy of the draft node.
func (m *Mutator) Get(key NodeKey) (Node, bool) {
	n, ok := m.nodes[key]
	if !ok {
		return Node{}, false
	}
	return *n.clone(), true
}

// TopLevel returns the current children of the root.
func (m *Mutator) TopLevel() []NodeKey {
	return append([]NodeKey(nil), m.nodes[RootKey].Children...)
}

func (m *Mutator) CreateParagraph() NodeKey         { return m.create(ParagraphData{}) }
func (m *Mutator) CreateHeading(tag string) NodeKey { return m.create(HeadingData{Tag: tag}) }
func (m *Mutator) CreateQuote() NodeKey             { return m.create(QuoteData{}) }
func (m *Mutator) CreateText(text string) NodeKey   { return m.create(TextData{Text: text}) }
func (m *Mutator) CreateLineBreak() NodeKey         { return m.create(LineBreakData{}) }
func (m *Mutator) CreateWidget(w Widget) NodeKey    { return m.create(WidgetData{Widget: w}) }

func (m *Mutator) create(d Data) NodeKey {
	*m.nextKey++
	key := NodeKey(strconv.FormatUint(*m.nextKey, 10))
	n := &Node{Key: key, Data: d}
	if isElement(d) {
		n.Children = []NodeKey{}
	}
	m.nodes[key] = n
	m.owned[key] = true
	return key
}

// Append attaches node as the last child of parent, moving it if it is
// already attached somewhere.
func (m *Mutator) Append(parent, node NodeKey) error {
	p, ok := m.nodes[parent]
	if !ok {
		return xerrors.Errorf("tree: parent %s not found", parent)
	}
	return m.insert(parent, len(p.Children), node)
}

// InsertAfter places node right after ref.
func (m *Mutator) InsertAfter(ref, node NodeKey) error {
	return m.insertNextTo(ref, node, 1)
}

// InsertBefore places node right before ref.
func (m *Mutator) InsertBefore(ref, node NodeKey) error {
	return m.insertNextTo(ref, node, 0)
}

func (m *Mutator) insertNextTo(ref, node NodeKey, offset int) error {
	if ref == node {
		return xerrors.Errorf("tree: cannot insert %s next to itself", node)
	}
	r, ok := m.nodes[ref]
	if !ok || r.Parent == "" {
		return xerrors.Errorf("tree: reference %s is not attached", ref)
	}
	if err := m.detachIfAttached(node); err != nil {
		return err
	}
	r = m.nodes[ref]
	idx := slices.Index(m.nodes[r.Parent].Children, ref)
	return m.insert(r.Parent, idx+offset, node)
}

func (m *Mutator) insert(parent NodeKey, index int, node NodeKey) error {
	p, ok := m.nodes[parent]
	if !ok {
		return xerrors.Errorf("tree: parent %s not found", parent)
	}
	if !isElement(p.Data) {
		return xerrors.Errorf("tree: %s cannot hold children", parent)
	}
	if node == RootKey {
		return xerrors.New("tree: root cannot be inserted")
	}
	if _, ok := m.nodes[node]; !ok {
		return xerrors.Errorf("tree: node %s not found", node)
	}
	for a := parent; a != ""; a = m.nodes[a].Parent {
		if a == node {
			return xerrors.Errorf("tree: %s cannot become its own descendant", node)
		}
	}
	if err := m.detachIfAttached(node); err != nil {
		return err
	}

	p = m.writable(parent)
	if index > len(p.Children) {
		index = len(p.Children)
	}
	p.Children = slices.Insert(p.Children, index, node)
	m.writable(node).Parent = parent

	m.markNeighbours(parent, index)
	m.mark(node, true)
	return nil
}

// Remove detaches key and its subtree from the tree.
func (m *Mutator) Remove(key NodeKey) error {
	if key == RootKey {
		return xerrors.New("tree: root cannot be removed")
	}
	n, ok := m.nodes[key]
	if !ok || n.Parent == "" {
		return xerrors.Errorf("tree: node %s is not attached", key)
	}
	return m.detach(key)
}

// Clear removes every child of the root.
func (m *Mutator) Clear() error {
	for _, k := range m.TopLevel() {
		if err := m.detach(k); err != nil {
			return err
		}
	}
	return nil
}

// SetText replaces the text of a text node.
func (m *Mutator) SetText(key NodeKey, text string) error {
	n, ok := m.nodes[key]
	if !ok {
		return xerrors.Errorf("tree: node %s not found", key)
	}
	d, ok := n.Data.(TextData)
	if !ok {
		return xerrors.Errorf("tree: %s is not a text node", key)
	}
	d.Text = text
	m.writable(key).Data = d
	m.mark(key, true)
	return nil
}

// AppendText adds text at the end of a text node, as typing does.
func (m *Mutator) AppendText(key NodeKey, text string) error {
	n, ok := m.nodes[key]
	if !ok {
		return xerrors.Errorf("tree: node %s not found", key)
	}
	d, ok := n.Data.(TextData)
	if !ok {
		return xerrors.Errorf("tree: %s is not a text node", key)
	}
	return m.SetText(key, d.Text+text)
}

// SetHeadingTag changes the level of a heading.
func (m *Mutator) SetHeadingTag(key NodeKey, tag string) error {
	n, ok := m.nodes[key]
	if !ok {
		return xerrors.Errorf("tree: node %s not found", key)
	}
	if _, ok := n.Data.(HeadingData); !ok {
		return xerrors.Errorf("tree: %s is not a heading", key)
	}
	m.writable(key).Data = HeadingData{Tag: tag}
	m.mark(key, true)
	return nil
}

// SetWidget replaces the widget of a widget node.
func (m *Mutator) SetWidget(key NodeKey, w Widget) error {
	n, ok := m.nodes[key]
	if !ok {
		return xerrors.Errorf("tree: node %s not found", key)
	}
	if _, ok := n.Data.(WidgetData); !ok {
		return xerrors.Errorf("tree: %s is not a widget", key)
	}
	m.writable(key).Data = WidgetData{Widget: w}
	m.mark(key, true)
	return nil
}

// Import creates the subtree described by n and appends it to parent.
func (m *Mutator) Import(parent NodeKey, n SerializedNode) (NodeKey, error) {
	d, err := dataFromSerialized(n)
	if err != nil {
		return "", err
	}
	key := m.create(d)
	for _, c := range n.Children {
		if !isElement(d) {
			return "", xerrors.Errorf("tree: %s node cannot hold children", n.Type)
		}
		if _, err := m.Import(key, c); err != nil {
			return "", err
		}
	}
	if err := m.Append(parent, key); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Mutator) detachIfAttached(key NodeKey) error {
	n, ok := m.nodes[key]
	if !ok {
		return xerrors.Errorf("tree: node %s not found", key)
	}
	if n.Parent == "" {
		return nil
	}
	return m.detach(key)
}

func (m *Mutator) detach(key NodeKey) error {
	n := m.nodes[key]
	parent := n.Parent
	idx := slices.Index(m.nodes[parent].Children, key)
	if idx < 0 {
		return xerrors.Errorf("tree: %s missing from its parent", key)
	}
	m.mark(key, true)
	m.markNeighbours(parent, idx)

	p := m.writable(parent)
	p.Children = slices.Delete(p.Children, idx, idx+1)
	m.writable(key).Parent = ""
	return nil
}

// markNeighbours marks the siblings around index in parent: the ones whose
// previous or next sibling is about to change.
func (m *Mutator) markNeighbours(parent NodeKey, index int) {
	children := m.nodes[parent].Children
	for _, i := range []int{index - 1, index + 1} {
		if i >= 0 && i < len(children) {
			m.mark(children[i], false)
		}
	}
}

func (m *Mutator) mark(key NodeKey, intentional bool) {
	n := m.nodes[key]
	if isElement(n.Data) {
		m.dirtyElements[key] = m.dirtyElements[key] || intentional
	} else {
		m.dirtyLeaves[key] = struct{}{}
	}
	for a := n.Parent; a != ""; a = m.nodes[a].Parent {
		if _, ok := m.dirtyElements[a]; !ok {
			m.dirtyElements[a] = false
		}
	}
}

func (m *Mutator) writable(key NodeKey) *Node {
	if m.owned[key] {
		return m.nodes[key]
	}
	c := m.nodes[key].clone()
	m.nodes[key] = c
	m.owned[key] = true
	return c
}

func (m *Mutator) dirty() bool {
	return len(m.dirtyElements) > 0 || len(m.dirtyLeaves) > 0
}

// commit drops every node no longer reachable from the root and freezes
// the draft.
func (m *Mutator) commit(version uint64) *Snapshot {
	reachable := make(map[NodeKey]bool, len(m.nodes))
	stack := []NodeKey{RootKey}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reachable[k] = true
		stack = append(stack, m.nodes[k].Children...)
	}
	nodes := make(map[NodeKey]*Node, len(reachable))
	for k := range reachable {
		nodes[k] = m.nodes[k]
	}
	return &Snapshot{nodes: nodes, version: version}
}
