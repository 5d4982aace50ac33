package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutator_InsertAfterMovesNode(t *testing.T) {
	e := NewEditor()
	a := appendParagraph(t, e, "a")
	b := appendParagraph(t, e, "b")
	c := appendParagraph(t, e, "c")

	var u Update
	e.RegisterUpdateListener(func(up Update) { u = up })
	require.NoError(t, e.Update(func(m *Mutator) error {
		return m.InsertAfter(c, a)
	}))

	assert.Equal(t, []NodeKey{b, c, a}, e.State().TopLevel())
	assert.True(t, u.DirtyElements[a])
	assert.False(t, u.DirtyElements[b])
	assert.False(t, u.DirtyElements[c])
}

func TestMutator_InsertBefore(t *testing.T) {
	e := NewEditor()
	a := appendParagraph(t, e, "a")
	b := appendParagraph(t, e, "b")

	require.NoError(t, e.Update(func(m *Mutator) error {
		return m.InsertBefore(a, b)
	}))
	assert.Equal(t, []NodeKey{b, a}, e.State().TopLevel())
}

func TestMutator_Errors(t *testing.T) {
	e := NewEditor()
	p := appendParagraph(t, e, "a")
	text := e.State().Children(p)[0]

	tests := []struct {
		name string
		fn   func(m *Mutator) error
	}{
		{"remove root", func(m *Mutator) error { return m.Remove(RootKey) }},
		{"remove unknown", func(m *Mutator) error { return m.Remove("nope") }},
		{"append to leaf", func(m *Mutator) error { return m.Append(text, m.CreateText("x")) }},
		{"append into own subtree", func(m *Mutator) error { return m.Append(p, p) }},
		{"insert next to self", func(m *Mutator) error { return m.InsertAfter(p, p) }},
		{"insert root", func(m *Mutator) error { return m.Append(p, RootKey) }},
		{"set text on element", func(m *Mutator) error { return m.SetText(p, "x") }},
		{"heading tag on paragraph", func(m *Mutator) error { return m.SetHeadingTag(p, "h2") }},
		{"widget on text", func(m *Mutator) error { return m.SetWidget(text, MathWidget{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, e.Update(tt.fn))
		})
	}
	assert.Equal(t, "a", e.State().TextContent(p))
}

func TestMutator_ClearDropsEverything(t *testing.T) {
	e := NewEditor()
	appendParagraph(t, e, "a")
	appendParagraph(t, e, "b")

	require.NoError(t, e.Update(func(m *Mutator) error {
		return m.Clear()
	}))

	assert.True(t, e.State().IsEmpty())
	assert.Equal(t, 1, e.State().Len())
}

func TestMutator_NestedEditMarksAncestors(t *testing.T) {
	e := NewEditor()
	var quote, inner, text NodeKey
	require.NoError(t, e.Update(func(m *Mutator) error {
		quote = m.CreateQuote()
		inner = m.CreateParagraph()
		text = m.CreateText("deep")
		if err := m.Append(m.Root(), quote); err != nil {
			return err
		}
		if err := m.Append(quote, inner); err != nil {
			return err
		}
		return m.Append(inner, text)
	}))

	var u Update
	e.RegisterUpdateListener(func(up Update) { u = up })
	require.NoError(t, e.Update(func(m *Mutator) error {
		return m.AppendText(text, "er")
	}))

	assert.Contains(t, u.DirtyLeaves, text)
	assert.False(t, u.DirtyElements[inner])
	assert.False(t, u.DirtyElements[quote])
	owner, ok := u.State.Owner(text)
	assert.True(t, ok)
	assert.Equal(t, quote, owner)
	assert.Equal(t, "deeper", u.State.TextContent(quote))
}

func TestMutator_HeadingAndWidget(t *testing.T) {
	e := NewEditor()
	var h, w NodeKey
	require.NoError(t, e.Update(func(m *Mutator) error {
		h = m.CreateHeading("h1")
		w = m.CreateWidget(MathWidget{Expression: "x^2"})
		if err := m.Append(m.Root(), h); err != nil {
			return err
		}
		return m.Append(h, w)
	}))
	require.NoError(t, e.Update(func(m *Mutator) error {
		if err := m.SetHeadingTag(h, "h3"); err != nil {
			return err
		}
		return m.SetWidget(w, MathWidget{Expression: "y", Inline: true})
	}))

	n, ok := e.State().Node(h)
	require.True(t, ok)
	assert.Equal(t, HeadingData{Tag: "h3"}, n.Data)
	assert.Equal(t, "y", e.State().TextContent(h))
}
