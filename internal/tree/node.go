package tree

import "strings"

// NodeKey is the ephemeral identity of a node. It is only meaningful for the
// lifetime of the editor that created it.
type NodeKey string

// RootKey is the key of the root of every snapshot.
const RootKey NodeKey = "root"

// Node kinds, as written in serialized content and in bloc_type.
const (
	TypeRoot      = "root"
	TypeParagraph = "paragraph"
	TypeHeading   = "heading"
	TypeQuote     = "quote"
	TypeText      = "text"
	TypeLineBreak = "linebreak"
	TypeWidget    = "widget"
)

// Data is the closed set of node payloads. Only the variants declared in
// this package implement it.
type Data interface {
	Type() string
	isData()
}

type RootData struct{}

type ParagraphData struct{}

type HeadingData struct {
	Tag string // h1..h6
}

type QuoteData struct{}

type TextData struct {
	Text   string
	Format int
}

type LineBreakData struct{}

// WidgetData is an inline widget: a decorator node rendered by the UI.
type WidgetData struct {
	Widget Widget
}

func (RootData) Type() string      { return TypeRoot }
func (ParagraphData) Type() string { return TypeParagraph }
func (HeadingData) Type() string   { return TypeHeading }
func (QuoteData) Type() string     { return TypeQuote }
func (TextData) Type() string      { return TypeText }
func (LineBreakData) Type() string { return TypeLineBreak }
func (WidgetData) Type() string    { return TypeWidget }

func (RootData) isData()      {}
func (ParagraphData) isData() {}
func (HeadingData) isData()   {}
func (QuoteData) isData()     {}
func (TextData) isData()      {}
func (LineBreakData) isData() {}
func (WidgetData) isData()    {}

// Node is one entry of a snapshot. Element nodes carry children, leaves
// never do.
type Node struct {
	Key      NodeKey
	Parent   NodeKey
	Children []NodeKey
	Data     Data
}

// IsElement reports whether the node can hold children.
func (n Node) IsElement() bool {
	return isElement(n.Data)
}

func isElement(d Data) bool {
	switch d.(type) {
	case RootData, ParagraphData, HeadingData, QuoteData:
		return true
	case TextData, LineBreakData, WidgetData:
		return false
	}
	panic("tree: unknown node data")
}

func (n Node) clone() *Node {
	c := n
	if n.Children != nil {
		c.Children = append([]NodeKey(nil), n.Children...)
	}
	return &c
}

// Serializable is implemented by widgets that can be stored.
type Serializable interface {
	WidgetType() string
	Props() map[string]any
}

// Renderable is implemented by widgets that contribute to the text content
// of their block.
type Renderable interface {
	TextContent() string
}

// Widget is an inline decorator. Every widget is both stored and rendered.
type Widget interface {
	Serializable
	Renderable
}

// MathWidget holds a formula.
type MathWidget struct {
	Expression string
	Inline     bool
}

func (w MathWidget) WidgetType() string { return "math" }

func (w MathWidget) Props() map[string]any {
	return map[string]any{"expression": w.Expression, "inline": w.Inline}
}

func (w MathWidget) TextContent() string { return w.Expression }

// EventWidget references an entry of the schedule.
type EventWidget struct {
	EventID string
	Title   string
	Start   string // RFC 3339
}

func (w EventWidget) WidgetType() string { return "event" }

func (w EventWidget) Props() map[string]any {
	return map[string]any{"event_id": w.EventID, "title": w.Title, "start": w.Start}
}

func (w EventWidget) TextContent() string {
	return strings.TrimSpace(w.Title + " " + w.Start)
}
