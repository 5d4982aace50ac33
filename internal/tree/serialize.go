package tree

import (
	"github.com/goccy/go-json"
	"golang.org/x/xerrors"
)

const serializedVersion = 1

// SerializedNode is the stored form of a node and its subtree.
type SerializedNode struct {
	Type     string           `json:"type"`
	Version  int              `json:"version"`
	Tag      string           `json:"tag,omitempty"`
	Text     string           `json:"text,omitempty"`
	Format   int              `json:"format,omitempty"`
	Widget   string           `json:"widget,omitempty"`
	Props    map[string]any   `json:"props,omitempty"`
	Children []SerializedNode `json:"children,omitempty"`
	State    *NodeState       `json:"$,omitempty"`
}

// NodeState is the bloc metadata stamped onto a serialized top-level node.
type NodeState struct {
	ID        string `json:"id,omitempty"`
	Position  string `json:"position,omitempty"`
	UpdatedAt string `json:"updateAt,omitempty"`
}

func (n *SerializedNode) state() *NodeState {
	if n.State == nil {
		n.State = &NodeState{}
	}
	return n.State
}

func (n *SerializedNode) SetID(id string)             { n.state().ID = id }
func (n *SerializedNode) SetPosition(position string) { n.state().Position = position }

// ID returns the stamped bloc id, or "".
func (n SerializedNode) ID() string {
	if n.State == nil {
		return ""
	}
	return n.State.ID
}

// Position returns the stamped position, or "".
func (n SerializedNode) Position() string {
	if n.State == nil {
		return ""
	}
	return n.State.Position
}

// Export serializes the subtree rooted at key.
func (s *Snapshot) Export(key NodeKey) (SerializedNode, error) {
	n, ok := s.nodes[key]
	if !ok {
		return SerializedNode{}, xerrors.Errorf("tree: node %s not found", key)
	}
	out := SerializedNode{Type: n.Data.Type(), Version: serializedVersion}
	switch d := n.Data.(type) {
	case TextData:
		out.Text = d.Text
		out.Format = d.Format
	case HeadingData:
		out.Tag = d.Tag
	case WidgetData:
		out.Widget = d.Widget.WidgetType()
		out.Props = d.Widget.Props()
	case RootData, ParagraphData, QuoteData, LineBreakData:
	}
	for _, c := range n.Children {
		child, err := s.Export(c)
		if err != nil {
			return SerializedNode{}, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

// Encode returns the JSON form of n.
func Encode(n SerializedNode) (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", xerrors.Errorf("tree: encode %s: %w", n.Type, err)
	}
	return string(b), nil
}

// Decode parses content produced by Encode.
func Decode(content string) (SerializedNode, error) {
	var n SerializedNode
	if err := json.Unmarshal([]byte(content), &n); err != nil {
		return SerializedNode{}, xerrors.Errorf("tree: decode: %w", err)
	}
	if n.Type == "" {
		return SerializedNode{}, xerrors.New("tree: decode: missing node type")
	}
	return n, nil
}

// SameContent reports whether key serializes identically in a and b.
func SameContent(a, b *Snapshot, key NodeKey) bool {
	ea, errA := a.Export(key)
	eb, errB := b.Export(key)
	if errA != nil || errB != nil {
		return false
	}
	ja, errA := Encode(ea)
	jb, errB := Encode(eb)
	return errA == nil && errB == nil && ja == jb
}

func dataFromSerialized(n SerializedNode) (Data, error) {
	switch n.Type {
	case TypeParagraph:
		return ParagraphData{}, nil
	case TypeHeading:
		return HeadingData{Tag: n.Tag}, nil
	case TypeQuote:
		return QuoteData{}, nil
	case TypeText:
		return TextData{Text: n.Text, Format: n.Format}, nil
	case TypeLineBreak:
		return LineBreakData{}, nil
	case TypeWidget:
		w, err := widgetFromProps(n.Widget, n.Props)
		if err != nil {
			return nil, err
		}
		return WidgetData{Widget: w}, nil
	}
	return nil, xerrors.Errorf("tree: unknown node type %q", n.Type)
}

func widgetFromProps(kind string, props map[string]any) (Widget, error) {
	str := func(k string) string {
		s, _ := props[k].(string)
		return s
	}
	switch kind {
	case "math":
		inline, _ := props["inline"].(bool)
		return MathWidget{Expression: str("expression"), Inline: inline}, nil
	case "event":
		return EventWidget{EventID: str("event_id"), Title: str("title"), Start: str("start")}, nil
	}
	return nil, xerrors.Errorf("tree: unknown widget %q", kind)
}
