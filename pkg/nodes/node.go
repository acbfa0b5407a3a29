// Package nodes defines the normalized UI element tree shared by every
// backend builder: element and text nodes, geometry, the snapshot state
// handed to the agent, and query helpers over a built tree.
package nodes

import (
	"fmt"
	"strings"
)

// maxAncestorWalk bounds parent-chain traversals on malformed trees.
const maxAncestorWalk = 100

// CoordinateSet is an axis-aligned rectangle in screen pixels.
type CoordinateSet struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the rectangle.
func (c CoordinateSet) Center() (float64, float64) {
	return c.X + c.Width/2, c.Y + c.Height/2
}

// Intersects reports whether the two rectangles overlap.
func (c CoordinateSet) Intersects(o CoordinateSet) bool {
	return c.X < o.X+o.Width && c.X+c.Width > o.X &&
		c.Y < o.Y+o.Height && c.Y+c.Height > o.Y
}

// Expand grows the rectangle by margin pixels on every side.
func (c CoordinateSet) Expand(margin float64) CoordinateSet {
	return CoordinateSet{
		X:      c.X - margin,
		Y:      c.Y - margin,
		Width:  c.Width + 2*margin,
		Height: c.Height + 2*margin,
	}
}

// ViewportInfo describes the visible screen area a snapshot was taken on.
type ViewportInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Node is either an ElementNode or a TextNode.
type Node interface {
	// UniqueID is the per-build sequential identifier.
	UniqueID() int
	// Content is the node's resolved text, empty when none.
	Content() string
	// ParentElement is the containing element, nil for the root.
	ParentElement() *ElementNode
	// IsInteractive reports whether the node can receive input. For
	// text nodes this is inherited from the nearest element ancestor.
	IsInteractive() bool
	// Exchange projects the node into its agent-facing form.
	Exchange() ExchangeNode
}

// ElementNode is a structural UI element normalized from a backend dump.
type ElementNode struct {
	ID          int
	Kind        string
	Interactive bool
	Text        string
	Key         string
	Properties  map[string]string
	Children    []Node
	Parent      *ElementNode
	PrevSibling Node
	NextSibling Node

	// Geometry is optional; backends without layout data leave it nil
	// and the visibility flags default to true.
	ViewportRect *CoordinateSet
	PageRect     *CoordinateSet
	Viewport     *ViewportInfo
	Visible      bool
	InViewport   bool
}

// NewElementNode returns an element with visibility defaults applied.
func NewElementNode(id int, kind string) *ElementNode {
	return &ElementNode{
		ID:         id,
		Kind:       kind,
		Visible:    true,
		InViewport: true,
	}
}

func (n *ElementNode) UniqueID() int               { return n.ID }
func (n *ElementNode) Content() string             { return n.Text }
func (n *ElementNode) ParentElement() *ElementNode { return n.Parent }
func (n *ElementNode) IsInteractive() bool         { return n.Interactive }

// AddChild appends child and sets its parent link.
func (n *ElementNode) AddChild(child Node) {
	switch c := child.(type) {
	case *ElementNode:
		c.Parent = n
	case *TextNode:
		c.Parent = n
	}
	n.Children = append(n.Children, child)
}

// Addressable reports whether the element belongs in the selector map:
// interactive, visible and inside the (expanded) viewport.
func (n *ElementNode) Addressable() bool {
	return n.Interactive && n.Visible && n.InViewport
}

// BaseKind returns the kind up to the first space. Backends like
// Flutter report kinds such as "ElevatedButton-[<'save'>]" trimmed
// already, but accessibility dumps can carry trailing detail.
func (n *ElementNode) BaseKind() string {
	kind, _, _ := strings.Cut(n.Kind, " ")
	return kind
}

// Path renders the ancestor chain root-first, for diagnostics.
func (n *ElementNode) Path() string {
	var parts []string
	for cur := n; cur != nil && len(parts) < maxAncestorWalk; cur = cur.Parent {
		parts = append(parts, fmt.Sprintf("%s(%d)", cur.Kind, cur.ID))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// Exchange implements Node.
func (n *ElementNode) Exchange() ExchangeNode {
	ex := ExchangeNode{
		ID:          n.ID,
		Kind:        n.Kind,
		Interactive: n.Interactive,
		Text:        n.Text,
		Key:         n.Key,
	}
	if n.Parent != nil {
		pid := n.Parent.ID
		ex.Parent = &pid
	}
	return ex
}

// TextNode is a leaf text fragment attached to an element.
type TextNode struct {
	ID     int
	Text   string
	Parent *ElementNode
}

func (n *TextNode) UniqueID() int               { return n.ID }
func (n *TextNode) Content() string             { return n.Text }
func (n *TextNode) ParentElement() *ElementNode { return n.Parent }

// IsInteractive walks up to the nearest element ancestor and reports
// its interactivity. The walk is depth-bounded so a corrupted parent
// chain cannot loop forever.
func (n *TextNode) IsInteractive() bool {
	depth := 0
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if depth >= maxAncestorWalk {
			return false
		}
		if cur.Interactive {
			return true
		}
		depth++
	}
	return false
}

// Exchange implements Node.
func (n *TextNode) Exchange() ExchangeNode {
	ex := ExchangeNode{
		ID:   n.ID,
		Kind: "Text",
		Text: n.Text,
	}
	if n.Parent != nil {
		pid := n.Parent.ID
		ex.Parent = &pid
	}
	return ex
}

// ExchangeNode is the flat, serializable projection of a node that
// crosses the agent boundary.
type ExchangeNode struct {
	ID          int    `json:"id"`
	Kind        string `json:"kind"`
	Interactive bool   `json:"interactive"`
	Text        string `json:"text,omitempty"`
	Key         string `json:"key,omitempty"`
	Parent      *int   `json:"parent,omitempty"`
}

// LinkSiblings sets PrevSibling/NextSibling on all nodes, grouped by
// parent and kept in child order. Nodes whose parent pointer refers to
// themselves are skipped.
func LinkSiblings(all []Node) {
	byParent := make(map[*ElementNode][]Node)
	var order []*ElementNode
	for _, n := range all {
		p := n.ParentElement()
		if p == nil {
			continue
		}
		if e, ok := n.(*ElementNode); ok && e == p {
			continue
		}
		if _, seen := byParent[p]; !seen {
			order = append(order, p)
		}
		byParent[p] = append(byParent[p], n)
	}
	for _, p := range order {
		group := byParent[p]
		for i, n := range group {
			var prev, next Node
			if i > 0 {
				prev = group[i-1]
			}
			if i < len(group)-1 {
				next = group[i+1]
			}
			switch e := n.(type) {
			case *ElementNode:
				e.PrevSibling, e.NextSibling = prev, next
			}
		}
	}
}

// ResolveChildText fills an element's text from its children when the
// backend gave it none: interactive elements aggregate all descendant
// text fragments space-joined; a non-interactive element adopts the
// text of its single non-interactive child.
func ResolveChildText(n *ElementNode) {
	if n.Text != "" {
		return
	}
	if n.Interactive {
		if agg := collectDescendantText(n, 0); agg != "" {
			n.Text = agg
		}
		return
	}
	if len(n.Children) == 1 {
		if child, ok := n.Children[0].(*ElementNode); ok && !child.Interactive && child.Text != "" {
			n.Text = child.Text
		}
		if child, ok := n.Children[0].(*TextNode); ok && child.Text != "" {
			n.Text = child.Text
		}
	}
}

func collectDescendantText(n *ElementNode, depth int) string {
	if depth > maxAncestorWalk {
		return ""
	}
	var parts []string
	for _, child := range n.Children {
		switch c := child.(type) {
		case *TextNode:
			if t := strings.TrimSpace(c.Text); t != "" {
				parts = append(parts, t)
			}
		case *ElementNode:
			if t := strings.TrimSpace(c.Text); t != "" {
				parts = append(parts, t)
			} else if t := collectDescendantText(c, depth+1); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}
