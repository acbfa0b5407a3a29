package nodes

import (
	"fmt"
	"sort"
	"strings"
)

// SelectorMap indexes addressable elements by node ID.
type SelectorMap map[int]*ElementNode

// NodeState is one immutable snapshot of the UI: the normalized tree,
// the index of actionable elements, and an optional screenshot taken
// at build time.
type NodeState struct {
	Root        *ElementNode
	SelectorMap SelectorMap
	Screenshot  []byte
}

// Lookup returns the addressable element with the given ID.
func (s *NodeState) Lookup(id int) (*ElementNode, bool) {
	if s == nil || s.SelectorMap == nil {
		return nil, false
	}
	n, ok := s.SelectorMap[id]
	return n, ok
}

// ExchangeNodes returns the selector map's exchange projection sorted
// by ID, the form handed to the agent each step.
func (s *NodeState) ExchangeNodes() []ExchangeNode {
	ids := make([]int, 0, len(s.SelectorMap))
	for id := range s.SelectorMap {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]ExchangeNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.SelectorMap[id].Exchange())
	}
	return out
}

// String renders the addressable elements one per line, for prompts
// and debug logs.
func (s *NodeState) String() string {
	var b strings.Builder
	for _, ex := range s.ExchangeNodes() {
		fmt.Fprintf(&b, "[%d] <%s>", ex.ID, ex.Kind)
		if ex.Key != "" {
			fmt.Fprintf(&b, " key=%q", ex.Key)
		}
		if ex.Text != "" {
			fmt.Fprintf(&b, " text=%q", ex.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ErrorKind is the sentinel root kind of a degraded snapshot.
const ErrorKind = "Error"

// NewErrorState builds the single-node snapshot returned when a raw
// dump cannot be parsed. The selector map is empty: the error node is
// not actionable.
func NewErrorState(detail string) *NodeState {
	root := NewElementNode(0, ErrorKind)
	root.Text = detail
	root.Properties = map[string]string{"error": detail}
	return &NodeState{Root: root, SelectorMap: SelectorMap{}}
}

// IsErrorState reports whether the snapshot is a parse-failure sentinel.
func (s *NodeState) IsErrorState() bool {
	return s != nil && s.Root != nil && s.Root.Kind == ErrorKind
}
