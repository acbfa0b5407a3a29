package nodes

import "strings"

// Widget kinds that host scrollable content, across backends.
var scrollableKinds = map[string]bool{
	"ScrollView":                    true,
	"HorizontalScrollView":          true,
	"FlatList":                      true,
	"SectionList":                   true,
	"VirtualizedList":               true,
	"ListView":                      true,
	"SingleChildScrollView":         true,
	"CustomScrollView":              true,
	"GridView":                      true,
	"PageView":                      true,
	"NestedScrollView":              true,
	"RecyclerView":                  true,
	"android.widget.ScrollView":     true,
	"android.widget.ListView":       true,
	"android.widget.GridView":       true,
	"XCUIElementTypeScrollView":     true,
	"XCUIElementTypeTable":          true,
	"XCUIElementTypeCollectionView": true,
}

// IsScrollableKind reports whether kind names a scroll container.
func IsScrollableKind(kind string) bool {
	if scrollableKinds[kind] {
		return true
	}
	base, _, _ := strings.Cut(kind, "-")
	return scrollableKinds[base]
}

// maxTreeDepth matches the builders' depth ceiling.
const maxTreeDepth = 150

// Collect returns every node reachable from root in depth-first order.
func Collect(root Node) []Node {
	var out []Node
	seen := make(map[int]bool)
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		if n == nil || depth > maxTreeDepth {
			return
		}
		if seen[n.UniqueID()] {
			return
		}
		seen[n.UniqueID()] = true
		out = append(out, n)
		if e, ok := n.(*ElementNode); ok {
			for _, c := range e.Children {
				walk(c, depth+1)
			}
		}
	}
	walk(root, 0)
	return out
}

// FindByKey returns elements under root whose address key equals key.
func FindByKey(root Node, key string) []*ElementNode {
	var out []*ElementNode
	for _, n := range Collect(root) {
		if e, ok := n.(*ElementNode); ok && e.Key == key {
			out = append(out, e)
		}
	}
	return out
}

// FindByKind returns elements under root with the given kind.
func FindByKind(root Node, kind string) []*ElementNode {
	var out []*ElementNode
	for _, n := range Collect(root) {
		if e, ok := n.(*ElementNode); ok && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// FindByText returns nodes whose text contains the given substring.
func FindByText(root Node, text string) []Node {
	var out []Node
	for _, n := range Collect(root) {
		if text != "" && strings.Contains(n.Content(), text) {
			out = append(out, n)
		}
	}
	return out
}

// ScrollableAncestor walks up from n and returns the nearest ancestor
// that hosts scrollable content, or nil.
func ScrollableAncestor(n Node) *ElementNode {
	depth := 0
	for cur := n.ParentElement(); cur != nil; cur = cur.Parent {
		if depth >= maxAncestorWalk {
			return nil
		}
		if IsScrollableKind(cur.BaseKind()) {
			return cur
		}
		depth++
	}
	return nil
}

// ScrollableDescendant returns the first scroll container found in a
// depth-first walk below n, or nil.
func ScrollableDescendant(n *ElementNode) *ElementNode {
	for _, found := range Collect(n) {
		e, ok := found.(*ElementNode)
		if !ok || e == n {
			continue
		}
		if IsScrollableKind(e.BaseKind()) {
			return e
		}
	}
	return nil
}
