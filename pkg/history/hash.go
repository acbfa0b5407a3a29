// Package history computes stable structural fingerprints for UI
// elements so the same on-screen control can be recognized across
// snapshot rebuilds, where per-build IDs are meaningless.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/erickjtorres/app-use/pkg/nodes"
)

// HashedElement carries the fingerprint components for one node.
type HashedElement struct {
	BranchPathHash string `json:"branch_path_hash"`
	AttributesHash string `json:"attributes_hash"`
	Fingerprint    string `json:"fingerprint"`
}

const maxBranchDepth = 150

// Hash fingerprints a node from its position and stable attributes:
// the ancestor kind chain with each node's sibling index, the node's
// own kind, its address key and its normalized text. Geometry and the
// per-build ID are excluded so the fingerprint survives scrolling and
// rebuilds.
func Hash(n nodes.Node) HashedElement {
	branch := sha(strings.Join(branchPath(n), "/"))
	attrs := sha(attributes(n))
	return HashedElement{
		BranchPathHash: branch,
		AttributesHash: attrs,
		Fingerprint:    sha(branch + attrs),
	}
}

// Fingerprint is shorthand for Hash(n).Fingerprint.
func Fingerprint(n nodes.Node) string {
	return Hash(n).Fingerprint
}

// Match reports whether two nodes carry the same fingerprint.
func Match(a, b nodes.Node) bool {
	return Fingerprint(a) == Fingerprint(b)
}

// branchPath returns root-first "kind[index]" components, where index
// is the node's position among its parent's children. The index makes
// sibling reorder change the fingerprint.
func branchPath(n nodes.Node) []string {
	var rev []string
	cur := n
	for cur != nil && len(rev) < maxBranchDepth {
		rev = append(rev, fmt.Sprintf("%s[%d]", kindOf(cur), siblingIndex(cur)))
		parent := cur.ParentElement()
		if parent == nil {
			break
		}
		cur = parent
	}
	out := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

func attributes(n nodes.Node) string {
	key := ""
	if e, ok := n.(*nodes.ElementNode); ok {
		key = e.Key
	}
	return strings.Join([]string{kindOf(n), key, NormalizeText(n.Content())}, "\x1f")
}

func kindOf(n nodes.Node) string {
	if e, ok := n.(*nodes.ElementNode); ok {
		return e.Kind
	}
	return "Text"
}

func siblingIndex(n nodes.Node) int {
	parent := n.ParentElement()
	if parent == nil {
		return 0
	}
	for i, child := range parent.Children {
		if child == n {
			return i
		}
	}
	return 0
}

// NormalizeText collapses whitespace and lowercases, so cosmetic
// re-rendering does not shift identity.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sha(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
