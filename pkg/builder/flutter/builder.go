// Package flutter builds normalized element trees from the Flutter
// widget inspector's summary tree JSON.
package flutter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/erickjtorres/app-use/pkg/logger"
	"github.com/erickjtorres/app-use/pkg/nodes"
)

// Context carries per-build parameters. The inspector reports no
// geometry, so there is no viewport to configure.
type Context struct{}

// Builder converts widget inspector JSON into a NodeState.
type Builder struct{}

// NewBuilder returns a widget-tree builder.
func NewBuilder() *Builder {
	return &Builder{}
}

const maxDepth = 150

// keyRe extracts the name from Flutter key syntax: [<'name'>]
var keyRe = regexp.MustCompile(`\[<'(.+?)'>\]`)

// Widget kinds that accept input.
var interactiveWidgets = []string{
	"ElevatedButton", "TextButton", "OutlinedButton", "IconButton",
	"FloatingActionButton", "InkWell", "GestureDetector", "TextField",
	"TextFormField", "Checkbox", "Radio", "Switch", "Slider",
	"DropdownButton", "PopupMenuButton", "ListTile", "Card",
	"CupertinoButton", "CupertinoTextField", "BackButton", "CloseButton",
	"FilledButton", "SegmentedButton", "Chip", "ActionChip", "ChoiceChip",
	"FilterChip", "InputChip",
}

// Property names whose presence marks a widget as interactive.
var handlerProps = []string{
	"onpressed", "ontap", "onchanged", "onsubmitted", "onlongpress",
	"ondoubletap", "oneditingcomplete", "onselected", "ondeleted",
}

// Property names mined for widget text, in priority order.
var textProps = []string{"data", "text", "textPreview", "label", "title", "hint", "tooltip", "placeholder"}

// Build parses summary-tree JSON into a snapshot. It never returns an
// error: an unparseable dump degrades to a single-node error snapshot.
func (b *Builder) Build(raw []byte, ctx Context) *nodes.NodeState {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.Error("widget tree parse failed: %v", err)
		return nodes.NewErrorState(err.Error())
	}
	return b.BuildFromValue(decoded, ctx)
}

// BuildFromValue builds from an already-decoded inspector payload.
func (b *Builder) BuildFromValue(decoded any, ctx Context) *nodes.NodeState {
	// The inspector wraps the tree in a "result" envelope.
	if m, ok := decoded.(map[string]any); ok {
		if result, ok := m["result"]; ok {
			decoded = result
		}
	}

	w := &walker{}
	root, ok := w.parse(decoded, nil, 0)
	if !ok || root == nil {
		logger.Error("widget tree contained no widgets")
		return nodes.NewErrorState("empty widget tree")
	}

	all := nodes.Collect(root)
	nodes.LinkSiblings(all)

	selector := nodes.SelectorMap{}
	for _, n := range all {
		if e, ok := n.(*nodes.ElementNode); ok && e.Addressable() {
			selector[e.ID] = e
		}
	}

	logger.Debug("built flutter snapshot: %d nodes, %d addressable", len(all), len(selector))
	return &nodes.NodeState{Root: root, SelectorMap: selector}
}

type walker struct {
	nextID int
}

func (w *walker) parse(raw any, parent *nodes.ElementNode, depth int) (*nodes.ElementNode, bool) {
	if depth > maxDepth {
		logger.Warn("widget tree truncated at depth %d", depth)
		return nil, false
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}

	desc, _ := m["description"].(string)
	kind, _ := m["widgetRuntimeType"].(string)
	if kind == "" {
		kind, _, _ = strings.Cut(desc, "-")
		kind = strings.TrimSpace(kind)
	}
	if kind == "" {
		return nil, false
	}

	elem := nodes.NewElementNode(w.nextID, kind)
	w.nextID++
	elem.Parent = parent
	elem.Key = widgetKey(m)
	props := collectProps(m)
	if len(props) > 0 {
		elem.Properties = props
	}
	elem.Text = widgetText(m, props)
	elem.Interactive = isInteractive(kind, props)

	if children, ok := m["children"].([]any); ok {
		for _, rawChild := range children {
			if child, ok := w.parse(rawChild, elem, depth+1); ok && child != nil {
				elem.Children = append(elem.Children, child)
			}
		}
	}
	nodes.ResolveChildText(elem)

	return elem, true
}

// widgetKey pulls the key out of description suffixes or the key
// field, both using Flutter's [<'name'>] syntax.
func widgetKey(m map[string]any) string {
	if key, ok := m["key"].(string); ok {
		if match := keyRe.FindStringSubmatch(key); match != nil {
			return match[1]
		}
		return key
	}
	if desc, ok := m["description"].(string); ok {
		if match := keyRe.FindStringSubmatch(desc); match != nil {
			return match[1]
		}
	}
	return ""
}

// collectProps flattens the inspector's properties list into a map of
// scalar values.
func collectProps(m map[string]any) map[string]string {
	list, ok := m["properties"].([]any)
	if !ok {
		return nil
	}
	out := map[string]string{}
	for _, raw := range list {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := prop["name"].(string)
		if name == "" {
			continue
		}
		if value, ok := prop["value"]; ok {
			out[name] = scalarString(value)
			continue
		}
		if desc, ok := prop["description"].(string); ok {
			out[name] = desc
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func widgetText(m map[string]any, props map[string]string) string {
	if text, ok := m["text"].(string); ok && text != "" {
		return text
	}
	for _, name := range textProps {
		if v := props[name]; v != "" && v != "null" {
			return strings.Trim(v, `"`)
		}
	}
	// Text widgets carry their content in the description: Text("Save")
	if desc, ok := m["description"].(string); ok {
		if strings.HasPrefix(desc, `Text("`) && strings.HasSuffix(desc, `")`) {
			return strings.TrimSuffix(strings.TrimPrefix(desc, `Text("`), `")`)
		}
	}
	return ""
}

func isInteractive(kind string, props map[string]string) bool {
	if props["enabled"] == "false" {
		return false
	}
	base, _, _ := strings.Cut(kind, "-")
	for _, w := range interactiveWidgets {
		if base == w {
			return true
		}
	}
	for name := range props {
		lower := strings.ToLower(name)
		for _, h := range handlerProps {
			if lower == h && props[name] != "null" {
				return true
			}
		}
	}
	return false
}
