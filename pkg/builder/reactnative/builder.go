// Package reactnative builds normalized element trees from React
// Native component/fiber dumps: deeply nested maps of type/props/
// children with framework plumbing interleaved between the components
// a user can actually see.
package reactnative

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/erickjtorres/app-use/pkg/logger"
	"github.com/erickjtorres/app-use/pkg/nodes"
)

// Context carries per-build parameters. Fiber dumps carry no layout
// geometry, so there is no viewport to configure.
type Context struct{}

// Builder converts a fiber/component tree into a NodeState.
type Builder struct{}

// NewBuilder returns a fiber-tree builder.
func NewBuilder() *Builder {
	return &Builder{}
}

const maxDepth = 150

// Framework plumbing kinds that never reach the normalized tree.
var irrelevantKinds = map[string]bool{
	"Fragment":                       true,
	"StrictMode":                     true,
	"Suspense":                       true,
	"Profiler":                       true,
	"Context.Provider":               true,
	"Context.Consumer":               true,
	"Provider":                       true,
	"Consumer":                       true,
	"ThemeProvider":                  true,
	"SafeAreaProvider":               true,
	"SafeAreaInsetsContext":          true,
	"NavigationContainer":            true,
	"NavigationContent":              true,
	"EnsureSingleNavigator":          true,
	"BaseNavigationContainer":        true,
	"ForwardRef":                     true,
	"Memo":                           true,
	"LogBox":                         true,
	"LogBoxStateSubscription":        true,
	"AppContainer":                   true,
	"DevtoolsOverlay":                true,
	"PerformanceLoggerContext":       true,
	"GestureHandlerRootView":         true,
	"RootTagContext":                 true,
	"VirtualizedListContextProvider": true,
}

// canonicalNames maps internal host-component names onto the names a
// developer writes.
var canonicalNames = map[string]string{
	"RCTView":                    "View",
	"RCTText":                    "Text",
	"RCTVirtualText":             "Text",
	"RCTImageView":               "Image",
	"RCTScrollView":              "ScrollView",
	"RCTTextInput":               "TextInput",
	"AndroidTextInput":           "TextInput",
	"RCTSinglelineTextInputView": "TextInput",
	"RCTMultilineTextInputView":  "TextInput",
	"RCTSwitch":                  "Switch",
	"AndroidSwitch":              "Switch",
	"RCTSlider":                  "Slider",
	"RCTModalHostView":           "Modal",
	"RCTSafeAreaView":            "SafeAreaView",
	"RCTRefreshControl":          "RefreshControl",
	"RCTActivityIndicatorView":   "ActivityIndicator",
}

// Component kinds that are interactive by nature.
var interactiveKinds = map[string]bool{
	"TouchableOpacity":         true,
	"TouchableHighlight":       true,
	"TouchableWithoutFeedback": true,
	"TouchableNativeFeedback":  true,
	"Pressable":                true,
	"Button":                   true,
	"TextInput":                true,
	"Switch":                   true,
	"Slider":                   true,
	"Picker":                   true,
	"CheckBox":                 true,
	"RefreshControl":           true,
	"SegmentedControl":         true,
}

// Prop names that mark a component as interactive when present.
var handlerProps = []string{
	"onPress", "onLongPress", "onPressIn", "onPressOut", "onChangeText",
	"onChange", "onSubmitEditing", "onValueChange", "onSelect", "onSlidingComplete",
}

// Prop names mined for element text, in priority order.
var textProps = []string{
	"accessibilityLabel", "label", "title", "placeholder", "value",
	"alt", "caption", "aria-label",
}

// Build parses fiber-tree JSON into a snapshot. It never returns an
// error: an unparseable dump degrades to a single-node error snapshot.
func (b *Builder) Build(raw []byte, ctx Context) *nodes.NodeState {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.Error("fiber tree parse failed: %v", err)
		return nodes.NewErrorState(err.Error())
	}
	return b.BuildFromValue(decoded, ctx)
}

// BuildFromValue builds from an already-decoded fiber tree. Trees
// assembled in memory may contain aliased or cyclic maps; the walk
// tracks map identity along the current path and truncates instead of
// recursing forever.
func (b *Builder) BuildFromValue(decoded any, ctx Context) *nodes.NodeState {
	w := &walker{}
	root := w.parse(decoded, nil, map[uintptr]bool{}, 0)
	rootElem, ok := root.(*nodes.ElementNode)
	if !ok || rootElem == nil {
		logger.Error("fiber tree contained no components")
		return nodes.NewErrorState("empty component tree")
	}

	pruneWrappers(rootElem)

	all := nodes.Collect(rootElem)
	nodes.LinkSiblings(all)

	selector := nodes.SelectorMap{}
	for _, n := range all {
		if e, ok := n.(*nodes.ElementNode); ok && e.Addressable() {
			selector[e.ID] = e
		}
	}

	logger.Debug("built react-native snapshot: %d nodes, %d addressable", len(all), len(selector))
	return &nodes.NodeState{Root: rootElem, SelectorMap: selector}
}

type walker struct {
	nextID int
}

// parse converts one raw fiber entry. path holds the identities of
// maps on the current recursion branch; each child gets its own copy
// so shared (non-cyclic) subtrees still parse.
func (w *walker) parse(raw any, parent *nodes.ElementNode, path map[uintptr]bool, depth int) nodes.Node {
	if depth > maxDepth {
		logger.Warn("fiber tree truncated at depth %d", depth)
		return nil
	}

	switch v := raw.(type) {
	case string:
		if text := strings.TrimSpace(v); text != "" {
			t := &nodes.TextNode{ID: w.nextID, Text: text, Parent: parent}
			w.nextID++
			return t
		}
		return nil
	case map[string]any:
		return w.parseComponent(v, parent, path, depth)
	default:
		return nil
	}
}

func (w *walker) parseComponent(m map[string]any, parent *nodes.ElementNode, path map[uintptr]bool, depth int) nodes.Node {
	id := reflect.ValueOf(m).Pointer()
	if path[id] {
		logger.Warn("cycle in fiber tree at depth %d, truncating", depth)
		return nil
	}

	kind := componentKind(m)
	if kind == "" || strings.HasPrefix(kind, "_") || irrelevantKinds[kind] {
		// Plumbing: splice its children into the parent by parsing
		// the first renderable child in place.
		return w.parseThrough(m, parent, path, depth, id)
	}
	if canonical, ok := canonicalNames[kind]; ok {
		kind = canonical
	}

	props, _ := m["props"].(map[string]any)
	text := componentText(m, props)

	// Pure text components become leaf text nodes.
	if kind == "Text" && text != "" && !hasRenderableChildren(m, props) {
		t := &nodes.TextNode{ID: w.nextID, Text: text, Parent: parent}
		w.nextID++
		return t
	}

	elem := nodes.NewElementNode(w.nextID, kind)
	w.nextID++
	elem.Parent = parent
	elem.Text = text
	elem.Key = addressKey(m, props)
	elem.Interactive = isInteractive(kind, props)
	if scalars := scalarProps(props); len(scalars) > 0 {
		elem.Properties = scalars
	}

	branch := copyPath(path)
	branch[id] = true
	for _, rawChild := range childList(m, props) {
		if child := w.parse(rawChild, elem, branch, depth+1); child != nil {
			elem.Children = append(elem.Children, child)
		}
	}
	nodes.ResolveChildText(elem)

	return elem
}

// parseThrough skips a plumbing component but keeps walking its
// children. A single renderable child replaces it; several children
// get a synthetic View so tree shape survives.
func (w *walker) parseThrough(m map[string]any, parent *nodes.ElementNode, path map[uintptr]bool, depth int, id uintptr) nodes.Node {
	branch := copyPath(path)
	branch[id] = true

	props, _ := m["props"].(map[string]any)
	var parsed []nodes.Node
	holder := nodes.NewElementNode(-1, "View")
	holder.Parent = parent
	for _, rawChild := range childList(m, props) {
		if child := w.parse(rawChild, holder, branch, depth+1); child != nil {
			parsed = append(parsed, child)
		}
	}

	switch len(parsed) {
	case 0:
		return nil
	case 1:
		reparent(parsed[0], parent)
		return parsed[0]
	default:
		holder.ID = w.nextID
		w.nextID++
		holder.Children = parsed
		return holder
	}
}

func reparent(n nodes.Node, parent *nodes.ElementNode) {
	switch c := n.(type) {
	case *nodes.ElementNode:
		c.Parent = parent
	case *nodes.TextNode:
		c.Parent = parent
	}
}

func copyPath(path map[uintptr]bool) map[uintptr]bool {
	out := make(map[uintptr]bool, len(path)+1)
	for k := range path {
		out[k] = true
	}
	return out
}

func componentKind(m map[string]any) string {
	for _, field := range []string{"displayName", "name", "type"} {
		if v, ok := m[field].(string); ok && v != "" {
			return v
		}
	}
	if t, ok := m["type"].(map[string]any); ok {
		for _, field := range []string{"displayName", "name"} {
			if v, ok := t[field].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}

// componentText resolves element text: explicit text field, then
// well-known props, then numbered props (fibers split text runs into
// "0", "1", ... keys), then plain string children.
func componentText(m map[string]any, props map[string]any) string {
	if text, ok := m["text"].(string); ok && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	for _, name := range textProps {
		if v, ok := props[name].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if text := numberedPropsText(props); text != "" {
		return text
	}
	if v, ok := props["children"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := m["children"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if text := deepPropsText(m, map[uintptr]bool{}, 0); text != "" {
		return text
	}
	return ""
}

// numberedPropsText joins props keyed "0", "1", ... in numeric order.
func numberedPropsText(props map[string]any) string {
	var indices []int
	for k := range props {
		if i, err := strconv.Atoi(k); err == nil {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return ""
	}
	sort.Ints(indices)

	var parts []string
	for _, i := range indices {
		if s, ok := props[strconv.Itoa(i)].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// deepPropsText mines memoizedProps/stateNode chains for text the
// shallow lookups missed. Bounded: fibers link back to themselves.
func deepPropsText(v any, visited map[uintptr]bool, depth int) string {
	if depth > 6 {
		return ""
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	id := reflect.ValueOf(m).Pointer()
	if visited[id] {
		return ""
	}
	visited[id] = true

	for _, field := range []string{"memoizedProps", "props", "pendingProps"} {
		inner, ok := m[field].(map[string]any)
		if !ok {
			continue
		}
		for _, name := range append([]string{"text", "children"}, textProps...) {
			if s, ok := inner[name].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		if s := deepPropsText(inner["children"], visited, depth+1); s != "" {
			return s
		}
	}
	for _, field := range []string{"stateNode", "child", "sibling"} {
		if s := deepPropsText(m[field], visited, depth+1); s != "" {
			return s
		}
	}
	return ""
}

func addressKey(m map[string]any, props map[string]any) string {
	if v, ok := props["testID"].(string); ok && v != "" {
		return v
	}
	if v, ok := m["testID"].(string); ok && v != "" {
		return v
	}
	if v, ok := props["key"].(string); ok && v != "" {
		return v
	}
	if v, ok := m["key"].(string); ok && v != "" {
		return v
	}
	return ""
}

func isInteractive(kind string, props map[string]any) bool {
	if v, ok := props["disabled"].(bool); ok && v {
		return false
	}
	if interactiveKinds[kind] {
		return true
	}
	for _, h := range handlerProps {
		if v, ok := props[h]; ok && v != nil {
			return true
		}
	}
	if role, ok := props["accessibilityRole"].(string); ok {
		switch role {
		case "button", "link", "checkbox", "radio", "switch", "tab", "menuitem", "search":
			return true
		}
	}
	for _, flag := range []string{"clickable", "focusable"} {
		if v, ok := props[flag].(bool); ok && v {
			return true
		}
	}
	return false
}

func scalarProps(props map[string]any) map[string]string {
	if len(props) == 0 {
		return nil
	}
	out := map[string]string{}
	for k, v := range props {
		if k == "children" {
			continue
		}
		if _, err := strconv.Atoi(k); err == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			out[k] = t
		case bool:
			out[k] = strconv.FormatBool(t)
		case float64:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func childList(m map[string]any, props map[string]any) []any {
	if list, ok := m["children"].([]any); ok {
		return list
	}
	if child, ok := m["children"].(map[string]any); ok {
		return []any{child}
	}
	if props != nil {
		if list, ok := props["children"].([]any); ok {
			return list
		}
		if child, ok := props["children"].(map[string]any); ok {
			return []any{child}
		}
	}
	return nil
}

func hasRenderableChildren(m map[string]any, props map[string]any) bool {
	for _, raw := range childList(m, props) {
		switch raw.(type) {
		case map[string]any:
			return true
		}
	}
	return false
}

// pruneWrappers collapses non-interactive, textless, key-less View
// wrappers with exactly one element child into that child, one pass,
// bottom-up.
func pruneWrappers(root *nodes.ElementNode) {
	var walk func(e *nodes.ElementNode, depth int)
	walk = func(e *nodes.ElementNode, depth int) {
		if depth > maxDepth {
			return
		}
		for i, child := range e.Children {
			ce, ok := child.(*nodes.ElementNode)
			if !ok {
				continue
			}
			walk(ce, depth+1)
			for isRedundantWrapper(ce) {
				inner := ce.Children[0].(*nodes.ElementNode)
				inner.Parent = e
				e.Children[i] = inner
				ce = inner
			}
		}
	}
	walk(root, 0)
}

func isRedundantWrapper(e *nodes.ElementNode) bool {
	if e.Interactive || e.Text != "" || e.Key != "" {
		return false
	}
	if e.Kind != "View" && e.Kind != "SafeAreaView" {
		return false
	}
	if len(e.Children) != 1 {
		return false
	}
	_, ok := e.Children[0].(*nodes.ElementNode)
	return ok
}
