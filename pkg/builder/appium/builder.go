// Package appium builds normalized element trees from Appium
// page-source XML. Handles both Android (uiautomator hierarchy) and
// iOS (WDA/XCUITest) dump formats, auto-detected from the payload.
package appium

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/erickjtorres/app-use/pkg/logger"
	"github.com/erickjtorres/app-use/pkg/nodes"
)

// Context carries per-build parameters.
type Context struct {
	Platform          string // "android" or "ios"; empty means auto-detect
	ScreenWidth       int
	ScreenHeight      int
	ViewportExpansion int // margin in px added around the viewport
}

// Builder converts page-source XML into a NodeState.
type Builder struct{}

// NewBuilder returns an accessibility-XML builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// boundsRe matches Android bounds: [x1,y1][x2,y2]
var boundsRe = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// Android widget classes that are interactive regardless of the
// clickable attribute.
var androidInteractive = map[string]bool{
	"android.widget.Button":       true,
	"android.widget.ImageButton":  true,
	"android.widget.EditText":     true,
	"android.widget.CheckBox":     true,
	"android.widget.RadioButton":  true,
	"android.widget.Switch":       true,
	"android.widget.ToggleButton": true,
	"android.widget.Spinner":      true,
	"android.widget.SeekBar":      true,
}

// iOS element types that accept input when enabled.
var iosInteractive = map[string]bool{
	"XCUIElementTypeButton":           true,
	"XCUIElementTypeTextField":        true,
	"XCUIElementTypeSecureTextField":  true,
	"XCUIElementTypeTextView":         true,
	"XCUIElementTypeSwitch":           true,
	"XCUIElementTypeSlider":           true,
	"XCUIElementTypeStepper":          true,
	"XCUIElementTypeSegmentedControl": true,
	"XCUIElementTypeCell":             true,
	"XCUIElementTypeLink":             true,
	"XCUIElementTypeSearchField":      true,
	"XCUIElementTypePickerWheel":      true,
	"XCUIElementTypeControl":          true,
}

// DetectPlatform inspects the dump for iOS-specific markers.
func DetectPlatform(xmlData string) string {
	if strings.Contains(xmlData, "XCUIElementType") || strings.Contains(xmlData, "AppiumAUT") {
		return "ios"
	}
	return "android"
}

// Build parses page-source XML into a snapshot. It never returns an
// error: an unparseable dump degrades to a single-node error snapshot.
func (b *Builder) Build(pageSource string, ctx Context) *nodes.NodeState {
	if ctx.Platform == "" {
		ctx.Platform = DetectPlatform(pageSource)
	}

	root, err := b.parse(pageSource, ctx)
	if err != nil {
		logger.Error("page source parse failed: %v", err)
		return nodes.NewErrorState(err.Error())
	}
	if root == nil {
		logger.Error("page source contained no elements")
		return nodes.NewErrorState("empty page source")
	}

	all := nodes.Collect(root)
	nodes.LinkSiblings(all)

	selector := nodes.SelectorMap{}
	for _, n := range all {
		if e, ok := n.(*nodes.ElementNode); ok && e.Addressable() {
			selector[e.ID] = e
		}
	}

	logger.Debug("built %s snapshot: %d nodes, %d addressable",
		ctx.Platform, len(all), len(selector))
	return &nodes.NodeState{Root: root, SelectorMap: selector}
}

// parse walks the XML token stream recursively, building the tree
// top-down. Wrapper tags (hierarchy, AppiumAUT) are skipped so their
// first real child becomes the root.
func (b *Builder) parse(pageSource string, ctx Context) (*nodes.ElementNode, error) {
	decoder := xml.NewDecoder(strings.NewReader(pageSource))
	nextID := 0
	var viewport *nodes.ViewportInfo
	if ctx.ScreenWidth > 0 && ctx.ScreenHeight > 0 {
		viewport = &nodes.ViewportInfo{Width: ctx.ScreenWidth, Height: ctx.ScreenHeight}
	}

	var roots []*nodes.ElementNode
	var parseElement func() (*nodes.ElementNode, error)

	parseElement = func() (*nodes.ElementNode, error) {
		for {
			token, err := decoder.Token()
			if err != nil {
				return nil, err
			}

			switch t := token.(type) {
			case xml.StartElement:
				if t.Name.Local == "hierarchy" || t.Name.Local == "AppiumAUT" {
					for {
						child, err := parseElement()
						if err != nil || child == nil {
							break
						}
						roots = append(roots, child)
					}
					continue
				}

				elem := nodes.NewElementNode(nextID, t.Name.Local)
				nextID++
				elem.Viewport = viewport
				if ctx.Platform == "ios" {
					b.applyIOSAttrs(elem, t.Attr)
				} else {
					b.applyAndroidAttrs(elem, t.Attr)
				}
				b.applyGeometry(elem, ctx)

				for {
					child, err := parseElement()
					if err != nil || child == nil {
						break
					}
					elem.AddChild(child)
				}
				nodes.ResolveChildText(elem)

				return elem, nil

			case xml.EndElement:
				return nil, nil
			}
		}
	}

	for {
		elem, err := parseElement()
		if err != nil {
			if err.Error() != "EOF" && len(roots) == 0 {
				return nil, err
			}
			break
		}
		if elem != nil {
			roots = append(roots, elem)
		}
	}

	if len(roots) == 0 {
		return nil, nil
	}
	return roots[0], nil
}

func (b *Builder) applyAndroidAttrs(elem *nodes.ElementNode, attrs []xml.Attr) {
	var contentDesc, hint string
	clickable := false
	enabled := true

	for _, attr := range attrs {
		switch attr.Name.Local {
		case "class":
			elem.Kind = attr.Value
		case "text":
			elem.Text = attr.Value
		case "content-desc":
			contentDesc = attr.Value
		case "hint":
			hint = attr.Value
		case "resource-id":
			elem.Key = attr.Value
		case "bounds":
			if rect, ok := parseBounds(attr.Value); ok {
				elem.PageRect = &rect
				elem.ViewportRect = &rect
			}
		case "clickable":
			clickable = attr.Value == "true"
		case "enabled":
			enabled = attr.Value != "false"
		case "checkable", "long-clickable", "focused", "selected", "scrollable", "password":
			if elem.Properties == nil {
				elem.Properties = map[string]string{}
			}
			elem.Properties[attr.Name.Local] = attr.Value
		}
	}

	if elem.Text == "" {
		elem.Text = contentDesc
	}
	if elem.Text == "" {
		elem.Text = hint
	}
	elem.Interactive = enabled && (clickable || androidInteractive[elem.Kind])
}

func (b *Builder) applyIOSAttrs(elem *nodes.ElementNode, attrs []xml.Attr) {
	var label, value, placeholder string
	enabled := true
	visibleAttr := ""
	rect := nodes.CoordinateSet{}
	hasRect := false

	for _, attr := range attrs {
		switch attr.Name.Local {
		case "type":
			elem.Kind = attr.Value
		case "name":
			elem.Key = attr.Value
		case "label":
			label = attr.Value
		case "value":
			value = attr.Value
		case "placeholderValue":
			placeholder = attr.Value
		case "enabled":
			enabled = attr.Value != "false"
		case "visible":
			visibleAttr = attr.Value
		case "x":
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				rect.X = v
				hasRect = true
			}
		case "y":
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				rect.Y = v
				hasRect = true
			}
		case "width":
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				rect.Width = v
				hasRect = true
			}
		case "height":
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				rect.Height = v
				hasRect = true
			}
		}
	}

	// name doubles as accessibility text when no label is set
	switch {
	case label != "":
		elem.Text = label
	case elem.Key != "" && elem.Key != elem.Kind:
		elem.Text = elem.Key
	case value != "":
		elem.Text = value
	case placeholder != "":
		elem.Text = placeholder
	}

	if hasRect {
		elem.PageRect = &rect
		elem.ViewportRect = &rect
	}
	if visibleAttr == "false" {
		elem.Visible = false
	}
	elem.Interactive = enabled && iosInteractive[elem.Kind]
}

// applyGeometry derives visibility flags from the parsed rect and the
// build viewport. Elements without geometry keep the defaults.
func (b *Builder) applyGeometry(elem *nodes.ElementNode, ctx Context) {
	if elem.ViewportRect == nil {
		return
	}
	if elem.ViewportRect.Width <= 0 || elem.ViewportRect.Height <= 0 {
		elem.Visible = false
	}
	if ctx.ScreenWidth > 0 && ctx.ScreenHeight > 0 {
		viewport := nodes.CoordinateSet{
			Width:  float64(ctx.ScreenWidth),
			Height: float64(ctx.ScreenHeight),
		}
		expanded := viewport.Expand(float64(ctx.ViewportExpansion))
		elem.InViewport = elem.ViewportRect.Intersects(expanded)
	}
}

// parseBounds parses Android bounds format: [x1,y1][x2,y2]
func parseBounds(bounds string) (nodes.CoordinateSet, bool) {
	matches := boundsRe.FindStringSubmatch(bounds)
	if matches == nil {
		return nodes.CoordinateSet{}, false
	}

	x1, _ := strconv.Atoi(matches[1])
	y1, _ := strconv.Atoi(matches[2])
	x2, _ := strconv.Atoi(matches[3])
	y2, _ := strconv.Atoi(matches[4])

	return nodes.CoordinateSet{
		X:      float64(x1),
		Y:      float64(y1),
		Width:  float64(x2 - x1),
		Height: float64(y2 - y1),
	}, true
}
