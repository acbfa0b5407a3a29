// Package mock provides a scriptable in-memory driver for tests and
// offline runs. Lookups hit a scripted element table, every call is
// recorded, and failures are injected per method.
package mock

import (
	"fmt"
	"time"

	"github.com/erickjtorres/app-use/pkg/core"
	"github.com/erickjtorres/app-use/pkg/nodes"
)

// Call records one driver invocation.
type Call struct {
	Method string
	Args   []string
}

// Element is a scripted element handle.
type Element struct {
	TapErr     error
	EnterErr   error
	ClearErr   error
	RectVal    nodes.CoordinateSet
	RectErr    error
	Hidden     bool
	PanicOnTap bool

	TapCount    int
	EnteredText []string
}

func (e *Element) Tap() error {
	if e.PanicOnTap {
		panic("scripted tap panic")
	}
	e.TapCount++
	return e.TapErr
}

func (e *Element) EnterText(text string) error {
	if e.EnterErr != nil {
		return e.EnterErr
	}
	e.EnteredText = append(e.EnteredText, text)
	return nil
}

func (e *Element) Clear() error {
	return e.ClearErr
}

func (e *Element) Rect() (nodes.CoordinateSet, error) {
	return e.RectVal, e.RectErr
}

func (e *Element) Displayed() (bool, error) {
	return !e.Hidden, nil
}

// Driver implements core.Driver against scripted state. The Elements
// table is keyed by locator: "key:<v>", "text:<v>", "kind:<v>" and
// "ancestor:<ancestor>/<kind>".
type Driver struct {
	Elements map[string]*Element

	ScrollSucceeds bool
	SwipeErr       error
	Width, Height  int
	SourceData     string
	SourceErr      error
	Shot           []byte

	Calls []Call
}

// New returns a driver with an empty element table and a phone-sized
// window.
func New() *Driver {
	return &Driver{
		Elements: map[string]*Element{},
		Width:    1080,
		Height:   1920,
	}
}

// Script registers an element under a locator key.
func (d *Driver) Script(locator string, el *Element) *Driver {
	d.Elements[locator] = el
	return d
}

func (d *Driver) record(method string, args ...string) {
	d.Calls = append(d.Calls, Call{Method: method, Args: args})
}

// CallNames returns the recorded method names in order.
func (d *Driver) CallNames() []string {
	out := make([]string, 0, len(d.Calls))
	for _, c := range d.Calls {
		out = append(out, c.Method)
	}
	return out
}

func (d *Driver) lookup(locator string) (core.Element, error) {
	if el, ok := d.Elements[locator]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("no element for %s", locator)
}

func (d *Driver) ElementByKey(key string) (core.Element, error) {
	d.record("ElementByKey", key)
	return d.lookup("key:" + key)
}

func (d *Driver) ElementByText(text string) (core.Element, error) {
	d.record("ElementByText", text)
	return d.lookup("text:" + text)
}

func (d *Driver) ElementByKind(kind string) (core.Element, error) {
	d.record("ElementByKind", kind)
	return d.lookup("kind:" + kind)
}

func (d *Driver) ElementByAncestor(ancestorKind, kind string) (core.Element, error) {
	d.record("ElementByAncestor", ancestorKind, kind)
	return d.lookup("ancestor:" + ancestorKind + "/" + kind)
}

func (d *Driver) scrollTo(method, arg string) error {
	d.record(method, arg)
	if d.ScrollSucceeds {
		return nil
	}
	return fmt.Errorf("cannot scroll to %s", arg)
}

func (d *Driver) ScrollToKey(key string) error {
	return d.scrollTo("ScrollToKey", key)
}

func (d *Driver) ScrollToText(text string) error {
	return d.scrollTo("ScrollToText", text)
}

func (d *Driver) ScrollToKind(kind string) error {
	return d.scrollTo("ScrollToKind", kind)
}

func (d *Driver) Swipe(startX, startY, endX, endY int, duration time.Duration) error {
	d.record("Swipe", fmt.Sprintf("%d,%d->%d,%d", startX, startY, endX, endY))
	return d.SwipeErr
}

func (d *Driver) WindowSize() (int, int, error) {
	d.record("WindowSize")
	return d.Width, d.Height, nil
}

func (d *Driver) Source() (string, error) {
	d.record("Source")
	return d.SourceData, d.SourceErr
}

func (d *Driver) Screenshot() ([]byte, error) {
	d.record("Screenshot")
	return d.Shot, nil
}

// Vision implements core.Vision with a scripted outcome.
type Vision struct {
	Tapped bool
	Err    error
	Calls  []string
}

func (v *Vision) TapTextOnScreen(text string) (bool, error) {
	v.Calls = append(v.Calls, text)
	return v.Tapped, v.Err
}
