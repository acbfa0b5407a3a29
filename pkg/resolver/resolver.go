// Package resolver turns high-level intents addressed at snapshot
// node IDs into driver calls, working through ordered strategy chains
// that degrade gracefully when the first locator misses.
package resolver

import (
	"fmt"
	"time"

	"github.com/erickjtorres/app-use/pkg/core"
	"github.com/erickjtorres/app-use/pkg/history"
	"github.com/erickjtorres/app-use/pkg/logger"
	"github.com/erickjtorres/app-use/pkg/nodes"
)

// Intent names an action the agent wants performed on a target node.
type Intent string

const (
	IntentTap            Intent = "tap"
	IntentEnterText      Intent = "enter_text"
	IntentScrollIntoView Intent = "scroll_into_view"
	IntentScroll         Intent = "scroll"
	IntentScrollExtended Intent = "scroll_extended"
)

// Request is one intent aimed at a snapshot node.
type Request struct {
	TargetID  int
	Intent    Intent
	Text      string        // enter_text payload
	Direction string        // "up" or "down" for scroll intents
	DX, DY    int           // scroll_extended offsets
	Duration  time.Duration // scroll_extended gesture duration
}

// RequeryFunc rebuilds a fresh snapshot, used to verify that scrolling
// actually brought the target on screen.
type RequeryFunc func() (*nodes.NodeState, error)

// Engine resolves intents against a Driver.
type Engine struct {
	driver  core.Driver
	vision  core.Vision
	requery RequeryFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithVision attaches a screenshot-based tap fallback.
func WithVision(v core.Vision) Option {
	return func(e *Engine) { e.vision = v }
}

// WithRequery attaches a snapshot rebuild hook for scroll verification.
func WithRequery(fn RequeryFunc) Option {
	return func(e *Engine) { e.requery = fn }
}

// New returns an Engine over the given driver.
func New(driver core.Driver, opts ...Option) *Engine {
	e := &Engine{driver: driver}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const defaultSwipeDuration = 300 * time.Millisecond

// Resolve executes one request against the snapshot. It never returns
// a Go error: the result carries success, the winning strategy, and a
// diagnostic per failed attempt.
func (e *Engine) Resolve(state *nodes.NodeState, req Request) *core.Result {
	res := &core.Result{}

	node, ok := state.Lookup(req.TargetID)
	if !ok {
		res.Fail(
			core.ErrTargetNotFound.WithDetails(map[string]interface{}{"target_id": req.TargetID}),
			fmt.Sprintf("node %d is not in the current snapshot", req.TargetID),
		)
		return res
	}

	logger.Debug("resolving %s on node %d (%s)", req.Intent, node.ID, node.Path())

	switch req.Intent {
	case IntentTap:
		e.tap(res, state, node, 0)
	case IntentEnterText:
		e.enterText(res, state, node, req.Text)
	case IntentScrollIntoView:
		e.scrollIntoView(res, node)
	case IntentScroll:
		e.scroll(res, node, req.Direction, 0, 0, defaultSwipeDuration)
	case IntentScrollExtended:
		duration := req.Duration
		if duration <= 0 {
			duration = defaultSwipeDuration
		}
		e.scroll(res, node, req.Direction, req.DX, req.DY, duration)
	default:
		res.Fail(
			core.ErrStrategyFailed.WithMessage(fmt.Sprintf("unknown intent %q", req.Intent)),
			fmt.Sprintf("unknown intent %q", req.Intent),
		)
	}
	return res
}

// try runs one strategy, recording failure as a diagnostic. Driver
// panics are contained so a broken strategy cannot abort the chain.
func (e *Engine) try(res *core.Result, strategy string, fn func() error) bool {
	err := runGuarded(fn)
	if err != nil {
		logger.Debug("strategy %s failed: %v", strategy, err)
		res.Record(strategy, err)
		return false
	}
	res.Succeed(strategy, "")
	return true
}

func runGuarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return fn()
}

// tap resolves a tap through the locator chain, escalating once to
// the nearest interactive ancestor when every strategy misses.
func (e *Engine) tap(res *core.Result, state *nodes.NodeState, node *nodes.ElementNode, hop int) {
	e.ensureVisible(res, node)

	kind := node.BaseKind()
	if node.Key != "" && e.try(res, "tap_by_key", func() error {
		return e.tapHandle(e.driver.ElementByKey(node.Key))
	}) {
		res.Message = fmt.Sprintf("tapped node %d by key %q", node.ID, node.Key)
		return
	}
	if node.Text != "" && e.try(res, "tap_by_text", func() error {
		return e.tapHandle(e.driver.ElementByText(node.Text))
	}) {
		res.Message = fmt.Sprintf("tapped node %d by text %q", node.ID, node.Text)
		return
	}
	if parent := node.Parent; parent != nil && e.try(res, "tap_by_ancestor", func() error {
		return e.tapHandle(e.driver.ElementByAncestor(parent.BaseKind(), kind))
	}) {
		res.Message = fmt.Sprintf("tapped node %d under %s", node.ID, parent.BaseKind())
		return
	}
	if e.try(res, "tap_by_kind", func() error {
		return e.tapHandle(e.driver.ElementByKind(kind))
	}) {
		res.Message = fmt.Sprintf("tapped node %d by kind %s", node.ID, kind)
		return
	}
	if e.vision != nil && node.Text != "" && e.try(res, "tap_by_vision", func() error {
		tapped, err := e.vision.TapTextOnScreen(node.Text)
		if err != nil {
			return err
		}
		if !tapped {
			return fmt.Errorf("no on-screen match for %q", node.Text)
		}
		return nil
	}) {
		res.Message = fmt.Sprintf("tapped node %d via screen text %q", node.ID, node.Text)
		return
	}

	// Taps on inner content often need to land on the touchable that
	// wraps it. One hop only.
	if hop == 0 {
		if anc := interactiveAncestor(node); anc != nil {
			logger.Debug("escalating tap from node %d to ancestor %d", node.ID, anc.ID)
			e.tap(res, state, anc, hop+1)
			return
		}
	}

	res.Fail(
		core.ErrExhausted.WithDetails(map[string]interface{}{"intent": IntentTap, "target_id": node.ID}),
		fmt.Sprintf("could not tap node %d: %d strategies failed", node.ID, len(res.Diagnostics)),
	)
}

func (e *Engine) tapHandle(el core.Element, err error) error {
	if err != nil {
		return err
	}
	return el.Tap()
}

// enterText resolves a text entry. A best-effort focus tap runs first;
// its outcome is deliberately not recorded.
func (e *Engine) enterText(res *core.Result, state *nodes.NodeState, node *nodes.ElementNode, text string) {
	e.ensureVisible(res, node)

	focus := &core.Result{}
	e.tap(focus, state, node, 0)
	if !focus.Success {
		logger.Debug("focus tap on node %d failed, entering text anyway", node.ID)
	}

	kind := node.BaseKind()
	if node.Key != "" && e.try(res, "enter_by_key", func() error {
		el, err := e.driver.ElementByKey(node.Key)
		return e.enterHandle(text, el, err)
	}) {
		res.Message = fmt.Sprintf("entered text into node %d by key %q", node.ID, node.Key)
		return
	}
	if node.Text != "" && e.try(res, "enter_by_text", func() error {
		el, err := e.driver.ElementByText(node.Text)
		return e.enterHandle(text, el, err)
	}) {
		res.Message = fmt.Sprintf("entered text into node %d by text %q", node.ID, node.Text)
		return
	}
	if parent := node.Parent; parent != nil && e.try(res, "enter_by_ancestor", func() error {
		el, err := e.driver.ElementByAncestor(parent.BaseKind(), kind)
		return e.enterHandle(text, el, err)
	}) {
		res.Message = fmt.Sprintf("entered text into node %d under %s", node.ID, parent.BaseKind())
		return
	}
	if e.try(res, "enter_by_kind", func() error {
		el, err := e.driver.ElementByKind(kind)
		return e.enterHandle(text, el, err)
	}) {
		res.Message = fmt.Sprintf("entered text into node %d by kind %s", node.ID, kind)
		return
	}

	res.Fail(
		core.ErrExhausted.WithDetails(map[string]interface{}{"intent": IntentEnterText, "target_id": node.ID}),
		fmt.Sprintf("could not enter text into node %d: %d strategies failed", node.ID, len(res.Diagnostics)),
	)
}

func (e *Engine) enterHandle(text string, el core.Element, err error) error {
	if err != nil {
		return err
	}
	if clearErr := el.Clear(); clearErr != nil {
		logger.Debug("clear before text entry failed: %v", clearErr)
	}
	return el.EnterText(text)
}

// ensureVisible runs the scroll-into-view chain for targets whose
// geometry puts them off the actual screen. Snapshots built with a
// viewport expansion margin admit such elements into the selector
// map. Best effort: its failures join the caller's diagnostics but
// never stop the caller's own chain.
func (e *Engine) ensureVisible(res *core.Result, node *nodes.ElementNode) {
	if node.ViewportRect == nil || node.Viewport == nil {
		return
	}
	screen := nodes.CoordinateSet{
		Width:  float64(node.Viewport.Width),
		Height: float64(node.Viewport.Height),
	}
	if node.ViewportRect.Intersects(screen) {
		return
	}

	sub := &core.Result{}
	e.scrollIntoView(sub, node)
	res.Diagnostics = append(res.Diagnostics, sub.Diagnostics...)
	if !sub.Success {
		logger.Debug("could not scroll node %d into view, proceeding anyway", node.ID)
	}
}

// scrollIntoView scrolls until the target should be on screen:
// platform scroll-to locators first, then a generic swipe in each
// direction with a fingerprint-verified re-query.
func (e *Engine) scrollIntoView(res *core.Result, node *nodes.ElementNode) {
	if node.Key != "" && e.try(res, "scroll_to_key", func() error {
		return e.driver.ScrollToKey(node.Key)
	}) {
		res.Message = fmt.Sprintf("scrolled to node %d by key %q", node.ID, node.Key)
		return
	}
	if node.Text != "" && e.try(res, "scroll_to_text", func() error {
		return e.driver.ScrollToText(node.Text)
	}) {
		res.Message = fmt.Sprintf("scrolled to node %d by text %q", node.ID, node.Text)
		return
	}
	if e.try(res, "scroll_to_kind", func() error {
		return e.driver.ScrollToKind(node.BaseKind())
	}) {
		res.Message = fmt.Sprintf("scrolled to node %d by kind %s", node.ID, node.BaseKind())
		return
	}

	if e.try(res, "generic_swipe", func() error {
		return e.genericSwipeSearch(node)
	}) {
		res.Message = fmt.Sprintf("swiped node %d into view", node.ID)
		return
	}

	res.Fail(
		core.ErrExhausted.WithDetails(map[string]interface{}{"intent": IntentScrollIntoView, "target_id": node.ID}),
		fmt.Sprintf("could not scroll node %d into view: %d strategies failed", node.ID, len(res.Diagnostics)),
	)
}

// genericSwipeSearch swipes the screen down then up, re-querying after
// each gesture and matching the target by fingerprint. Without a
// requery hook the first completed gesture counts as success.
func (e *Engine) genericSwipeSearch(node *nodes.ElementNode) error {
	width, height, err := e.driver.WindowSize()
	if err != nil {
		return err
	}
	centerX := width / 2
	want := history.Fingerprint(node)

	// Swipe up to reveal content below, then down for content above.
	swipes := [][2]int{
		{height * 3 / 4, height / 4},
		{height / 4, height * 3 / 4},
	}
	var lastErr error
	for _, s := range swipes {
		if err := e.driver.Swipe(centerX, s[0], centerX, s[1], defaultSwipeDuration); err != nil {
			lastErr = err
			continue
		}
		if e.requery == nil {
			logger.Debug("no requery hook, treating swipe as success")
			return nil
		}
		fresh, err := e.requery()
		if err != nil {
			lastErr = err
			continue
		}
		if findByFingerprint(fresh, want) != nil {
			return nil
		}
		lastErr = fmt.Errorf("target not on screen after swipe")
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no swipe performed")
	}
	return lastErr
}

func findByFingerprint(state *nodes.NodeState, fingerprint string) *nodes.ElementNode {
	for _, n := range state.SelectorMap {
		if history.Fingerprint(n) == fingerprint {
			return n
		}
	}
	return nil
}

// scroll performs a directional swipe, anchored inside the target's
// rect when a locator finds it, otherwise across the whole screen.
func (e *Engine) scroll(res *core.Result, node *nodes.ElementNode, direction string, dx, dy int, duration time.Duration) {
	if direction != "up" && direction != "down" {
		res.Fail(
			core.ErrStrategyFailed.WithMessage(fmt.Sprintf("invalid scroll direction %q", direction)),
			fmt.Sprintf("invalid scroll direction %q", direction),
		)
		return
	}
	// Direction carries the sign; magnitude comes from the offset.
	if dy < 0 {
		dy = -dy
	}

	if node.Key != "" && e.try(res, "scroll_element_by_key", func() error {
		el, err := e.driver.ElementByKey(node.Key)
		if err != nil {
			return err
		}
		return e.swipeWithin(el, direction, dx, dy, duration)
	}) {
		res.Message = fmt.Sprintf("scrolled %s within node %d", direction, node.ID)
		return
	}
	if node.Text != "" && e.try(res, "scroll_element_by_text", func() error {
		el, err := e.driver.ElementByText(node.Text)
		if err != nil {
			return err
		}
		return e.swipeWithin(el, direction, dx, dy, duration)
	}) {
		res.Message = fmt.Sprintf("scrolled %s within node %d", direction, node.ID)
		return
	}

	if e.try(res, "generic_scroll", func() error {
		width, height, err := e.driver.WindowSize()
		if err != nil {
			return err
		}
		rect := nodes.CoordinateSet{Width: float64(width), Height: float64(height)}
		return e.swipeRect(rect, direction, dx, dy, duration)
	}) {
		res.Message = fmt.Sprintf("scrolled %s across the screen", direction)
		return
	}

	res.Fail(
		core.ErrExhausted.WithDetails(map[string]interface{}{"intent": IntentScroll, "target_id": node.ID}),
		fmt.Sprintf("could not scroll node %d: %d strategies failed", node.ID, len(res.Diagnostics)),
	)
}

func (e *Engine) swipeWithin(el core.Element, direction string, dx, dy int, duration time.Duration) error {
	rect, err := el.Rect()
	if err != nil {
		return err
	}
	return e.swipeRect(rect, direction, dx, dy, duration)
}

// swipeRect swipes inside rect. "down" reveals content below by
// dragging upward from the lower quarter; "up" is the mirror.
func (e *Engine) swipeRect(rect nodes.CoordinateSet, direction string, dx, dy int, duration time.Duration) error {
	centerX, _ := rect.Center()
	startX := int(centerX)
	endX := startX + dx

	if dy == 0 {
		dy = int(rect.Height / 2)
	}
	var startY, endY int
	if direction == "down" {
		startY = int(rect.Y + rect.Height*3/4)
		endY = startY - dy
	} else {
		startY = int(rect.Y + rect.Height/4)
		endY = startY + dy
	}

	return e.driver.Swipe(startX, startY, endX, endY, duration)
}

// interactiveAncestor returns the nearest interactive element above n.
func interactiveAncestor(n *nodes.ElementNode) *nodes.ElementNode {
	depth := 0
	for cur := n.Parent; cur != nil && depth < 100; cur = cur.Parent {
		if cur.Interactive {
			return cur
		}
		depth++
	}
	return nil
}
