// Package app is the top-level surface an agent drives: it owns a
// Driver, picks the right tree builder for the app's UI technology,
// and routes intents through the resolution engine.
package app

import (
	"fmt"

	"github.com/erickjtorres/app-use/pkg/builder/appium"
	"github.com/erickjtorres/app-use/pkg/builder/flutter"
	"github.com/erickjtorres/app-use/pkg/builder/reactnative"
	"github.com/erickjtorres/app-use/pkg/core"
	"github.com/erickjtorres/app-use/pkg/logger"
	"github.com/erickjtorres/app-use/pkg/nodes"
	"github.com/erickjtorres/app-use/pkg/resolver"
)

// Backend selects which dump format the driver's Source returns.
type Backend string

const (
	BackendAppium      Backend = "appium"
	BackendFlutter     Backend = "flutter"
	BackendReactNative Backend = "react-native"
)

// App binds a driver, a builder and a resolver for one application.
type App struct {
	driver            core.Driver
	backend           Backend
	platform          string
	viewportExpansion int
	screenshots       bool
	vision            core.Vision
	engine            *resolver.Engine
}

// Option configures an App.
type Option func(*App)

// WithPlatform fixes the accessibility platform ("android"/"ios")
// instead of auto-detecting it from the dump.
func WithPlatform(platform string) Option {
	return func(a *App) { a.platform = platform }
}

// WithViewportExpansion sets the margin, in pixels, by which
// off-screen elements still count as addressable.
func WithViewportExpansion(margin int) Option {
	return func(a *App) { a.viewportExpansion = margin }
}

// WithVision attaches a screenshot-based tap fallback.
func WithVision(v core.Vision) Option {
	return func(a *App) { a.vision = v }
}

// WithScreenshots attaches a screenshot to every snapshot.
func WithScreenshots() Option {
	return func(a *App) { a.screenshots = true }
}

// New wires an App for the given backend.
func New(driver core.Driver, backend Backend, opts ...Option) *App {
	a := &App{driver: driver, backend: backend}
	for _, opt := range opts {
		opt(a)
	}

	engineOpts := []resolver.Option{resolver.WithRequery(a.GetState)}
	if a.vision != nil {
		engineOpts = append(engineOpts, resolver.WithVision(a.vision))
	}
	a.engine = resolver.New(driver, engineOpts...)
	return a
}

// GetState pulls a fresh dump from the driver and builds a snapshot.
// Driver transport failure is the only error; a bad dump degrades to
// an error snapshot.
func (a *App) GetState() (*nodes.NodeState, error) {
	source, err := a.driver.Source()
	if err != nil {
		return nil, core.ErrDriverTransport.WithCause(err)
	}

	var state *nodes.NodeState
	switch a.backend {
	case BackendFlutter:
		state = flutter.NewBuilder().Build([]byte(source), flutter.Context{})
	case BackendReactNative:
		state = reactnative.NewBuilder().Build([]byte(source), reactnative.Context{})
	default:
		width, height, sizeErr := a.driver.WindowSize()
		if sizeErr != nil {
			logger.Warn("window size unavailable: %v", sizeErr)
		}
		state = appium.NewBuilder().Build(source, appium.Context{
			Platform:          a.platform,
			ScreenWidth:       width,
			ScreenHeight:      height,
			ViewportExpansion: a.viewportExpansion,
		})
	}

	if a.screenshots {
		if shot, shotErr := a.driver.Screenshot(); shotErr == nil {
			state.Screenshot = shot
		} else {
			logger.Warn("screenshot failed: %v", shotErr)
		}
	}
	return state, nil
}

// Tap taps the node with the given snapshot ID.
func (a *App) Tap(state *nodes.NodeState, id int) *core.Result {
	return a.engine.Resolve(state, resolver.Request{TargetID: id, Intent: resolver.IntentTap})
}

// EnterText types text into the node with the given snapshot ID.
func (a *App) EnterText(state *nodes.NodeState, id int, text string) *core.Result {
	return a.engine.Resolve(state, resolver.Request{
		TargetID: id,
		Intent:   resolver.IntentEnterText,
		Text:     text,
	})
}

// ScrollIntoView scrolls until the node should be on screen.
func (a *App) ScrollIntoView(state *nodes.NodeState, id int) *core.Result {
	return a.engine.Resolve(state, resolver.Request{
		TargetID: id,
		Intent:   resolver.IntentScrollIntoView,
	})
}

// Scroll swipes up or down, anchored at the node when possible.
func (a *App) Scroll(state *nodes.NodeState, id int, direction string) *core.Result {
	return a.engine.Resolve(state, resolver.Request{
		TargetID:  id,
		Intent:    resolver.IntentScroll,
		Direction: direction,
	})
}

// ScrollExtended swipes with explicit offsets and gesture duration.
func (a *App) ScrollExtended(state *nodes.NodeState, id int, req resolver.Request) *core.Result {
	req.TargetID = id
	req.Intent = resolver.IntentScrollExtended
	return a.engine.Resolve(state, req)
}

// ScrollableAncestor reports the nearest scroll container above the
// node, for agents planning their own gestures.
func (a *App) ScrollableAncestor(state *nodes.NodeState, id int) (*nodes.ElementNode, error) {
	node, ok := state.Lookup(id)
	if !ok {
		return nil, core.ErrTargetNotFound.WithDetails(map[string]interface{}{"target_id": id})
	}
	if anc := nodes.ScrollableAncestor(node); anc != nil {
		return anc, nil
	}
	return nil, fmt.Errorf("node %d has no scrollable ancestor", id)
}

// ScrollableDescendant reports the first scroll container below the
// snapshot root.
func (a *App) ScrollableDescendant(state *nodes.NodeState) (*nodes.ElementNode, error) {
	if state.Root == nil {
		return nil, fmt.Errorf("empty snapshot")
	}
	if desc := nodes.ScrollableDescendant(state.Root); desc != nil {
		return desc, nil
	}
	return nil, fmt.Errorf("snapshot has no scrollable container")
}
