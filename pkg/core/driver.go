// Package core defines the boundary between the resolution engine and
// whatever actually drives the device: the capability interfaces a
// platform backend must provide, the structured error taxonomy, and
// the result type every operation returns.
package core

import (
	"time"

	"github.com/erickjtorres/app-use/pkg/nodes"
)

// Element is a live handle to an on-screen element owned by the
// driver. Handles are only valid until the UI changes.
type Element interface {
	Tap() error
	EnterText(text string) error
	Clear() error
	Rect() (nodes.CoordinateSet, error)
	Displayed() (bool, error)
}

// Driver is the platform capability surface the resolver works
// against. Each lookup returns the first match or an error; transport
// failures surface as ordinary errors and become per-strategy
// diagnostics upstream.
type Driver interface {
	ElementByKey(key string) (Element, error)
	ElementByText(text string) (Element, error)
	ElementByKind(kind string) (Element, error)
	ElementByAncestor(ancestorKind, kind string) (Element, error)

	ScrollToKey(key string) error
	ScrollToText(text string) error
	ScrollToKind(kind string) error

	Swipe(startX, startY, endX, endY int, duration time.Duration) error
	WindowSize() (width, height int, err error)

	// Source returns the platform's raw UI dump: page-source XML for
	// native apps, inspector/fiber JSON for Flutter and React Native.
	Source() (string, error)
	Screenshot() ([]byte, error)
}

// Vision is an optional screenshot-based fallback. It reports whether
// a tap was actually performed.
type Vision interface {
	TapTextOnScreen(text string) (bool, error)
}
