package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erickjtorres/app-use/pkg/driver/mock"
	"github.com/erickjtorres/app-use/pkg/nodes"
)

// loginForm builds Form > Button(key "submit", text "Save") and a
// snapshot indexing the button, with IDs offset by base.
func loginForm(base int) (*nodes.NodeState, *nodes.ElementNode) {
	form := nodes.NewElementNode(base, "Form")
	button := nodes.NewElementNode(base+1, "Button")
	button.Interactive = true
	button.Key = "submit"
	button.Text = "Save"
	form.AddChild(button)

	state := &nodes.NodeState{
		Root:        form,
		SelectorMap: nodes.SelectorMap{button.ID: button},
	}
	return state, button
}

func TestTapByKeyShortCircuits(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()
	el := &mock.Element{}
	d.Script("key:submit", el)

	res := New(d).Resolve(state, Request{TargetID: button.ID, Intent: IntentTap})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "tap_by_key", res.Strategy)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 1, el.TapCount)
	assert.Equal(t, []string{"ElementByKey"}, d.CallNames())
}

func TestTapFallsThroughInOrder(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()
	el := &mock.Element{}
	d.Script("text:Save", el)

	res := New(d).Resolve(state, Request{TargetID: button.ID, Intent: IntentTap})

	require.True(t, res.Success)
	assert.Equal(t, "tap_by_text", res.Strategy)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "tap_by_key", res.Diagnostics[0].Strategy)
	assert.Equal(t, []string{"ElementByKey", "ElementByText"}, d.CallNames())
}

func TestTapExhaustionAggregatesDiagnostics(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()

	res := New(d).Resolve(state, Request{TargetID: button.ID, Intent: IntentTap})

	require.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, "exhausted", res.Err.Code)

	// key, text, ancestor pair, kind: one diagnostic each, in order.
	want := []string{"tap_by_key", "tap_by_text", "tap_by_ancestor", "tap_by_kind"}
	require.Len(t, res.Diagnostics, len(want))
	for i, strategy := range want {
		assert.Equal(t, strategy, res.Diagnostics[i].Strategy)
	}
}

func TestTapEscalatesOnceToInteractiveAncestor(t *testing.T) {
	row := nodes.NewElementNode(0, "Row")
	touchable := nodes.NewElementNode(1, "TouchableOpacity")
	touchable.Interactive = true
	touchable.Key = "open-card"
	icon := nodes.NewElementNode(2, "Icon")
	icon.Interactive = true
	row.AddChild(touchable)
	touchable.AddChild(icon)

	state := &nodes.NodeState{
		Root:        row,
		SelectorMap: nodes.SelectorMap{1: touchable, 2: icon},
	}

	d := mock.New()
	el := &mock.Element{}
	d.Script("key:open-card", el)

	res := New(d).Resolve(state, Request{TargetID: icon.ID, Intent: IntentTap})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "tap_by_key", res.Strategy)
	assert.Equal(t, 1, el.TapCount)
	// The icon's own chain ran first.
	assert.Equal(t, "tap_by_ancestor", res.Diagnostics[0].Strategy)
}

func TestTapPanicBecomesDiagnostic(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()
	d.Script("key:submit", &mock.Element{PanicOnTap: true})
	d.Script("text:Save", &mock.Element{})

	res := New(d).Resolve(state, Request{TargetID: button.ID, Intent: IntentTap})

	require.True(t, res.Success)
	assert.Equal(t, "tap_by_text", res.Strategy)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Err.Error(), "panicked")
}

func TestTapVisionFallback(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()
	v := &mock.Vision{Tapped: true}

	res := New(d, WithVision(v)).Resolve(state, Request{TargetID: button.ID, Intent: IntentTap})

	require.True(t, res.Success)
	assert.Equal(t, "tap_by_vision", res.Strategy)
	assert.Equal(t, []string{"Save"}, v.Calls)
	assert.Len(t, res.Diagnostics, 4)
}

func TestEnterTextTapsForFocusFirst(t *testing.T) {
	state, button := loginForm(0)
	button.Kind = "TextInput"
	d := mock.New()
	el := &mock.Element{}
	d.Script("key:submit", el)

	res := New(d).Resolve(state, Request{
		TargetID: button.ID,
		Intent:   IntentEnterText,
		Text:     "hello",
	})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "enter_by_key", res.Strategy)
	assert.Equal(t, 1, el.TapCount)
	assert.Equal(t, []string{"hello"}, el.EnteredText)
	// The focus tap leaves no trace in the diagnostics.
	assert.Empty(t, res.Diagnostics)
}

func TestEnterTextByAncestorPair(t *testing.T) {
	form := nodes.NewElementNode(0, "Form")
	input := nodes.NewElementNode(1, "TextInput")
	input.Interactive = true
	form.AddChild(input)
	state := &nodes.NodeState{
		Root:        form,
		SelectorMap: nodes.SelectorMap{1: input},
	}

	d := mock.New()
	el := &mock.Element{}
	d.Script("ancestor:Form/TextInput", el)

	res := New(d).Resolve(state, Request{
		TargetID: input.ID,
		Intent:   IntentEnterText,
		Text:     "user@example.com",
	})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "enter_by_ancestor", res.Strategy)
	assert.Equal(t, []string{"user@example.com"}, el.EnteredText)
}

func TestEnterTextFallsThroughToKind(t *testing.T) {
	input := nodes.NewElementNode(0, "TextInput")
	input.Interactive = true
	state := &nodes.NodeState{
		Root:        input,
		SelectorMap: nodes.SelectorMap{0: input},
	}

	d := mock.New()
	el := &mock.Element{}
	d.Script("kind:TextInput", el)

	res := New(d).Resolve(state, Request{
		TargetID: input.ID,
		Intent:   IntentEnterText,
		Text:     "fallback",
	})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "enter_by_kind", res.Strategy)
	assert.Equal(t, []string{"fallback"}, el.EnteredText)
}

func TestEnterTextByTextLocator(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()
	el := &mock.Element{}
	d.Script("text:Save", el)

	res := New(d).Resolve(state, Request{
		TargetID: button.ID,
		Intent:   IntentEnterText,
		Text:     "typed",
	})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "enter_by_text", res.Strategy)
	assert.Equal(t, []string{"typed"}, el.EnteredText)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "enter_by_key", res.Diagnostics[0].Strategy)
}

func TestEnterTextNeverUsesVision(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()
	v := &mock.Vision{Tapped: true}

	res := New(d, WithVision(v)).Resolve(state, Request{
		TargetID: button.ID,
		Intent:   IntentEnterText,
		Text:     "hello",
	})

	require.False(t, res.Success)
	assert.Equal(t, "exhausted", res.Err.Code)
	want := []string{"enter_by_key", "enter_by_text", "enter_by_ancestor", "enter_by_kind"}
	require.Len(t, res.Diagnostics, len(want))
	for i, strategy := range want {
		assert.Equal(t, strategy, res.Diagnostics[i].Strategy)
	}
}

func TestResolveUnknownTarget(t *testing.T) {
	state, _ := loginForm(0)
	d := mock.New()

	res := New(d).Resolve(state, Request{TargetID: 99, Intent: IntentTap})

	require.False(t, res.Success)
	assert.Equal(t, "target_not_found", res.Err.Code)
	assert.Empty(t, d.Calls)
}

func TestScrollIntoViewPrefersPlatformScroll(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()
	d.ScrollSucceeds = true

	res := New(d).Resolve(state, Request{TargetID: button.ID, Intent: IntentScrollIntoView})

	require.True(t, res.Success)
	assert.Equal(t, "scroll_to_key", res.Strategy)
	assert.Equal(t, []string{"ScrollToKey"}, d.CallNames())
}

func TestScrollIntoViewVerifiesByFingerprint(t *testing.T) {
	state, button := loginForm(0)
	fresh, _ := loginForm(40) // same structure, new build IDs
	d := mock.New()

	requeries := 0
	engine := New(d, WithRequery(func() (*nodes.NodeState, error) {
		requeries++
		return fresh, nil
	}))

	res := engine.Resolve(state, Request{TargetID: button.ID, Intent: IntentScrollIntoView})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "generic_swipe", res.Strategy)
	assert.Equal(t, 1, requeries)
	// The three platform locators failed first.
	assert.Len(t, res.Diagnostics, 3)
}

func TestScrollIntoViewExhaustion(t *testing.T) {
	state, button := loginForm(0)
	empty := &nodes.NodeState{
		Root:        nodes.NewElementNode(0, "Form"),
		SelectorMap: nodes.SelectorMap{},
	}
	d := mock.New()

	engine := New(d, WithRequery(func() (*nodes.NodeState, error) {
		return empty, nil
	}))

	res := engine.Resolve(state, Request{TargetID: button.ID, Intent: IntentScrollIntoView})

	require.False(t, res.Success)
	assert.Equal(t, "exhausted", res.Err.Code)
	// scroll_to_key, scroll_to_text, scroll_to_kind, generic_swipe.
	assert.Len(t, res.Diagnostics, 4)

	// Both swipe directions were attempted.
	swipes := 0
	for _, name := range d.CallNames() {
		if name == "Swipe" {
			swipes++
		}
	}
	assert.Equal(t, 2, swipes)
}

func TestOffscreenTargetTriggersScrollBeforeTap(t *testing.T) {
	state, button := loginForm(0)
	button.Viewport = &nodes.ViewportInfo{Width: 1080, Height: 1920}
	button.ViewportRect = &nodes.CoordinateSet{X: 0, Y: 2400, Width: 200, Height: 80}
	d := mock.New()

	res := New(d).Resolve(state, Request{TargetID: button.ID, Intent: IntentTap})

	require.False(t, res.Success)
	// Scroll-into-view attempts precede the tap attempts. With no
	// requery hook the generic swipe counts as success, so only the
	// three platform locators leak into the diagnostics.
	want := []string{
		"scroll_to_key", "scroll_to_text", "scroll_to_kind",
		"tap_by_key", "tap_by_text", "tap_by_ancestor", "tap_by_kind",
	}
	require.Len(t, res.Diagnostics, len(want))
	for i, strategy := range want {
		assert.Equal(t, strategy, res.Diagnostics[i].Strategy)
	}
}

func TestScrollWithinElementRect(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()
	d.Script("key:submit", &mock.Element{
		RectVal: nodes.CoordinateSet{X: 0, Y: 1000, Width: 400, Height: 400},
	})

	res := New(d).Resolve(state, Request{
		TargetID:  button.ID,
		Intent:    IntentScroll,
		Direction: "down",
	})

	require.True(t, res.Success)
	assert.Equal(t, "scroll_element_by_key", res.Strategy)

	last := d.Calls[len(d.Calls)-1]
	require.Equal(t, "Swipe", last.Method)
	assert.Equal(t, []string{"200,1300->200,1100"}, last.Args)
}

func TestScrollExtendedNormalizesOffsets(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()

	res := New(d).Resolve(state, Request{
		TargetID:  button.ID,
		Intent:    IntentScrollExtended,
		Direction: "up",
		DY:        -250,
		Duration:  500 * time.Millisecond,
	})

	require.True(t, res.Success)
	assert.Equal(t, "generic_scroll", res.Strategy)

	last := d.Calls[len(d.Calls)-1]
	require.Equal(t, "Swipe", last.Method)
	// Direction gives the sign, the offset only its magnitude.
	assert.Equal(t, []string{"540,480->540,730"}, last.Args)
}

func TestScrollRejectsInvalidDirection(t *testing.T) {
	state, button := loginForm(0)
	d := mock.New()

	res := New(d).Resolve(state, Request{
		TargetID:  button.ID,
		Intent:    IntentScroll,
		Direction: "sideways",
	})

	require.False(t, res.Success)
	assert.Contains(t, res.Message, "invalid scroll direction")
	assert.Empty(t, d.Calls)
}
