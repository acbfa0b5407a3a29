package reactnative

import (
	"testing"

	"github.com/erickjtorres/app-use/pkg/nodes"
)

const appTree = `{
  "type": "NavigationContainer",
  "children": [
    {
      "type": "RCTView",
      "children": [
        {
          "type": "RCTText",
          "props": {"0": "Welcome ", "1": "back"}
        },
        {
          "type": "AndroidTextInput",
          "props": {"testID": "email-input", "placeholder": "Email"}
        },
        {
          "displayName": "TouchableOpacity",
          "props": {"testID": "login-button", "onPress": "[Function]"},
          "children": [
            {"type": "RCTText", "children": ["Sign in"]}
          ]
        },
        {
          "displayName": "TouchableOpacity",
          "props": {"disabled": true, "onPress": "[Function]"},
          "children": [
            {"type": "RCTText", "children": ["Locked"]}
          ]
        }
      ]
    }
  ]
}`

func TestBuildAppTree(t *testing.T) {
	state := NewBuilder().Build([]byte(appTree), Context{})

	if state.IsErrorState() {
		t.Fatalf("unexpected error state: %s", state.Root.Text)
	}
	// NavigationContainer is plumbing: the View under it becomes root.
	if state.Root.Kind != "View" {
		t.Errorf("root kind = %q, want View", state.Root.Kind)
	}

	var input, login, locked *nodes.ElementNode
	var welcome *nodes.TextNode
	for _, n := range nodes.Collect(state.Root) {
		switch e := n.(type) {
		case *nodes.ElementNode:
			switch e.Key {
			case "email-input":
				input = e
			case "login-button":
				login = e
			default:
				if e.Kind == "TouchableOpacity" {
					locked = e
				}
			}
		case *nodes.TextNode:
			if e.Text == "Welcome back" {
				welcome = e
			}
		}
	}

	if welcome == nil {
		t.Fatal("numbered props should join into a text node")
	}
	if input == nil || !input.Interactive || input.Kind != "TextInput" {
		t.Fatalf("text input parsed wrong: %+v", input)
	}
	if input.Text != "Email" {
		t.Errorf("input text = %q, want placeholder", input.Text)
	}
	if login == nil || !login.Interactive {
		t.Fatal("touchable with onPress should be interactive")
	}
	if login.Text != "Sign in" {
		t.Errorf("login should aggregate child text, got %q", login.Text)
	}
	if locked == nil || locked.Interactive {
		t.Error("disabled touchable should not be interactive")
	}

	if _, ok := state.Lookup(login.ID); !ok {
		t.Error("login missing from selector map")
	}
	if locked != nil {
		if _, ok := state.Lookup(locked.ID); ok {
			t.Error("disabled touchable in selector map")
		}
	}
	if _, ok := state.Lookup(state.Root.ID); ok {
		t.Error("plain view in selector map")
	}
}

func TestPruneRedundantWrappers(t *testing.T) {
	raw := map[string]any{
		"type": "RCTView",
		"children": []any{
			map[string]any{
				"type": "RCTView",
				"children": []any{
					map[string]any{
						"type": "RCTView",
						"children": []any{
							map[string]any{
								"displayName": "Pressable",
								"props":       map[string]any{"testID": "go"},
							},
						},
					},
				},
			},
		},
	}

	state := NewBuilder().BuildFromValue(raw, Context{})
	if state.Root.Kind != "View" {
		t.Fatalf("root kind = %q", state.Root.Kind)
	}
	if len(state.Root.Children) != 1 {
		t.Fatalf("root children = %d, want 1", len(state.Root.Children))
	}
	child, ok := state.Root.Children[0].(*nodes.ElementNode)
	if !ok || child.Kind != "Pressable" {
		t.Fatalf("wrapper chain should collapse to the pressable, got %v", state.Root.Children[0])
	}
	if child.Parent != state.Root {
		t.Error("collapsed child should be re-parented to root")
	}
}

func TestCycleProtection(t *testing.T) {
	cyclic := map[string]any{"type": "RCTView", "props": map[string]any{"testID": "self"}}
	cyclic["children"] = []any{cyclic}

	state := NewBuilder().BuildFromValue(cyclic, Context{})
	if state.IsErrorState() {
		t.Fatal("cyclic tree should degrade, not error")
	}
	if got := len(nodes.Collect(state.Root)); got != 1 {
		t.Errorf("node count = %d, want 1", got)
	}
}

func TestSharedSubtreeIsNotACycle(t *testing.T) {
	shared := map[string]any{
		"displayName": "Button",
		"props":       map[string]any{"title": "Retry"},
	}
	raw := map[string]any{
		"type":     "RCTView",
		"children": []any{shared, shared},
	}

	// The same map on two sibling branches must parse twice.
	state := NewBuilder().BuildFromValue(raw, Context{})
	buttons := nodes.FindByKind(state.Root, "Button")
	if len(buttons) != 2 {
		t.Errorf("buttons = %d, want 2", len(buttons))
	}
}

func TestDepthCeiling(t *testing.T) {
	cur := map[string]any{"type": "RCTText", "children": []any{"bottom"}}
	for i := 0; i < 200; i++ {
		cur = map[string]any{"type": "RCTImageView", "children": []any{cur}}
	}

	state := NewBuilder().BuildFromValue(cur, Context{})
	if state.IsErrorState() {
		t.Fatal("deep tree should degrade, not error")
	}
}

func TestStringChildrenBecomeTextNodes(t *testing.T) {
	raw := map[string]any{
		"type":     "RCTView",
		"children": []any{"  ", "hello"},
	}

	state := NewBuilder().BuildFromValue(raw, Context{})
	var texts []*nodes.TextNode
	for _, n := range nodes.Collect(state.Root) {
		if tn, ok := n.(*nodes.TextNode); ok {
			texts = append(texts, tn)
		}
	}
	if len(texts) != 1 || texts[0].Text != "hello" {
		t.Errorf("texts = %+v, want one %q node", texts, "hello")
	}
}

func TestBuildMalformed(t *testing.T) {
	state := NewBuilder().Build([]byte("{oops"), Context{})
	if !state.IsErrorState() {
		t.Fatal("expected error state for malformed input")
	}
	if len(state.SelectorMap) != 0 {
		t.Error("error state must have an empty selector map")
	}
}
