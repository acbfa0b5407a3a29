package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/erickjtorres/app-use/pkg/builder/appium"
	"github.com/erickjtorres/app-use/pkg/builder/flutter"
	"github.com/erickjtorres/app-use/pkg/builder/reactnative"
	"github.com/erickjtorres/app-use/pkg/history"
	"github.com/erickjtorres/app-use/pkg/nodes"
)

var stateCommand = &cli.Command{
	Name:      "state",
	Usage:     "Parse a raw UI dump into the actionable element listing",
	ArgsUsage: "<dump-file>",
	Action:    runState,
}

var fingerprintCommand = &cli.Command{
	Name:      "fingerprint",
	Usage:     "Print stable identity hashes for a dump's actionable elements",
	ArgsUsage: "<dump-file>",
	Action:    runFingerprint,
}

func buildState(c *cli.Context) (*nodes.NodeState, error) {
	if c.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one dump file argument")
	}
	raw, err := os.ReadFile(c.Args().First()) //#nosec G304 -- user-provided dump file
	if err != nil {
		return nil, err
	}

	switch c.String("backend") {
	case "flutter":
		return flutter.NewBuilder().Build(raw, flutter.Context{}), nil
	case "react-native":
		return reactnative.NewBuilder().Build(raw, reactnative.Context{}), nil
	case "appium", "":
		return appium.NewBuilder().Build(string(raw), appium.Context{
			Platform:          c.String("platform"),
			ScreenWidth:       c.Int("width"),
			ScreenHeight:      c.Int("height"),
			ViewportExpansion: c.Int("margin"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", c.String("backend"))
	}
}

func runState(c *cli.Context) error {
	state, err := buildState(c)
	if err != nil {
		return err
	}
	if state.IsErrorState() {
		return fmt.Errorf("dump could not be parsed: %s", state.Root.Text)
	}

	if c.Bool("json") {
		out, err := json.MarshalIndent(state.ExchangeNodes(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Print(state.String())
	return nil
}

func runFingerprint(c *cli.Context) error {
	state, err := buildState(c)
	if err != nil {
		return err
	}
	if state.IsErrorState() {
		return fmt.Errorf("dump could not be parsed: %s", state.Root.Text)
	}

	type entry struct {
		ID          int    `json:"id"`
		Kind        string `json:"kind"`
		Text        string `json:"text,omitempty"`
		Fingerprint string `json:"fingerprint"`
	}

	var entries []entry
	for _, ex := range state.ExchangeNodes() {
		node, _ := state.Lookup(ex.ID)
		entries = append(entries, entry{
			ID:          ex.ID,
			Kind:        ex.Kind,
			Text:        ex.Text,
			Fingerprint: history.Fingerprint(node),
		})
	}

	if c.Bool("json") {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	for _, e := range entries {
		fmt.Printf("[%d] %s  %s", e.ID, e.Fingerprint[:16], e.Kind)
		if e.Text != "" {
			fmt.Printf("  %q", e.Text)
		}
		fmt.Println()
	}
	return nil
}
