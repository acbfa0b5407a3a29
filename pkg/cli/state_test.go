package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
)

func testApp() *cli.App {
	return newApp()
}

func writeDump(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const dumpXML = `<hierarchy>
  <android.widget.FrameLayout bounds="[0,0][1080,1920]">
    <android.widget.Button text="Go" resource-id="go" clickable="true" bounds="[0,0][200,100]" enabled="true"/>
  </android.widget.FrameLayout>
</hierarchy>`

func TestStateCommand(t *testing.T) {
	path := writeDump(t, "dump.xml", dumpXML)

	if err := testApp().Run([]string{"app-use", "state", path}); err != nil {
		t.Fatalf("state failed: %v", err)
	}
	if err := testApp().Run([]string{"app-use", "--json", "state", path}); err != nil {
		t.Fatalf("state --json failed: %v", err)
	}
}

func TestFingerprintCommand(t *testing.T) {
	path := writeDump(t, "dump.xml", dumpXML)

	if err := testApp().Run([]string{"app-use", "fingerprint", path}); err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
}

const fiberJSON = `{
  "type": "RCTView",
  "children": [
    {"displayName": "TouchableOpacity", "props": {"testID": "go", "onPress": "[Function]"}}
  ]
}`

func TestConfigFileSeedsBackend(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "fiber.json")
	if err := os.WriteFile(dump, []byte(fiberJSON), 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("backend: react-native\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// The dump is fiber JSON: it only parses under the backend the
	// config file names.
	if err := testApp().Run([]string{"app-use", "--config", dir, "state", dump}); err != nil {
		t.Fatalf("state with config dir failed: %v", err)
	}
	if err := testApp().Run([]string{"app-use", "--config", cfgPath, "state", dump}); err != nil {
		t.Fatalf("state with config file failed: %v", err)
	}
	if err := testApp().Run([]string{"app-use", "state", dump}); err == nil {
		t.Fatal("expected default backend to reject fiber JSON")
	}
}

func TestExplicitFlagBeatsConfigFile(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "dump.xml")
	if err := os.WriteFile(dump, []byte(dumpXML), 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("backend: react-native\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := testApp().Run([]string{"app-use", "--config", dir, "--backend", "appium", "state", dump}); err != nil {
		t.Fatalf("explicit --backend should win over the config file: %v", err)
	}
}

func TestConfigPathMissing(t *testing.T) {
	path := writeDump(t, "dump.xml", dumpXML)

	if err := testApp().Run([]string{"app-use", "--config", "/nonexistent/config.yaml", "state", path}); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestStateCommandRejectsBadInput(t *testing.T) {
	path := writeDump(t, "dump.json", "{broken")

	if err := testApp().Run([]string{"app-use", "--backend", "flutter", "state", path}); err == nil {
		t.Fatal("expected error for unparseable dump")
	}
	if err := testApp().Run([]string{"app-use", "--backend", "nope", "state", path}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if err := testApp().Run([]string{"app-use", "state"}); err == nil {
		t.Fatal("expected error for missing argument")
	}
}
