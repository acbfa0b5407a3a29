// Package cli provides the command-line interface for app-use.
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/erickjtorres/app-use/pkg/config"
	"github.com/erickjtorres/app-use/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "backend",
		Aliases: []string{"b"},
		Usage:   "UI technology of the dump (appium, flutter, react-native)",
		Value:   config.DefaultBackend,
		EnvVars: []string{"APP_USE_BACKEND"},
	},
	&cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "Accessibility platform (android, ios); auto-detected when empty",
		EnvVars: []string{"APP_USE_PLATFORM"},
	},
	&cli.IntFlag{
		Name:  "width",
		Usage: "Screen width in px, for viewport filtering",
	},
	&cli.IntFlag{
		Name:  "height",
		Usage: "Screen height in px, for viewport filtering",
	},
	&cli.IntFlag{
		Name:    "margin",
		Usage:   "Viewport expansion margin in px",
		EnvVars: []string{"APP_USE_MARGIN"},
	},
	&cli.BoolFlag{
		Name:  "json",
		Usage: "Emit JSON instead of the readable listing",
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file or directory holding config.yaml",
		EnvVars: []string{"APP_USE_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "log",
		Usage:   "Log file path",
		EnvVars: []string{"APP_USE_LOG"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Minimum log level (debug, info, warn, error)",
		Value:   config.DefaultLogLevel,
		EnvVars: []string{"APP_USE_LOG_LEVEL"},
	},
}

// Execute runs the CLI.
func Execute() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "app-use",
		Usage:   "Normalize mobile UI dumps into actionable element trees",
		Version: Version,
		Description: `app-use parses native accessibility, Flutter inspector and React
Native fiber dumps into one normalized element tree, the form an
automation agent perceives and acts on.

Examples:
  app-use state page_source.xml
  app-use state --backend react-native fiber.json --json
  app-use fingerprint --backend flutter widgets.json`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := applyConfig(c, cfg); err != nil {
				return err
			}

			if path := c.String("log"); path != "" {
				if err := logger.Init(path); err != nil {
					return err
				}
			}
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		After: func(c *cli.Context) error {
			logger.Close()
			return nil
		},
		Commands: []*cli.Command{
			stateCommand,
			fingerprintCommand,
		},
	}
}

// loadConfig resolves the workspace configuration: an explicit
// --config path (file or directory), falling back to config.yaml in
// the working directory.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return config.LoadFromDir(path)
		}
		return config.Load(path)
	}
	return config.LoadFromDir(".")
}

// applyConfig seeds flag values from the config file. Flags given on
// the command line (or via environment) win over the file.
func applyConfig(c *cli.Context, cfg *config.Config) error {
	set := func(name, value string) error {
		if value == "" || c.IsSet(name) {
			return nil
		}
		return c.Set(name, value)
	}

	if err := set("backend", cfg.Backend); err != nil {
		return err
	}
	if err := set("platform", cfg.Platform); err != nil {
		return err
	}
	if cfg.ViewportExpansion > 0 && !c.IsSet("margin") {
		if err := c.Set("margin", strconv.Itoa(cfg.ViewportExpansion)); err != nil {
			return err
		}
	}
	if err := set("log", cfg.LogPath); err != nil {
		return err
	}
	return set("log-level", cfg.LogLevel)
}
