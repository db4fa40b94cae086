package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/romshark/routelint/config"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = ""

var rootCmd = &cobra.Command{
	Use:   "routelint",
	Short: "Route pattern analyzer for Go web applications",
	Long: `routelint finds route patterns in Go packages, checks their syntax
and verifies that route parameters bind to handler parameters.`,
	SilenceUsage: true,
}

// errFindings is returned when diagnostics reach the failOn threshold.
var errFindings = errors.New("findings at or above threshold")

func main() {
	rootCmd.Version = toolVersion()

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.PersistentFlags().String("config", "",
		"config file (default $"+config.EnvConfig+" or "+config.DefaultFileName+")")
	rootCmd.PersistentFlags().String("log-level", "",
		"log level (debug|info|warn|error), default $"+config.EnvLogLevel+" or warn")
	rootCmd.PersistentFlags().Bool("log-json", false, "log in JSON")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func toolVersion() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// newLogger builds the process logger. Logs go to stderr.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-json flag: %w", err)
	}
	if levelName == "" {
		levelName = os.Getenv(config.EnvLogLevel)
	}
	level := slog.LevelWarn
	if levelName != "" {
		if err := level.UnmarshalText([]byte(levelName)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

// setupColor applies the --color flag to stdout output.
func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(mode) {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout) || os.Getenv("NO_COLOR") != ""
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("unknown color mode %q", mode)
	}
	return nil
}

// loadConfig loads the config named by --config or the environment.
// An explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flagValue, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	required := flagValue != "" || os.Getenv(config.EnvConfig) != ""
	return config.Load(config.Path(flagValue), required)
}

// setup runs the steps shared by all analyzing commands.
func setup(cmd *cobra.Command) (*slog.Logger, config.Config, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	if err := setupColor(cmd); err != nil {
		return nil, config.Config{}, err
	}
	conf, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	slog.SetDefault(log)
	return log, conf, nil
}
