package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hotdelta/internal/config"
	"hotdelta/internal/errors"
	"hotdelta/internal/logging"
	"hotdelta/internal/report"
	"hotdelta/internal/version"
)

var (
	rootDir     string
	formatFlag  string
	verboseFlag int
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "hotdelta",
	Short: "hotdelta - hot reload edit analysis",
	Long: `hotdelta compares two versions of a C# program and decides whether the
change can be applied to a running process. Edits the runtime cannot take are
reported as rude edits; everything else becomes a list of symbol-level
operations for the patch generator.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("hotdelta version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root holding .hotdelta/ and hotdelta.toml")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format: human or json")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logs")
}

// env is the resolved environment shared by commands.
type env struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	format report.Format
}

// setup resolves the project root, configuration, logger and output format.
func setup() (*env, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "resolve root", err)
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "load configuration", err)
	}
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return nil, err
	}
	return &env{root: root, cfg: cfg, logger: newLogger(cfg), format: format}, nil
}

// newLogger builds the stderr logger. Flags win over the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := logging.LevelFromString(cfg.Logging.Level)
	if verboseFlag > 0 || quietFlag {
		level = logging.LevelFromVerbosity(verboseFlag, quietFlag)
	}
	return logging.New(logging.Config{
		Format: logging.ParseFormat(cfg.Logging.Format),
		Level:  level,
		Output: os.Stderr,
	})
}
