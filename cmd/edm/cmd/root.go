package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceEDM/internal/config"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
)

var (
	// Global flags
	verbose    bool
	configPath string
	ijMode     string

	// cfg is loaded before every command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "edm",
	Short: "Wire EDM G-code toolpath inspector",
	Long: `A toolkit for wire EDM programs: parse G-code into a toolpath, find
cutting contours, check and normalize ISO files, and view or render the
path.

Examples:
  edm parse part.iso                      # Summary, bounds and warnings
  edm contours --ij absolute part.iso     # Contours with absolute I/J
  edm normalize raw.nc part.iso           # Renumber into ISO layout
  edm render part.iso part.png            # Draw the toolpath to a PNG
  edm view part.iso                       # Interactive viewer`,
	Version:           "0.9.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (TOML)")
	rootCmd.PersistentFlags().StringVar(&ijMode, "ij", "", "arc I/J convention: follow, incremental or absolute")
}

// setup installs the logger and loads the settings. Flags override the
// file.
func setup(cmd *cobra.Command, args []string) error {
	if verbose {
		diag.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	} else {
		diag.SetLogger(nil)
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ijMode != "" {
		mode, ok := gcode.ParseOffsetMode(ijMode)
		if !ok {
			return fmt.Errorf("invalid --ij %q: want follow, incremental or absolute", ijMode)
		}
		loaded.Parser.ArcOffsets = mode.String()
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	cfg = loaded
	return nil
}

// parseProgram parses filename with the configured options.
func parseProgram(filename string) (*gcode.Result, error) {
	parser, err := gcode.NewParser(cfg.ParserOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}
	res, err := parser.ParseFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	return res, nil
}
