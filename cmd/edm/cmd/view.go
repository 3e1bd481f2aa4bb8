package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceEDM/internal/ui"
)

var viewCmd = &cobra.Command{
	Use:   "view [file]",
	Short: "Open the interactive toolpath viewer",
	Long: `Launch the graphical viewer. The program is reloaded whenever it changes
on disk, keeping the current zoom and pan.

Controls:
  drag            pan
  scroll, + / -   zoom
  F               fit to the program or the selected contour
  R               reset the view
  N / P           next / previous contour
  Q, Esc          quit

Examples:
  edm view part.iso
  edm view --ij absolute part.iso`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	opts := ui.Options{Config: cfg}
	if len(args) == 1 {
		opts.File = args[0]
	}
	return ui.Run(opts)
}
