package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
)

var (
	contourEpsilon float64
	closedOnly     bool
	splitAtRapids  bool
)

var contoursCmd = &cobra.Command{
	Use:   "contours <file>",
	Short: "List the cutting contours of a program",
	Long: `Parse a program and split its moves into contours. A contour is a run
of consecutive moves holding at least one G1/G2/G3 cut; it is closed when
it ends where it started. Rapids stay inside a run unless
--split-at-rapids is given.

Examples:
  edm contours part.iso
  edm contours --epsilon 0.001 part.iso
  edm contours --split-at-rapids --closed part.iso`,
	Args: cobra.ExactArgs(1),
	RunE: runContours,
}

func init() {
	rootCmd.AddCommand(contoursCmd)

	contoursCmd.Flags().Float64VarP(&contourEpsilon, "epsilon", "e", contour.DefaultEpsilon,
		"closure tolerance")
	contoursCmd.Flags().BoolVar(&closedOnly, "closed", false, "only list closed contours")
	contoursCmd.Flags().BoolVar(&splitAtRapids, "split-at-rapids", false,
		"end a contour at every rapid move")
}

func runContours(cmd *cobra.Command, args []string) error {
	filename := args[0]

	res, err := parseProgram(filename)
	if err != nil {
		return err
	}
	opts := cfg.ContourOptions()
	if cmd.Flags().Changed("epsilon") {
		if !(contourEpsilon > 0) {
			return fmt.Errorf("invalid --epsilon %v: must be positive", contourEpsilon)
		}
		opts.Epsilon = contourEpsilon
	}
	if splitAtRapids {
		opts.SplitAtRapids = true
	}
	cs, cws := contour.Detect(res.Path, opts)

	closed := contour.Closed(cs)
	printTitle("Contours: %s", filename)
	fmt.Printf("Found %d contour(s), %d closed\n\n", len(cs), len(closed))

	list := cs
	if closedOnly {
		list = closed
	}
	if len(list) > 0 {
		fmt.Printf("  %-4s %-7s %-11s %-11s %-24s %12s %12s\n", "#", "State", "Moves", "Lines", "Start", "Length", "Gap")
		for _, c := range list {
			idx := contour.IndexOf(cs, c.StartIndex)
			state := "open"
			if c.Closed {
				state = okStyle.Render("closed")
			}
			fmt.Printf("  %-4d %-7s %-11s %-11s %-24s %12.4f %12.6f\n",
				idx+1, state,
				fmt.Sprintf("%d-%d", c.StartIndex, c.EndIndex),
				fmt.Sprintf("%d-%d", res.Path[c.StartIndex].Line, res.Path[c.EndIndex].Line),
				fmt.Sprintf("(%.4f, %.4f)", c.StartCoord.X, c.StartCoord.Y),
				c.Length, c.Gap())
		}
		fmt.Println()
	}

	ws := make([]diag.Warning, 0, len(res.Warnings)+len(cws))
	ws = append(ws, res.Warnings...)
	ws = append(ws, cws...)
	printWarnings(ws, 20)
	return nil
}
