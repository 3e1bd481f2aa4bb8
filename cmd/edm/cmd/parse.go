package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
)

var (
	showMoves  bool
	jsonOutput bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a G-code program and summarise its toolpath",
	Long: `Parse a G-code program and display move counts, path lengths, the
bounding box, the codes used and any warnings.

Examples:
  edm parse part.iso
  edm parse --moves part.iso
  edm parse --json --ij incremental part.nc`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().BoolVarP(&showMoves, "moves", "m", false, "list every move")
	parseCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
}

type boundsJSON struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

type moveJSON struct {
	Line      int      `json:"line"`
	Type      string   `json:"type"`
	StartX    float64  `json:"start_x"`
	StartY    float64  `json:"start_y"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	CenterX   *float64 `json:"center_x,omitempty"`
	CenterY   *float64 `json:"center_y,omitempty"`
	Clockwise *bool    `json:"clockwise,omitempty"`
}

type parseJSON struct {
	File        string         `json:"file"`
	ArcOffsets  string         `json:"arc_offsets"`
	Lines       int            `json:"lines"`
	Moves       int            `json:"moves"`
	Rapids      int            `json:"rapids"`
	Cuts        int            `json:"cuts"`
	Arcs        int            `json:"arcs"`
	Skipped     int            `json:"skipped"`
	CutLength   float64        `json:"cut_length"`
	RapidLength float64        `json:"rapid_length"`
	Bounds      *boundsJSON    `json:"bounds"`
	Codes       map[string]int `json:"codes"`
	Warnings    []string       `json:"warnings"`
	Path        []moveJSON     `json:"path,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	filename := args[0]

	if verbose {
		fmt.Printf("Parsing program: %s (I/J %s)\n\n", filename, cfg.Parser.ArcOffsets)
	}

	res, err := parseProgram(filename)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeParseJSON(filename, res)
	}

	st := res.Stats
	printTitle("Program: %s", filename)
	fmt.Printf("  Lines:        %d (%d blank, %d skipped)\n", st.Lines, st.Blank, st.Skipped)
	fmt.Printf("  Moves:        %d (%d rapid, %d cut, %d arc)\n", st.Moves, st.Rapids, st.Cuts, st.Arcs)
	fmt.Printf("  Cut length:   %.4f\n", st.CutLength)
	fmt.Printf("  Rapid length: %.4f\n", st.RapidLength)
	if res.Bounds.IsValid() {
		b := res.Bounds
		fmt.Printf("  Bounds:       X %.4f .. %.4f  Y %.4f .. %.4f\n", b.MinX, b.MaxX, b.MinY, b.MaxY)
		fmt.Printf("  Size:         %.4f x %.4f\n", b.Width(), b.Height())
	} else {
		fmt.Printf("  Bounds:       empty\n")
	}
	if len(st.Codes) > 0 {
		fmt.Printf("  Codes:       ")
		for _, code := range sortedCodes(st.Codes) {
			fmt.Printf(" %s×%d", code, st.Codes[code])
		}
		fmt.Println()
	}
	fmt.Println()

	if showMoves {
		fmt.Printf("Moves:\n")
		for i, m := range res.Path {
			fmt.Printf("  %4d  line %-5d %-5s (%.4f, %.4f) -> (%.4f, %.4f)", i, m.Line, m.Type, m.StartX, m.StartY, m.X, m.Y)
			if m.Type == gcode.Arc {
				dir := "ccw"
				if m.Clockwise {
					dir = "cw"
				}
				fmt.Printf(" center (%.4f, %.4f) %s", m.CenterX, m.CenterY, dir)
			}
			fmt.Println()
		}
		fmt.Println()
	}

	printWarnings(res.Warnings, 20)
	if len(res.Warnings) == 0 {
		fmt.Println(okStyle.Render("No warnings"))
	}
	return nil
}

func writeParseJSON(filename string, res *gcode.Result) error {
	st := res.Stats
	out := parseJSON{
		File:        filename,
		ArcOffsets:  cfg.Parser.ArcOffsets,
		Lines:       st.Lines,
		Moves:       st.Moves,
		Rapids:      st.Rapids,
		Cuts:        st.Cuts,
		Arcs:        st.Arcs,
		Skipped:     st.Skipped,
		CutLength:   st.CutLength,
		RapidLength: st.RapidLength,
		Codes:       st.Codes,
		Warnings:    make([]string, 0, len(res.Warnings)),
	}
	if res.Bounds.IsValid() {
		b := res.Bounds
		out.Bounds = &boundsJSON{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	if showMoves {
		for _, m := range res.Path {
			mj := moveJSON{Line: m.Line, Type: m.Type.String(), StartX: m.StartX, StartY: m.StartY, X: m.X, Y: m.Y}
			if m.Type == gcode.Arc {
				cx, cy, cw := m.CenterX, m.CenterY, m.Clockwise
				mj.CenterX, mj.CenterY, mj.Clockwise = &cx, &cy, &cw
			}
			out.Path = append(out.Path, mj)
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func sortedCodes(codes map[string]int) []string {
	keys := make([]string, 0, len(codes))
	for k := range codes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
