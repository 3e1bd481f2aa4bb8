// Package gcode interprets wire-EDM G-code programs into an ordered path
// of rapid, linear and circular moves with their bounding box.
//
// Supported words are G0/G1/G2/G3 motion (zero padded forms such as G01
// are accepted), G90/G91 distance modes, G90.1/G91.1 arc offset modes
// and the X, Y, I and J addresses. Other words are accepted and ignored.
// R-format arcs are not supported.
//
// A bad line never aborts a parse: it is reported as a diag.Warning and
// skipped.
package gcode

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/arc"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
)

// Options controls program interpretation.
type Options struct {
	// ArcOffsets selects the I/J convention of the target controller.
	ArcOffsets OffsetMode
	// RadiusTolerance is passed to arc.Parameters. Zero means
	// arc.DefaultRadiusTolerance.
	RadiusTolerance float64
}

// DefaultOptions returns the options used by Parse when none are given.
func DefaultOptions() Options {
	return Options{
		ArcOffsets:      OffsetFollowDistance,
		RadiusTolerance: arc.DefaultRadiusTolerance,
	}
}

// Stats summarises a parsed program.
type Stats struct {
	Lines       int // total source lines
	Blank       int // lines without words
	Moves       int
	Rapids      int
	Cuts        int
	Arcs        int
	Skipped     int // lines dropped because of a syntax warning
	RapidLength float64
	CutLength   float64        // G1 + G2/G3 length
	Codes       map[string]int // occurrences of each normalised G/M code
}

// Result is the output of one parse. It is never modified after being
// returned; a reparse produces a new Result.
type Result struct {
	Path     Path
	Bounds   geom.Bounds
	Stats    Stats
	Warnings []diag.Warning
	Final    ModalState // state after the last line
}

// Parser parses G-code programs. A Parser holds no per-program state
// and may be reused and shared.
type Parser struct {
	parser *participle.Parser[Block]
	opts   Options
}

var buildBlockParser = sync.OnceValues(func() (*participle.Parser[Block], error) {
	return participle.Build[Block](
		participle.Lexer(Lexer),
		participle.Elide("Comment", "Whitespace", "Percent"),
	)
})

// NewParser creates a parser with the given options.
func NewParser(opts Options) (*Parser, error) {
	if opts.RadiusTolerance == 0 {
		opts.RadiusTolerance = arc.DefaultRadiusTolerance
	}
	if err := diag.CheckFinite("gcode.NewParser", []string{"radius tolerance"}, opts.RadiusTolerance); err != nil {
		return nil, err
	}
	if opts.RadiusTolerance < 0 {
		return nil, &diag.ValidationError{Op: "gcode.NewParser", Arg: "radius tolerance", Value: opts.RadiusTolerance}
	}
	parser, err := buildBlockParser()
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Parser{parser: parser, opts: opts}, nil
}

// Options returns the parser's options.
func (p *Parser) Options() Options {
	return p.opts
}

// Parse interprets a whole program.
func (p *Parser) Parse(text string) *Result {
	return p.ParseLines(SplitLines(text))
}

// ParseLines interprets a program given as lines. Line numbers in the
// result are 1-based indexes into lines.
func (p *Parser) ParseLines(lines []string) *Result {
	res := &Result{
		Bounds: geom.NewBounds(),
		Stats:  Stats{Lines: len(lines), Codes: map[string]int{}},
	}
	state := NewModalState(p.opts.ArcOffsets)
	for i, text := range lines {
		line := i + 1
		if strings.TrimSpace(text) == "" {
			res.Stats.Blank++
			continue
		}
		block, err := p.parser.ParseString("", text)
		if err != nil {
			res.Warnings = append(res.Warnings, diag.Syntaxf(line, "unparseable block: %v", err))
			res.Stats.Skipped++
			continue
		}
		if len(block.Words) == 0 {
			res.Stats.Blank++
			continue
		}

		step, warnings := state.Apply(block, line, p.opts.RadiusTolerance)
		for _, code := range step.Codes {
			res.Stats.Codes[code]++
		}
		if diag.Count(warnings, diag.Syntax) > 0 {
			res.Stats.Skipped++
		}
		res.Warnings = append(res.Warnings, warnings...)
		if !step.Moved {
			continue
		}

		if len(res.Path) == 0 {
			res.Bounds.Include(step.Move.Start())
		}
		res.Path = append(res.Path, step.Move)
		res.Bounds.Union(step.Bounds)
		res.Stats.Moves++
		switch step.Move.Type {
		case Rapid:
			res.Stats.Rapids++
			res.Stats.RapidLength += step.Length
		case Cut:
			res.Stats.Cuts++
			res.Stats.CutLength += step.Length
		case Arc:
			res.Stats.Arcs++
			res.Stats.CutLength += step.Length
		}
	}
	res.Final = state

	diag.Logger().Debug("gcode: parsed program",
		"lines", res.Stats.Lines,
		"moves", res.Stats.Moves,
		"warnings", len(res.Warnings))
	return res
}

// ParseReader reads and parses a program.
func (p *Parser) ParseReader(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	return p.Parse(string(data)), nil
}

// ParseFile parses a program from a file path.
func (p *Parser) ParseFile(filename string) (*Result, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.ParseReader(file)
}

// Parse interprets text with opts. The error is only non-nil when the
// options are invalid.
func Parse(text string, opts Options) (*Result, error) {
	p, err := NewParser(opts)
	if err != nil {
		return nil, err
	}
	return p.Parse(text), nil
}

// ParseLines is Parse for a program split into lines.
func ParseLines(lines []string, opts Options) (*Result, error) {
	p, err := NewParser(opts)
	if err != nil {
		return nil, err
	}
	return p.ParseLines(lines), nil
}

// SplitLines splits text on LF, CRLF or CR. A trailing line terminator
// does not produce an extra empty line.
func SplitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
