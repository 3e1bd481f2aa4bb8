// Package diag defines the diagnostics shared by the toolpath packages:
// non-fatal warnings collected while interpreting a program, and the
// ValidationError returned when a caller passes unusable numbers.
package diag

import (
	"fmt"
	"math"
)

// Kind classifies a Warning.
type Kind int

const (
	// Syntax marks an unparseable line or token. The line is skipped.
	Syntax Kind = iota
	// Geometry marks a radius mismatch, a degenerate arc or an ambiguous
	// contour closure. Processing continues with a best-effort result.
	Geometry
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case Geometry:
		return "geometry"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Warning is a non-blocking problem found in document data.
// Line is the 1-based source line, or 0 when no line applies.
type Warning struct {
	Kind   Kind
	Line   int
	Reason string
}

func (w Warning) Error() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", w.Line, w.Kind, w.Reason)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Reason)
}

// Syntaxf builds a Syntax warning.
func Syntaxf(line int, format string, args ...any) Warning {
	return Warning{Kind: Syntax, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// Geometryf builds a Geometry warning.
func Geometryf(line int, format string, args ...any) Warning {
	return Warning{Kind: Geometry, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// AtLine returns copies of ws with Line set to line. Used to attach a
// source line to warnings raised by line-agnostic geometry code.
func AtLine(ws []Warning, line int) []Warning {
	out := make([]Warning, len(ws))
	for i, w := range ws {
		w.Line = line
		out[i] = w
	}
	return out
}

// Count returns how many warnings of kind k are in ws.
func Count(ws []Warning, k Kind) int {
	n := 0
	for _, w := range ws {
		if w.Kind == k {
			n++
		}
	}
	return n
}

// ValidationError reports a non-finite or out-of-range argument passed
// directly to a geometry function. It signals a bug at the call site,
// not bad document data.
type ValidationError struct {
	Op    string  // function that rejected the input
	Arg   string  // argument name
	Value float64 // offending value
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %v", e.Op, e.Arg, e.Value)
}

// CheckFinite returns a ValidationError for the first non-finite value.
// names and values are paired by index.
func CheckFinite(op string, names []string, values ...float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			name := "argument"
			if i < len(names) {
				name = names[i]
			}
			return &ValidationError{Op: op, Arg: name, Value: v}
		}
	}
	return nil
}
