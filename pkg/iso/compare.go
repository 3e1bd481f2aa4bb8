package iso

import (
	"fmt"
	"os"
	"strings"
)

// eofMarker stands in for a missing line when one file is shorter.
const eofMarker = "<EOF>"

// CompareOptions controls which framing lines Compare ignores.
type CompareOptions struct {
	KeepHeader bool // compare a leading % line
	KeepFooter bool // compare a trailing M02 line
}

// Diff is the first difference found by Compare. Line is 1-based after
// framing lines are removed, and 0 when the programs match.
type Diff struct {
	Line  int    `json:"first_diff_line"`
	ALine string `json:"a_line,omitempty"`
	BLine string `json:"b_line,omitempty"`
}

// Equal reports whether no difference was found.
func (d Diff) Equal() bool {
	return d.Line == 0
}

func (d Diff) String() string {
	if d.Equal() {
		return "no differences"
	}
	return fmt.Sprintf("line %d: %q != %q", d.Line, d.ALine, d.BLine)
}

// Compare finds the first line where a and b differ, ignoring leading
// and trailing whitespace and runs of inner whitespace.
func Compare(a, b []byte, opts CompareOptions) (Diff, error) {
	la, err := decodeLines(a)
	if err != nil {
		return Diff{}, err
	}
	lb, err := decodeLines(b)
	if err != nil {
		return Diff{}, err
	}
	la, lb = opts.trim(la), opts.trim(lb)

	for i := 0; i < max(len(la), len(lb)); i++ {
		aLine, bLine := lineAt(la, i), lineAt(lb, i)
		if collapseSpace(aLine) != collapseSpace(bLine) {
			return Diff{Line: i + 1, ALine: aLine, BLine: bLine}, nil
		}
	}
	return Diff{}, nil
}

// CompareFiles reads both files and compares them.
func CompareFiles(a, b string, opts CompareOptions) (Diff, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return Diff{}, fmt.Errorf("failed to read file: %w", err)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return Diff{}, fmt.Errorf("failed to read file: %w", err)
	}
	return Compare(da, db, opts)
}

func (o CompareOptions) trim(lines []string) []string {
	if !o.KeepHeader && len(lines) > 0 && strings.TrimSpace(lines[0]) == "%" {
		lines = lines[1:]
	}
	if !o.KeepFooter && len(lines) > 0 && reEndCode.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return strings.TrimSpace(lines[i])
	}
	return eofMarker
}
