package iso

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// NormalizeOptions controls Normalize. The zero value disables every
// rewrite except numbering; use DefaultNormalizeOptions for the ISO
// layout.
type NormalizeOptions struct {
	StartN          int  // first generated block number
	Step            int  // block number increment
	AddPercent      bool // start with a % line
	EnsureM02       bool // drop every M02 and close with a numbered one
	CRLF            bool // CRLF instead of LF line ends
	StripSemicolons bool // remove ; comments
}

// DefaultNormalizeOptions returns the ISO layout: N10, N20, ... with a
// leading %, a closing M02 and CRLF line ends.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		StartN:          10,
		Step:            10,
		AddPercent:      true,
		EnsureM02:       true,
		CRLF:            true,
		StripSemicolons: true,
	}
}

// Normalize rewrites a latin-1 program into ISO layout. Blank lines are
// dropped. Lines that already carry an N number are kept as they are;
// every other line gets the next generated number and has its
// whitespace collapsed. The closing M02 is numbered after both the
// generated and the kept numbers, so normalizing twice is a no-op.
func Normalize(data []byte, opts NormalizeOptions) ([]byte, error) {
	src, err := decodeLines(data)
	if err != nil {
		return nil, err
	}

	var out []string
	if opts.AddPercent {
		out = append(out, "%")
		if len(src) > 0 && strings.TrimSpace(src[0]) == "%" {
			src = src[1:]
		}
	}

	n := opts.StartN
	lastKept := -1
	for _, ln := range src {
		s := strings.TrimSpace(ln)
		if s == "" {
			continue
		}
		if opts.StripSemicolons {
			if i := strings.IndexByte(s, ';'); i >= 0 {
				s = strings.TrimSpace(s[:i])
				if s == "" {
					continue
				}
			}
		}
		if m := reBlockNum.FindStringSubmatch(s); m != nil {
			if !reEndCode.MatchString(s) {
				if v, err := strconv.Atoi(m[1]); err == nil {
					lastKept = max(lastKept, v)
				}
			}
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprintf("N%d %s", n, collapseSpace(s)))
		n += opts.Step
	}

	if opts.EnsureM02 {
		kept := out[:0]
		for _, l := range out {
			if !reEndCode.MatchString(l) {
				kept = append(kept, l)
			}
		}
		// Never number the end block below a kept block number.
		if lastKept >= n {
			n = lastKept + opts.Step
		}
		out = append(kept, fmt.Sprintf("N%d M02", n))
	}

	eol := "\n"
	if opts.CRLF {
		eol = "\r\n"
	}
	var b strings.Builder
	for _, l := range out {
		b.WriteString(l)
		b.WriteString(eol)
	}
	return encodeLatin1(b.String())
}

// NormalizeFile normalizes the file at in and writes the result to out.
func NormalizeFile(in, out string, opts NormalizeOptions) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	res, err := Normalize(data, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, res, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
