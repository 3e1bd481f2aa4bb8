// Package iso inspects and rewrites G-code files in the ISO style wire
// EDM controllers expect: a leading %, N block numbers, CRLF line ends,
// no ; comments and a single closing M02.
package iso

import (
	"fmt"
	"regexp"

	"golang.org/x/text/encoding/charmap"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
)

var (
	reEndCode    = regexp.MustCompile(`\bM0?2\b`)
	reBlockNum   = regexp.MustCompile(`^\s*N(\d+)`)
	reDecimals   = regexp.MustCompile(`[XYZIJF][-+]?\d+\.(\d+)`)
	reAfterPct   = regexp.MustCompile(`%.*\S`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// stopCodes are the program stop words reported by Analyze, in report
// order.
var stopCodes = []string{"M0", "M00", "M1", "M01", "M2", "M02", "M30"}

var stopCodeRes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(stopCodes))
	for _, code := range stopCodes {
		m[code] = regexp.MustCompile(`\b` + code + `\b`)
	}
	return m
}()

// decodeLines decodes latin-1 bytes and splits them into lines. Every
// byte maps to one rune, so nothing is lost.
func decodeLines(data []byte) ([]string, error) {
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("iso: decode latin-1: %w", err)
	}
	return gcode.SplitLines(string(text)), nil
}

func encodeLatin1(s string) ([]byte, error) {
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("iso: encode latin-1: %w", err)
	}
	return []byte(out), nil
}

func collapseSpace(s string) string {
	return reWhitespace.ReplaceAllString(s, " ")
}
