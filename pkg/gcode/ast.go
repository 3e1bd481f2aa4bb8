package gcode

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Block is one parsed line of G-code.
// Example: N10 G01 X12.5 Y-3 ; comment
type Block struct {
	Pos    lexer.Position
	Delete bool    `@Delete?`
	Words  []*Word `@@*`
}

// Word is a single address letter and its value.
// Value is nil when the letter is not followed by a number (e.g. XABC).
type Word struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Letter string  `@Letter`
	Value  *string `@Number?`
}

// exponentOf reports whether w is an E word glued to the number of
// prev, as in X1E3. Numbers have no exponent form in G-code.
func (w *Word) exponentOf(prev *Word) bool {
	return strings.EqualFold(w.Letter, "E") && prev.Value != nil &&
		w.Pos.Offset == prev.EndPos.Offset
}

// Code returns the normalised code for the word, e.g. G01 -> G1,
// G090.10 -> G90.1. Words without a value return the bare letter.
func (w *Word) Code() string {
	letter := strings.ToUpper(w.Letter)
	if w.Value == nil {
		return letter
	}
	return letter + normalizeNumber(*w.Value)
}

// normalizeNumber strips the sign-free leading zeros of the integer part
// and the trailing zeros of the fraction.
func normalizeNumber(s string) string {
	sign := ""
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	intPart, frac := s, ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intPart, frac = s[:i], s[i+1:]
			break
		}
	}
	for len(intPart) > 1 && intPart[0] == '0' {
		intPart = intPart[1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	for len(frac) > 0 && frac[len(frac)-1] == '0' {
		frac = frac[:len(frac)-1]
	}
	if intPart == "0" && frac == "" {
		sign = ""
	}
	if frac == "" {
		return sign + intPart
	}
	return sign + intPart + "." + frac
}
