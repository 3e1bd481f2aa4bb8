package gcode

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer defines the lexical structure of one G-code block (line).
// A block is a sequence of words: a letter followed by a number.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments: semicolon to end of line, or parenthesised
	{Name: "Comment", Pattern: `;[^\n]*|\([^)\n]*\)`},

	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	// Program start/end marker
	{Name: "Percent", Pattern: `%`},

	// Block delete prefix
	{Name: "Delete", Pattern: `/`},

	{Name: "Letter", Pattern: `[A-Za-z]`},

	// Numbers, with optional sign and decimal point (10, -2.5, .5, 3.).
	// There is no exponent form; X1E3 lexes as X1 and E3.
	{Name: "Number", Pattern: `[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)`},
})
