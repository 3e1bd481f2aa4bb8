package iso

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxLineLength is the longest line most controllers accept.
const maxLineLength = 120

// nonASCIISample caps the offsets listed in FileReport.NonASCIISample.
const nonASCIISample = 10

// EOL names the line terminator convention of a file.
type EOL string

const (
	EOLCRLF  EOL = "CRLF"
	EOLLF    EOL = "LF"
	EOLCR    EOL = "CR"
	EOLMixed EOL = "MIXED"
	EOLNone  EOL = "NONE"
)

// EOLStats counts line terminators. A CRLF pair is counted once, as
// CRLF only.
type EOLStats struct {
	Label EOL `json:"label"`
	CRLF  int `json:"crlf"`
	LF    int `json:"lf"`
	CR    int `json:"cr"`
}

// Suspect is a line a controller is likely to reject.
type Suspect struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// TextReport describes the line structure of a program.
type TextReport struct {
	TotalLines           int              `json:"total_lines"`
	StartsWithPercent    bool             `json:"starts_with_percent"`
	EndsWithM02          bool             `json:"ends_with_M02"`
	HasBlockNumbers      bool             `json:"has_block_numbers"`
	BlockNumbersIncrease bool             `json:"block_numbers_monotonic"`
	MaxLineLength        int              `json:"max_line_length"`
	HasSemicolonComments bool             `json:"has_semicolon_comments"`
	StrayPercentLines    []int            `json:"stray_percent_positions"`
	StopCodes            map[string][]int `json:"stop_codes"`
	PrecisionMaxPlaces   int              `json:"precision_max_places"`
	PrecisionOver4       int              `json:"precision_over_4_count"`
	Suspects             []Suspect        `json:"suspect_lines"`
}

// FileReport is the result of Analyze.
type FileReport struct {
	File           string     `json:"file"`
	Bytes          int        `json:"bytes"`
	EOL            EOLStats   `json:"eol"`
	NonASCIICount  int        `json:"non_ascii_count"`
	NonASCIISample []int      `json:"non_ascii_sample"`
	Text           TextReport `json:"text_report"`
}

// CountEOL counts the line terminators in data.
func CountEOL(data []byte) EOLStats {
	crlf := bytes.Count(data, []byte("\r\n"))
	s := EOLStats{
		CRLF: crlf,
		LF:   bytes.Count(data, []byte("\n")) - crlf,
		CR:   bytes.Count(data, []byte("\r")) - crlf,
	}
	switch {
	case s.CRLF > 0 && s.LF == 0 && s.CR == 0:
		s.Label = EOLCRLF
	case s.LF > 0 && s.CRLF == 0 && s.CR == 0:
		s.Label = EOLLF
	case s.CR > 0 && s.CRLF == 0 && s.LF == 0:
		s.Label = EOLCR
	case s.CRLF+s.LF+s.CR > 0:
		s.Label = EOLMixed
	default:
		s.Label = EOLNone
	}
	return s
}

// Analyze reports on the encoding and structure of a program. name is
// only used to label the report.
func Analyze(name string, data []byte) (*FileReport, error) {
	r := &FileReport{
		File:           name,
		Bytes:          len(data),
		EOL:            CountEOL(data),
		NonASCIISample: []int{},
	}
	for i, b := range data {
		if b > 127 {
			r.NonASCIICount++
			if len(r.NonASCIISample) < nonASCIISample {
				r.NonASCIISample = append(r.NonASCIISample, i)
			}
		}
	}

	lines, err := decodeLines(data)
	if err != nil {
		return nil, err
	}
	r.Text = AnalyzeLines(lines)
	return r, nil
}

// AnalyzeFile reads and analyzes the file at path.
func AnalyzeFile(path string) (*FileReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Analyze(filepath.Base(path), data)
}

// AnalyzeLines reports on the structure of already decoded lines.
func AnalyzeLines(lines []string) TextReport {
	r := TextReport{
		TotalLines:           len(lines),
		BlockNumbersIncrease: true,
		StrayPercentLines:    []int{},
		StopCodes:            map[string][]int{},
		Suspects:             []Suspect{},
	}
	if len(lines) == 0 {
		return r
	}
	r.StartsWithPercent = strings.TrimSpace(lines[0]) == "%"
	r.EndsWithM02 = reEndCode.MatchString(lines[len(lines)-1])

	lastN := int64(-1)
	for i, ln := range lines {
		lineNo := i + 1

		if n := utf8.RuneCountInString(ln); n > r.MaxLineLength {
			r.MaxLineLength = n
		}
		if strings.Contains(ln, ";") {
			r.HasSemicolonComments = true
		}
		if i > 0 && i < len(lines)-1 && strings.TrimSpace(ln) == "%" {
			r.StrayPercentLines = append(r.StrayPercentLines, lineNo)
		}
		for _, code := range stopCodes {
			if stopCodeRes[code].MatchString(ln) {
				r.StopCodes[code] = append(r.StopCodes[code], lineNo)
			}
		}
		for _, m := range reDecimals.FindAllStringSubmatch(ln, -1) {
			places := len(m[1])
			if places > r.PrecisionMaxPlaces {
				r.PrecisionMaxPlaces = places
			}
			if places > 4 {
				r.PrecisionOver4++
			}
		}
		if m := reBlockNum.FindStringSubmatch(ln); m != nil {
			r.HasBlockNumbers = true
			// Only the first regression is of interest.
			if r.BlockNumbersIncrease {
				n, err := strconv.ParseInt(m[1], 10, 64)
				if err != nil || n <= lastN {
					r.BlockNumbersIncrease = false
				}
				lastN = n
			}
		}

		if utf8.RuneCountInString(ln) > maxLineLength {
			r.Suspects = append(r.Suspects, Suspect{Line: lineNo, Reason: "line too long"})
		}
		if strings.Contains(ln, "\t") {
			r.Suspects = append(r.Suspects, Suspect{Line: lineNo, Reason: "tab character"})
		}
		if reAfterPct.MatchString(ln) && strings.TrimSpace(ln) != "%" {
			r.Suspects = append(r.Suspects, Suspect{Line: lineNo, Reason: "content after %"})
		}
		if reEndCode.MatchString(ln) && lineNo != len(lines) {
			r.Suspects = append(r.Suspects, Suspect{Line: lineNo, Reason: "M02 not at end"})
		}
	}
	return r
}
