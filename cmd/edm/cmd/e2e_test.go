package cmd

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/iso"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/watch"
)

// squareAndCircle is a 10x10 square followed by a radius 5 circle cut as
// two half arcs with absolute centres.
const squareAndCircle = `%
N10 G90 G0 X0 Y0
N20 G1 X10 Y0
N30 G1 X10 Y10
N40 G1 X0 Y10
N50 G1 X0 Y0
N60 G0 X20 Y5
N70 G2 X30 Y5 I25 J5
N80 G2 X20 Y5 I25 J5
N90 M02
`

// writeProgram writes text into a temp dir and returns its path.
func writeProgram(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

// resetFlags restores every flag variable between runs of rootCmd.
func resetFlags() {
	verbose = false
	configPath = ""
	ijMode = ""
	cfg = nil

	showMoves = false
	jsonOutput = false

	contourEpsilon = contour.DefaultEpsilon
	closedOnly = false
	splitAtRapids = false

	def := iso.DefaultNormalizeOptions()
	startN = def.StartN
	stepN = def.Step
	noPercent = false
	noM02 = false
	lfEndings = false
	keepSemicolons = false
	keepHeader = false
	keepFooter = false

	renderWidth = 0
	renderHeight = 0
	renderContour = 0
	hideRapids = false
	noLabel = false

	watchDebounce = watch.DefaultDebounce
}

// execute runs rootCmd with args and returns what it printed to stdout.
func execute(args []string) (string, error) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking on Windows
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	resetFlags()
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	// Restore stdout and wait for reader
	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

// TestParseE2E tests the parse command end-to-end
func TestParseE2E(t *testing.T) {
	program := writeProgram(t, "part.iso", squareAndCircle)
	broken := writeProgram(t, "broken.nc", "G1 X10\nG1 X@\nG2 X20 Y0 I1 J1\n")
	incremental := writeProgram(t, "inc.nc", "G0 X20 Y5\nG2 X30 Y5 I5 J0\n")

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "summary",
			args: []string{"parse", program},
			wantContain: []string{
				"Program:",
				"Moves:        8 (2 rapid, 4 cut, 2 arc)",
				"Cut length:   71.4159",
				"Bounds:       X 0.0000 .. 30.0000  Y 0.0000 .. 10.0000",
				"M2×1",
				"No warnings",
			},
		},
		{
			name: "list moves",
			args: []string{"parse", "--moves", program},
			wantContain: []string{
				"Moves:",
				"center (25.0000, 5.0000) cw",
			},
		},
		{
			name: "warnings",
			args: []string{"parse", broken},
			wantContain: []string{
				"Warnings:",
				"line 2: syntax",
				"line 3: geometry",
			},
		},
		{
			name: "incremental offsets",
			args: []string{"parse", "--ij", "incremental", "--moves", incremental},
			wantContain: []string{
				"center (25.0000, 5.0000) cw",
				"No warnings",
			},
		},
		{
			name:    "bad ij mode",
			args:    []string{"parse", "--ij", "sideways", program},
			wantErr: true,
		},
		{
			name:    "parse non-existent file",
			args:    []string{"parse", "/nonexistent/file.iso"},
			wantErr: true,
		},
		{
			name:    "parse missing argument",
			args:    []string{"parse"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(tt.args)

			// Check error expectation
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}

			// Check output
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	program := writeProgram(t, "part.iso", squareAndCircle)

	output, err := execute([]string{"parse", "--json", "--moves", program})
	require.NoError(t, err)

	var got parseJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Equal(t, 8, got.Moves)
	assert.Equal(t, 2, got.Arcs)
	assert.Equal(t, "follow", got.ArcOffsets)
	require.NotNil(t, got.Bounds)
	assert.InDelta(t, 30.0, got.Bounds.MaxX, 1e-9)
	assert.Empty(t, got.Warnings)
	require.Len(t, got.Path, 8)
	assert.Equal(t, "arc", got.Path[6].Type)
	require.NotNil(t, got.Path[6].CenterX)
	assert.InDelta(t, 25.0, *got.Path[6].CenterX, 1e-9)
	assert.Nil(t, got.Path[0].CenterX)
}

// TestContoursE2E tests the contours command end-to-end
func TestContoursE2E(t *testing.T) {
	program := writeProgram(t, "part.iso", squareAndCircle)
	open := writeProgram(t, "open.nc", "G0 X0 Y0\nG1 X10\nG1 Y10\nG0 X50 Y0\nG1 X60\nG1 Y10\nG1 X50\nG1 Y0.0005\n")

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
		wantMissing []string
	}{
		{
			name: "closed contours",
			args: []string{"contours", program},
			wantContain: []string{
				"Found 2 contour(s), 2 closed",
				"1-4",
				"6-7",
				"40.0000",
				"31.4159",
			},
		},
		{
			name: "rapid stays in the run",
			args: []string{"contours", open},
			wantContain: []string{
				"Found 1 contour(s), 0 closed",
				"1-7",
			},
			wantMissing: []string{"Warnings:"},
		},
		{
			name: "open and near closed",
			args: []string{"contours", "--split-at-rapids", open},
			wantContain: []string{
				"Found 2 contour(s), 0 closed",
				"Warnings:",
			},
		},
		{
			name: "looser epsilon closes",
			args: []string{"contours", "--split-at-rapids", "--epsilon", "0.001", "--closed", open},
			wantContain: []string{
				"Found 2 contour(s), 1 closed",
				"4-7",
			},
			wantMissing: []string{"1-2 "},
		},
		{
			name:    "bad epsilon",
			args:    []string{"contours", "--epsilon", "-1", program},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(tt.args)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing: %q\nGot:\n%s", want, output)
				}
			}
			for _, unwanted := range tt.wantMissing {
				if strings.Contains(output, unwanted) {
					t.Errorf("Output should not contain: %q\nGot:\n%s", unwanted, output)
				}
			}
		})
	}
}

func TestAnalyzeE2E(t *testing.T) {
	program := writeProgram(t, "part.iso", strings.ReplaceAll(squareAndCircle, "\n", "\r\n"))

	output, err := execute([]string{"analyze", program})
	require.NoError(t, err)

	var report iso.FileReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.Equal(t, "part.iso", report.File)
	assert.Equal(t, iso.EOLCRLF, report.EOL.Label)
	assert.True(t, report.Text.StartsWithPercent)
	assert.True(t, report.Text.HasBlockNumbers)
	assert.Equal(t, []int{9}, report.Text.StopCodes["M02"])

	_, err = execute([]string{"analyze", "/nonexistent/file.iso"})
	assert.Error(t, err)
}

func TestNormalizeAndCompareE2E(t *testing.T) {
	raw := writeProgram(t, "raw.nc", "G90 G0 X0 Y0 ; start\n\nG1   X10\nM02\n")
	out := filepath.Join(t.TempDir(), "part.iso")

	output, err := execute([]string{"normalize", "--lf", raw, out})
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%\nN10 G90 G0 X0 Y0\nN20 G1 X10\nN40 M02\n", string(data))

	same := writeProgram(t, "same.iso", "N10  G90 G0 X0 Y0\nN20 G1 X10\n")
	output, err = execute([]string{"compare", out, same})
	require.NoError(t, err)
	assert.Contains(t, output, "No differences")

	_, err = execute([]string{"compare", "--keep-header", out, same})
	assert.ErrorIs(t, err, errDiffer)

	other := writeProgram(t, "other.iso", "N10 G90 G0 X0 Y0\nN20 G1 X11\n")
	output, err = execute([]string{"compare", out, other})
	assert.ErrorIs(t, err, errDiffer)
	assert.Contains(t, output, `line 2: "N20 G1 X10" != "N20 G1 X11"`)

	_, err = execute([]string{"normalize", "--step", "0", raw, out})
	assert.Error(t, err)
}

func TestRenderE2E(t *testing.T) {
	program := writeProgram(t, "part.iso", squareAndCircle)
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		width   int
		height  int
	}{
		{name: "default size", args: []string{"render", program}, width: 1024, height: 768},
		{name: "custom size", args: []string{"render", "--width", "200", "--height", "100", program}, width: 200, height: 100},
		{name: "highlight contour", args: []string{"render", "-W", "64", "-H", "64", "--contour", "2", "--no-label", program}, width: 64, height: 64},
		{name: "contour out of range", args: []string{"render", "--contour", "3", program}, wantErr: true},
		{name: "bad size", args: []string{"render", "--width", "-5", program}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".png")
			output, err := execute(append(tt.args, out))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err, output)
			assert.Contains(t, output, "Wrote "+out)

			f, err := os.Open(out)
			require.NoError(t, err)
			defer f.Close()
			img, err := png.Decode(f)
			require.NoError(t, err)
			assert.Equal(t, tt.width, img.Bounds().Dx())
			assert.Equal(t, tt.height, img.Bounds().Dy())
		})
	}
}

func TestConfigFlag(t *testing.T) {
	program := writeProgram(t, "inc.nc", "G0 X20 Y5\nG2 X30 Y5 I5 J0\n")
	settings := writeProgram(t, "settings.toml", "[parser]\narc_offsets = \"incremental\"\n")
	bad := writeProgram(t, "bad.toml", "[parser]\nunknown = 1\n")

	output, err := execute([]string{"parse", "--config", settings, "--moves", program})
	require.NoError(t, err)
	assert.Contains(t, output, "center (25.0000, 5.0000) cw")

	// Flag wins over the file
	output, err = execute([]string{"parse", "--config", settings, "--ij", "absolute", "--json", program})
	require.NoError(t, err)
	assert.Contains(t, output, `"arc_offsets": "absolute"`)

	_, err = execute([]string{"parse", "--config", bad, program})
	assert.Error(t, err)
}
