package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/viewport"
)

// labelSize is the label font size in points.
const labelSize = 12.0

// PNGOptions controls image export.
type PNGOptions struct {
	Style     Style
	Flatten   Options
	Highlight int    // contour to emphasise, or -1
	Label     string // drawn in the top-left corner when set
}

// DefaultPNGOptions returns the default style with no highlight.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{Style: DefaultStyle(), Highlight: -1}
}

var parseMono = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(gomono.TTF)
})

// PNG draws path as seen through s and writes a PNG image of the
// display size of s to w.
func PNG(w io.Writer, path gcode.Path, contours []contour.Contour, s viewport.State, opts PNGOptions) error {
	if !s.IsValid() {
		return fmt.Errorf("render: invalid viewport state")
	}
	width, height := int(math.Ceil(s.Width)), int(math.Ceil(s.Height))
	if width < 1 || height < 1 {
		return fmt.Errorf("render: image size %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(opts.Style.Background)
	dc.Clear()
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	for _, pl := range Flatten(path, contours, s, opts.Flatten) {
		if len(pl.Points) < 2 {
			continue
		}
		dc.SetColor(opts.Style.ColorFor(pl, opts.Highlight))
		dc.SetLineWidth(opts.Style.WidthFor(pl, opts.Highlight))
		if pl.Type == gcode.Rapid && opts.Style.RapidDash > 0 {
			dc.SetDash(opts.Style.RapidDash, opts.Style.RapidDash)
		} else {
			dc.SetDash()
		}
		dc.MoveTo(pl.Points[0].X, pl.Points[0].Y)
		for _, p := range pl.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.Stroke()
	}

	if opts.Label != "" {
		if err := drawLabel(dc, opts.Label, opts.Style.Label); err != nil {
			return err
		}
	}
	return dc.EncodePNG(w)
}

// SavePNG is PNG writing to a file.
func SavePNG(filename string, path gcode.Path, contours []contour.Contour, s viewport.State, opts PNGOptions) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := PNG(f, path, contours, s, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func drawLabel(dc *gg.Context, label string, c color.NRGBA) error {
	ttf, err := parseMono()
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    labelSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()
	dc.SetFontFace(face)
	dc.SetColor(c)
	dc.DrawString(label, 8, 8+labelSize)
	return nil
}
