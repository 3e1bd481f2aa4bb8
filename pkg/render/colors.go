package render

import (
	"image/color"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
)

// Style holds the colours and stroke widths used for a toolpath.
type Style struct {
	Background color.NRGBA
	Rapid      color.NRGBA
	Cut        color.NRGBA
	Arc        color.NRGBA
	Closed     color.NRGBA // cutting moves that belong to a closed contour
	Highlight  color.NRGBA // selected contour
	Label      color.NRGBA
	LineWidth  float64     // pixels
	RapidDash  float64     // dash length of rapids, 0 for solid
}

// DefaultStyle is a dark theme close to the wire EDM controller screens.
func DefaultStyle() Style {
	return Style{
		Background: color.NRGBA{R: 24, G: 26, B: 30, A: 255},
		Rapid:      color.NRGBA{R: 120, G: 120, B: 120, A: 200},
		Cut:        color.NRGBA{R: 77, G: 180, B: 230, A: 255},
		Arc:        color.NRGBA{R: 127, G: 200, B: 127, A: 255},
		Closed:     color.NRGBA{R: 230, G: 200, B: 82, A: 255},
		Highlight:  color.NRGBA{R: 255, G: 70, B: 70, A: 255},
		Label:      color.NRGBA{R: 220, G: 220, B: 220, A: 255},
		LineWidth:  1.5,
		RapidDash:  4,
	}
}

// ColorFor picks the stroke colour of a polyline. highlight is the
// selected contour index, or -1.
func (s Style) ColorFor(p Polyline, highlight int) color.NRGBA {
	switch {
	case p.Type == gcode.Rapid:
		return s.Rapid
	case highlight >= 0 && p.Contour == highlight:
		return s.Highlight
	case p.Closed:
		return s.Closed
	case p.Type == gcode.Arc:
		return s.Arc
	default:
		return s.Cut
	}
}

// WidthFor returns the stroke width of a polyline.
func (s Style) WidthFor(p Polyline, highlight int) float64 {
	if highlight >= 0 && p.Contour == highlight && p.Type != gcode.Rapid {
		return s.LineWidth * 2
	}
	return s.LineWidth
}
