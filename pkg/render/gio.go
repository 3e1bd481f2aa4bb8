package render

import (
	"image/color"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
)

// Draw paints polylines into the current Gio frame. Rapids are drawn
// at half width because Gio strokes have no dash pattern.
func Draw(gtx layout.Context, lines []Polyline, st Style, highlight int) {
	paint.Fill(gtx.Ops, st.Background)

	// Highlighted moves go last so they stay on top
	for pass := 0; pass < 2; pass++ {
		for _, pl := range lines {
			hi := highlight >= 0 && pl.Contour == highlight && pl.Type != gcode.Rapid
			if hi != (pass == 1) {
				continue
			}
			width := st.WidthFor(pl, highlight)
			if pl.Type == gcode.Rapid {
				width /= 2
			}
			strokePolyline(gtx, pl, float32(width), st.ColorFor(pl, highlight))
		}
	}
}

func strokePolyline(gtx layout.Context, pl Polyline, width float32, c color.NRGBA) {
	if len(pl.Points) < 2 {
		return
	}
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(float32(pl.Points[0].X), float32(pl.Points[0].Y)))
	for _, p := range pl.Points[1:] {
		path.LineTo(f32.Pt(float32(p.X), float32(p.Y)))
	}
	stroke := clip.Stroke{
		Path:  path.End(),
		Width: width,
	}.Op()
	paint.FillShape(gtx.Ops, c, stroke)
}
