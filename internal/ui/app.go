package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/explorer"
	"github.com/oligo/gioview/menu"
	"github.com/oligo/gioview/theme"
	"golang.org/x/exp/shiny/materialdesign/icons"

	"github.com/OpenTraceLab/OpenTraceEDM/internal/config"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/render"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/viewport"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/watch"
)

// programExtensions are offered by the open dialog.
var programExtensions = []string{"nc", "iso", "gcode", "ngc", "txt"}

type toolButton struct {
	click widget.Clickable
	icon  *widget.Icon
	desc  string
	act   action
}

// App drives the Gio toolpath viewer.
type App struct {
	window *app.Window
	theme  *theme.Theme
	state  *AppState
	cfg    *config.Config
	style  render.Style
	flat   render.Options

	ops  op.Ops
	view *viewport.Viewport

	explorer *explorer.Explorer
	openBtn  toolButton
	reload   toolButton
	tools    []*toolButton

	contourBtn   widget.Clickable
	contourMenu  *menu.DropdownMenu
	menuRevision int

	logList widget.List

	// canvas input
	canvasTag int
	dragging  bool
	lastDrag  geom.Position
	cursor    geom.Position
	hovering  bool

	// fittedFile is the file the view was last fitted to. Reloads of the
	// same file keep the user's zoom and pan.
	fittedFile string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New wires the Gio window, theme, shared state and configuration
// together.
func New(w *app.Window, state *AppState, cfg *config.Config) *App {
	if state == nil {
		state = NewState()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	png := cfg.PNGOptions()
	flat := png.Flatten
	flat.Cull = true

	a := &App{
		window:   w,
		theme:    theme.NewTheme("", nil, true),
		state:    state,
		cfg:      cfg,
		style:    png.Style,
		flat:     flat,
		view:     viewport.New(0, 0, cfg.ViewportOptions()...),
		explorer: explorer.NewExplorer(w),
		logList:  widget.List{List: layout.List{Axis: layout.Vertical, ScrollToEnd: true}},
		ctx:      context.Background(),
	}
	a.initToolbar()
	return a
}

func (a *App) initToolbar() {
	makeIcon := func(data []byte, name string) *widget.Icon {
		icon, err := widget.NewIcon(data)
		if err != nil {
			diag.Logger().Warn("ui: failed to load icon", "icon", name, "err", err)
			return nil
		}
		return icon
	}
	a.openBtn = toolButton{icon: makeIcon(icons.FileFolderOpen, "open"), desc: "Open program"}
	a.reload = toolButton{icon: makeIcon(icons.NavigationRefresh, "reload"), desc: "Reload"}
	a.tools = []*toolButton{
		{icon: makeIcon(icons.ActionZoomIn, "zoom in"), desc: "Zoom in", act: actZoomIn},
		{icon: makeIcon(icons.ActionZoomOut, "zoom out"), desc: "Zoom out", act: actZoomOut},
		{icon: makeIcon(icons.NavigationFullscreen, "fit"), desc: "Fit", act: actFit},
		{icon: makeIcon(icons.ActionHome, "reset"), desc: "Reset view", act: actReset},
	}
}

// Open loads file and reloads it whenever it changes. A previously
// opened file stops being watched.
func (a *App) Open(ctx context.Context, file string) error {
	wt, err := watch.New(file, watch.Options{
		Parser:  a.cfg.ParserOptions(),
		Contour: a.cfg.ContourOptions(),
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.ctx = ctx
	wctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	a.state.SetStatus(fmt.Sprintf("Loading %s", wt.File()))
	go follow(wctx, wt, a.state, a.window.Invalidate)
	return nil
}

// Run processes Gio events until the window is closed.
func (a *App) Run() error {
	defer a.stop()
	for {
		e := a.window.Event()
		a.explorer.ListenEvents(e)
		switch ev := e.(type) {
		case app.DestroyEvent:
			return ev.Err
		case app.FrameEvent:
			gtx := app.NewContext(&a.ops, ev)
			a.layout(gtx)
			ev.Frame(gtx.Ops)
		}
	}
}

func (a *App) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *App) openContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

func (a *App) chooseFile() {
	go func() {
		file, err := a.explorer.ChooseFile(programExtensions...)
		if err != nil {
			if !errors.Is(err, explorer.ErrUserDecline) {
				a.report(fmt.Errorf("file picker: %w", err))
			}
			return
		}
		defer file.Close()

		f, ok := file.(*os.File)
		if !ok {
			a.report(errors.New("unable to get file path from picker"))
			return
		}
		if err := a.Open(a.openContext(), f.Name()); err != nil {
			a.report(err)
		}
	}()
}

func (a *App) report(err error) {
	a.state.SetError(err)
	a.state.AppendLog(fmt.Sprintf("[ERROR] %v", err))
	a.window.Invalidate()
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	snap := a.state.Snapshot()
	a.handleKeys(gtx, snap)
	a.handleToolbar(gtx, snap)
	if snap.Revision != a.menuRevision {
		a.contourMenu = a.buildContourMenu(snap)
		a.menuRevision = snap.Revision
	}

	paint.FillShape(gtx.Ops, a.theme.Theme.Bg, clip.Rect{Max: gtx.Constraints.Max}.Op())

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.layoutToolbar(gtx, snap)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return a.layoutCanvas(gtx, snap)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.layoutLog(gtx, snap)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.layoutStatus(gtx, snap)
		}),
	)
}

func (a *App) handleKeys(gtx layout.Context, snap StateSnapshot) {
	for {
		ev, ok := gtx.Event(key.Filter{})
		if !ok {
			break
		}
		ke, ok := ev.(key.Event)
		if !ok || ke.State != key.Press {
			continue
		}
		a.do(gtx, keyAction(ke.Name), snap)
		snap = a.state.Snapshot()
	}
}

func (a *App) handleToolbar(gtx layout.Context, snap StateSnapshot) {
	if a.openBtn.click.Clicked(gtx) {
		a.chooseFile()
	}
	if a.reload.click.Clicked(gtx) && snap.File != "" {
		if err := a.Open(a.openContext(), snap.File); err != nil {
			a.report(err)
		}
	}
	for _, b := range a.tools {
		if b.click.Clicked(gtx) {
			a.do(gtx, b.act, snap)
		}
	}
}

func (a *App) do(gtx layout.Context, act action, snap StateSnapshot) {
	if act == actNone {
		return
	}
	if perform(act, a.view, a.state, snap) {
		a.window.Perform(system.ActionClose)
		return
	}
	gtx.Execute(op.InvalidateCmd{})
}

func (a *App) buildContourMenu(snap StateSnapshot) *menu.DropdownMenu {
	opts := make([]menu.MenuOption, 0, len(snap.Contours)+1)
	addOption := func(idx int, label string) {
		opts = append(opts, menu.MenuOption{
			OnClicked: func() error {
				a.state.Select(idx)
				fit(a.view, a.state.Snapshot(), idx)
				a.window.Invalidate()
				return nil
			},
			Layout: func(gtx menu.C, th *theme.Theme) menu.D {
				lbl := material.Body2(th.Theme, label)
				if a.state.Selected() == idx {
					lbl.Color = th.Palette.ContrastBg
				}
				return layout.Inset{Left: unit.Dp(4), Right: unit.Dp(4)}.Layout(gtx, lbl.Layout)
			},
		})
	}
	addOption(-1, "All contours")
	for i, c := range snap.Contours {
		addOption(i, fmt.Sprintf("#%d %s", i+1, c.String()))
	}
	drop := menu.NewDropdownMenu([][]menu.MenuOption{opts})
	drop.MaxWidth = unit.Dp(320)
	return drop
}

func (a *App) layoutToolbar(gtx layout.Context, snap StateSnapshot) layout.Dimensions {
	th := a.theme.Theme
	button := func(b *toolButton) layout.FlexChild {
		return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(unit.Dp(2)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				if b.icon == nil {
					return material.Button(th, &b.click, b.desc).Layout(gtx)
				}
				btn := material.IconButton(th, &b.click, b.icon, b.desc)
				btn.Size = unit.Dp(20)
				btn.Inset = layout.UniformInset(unit.Dp(6))
				return btn.Layout(gtx)
			})
		})
	}

	children := []layout.FlexChild{button(&a.openBtn), button(&a.reload)}
	for _, b := range a.tools {
		children = append(children, button(b))
	}
	children = append(children,
		layout.Rigid(layout.Spacer{Width: unit.Dp(12)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.layoutContourDropdown(gtx, snap)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Left: unit.Dp(12)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				lbl := material.Body1(th, snap.File)
				lbl.MaxLines = 1
				return lbl.Layout(gtx)
			})
		}),
	)
	return layout.UniformInset(unit.Dp(4)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Alignment: layout.Middle}.Layout(gtx, children...)
	})
}

func (a *App) layoutContourDropdown(gtx layout.Context, snap StateSnapshot) layout.Dimensions {
	if a.contourBtn.Clicked(gtx) && a.contourMenu != nil {
		a.contourMenu.ToggleVisibility(gtx)
	}
	label := "All contours"
	if snap.Selected >= 0 && snap.Selected < len(snap.Contours) {
		label = fmt.Sprintf("Contour #%d", snap.Selected+1)
	}
	dims := material.Button(a.theme.Theme, &a.contourBtn, label).Layout(gtx)

	// Menu after the button so it is drawn on top
	if a.contourMenu != nil {
		a.contourMenu.Layout(gtx, a.theme)
	}
	return dims
}

func (a *App) layoutCanvas(gtx layout.Context, snap StateSnapshot) layout.Dimensions {
	size := gtx.Constraints.Max
	if err := a.view.SetDisplaySize(float64(size.X), float64(size.Y)); err != nil {
		diag.Logger().Warn("ui: display size", "err", err)
	}
	if snap.Result != nil && snap.File != a.fittedFile && size.X > 0 && size.Y > 0 {
		fit(a.view, snap, -1)
		a.fittedFile = snap.File
	}
	a.handleCanvasPointer(gtx)

	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()
	if snap.Result == nil {
		paint.Fill(gtx.Ops, a.style.Background)
	} else {
		lines := render.Flatten(snap.Result.Path, snap.Contours, a.view.State(), a.flat)
		render.Draw(gtx, lines, a.style, snap.Selected)
	}
	event.Op(gtx.Ops, &a.canvasTag)
	if a.dragging {
		pointer.CursorGrabbing.Add(gtx.Ops)
	} else {
		pointer.CursorCrosshair.Add(gtx.Ops)
	}
	return layout.Dimensions{Size: size}
}

func (a *App) handleCanvasPointer(gtx layout.Context) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  &a.canvasTag,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Cancel | pointer.Scroll | pointer.Move | pointer.Leave,
			ScrollY: pointer.ScrollRange{Min: -1000, Max: 1000},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		pos := geom.Position{X: float64(pe.Position.X), Y: float64(pe.Position.Y)}
		switch pe.Kind {
		case pointer.Press:
			if pe.Buttons == pointer.ButtonPrimary {
				a.dragging = true
				a.lastDrag = pos
			}
		case pointer.Drag:
			if a.dragging {
				a.view.Pan(pos.X-a.lastDrag.X, pos.Y-a.lastDrag.Y)
				a.lastDrag = pos
				gtx.Execute(op.InvalidateCmd{})
			}
		case pointer.Release, pointer.Cancel:
			a.dragging = false
		case pointer.Scroll:
			switch {
			case pe.Scroll.Y < 0:
				a.view.ZoomAtPoint(pos.X, pos.Y, 1)
			case pe.Scroll.Y > 0:
				a.view.ZoomAtPoint(pos.X, pos.Y, -1)
			}
			gtx.Execute(op.InvalidateCmd{})
		case pointer.Leave:
			a.hovering = false
			gtx.Execute(op.InvalidateCmd{})
			continue
		}
		a.hovering = true
		a.cursor = a.view.ScreenToWorld(pos.X, pos.Y)
		if pe.Kind == pointer.Move {
			gtx.Execute(op.InvalidateCmd{})
		}
	}
}

func (a *App) layoutLog(gtx layout.Context, snap StateSnapshot) layout.Dimensions {
	if len(snap.Logs) == 0 {
		return layout.Dimensions{}
	}
	gtx.Constraints.Max.Y = gtx.Dp(unit.Dp(96))
	gtx.Constraints.Min.Y = 0
	return layout.Inset{Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return material.List(a.theme.Theme, &a.logList).Layout(gtx, len(snap.Logs), func(gtx layout.Context, i int) layout.Dimensions {
			lbl := material.Caption(a.theme.Theme, snap.Logs[i])
			lbl.MaxLines = 1
			return lbl.Layout(gtx)
		})
	})
}

func (a *App) layoutStatus(gtx layout.Context, snap StateSnapshot) layout.Dimensions {
	status := snap.Status
	if snap.LastError != nil {
		status = fmt.Sprintf("%s | %v", status, snap.LastError)
	}
	st := a.view.State()
	info := fmt.Sprintf("zoom %.3f | %s", st.Zoom, a.view.Mode())
	if a.hovering {
		info = fmt.Sprintf("X %.3f  Y %.3f | %s", a.cursor.X, a.cursor.Y, info)
	}

	bg := color.NRGBA{R: 28, G: 30, B: 36, A: 255}
	return layout.Background{}.Layout(gtx,
		func(gtx layout.Context) layout.Dimensions {
			sz := image.Pt(gtx.Constraints.Min.X, gtx.Constraints.Min.Y)
			paint.FillShape(gtx.Ops, bg, clip.Rect{Max: sz}.Op())
			return layout.Dimensions{Size: sz}
		},
		func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: unit.Dp(4), Bottom: unit.Dp(4), Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
					layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
						lbl := material.Caption(a.theme.Theme, status)
						lbl.Color = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
						if snap.LastError != nil {
							lbl.Color = color.NRGBA{R: 240, G: 96, B: 96, A: 255}
						}
						lbl.MaxLines = 1
						return lbl.Layout(gtx)
					}),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						lbl := material.Caption(a.theme.Theme, info+" | "+keyHelp)
						lbl.Color = color.NRGBA{R: 160, G: 160, B: 170, A: 255}
						return lbl.Layout(gtx)
					}),
				)
			})
		},
	)
}
