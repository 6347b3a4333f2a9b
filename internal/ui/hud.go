//go:build ebiten

package ui

import (
	"image"
	"image/color"
	"strings"

	"dla-grow/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

var (
	panelBg     = color.RGBA{R: 16, G: 16, B: 20, A: 255}
	titleFg     = color.RGBA{R: 200, G: 200, B: 210, A: 255}
	labelFg     = color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dimFg       = color.RGBA{R: 160, G: 160, B: 170, A: 255}
	buttonBg    = color.RGBA{R: 54, G: 56, B: 64, A: 255}
	buttonOffBg = color.RGBA{R: 32, G: 34, B: 40, A: 255}
	buttonOffFg = color.RGBA{R: 120, G: 120, B: 130, A: 255}
)

// HUD is the panel to the right of the simulation view: steppers for the
// sim's adjustable parameters above a read-only list of everything else.
type HUD struct {
	sim    core.Sim
	setter core.FloatParameterSetter
	width  int
	title  string

	steppers []stepper
	snap     core.ParameterSnapshot
	offsetX  int

	panel *ebiten.Image
	pixel *ebiten.Image
}

// NewHUD constructs a HUD for sim. A non-positive width disables drawing.
func NewHUD(sim core.Sim, width int) *HUD {
	h := &HUD{sim: sim, width: max(width, 0), title: strings.ToUpper(sim.Name())}
	if p, ok := sim.(core.ParameterControlsProvider); ok {
		h.steppers = layoutSteppers(p.ParameterControls(), h.width)
	}
	if s, ok := sim.(core.FloatParameterSetter); ok {
		h.setter = s
	}
	if h.width > 0 {
		h.pixel = ebiten.NewImage(1, 1)
		h.pixel.Fill(color.White)
	}
	return h
}

// Update re-reads the sim's parameters and applies a stepper click. The
// panel starts offsetX pixels from the left of the window.
func (h *HUD) Update(offsetX int) {
	if h == nil {
		return
	}
	h.offsetX = offsetX
	h.snap = core.ParameterSnapshot{}
	if p, ok := h.sim.(core.ParameterProvider); ok {
		h.snap = p.Parameters()
	}
	for i := range h.steppers {
		h.steppers[i].sync(h.snap)
	}
	if h.setter == nil || !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	i, dir := hit(h.steppers, image.Pt(mx-h.offsetX, my))
	if i < 0 {
		return
	}
	st := &h.steppers[i]
	if v, ok := st.next(dir); ok && h.setter.SetFloatParameter(st.ctrl.Key, v) {
		st.value = v
	}
}

// Draw paints the panel at offsetX, sized to the scaled sim height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX int, scale int) {
	if h == nil || h.width <= 0 {
		return
	}
	height := h.sim.Size().H * max(scale, 1)
	if height <= 0 {
		return
	}
	if h.panel == nil || h.panel.Bounds().Dy() != height {
		h.panel = ebiten.NewImage(h.width, height)
	}
	h.panel.Fill(panelBg)

	face := basicfont.Face7x13
	text.Draw(h.panel, h.title, face, panelPadding, panelPadding+titleBaseline, titleFg)

	skip := make(map[string]bool, len(h.steppers))
	for i := range h.steppers {
		st := &h.steppers[i]
		skip[st.ctrl.Key] = true
		base := st.top + stepperHeight*2/3
		text.Draw(h.panel, st.ctrl.Label, face, panelPadding, base, labelFg)
		fg := labelFg
		if !st.known {
			fg = dimFg
		}
		v := st.text()
		text.Draw(h.panel, v, face, st.minus.Min.X-buttonGap-text.BoundString(face, v).Dx(), base, fg)
		_, canDown := st.next(-1)
		_, canUp := st.next(1)
		h.drawButton(st.minus, "-", canDown && h.setter != nil)
		h.drawButton(st.plus, "+", canUp && h.setter != nil)
	}

	y := stepperTop + len(h.steppers)*stepperHeight + readoutLine
	for _, r := range readouts(h.snap, skip) {
		if y > height-panelPadding {
			break
		}
		if r.heading {
			y += readoutLine / 2
			text.Draw(h.panel, r.label, face, panelPadding, y, titleFg)
		} else {
			text.Draw(h.panel, r.label, face, 2*panelPadding, y, dimFg)
			text.Draw(h.panel, r.value, face, h.width-panelPadding-text.BoundString(face, r.value).Dx(), y, labelFg)
		}
		y += readoutLine
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}

func (h *HUD) drawButton(r image.Rectangle, label string, enabled bool) {
	bg, fg := buttonBg, labelFg
	if !enabled {
		bg, fg = buttonOffBg, buttonOffFg
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(r.Dx()), float64(r.Dy()))
	op.GeoM.Translate(float64(r.Min.X), float64(r.Min.Y))
	op.ColorScale.ScaleWithColor(bg)
	h.panel.DrawImage(h.pixel, op)

	face := basicfont.Face7x13
	b := text.BoundString(face, label)
	text.Draw(h.panel, label, face, r.Min.X+(r.Dx()-b.Dx())/2, r.Min.Y+(r.Dy()+b.Dy())/2, fg)
}
