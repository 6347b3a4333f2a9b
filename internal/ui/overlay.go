//go:build ebiten

package ui

import (
	"image/color"
	"math"

	"dla-grow/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type circleProvider interface {
	EnclosingCircle() (x, y, r float64)
}

type edgeProvider interface {
	BoundaryEdges() [][4]float64
}

type leafProvider interface {
	CollisionLeaves() [][3]float64
}

// circleSegments is how many chords approximate the enclosing circle.
const circleSegments = 96

var (
	circleColor = color.RGBA{R: 120, G: 220, B: 140, A: 200}
	edgeColor   = color.RGBA{R: 255, G: 80, B: 80, A: 230}
	leafColor   = color.RGBA{R: 90, G: 110, B: 160, A: 140}
)

// Overlay draws optional debugging visuals on top of the base simulation.
// Digit keys toggle the layers: 1 enclosing circle, 2 boundary contact,
// 3 occupied collision leaves.
type Overlay struct {
	sim        core.Sim
	scale      int
	showCircle bool
	showEdges  bool
	showLeaves bool

	pixel *ebiten.Image
}

// NewOverlay constructs a new overlay instance.
func NewOverlay(sim core.Sim, scale int) *Overlay {
	o := &Overlay{sim: sim, scale: scale, showCircle: true, showEdges: true}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update handles the layer toggles.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit1) {
		o.showCircle = !o.showCircle
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit2) {
		o.showEdges = !o.showEdges
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit3) {
		o.showLeaves = !o.showLeaves
	}
}

// Draw renders the enabled layers onto the provided screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	scale := float64(o.scale)
	if scale <= 0 {
		scale = 1
	}

	if o.showLeaves {
		if provider, ok := o.sim.(leafProvider); ok {
			for _, l := range provider.CollisionLeaves() {
				x, y, side := l[0]*scale, l[1]*scale, l[2]*scale
				o.drawLine(screen, x, y, x+side, y, 1, leafColor)
				o.drawLine(screen, x, y+side, x+side, y+side, 1, leafColor)
				o.drawLine(screen, x, y, x, y+side, 1, leafColor)
				o.drawLine(screen, x+side, y, x+side, y+side, 1, leafColor)
			}
		}
	}

	if o.showCircle {
		if provider, ok := o.sim.(circleProvider); ok {
			cx, cy, r := provider.EnclosingCircle()
			o.drawCircle(screen, cx*scale, cy*scale, r*scale, circleColor)
		}
	}

	if o.showEdges {
		if provider, ok := o.sim.(edgeProvider); ok {
			for _, e := range provider.BoundaryEdges() {
				o.drawLine(screen, e[0]*scale, e[1]*scale, e[2]*scale, e[3]*scale, 3, edgeColor)
			}
		}
	}
}

func (o *Overlay) drawCircle(screen *ebiten.Image, cx, cy, r float64, col color.RGBA) {
	if r <= 0 {
		return
	}
	px, py := cx+r, cy
	for i := 1; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		x, y := cx+r*math.Cos(a), cy+r*math.Sin(a)
		o.drawLine(screen, px, py, x, y, 1.5, col)
		px, py = x, y
	}
}

func (o *Overlay) drawLine(screen *ebiten.Image, x1, y1, x2, y2, thickness float64, col color.RGBA) {
	if o.pixel == nil || thickness <= 0 {
		return
	}
	dx := x2 - x1
	dy := y2 - y1
	length := math.Hypot(dx, dy)
	if length <= 1e-4 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(length, thickness)
	op.GeoM.Translate(0, -thickness/2)
	op.GeoM.Rotate(math.Atan2(dy, dx))
	op.GeoM.Translate(x1, y1)
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(o.pixel, op)
}
