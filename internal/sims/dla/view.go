package dla

import (
	"image/color"
	"math"

	"github.com/sirupsen/logrus"

	"dla-grow/internal/core"
)

const (
	displayEmpty uint8 = iota
	displayStuck
	displayWalker
	displayRecent
)

// recentWindow is how many of the newest stuck particles are highlighted.
const recentWindow = 64

var viewPalette = []color.RGBA{
	displayEmpty:  {R: 8, G: 10, B: 16, A: 255},
	displayStuck:  {R: 210, G: 220, B: 235, A: 255},
	displayWalker: {R: 90, G: 150, B: 255, A: 255},
	displayRecent: {R: 255, G: 170, B: 60, A: 255},
}

// View adapts a Simulation to core.Sim, rasterising discs into one pixel
// per domain unit.
type View struct {
	cfg  Config
	log  logrus.FieldLogger
	sim  *Simulation
	base *core.ByteGrid

	display []uint8
	painted int
}

// NewView builds a simulation for display.
func NewView(cfg Config, log logrus.FieldLogger) (*View, error) {
	v := &View{cfg: cfg, log: log}
	if err := v.rebuild(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) rebuild() error {
	var opts []Option
	if v.log != nil {
		opts = append(opts, WithLogger(v.log))
	}
	sim, err := NewWithConfig(v.cfg, opts...)
	if err != nil {
		return err
	}
	side := int(math.Ceil(v.cfg.DomainSize))
	v.sim = sim
	v.base = core.NewByteGrid(side, side)
	v.display = make([]uint8, len(v.base.Cells()))
	v.painted = 0
	return nil
}

// Name returns the simulation identifier.
func (v *View) Name() string { return "dla" }

// Size returns the raster dimensions.
func (v *View) Size() core.Size { return core.Size{W: v.base.W, H: v.base.H} }

// Simulation exposes the wrapped simulation.
func (v *View) Simulation() *Simulation { return v.sim }

// Done reports whether the aggregate has finished growing.
func (v *View) Done() bool { return v.sim.Done() }

// Palette exposes the colours indexed by Cells values.
func (v *View) Palette() []color.RGBA { return viewPalette }

// Reset regrows the aggregate from scratch. A zero seed keeps the configured one.
func (v *View) Reset(seed int64) {
	if seed != 0 {
		v.cfg.Seed = seed
	}
	v.cfg.StepStrength = v.sim.cfg.StepStrength
	v.cfg.StepMomentum = v.sim.cfg.StepMomentum
	if err := v.rebuild(); err != nil && v.log != nil {
		v.log.WithError(err).Error("reset failed")
	}
}

// Step advances the simulation once; completed simulations are left alone.
func (v *View) Step() {
	if v.sim.Done() {
		return
	}
	res, err := v.sim.Step()
	if err != nil {
		if v.log != nil {
			v.log.WithError(err).Error("step failed")
		}
		return
	}
	if res == Complete && v.log != nil {
		v.log.WithFields(logrus.Fields{
			"iteration": v.sim.Iteration(),
			"stuck":     v.sim.Stuck().Len(),
		}).Info("aggregate complete")
	}
}

// Cells rasterises newly stuck discs into the base layer and overlays the
// walkers and the most recent arrivals.
func (v *View) Cells() []uint8 {
	stuck := v.sim.Stuck()
	for ; v.painted < stuck.Len(); v.painted++ {
		v.stamp(v.base, stuck.At(int32(v.painted)))
	}
	copy(v.display, v.base.Cells())

	w := v.base.W
	for i := max(0, stuck.Len()-recentWindow); i < stuck.Len(); i++ {
		p := stuck.At(int32(i))
		x, y := int(p.X), int(p.Y)
		if v.base.InBounds(x, y) {
			v.display[y*w+x] = displayRecent
		}
	}
	for _, p := range v.sim.Walkers().pos {
		if p.IsNaN() {
			continue
		}
		x, y := int(p.X), int(p.Y)
		if v.base.InBounds(x, y) {
			v.display[y*w+x] = displayWalker
		}
	}
	return v.display
}

// stamp fills every pixel whose centre lies inside the disc at p.
func (v *View) stamp(g *core.ByteGrid, p Vec2) {
	r := v.cfg.Radius
	x0, x1 := int(math.Floor(p.X-r)), int(math.Ceil(p.X+r))
	y0, y1 := int(math.Floor(p.Y-r)), int(math.Ceil(p.Y+r))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := float64(x)+0.5-p.X, float64(y)+0.5-p.Y
			if dx*dx+dy*dy <= r*r {
				g.Set(x, y, displayStuck)
			}
		}
	}
	// Discs smaller than a pixel still need to show up.
	g.Set(int(p.X), int(p.Y), displayStuck)
}

func init() {
	core.Register("dla", func(cfg map[string]string) (core.Sim, error) {
		return NewView(FromMap(cfg), nil)
	})
}
