package ui

import (
	"image"
	"math"
	"strconv"

	"dla-grow/internal/core"
)

// Panel geometry shared by the HUD and its layout helpers.
const (
	panelPadding  = 12
	titleBaseline = 18
	stepperTop    = panelPadding + titleBaseline + 14
	stepperHeight = 36
	buttonSize    = 24
	buttonGap     = 6
	readoutLine   = 16
)

// stepper is one adjustable parameter row: the last value read from the
// sim and the hit boxes of its -/+ buttons, relative to the panel.
type stepper struct {
	ctrl  core.ParameterControl
	value float64
	known bool

	top         int
	minus, plus image.Rectangle
}

// layoutSteppers stacks one row per control in a panel of the given width.
func layoutSteppers(ctrls []core.ParameterControl, width int) []stepper {
	out := make([]stepper, len(ctrls))
	for i, ctrl := range ctrls {
		top := stepperTop + i*stepperHeight
		y := top + (stepperHeight-buttonSize)/2
		plus := image.Rect(width-panelPadding-buttonSize, y, width-panelPadding, y+buttonSize)
		minus := plus.Sub(image.Pt(buttonSize+buttonGap, 0))
		out[i] = stepper{ctrl: ctrl, top: top, minus: minus, plus: plus}
	}
	return out
}

// sync reads the stepper's current value from snap.
func (s *stepper) sync(snap core.ParameterSnapshot) {
	s.known = false
	p, ok := snap.Lookup(s.ctrl.Key)
	if !ok || p.Type != s.ctrl.Type {
		return
	}
	v, err := strconv.ParseFloat(p.Value, 64)
	if err != nil {
		return
	}
	s.value, s.known = v, true
}

// increment is the amount one click moves the value. Int controls move in
// whole units.
func (s *stepper) increment() float64 {
	if s.ctrl.Type == core.ParamTypeInt {
		return math.Max(1, math.Round(s.ctrl.Step))
	}
	if s.ctrl.Step <= 0 {
		return 0.05
	}
	return s.ctrl.Step
}

// next returns the value one click in direction dir, clamped to the
// control's bounds, and false when that click would change nothing.
func (s *stepper) next(dir int) (float64, bool) {
	if !s.known || dir == 0 {
		return 0, false
	}
	if s.ctrl.Type != core.ParamTypeInt && s.ctrl.Type != core.ParamTypeFloat {
		return 0, false
	}
	v := s.value + float64(dir)*s.increment()
	if s.ctrl.HasMin {
		v = math.Max(v, s.ctrl.Min)
	}
	if s.ctrl.HasMax {
		v = math.Min(v, s.ctrl.Max)
	}
	return v, math.Abs(v-s.value) >= 1e-9
}

// text renders the current value with as many decimals as the step needs.
func (s *stepper) text() string {
	if !s.known {
		return "--"
	}
	if s.ctrl.Type == core.ParamTypeInt {
		return strconv.Itoa(int(s.value))
	}
	inc := s.increment()
	prec := 1
	switch {
	case inc < 0.001:
		prec = 4
	case inc < 0.01:
		prec = 3
	case inc < 0.1:
		prec = 2
	}
	return strconv.FormatFloat(s.value, 'f', prec, 64)
}

// hit reports which stepper button, if any, lies under panel point pt.
func hit(steppers []stepper, pt image.Point) (idx, dir int) {
	for i := range steppers {
		switch {
		case pt.In(steppers[i].minus):
			return i, -1
		case pt.In(steppers[i].plus):
			return i, 1
		}
	}
	return -1, 0
}

// readout is one line of the read-only section: a group heading or a
// label/value pair.
type readout struct {
	heading bool
	label   string
	value   string
}

// readouts flattens snap into display lines, skipping keys in skip.
func readouts(snap core.ParameterSnapshot, skip map[string]bool) []readout {
	var out []readout
	for _, g := range snap.Groups {
		out = append(out, readout{heading: true, label: g.Name})
		for _, p := range g.Params {
			if skip[p.Key] {
				continue
			}
			v := p.Value
			if p.Type == core.ParamTypeFloat {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					v = strconv.FormatFloat(f, 'g', 5, 64)
				}
			}
			out = append(out, readout{label: p.Label, value: v})
		}
	}
	return out
}
