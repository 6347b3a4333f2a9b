package dla

import (
	"dla-grow/internal/core"
)

// Parameters reports the configuration and live counters for the HUD.
func (v *View) Parameters() core.ParameterSnapshot {
	s := v.sim
	cfg := s.cfg
	groups := []core.ParameterGroup{
		{
			Name: "Domain",
			Params: []core.Parameter{
				core.FloatParam("domain_size", "Domain size", cfg.DomainSize),
				core.FloatParam("radius", "Particle radius", cfg.Radius),
				core.FloatParam("collision_leaf_side", "Collision leaf", cfg.CollisionLeafSide),
				core.FloatParam("box_leaf_side", "Box leaf", cfg.BoxLeafSide),
				core.Int64Param("seed", "Seed", cfg.Seed),
			},
		},
		{
			Name: "Walk",
			Params: []core.Parameter{
				core.FloatParam("step_strength", "Step strength", cfg.StepStrength),
				core.FloatParam("step_momentum", "Step momentum", cfg.StepMomentum),
				core.BoolParam("replenish", "Replenish", cfg.Replenish),
			},
		},
		{
			Name: "Aggregate",
			Params: []core.Parameter{
				core.IntParam("iteration", "Iteration", s.iteration),
				core.IntParam("stuck", "Stuck", s.stuck.Len()),
				core.IntParam("walking", "Walking", s.walkers.Live()),
				core.FloatParam("enclosing_radius", "Enclosing radius", s.stuck.EnclosingRadius()),
				core.IntParam("cells", "Tree cells", s.tree.Cells()),
				core.IntParam("forced_freezes", "Forced freezes", s.forced),
			},
		},
	}
	if d, err := FitDimension(s.Dimension()); err == nil {
		groups[2].Params = append(groups[2].Params, core.FloatParam("dimension", "Box dimension", d))
	}
	return core.ParameterSnapshot{Groups: groups}
}

// ParameterControls lists the values the HUD may adjust while running.
func (v *View) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		{Key: "step_strength", Label: "Step strength", Type: core.ParamTypeFloat, Step: 0.1, Min: 0, HasMin: true},
		{Key: "step_momentum", Label: "Step momentum", Type: core.ParamTypeFloat, Step: 0.05, Min: 0, Max: 1, HasMin: true, HasMax: true},
	}
}

// SetFloatParameter applies a HUD adjustment to the running simulation.
func (v *View) SetFloatParameter(key string, value float64) bool {
	switch key {
	case "step_strength":
		if value < 0 {
			return false
		}
		v.sim.SetStepStrength(value)
	case "step_momentum":
		if value < 0 || value > 1 {
			return false
		}
		v.sim.SetStepMomentum(value)
	default:
		return false
	}
	return true
}
