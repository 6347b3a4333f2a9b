package dla

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config controls the aggregate's domain, particles, and index resolution.
type Config struct {
	DomainSize   float64 `yaml:"domain_size" json:"domain_size"`
	Radius       float64 `yaml:"radius" json:"radius"`
	MaxParticles int     `yaml:"max_particles" json:"max_particles"`
	// Walkers is the initial walking population. Zero means MaxParticles.
	Walkers      int     `yaml:"walkers" json:"walkers"`
	SeedPosition Vec2    `yaml:"seed_position" json:"seed_position"`
	StepStrength float64 `yaml:"step_strength" json:"step_strength"`
	StepMomentum float64 `yaml:"step_momentum" json:"step_momentum"`

	CollisionLeafSide float64 `yaml:"collision_leaf_side" json:"collision_leaf_side"`
	BoxLeafSide       float64 `yaml:"box_leaf_side" json:"box_leaf_side"`

	PushOutRetries int     `yaml:"push_out_retries" json:"push_out_retries"`
	CompactEvery   int     `yaml:"compact_every" json:"compact_every"`
	Replenish      bool    `yaml:"replenish" json:"replenish"`
	Epsilon        float64 `yaml:"epsilon" json:"epsilon"`

	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		DomainSize:        512,
		Radius:            1,
		MaxParticles:      20000,
		SeedPosition:      Vec2{X: 256, Y: 256},
		StepStrength:      1,
		StepMomentum:      0.5,
		CollisionLeafSide: 8,
		BoxLeafSide:       1,
		PushOutRetries:    8,
		CompactEvery:      64,
		Epsilon:           1e-9,
		Seed:              1337,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, c.Validate()
}

// FromMap populates the config from a string map (flag-style key/value pairs).
// Unparseable or out-of-range values leave the default in place.
func FromMap(cfg map[string]string) Config {
	return DefaultConfig().Apply(cfg)
}

// Apply returns c with the string overrides in cfg applied. Changing the
// domain size without naming a seed position recentres the seed.
func (c Config) Apply(cfg map[string]string) Config {
	if cfg == nil {
		return c
	}
	centred := false
	if v, ok := cfg["domain_size"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			c.DomainSize = parsed
			centred = true
		}
	}
	if v, ok := cfg["radius"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			c.Radius = parsed
		}
	}
	if v, ok := cfg["max_particles"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.MaxParticles = parsed
		}
	}
	if v, ok := cfg["walkers"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Walkers = parsed
		}
	}
	if v, ok := cfg["seed_x"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.SeedPosition.X = parsed
			centred = false
		}
	}
	if v, ok := cfg["seed_y"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.SeedPosition.Y = parsed
			centred = false
		}
	}
	if centred {
		c.SeedPosition = Vec2{X: c.DomainSize / 2, Y: c.DomainSize / 2}
	}
	if v, ok := cfg["step_strength"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			c.StepStrength = parsed
		}
	}
	if v, ok := cfg["step_momentum"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 && parsed <= 1 {
			c.StepMomentum = parsed
		}
	}
	if v, ok := cfg["collision_leaf_side"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			c.CollisionLeafSide = parsed
		}
	}
	if v, ok := cfg["box_leaf_side"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			c.BoxLeafSide = parsed
		}
	}
	if v, ok := cfg["push_out_retries"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.PushOutRetries = parsed
		}
	}
	if v, ok := cfg["compact_every"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.CompactEvery = parsed
		}
	}
	if v, ok := cfg["replenish"]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Replenish = parsed
		}
	}
	if v, ok := cfg["epsilon"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			c.Epsilon = parsed
		}
	}
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	return c
}

// Validate reports the first inconsistency in c, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case !(c.DomainSize > 0):
		return fmt.Errorf("%w: domain_size must be positive", ErrInvalidConfig)
	case !(c.Radius > 0):
		return fmt.Errorf("%w: radius must be positive", ErrInvalidConfig)
	case c.DomainSize <= 2*c.Radius:
		return fmt.Errorf("%w: domain_size must exceed the particle diameter", ErrInvalidConfig)
	case c.MaxParticles < 0:
		return fmt.Errorf("%w: max_particles must not be negative", ErrInvalidConfig)
	case c.Walkers < 0:
		return fmt.Errorf("%w: walkers must not be negative", ErrInvalidConfig)
	case c.StepStrength < 0:
		return fmt.Errorf("%w: step_strength must not be negative", ErrInvalidConfig)
	case c.StepMomentum < 0 || c.StepMomentum > 1:
		return fmt.Errorf("%w: step_momentum must be within [0,1]", ErrInvalidConfig)
	case c.PushOutRetries < 0:
		return fmt.Errorf("%w: push_out_retries must not be negative", ErrInvalidConfig)
	case c.CompactEvery < 0:
		return fmt.Errorf("%w: compact_every must not be negative", ErrInvalidConfig)
	case !(c.Epsilon > 0):
		return fmt.Errorf("%w: epsilon must be positive", ErrInvalidConfig)
	}
	if c.SeedPosition.X < 0 || c.SeedPosition.X > c.DomainSize || c.SeedPosition.Y < 0 || c.SeedPosition.Y > c.DomainSize {
		return fmt.Errorf("%w: seed_position (%g,%g) outside domain", ErrInvalidConfig, c.SeedPosition.X, c.SeedPosition.Y)
	}
	cd, err := depthFor(c.DomainSize, c.CollisionLeafSide)
	if err != nil {
		return fmt.Errorf("%w: collision_leaf_side: %v", ErrInvalidConfig, err)
	}
	if cd < 1 {
		return fmt.Errorf("%w: collision_leaf_side must be smaller than domain_size", ErrInvalidConfig)
	}
	bd, err := depthFor(c.DomainSize, c.BoxLeafSide)
	if err != nil {
		return fmt.Errorf("%w: box_leaf_side: %v", ErrInvalidConfig, err)
	}
	if bd <= cd {
		return fmt.Errorf("%w: box_leaf_side must be smaller than collision_leaf_side", ErrInvalidConfig)
	}
	return nil
}

// CollisionDepth is the tree depth of collision leaves.
func (c Config) CollisionDepth() int {
	d, _ := depthFor(c.DomainSize, c.CollisionLeafSide)
	return d
}

// BoxDepth is the tree depth of box-count leaves.
func (c Config) BoxDepth() int {
	d, _ := depthFor(c.DomainSize, c.BoxLeafSide)
	return d
}

// maxDepth keeps 4^depth inside an int64 and the depth inside a uint8.
const maxDepth = 28

func depthFor(domain, side float64) (int, error) {
	if !(side > 0) || side > domain {
		return 0, fmt.Errorf("side %g not in (0, %g]", side, domain)
	}
	k := math.Log2(domain / side)
	r := math.Round(k)
	if math.Abs(k-r) > 1e-9 {
		return 0, fmt.Errorf("%g is not domain_size/2^k", side)
	}
	if r > maxDepth {
		return 0, fmt.Errorf("side %g needs more than %d levels", side, maxDepth)
	}
	return int(r), nil
}
