package dla

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.CollisionDepth() != 6 || c.BoxDepth() != 9 {
		t.Fatalf("depths = %d,%d, want 6,9", c.CollisionDepth(), c.BoxDepth())
	}
}

func TestFromMap(t *testing.T) {
	c := FromMap(map[string]string{
		"domain_size":   "64",
		"radius":        "0.5",
		"max_particles": "100",
		"step_momentum": "2",
		"replenish":     "true",
		"seed":          "7",
		"radius_typo":   "9",
	})
	if c.DomainSize != 64 || c.Radius != 0.5 || c.MaxParticles != 100 {
		t.Fatalf("parsed = %+v", c)
	}
	if c.SeedPosition != (Vec2{32, 32}) {
		t.Fatalf("seed position = %+v, want domain centre", c.SeedPosition)
	}
	if c.StepMomentum != 0.5 {
		t.Fatalf("out-of-range momentum applied: %v", c.StepMomentum)
	}
	if !c.Replenish || c.Seed != 7 {
		t.Fatalf("replenish=%v seed=%d", c.Replenish, c.Seed)
	}

	c = FromMap(map[string]string{"seed_x": "10", "seed_y": "12", "radius": "-1"})
	if c.SeedPosition != (Vec2{10, 12}) || c.Radius != 1 {
		t.Fatalf("seed=%+v radius=%v", c.SeedPosition, c.Radius)
	}
	if FromMap(nil) != DefaultConfig() {
		t.Fatal("nil map should yield the defaults")
	}
}

func TestApplyKeepsLoadedValues(t *testing.T) {
	base := DefaultConfig()
	base.DomainSize = 100
	base.SeedPosition = Vec2{10, 10}
	base.Replenish = true

	c := base.Apply(map[string]string{"radius": "3"})
	if c.SeedPosition != (Vec2{10, 10}) || !c.Replenish || c.Radius != 3 {
		t.Fatalf("applied = %+v", c)
	}
	c = base.Apply(map[string]string{"domain_size": "64"})
	if c.SeedPosition != (Vec2{32, 32}) {
		t.Fatalf("resized domain should recentre the seed, got %+v", c.SeedPosition)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dla.yaml")
	raw := []byte(`domain_size: 128
radius: 2
max_particles: 500
seed_position: {x: 64, y: 40}
collision_leaf_side: 8
box_leaf_side: 1
replenish: true
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.DomainSize != 128 || c.Radius != 2 || c.MaxParticles != 500 || !c.Replenish {
		t.Fatalf("loaded = %+v", c)
	}
	if c.SeedPosition != (Vec2{64, 40}) {
		t.Fatalf("seed position = %+v", c.SeedPosition)
	}
	if c.StepMomentum != DefaultConfig().StepMomentum {
		t.Fatal("unset keys should keep their defaults")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"box not finer":       func(c *Config) { c.BoxLeafSide = c.CollisionLeafSide },
		"side not power of 2": func(c *Config) { c.CollisionLeafSide = 3 },
		"collision is root":   func(c *Config) { c.CollisionLeafSide = c.DomainSize },
		"seed outside":        func(c *Config) { c.SeedPosition = Vec2{-1, 0} },
		"disc fills domain":   func(c *Config) { c.Radius = c.DomainSize / 2 },
		"negative walkers":    func(c *Config) { c.Walkers = -1 },
		"momentum above one":  func(c *Config) { c.StepMomentum = 1.5 },
		"zero epsilon":        func(c *Config) { c.Epsilon = 0 },
		"too deep":            func(c *Config) { c.BoxLeafSide = c.DomainSize / (1 << 30) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestFitResolution(t *testing.T) {
	c := DefaultConfig()
	c.DomainSize = 128
	c.Radius = 2
	FitResolution(&c)
	if c.CollisionLeafSide != 8 || c.BoxLeafSide != 1 {
		t.Fatalf("sides = %v,%v, want 8,1", c.CollisionLeafSide, c.BoxLeafSide)
	}
	c.Radius = 0.3
	FitResolution(&c)
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.CollisionLeafSide < 4*c.Radius || c.BoxLeafSide > c.Radius || c.BoxLeafSide < c.Radius/2 {
		t.Fatalf("sides %v,%v do not fit radius %v", c.CollisionLeafSide, c.BoxLeafSide, c.Radius)
	}
}
