package dla

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"dla-grow/internal/core"
)

// StepResult tells the driver whether to keep calling Step.
type StepResult uint8

const (
	Continue StepResult = iota
	Complete
)

func (r StepResult) String() string {
	if r == Complete {
		return "complete"
	}
	return "continue"
}

// Snapshot is a read-only copy of the simulation state.
type Snapshot struct {
	Stuck           []Vec2  `json:"stuck"`
	Walking         []Vec2  `json:"walking"`
	EnclosingRadius float64 `json:"enclosing_radius"`
	Iteration       int     `json:"iteration"`
	ForcedFreezes   int     `json:"forced_freezes"`
}

// Option customises a Simulation at construction.
type Option func(*Simulation)

// WithLogger routes simulation events to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// spawnAttempts bounds the rejection sampling of a fresh walker position.
const spawnAttempts = 32

// Simulation grows one aggregate. It owns all of its state and is not safe
// for concurrent use.
type Simulation struct {
	cfg Config
	log logrus.FieldLogger
	rng *core.RNG

	stuck     *StuckSet
	walkers   *WalkingSet
	tree      *Tree
	ring      *Ring
	resolver  *Resolver
	estimator *Estimator

	target    int
	iteration int
	forced    int
	done      bool
}

// New builds a simulation from the core parameters, deriving the tree
// resolution from the particle radius.
func New(domainSize, radius float64, count int, seed Vec2, strength, momentum float64) (*Simulation, error) {
	cfg := DefaultConfig()
	cfg.DomainSize = domainSize
	cfg.Radius = radius
	cfg.MaxParticles = count
	cfg.Walkers = count
	cfg.SeedPosition = seed
	cfg.StepStrength = strength
	cfg.StepMomentum = momentum
	FitResolution(&cfg)
	return NewWithConfig(cfg)
}

// FitResolution picks collision leaves at least two diameters wide and box
// leaves between half a radius and one radius wide.
func FitResolution(cfg *Config) {
	if !(cfg.DomainSize > 0) || !(cfg.Radius > 0) {
		return
	}
	cd := 1
	for cd < maxDepth-1 && math.Ldexp(cfg.DomainSize, -(cd+1)) >= 4*cfg.Radius {
		cd++
	}
	bd := cd + 1
	for bd < maxDepth && math.Ldexp(cfg.DomainSize, -(bd+1)) >= cfg.Radius/2 {
		bd++
	}
	cfg.CollisionLeafSide = math.Ldexp(cfg.DomainSize, -cd)
	cfg.BoxLeafSide = math.Ldexp(cfg.DomainSize, -bd)
}

// NewWithConfig returns a simulation seeded with one stuck particle at
// cfg.SeedPosition and its walking population placed uniformly at random.
func NewWithConfig(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	discard := logrus.New()
	discard.Out = io.Discard

	size := cfg.DomainSize
	cd, bd := cfg.CollisionDepth(), cfg.BoxDepth()
	s := &Simulation{
		cfg:       cfg,
		log:       discard,
		rng:       core.NewRNG(cfg.Seed),
		stuck:     newStuckSet(cfg.MaxParticles+1, Vec2{X: size / 2, Y: size / 2}),
		tree:      newTree(Vec2{}, size, cfg.Radius, treeOptions{collisionDepth: cd, boxDepth: bd}),
		ring:      newRing(size, cfg.Radius, cd),
		estimator: NewEstimator(bd),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = newResolver(s.tree, s.ring, s.stuck, cfg.Radius, size, cfg.Epsilon)

	if err := s.freeze(cfg.SeedPosition); err != nil {
		return nil, err
	}
	walkers := cfg.Walkers
	if walkers == 0 || walkers > cfg.MaxParticles {
		walkers = cfg.MaxParticles
	}
	s.target = walkers
	s.walkers = newWalkingSet(walkers)
	s.spawn(walkers)
	return s, nil
}

// Config returns the configuration the simulation was built with.
func (s *Simulation) Config() Config { return s.cfg }

// Stuck exposes the frozen particle set.
func (s *Simulation) Stuck() *StuckSet { return s.stuck }

// Walkers exposes the mobile particle set.
func (s *Simulation) Walkers() *WalkingSet { return s.walkers }

// Tree exposes the primary cell tree.
func (s *Simulation) Tree() *Tree { return s.tree }

// Ring exposes the boundary ring.
func (s *Simulation) Ring() *Ring { return s.ring }

// Resolver exposes the collision resolver over the current aggregate.
func (s *Simulation) Resolver() *Resolver { return s.resolver }

// Iteration returns the number of completed steps.
func (s *Simulation) Iteration() int { return s.iteration }

// Done reports whether Step has already signalled completion.
func (s *Simulation) Done() bool { return s.done }

// SetStepStrength changes the noise amplitude of subsequent steps.
func (s *Simulation) SetStepStrength(v float64) {
	if v >= 0 {
		s.cfg.StepStrength = v
	}
}

// SetStepMomentum changes the step persistence of subsequent steps.
func (s *Simulation) SetStepMomentum(v float64) {
	if v >= 0 && v <= 1 {
		s.cfg.StepMomentum = v
	}
}

// Step advances every walker once. It returns Complete exactly once, when
// the stuck set exceeds MaxParticles or no walker is left; calling it again
// afterwards returns ErrComplete.
func (s *Simulation) Step() (StepResult, error) {
	if s.done {
		return Complete, ErrComplete
	}
	if s.finished() {
		s.done = true
		return Complete, nil
	}

	w := s.walkers
	for i := range w.pos {
		if w.Frozen(i) {
			continue
		}
		noise := Vec2{X: s.rng.Normal(), Y: s.rng.Normal()}
		w.step[i] = w.step[i].Scale(s.cfg.StepMomentum).Add(noise.Scale(s.cfg.StepStrength))
	}

	if err := s.settle(); err != nil {
		return Continue, err
	}

	// Walker discs stay wholly inside the primary square.
	lo, hi := s.cfg.Radius, s.cfg.DomainSize-s.cfg.Radius
	for i := range w.pos {
		if w.Frozen(i) {
			continue
		}
		w.pos[i] = w.pos[i].Add(w.step[i])
		w.clip(i, lo, hi)
	}

	s.iteration++
	if (s.cfg.CompactEvery > 0 && s.iteration%s.cfg.CompactEvery == 0) || (w.Live() == 0 && s.cfg.Replenish) {
		s.regenerate()
	}
	if s.finished() {
		s.done = true
		return Complete, nil
	}
	return Continue, nil
}

func (s *Simulation) finished() bool {
	return s.stuck.Len() > s.cfg.MaxParticles || s.walkers.Live() == 0
}

// settle resolves pending steps until a full pass freezes nobody. Every pass
// but the last freezes at least one walker, so live+1 passes always suffice.
func (s *Simulation) settle() error {
	w := s.walkers
	passes := w.Live() + 1
	for pass := 0; pass < passes; pass++ {
		frozen := 0
		for i := range w.pos {
			if w.Frozen(i) {
				continue
			}
			at, hit := s.contact(i)
			if !hit {
				continue
			}
			if err := s.freeze(at); err != nil {
				return fmt.Errorf("freeze walker %d: %w", i, err)
			}
			w.freeze(i)
			frozen++
		}
		if frozen == 0 {
			return nil
		}
	}
	return nil
}

// contact resolves walker i's pending step and returns where it freezes.
// A walker that starts inside a stuck disc is pushed back along its step
// until it is tangent, at most PushOutRetries times.
func (s *Simulation) contact(i int) (Vec2, bool) {
	w := s.walkers
	p, v := w.pos[i], w.step[i]
	for try := 0; ; try++ {
		out := s.resolver.Resolve(p, v)
		switch out.Kind {
		case NoContact:
			w.pos[i] = p
			return Vec2{}, false
		case Contact:
			return p.Add(v.Scale(out.T)), true
		}
		if try >= s.cfg.PushOutRetries || out.T == 0 {
			s.forced++
			s.log.WithFields(logrus.Fields{
				"walker":  i,
				"target":  out.Target,
				"x":       p.X,
				"y":       p.Y,
				"retries": try,
			}).Warn("walker still overlaps the aggregate, forcing freeze")
			return p, true
		}
		p = p.Add(v.Scale(out.T))
	}
}

// freeze appends p to the stuck set and indexes it in the primary tree and,
// once the aggregate nears the border, in every ring slot it reaches.
func (s *Simulation) freeze(p Vec2) error {
	idx := s.stuck.Add(p)
	if err := s.tree.Insert(idx, p); err != nil {
		return err
	}
	r, size := s.cfg.Radius, s.cfg.DomainSize
	if s.stuck.EnclosingRadius()+r < size/2 {
		return nil
	}
	mask := Classify(p, r, size)
	if !mask.TouchesBoundary() {
		return nil
	}
	created, err := s.ring.Insert(idx, p, mask)
	if created != 0 {
		s.log.WithFields(logrus.Fields{
			"slots":     fmt.Sprintf("%08b", created),
			"stuck":     idx,
			"enclosing": s.stuck.EnclosingRadius(),
		}).Debug("boundary ring slots activated")
	}
	return err
}

func (s *Simulation) spawn(n int) {
	lo, hi := s.cfg.Radius, s.cfg.DomainSize-s.cfg.Radius
	for i := 0; i < n; i++ {
		var p Vec2
		for try := 0; try < spawnAttempts; try++ {
			p = Vec2{X: s.rng.Uniform(lo, hi), Y: s.rng.Uniform(lo, hi)}
			if !s.resolver.Overlaps(p) {
				break
			}
		}
		s.walkers.add(p, Vec2{})
	}
}

// regenerate compacts frozen slots away and, when replenishing, tops the
// walking population back up without exceeding the particle budget.
func (s *Simulation) regenerate() {
	dropped := s.walkers.Compact()
	spawned := 0
	if s.cfg.Replenish {
		room := s.cfg.MaxParticles + 1 - s.stuck.Len() - s.walkers.Live()
		need := s.target - s.walkers.Live()
		if need > room {
			need = room
		}
		if need > 0 {
			s.spawn(need)
			spawned = need
		}
	}
	s.log.WithFields(logrus.Fields{
		"iteration": s.iteration,
		"dropped":   dropped,
		"spawned":   spawned,
		"live":      s.walkers.Live(),
	}).Debug("walking set regenerated")
}

// Snapshot copies the particle positions and counters.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Stuck:           s.stuck.Positions(),
		Walking:         s.walkers.Positions(),
		EnclosingRadius: s.stuck.EnclosingRadius(),
		Iteration:       s.iteration,
		ForcedFreezes:   s.forced,
	}
}

// BoxCounts returns the occupied box count per tree depth.
func (s *Simulation) BoxCounts() BoxCounts {
	return s.estimator.Estimate(s.tree)
}

// Dimension returns the occupied box count per scale.
func (s *Simulation) Dimension() map[float64]int {
	return s.BoxCounts().Map()
}
