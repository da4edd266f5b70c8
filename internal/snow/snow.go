// Package snow implements the falling-snow particle simulation. It is not
// safe for concurrent use; the daemon drives it from its event loop.
package snow

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/1broseidon/flurry/internal/config"
)

const (
	// Step is the fixed simulation step. It matches the tick interval and is
	// applied regardless of the measured time between ticks.
	Step = 0.02

	// TickInterval is the nominal interval of the tick source.
	TickInterval = 20 * time.Millisecond

	// MaxExtraPerBatch is the upper bound of the random batch size bonus.
	MaxExtraPerBatch = 5
)

// Spawn sampling ranges.
const (
	spawnMinY, spawnMaxY         = -30.0, -20.0
	dirStartDeg, dirEndDeg       = 160.0, 20.0
	speedJitter                  = 60.0
	windMin, windMax             = -30.0, 30.0
	gravityMin, gravityMax       = 50.0, 120.0
	lifeMin, lifeMax             = 20.0, 30.0
	alphaMin, alphaMax           = 0.5, 0.9
	scaleMin, scaleMax           = 0.05, 0.1
	spinPeriodMin, spinPeriodMax = 2.5, 3.0
)

// Flake is a single snow particle.
type Flake struct {
	X, Y   float64
	VX, VY float64

	// Angle is in degrees, kept in [0, 360).
	Angle float64
	// AngularSpeed is in degrees per tick.
	AngularSpeed float64

	Life    float64 // seconds
	Born    time.Time
	Alpha   float64
	Gravity float64
	Scale   float64
}

// Age returns the flake's age at now in seconds.
func (f Flake) Age(now time.Time) float64 {
	return now.Sub(f.Born).Seconds()
}

// Alive reports whether the flake is still within its lifetime at now.
func (f Flake) Alive(now time.Time) bool {
	return f.Age(now) < f.Life
}

// Simulation owns the active flake set.
type Simulation struct {
	flakes  []Flake
	pending bool
	minY    float64

	rng *rand.Rand
	now func() time.Time
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRand sets the random source, mainly for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulation) { s.rng = r }
}

// WithClock sets the clock used to stamp flake birth times.
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) { s.now = now }
}

// New creates an empty simulation.
func New(opts ...Option) *Simulation {
	s := &Simulation{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SpawnBatch appends density + [0,5] flakes spread across width and returns
// the number added. cfg is read once, so a later config change only affects
// later batches.
func (s *Simulation) SpawnBatch(width int, cfg config.Snapshot) int {
	if width < 1 {
		width = 1
	}
	density := cfg.Density
	if density < 0 {
		density = 0
	}
	n := density + s.rng.IntN(MaxExtraPerBatch+1)
	born := s.now()

	for i := 0; i < n; i++ {
		s.flakes = append(s.flakes, s.newFlake(width, cfg, born))
	}
	return n
}

func (s *Simulation) newFlake(width int, cfg config.Snapshot, born time.Time) Flake {
	r := s.rng

	// The bounds are interpolated in the order given, not sorted.
	dir := dirStartDeg + r.Float64()*(dirEndDeg-dirStartDeg)
	rad := dir * math.Pi / 180

	speed := cfg.Speed + r.Float64()*speedJitter
	wind := uniform(r, windMin, windMax)

	spin := 360 * Step / uniform(r, spinPeriodMin, spinPeriodMax)
	if r.IntN(2) == 0 {
		spin = -spin
	}

	return Flake{
		X:            r.Float64() * float64(width),
		Y:            uniform(r, spawnMinY, spawnMaxY),
		VX:           math.Cos(rad)*speed + wind,
		VY:           math.Sin(rad) * speed,
		Angle:        r.Float64() * 360,
		AngularSpeed: spin,
		Life:         uniform(r, lifeMin, lifeMax),
		Born:         born,
		Alpha:        uniform(r, alphaMin, alphaMax),
		Gravity:      uniform(r, gravityMin, gravityMax),
		Scale:        uniform(r, scaleMin, scaleMax) * cfg.Size,
	}
}

// Tick advances every flake by one fixed Step, drops flakes whose age has
// reached their lifetime and reports whether a new batch should be spawned.
//
// A spawn is requested when the set is empty, or when every flake has crossed
// the top edge (min y > 0), and no spawn is already pending. The caller must
// eventually call CompleteSpawn once per request.
func (s *Simulation) Tick(now time.Time) bool {
	live := s.flakes[:0]
	minY := math.Inf(1)
	for _, f := range s.flakes {
		if !f.Alive(now) {
			continue
		}
		f.VY += f.Gravity * Step
		f.X += f.VX * Step
		f.Y += f.VY * Step
		f.Angle = normalizeDegrees(f.Angle + f.AngularSpeed)
		if f.Y < minY {
			minY = f.Y
		}
		live = append(live, f)
	}
	clear(s.flakes[len(live):])
	s.flakes = live
	s.minY = minY

	if s.pending {
		return false
	}
	if len(s.flakes) == 0 || minY > 0 {
		s.pending = true
		return true
	}
	return false
}

// CompleteSpawn runs a spawn requested by Tick and clears the pending flag.
func (s *Simulation) CompleteSpawn(width int, cfg config.Snapshot) int {
	n := s.SpawnBatch(width, cfg)
	s.pending = false
	return n
}

// Pending reports whether a requested spawn has not run yet.
func (s *Simulation) Pending() bool {
	return s.pending
}

// Flakes returns the active set in insertion order. The slice is owned by the
// simulation and must not be modified.
func (s *Simulation) Flakes() []Flake {
	return s.flakes
}

// Len returns the number of active flakes.
func (s *Simulation) Len() int {
	return len(s.flakes)
}

// MinY returns the smallest y seen on the last tick, or +Inf when the set was
// empty.
func (s *Simulation) MinY() float64 {
	return s.minY
}

// Reset drops all flakes and any pending spawn.
func (s *Simulation) Reset() {
	clear(s.flakes)
	s.flakes = s.flakes[:0]
	s.pending = false
	s.minY = 0
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}
