// Package weather runs the rain hazard: a time-boxed state that soaks the
// sign, sours reactions, thins the crowd and bleeds confidence.
package weather

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/holdup/internal/entropy"
	"github.com/talgya/holdup/internal/numeric"
)

// State is the sky over the intersection.
type State uint8

const (
	Clear State = iota
	Rain
)

func (s State) String() string {
	switch s {
	case Clear:
		return "clear"
	case Rain:
		return "rain"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds rain tuning. Rates are per second.
type Config struct {
	RainSignDrainRate       float64 `json:"rain_sign_drain_rate"`
	MaxSignDegradation      float64 `json:"max_sign_degradation"`
	NegativeShift           float64 `json:"negative_shift"`
	NPCLeaveChancePerSecond float64 `json:"npc_leave_chance_per_second"`
	MinNPCCount             int     `json:"min_npc_count"`
	RainConfidenceDrainRate float64 `json:"rain_confidence_drain_rate"`
	IntensityFrequency      float64 `json:"intensity_frequency"` // Noise samples per second of rain
}

// DefaultConfig returns medium rain tuning.
func DefaultConfig() Config {
	return Config{
		RainSignDrainRate:       0.02,
		MaxSignDegradation:      0.6,
		NegativeShift:           0.5,
		NPCLeaveChancePerSecond: 0.08,
		MinNPCCount:             1,
		RainConfidenceDrainRate: 0.4,
		IntensityFrequency:      0.15,
	}
}

// Validate returns every problem found in the block.
func (c Config) Validate() []string {
	var problems []string
	if c.RainSignDrainRate < 0 || c.RainConfidenceDrainRate < 0 || c.NegativeShift < 0 {
		problems = append(problems, "weather: rates and shifts must not be negative")
	}
	if c.MaxSignDegradation < 0 || c.MaxSignDegradation > 1 {
		problems = append(problems, "weather: max_sign_degradation must be in [0,1]")
	}
	if c.NPCLeaveChancePerSecond < 0 || c.NPCLeaveChancePerSecond > 1 {
		problems = append(problems, "weather: npc_leave_chance_per_second must be in [0,1]")
	}
	if c.MinNPCCount < 0 {
		problems = append(problems, "weather: min_npc_count must not be negative")
	}
	if c.IntensityFrequency <= 0 {
		problems = append(problems, "weather: intensity_frequency must be positive")
	}
	return problems
}

// Tick reports what one Advance did to the rest of the session.
type Tick struct {
	ConfidenceDrain float64
	NPCsLeft        int
	Ended           bool
}

// System is the weather state for one session.
type System struct {
	cfg   Config
	rng   *entropy.Source
	noise opensimplex.Noise

	state     State
	inState   float64
	remaining float64
	leave     float64

	degradation float64
	degradeRate float64
	group       int
}

// New builds a clear-sky system. signDurability comes from the sign
// material and difficultyDurability from the profile; both divide the
// soak rate.
func New(cfg Config, rng *entropy.Source, groupSize int, signDurability, difficultyDurability float64) *System {
	return &System{
		cfg:         cfg,
		rng:         rng,
		noise:       opensimplex.NewNormalized(rng.Seed()),
		degradeRate: cfg.RainSignDrainRate / signDurability / difficultyDurability,
		group:       max(groupSize, cfg.MinNPCCount),
	}
}

// Start begins rain for duration seconds. It does nothing while it
// already rains.
func (s *System) Start(duration float64) bool {
	if s.state == Rain || duration <= 0 {
		return false
	}
	s.state = Rain
	s.inState = 0
	s.remaining = duration
	s.leave = 0
	return true
}

// Advance applies one tick of rain. While paused the duration timer holds
// but the effects keep running.
func (s *System) Advance(dt float64, paused bool) Tick {
	var t Tick
	s.inState += dt
	if s.state != Rain {
		return t
	}

	s.degradation = numeric.Clamp(s.degradation+s.degradeRate*dt, 0, s.cfg.MaxSignDegradation)
	t.ConfidenceDrain = s.cfg.RainConfidenceDrainRate * dt

	s.leave += dt
	for s.leave >= 1 {
		s.leave--
		if s.group > s.cfg.MinNPCCount && s.rng.Chance(s.cfg.NPCLeaveChancePerSecond) {
			s.group--
			t.NPCsLeft++
		}
	}

	if !paused {
		s.remaining -= dt
		if s.remaining <= 0 {
			s.state = Clear
			s.inState = 0
			s.remaining = 0
			t.Ended = true
		}
	}
	return t
}

// Active reports whether it is raining.
func (s *System) Active() bool { return s.state == Rain }

// State returns the current sky.
func (s *System) State() State { return s.state }

// ElapsedInState returns seconds since the last state change.
func (s *System) ElapsedInState() float64 { return s.inState }

// Remaining returns seconds of rain left.
func (s *System) Remaining() float64 { return s.remaining }

// Degradation returns sign damage in [0, MaxSignDegradation]. It does not
// recover once the rain stops.
func (s *System) Degradation() float64 { return s.degradation }

// GroupSize returns the onlooker count.
func (s *System) GroupSize() int { return s.group }

// NegativeShift returns the amount added to the negative sentiment
// multiplier.
func (s *System) NegativeShift() float64 {
	if s.state == Rain {
		return s.cfg.NegativeShift
	}
	return 0
}

// Intensity returns a display-only rain strength in [0,1]. It is 0 when
// clear and never feeds back into the simulation.
func (s *System) Intensity() float64 {
	if s.state != Rain {
		return 0
	}
	return s.noise.Eval2(s.inState*s.cfg.IntensityFrequency, 0)
}
