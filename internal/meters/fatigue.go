package meters

import (
	"fmt"

	"github.com/talgya/holdup/internal/numeric"
)

// Arm selects which arm holds the sign.
type Arm uint8

const (
	ArmLeft Arm = iota
	ArmRight
)

func (a Arm) String() string {
	if a == ArmLeft {
		return "left"
	}
	return "right"
}

// MarshalText encodes the arm by name.
func (a Arm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Other returns the opposite arm.
func (a Arm) Other() Arm {
	if a == ArmLeft {
		return ArmRight
	}
	return ArmLeft
}

// RaiseMode describes the raise gesture.
type RaiseMode uint8

const (
	RaiseNone RaiseMode = iota
	RaiseHold           // Button down
	RaiseTap            // Released early, auto-lowers after the tap duration
)

func (m RaiseMode) String() string {
	switch m {
	case RaiseHold:
		return "hold"
	case RaiseTap:
		return "tap"
	}
	return "none"
}

// MarshalText encodes the mode by name.
func (m RaiseMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// FatigueConfig is the fatigue tuning block. Rates are per second.
type FatigueConfig struct {
	BaseDrainRate       float64 `json:"base_drain_rate"`
	RaiseDrainRate      float64 `json:"raise_drain_rate"`
	RestRecoveryRate    float64 `json:"rest_recovery_rate"`
	IdleRecoveryRate    float64 `json:"idle_recovery_rate"` // Inactive arm
	SwitchRestoreAmount float64 `json:"switch_restore_amount"`
	SwitchCooldown      float64 `json:"switch_cooldown"`
	RaiseTapThreshold   float64 `json:"raise_tap_threshold"` // Releases shorter than this are taps
	RaiseTapDuration    float64 `json:"raise_tap_duration"`  // Total raise time for a tap
}

// DefaultFatigueConfig returns the medium tuning.
func DefaultFatigueConfig() FatigueConfig {
	return FatigueConfig{
		BaseDrainRate:       1.2,
		RaiseDrainRate:      2.5,
		RestRecoveryRate:    4,
		IdleRecoveryRate:    0.8,
		SwitchRestoreAmount: 15,
		SwitchCooldown:      4,
		RaiseTapThreshold:   0.25,
		RaiseTapDuration:    1.2,
	}
}

// Validate returns every problem found in the block.
func (c FatigueConfig) Validate() []string {
	var problems []string
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"base_drain_rate", c.BaseDrainRate},
		{"raise_drain_rate", c.RaiseDrainRate},
		{"rest_recovery_rate", c.RestRecoveryRate},
		{"idle_recovery_rate", c.IdleRecoveryRate},
		{"switch_restore_amount", c.SwitchRestoreAmount},
		{"switch_cooldown", c.SwitchCooldown},
		{"raise_tap_threshold", c.RaiseTapThreshold},
	} {
		if !numeric.Finite(f.v) || f.v < 0 {
			problems = append(problems, fmt.Sprintf("fatigue: %s must not be negative", f.name))
		}
	}
	if c.RaiseTapDuration < c.RaiseTapThreshold {
		problems = append(problems, "fatigue: raise_tap_duration must be >= raise_tap_threshold")
	}
	return problems
}

// Fatigue tracks exertion for both arms. Only the active arm drains.
type Fatigue struct {
	cfg       FatigueConfig
	drainRate float64 // Base rate with material and difficulty applied

	levels    [2]float64
	active    Arm
	resting   bool
	raise     RaiseMode
	raisedFor float64 // Seconds since the raise started
	cooldown  float64 // Seconds until Switch Arms is available again
}

// NewFatigue creates a fresh meter. material and difficulty multiply the
// base drain rate.
func NewFatigue(cfg FatigueConfig, material, difficulty float64) *Fatigue {
	return &Fatigue{
		cfg:       cfg,
		drainRate: cfg.BaseDrainRate * material * difficulty,
		active:    ArmRight,
	}
}

// Level returns one arm's fatigue.
func (f *Fatigue) Level(a Arm) float64 { return f.levels[a] }

// Active returns the active arm's fatigue, which drives the cone width.
func (f *Fatigue) Active() float64 { return f.levels[f.active] }

// ActiveArm returns the arm holding the sign.
func (f *Fatigue) ActiveArm() Arm { return f.active }

// Resting reports whether the player is resting.
func (f *Fatigue) Resting() bool { return f.resting }

// Raised reports whether the sign is up, held or tapped.
func (f *Fatigue) Raised() bool { return f.raise != RaiseNone }

// Raise returns the current raise mode.
func (f *Fatigue) Raise() RaiseMode { return f.raise }

// Cooldown returns the seconds left before arms can be switched.
func (f *Fatigue) Cooldown() float64 { return f.cooldown }

// SwitchArms moves the sign to the other arm and restores some of that arm's
// fatigue. Does nothing while on cooldown. Lowers a raised sign.
func (f *Fatigue) SwitchArms() bool {
	if f.cooldown > 0 {
		return false
	}
	f.active = f.active.Other()
	f.levels[f.active] = numeric.Clamp(f.levels[f.active]-f.cfg.SwitchRestoreAmount, 0, MaxLevel)
	f.cooldown = f.cfg.SwitchCooldown
	f.lower()
	return true
}

// ToggleRest flips resting. Resting lowers a raised sign.
func (f *Fatigue) ToggleRest() bool {
	f.resting = !f.resting
	if f.resting {
		f.lower()
	}
	return f.resting
}

// StartRaise begins a raise. Ignored while resting or with an exhausted arm.
func (f *Fatigue) StartRaise() bool {
	if f.resting || f.Active() >= MaxLevel || f.raise == RaiseHold {
		return false
	}
	f.raise = RaiseHold
	f.raisedFor = 0
	return true
}

// EndRaise releases the raise button. A short press becomes a tap that
// stays up until the tap duration has passed; a long press lowers now.
func (f *Fatigue) EndRaise() {
	if f.raise != RaiseHold {
		return
	}
	if f.raisedFor < f.cfg.RaiseTapThreshold {
		f.raise = RaiseTap
		return
	}
	f.lower()
}

func (f *Fatigue) lower() {
	f.raise = RaiseNone
	f.raisedFor = 0
}

// Advance applies drain and recovery for dt seconds.
func (f *Fatigue) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	f.cooldown = numeric.Clamp(f.cooldown-dt, 0, f.cfg.SwitchCooldown)

	if f.raise != RaiseNone {
		f.raisedFor += dt
		if f.raise == RaiseTap && f.raisedFor >= f.cfg.RaiseTapDuration {
			f.lower()
		}
	}

	a := f.active
	if f.resting {
		f.levels[a] -= f.cfg.RestRecoveryRate * dt
	} else {
		rate := f.drainRate
		if f.raise != RaiseNone {
			rate += f.cfg.RaiseDrainRate
		}
		f.levels[a] += rate * dt
	}
	f.levels[a] = numeric.Clamp(f.levels[a], 0, MaxLevel)

	o := a.Other()
	f.levels[o] = numeric.Clamp(f.levels[o]-f.cfg.IdleRecoveryRate*dt, 0, MaxLevel)

	if f.levels[a] >= MaxLevel && f.raise != RaiseNone {
		f.lower()
	}
}
