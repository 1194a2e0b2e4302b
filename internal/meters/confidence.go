// Package meters implements the two player resources: confidence, which ends
// the session when it runs out, and per-arm fatigue, which narrows the field
// of view.
package meters

import (
	"fmt"

	"github.com/talgya/holdup/internal/numeric"
)

// MaxLevel is the ceiling of both meters.
const MaxLevel = 100.0

// ConfidenceConfig is the confidence tuning block.
type ConfidenceConfig struct {
	Start               float64 `json:"start"`
	ReactionMultiplier  float64 `json:"reaction_multiplier"`
	NoDrainGracePeriod  float64 `json:"no_drain_grace_period"`  // Seconds after a reaction with no passive drain
	NoReactionDrainRate float64 `json:"no_reaction_drain_rate"` // Per second
	GroupSizeFloorBonus float64 `json:"group_size_floor_bonus"` // Floor per onlooker
}

// DefaultConfidenceConfig returns the medium tuning.
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		Start:               50,
		ReactionMultiplier:  0.8,
		NoDrainGracePeriod:  5,
		NoReactionDrainRate: 1.5,
		GroupSizeFloorBonus: 3,
	}
}

// Validate returns every problem found in the block.
func (c ConfidenceConfig) Validate() []string {
	var problems []string
	if c.Start <= 0 || c.Start > MaxLevel {
		problems = append(problems, fmt.Sprintf("confidence: start must be in (0, %v]", MaxLevel))
	}
	if c.ReactionMultiplier <= 0 {
		problems = append(problems, "confidence: reaction_multiplier must be positive")
	}
	if c.NoDrainGracePeriod < 0 || c.NoReactionDrainRate < 0 || c.GroupSizeFloorBonus < 0 {
		problems = append(problems, "confidence: grace period, drain rate and floor bonus must not be negative")
	}
	return problems
}

// Confidence is the session's emotional-energy meter. Passive drain never
// pushes it below the crowd floor; only active negative effects can. Reaching
// zero is terminal: the meter stays empty and ignores further changes.
type Confidence struct {
	cfg       ConfidenceConfig
	drainRate float64
	value     float64
	floor     float64
	lastHit   float64 // Session time of the last landed reaction
	depleted  bool
}

// NewConfidence creates a meter. drainMultiplier scales passive drain.
func NewConfidence(cfg ConfidenceConfig, drainMultiplier float64) *Confidence {
	return &Confidence{
		cfg:       cfg,
		drainRate: cfg.NoReactionDrainRate * drainMultiplier,
		value:     numeric.Clamp(cfg.Start, 0, MaxLevel),
	}
}

// Value returns the current level.
func (c *Confidence) Value() float64 { return c.value }

// Floor returns the passive-drain floor set by the last Tick or SetFloor.
func (c *Confidence) Floor() float64 { return c.floor }

// Depleted reports whether confidence has ever run out.
func (c *Confidence) Depleted() bool { return c.depleted }

// FloorFor returns the crowd floor for a group size.
func (c *Confidence) FloorFor(groupSize int) float64 {
	return numeric.Clamp(float64(groupSize)*c.cfg.GroupSizeFloorBonus, 0, MaxLevel)
}

// SetFloor updates the crowd floor from the current group size.
func (c *Confidence) SetFloor(groupSize int) {
	c.floor = c.FloorFor(groupSize)
}

// ApplyReaction adds score × reactionMultiplier and resets the grace timer.
// Returns the change actually applied.
func (c *Confidence) ApplyReaction(score, now float64) float64 {
	c.lastHit = now
	return c.Adjust(score * c.cfg.ReactionMultiplier)
}

// Adjust applies a signed delta clamped to [0, 100]. Negative deltas are
// active effects and may cross the floor.
func (c *Confidence) Adjust(delta float64) float64 {
	if c.depleted {
		return 0
	}
	before := c.value
	c.value = numeric.Clamp(c.value+delta, 0, MaxLevel)
	c.depleted = c.value <= 0
	return c.value - before
}

// Drain removes an active amount such as rain, ignoring the floor.
func (c *Confidence) Drain(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return -c.Adjust(-amount)
}

// Tick refreshes the floor and applies passive drain once the grace period
// since the last reaction has passed. Returns the amount drained.
func (c *Confidence) Tick(dt, now float64, groupSize int) float64 {
	c.SetFloor(groupSize)
	if c.depleted || dt <= 0 || now-c.lastHit < c.cfg.NoDrainGracePeriod {
		return 0
	}
	if c.value <= c.floor {
		return 0
	}
	next := c.value - c.drainRate*dt
	if next < c.floor {
		next = c.floor
	}
	drained := c.value - next
	c.value = next
	c.depleted = c.value <= 0
	return drained
}

// SinceReaction returns seconds since the last landed reaction.
func (c *Confidence) SinceReaction(now float64) float64 {
	return now - c.lastHit
}
