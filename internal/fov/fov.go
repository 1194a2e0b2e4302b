// Package fov decides which cars the player can see: an angular cone around
// the facing direction whose width shrinks as the holding arm tires.
package fov

import (
	"math"

	"github.com/talgya/holdup/internal/numeric"
	"github.com/talgya/holdup/internal/traffic"
)

// boundaryEpsilon keeps cars exactly on the cone edge inside it.
const boundaryEpsilon = 1e-9

// Config is the field-of-view tuning block. Angles are in degrees.
type Config struct {
	PlayerX float64 `json:"player_x"`
	PlayerY float64 `json:"player_y"`

	FreshWidth      float64 `json:"fresh_width"`      // Full cone width at low fatigue
	ExhaustedWidth  float64 `json:"exhausted_width"`  // Width at 100 fatigue and beyond
	ShrinkThreshold float64 `json:"shrink_threshold"` // Fatigue where shrinking starts
	RestFraction    float64 `json:"rest_fraction"`    // Width multiplier while resting
	Range           float64 `json:"range"`            // Max detection distance, 0 = unlimited
}

// DefaultConfig places the player on the south-west corner.
func DefaultConfig() Config {
	return Config{
		PlayerX:         -12,
		PlayerY:         -12,
		FreshWidth:      80,
		ExhaustedWidth:  35,
		ShrinkThreshold: 50,
		RestFraction:    0.5,
		Range:           75,
	}
}

// Validate returns every problem found in the block.
func (c Config) Validate() []string {
	var problems []string
	if c.FreshWidth <= 0 || c.FreshWidth > 360 {
		problems = append(problems, "fov: fresh_width must be in (0, 360]")
	}
	if c.ExhaustedWidth <= 0 || c.ExhaustedWidth > c.FreshWidth {
		problems = append(problems, "fov: exhausted_width must be in (0, fresh_width]")
	}
	if c.ShrinkThreshold < 0 || c.ShrinkThreshold >= 100 {
		problems = append(problems, "fov: shrink_threshold must be in [0, 100)")
	}
	if c.RestFraction <= 0 || c.RestFraction > 1 {
		problems = append(problems, "fov: rest_fraction must be in (0, 1]")
	}
	if c.Range < 0 {
		problems = append(problems, "fov: range must not be negative")
	}
	return problems
}

// Cone is the sector the player can currently see. Angles are radians.
type Cone struct {
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	Facing  float64 `json:"facing"`
	Width   float64 `json:"width"`
	Range   float64 `json:"range"`
}

// Contains tests whether a point lies inside the cone. The edge is inside.
func (c Cone) Contains(x, y float64) bool {
	dx, dy := x-c.OriginX, y-c.OriginY
	dist := math.Hypot(dx, dy)
	if c.Range > 0 && dist > c.Range {
		return false
	}
	if dist == 0 {
		return true
	}
	off := numeric.WrapAngle(math.Atan2(dy, dx) - c.Facing)
	return math.Abs(off) <= c.Width/2+boundaryEpsilon
}

// Detector builds cones from player state.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector over a validated config.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// ConeWidth returns the cone width in radians for a fatigue level.
// Below the shrink threshold the cone is fresh; above it the width falls
// linearly to the exhausted width at 100 and stays there.
func (d *Detector) ConeWidth(fatigue float64) float64 {
	deg := d.cfg.FreshWidth
	if fatigue > d.cfg.ShrinkThreshold {
		t := numeric.Clamp((fatigue-d.cfg.ShrinkThreshold)/(100-d.cfg.ShrinkThreshold), 0, 1)
		deg = numeric.Lerp(d.cfg.FreshWidth, d.cfg.ExhaustedWidth, t)
	}
	return deg * math.Pi / 180
}

// Cone returns the current cone. Resting narrows detection to a fraction
// of normal.
func (d *Detector) Cone(facing, fatigue float64, resting bool) Cone {
	width := d.ConeWidth(fatigue)
	if resting {
		width *= d.cfg.RestFraction
	}
	return Cone{
		OriginX: d.cfg.PlayerX,
		OriginY: d.cfg.PlayerY,
		Facing:  numeric.WrapAngle(facing),
		Width:   width,
		Range:   d.cfg.Range,
	}
}

// Visible reports whether a car is inside the cone.
func (d *Detector) Visible(cone Cone, car *traffic.Car) bool {
	return cone.Contains(car.X, car.Y)
}

// Bearing returns the angle from the player to a point.
func (d *Detector) Bearing(x, y float64) float64 {
	return math.Atan2(y-d.cfg.PlayerY, x-d.cfg.PlayerX)
}
