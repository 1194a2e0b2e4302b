// Package traffic runs the intersection: a fixed, repeating light cycle and a
// pooled population of cars that spawn, queue at red lights and leave.
//
// Geometry: the intersection is centered on the origin. Roads run along the
// x and y axes and cars drive on the right. A car's position is derived from
// its progress along a straight path from its spawn point, so all motion is
// linear interpolation.
package traffic

import (
	"fmt"

	"github.com/talgya/holdup/internal/numeric"
)

// Config is the traffic tuning block.
type Config struct {
	Phases []Phase `json:"phases"`

	LanesPerDirection int     `json:"lanes_per_direction"`
	LaneWidth         float64 `json:"lane_width"`
	SpawnDistance     float64 `json:"spawn_distance"`    // Spawn point distance from center
	StopLineOffset    float64 `json:"stop_line_offset"`  // Stop line distance from center
	StoppingDistance  float64 `json:"stopping_distance"` // Braking starts this far from a stop point
	MinGap            float64 `json:"min_gap"`           // Bumper-to-bumper gap in a queue

	BaseSpeed    float64 `json:"base_speed"`   // Units per second
	SpeedJitter  float64 `json:"speed_jitter"` // ± fraction of base speed
	Acceleration float64 `json:"acceleration"` // Units per second², used when resuming

	SpawnIntervalMin float64 `json:"spawn_interval_min"`
	SpawnIntervalMax float64 `json:"spawn_interval_max"`
	ResumeDelayMax   float64 `json:"resume_delay_max"`

	PoolCapacity int `json:"pool_capacity"`
}

// DefaultConfig returns a two-phase cycle with yellows and all-red clearances.
func DefaultConfig() Config {
	return Config{
		Phases: []Phase{
			{Name: "ns_green", Color: Green, Green: []Direction{North, South}, Duration: 12},
			{Name: "ns_yellow", Color: Yellow, Duration: 3},
			{Name: "all_red_1", Color: Red, Duration: 1.5},
			{Name: "ew_green", Color: Green, Green: []Direction{East, West}, Duration: 12},
			{Name: "ew_yellow", Color: Yellow, Duration: 3},
			{Name: "all_red_2", Color: Red, Duration: 1.5},
		},
		LanesPerDirection: 2,
		LaneWidth:         3.5,
		SpawnDistance:     80,
		StopLineOffset:    9,
		StoppingDistance:  18,
		MinGap:            6,
		BaseSpeed:         14,
		SpeedJitter:       0.1,
		Acceleration:      9,
		SpawnIntervalMin:  1.5,
		SpawnIntervalMax:  4.0,
		ResumeDelayMax:    0.6,
		PoolCapacity:      48,
	}
}

// Validate returns every problem found in the traffic block.
func (c Config) Validate() []string {
	var problems []string
	if len(c.Phases) == 0 {
		problems = append(problems, "traffic: at least one light phase is required")
	}
	for i, p := range c.Phases {
		if !numeric.Finite(p.Duration) || p.Duration <= 0 {
			problems = append(problems, fmt.Sprintf("traffic: phase %d (%s) duration must be positive", i, p.Name))
		}
		for _, d := range p.Green {
			if d > West {
				problems = append(problems, fmt.Sprintf("traffic: phase %d (%s) has invalid direction", i, p.Name))
			}
		}
	}
	if c.LanesPerDirection <= 0 {
		problems = append(problems, "traffic: lanes_per_direction must be positive")
	}
	if c.PoolCapacity <= 0 {
		problems = append(problems, "traffic: pool_capacity must be positive")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"lane_width", c.LaneWidth},
		{"spawn_distance", c.SpawnDistance},
		{"stopping_distance", c.StoppingDistance},
		{"min_gap", c.MinGap},
		{"base_speed", c.BaseSpeed},
		{"acceleration", c.Acceleration},
		{"spawn_interval_min", c.SpawnIntervalMin},
	} {
		if !numeric.Finite(f.v) || f.v <= 0 {
			problems = append(problems, fmt.Sprintf("traffic: %s must be positive", f.name))
		}
	}
	if c.SpawnIntervalMax < c.SpawnIntervalMin {
		problems = append(problems, "traffic: spawn_interval_max must be >= spawn_interval_min")
	}
	if c.StopLineOffset < 0 || c.StopLineOffset >= c.SpawnDistance {
		problems = append(problems, "traffic: stop_line_offset must be in [0, spawn_distance)")
	}
	if c.SpeedJitter < 0 || c.SpeedJitter >= 1 {
		problems = append(problems, "traffic: speed_jitter must be in [0, 1)")
	}
	if c.ResumeDelayMax < 0 {
		problems = append(problems, "traffic: resume_delay_max must not be negative")
	}
	return problems
}
