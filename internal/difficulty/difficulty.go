// Package difficulty holds the named multiplier bundles selected before a
// session starts, and the sign materials that scale fatigue and durability.
// Both are pure data; the systems that read them own the arithmetic.
package difficulty

import (
	"fmt"
	"sort"

	"github.com/talgya/holdup/internal/numeric"
)

// Profile is a named bundle of multipliers applied across every system.
// 1.0 everywhere is the tuning baseline (medium).
type Profile struct {
	Name string `json:"name"`

	TrafficSpeed   float64 `json:"traffic_speed"`   // Car cruise speed
	TrafficDensity float64 `json:"traffic_density"` // Spawn frequency

	Positive float64 `json:"positive"` // Reaction sentiment weights
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`

	Fatigue         float64 `json:"fatigue"`          // Arm drain rate
	EventFrequency  float64 `json:"event_frequency"`  // Per-second trigger chance
	Durability      float64 `json:"durability"`       // Higher = sign survives rain longer
	ConfidenceDrain float64 `json:"confidence_drain"` // Passive no-reaction drain
}

// Validate returns every problem found in the profile.
func (p Profile) Validate() []string {
	var problems []string
	if p.Name == "" {
		problems = append(problems, "difficulty profile name is required")
	}
	check := func(field string, v float64) {
		if !numeric.Finite(v) || v <= 0 {
			problems = append(problems, fmt.Sprintf("difficulty %q: %s must be positive", p.Name, field))
		}
	}
	check("traffic_speed", p.TrafficSpeed)
	check("traffic_density", p.TrafficDensity)
	check("positive", p.Positive)
	check("neutral", p.Neutral)
	check("negative", p.Negative)
	check("fatigue", p.Fatigue)
	check("event_frequency", p.EventFrequency)
	check("durability", p.Durability)
	check("confidence_drain", p.ConfidenceDrain)
	return problems
}

// Baseline profile names.
const (
	Easy   = "easy"
	Medium = "medium"
	Hard   = "hard"
)

// Profiles returns the built-in profiles keyed by name.
func Profiles() map[string]Profile {
	return map[string]Profile{
		Easy: {
			Name:            Easy,
			TrafficSpeed:    0.85,
			TrafficDensity:  1.2,
			Positive:        1.2,
			Neutral:         1.0,
			Negative:        0.7,
			Fatigue:         0.75,
			EventFrequency:  0.8,
			Durability:      1.5,
			ConfidenceDrain: 0.7,
		},
		Medium: {
			Name:            Medium,
			TrafficSpeed:    1.0,
			TrafficDensity:  1.0,
			Positive:        1.0,
			Neutral:         1.0,
			Negative:        1.0,
			Fatigue:         1.0,
			EventFrequency:  1.0,
			Durability:      1.0,
			ConfidenceDrain: 1.0,
		},
		Hard: {
			Name:            Hard,
			TrafficSpeed:    1.25,
			TrafficDensity:  0.85,
			Positive:        0.85,
			Neutral:         1.1,
			Negative:        1.4,
			Fatigue:         1.3,
			EventFrequency:  1.3,
			Durability:      0.75,
			ConfidenceDrain: 1.35,
		},
	}
}

// Names returns the sorted keys of a profile table.
func Names(profiles map[string]Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
