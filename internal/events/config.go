// Package events schedules the mid-session interruptions: cop-check
// dialogues, the weather hazard, and the karma sequence. One master timer
// decides when something happens; each archetype then runs its own small
// state machine while traffic and scoring carry on.
package events

import (
	"fmt"

	"github.com/talgya/holdup/internal/entropy"
	"github.com/talgya/holdup/internal/numeric"
)

// Kind is an event archetype.
type Kind uint8

const (
	CopCheck Kind = iota
	Weather
	Karma
)

// Kinds lists every archetype in draw order.
var Kinds = [...]Kind{CopCheck, Weather, Karma}

var kindNames = [...]string{"cop_check", "weather", "karma"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", string(b))
}

// Option is one dialogue answer, or the auto-resolve penalty.
type Option struct {
	Label       string  `json:"label"`
	Reply       string  `json:"reply"`
	Confidence  float64 `json:"confidence"`
	Score       int     `json:"score"`
	TimePenalty float64 `json:"time_penalty"` // Seconds removed from the session
}

// Scenario is one cop-check variant.
type Scenario struct {
	ID      string   `json:"id"`
	Opening string   `json:"opening"`
	Options []Option `json:"options"`
	Timeout float64  `json:"timeout"` // Auto-resolve countdown
	Penalty Option   `json:"penalty"` // Applied when the countdown runs out
}

// KarmaPhase is one step of the karma sequence, applied on entry.
type KarmaPhase struct {
	Banner     string  `json:"banner"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
	Score      int     `json:"score"`
}

// Config is the event tuning block. Times are session seconds.
type Config struct {
	Enabled bool `json:"enabled"`

	FirstEventMinTime      float64          `json:"first_event_min_time"`
	FirstEventMaxTime      float64          `json:"first_event_max_time"`
	TriggerChancePerSecond float64          `json:"trigger_chance_per_second"`
	MaxEventsPerSession    int              `json:"max_events_per_session"`
	MinEventSpacing        float64          `json:"min_event_spacing"`
	Weights                map[Kind]float64 `json:"weights"`

	KarmaMinTime          float64 `json:"karma_min_time"`
	CopCheckMinConfidence float64 `json:"cop_check_min_confidence"`
	MaxCopChecks          int     `json:"max_cop_checks"`

	// GuaranteedCopCheckRemaining forces a cop-check when remaining time
	// falls to this value and none has happened. 0 disables.
	GuaranteedCopCheckRemaining float64 `json:"guaranteed_cop_check_remaining"`

	WeatherMinDuration float64 `json:"weather_min_duration"`
	WeatherMaxDuration float64 `json:"weather_max_duration"`

	Scenarios  []Scenario   `json:"scenarios"`
	Karma      []KarmaPhase `json:"karma"`
	KarmaBonus float64      `json:"karma_bonus"` // Confidence after the last phase
}

// DefaultConfig returns the medium tuning with the built-in scenarios.
func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		FirstEventMinTime:      30,
		FirstEventMaxTime:      75,
		TriggerChancePerSecond: 0.04,
		MaxEventsPerSession:    3,
		MinEventSpacing:        35,
		Weights: map[Kind]float64{
			CopCheck: 0.4,
			Weather:  0.35,
			Karma:    0.25,
		},
		KarmaMinTime:                60,
		CopCheckMinConfidence:       25,
		MaxCopChecks:                2,
		GuaranteedCopCheckRemaining: 45,
		WeatherMinDuration:          20,
		WeatherMaxDuration:          35,
		Scenarios:                   defaultScenarios(),
		Karma: []KarmaPhase{
			{Banner: "A minivan pulls over...", Duration: 3},
			{Banner: "They hand you a hot coffee!", Duration: 4, Confidence: 5, Score: 10},
			{Banner: "The whole block starts cheering", Duration: 3, Confidence: 5, Score: 20},
		},
		KarmaBonus: 10,
	}
}

func defaultScenarios() []Scenario {
	return []Scenario{
		{
			ID:      "permit",
			Opening: "Do you have a permit for that sign?",
			Timeout: 10,
			Options: []Option{
				{Label: "Show your homemade permit", Reply: "...Fair enough. Carry on.", Confidence: 5, Score: 10},
				{Label: "Explain it's free speech", Reply: "Just keep off the road.", Confidence: 2, TimePenalty: 3},
				{Label: "Panic and apologize", Reply: "Relax. Move it along.", Confidence: -6, Score: -5, TimePenalty: 8},
			},
			Penalty: Option{Reply: "Not talking? Let's take a walk.", Confidence: -8, Score: -10, TimePenalty: 10},
		},
		{
			ID:      "sidewalk",
			Opening: "You're blocking the sidewalk.",
			Timeout: 8,
			Options: []Option{
				{Label: "Step aside politely", Reply: "Thank you.", Confidence: 4, Score: 5, TimePenalty: 2},
				{Label: "Point out the crowd is with you", Reply: "...Fine. Keep it civil.", Confidence: 6, TimePenalty: 5},
				{Label: "Argue", Reply: "Okay, that's enough.", Confidence: -8, Score: -10, TimePenalty: 10},
			},
			Penalty: Option{Reply: "I'll wait while you move.", Confidence: -6, Score: -5, TimePenalty: 8},
		},
		{
			ID:      "compliment",
			Opening: "Did you make that yourself?",
			Timeout: 8,
			Options: []Option{
				{Label: "Yes! Want one?", Reply: "Ha. Good work.", Confidence: 8, Score: 15},
				{Label: "Shrug", Reply: "Alright then.", TimePenalty: 2},
			},
			Penalty: Option{Reply: "Not much of a talker, huh.", Confidence: -3, TimePenalty: 4},
		},
	}
}

// Validate returns every problem found in the block.
func (c Config) Validate() []string {
	var problems []string
	if c.FirstEventMinTime < 0 || c.FirstEventMaxTime < c.FirstEventMinTime {
		problems = append(problems, "events: need 0 <= first_event_min_time <= first_event_max_time")
	}
	if !numeric.Finite(c.TriggerChancePerSecond) || c.TriggerChancePerSecond < 0 {
		problems = append(problems, "events: trigger_chance_per_second must not be negative")
	}
	if c.MaxEventsPerSession < 0 || c.MaxCopChecks < 0 {
		problems = append(problems, "events: caps must not be negative")
	}
	if c.MinEventSpacing < 0 {
		problems = append(problems, "events: min_event_spacing must not be negative")
	}
	if c.WeatherMinDuration <= 0 || c.WeatherMaxDuration < c.WeatherMinDuration {
		problems = append(problems, "events: need 0 < weather_min_duration <= weather_max_duration")
	}
	weights := make([]float64, len(Kinds))
	for k := range c.Weights {
		if int(k) >= len(Kinds) {
			problems = append(problems, fmt.Sprintf("events: unknown weight kind %d", k))
		}
	}
	for i, k := range Kinds {
		weights[i] = c.Weights[k]
	}
	if _, err := entropy.Normalize(weights); err != nil {
		problems = append(problems, fmt.Sprintf("events: type weights: %v", err))
	}
	for _, s := range c.Scenarios {
		if n := len(s.Options); n < 2 || n > 3 {
			problems = append(problems, fmt.Sprintf("events: scenario %q needs 2-3 options, has %d", s.ID, n))
		}
		if s.Timeout <= 0 {
			problems = append(problems, fmt.Sprintf("events: scenario %q timeout must be positive", s.ID))
		}
		for _, o := range append([]Option{s.Penalty}, s.Options...) {
			if o.TimePenalty < 0 {
				problems = append(problems, fmt.Sprintf("events: scenario %q has a negative time penalty", s.ID))
				break
			}
		}
	}
	for i, p := range c.Karma {
		if p.Duration <= 0 {
			problems = append(problems, fmt.Sprintf("events: karma phase %d duration must be positive", i))
		}
	}
	if c.Weights[CopCheck] > 0 && len(c.Scenarios) == 0 {
		problems = append(problems, "events: cop_check has weight but no scenarios")
	}
	if c.Weights[Karma] > 0 && len(c.Karma) == 0 {
		problems = append(problems, "events: karma has weight but no phases")
	}
	if c.GuaranteedCopCheckRemaining > 0 {
		if len(c.Scenarios) == 0 {
			problems = append(problems, "events: guaranteed cop-check needs scenarios")
		}
		if c.MaxEventsPerSession < 1 || c.MaxCopChecks < 1 {
			problems = append(problems, "events: guaranteed cop-check needs room under the caps")
		}
	}
	return problems
}
