// Package reaction holds the reaction catalog and the engine that draws one
// outcome per car from a freshly renormalized distribution.
package reaction

import (
	"fmt"

	"github.com/talgya/holdup/internal/entropy"
	"github.com/talgya/holdup/internal/numeric"
)

// Sentiment classifies how a driver felt about the sign.
type Sentiment uint8

const (
	Positive Sentiment = iota
	Neutral
	Negative
)

var sentimentNames = [...]string{"positive", "neutral", "negative"}

func (s Sentiment) String() string {
	if int(s) < len(sentimentNames) {
		return sentimentNames[s]
	}
	return fmt.Sprintf("sentiment(%d)", uint8(s))
}

// MarshalText encodes the sentiment by name.
func (s Sentiment) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a sentiment name.
func (s *Sentiment) UnmarshalText(b []byte) error {
	for i, name := range sentimentNames {
		if name == string(b) {
			*s = Sentiment(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sentiment %q", string(b))
}

// Outcome is one catalog entry. Never mutated after load.
type Outcome struct {
	ID        string    `json:"id"`
	Sentiment Sentiment `json:"sentiment"`
	Score     int       `json:"score"`  // Base score value
	Weight    float64   `json:"weight"` // Base draw weight
}

// Config is the reaction tuning block.
type Config struct {
	Outcomes []Outcome `json:"outcomes"`

	// QualityShift is the relative change in positive weight per unit of
	// sign quality away from 0.5. 0.6 gives +30% at quality 1.0.
	QualityShift float64 `json:"quality_shift"`

	RaisePositiveMultiplier float64 `json:"raise_positive_multiplier"`
	DeflectScore            int     `json:"deflect_score"`
	DeflectConfidence       float64 `json:"deflect_confidence"`
}

// DefaultConfig returns the medium-tuned catalog: 60/25/15 positive,
// neutral, negative by base weight.
func DefaultConfig() Config {
	return Config{
		Outcomes: []Outcome{
			{ID: "honk", Sentiment: Positive, Score: 10, Weight: 20},
			{ID: "wave", Sentiment: Positive, Score: 8, Weight: 15},
			{ID: "thumbs_up", Sentiment: Positive, Score: 12, Weight: 15},
			{ID: "cheer", Sentiment: Positive, Score: 15, Weight: 10},
			{ID: "ignore", Sentiment: Neutral, Score: 0, Weight: 15},
			{ID: "glance", Sentiment: Neutral, Score: 2, Weight: 10},
			{ID: "thumbs_down", Sentiment: Negative, Score: -5, Weight: 8},
			{ID: "yell", Sentiment: Negative, Score: -10, Weight: 5},
			{ID: "splash", Sentiment: Negative, Score: -8, Weight: 2},
		},
		QualityShift:            0.6,
		RaisePositiveMultiplier: 1.5,
		DeflectScore:            2,
		DeflectConfidence:       3,
	}
}

// Validate returns every problem found in the reaction block.
func (c Config) Validate() []string {
	var problems []string
	if len(c.Outcomes) == 0 {
		problems = append(problems, "reactions: catalog is empty")
	}
	seen := make(map[string]bool, len(c.Outcomes))
	weights := make([]float64, 0, len(c.Outcomes))
	for i, o := range c.Outcomes {
		if o.ID == "" {
			problems = append(problems, fmt.Sprintf("reactions: outcome %d has no id", i))
		} else if seen[o.ID] {
			problems = append(problems, fmt.Sprintf("reactions: duplicate outcome id %q", o.ID))
		}
		seen[o.ID] = true
		if o.Sentiment > Negative {
			problems = append(problems, fmt.Sprintf("reactions: outcome %q has invalid sentiment", o.ID))
		}
		weights = append(weights, o.Weight)
	}
	if len(weights) > 0 {
		if _, err := entropy.Normalize(weights); err != nil {
			problems = append(problems, fmt.Sprintf("reactions: %v", err))
		}
	}
	if !numeric.Finite(c.QualityShift) || c.QualityShift < 0 || c.QualityShift >= 2 {
		problems = append(problems, "reactions: quality_shift must be in [0, 2)")
	}
	if !numeric.Finite(c.RaisePositiveMultiplier) || c.RaisePositiveMultiplier <= 0 {
		problems = append(problems, "reactions: raise_positive_multiplier must be positive")
	}
	if c.DeflectScore < 0 || c.DeflectConfidence < 0 {
		problems = append(problems, "reactions: deflect values must not be negative")
	}
	return problems
}

// Find returns the outcome with the given id.
func (c Config) Find(id string) (Outcome, bool) {
	for _, o := range c.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}
