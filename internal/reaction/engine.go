package reaction

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/entropy"
	"github.com/talgya/holdup/internal/numeric"
)

// ErrAlreadyReacted is returned when a subject already carries a reaction.
var ErrAlreadyReacted = errors.New("subject already reacted")

// Subject is anything that can receive at most one reaction, e.g. a car.
type Subject interface {
	Reacted() bool
	MarkReacted(outcomeID string)
}

// Context carries the mid-session inputs that move the distribution.
type Context struct {
	Profile      difficulty.Profile
	Quality      float64 // Effective sign quality, 0–1
	WeatherShift float64 // Added to the negative multiplier while raining
}

// SentimentMultiplier returns the weight multiplier for one sentiment.
func SentimentMultiplier(s Sentiment, ctx Context, qualityShift float64) float64 {
	switch s {
	case Positive:
		q := numeric.Clamp(ctx.Quality, 0, 1)
		return ctx.Profile.Positive * (1 + (q-0.5)*qualityShift)
	case Neutral:
		return ctx.Profile.Neutral
	case Negative:
		return ctx.Profile.Negative + ctx.WeatherShift
	}
	return 0
}

// EffectiveWeights computes the normalized per-outcome weights for ctx.
// Weights are never cached: quality and weather move between rolls.
func EffectiveWeights(cfg Config, ctx Context) ([]float64, error) {
	raw := make([]float64, len(cfg.Outcomes))
	for i, o := range cfg.Outcomes {
		m := SentimentMultiplier(o.Sentiment, ctx, cfg.QualityShift)
		if m < 0 {
			m = 0
		}
		raw[i] = o.Weight * m
	}
	return entropy.Normalize(raw)
}

// Engine draws reactions for subjects entering the field of view.
type Engine struct {
	cfg Config
	rng *entropy.Source
}

// NewEngine creates a reaction engine over a validated config.
func NewEngine(cfg Config, rng *entropy.Source) *Engine {
	return &Engine{cfg: cfg, rng: rng}
}

// Config returns the engine's reaction config.
func (e *Engine) Config() Config {
	return e.cfg
}

// Roll draws exactly one outcome for sub and marks it so it cannot be rolled
// again.
func (e *Engine) Roll(sub Subject, ctx Context) (Outcome, error) {
	if sub.Reacted() {
		return Outcome{}, ErrAlreadyReacted
	}
	weights, err := EffectiveWeights(e.cfg, ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("roll reaction: %w", err)
	}
	o := e.cfg.Outcomes[entropy.PickIndex(weights, e.rng.Float())]
	sub.MarkReacted(o.ID)
	return o, nil
}

// Result is a scored outcome, ready for the score tally and confidence meter.
type Result struct {
	Outcome         Outcome
	ScoreDelta      int     // Added to the session score
	ConfidenceScore float64 // Passed to the confidence meter's ApplyReaction
	ConfidenceBonus float64 // Flat confidence added on top (deflects)
	Deflected       bool
}

// Score applies the raise modifiers to an outcome. A raised sign multiplies
// positive scores and turns negative outcomes into a small positive deflect.
// The score delta is rounded to whole points; the confidence score keeps the
// unrounded product.
func (c Config) Score(o Outcome, raised bool) Result {
	base := float64(o.Score)
	r := Result{Outcome: o, ScoreDelta: o.Score, ConfidenceScore: base}
	if !raised {
		return r
	}
	switch o.Sentiment {
	case Positive:
		boosted := base * c.RaisePositiveMultiplier
		r.ScoreDelta = int(math.Round(boosted))
		r.ConfidenceScore = boosted
	case Negative:
		r.ScoreDelta = c.DeflectScore
		r.ConfidenceScore = float64(c.DeflectScore)
		r.ConfidenceBonus = c.DeflectConfidence
		r.Deflected = true
	}
	return r
}
