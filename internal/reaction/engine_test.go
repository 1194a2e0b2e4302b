package reaction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/entropy"
)

type fakeCar struct {
	reaction string
}

func (c *fakeCar) Reacted() bool                { return c.reaction != "" }
func (c *fakeCar) MarkReacted(outcomeID string) { c.reaction = outcomeID }

func mediumCtx(quality float64) Context {
	return Context{Profile: difficulty.Profiles()[difficulty.Medium], Quality: quality}
}

func TestDefaultConfigValid(t *testing.T) {
	assert.Empty(t, DefaultConfig().Validate())
}

func TestValidate_AllZeroWeights(t *testing.T) {
	cfg := DefaultConfig()
	for i := range cfg.Outcomes {
		cfg.Outcomes[i].Weight = 0
	}
	problems := cfg.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "cannot be normalized")
}

func TestValidate_DuplicateID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Outcomes[1].ID = cfg.Outcomes[0].ID
	assert.NotEmpty(t, cfg.Validate())
}

func TestEffectiveWeights_Normalized(t *testing.T) {
	cfg := DefaultConfig()
	for name, profile := range difficulty.Profiles() {
		for _, q := range []float64{0, 0.25, 0.5, 0.75, 1} {
			for _, shift := range []float64{0, 0.5} {
				ctx := Context{Profile: profile, Quality: q, WeatherShift: shift}
				w, err := EffectiveWeights(cfg, ctx)
				require.NoError(t, err)
				sum := 0.0
				for _, v := range w {
					assert.GreaterOrEqual(t, v, 0.0)
					sum += v
				}
				assert.InDelta(t, 1.0, sum, 1e-9, "%s q=%v shift=%v", name, q, shift)
			}
		}
	}
}

func TestSentimentMultiplier_Quality(t *testing.T) {
	shift := DefaultConfig().QualityShift
	assert.InDelta(t, 1.0, SentimentMultiplier(Positive, mediumCtx(0.5), shift), 1e-12)
	assert.InDelta(t, 1.3, SentimentMultiplier(Positive, mediumCtx(1.0), shift), 1e-12)
	assert.InDelta(t, 0.7, SentimentMultiplier(Positive, mediumCtx(0.0), shift), 1e-12)
	// Out-of-range quality is clamped.
	assert.InDelta(t, 1.3, SentimentMultiplier(Positive, mediumCtx(4), shift), 1e-12)
}

func TestSentimentMultiplier_RainRaisesNegative(t *testing.T) {
	ctx := mediumCtx(0.5)
	dry := SentimentMultiplier(Negative, ctx, 0.6)
	ctx.WeatherShift = 0.5
	wet := SentimentMultiplier(Negative, ctx, 0.6)
	assert.InDelta(t, dry+0.5, wet, 1e-12)
}

func TestRoll_MediumDistribution(t *testing.T) {
	eng := NewEngine(DefaultConfig(), entropy.New(2024))
	ctx := mediumCtx(0.5)

	counts := map[Sentiment]int{}
	const n = 10000
	for i := 0; i < n; i++ {
		o, err := eng.Roll(&fakeCar{}, ctx)
		require.NoError(t, err)
		counts[o.Sentiment]++
	}

	assert.InDelta(t, 0.60, float64(counts[Positive])/n, 0.03)
	assert.InDelta(t, 0.25, float64(counts[Neutral])/n, 0.03)
	assert.InDelta(t, 0.15, float64(counts[Negative])/n, 0.03)
}

func TestRoll_MarksSubjectOnce(t *testing.T) {
	eng := NewEngine(DefaultConfig(), entropy.New(1))
	car := &fakeCar{}

	o, err := eng.Roll(car, mediumCtx(0.5))
	require.NoError(t, err)
	assert.Equal(t, o.ID, car.reaction)

	_, err = eng.Roll(car, mediumCtx(0.5))
	assert.ErrorIs(t, err, ErrAlreadyReacted)
	assert.Equal(t, o.ID, car.reaction)
}

func TestRoll_QualityShiftsTowardPositive(t *testing.T) {
	positives := func(q float64) int {
		eng := NewEngine(DefaultConfig(), entropy.New(5))
		n := 0
		for i := 0; i < 5000; i++ {
			o, err := eng.Roll(&fakeCar{}, mediumCtx(q))
			require.NoError(t, err)
			if o.Sentiment == Positive {
				n++
			}
		}
		return n
	}
	assert.Greater(t, positives(1.0), positives(0.0))
}

func TestScore_RaisedPositive(t *testing.T) {
	cfg := DefaultConfig()
	honk, ok := cfg.Find("honk")
	require.True(t, ok)

	r := cfg.Score(honk, true)
	assert.Equal(t, 15, r.ScoreDelta)
	assert.Equal(t, 15.0, r.ConfidenceScore)
	assert.False(t, r.Deflected)

	r = cfg.Score(honk, false)
	assert.Equal(t, 10, r.ScoreDelta)
}

func TestScore_RaisedOddScoreRoundsToWholePoints(t *testing.T) {
	cfg := DefaultConfig()
	cheer, ok := cfg.Find("cheer")
	require.True(t, ok)
	require.Equal(t, 15, cheer.Score)

	r := cfg.Score(cheer, true)
	assert.Equal(t, 23, r.ScoreDelta)
	assert.InDelta(t, 22.5, r.ConfidenceScore, 1e-9)

	cfg.RaisePositiveMultiplier = 1.3
	r = cfg.Score(Outcome{ID: "x", Sentiment: Positive, Score: 7, Weight: 1}, true)
	assert.Equal(t, 9, r.ScoreDelta)
	assert.InDelta(t, 9.1, r.ConfidenceScore, 1e-9)
}

func TestScore_RaisedNegativeDeflects(t *testing.T) {
	cfg := DefaultConfig()
	yell, ok := cfg.Find("yell")
	require.True(t, ok)

	r := cfg.Score(yell, true)
	assert.True(t, r.Deflected)
	assert.Equal(t, cfg.DeflectScore, r.ScoreDelta)
	assert.Equal(t, float64(cfg.DeflectScore), r.ConfidenceScore)
	assert.Equal(t, cfg.DeflectConfidence, r.ConfidenceBonus)

	r = cfg.Score(yell, false)
	assert.False(t, r.Deflected)
	assert.Equal(t, -10, r.ScoreDelta)
}

func TestSentimentJSON(t *testing.T) {
	b, err := json.Marshal(Outcome{ID: "x", Sentiment: Negative, Score: -1, Weight: 1})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"sentiment":"negative"`)

	var o Outcome
	require.NoError(t, json.Unmarshal(b, &o))
	assert.Equal(t, Negative, o.Sentiment)

	assert.Error(t, json.Unmarshal([]byte(`{"sentiment":"angry"}`), &o))
}
