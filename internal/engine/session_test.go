package engine

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/holdup/internal/config"
	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/events"
	"github.com/talgya/holdup/internal/fov"
	"github.com/talgya/holdup/internal/reaction"
)

const step = 1.0 / 60

// facingCenter points the player at the middle of the intersection.
var facingCenter = math.Atan2(12, 12)

// facingAway points the player into the empty corner behind them.
var facingAway = -3 * math.Pi / 4

func testOptions(seed int64) Options {
	return Options{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte("session-test")),
		Seed:       seed,
		Difficulty: difficulty.Medium,
		Sign:       difficulty.Sign{Material: difficulty.Cardboard, Quality: 0.7},
	}
}

// quietConfig turns events off and blinds the player so nothing reacts.
func quietConfig() *config.Config {
	cfg := config.Default()
	cfg.Events.Enabled = false
	cfg.FOV.Range = 1
	return cfg
}

func newSession(t *testing.T, cfg *config.Config, seed int64) *Session {
	t.Helper()
	s, err := NewSession(cfg, testOptions(seed))
	require.NoError(t, err)
	return s
}

func playOut(s *Session, in func(Snapshot) Input) []Frame {
	var frames []Frame
	snap := s.Snapshot()
	for !s.Ended() {
		f := s.Advance(step, in(snap))
		snap = f.Snapshot
		frames = append(frames, f)
	}
	return frames
}

func still(facing float64) func(Snapshot) Input {
	return func(Snapshot) Input { return Input{Facing: facing} }
}

func TestSilenceDecaysToCrowdFloor(t *testing.T) {
	cfg := quietConfig()
	cfg.Confidence.Start = 30
	cfg.Session.InitialGroupSize = 3
	s := newSession(t, cfg, 1)

	lowest := math.Inf(1)
	var at10 float64
	for _, f := range playOut(s, still(facingAway)) {
		lowest = math.Min(lowest, f.Snapshot.Confidence)
		if at10 == 0 && f.Snapshot.Elapsed >= 10 {
			at10 = f.Snapshot.Confidence
		}
	}

	assert.InDelta(t, 30-1.5*5, at10, 0.1)
	assert.Equal(t, 9.0, lowest)

	sum := s.Summary()
	assert.Equal(t, EndTimeExpired, sum.EndReason)
	assert.Equal(t, 9.0, sum.Confidence)
	assert.Zero(t, sum.ReactionCount())
	assert.Empty(t, sum.Events)
	assert.InDelta(t, cfg.Session.Duration, sum.Elapsed, step)
}

func TestConfidenceZeroEndsSession(t *testing.T) {
	cfg := quietConfig()
	cfg.Confidence.Start = 2
	cfg.Session.InitialGroupSize = 0
	cfg.Weather.MinNPCCount = 0
	s := newSession(t, cfg, 2)

	frames := playOut(s, still(facingAway))
	last := frames[len(frames)-1]
	assert.Equal(t, EndConfidenceZero, last.Snapshot.End)
	assert.InDelta(t, 5+2/1.5, last.Snapshot.Elapsed, 2*step)
	require.NotEmpty(t, last.Notifications)
	assert.Equal(t, NoticeSessionEnded, last.Notifications[len(last.Notifications)-1].Kind)
	assert.Empty(t, last.Snapshot.Cars)
}

// rainOnly makes rain the only event, forced at the given session time.
func rainOnly(cfg *config.Config, at float64) {
	cfg.Events.Enabled = true
	cfg.Events.FirstEventMinTime = 0
	cfg.Events.FirstEventMaxTime = at
	cfg.Events.TriggerChancePerSecond = 0
	cfg.Events.GuaranteedCopCheckRemaining = 0
	cfg.Events.Weights = map[events.Kind]float64{events.Weather: 1}
}

func TestEmptyConfidenceCannotBeRevivedSameFrame(t *testing.T) {
	cfg := config.Default()
	cfg.Confidence.Start = 1
	cfg.Reactions.Outcomes = []reaction.Outcome{{ID: "honk", Sentiment: reaction.Positive, Score: 10, Weight: 1}}
	cfg.FOV.FreshWidth = 360
	cfg.FOV.ExhaustedWidth = 360
	cfg.FOV.Range = 0
	// One car, spawned on the first frame.
	cfg.Traffic.PoolCapacity = 1
	cfg.Traffic.SpawnIntervalMin = 0.001
	cfg.Traffic.SpawnIntervalMax = 0.001
	rainOnly(cfg, 0)
	cfg.Weather.RainConfidenceDrainRate = 600
	s := newSession(t, cfg, 21)

	f := s.Advance(step, Input{Facing: facingCenter})
	assert.Equal(t, EndConfidenceZero, f.Snapshot.End)
	assert.Zero(t, f.Snapshot.Confidence)
	require.NotEmpty(t, f.Notifications)
	assert.Equal(t, NoticeSessionEnded, f.Notifications[len(f.Notifications)-1].Kind)
	for _, n := range f.Notifications {
		assert.NotEqual(t, NoticeReaction, n.Kind)
	}

	sum := s.Summary()
	assert.Equal(t, 1, sum.Traffic.Spawned)
	assert.Zero(t, sum.ReactionCount())
	assert.Zero(t, sum.RawScore)
	require.Len(t, sum.Events, 1)
	assert.Equal(t, events.Weather, sum.Events[0].Kind)
	assert.True(t, sum.Events[0].Resolved)
}

func TestRainThinsCrowdAndLowersFloor(t *testing.T) {
	cfg := quietConfig()
	rainOnly(cfg, 1)
	cfg.Events.WeatherMinDuration = 20
	cfg.Events.WeatherMaxDuration = 20
	cfg.Session.InitialGroupSize = 4
	cfg.Weather.MinNPCCount = 1
	cfg.Weather.NPCLeaveChancePerSecond = 1
	cfg.Weather.RainConfidenceDrainRate = 0.2
	s := newSession(t, cfg, 22)

	bonus := cfg.Confidence.GroupSizeFloorBonus
	prevFloor := s.Snapshot().ConfidenceFloor
	assert.Equal(t, 4*bonus, prevFloor)

	var left int
	var rainStopped bool
	for _, f := range playOut(s, still(facingAway)) {
		snap := f.Snapshot
		assert.LessOrEqual(t, snap.ConfidenceFloor, prevFloor, "t=%.3f", snap.Elapsed)
		assert.GreaterOrEqual(t, snap.Confidence, snap.ConfidenceFloor-1e-9, "t=%.3f", snap.Elapsed)
		prevFloor = snap.ConfidenceFloor
		for _, n := range f.Notifications {
			switch {
			case n.Kind == NoticeCrowd:
				left++
				assert.Equal(t, snap.GroupSize, n.Crowd)
			case n.Kind == NoticeEventResolved && n.Event == "weather":
				rainStopped = true
				assert.Equal(t, events.ResolvedPassed, n.Message)
			}
		}
	}

	sum := s.Summary()
	assert.Equal(t, 3, left)
	assert.True(t, rainStopped)
	assert.Equal(t, 1, sum.GroupSize)
	assert.Equal(t, bonus, s.Snapshot().ConfidenceFloor)
	assert.Equal(t, bonus, sum.Confidence)

	require.Len(t, sum.Events, 1)
	rec := sum.Events[0]
	assert.Equal(t, events.Weather, rec.Kind)
	assert.True(t, rec.Resolved)
	assert.Equal(t, events.ResolvedPassed, rec.Resolution)
	assert.InDelta(t, rec.Start+20, rec.End, 2*step)

	assert.Greater(t, sum.SignDegradation, 0.0)
	assert.LessOrEqual(t, sum.SignDegradation, cfg.Weather.MaxSignDegradation)
	assert.InDelta(t, 0.7*(1-sum.SignDegradation), s.quality(), 1e-12)
	assert.Less(t, s.quality(), 0.7)
}

func TestElapsedStopsAtDuration(t *testing.T) {
	cfg := quietConfig()
	cfg.Session.Duration = 2
	cfg.Events.GuaranteedCopCheckRemaining = 0
	s := newSession(t, cfg, 23)

	for !s.Ended() {
		s.Advance(0.7, Input{Facing: facingAway})
	}
	sum := s.Summary()
	assert.Equal(t, EndTimeExpired, sum.EndReason)
	assert.Equal(t, 2.0, sum.Elapsed)
	assert.Zero(t, s.Remaining())
}

func TestPenaltyCannotOvershootClock(t *testing.T) {
	cfg := quietConfig()
	cfg.Events.Enabled = true
	cfg.Events.FirstEventMinTime = 0
	cfg.Events.FirstEventMaxTime = 1
	cfg.Events.TriggerChancePerSecond = 0
	cfg.Events.GuaranteedCopCheckRemaining = 0
	cfg.Events.Weights = map[events.Kind]float64{events.CopCheck: 1}
	cfg.Events.Scenarios = []events.Scenario{{
		ID:      "arrest",
		Opening: "You're coming with me.",
		Timeout: 1,
		Options: []events.Option{{Label: "Go quietly"}, {Label: "Protest"}},
		Penalty: events.Option{Reply: "That's the end of that.", TimePenalty: 1000},
	}}
	s := newSession(t, cfg, 24)

	frames := playOut(s, still(facingAway))
	last := frames[len(frames)-1].Snapshot
	assert.Equal(t, EndTimeExpired, last.End)
	assert.Zero(t, last.Remaining)

	sum := s.Summary()
	assert.InDelta(t, 2, sum.Elapsed, 2*step)
	assert.InDelta(t, cfg.Session.Duration, sum.Elapsed+sum.TimePenalty, 1e-9)
	require.Len(t, sum.Events, 1)
	assert.Equal(t, events.ResolvedTimeout, sum.Events[0].Resolution)
}

func TestAdvanceAfterEndIsInert(t *testing.T) {
	cfg := quietConfig()
	cfg.Session.Duration = 2
	cfg.Events.GuaranteedCopCheckRemaining = 0
	s := newSession(t, cfg, 3)
	playOut(s, still(facingAway))

	before := s.Snapshot()
	f := s.Advance(step, Input{SwitchArms: true})
	assert.Equal(t, before, f.Snapshot)
	assert.Empty(t, f.Notifications)

	f = s.Advance(-1, Input{})
	assert.Equal(t, before.Frame, f.Snapshot.Frame)
}

func TestReactionsOncePerCar(t *testing.T) {
	cfg := config.Default()
	cfg.Events.Enabled = false
	s := newSession(t, cfg, 4)

	seen := make(map[uint64]int)
	for _, f := range playOut(s, still(facingCenter)) {
		for _, n := range f.Notifications {
			if n.Kind == NoticeReaction {
				seen[n.CarID]++
			}
		}
	}
	require.Greater(t, len(seen), 10)
	for id, n := range seen {
		assert.Equal(t, 1, n, "car %d", id)
	}

	sum := s.Summary()
	assert.Equal(t, len(seen), sum.ReactionCount())
	total := 0
	for _, n := range sum.Sentiments {
		total += n
	}
	assert.Equal(t, sum.ReactionCount(), total)
	assert.GreaterOrEqual(t, sum.Score, 0)
	assert.Equal(t, max(0, sum.RawScore), sum.Score)
}

func TestSameSeedSameSummary(t *testing.T) {
	cfg := config.Default()
	cfg.Events.TriggerChancePerSecond = 0.2
	in := func(snap Snapshot) Input {
		i := Input{Facing: facingCenter + 0.4*math.Sin(snap.Elapsed/3)}
		switch snap.Frame % 900 {
		case 300:
			i.RaiseStart = true
		case 600:
			i.RaiseEnd = true
		case 899:
			i.SwitchArms = true
		}
		if snap.Dialogue != nil && snap.Dialogue.Remaining < 5 {
			i.CopOption = 1
		}
		return i
	}

	a := newSession(t, cfg, 42)
	b := newSession(t, cfg, 42)
	playOut(a, in)
	playOut(b, in)
	assert.Equal(t, a.Summary(), b.Summary())
	assert.NotEmpty(t, a.Summary().Events)

	c := newSession(t, cfg, 43)
	playOut(c, in)
	assert.NotEqual(t, a.Summary().Reactions, c.Summary().Reactions)
}

func TestCopCheckAnswered(t *testing.T) {
	cfg := quietConfig()
	cfg.Events.Enabled = true
	cfg.Events.FirstEventMinTime = 0
	cfg.Events.FirstEventMaxTime = 1
	cfg.Events.TriggerChancePerSecond = 0
	cfg.Events.GuaranteedCopCheckRemaining = 0
	cfg.Events.Weights = map[events.Kind]float64{events.CopCheck: 1}
	s := newSession(t, cfg, 5)

	var opened, answered bool
	var started int
	in := func(snap Snapshot) Input {
		if snap.Dialogue != nil {
			opened = true
			return Input{Facing: facingAway, CopOption: 1}
		}
		return Input{Facing: facingAway}
	}
	snap := s.Snapshot()
	for !s.Ended() {
		f := s.Advance(step, in(snap))
		snap = f.Snapshot
		for _, n := range f.Notifications {
			switch n.Kind {
			case NoticeEventStarted:
				started++
				assert.Equal(t, "cop_check", n.Event)
			case NoticeEventResolved:
				answered = true
				assert.Equal(t, events.ResolvedAnswered, n.Message)
			}
		}
	}
	assert.True(t, opened)
	assert.True(t, answered)
	assert.Equal(t, 1, started)

	sum := s.Summary()
	require.NotEmpty(t, sum.Events)
	first := sum.Events[0]
	assert.Equal(t, events.CopCheck, first.Kind)
	assert.Equal(t, 1, first.Option)
	assert.True(t, first.Forced)
	assert.InDelta(t, cfg.Session.Duration, sum.Elapsed+sum.TimePenalty, step)
}

func TestRestNarrowsConeSameFrame(t *testing.T) {
	cfg := quietConfig()
	s := newSession(t, cfg, 6)
	fresh := s.Advance(step, Input{Facing: facingAway}).Snapshot.Cone.Width

	f := s.Advance(step, Input{Facing: facingAway, ToggleRest: true})
	assert.True(t, f.Snapshot.Arms.Resting)
	assert.InDelta(t, fresh*cfg.FOV.RestFraction, f.Snapshot.Cone.Width, 1e-9)

	d := fov.NewDetector(cfg.FOV)
	assert.InDelta(t, d.ConeWidth(f.Snapshot.Arms.Right)*cfg.FOV.RestFraction, f.Snapshot.Cone.Width, 1e-9)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newSession(t, quietConfig(), 7)
	var snap Snapshot
	for len(snap.Cars) == 0 {
		snap = s.Advance(step, Input{Facing: facingAway}).Snapshot
	}
	id := snap.Cars[0].ID
	snap.Cars[0].ID = 9999
	snap.Light.Green = nil

	again := s.Snapshot()
	assert.Equal(t, id, again.Cars[0].ID)
	assert.NotNil(t, again.Light.Green)
}

func TestNewSessionRejectsBadInput(t *testing.T) {
	cfg := config.Default()

	opts := testOptions(1)
	opts.Difficulty = "impossible"
	_, err := NewSession(cfg, opts)
	assert.ErrorContains(t, err, "unknown difficulty")

	opts = testOptions(1)
	opts.Sign.Quality = 1.5
	_, err = NewSession(cfg, opts)
	assert.Error(t, err)

	bad := config.Default()
	bad.Session.Duration = 0
	_, err = NewSession(bad, testOptions(1))
	var cerr *config.Error
	assert.ErrorAs(t, err, &cerr)
}

func TestRandomIDWhenUnset(t *testing.T) {
	opts := testOptions(1)
	opts.ID = uuid.Nil
	s, err := NewSession(quietConfig(), opts)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.ID())
}

func TestEngineRun(t *testing.T) {
	cfg := quietConfig()
	cfg.Session.Duration = 5
	cfg.Events.GuaranteedCopCheckRemaining = 0
	s := newSession(t, cfg, 8)

	e := NewEngine(cfg.Session.TickRate)
	frames := 0
	e.OnFrame = func(Frame) { frames++ }
	sum, err := e.Run(context.Background(), s, InputFunc(func(Snapshot) Input { return Input{Facing: facingAway} }))
	require.NoError(t, err)
	assert.Equal(t, EndTimeExpired, sum.EndReason)
	assert.Equal(t, uint64(frames), sum.Frames)
	assert.InDelta(t, 5, sum.Elapsed, 0.02)
}

func TestEngineRunCancelled(t *testing.T) {
	s := newSession(t, quietConfig(), 9)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewEngine(60).Run(ctx, s, InputFunc(func(Snapshot) Input { return Input{} }))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, EndNone, sum.EndReason)
	assert.Zero(t, sum.Frames)
}
