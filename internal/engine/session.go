// Package engine runs one hold-the-sign session: it owns every subsystem,
// advances them in a fixed order each frame, and publishes a read-only
// snapshot for whatever draws the intersection.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/holdup/internal/config"
	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/entropy"
	"github.com/talgya/holdup/internal/events"
	"github.com/talgya/holdup/internal/fov"
	"github.com/talgya/holdup/internal/meters"
	"github.com/talgya/holdup/internal/numeric"
	"github.com/talgya/holdup/internal/reaction"
	"github.com/talgya/holdup/internal/traffic"
	"github.com/talgya/holdup/internal/weather"
)

// Options selects what a session is played with.
type Options struct {
	ID         uuid.UUID // uuid.Nil draws a random one
	Seed       int64
	Difficulty string
	Sign       difficulty.Sign
}

// Input is the player's intent for one frame.
type Input struct {
	Facing     float64 `json:"facing"` // Radians, 0 = east, counter-clockwise
	SwitchArms bool    `json:"switch_arms,omitempty"`
	ToggleRest bool    `json:"toggle_rest,omitempty"`
	RaiseStart bool    `json:"raise_start,omitempty"`
	RaiseEnd   bool    `json:"raise_end,omitempty"`
	CopOption  int     `json:"cop_option,omitempty"` // 1-based, 0 = no answer
}

// Session is one timed run at the intersection.
type Session struct {
	id       uuid.UUID
	seed     int64
	duration float64
	profile  difficulty.Profile
	material difficulty.Material
	sign     difficulty.Sign

	traffic    *traffic.Scheduler
	detector   *fov.Detector
	reactions  *reaction.Engine
	confidence *meters.Confidence
	fatigue    *meters.Fatigue
	events     *events.Scheduler
	weather    *weather.System

	frame   uint64
	elapsed float64
	penalty float64
	facing  float64
	score   int
	end     EndReason

	tally      map[string]int
	sentiments [3]int
	deflects   int
	notes      []Notification
}

// NewSession validates cfg and builds every subsystem from forked streams
// of opts.Seed, so the same seed and inputs always replay the same session.
func NewSession(cfg *config.Config, opts Options) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	profile, err := cfg.Profile(opts.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	material, err := cfg.Material(opts.Sign.Material)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	if !numeric.Finite(opts.Sign.Quality) || opts.Sign.Quality < 0 || opts.Sign.Quality > 1 {
		return nil, fmt.Errorf("new session: sign quality %v outside [0,1]", opts.Sign.Quality)
	}
	// Both ends of the quality range and full rain must still give a
	// drawable distribution under this profile.
	for _, ctx := range []reaction.Context{
		{Profile: profile, Quality: 0, WeatherShift: cfg.Weather.NegativeShift},
		{Profile: profile, Quality: 1},
	} {
		if _, err := reaction.EffectiveWeights(cfg.Reactions, ctx); err != nil {
			return nil, fmt.Errorf("reaction weights for %q: %w", profile.Name, err)
		}
	}

	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	root := entropy.New(opts.Seed)

	s := &Session{
		id:         id,
		seed:       opts.Seed,
		duration:   cfg.Session.Duration,
		profile:    profile,
		material:   material,
		sign:       opts.Sign,
		traffic:    traffic.NewScheduler(cfg.Traffic, profile, root.Fork(entropy.SaltTraffic)),
		detector:   fov.NewDetector(cfg.FOV),
		reactions:  reaction.NewEngine(cfg.Reactions, root.Fork(entropy.SaltReaction)),
		confidence: meters.NewConfidence(cfg.Confidence, profile.ConfidenceDrain),
		fatigue:    meters.NewFatigue(cfg.Fatigue, material.Fatigue, profile.Fatigue),
		events:     events.NewScheduler(cfg.Events, profile.EventFrequency, id, root.Fork(entropy.SaltEvents)),
		weather: weather.New(cfg.Weather, root.Fork(entropy.SaltWeather),
			cfg.Session.InitialGroupSize, material.Durability, profile.Durability),
		tally: make(map[string]int),
	}
	s.confidence.SetFloor(s.weather.GroupSize())

	slog.Info("session started",
		"id", id,
		"seed", opts.Seed,
		"difficulty", profile.Name,
		"material", material.Name,
		"quality", fmt.Sprintf("%.2f", opts.Sign.Quality),
	)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// Seed returns the seed the session was built from.
func (s *Session) Seed() int64 { return s.seed }

// Ended reports whether the session has reached a terminal state.
func (s *Session) Ended() bool { return s.end != EndNone }

// EndReason returns why the session ended, or EndNone.
func (s *Session) EndReason() EndReason { return s.end }

// Elapsed returns session seconds played.
func (s *Session) Elapsed() float64 { return s.elapsed }

// Remaining returns session seconds left after time penalties.
func (s *Session) Remaining() float64 {
	return max(0, s.duration-s.elapsed-s.penalty)
}

// Advance runs one frame. The order is fixed because later steps read what
// earlier ones wrote: timer, traffic, confidence, fatigue, events, weather,
// then the field of view and reactions. Any step that empties confidence
// ends the session before the next one runs. Calls after the session ended
// only return the final snapshot.
func (s *Session) Advance(dt float64, in Input) Frame {
	if s.Ended() || dt <= 0 || !numeric.Finite(dt) {
		return Frame{Snapshot: s.Snapshot()}
	}
	s.frame++
	s.notes = s.notes[:0]

	s.elapsed += dt
	if s.expired() {
		return s.emit()
	}

	s.traffic.Advance(dt)

	s.confidence.Tick(dt, s.elapsed, s.weather.GroupSize())
	if s.depleted() {
		return s.emit()
	}

	s.stepFatigue(dt, in)
	if s.stepEvents(dt, in) || s.expired() {
		return s.emit()
	}
	if s.stepWeather(dt) {
		return s.emit()
	}
	s.stepReactions(in)

	return s.emit()
}

// expired ends the session once the clock, less penalties, has run out.
// Elapsed is pinned to the end time so elapsed plus penalties never
// overshoots the duration.
func (s *Session) expired() bool {
	end := s.duration - s.penalty
	if s.elapsed < end {
		return false
	}
	s.elapsed = end
	s.finish(EndTimeExpired)
	return true
}

// depleted ends the session as soon as confidence has run out.
func (s *Session) depleted() bool {
	if !s.confidence.Depleted() {
		return false
	}
	s.finish(EndConfidenceZero)
	return true
}

func (s *Session) emit() Frame {
	f := Frame{Snapshot: s.Snapshot()}
	if len(s.notes) > 0 {
		f.Notifications = append([]Notification(nil), s.notes...)
	}
	return f
}

func (s *Session) stepFatigue(dt float64, in Input) {
	if in.SwitchArms && s.fatigue.SwitchArms() {
		slog.Debug("arms switched", "active", s.fatigue.ActiveArm())
	}
	if in.ToggleRest {
		s.fatigue.ToggleRest()
	}
	if in.RaiseStart {
		s.fatigue.StartRaise()
	}
	if in.RaiseEnd {
		s.fatigue.EndRaise()
	}
	s.fatigue.Advance(dt)
}

func (s *Session) stepEvents(dt float64, in Input) bool {
	u := s.events.Advance(dt, events.Status{
		Elapsed:       s.elapsed,
		Remaining:     s.Remaining(),
		Confidence:    s.confidence.Value(),
		WeatherActive: s.weather.Active(),
		Choice:        in.CopOption,
	})

	for _, r := range u.Started {
		slog.Debug("event started",
			"kind", r.Kind,
			"at", fmt.Sprintf("%.3f", r.Start),
			"forced", r.Forced,
			"scenario", r.Scenario,
		)
		s.note(Notification{Kind: NoticeEventStarted, Event: r.Kind.String(), Message: r.Kind.String()})
	}
	for _, e := range u.Effects {
		if e.Confidence != 0 {
			s.confidence.Adjust(e.Confidence)
		}
		s.score += e.Score
		// A penalty can take the clock to zero but not past it.
		s.penalty += min(e.TimePenalty, s.Remaining())
		if e.Message != "" {
			s.note(Notification{
				Kind:       NoticeEventEffect,
				Event:      e.Kind.String(),
				Message:    e.Message,
				Score:      e.Score,
				Confidence: e.Confidence,
			})
		}
	}
	for _, r := range u.Resolved {
		slog.Debug("event resolved",
			"kind", r.Kind,
			"resolution", r.Resolution,
			"option", r.Option,
			"at", fmt.Sprintf("%.3f", r.End),
		)
		s.note(Notification{Kind: NoticeEventResolved, Event: r.Kind.String(), Message: r.Resolution})
	}
	if u.WeatherDuration > 0 && s.weather.Start(u.WeatherDuration) {
		slog.Debug("rain started", "duration", fmt.Sprintf("%.3f", u.WeatherDuration))
	}
	return s.depleted()
}

func (s *Session) stepWeather(dt float64) bool {
	t := s.weather.Advance(dt, s.events.Paused())
	if t.ConfidenceDrain > 0 {
		s.confidence.Drain(t.ConfidenceDrain)
	}
	if t.NPCsLeft > 0 {
		s.note(Notification{
			Kind:    NoticeCrowd,
			Message: fmt.Sprintf("%d onlooker(s) left", t.NPCsLeft),
			Crowd:   s.weather.GroupSize(),
		})
	}
	if t.Ended {
		if r, ok := s.events.CloseWeather(s.elapsed); ok {
			slog.Debug("rain stopped", "at", fmt.Sprintf("%.3f", r.End))
			s.note(Notification{Kind: NoticeEventResolved, Event: events.Weather.String(), Message: r.Resolution})
		}
	}
	return s.depleted()
}

// quality is the sign quality after rain damage.
func (s *Session) quality() float64 {
	return numeric.Clamp(s.sign.Quality*(1-s.weather.Degradation()), 0, 1)
}

func (s *Session) stepReactions(in Input) {
	if numeric.Finite(in.Facing) {
		s.facing = numeric.WrapAngle(in.Facing)
	}
	cone := s.detector.Cone(s.facing, s.fatigue.Active(), s.fatigue.Resting())
	ctx := reaction.Context{
		Profile:      s.profile,
		Quality:      s.quality(),
		WeatherShift: s.weather.NegativeShift(),
	}
	raised := s.fatigue.Raised()
	cfg := s.reactions.Config()

	for _, car := range s.traffic.VisibleCars() {
		if car.Reacted() || !s.detector.Visible(cone, car) {
			continue
		}
		o, err := s.reactions.Roll(car, ctx)
		if err != nil {
			slog.Warn("reaction roll failed", "car", car.ID, "error", err)
			continue
		}
		res := cfg.Score(o, raised)
		s.score += res.ScoreDelta
		s.confidence.ApplyReaction(res.ConfidenceScore, s.elapsed)
		if res.ConfidenceBonus != 0 {
			s.confidence.Adjust(res.ConfidenceBonus)
		}
		s.tally[o.ID]++
		s.sentiments[o.Sentiment]++
		if res.Deflected {
			s.deflects++
		}
		s.note(Notification{
			Kind:      NoticeReaction,
			Message:   o.ID,
			CarID:     car.ID,
			Sentiment: o.Sentiment.String(),
			Score:     res.ScoreDelta,
			Deflected: res.Deflected,
		})
		if s.depleted() {
			return
		}
	}
}

func (s *Session) note(n Notification) {
	n.Elapsed = s.elapsed
	s.notes = append(s.notes, n)
}

func (s *Session) finish(reason EndReason) {
	s.end = reason
	if s.weather.Active() {
		s.events.CloseWeather(s.elapsed)
	}
	s.traffic.ReleaseAll()
	s.note(Notification{Kind: NoticeSessionEnded, Message: reason.String()})

	slog.Info("session ended",
		"id", s.id,
		"reason", reason,
		"elapsed", fmt.Sprintf("%.3f", s.elapsed),
		"score", s.score,
		"confidence", fmt.Sprintf("%.3f", s.confidence.Value()),
		"events", len(s.events.Records()),
	)
}
