package events

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/holdup/internal/entropy"
)

// Resolution labels written into records.
const (
	ResolvedAnswered  = "answered"
	ResolvedTimeout   = "timeout"
	ResolvedCompleted = "completed"
	ResolvedPassed    = "passed"
)

// Record is the log entry for one started event.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	Start      float64   `json:"start"`
	End        float64   `json:"end"`
	Resolved   bool      `json:"resolved"`
	Resolution string    `json:"resolution,omitempty"`
	Scenario   string    `json:"scenario,omitempty"`
	Option     int       `json:"option,omitempty"` // 1-based answer, 0 on timeout
	Forced     bool      `json:"forced,omitempty"`
}

// Status is what the scheduler needs to know about the session this tick.
type Status struct {
	Elapsed       float64
	Remaining     float64
	Confidence    float64
	WeatherActive bool
	Choice        int // 1-based dialogue answer, 0 for none
}

// Effect is a meter or timer change the session must apply.
type Effect struct {
	Kind        Kind
	Confidence  float64
	Score       int
	TimePenalty float64
	Message     string
}

// Update collects everything one Advance produced.
type Update struct {
	Started  []Record
	Resolved []Record
	Effects  []Effect
	// WeatherDuration is positive when a weather event started this tick.
	WeatherDuration float64
}

// DialogueView is the visible state of an open cop-check.
type DialogueView struct {
	Scenario  string
	Opening   string
	Options   []string
	Remaining float64
	Forced    bool
}

// KarmaView is the visible state of a running karma sequence.
type KarmaView struct {
	Phase     int
	Phases    int
	Banner    string
	Remaining float64
}

type dialogue struct {
	scenario  Scenario
	remaining float64
	forced    bool
	record    int
}

type karmaRun struct {
	phase     int
	remaining float64
	record    int
}

// Scheduler is the master event timer plus the running sub-machines.
type Scheduler struct {
	cfg       Config
	frequency float64
	rng       *entropy.Source
	session   uuid.UUID

	records     []Record
	copChecks   int
	karmaUsed   bool
	weatherUsed bool
	weatherOpen int

	dialogue *dialogue
	karma    *karmaRun
}

// NewScheduler builds a scheduler. frequency scales the per-second trigger
// chance and comes from the difficulty profile.
func NewScheduler(cfg Config, frequency float64, session uuid.UUID, rng *entropy.Source) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		frequency:   frequency,
		rng:         rng,
		session:     session,
		weatherOpen: -1,
	}
}

// Records returns a copy of the event log.
func (s *Scheduler) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Paused reports whether a forced cop-check holds the other event timers.
func (s *Scheduler) Paused() bool {
	return s.dialogue != nil && s.dialogue.forced
}

// Dialogue returns the open cop-check, if any.
func (s *Scheduler) Dialogue() (DialogueView, bool) {
	if s.dialogue == nil {
		return DialogueView{}, false
	}
	sc := s.dialogue.scenario
	labels := make([]string, len(sc.Options))
	for i, o := range sc.Options {
		labels[i] = o.Label
	}
	return DialogueView{
		Scenario:  sc.ID,
		Opening:   sc.Opening,
		Options:   labels,
		Remaining: s.dialogue.remaining,
		Forced:    s.dialogue.forced,
	}, true
}

// Karma returns the running karma sequence, if any.
func (s *Scheduler) Karma() (KarmaView, bool) {
	if s.karma == nil {
		return KarmaView{}, false
	}
	return KarmaView{
		Phase:     s.karma.phase,
		Phases:    len(s.cfg.Karma),
		Banner:    s.cfg.Karma[s.karma.phase].Banner,
		Remaining: s.karma.remaining,
	}, true
}

func (s *Scheduler) busy() bool {
	return s.dialogue != nil || s.karma != nil
}

// copPending reports whether the guaranteed cop-check is still owed.
func (s *Scheduler) copPending() bool {
	return s.cfg.GuaranteedCopCheckRemaining > 0 && s.copChecks == 0
}

// Advance runs the sub-machines, then the guarantees, then the random
// trigger, in that order.
func (s *Scheduler) Advance(dt float64, st Status) Update {
	var u Update
	if !s.cfg.Enabled {
		return u
	}

	if d := s.dialogue; d != nil {
		if st.Choice >= 1 && st.Choice <= len(d.scenario.Options) {
			s.closeDialogue(&u, st.Elapsed, st.Choice)
		} else {
			d.remaining -= dt
			if d.remaining <= 0 {
				s.closeDialogue(&u, st.Elapsed, 0)
			}
		}
	}
	if s.karma != nil && !s.Paused() {
		s.advanceKarma(&u, dt, st.Elapsed)
	}

	if s.copPending() && s.dialogue == nil && st.Remaining <= s.cfg.GuaranteedCopCheckRemaining {
		s.start(&u, CopCheck, st, true)
		return u
	}

	if len(s.records) == 0 && st.Elapsed >= s.cfg.FirstEventMaxTime && !s.busy() {
		if kind, ok := s.drawEligible(st); ok {
			s.start(&u, kind, st, true)
		}
		return u
	}

	if s.busy() || st.Elapsed < s.cfg.FirstEventMinTime {
		return u
	}
	if !s.rng.Chance(s.cfg.TriggerChancePerSecond * s.frequency * dt) {
		return u
	}
	i, err := s.rng.Pick(s.weights(nil))
	if err != nil {
		return u
	}
	if s.eligible(Kinds[i], st) {
		s.start(&u, Kinds[i], st, false)
	}
	return u
}

// Trigger starts kind now if it is eligible, bypassing the probability
// roll. It reports whether the event started.
func (s *Scheduler) Trigger(kind Kind, st Status) (Update, bool) {
	var u Update
	if !s.cfg.Enabled || !s.eligible(kind, st) {
		return u, false
	}
	s.start(&u, kind, st, false)
	return u, true
}

// CloseWeather marks the open weather record as finished.
func (s *Scheduler) CloseWeather(now float64) (Record, bool) {
	if s.weatherOpen < 0 {
		return Record{}, false
	}
	r := &s.records[s.weatherOpen]
	r.End = now
	r.Resolved = true
	r.Resolution = ResolvedPassed
	s.weatherOpen = -1
	return *r, true
}

func (s *Scheduler) weights(keep func(Kind) bool) []float64 {
	w := make([]float64, len(Kinds))
	for i, k := range Kinds {
		if keep == nil || keep(k) {
			w[i] = s.cfg.Weights[k]
		}
	}
	return w
}

func (s *Scheduler) drawEligible(st Status) (Kind, bool) {
	i, err := s.rng.Pick(s.weights(func(k Kind) bool { return s.eligible(k, st) }))
	if err != nil {
		return 0, false
	}
	return Kinds[i], true
}

// eligible applies the shared gates and then the per-kind ones. While the
// guaranteed cop-check is owed, other kinds leave it a slot under the cap
// and a full spacing window before it fires.
func (s *Scheduler) eligible(kind Kind, st Status) bool {
	if s.busy() || st.Elapsed < s.cfg.FirstEventMinTime {
		return false
	}
	if n := len(s.records); n > 0 && st.Elapsed-s.records[n-1].Start < s.cfg.MinEventSpacing {
		return false
	}
	limit := s.cfg.MaxEventsPerSession
	if kind != CopCheck && s.copPending() {
		limit--
		if st.Remaining-s.cfg.GuaranteedCopCheckRemaining < s.cfg.MinEventSpacing {
			return false
		}
	}
	if len(s.records) >= limit {
		return false
	}

	switch kind {
	case CopCheck:
		return len(s.cfg.Scenarios) > 0 &&
			s.copChecks < s.cfg.MaxCopChecks &&
			st.Confidence >= s.cfg.CopCheckMinConfidence
	case Weather:
		return !s.weatherUsed && !st.WeatherActive
	case Karma:
		return len(s.cfg.Karma) > 0 && !s.karmaUsed && st.Elapsed >= s.cfg.KarmaMinTime
	}
	return false
}

func (s *Scheduler) start(u *Update, kind Kind, st Status, forced bool) {
	rec := Record{
		ID:     uuid.NewSHA1(s.session, []byte(fmt.Sprintf("%s/%d", kind, len(s.records)))),
		Kind:   kind,
		Start:  st.Elapsed,
		Forced: forced,
	}
	idx := len(s.records)

	switch kind {
	case CopCheck:
		sc := s.cfg.Scenarios[s.rng.Intn(len(s.cfg.Scenarios))]
		rec.Scenario = sc.ID
		s.dialogue = &dialogue{scenario: sc, remaining: sc.Timeout, forced: forced, record: idx}
		s.copChecks++
		u.Effects = append(u.Effects, Effect{Kind: CopCheck, Message: sc.Opening})
	case Weather:
		s.weatherUsed = true
		s.weatherOpen = idx
		u.WeatherDuration = s.rng.Range(s.cfg.WeatherMinDuration, s.cfg.WeatherMaxDuration)
	case Karma:
		s.karmaUsed = true
		s.karma = &karmaRun{record: idx, remaining: s.cfg.Karma[0].Duration}
		s.enterPhase(u, 0)
	}

	s.records = append(s.records, rec)
	u.Started = append(u.Started, rec)
}

func (s *Scheduler) closeDialogue(u *Update, now float64, choice int) {
	d := s.dialogue
	o := d.scenario.Penalty
	resolution := ResolvedTimeout
	if choice > 0 {
		o = d.scenario.Options[choice-1]
		resolution = ResolvedAnswered
	}
	u.Effects = append(u.Effects, Effect{
		Kind:        CopCheck,
		Confidence:  o.Confidence,
		Score:       o.Score,
		TimePenalty: o.TimePenalty,
		Message:     o.Reply,
	})
	r := &s.records[d.record]
	r.End = now
	r.Resolved = true
	r.Resolution = resolution
	r.Option = choice
	u.Resolved = append(u.Resolved, *r)
	s.dialogue = nil
}

func (s *Scheduler) enterPhase(u *Update, phase int) {
	p := s.cfg.Karma[phase]
	u.Effects = append(u.Effects, Effect{
		Kind:       Karma,
		Confidence: p.Confidence,
		Score:      p.Score,
		Message:    p.Banner,
	})
}

func (s *Scheduler) advanceKarma(u *Update, dt, now float64) {
	k := s.karma
	k.remaining -= dt
	for k.remaining <= 0 {
		k.phase++
		if k.phase >= len(s.cfg.Karma) {
			u.Effects = append(u.Effects, Effect{Kind: Karma, Confidence: s.cfg.KarmaBonus, Message: "Karma complete"})
			r := &s.records[k.record]
			r.End = now
			r.Resolved = true
			r.Resolution = ResolvedCompleted
			u.Resolved = append(u.Resolved, *r)
			s.karma = nil
			return
		}
		k.remaining += s.cfg.Karma[k.phase].Duration
		s.enterPhase(u, k.phase)
	}
}
