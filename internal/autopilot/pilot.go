// Package autopilot plays a session without a human: it tracks the nearest
// fresh car, pumps the sign now and then, manages both arms and answers
// the police after a short hesitation.
package autopilot

import (
	"math"

	"github.com/talgya/holdup/internal/engine"
	"github.com/talgya/holdup/internal/entropy"
	"github.com/talgya/holdup/internal/meters"
)

// Config tunes the bot. Fatigue thresholds are on the 0–100 scale.
type Config struct {
	RaiseEvery float64 // Seconds between raises
	RaiseFor   float64 // Seconds held per raise
	RaiseBelow float64 // Only raise while the active arm is under this

	SwitchAt  float64 // Switch arms at this fatigue
	SwitchGap float64 // ...if the other arm is at least this much fresher
	RestAt    float64 // Rest when both arms reach this
	ResumeAt  float64 // Stop resting at this

	AnswerMin float64 // Hesitation before answering a cop, seconds
	AnswerMax float64
}

// DefaultConfig returns a reasonable, slightly cautious player.
func DefaultConfig() Config {
	return Config{
		RaiseEvery: 8,
		RaiseFor:   2.5,
		RaiseBelow: 60,
		SwitchAt:   70,
		SwitchGap:  20,
		RestAt:     85,
		ResumeAt:   30,
		AnswerMin:  1,
		AnswerMax:  4,
	}
}

// Pilot is an engine.InputSource.
type Pilot struct {
	cfg Config
	rng *entropy.Source

	lastRaise float64
	raisedAt  float64
	holding   bool

	scenario string
	answerAt float64
}

// New creates a pilot drawing from rng.
func New(cfg Config, rng *entropy.Source) *Pilot {
	return &Pilot{cfg: cfg, rng: rng, lastRaise: math.Inf(-1)}
}

// Next implements engine.InputSource.
func (p *Pilot) Next(snap engine.Snapshot) engine.Input {
	in := engine.Input{Facing: p.aim(snap)}
	p.arms(snap, &in)
	p.sign(snap, &in)
	p.answer(snap, &in)
	return in
}

// aim faces the closest car that has not reacted yet, or the middle of
// the intersection when there is none.
func (p *Pilot) aim(snap engine.Snapshot) float64 {
	ox, oy := snap.Cone.OriginX, snap.Cone.OriginY
	best := math.Inf(1)
	facing := math.Atan2(-oy, -ox)
	for _, c := range snap.Cars {
		if c.Reaction != "" {
			continue
		}
		if d := math.Hypot(c.X-ox, c.Y-oy); d < best {
			best = d
			facing = math.Atan2(c.Y-oy, c.X-ox)
		}
	}
	return facing
}

func (p *Pilot) arms(snap engine.Snapshot, in *engine.Input) {
	a := snap.Arms
	active, other := a.Right, a.Left
	if a.Active == meters.ArmLeft {
		active, other = a.Left, a.Right
	}

	switch {
	case a.Resting:
		in.ToggleRest = active <= p.cfg.ResumeAt
	case active >= p.cfg.RestAt && other >= p.cfg.RestAt:
		in.ToggleRest = true
	case active >= p.cfg.SwitchAt && a.Cooldown == 0 && other <= active-p.cfg.SwitchGap:
		in.SwitchArms = true
	}
}

func (p *Pilot) sign(snap engine.Snapshot, in *engine.Input) {
	raised := snap.Arms.Raise != meters.RaiseNone
	if p.holding && !raised {
		// Dropped by exhaustion, rest or an arm switch.
		p.holding = false
	}
	if p.holding {
		if snap.Elapsed-p.raisedAt >= p.cfg.RaiseFor {
			in.RaiseEnd = true
			p.holding = false
		}
		return
	}

	active := snap.Arms.Right
	if snap.Arms.Active == meters.ArmLeft {
		active = snap.Arms.Left
	}
	if snap.Arms.Resting || in.ToggleRest || in.SwitchArms || active >= p.cfg.RaiseBelow {
		return
	}
	if snap.Elapsed-p.lastRaise >= p.cfg.RaiseEvery {
		in.RaiseStart = true
		p.holding = true
		p.raisedAt = snap.Elapsed
		p.lastRaise = snap.Elapsed
	}
}

func (p *Pilot) answer(snap engine.Snapshot, in *engine.Input) {
	d := snap.Dialogue
	if d == nil {
		p.scenario = ""
		return
	}
	if p.scenario != d.Scenario || p.answerAt == 0 {
		p.scenario = d.Scenario
		p.answerAt = snap.Elapsed + p.rng.Range(p.cfg.AnswerMin, p.cfg.AnswerMax)
	}
	if snap.Elapsed >= p.answerAt && len(d.Options) > 0 {
		in.CopOption = 1 + p.rng.Intn(len(d.Options))
		p.answerAt = 0
	}
}
