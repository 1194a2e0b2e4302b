package engine

import (
	"fmt"

	"github.com/talgya/holdup/internal/events"
	"github.com/talgya/holdup/internal/fov"
	"github.com/talgya/holdup/internal/meters"
	"github.com/talgya/holdup/internal/traffic"
	"github.com/talgya/holdup/internal/weather"
)

// EndReason says why a session stopped.
type EndReason uint8

const (
	EndNone EndReason = iota
	EndTimeExpired
	EndConfidenceZero
)

func (r EndReason) String() string {
	switch r {
	case EndNone:
		return "none"
	case EndTimeExpired:
		return "time_expired"
	case EndConfidenceZero:
		return "confidence_zero"
	default:
		return fmt.Sprintf("end(%d)", uint8(r))
	}
}

// MarshalText encodes the reason by name.
func (r EndReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a reason name.
func (r *EndReason) UnmarshalText(b []byte) error {
	for _, c := range []EndReason{EndNone, EndTimeExpired, EndConfidenceZero} {
		if c.String() == string(b) {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("unknown end reason %q", string(b))
}

// NoticeKind classifies a notification.
type NoticeKind string

const (
	NoticeReaction      NoticeKind = "reaction"
	NoticeEventStarted  NoticeKind = "event_started"
	NoticeEventEffect   NoticeKind = "event_effect"
	NoticeEventResolved NoticeKind = "event_resolved"
	NoticeCrowd         NoticeKind = "crowd"
	NoticeSessionEnded  NoticeKind = "session_ended"
)

// Notification is a one-shot message for the UI, produced during a frame.
type Notification struct {
	Kind       NoticeKind `json:"kind"`
	Elapsed    float64    `json:"elapsed"`
	Message    string     `json:"message"`
	Event      string     `json:"event,omitempty"` // Event kind name
	CarID      uint64     `json:"car_id,omitempty"`
	Sentiment  string     `json:"sentiment,omitempty"`
	Score      int        `json:"score,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Deflected  bool       `json:"deflected,omitempty"`
	Crowd      int        `json:"crowd,omitempty"`
}

// Frame is what one Advance hands back.
type Frame struct {
	Snapshot      Snapshot
	Notifications []Notification
}

// CarView is a car as the renderer sees it.
type CarView struct {
	ID        uint64            `json:"id"`
	Direction traffic.Direction `json:"direction"`
	Lane      int               `json:"lane"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	Heading   float64           `json:"heading"`
	Speed     float64           `json:"speed"`
	Stopped   bool              `json:"stopped"`
	Reaction  string            `json:"reaction,omitempty"`
}

// LightView is the current light phase.
type LightView struct {
	Phase     string              `json:"phase"`
	Index     int                 `json:"index"`
	Color     traffic.Color       `json:"color"`
	Green     []traffic.Direction `json:"green"`
	Remaining float64             `json:"remaining"`
}

// ArmsView is the fatigue state.
type ArmsView struct {
	Left     float64          `json:"left"`
	Right    float64          `json:"right"`
	Active   meters.Arm       `json:"active"`
	Resting  bool             `json:"resting"`
	Raise    meters.RaiseMode `json:"raise"`
	Cooldown float64          `json:"cooldown"`
}

// WeatherView is the sky and its after-effects.
type WeatherView struct {
	State          weather.State `json:"state"`
	ElapsedInState float64       `json:"elapsed_in_state"`
	Remaining      float64       `json:"remaining"`
	Intensity      float64       `json:"intensity"`
	Degradation    float64       `json:"sign_degradation"`
}

// Snapshot is a deep copy of the externally visible state. Holding one
// never aliases session memory.
type Snapshot struct {
	Frame     uint64    `json:"frame"`
	Elapsed   float64   `json:"elapsed"`
	Remaining float64   `json:"remaining"`
	End       EndReason `json:"end"`

	Score           int     `json:"score"` // Floored at 0 for display
	Confidence      float64 `json:"confidence"`
	ConfidenceFloor float64 `json:"confidence_floor"`
	GroupSize       int     `json:"group_size"`

	Arms    ArmsView    `json:"arms"`
	Cone    fov.Cone    `json:"cone"`
	Light   LightView   `json:"light"`
	Cars    []CarView   `json:"cars"`
	Weather WeatherView `json:"weather"`

	Dialogue *events.DialogueView `json:"dialogue,omitempty"`
	Karma    *events.KarmaView    `json:"karma,omitempty"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	light := s.traffic.Light()
	phase := light.Current()
	snap := Snapshot{
		Frame:           s.frame,
		Elapsed:         s.elapsed,
		Remaining:       s.Remaining(),
		End:             s.end,
		Score:           max(0, s.score),
		Confidence:      s.confidence.Value(),
		ConfidenceFloor: s.confidence.Floor(),
		GroupSize:       s.weather.GroupSize(),
		Arms: ArmsView{
			Left:     s.fatigue.Level(meters.ArmLeft),
			Right:    s.fatigue.Level(meters.ArmRight),
			Active:   s.fatigue.ActiveArm(),
			Resting:  s.fatigue.Resting(),
			Raise:    s.fatigue.Raise(),
			Cooldown: s.fatigue.Cooldown(),
		},
		Cone: s.detector.Cone(s.facing, s.fatigue.Active(), s.fatigue.Resting()),
		Light: LightView{
			Phase:     phase.Name,
			Index:     light.Index(),
			Color:     phase.Color,
			Green:     append([]traffic.Direction(nil), phase.Green...),
			Remaining: light.Remaining(),
		},
		Weather: WeatherView{
			State:          s.weather.State(),
			ElapsedInState: s.weather.ElapsedInState(),
			Remaining:      s.weather.Remaining(),
			Intensity:      s.weather.Intensity(),
			Degradation:    s.weather.Degradation(),
		},
	}

	cars := s.traffic.VisibleCars()
	snap.Cars = make([]CarView, 0, len(cars))
	for _, c := range cars {
		snap.Cars = append(snap.Cars, CarView{
			ID:        c.ID,
			Direction: c.Direction,
			Lane:      c.Lane,
			X:         c.X,
			Y:         c.Y,
			Heading:   c.Heading(),
			Speed:     c.Speed,
			Stopped:   c.Stopped,
			Reaction:  c.Reaction,
		})
	}

	if d, ok := s.events.Dialogue(); ok {
		snap.Dialogue = &d
	}
	if k, ok := s.events.Karma(); ok {
		snap.Karma = &k
	}
	return snap
}
