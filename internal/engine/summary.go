package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/events"
	"github.com/talgya/holdup/internal/reaction"
	"github.com/talgya/holdup/internal/traffic"
)

// Summary is the end-of-session report. Two runs with the same seed,
// config and inputs produce equal summaries.
type Summary struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Seed       int64           `json:"seed"`
	Difficulty string          `json:"difficulty"`
	Sign       difficulty.Sign `json:"sign"`

	EndReason   EndReason `json:"end_reason"`
	Frames      uint64    `json:"frames"`
	Elapsed     float64   `json:"elapsed"`
	TimePenalty float64   `json:"time_penalty"`

	Score      int     `json:"score"`     // Floored at 0
	RawScore   int     `json:"raw_score"` // Can be negative
	Confidence float64 `json:"confidence"`
	GroupSize  int     `json:"group_size"`

	Reactions       map[string]int `json:"reactions"`  // Outcome id -> count
	Sentiments      map[string]int `json:"sentiments"` // Sentiment name -> count
	Deflects        int            `json:"deflects"`
	SignDegradation float64        `json:"sign_degradation"`

	Events  []events.Record `json:"events"`
	Traffic traffic.Stats   `json:"traffic"`
}

// Summary reports the session so far. It is final once Ended is true.
func (s *Session) Summary() Summary {
	tally := make(map[string]int, len(s.tally))
	for id, n := range s.tally {
		tally[id] = n
	}
	sentiments := make(map[string]int, len(s.sentiments))
	for i, n := range s.sentiments {
		if n > 0 {
			sentiments[reaction.Sentiment(i).String()] = n
		}
	}
	return Summary{
		SessionID:       s.id,
		Seed:            s.seed,
		Difficulty:      s.profile.Name,
		Sign:            s.sign,
		EndReason:       s.end,
		Frames:          s.frame,
		Elapsed:         s.elapsed,
		TimePenalty:     s.penalty,
		Score:           max(0, s.score),
		RawScore:        s.score,
		Confidence:      s.confidence.Value(),
		GroupSize:       s.weather.GroupSize(),
		Reactions:       tally,
		Sentiments:      sentiments,
		Deflects:        s.deflects,
		SignDegradation: s.weather.Degradation(),
		Events:          s.events.Records(),
		Traffic:         s.traffic.Stats(),
	}
}

// ReactionCount returns the number of reactions rolled.
func (sum Summary) ReactionCount() int {
	n := 0
	for _, c := range sum.Reactions {
		n += c
	}
	return n
}
