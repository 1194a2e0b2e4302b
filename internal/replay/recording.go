// Package replay records the input stream of a session and plays it back
// against a fresh session to prove the run is reproducible.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/talgya/holdup/internal/config"
	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/engine"
)

// FormatVersion is bumped whenever the recording layout changes.
const FormatVersion = 2

// Frame is one recorded Advance call.
type Frame struct {
	Dt    float64      `json:"dt"`
	Input engine.Input `json:"input"`
}

// Recording is everything needed to rebuild a session frame by frame.
type Recording struct {
	Version    int             `json:"version"`
	SessionID  uuid.UUID       `json:"session_id"`
	Seed       int64           `json:"seed"`
	Difficulty string          `json:"difficulty"`
	Sign       difficulty.Sign `json:"sign"`
	Frames     []Frame         `json:"frames"`

	// ConfigDigest fingerprints the tuning the run was played with.
	ConfigDigest string `json:"config_digest"`

	// Expected is the summary the original run produced, if known.
	Expected *engine.Summary `json:"expected,omitempty"`
}

// Options returns the session options the recording was made with.
func (r *Recording) Options() engine.Options {
	return engine.Options{
		ID:         r.SessionID,
		Seed:       r.Seed,
		Difficulty: r.Difficulty,
		Sign:       r.Sign,
	}
}

// Recorder wraps an input source and keeps every input it hands out.
type Recorder struct {
	src engine.InputSource
	dt  float64
	rec Recording
}

// NewRecorder starts a recording for a session built from cfg and opts. dt
// is the fixed step the engine advances by.
func NewRecorder(src engine.InputSource, cfg *config.Config, opts engine.Options, dt float64) (*Recorder, error) {
	digest, err := cfg.Digest()
	if err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}
	return &Recorder{
		src: src,
		dt:  dt,
		rec: Recording{
			Version:      FormatVersion,
			SessionID:    opts.ID,
			Seed:         opts.Seed,
			Difficulty:   opts.Difficulty,
			Sign:         opts.Sign,
			ConfigDigest: digest,
		},
	}, nil
}

// Next implements engine.InputSource.
func (r *Recorder) Next(snap engine.Snapshot) engine.Input {
	in := r.src.Next(snap)
	r.rec.Frames = append(r.rec.Frames, Frame{Dt: r.dt, Input: in})
	return in
}

// Finish attaches the final summary and returns the recording.
func (r *Recorder) Finish(sum engine.Summary) *Recording {
	rec := r.rec
	rec.SessionID = sum.SessionID
	rec.Expected = &sum
	return &rec
}

// Save writes a recording as JSON.
func Save(path string, rec *Recording) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write recording %s: %w", path, err)
	}
	return nil
}

// Load reads a recording written by Save.
func Load(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording %s: %w", path, err)
	}
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse recording %s: %w", path, err)
	}
	if rec.Version != FormatVersion {
		return nil, fmt.Errorf("recording %s: unsupported version %d", path, rec.Version)
	}
	return &rec, nil
}
