package engine

import (
	"context"
	"log/slog"
	"time"
)

// InputSource supplies the player's intent for the next frame, given the
// state after the previous one.
type InputSource interface {
	Next(snap Snapshot) Input
}

// InputFunc adapts a function to InputSource.
type InputFunc func(snap Snapshot) Input

// Next calls f.
func (f InputFunc) Next(snap Snapshot) Input { return f(snap) }

// Engine drives a session at a fixed step.
type Engine struct {
	Interval time.Duration // Simulated time per frame
	Speed    float64       // Real-time multiplier when Realtime is set
	Realtime bool          // Sleep between frames instead of running flat out

	OnFrame func(f Frame) // Every frame, after Advance
}

// NewEngine creates an engine stepping tickRate frames per simulated second.
func NewEngine(tickRate int) *Engine {
	if tickRate <= 0 {
		tickRate = 60
	}
	return &Engine{
		Interval: time.Second / time.Duration(tickRate),
		Speed:    1.0,
	}
}

// Run advances s until it ends or ctx is cancelled. The summary is returned
// either way; the error is ctx's when cancelled.
func (e *Engine) Run(ctx context.Context, s *Session, src InputSource) (Summary, error) {
	dt := e.Interval.Seconds()
	slog.Debug("frame loop started", "session", s.ID(), "dt", dt, "realtime", e.Realtime)

	snap := s.Snapshot()
	for !s.Ended() {
		if err := ctx.Err(); err != nil {
			slog.Info("frame loop cancelled", "session", s.ID(), "frame", snap.Frame)
			return s.Summary(), err
		}

		start := time.Now()

		f := s.Advance(dt, src.Next(snap))
		snap = f.Snapshot
		if e.OnFrame != nil {
			e.OnFrame(f)
		}

		if e.Realtime && e.Speed > 0 {
			// Sleep for the remainder of the frame, adjusted for speed.
			target := time.Duration(float64(e.Interval) / e.Speed)
			if elapsed := time.Since(start); elapsed < target {
				select {
				case <-ctx.Done():
				case <-time.After(target - elapsed):
				}
			}
		}
	}

	slog.Debug("frame loop stopped", "session", s.ID(), "frame", snap.Frame)
	return s.Summary(), nil
}
