package replay

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/talgya/holdup/internal/config"
	"github.com/talgya/holdup/internal/engine"
)

var (
	// ErrMismatch is returned by Verify when a replay diverges.
	ErrMismatch = errors.New("replay diverged from recording")
	// ErrConfigMismatch is returned by Verify when the tuning differs from
	// the one the recording was made with.
	ErrConfigMismatch = errors.New("config differs from recording")
)

// Replay rebuilds the session and feeds it the recorded frames in order.
// It stops early if the session ends before the frames run out.
func Replay(cfg *config.Config, rec *Recording) (engine.Summary, error) {
	s, err := engine.NewSession(cfg, rec.Options())
	if err != nil {
		return engine.Summary{}, fmt.Errorf("replay: %w", err)
	}
	for _, f := range rec.Frames {
		if s.Ended() {
			break
		}
		s.Advance(f.Dt, f.Input)
	}
	return s.Summary(), nil
}

// Verify replays rec and compares the result with rec.Expected.
func Verify(cfg *config.Config, rec *Recording) (engine.Summary, error) {
	if rec.Expected == nil {
		return engine.Summary{}, errors.New("verify: recording has no expected summary")
	}
	digest, err := cfg.Digest()
	if err != nil {
		return engine.Summary{}, fmt.Errorf("verify: %w", err)
	}
	if digest != rec.ConfigDigest {
		return engine.Summary{}, fmt.Errorf("%w: recorded %s, have %s",
			ErrConfigMismatch, shortDigest(rec.ConfigDigest), shortDigest(digest))
	}
	got, err := Replay(cfg, rec)
	if err != nil {
		return got, err
	}
	if diff := Diff(*rec.Expected, got); len(diff) > 0 {
		return got, fmt.Errorf("%w: %s", ErrMismatch, strings.Join(diff, "; "))
	}
	return got, nil
}

// Diff names the summary fields that differ between want and got.
func Diff(want, got engine.Summary) []string {
	var diff []string
	wv, gv := reflect.ValueOf(want), reflect.ValueOf(got)
	for i := 0; i < wv.NumField(); i++ {
		if !reflect.DeepEqual(wv.Field(i).Interface(), gv.Field(i).Interface()) {
			diff = append(diff, fmt.Sprintf("%s: want %v, got %v",
				wv.Type().Field(i).Name, wv.Field(i).Interface(), gv.Field(i).Interface()))
		}
	}
	return diff
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	if d == "" {
		return "(none)"
	}
	return d
}
