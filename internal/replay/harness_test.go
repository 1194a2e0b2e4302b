package replay

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/holdup/internal/autopilot"
	"github.com/talgya/holdup/internal/config"
	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/engine"
	"github.com/talgya/holdup/internal/entropy"
)

func record(t *testing.T, cfg *config.Config, seed int64) *Recording {
	t.Helper()
	opts := engine.Options{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte("replay-test")),
		Seed:       seed,
		Difficulty: difficulty.Hard,
		Sign:       difficulty.Sign{Material: difficulty.PosterPaper, Quality: 0.55},
	}
	s, err := engine.NewSession(cfg, opts)
	require.NoError(t, err)

	e := engine.NewEngine(cfg.Session.TickRate)
	rec, err := NewRecorder(autopilot.New(autopilot.DefaultConfig(), entropy.New(seed).Fork(entropy.SaltPilot)), cfg, opts, e.Interval.Seconds())
	require.NoError(t, err)
	sum, err := e.Run(context.Background(), s, rec)
	require.NoError(t, err)
	return rec.Finish(sum)
}

func TestReplayReproducesSummary(t *testing.T) {
	cfg := config.Default()
	rec := record(t, cfg, 11)
	require.NotEmpty(t, rec.Frames)
	assert.Equal(t, rec.Expected.Frames, uint64(len(rec.Frames)))

	got, err := Verify(cfg, rec)
	require.NoError(t, err)
	assert.Equal(t, *rec.Expected, got)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := config.Default()
	rec := record(t, cfg, 12)
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, Save(path, rec))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec.SessionID, loaded.SessionID)
	assert.Len(t, loaded.Frames, len(rec.Frames))
	assert.Equal(t, rec.ConfigDigest, loaded.ConfigDigest)

	_, err = Verify(cfg, loaded)
	assert.NoError(t, err)
}

func TestVerifyDetectsDivergence(t *testing.T) {
	cfg := config.Default()
	rec := record(t, cfg, 13)
	for i := range rec.Frames {
		rec.Frames[i].Input.Facing = -3 * math.Pi / 4
	}
	_, err := Verify(cfg, rec)
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), "Reactions")
}

func TestVerifyRejectsDifferentConfig(t *testing.T) {
	cfg := config.Default()
	rec := record(t, cfg, 14)
	want, err := cfg.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, rec.ConfigDigest)

	other := config.Default()
	other.Weather.RainConfidenceDrainRate *= 2
	_, err = Verify(other, rec)
	require.ErrorIs(t, err, ErrConfigMismatch)
	assert.NotErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), want[:12])

	rec.ConfigDigest = ""
	_, err = Verify(cfg, rec)
	assert.ErrorIs(t, err, ErrConfigMismatch)
}

func TestVerifyNeedsExpected(t *testing.T) {
	rec := &Recording{Version: FormatVersion, Difficulty: difficulty.Medium}
	_, err := Verify(config.Default(), rec)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported version")
}

func TestReplayStopsAtSessionEnd(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Duration = 3
	cfg.Events.Enabled = false
	rec := &Recording{
		Version:    FormatVersion,
		Seed:       1,
		Difficulty: difficulty.Easy,
		Sign:       difficulty.Sign{Material: difficulty.Cardboard, Quality: 0.5},
	}
	for i := 0; i < 600; i++ {
		rec.Frames = append(rec.Frames, Frame{Dt: 1.0 / 60})
	}
	sum, err := Replay(cfg, rec)
	require.NoError(t, err)
	assert.Equal(t, engine.EndTimeExpired, sum.EndReason)
	assert.Less(t, sum.Frames, uint64(600))
}
