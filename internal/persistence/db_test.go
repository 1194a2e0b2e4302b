package persistence

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/engine"
	"github.com/talgya/holdup/internal/events"
	"github.com/talgya/holdup/internal/traffic"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "holdup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSummary(name string, score int) engine.Summary {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	return engine.Summary{
		SessionID:   id,
		Seed:        99,
		Difficulty:  difficulty.Hard,
		Sign:        difficulty.Sign{Material: difficulty.Plywood, Quality: 0.65, TextureRef: "sign-7.png"},
		EndReason:   engine.EndTimeExpired,
		Frames:      10800,
		Elapsed:     172.01666666666668,
		TimePenalty: 8,
		Score:       score,
		RawScore:    score,
		Confidence:  41.25,
		GroupSize:   3,
		Reactions:   map[string]int{"honk": 12, "wave": 7, "yell": 2},
		Sentiments:  map[string]int{"positive": 19, "negative": 2},
		Deflects:    1,
		Events: []events.Record{
			{
				ID: uuid.NewSHA1(id, []byte("weather/0")), Kind: events.Weather,
				Start: 75, End: 101.5, Resolved: true, Resolution: events.ResolvedPassed, Forced: true,
			},
			{
				ID: uuid.NewSHA1(id, []byte("cop_check/1")), Kind: events.CopCheck,
				Start: 135, End: 138.2, Resolved: true, Resolution: events.ResolvedAnswered,
				Scenario: "permit", Option: 3, Forced: true,
			},
		},
		SignDegradation: 0.12,
		Traffic:         traffic.Stats{Spawned: 240, Skipped: 3, Exited: 230},
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	db := openTestDB(t)
	sum := sampleSummary("a", 212)
	require.NoError(t, db.SaveSummary(sum))

	got, err := db.LoadSession(sum.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sum, got)
}

func TestSaveReplacesEarlierCopy(t *testing.T) {
	db := openTestDB(t)
	sum := sampleSummary("a", 100)
	require.NoError(t, db.SaveSummary(sum))

	sum.Score = 150
	sum.Events = sum.Events[:1]
	sum.Reactions = map[string]int{"cheer": 1}
	require.NoError(t, db.SaveSummary(sum))

	got, err := db.LoadSession(sum.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 150, got.Score)
	assert.Len(t, got.Events, 1)
	assert.Equal(t, map[string]int{"cheer": 1}, got.Reactions)

	rows, err := db.RecentSessions(10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLoadMissingSession(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LoadSession(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecentAndTopSessions(t *testing.T) {
	db := openTestDB(t)
	for i, score := range []int{50, 300, 120} {
		require.NoError(t, db.SaveSummary(sampleSummary(string(rune('a'+i)), score)))
	}

	recent, err := db.RecentSessions(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 120, recent[0].Score)
	assert.Equal(t, 300, recent[1].Score)
	assert.Equal(t, "time_expired", recent[0].EndReason)
	assert.NotEmpty(t, recent[0].SavedAt)

	top, err := db.TopSessions(3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []int{300, 120, 50}, []int{top[0].Score, top[1].Score, top[2].Score})
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveMeta("last_session", "abc"))
	require.NoError(t, db.SaveMeta("last_session", "def"))
	v, err := db.GetMeta("last_session")
	require.NoError(t, err)
	assert.Equal(t, "def", v)
}
