// Package persistence stores finished session summaries in SQLite so runs
// can be listed and compared later.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/engine"
	"github.com/talgya/holdup/internal/events"
	"github.com/talgya/holdup/internal/traffic"
)

// ErrNotFound is returned when a session id is not in the store.
var ErrNotFound = errors.New("session not found")

// Tally kinds in the reaction_tally table.
const (
	tallyOutcome   = "outcome"
	tallySentiment = "sentiment"
)

// DB wraps a SQLite connection for session storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		material TEXT NOT NULL,
		quality REAL NOT NULL,
		texture_ref TEXT NOT NULL DEFAULT '',
		end_reason TEXT NOT NULL,
		frames INTEGER NOT NULL,
		elapsed REAL NOT NULL,
		time_penalty REAL NOT NULL,
		score INTEGER NOT NULL,
		raw_score INTEGER NOT NULL,
		confidence REAL NOT NULL,
		group_size INTEGER NOT NULL,
		deflects INTEGER NOT NULL,
		sign_degradation REAL NOT NULL,
		cars_spawned INTEGER NOT NULL,
		cars_skipped INTEGER NOT NULL,
		cars_exited INTEGER NOT NULL,
		saved_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS session_events (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		kind TEXT NOT NULL,
		start REAL NOT NULL,
		end_time REAL NOT NULL,
		resolved INTEGER NOT NULL,
		resolution TEXT NOT NULL,
		scenario TEXT NOT NULL,
		option INTEGER NOT NULL,
		forced INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS reaction_tally (
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (session_id, kind, name)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_score ON sessions(score);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SessionRow is one stored session, without its events and tallies.
type SessionRow struct {
	ID              string  `db:"id"`
	Seed            int64   `db:"seed"`
	Difficulty      string  `db:"difficulty"`
	Material        string  `db:"material"`
	Quality         float64 `db:"quality"`
	TextureRef      string  `db:"texture_ref"`
	EndReason       string  `db:"end_reason"`
	Frames          int64   `db:"frames"`
	Elapsed         float64 `db:"elapsed"`
	TimePenalty     float64 `db:"time_penalty"`
	Score           int     `db:"score"`
	RawScore        int     `db:"raw_score"`
	Confidence      float64 `db:"confidence"`
	GroupSize       int     `db:"group_size"`
	Deflects        int     `db:"deflects"`
	SignDegradation float64 `db:"sign_degradation"`
	CarsSpawned     int     `db:"cars_spawned"`
	CarsSkipped     int     `db:"cars_skipped"`
	CarsExited      int     `db:"cars_exited"`
	SavedAt         string  `db:"saved_at"`
}

type eventRow struct {
	ID         string  `db:"id"`
	Kind       string  `db:"kind"`
	Start      float64 `db:"start"`
	End        float64 `db:"end_time"`
	Resolved   bool    `db:"resolved"`
	Resolution string  `db:"resolution"`
	Scenario   string  `db:"scenario"`
	Option     int     `db:"option"`
	Forced     bool    `db:"forced"`
}

type tallyRow struct {
	Kind  string `db:"kind"`
	Name  string `db:"name"`
	Count int    `db:"count"`
}

// SaveSummary writes a finished session. Saving the same session again
// replaces the earlier copy.
func (db *DB) SaveSummary(sum engine.Summary) error {
	id := sum.SessionID.String()

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO sessions
		(id, seed, difficulty, material, quality, texture_ref, end_reason, frames,
		 elapsed, time_penalty, score, raw_score, confidence, group_size, deflects,
		 sign_degradation, cars_spawned, cars_skipped, cars_exited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sum.Seed, sum.Difficulty, sum.Sign.Material, sum.Sign.Quality, sum.Sign.TextureRef,
		sum.EndReason.String(), sum.Frames, sum.Elapsed, sum.TimePenalty,
		sum.Score, sum.RawScore, sum.Confidence, sum.GroupSize, sum.Deflects,
		sum.SignDegradation, sum.Traffic.Spawned, sum.Traffic.Skipped, sum.Traffic.Exited,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}

	for _, table := range []string{"session_events", "reaction_tally"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE session_id = ?", id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, r := range sum.Events {
		_, err := tx.Exec(`INSERT INTO session_events
			(session_id, seq, id, kind, start, end_time, resolved, resolution, scenario, option, forced)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, r.ID.String(), r.Kind.String(), r.Start, r.End,
			boolInt(r.Resolved), r.Resolution, r.Scenario, r.Option, boolInt(r.Forced),
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO reaction_tally (session_id, kind, name, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for kind, tally := range map[string]map[string]int{tallyOutcome: sum.Reactions, tallySentiment: sum.Sentiments} {
		for name, n := range tally {
			if _, err := stmt.Exec(id, kind, name, n); err != nil {
				return fmt.Errorf("insert tally %s/%s: %w", kind, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("session saved", "id", id, "events", len(sum.Events))
	return nil
}

// RecentSessions returns the most recently saved sessions, newest first.
func (db *DB) RecentSessions(limit int) ([]SessionRow, error) {
	var rows []SessionRow
	err := db.conn.Select(&rows, "SELECT * FROM sessions ORDER BY rowid DESC LIMIT ?", limit)
	return rows, err
}

// TopSessions returns the highest-scoring sessions.
func (db *DB) TopSessions(limit int) ([]SessionRow, error) {
	var rows []SessionRow
	err := db.conn.Select(&rows, "SELECT * FROM sessions ORDER BY score DESC, rowid ASC LIMIT ?", limit)
	return rows, err
}

// LoadSession rebuilds the full summary of a stored session.
func (db *DB) LoadSession(id uuid.UUID) (engine.Summary, error) {
	var row SessionRow
	err := db.conn.Get(&row, "SELECT * FROM sessions WHERE id = ?", id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Summary{}, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return engine.Summary{}, fmt.Errorf("load %s: %w", id, err)
	}

	sum := engine.Summary{
		SessionID:  id,
		Seed:       row.Seed,
		Difficulty: row.Difficulty,
		Sign: difficulty.Sign{
			Material:   row.Material,
			Quality:    row.Quality,
			TextureRef: row.TextureRef,
		},
		Frames:          uint64(row.Frames),
		Elapsed:         row.Elapsed,
		TimePenalty:     row.TimePenalty,
		Score:           row.Score,
		RawScore:        row.RawScore,
		Confidence:      row.Confidence,
		GroupSize:       row.GroupSize,
		Deflects:        row.Deflects,
		SignDegradation: row.SignDegradation,
		Reactions:       make(map[string]int),
		Sentiments:      make(map[string]int),
		Events:          make([]events.Record, 0),
		Traffic: traffic.Stats{
			Spawned: row.CarsSpawned,
			Skipped: row.CarsSkipped,
			Exited:  row.CarsExited,
		},
	}
	if err := sum.EndReason.UnmarshalText([]byte(row.EndReason)); err != nil {
		return engine.Summary{}, fmt.Errorf("load %s: %w", id, err)
	}

	var evs []eventRow
	if err := db.conn.Select(&evs, `SELECT id, kind, start, end_time, resolved, resolution, scenario, option, forced
		FROM session_events WHERE session_id = ? ORDER BY seq`, id.String()); err != nil {
		return engine.Summary{}, fmt.Errorf("load events: %w", err)
	}
	for _, e := range evs {
		r := events.Record{
			Start:      e.Start,
			End:        e.End,
			Resolved:   e.Resolved,
			Resolution: e.Resolution,
			Scenario:   e.Scenario,
			Option:     e.Option,
			Forced:     e.Forced,
		}
		if r.ID, err = uuid.Parse(e.ID); err != nil {
			return engine.Summary{}, fmt.Errorf("load events: %w", err)
		}
		if err := r.Kind.UnmarshalText([]byte(e.Kind)); err != nil {
			return engine.Summary{}, fmt.Errorf("load events: %w", err)
		}
		sum.Events = append(sum.Events, r)
	}

	var tallies []tallyRow
	if err := db.conn.Select(&tallies, "SELECT kind, name, count FROM reaction_tally WHERE session_id = ?", id.String()); err != nil {
		return engine.Summary{}, fmt.Errorf("load tallies: %w", err)
	}
	for _, t := range tallies {
		switch t.Kind {
		case tallyOutcome:
			sum.Reactions[t.Name] = t.Count
		case tallySentiment:
			sum.Sentiments[t.Name] = t.Count
		}
	}
	return sum, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
