// Command inspect lists stored session summaries, or shows one in full.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/holdup/internal/persistence"
)

func main() {
	dbPath := flag.String("db", envOrDefault("HOLDUP_DB", "data/holdup.db"), "SQLite file with session summaries")
	limit := flag.Int("limit", 10, "number of sessions to list")
	top := flag.Bool("top", false, "list by score instead of recency")
	id := flag.String("id", "", "show one session in full")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "no database at %s\n", *dbPath)
		os.Exit(2)
	}
	db, err := persistence.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(2)
	}
	defer db.Close()

	if *id != "" {
		os.Exit(showSession(db, *id))
	}
	os.Exit(listSessions(db, *limit, *top))
}

func listSessions(db *persistence.DB, limit int, top bool) int {
	var rows []persistence.SessionRow
	var err error
	if top {
		rows, err = db.TopSessions(limit)
	} else {
		rows, err = db.RecentSessions(limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "list sessions: %v\n", err)
		return 1
	}
	if len(rows) == 0 {
		fmt.Println("no sessions stored yet")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSAVED\tDIFFICULTY\tSIGN\tSCORE\tCONFIDENCE\tENDED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %.2f\t%s\t%.1f\t%s at %.0fs\n",
			r.ID[:8], savedAgo(r.SavedAt), r.Difficulty, r.Material, r.Quality,
			humanize.Comma(int64(r.Score)), r.Confidence, r.EndReason, r.Elapsed)
	}
	w.Flush()
	return 0
}

func showSession(db *persistence.DB, raw string) int {
	id, err := uuid.Parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad session id: %v\n", err)
		return 2
	}
	sum, err := db.LoadSession(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	fmt.Printf("Session %s\n", sum.SessionID)
	fmt.Printf("  seed %d, %s, %s sign at quality %.2f\n", sum.Seed, sum.Difficulty, sum.Sign.Material, sum.Sign.Quality)
	fmt.Printf("  %s after %.1fs (%s frames)\n", sum.EndReason, sum.Elapsed, humanize.Comma(int64(sum.Frames)))
	fmt.Printf("  score %s, confidence %.1f, sign %.0f%% soaked\n",
		humanize.Comma(int64(sum.Score)), sum.Confidence, sum.SignDegradation*100)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nOUTCOME\tCOUNT")
	for outcome, n := range sum.Reactions {
		fmt.Fprintf(w, "%s\t%d\n", outcome, n)
	}
	fmt.Fprintln(w, "\nEVENT\tSTART\tEND\tRESOLUTION\tDETAIL")
	for _, r := range sum.Events {
		detail := ""
		if r.Scenario != "" {
			detail = fmt.Sprintf("%s, option %d", r.Scenario, r.Option)
		}
		if r.Forced {
			detail += " (forced)"
		}
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%s\t%s\n", r.Kind, r.Start, r.End, r.Resolution, detail)
	}
	w.Flush()
	return 0
}

func savedAgo(s string) string {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return s
	}
	return humanize.Time(t)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
