// Command holdup plays one session at the intersection with the autopilot
// holding the sign, then stores the summary and optionally the input
// recording.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/holdup/internal/autopilot"
	"github.com/talgya/holdup/internal/config"
	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/engine"
	"github.com/talgya/holdup/internal/entropy"
	"github.com/talgya/holdup/internal/persistence"
	"github.com/talgya/holdup/internal/replay"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON tuning file (defaults built in)")
	seed := flag.Int64("seed", 0, "session seed (0 picks one from the clock)")
	level := flag.String("difficulty", difficulty.Medium, "difficulty profile")
	material := flag.String("material", difficulty.Cardboard, "sign material")
	quality := flag.Float64("quality", 0.7, "sign quality score, 0-1")
	dbPath := flag.String("db", envOrDefault("HOLDUP_DB", "data/holdup.db"), "SQLite file for session summaries, empty to skip")
	recordPath := flag.String("record", "", "write the input recording to this file")
	realtime := flag.Bool("realtime", false, "pace frames in real time")
	speed := flag.Float64("speed", 1, "real-time speed multiplier")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	setupLogging(*verbose)

	// ── Config ────────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	// ── Session ───────────────────────────────────────────────────────
	opts := engine.Options{
		Seed:       *seed,
		Difficulty: *level,
		Sign:       difficulty.Sign{Material: *material, Quality: *quality},
	}
	sess, err := engine.NewSession(cfg, opts)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}
	opts.ID = sess.ID()

	eng := engine.NewEngine(cfg.Session.TickRate)
	eng.Realtime = *realtime
	eng.Speed = *speed
	eng.OnFrame = func(f engine.Frame) {
		for _, n := range f.Notifications {
			switch n.Kind {
			case engine.NoticeReaction:
				slog.Debug("reaction", "car", n.CarID, "outcome", n.Message, "score", n.Score, "deflected", n.Deflected)
			case engine.NoticeEventEffect, engine.NoticeCrowd:
				fmt.Printf("[%6.1fs] %s\n", n.Elapsed, n.Message)
			}
		}
	}

	pilot := autopilot.New(autopilot.DefaultConfig(), entropy.New(*seed).Fork(entropy.SaltPilot))
	rec, err := replay.NewRecorder(pilot, cfg, opts, eng.Interval.Seconds())
	if err != nil {
		slog.Error("failed to start recording", "error", err)
		os.Exit(1)
	}

	// ── Run ───────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := eng.Run(ctx, sess, rec)
	if errors.Is(err, context.Canceled) {
		slog.Warn("session interrupted", "elapsed", fmt.Sprintf("%.1f", sum.Elapsed))
	} else if err != nil {
		slog.Error("session failed", "error", err)
		os.Exit(1)
	}

	// ── Outputs ───────────────────────────────────────────────────────
	if *recordPath != "" {
		if err := replay.Save(*recordPath, rec.Finish(sum)); err != nil {
			slog.Error("failed to save recording", "error", err)
		} else {
			slog.Info("recording saved", "path", *recordPath, "frames", sum.Frames)
		}
	}

	rank := 0
	if *dbPath != "" {
		rank = store(*dbPath, sum)
	}
	printSummary(sum, rank)
}

func setupLogging(verbose bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// store saves the summary and returns its rank by score among all stored
// sessions, or 0 if it could not be stored.
func store(path string, sum engine.Summary) int {
	if dir := filepath.Dir(path); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return 0
	}
	defer db.Close()

	if err := db.SaveSummary(sum); err != nil {
		slog.Error("failed to save session", "error", err)
		return 0
	}
	if err := db.SaveMeta("last_session", sum.SessionID.String()); err != nil {
		slog.Warn("failed to save meta", "error", err)
	}

	top, err := db.TopSessions(10000)
	if err != nil {
		return 0
	}
	for i, row := range top {
		if row.ID == sum.SessionID.String() {
			return i + 1
		}
	}
	return 0
}

func printSummary(sum engine.Summary, rank int) {
	fmt.Printf("\nSession %s (%s, %s sign)\n", sum.SessionID, sum.Difficulty, sum.Sign.Material)
	fmt.Printf("  ended:       %s after %.1fs (%s frames, %.0fs lost to the police)\n",
		sum.EndReason, sum.Elapsed, humanize.Comma(int64(sum.Frames)), sum.TimePenalty)
	fmt.Printf("  score:       %s\n", humanize.Comma(int64(sum.Score)))
	fmt.Printf("  confidence:  %.1f (crowd of %d)\n", sum.Confidence, sum.GroupSize)
	fmt.Printf("  reactions:   %s (%d positive, %d neutral, %d negative, %d deflected)\n",
		humanize.Comma(int64(sum.ReactionCount())),
		sum.Sentiments["positive"], sum.Sentiments["neutral"], sum.Sentiments["negative"], sum.Deflects)
	fmt.Printf("  traffic:     %s cars, %d spawns skipped\n", humanize.Comma(int64(sum.Traffic.Spawned)), sum.Traffic.Skipped)
	for _, r := range sum.Events {
		fmt.Printf("  event:       %-9s at %5.1fs  %s\n", r.Kind, r.Start, r.Resolution)
	}
	if rank > 0 {
		fmt.Printf("  rank:        %s best stored run\n", humanize.Ordinal(rank))
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
