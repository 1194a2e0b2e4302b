// Command replay plays a recorded input stream against a fresh session and
// checks that it reproduces the recorded summary.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/talgya/holdup/internal/config"
	"github.com/talgya/holdup/internal/replay"
)

func main() {
	recordingPath := flag.String("recording", "", "path to a recording written by holdup -record")
	configPath := flag.String("config", "", "path to the JSON tuning file the recording was made with")
	flag.Parse()

	if *recordingPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --recording path/to/run.json [--config path/to/config.json]")
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(2)
		}
	}

	rec, err := replay.Load(*recordingPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Replaying %s frames of session %s (seed %d)\n",
		humanize.Comma(int64(len(rec.Frames))), rec.SessionID, rec.Seed)

	if rec.Expected == nil {
		sum, err := replay.Replay(cfg, rec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("No expected summary; replay ended %s with score %s\n",
			sum.EndReason, humanize.Comma(int64(sum.Score)))
		return
	}

	sum, err := replay.Verify(cfg, rec)
	if errors.Is(err, replay.ErrMismatch) {
		for _, d := range replay.Diff(*rec.Expected, sum) {
			fmt.Printf("  MISMATCH %s\n", d)
		}
		os.Exit(1)
	}
	if errors.Is(err, replay.ErrConfigMismatch) {
		fmt.Fprintf(os.Stderr, "%v\n  pass the --config the run was recorded with\n", err)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK: %s, score %s, %d events\n",
		sum.EndReason, humanize.Comma(int64(sum.Score)), len(sum.Events))
}
