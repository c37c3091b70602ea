package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"barcache/internal/app"
	"barcache/internal/cacheerr"
	bccfg "barcache/internal/config"
	"barcache/internal/logger"
)

const usage = `usage: barcache <command> [flags]

commands:
  retrieve  fetch-through read of a ticker window
  has       report whether a window is cached, without fetching
  inspect   summarize range files on disk
  export    write a window into a SQLite candle database
  chart     render a window as an HTML (and optionally PNG) chart
  tickers   list tickers under the cache root
  journal   show recent remote fetches

config is read from $` + bccfg.EnvPath + ` when set.
`

type command func(ctx context.Context, a *app.App, args []string) error

var commands = map[string]command{
	"retrieve": runRetrieve,
	"has":      runHas,
	"inspect":  runInspect,
	"export":   runExport,
	"chart":    runChart,
	"tickers":  runTickers,
	"journal":  runJournal,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Fprint(os.Stdout, usage)
		return
	}
	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg, cfgPath, err := bccfg.LoadEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	if cfgPath != "" {
		logger.Debugf("[cli] config=%s", cfgPath)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	if logger.Logger().Enabled(context.Background(), slog.LevelDebug) {
		a.Summary.Print(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := run(ctx, a, os.Args[2:])
	stop()
	if err := a.Close(); err != nil {
		logger.Errorf("[cli] close: %v", err)
		if runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "barcache %s: %v\n", name, runErr)
		os.Exit(exitCode(runErr))
	}
}

// exitCode maps error kinds to distinct process exit statuses.
func exitCode(err error) int {
	switch cacheerr.KindOf(err) {
	case cacheerr.KindConfig:
		return 3
	case cacheerr.KindParse:
		return 4
	case cacheerr.KindRange:
		return 5
	case cacheerr.KindFetch:
		return 6
	default:
		if isUsage(err) {
			return 2
		}
		return 1
	}
}

// Logs go to stderr so command output on stdout stays clean.
func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		logger.SetOutput(os.Stderr)
		log.SetOutput(os.Stderr)
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stderr, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
