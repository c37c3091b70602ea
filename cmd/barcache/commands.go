package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"barcache/internal/app"
	"barcache/internal/chart"
	"barcache/internal/export"
	"barcache/internal/market"
	"barcache/internal/rangefile"
)

var stdout io.Writer = os.Stdout

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsage(err error) bool {
	var u usageError
	return errors.As(err, &u) || errors.Is(err, flag.ErrHelp)
}

// window holds the flags shared by every command that names a series.
type window struct {
	ticker string
	tf     string
	start  string
	end    string
}

func (w *window) register(fs *flag.FlagSet) {
	fs.StringVar(&w.ticker, "ticker", "", "ticker directory name, e.g. BTCUSDT")
	fs.StringVar(&w.tf, "tf", "1h", "timeframe key or name")
	fs.StringVar(&w.start, "start", "", "window start (unix seconds, RFC3339 or 2006-01-02)")
	fs.StringVar(&w.end, "end", "", "window end, inclusive (default now)")
}

func (w *window) resolve(now time.Time) (string, market.Timeframe, int64, int64, error) {
	if strings.TrimSpace(w.ticker) == "" {
		return "", 0, 0, 0, usagef("-ticker is required")
	}
	tf, err := market.ParseTimeframe(w.tf)
	if err != nil {
		return "", 0, 0, 0, usagef("-tf: %v", err)
	}
	if strings.TrimSpace(w.start) == "" {
		return "", 0, 0, 0, usagef("-start is required")
	}
	start, err := parseTime(w.start)
	if err != nil {
		return "", 0, 0, 0, usagef("-start: %v", err)
	}
	end := now.Unix()
	if strings.TrimSpace(w.end) != "" {
		if end, err = parseTime(w.end); err != nil {
			return "", 0, 0, 0, usagef("-end: %v", err)
		}
	}
	return w.ticker, tf, start, end, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseTime accepts unix seconds or a UTC date/time.
func parseTime(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("cannot parse %q as a time", raw)
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(os.Stderr)
	return fs.Parse(args)
}

func runRetrieve(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("retrieve", flag.ContinueOnError)
	var w window
	w.register(fs)
	asJSON := fs.Bool("json", false, "print bars as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ticker, tf, start, end, err := w.resolve(time.Now())
	if err != nil {
		return err
	}
	bars, err := a.Broker.Retrieve(ctx, ticker, tf, start, end)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if bars == nil {
			bars = []market.Bar{}
		}
		return enc.Encode(bars)
	}
	return printBars(stdout, bars)
}

func printBars(w io.Writer, bars []market.Bar) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "time\topen\thigh\tlow\tclose\tvolume\twap")
	for _, b := range bars {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%g\t%g\t%g\n",
			b.TimeString(), b.Open, b.High, b.Low, b.Close, b.Volume, b.WAP)
	}
	fmt.Fprintf(tw, "(%d bars)\n", len(bars))
	return tw.Flush()
}

func runHas(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("has", flag.ContinueOnError)
	var w window
	w.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ticker, tf, start, end, err := w.resolve(time.Now())
	if err != nil {
		return err
	}
	ok, err := a.Broker.Has(ticker, tf, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, ok)
	return nil
}

// runInspect summarizes the files given as arguments, or every file of one
// ticker when -ticker is set.
func runInspect(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	ticker := fs.String("ticker", "", "inspect every timeframe file of this ticker")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	paths := fs.Args()
	if *ticker != "" {
		tfs, err := a.Broker.Timeframes(*ticker)
		if err != nil {
			return err
		}
		for _, tf := range tfs {
			p, err := a.Broker.Path(*ticker, tf)
			if err != nil {
				return err
			}
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return usagef("inspect needs -ticker or file arguments")
	}
	for _, p := range paths {
		sum, err := rangefile.Inspect(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, sum.String())
	}
	return nil
}

func runExport(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var w window
	w.register(fs)
	dir := fs.String("dir", a.Config.Export.Dir, "export directory")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ticker, tf, start, end, err := w.resolve(time.Now())
	if err != nil {
		return err
	}
	bars, err := a.Broker.Retrieve(ctx, ticker, tf, start, end)
	if err != nil {
		return err
	}
	ex, err := export.New(*dir)
	if err != nil {
		return err
	}
	defer ex.Close()
	n, err := ex.Write(ctx, ticker, tf, bars)
	if err != nil {
		return err
	}
	m, err := ex.Manifest(ctx, ticker, tf)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d bars to %s (%d rows total)\n", n, m.Path, m.Rows)
	return nil
}

func runChart(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("chart", flag.ContinueOnError)
	var w window
	w.register(fs)
	dir := fs.String("dir", a.Config.Chart.Dir, "chart output directory")
	png := fs.Bool("png", a.Config.Chart.PNG, "also render a PNG screenshot with headless Chrome")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ticker, tf, start, end, err := w.resolve(time.Now())
	if err != nil {
		return err
	}
	bars, err := a.Broker.Retrieve(ctx, ticker, tf, start, end)
	if err != nil {
		return err
	}
	files, err := chart.Write(ctx, *dir, bars, chart.Options{
		Symbol:     ticker,
		Timeframe:  tf,
		EMAPeriods: a.Config.Chart.EMAPeriods,
	}, *png)
	if files.HTML != "" {
		fmt.Fprintln(stdout, files.HTML)
	}
	if files.PNG != "" {
		fmt.Fprintln(stdout, files.PNG)
	}
	return err
}

func runTickers(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("tickers", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ticker\tstate\ttimeframes")
	for _, name := range a.Broker.Tickers() {
		state := a.Broker.State(name)
		tfs, err := a.Broker.Timeframes(name)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(tfs))
		for _, tf := range tfs {
			keys = append(keys, tf.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, state, strings.Join(keys, ","))
	}
	fmt.Fprintf(tw, "(root %s)\n", filepath.Clean(a.Broker.Root()))
	return tw.Flush()
}

func runJournal(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	ticker := fs.String("ticker", "", "only this ticker")
	tfKey := fs.String("tf", "", "with -ticker, also print fetch totals for this timeframe")
	limit := fs.Int("n", 20, "number of records")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if a.Journal == nil {
		return usagef("the fetch journal is disabled")
	}
	if *ticker != "" && *tfKey != "" {
		tf, err := market.ParseTimeframe(*tfKey)
		if err != nil {
			return usagef("-tf: %v", err)
		}
		total, failed, err := a.Journal.Stats(ctx, *ticker, tf)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %s: %d fetches, %d failed\n", *ticker, tf, total, failed)
	}
	recs, err := a.Journal.Recent(ctx, *ticker, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "when\tsymbol\ttf\twindow\tbars\texpected\telapsed\tstatus")
	for _, r := range recs {
		status := r.Status
		if r.Error != "" {
			status += ": " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d..%d\t%d\t%d\t%s\t%s\n",
			r.CreatedAt.UTC().Format(time.DateTime), r.Symbol, r.Timeframe,
			r.Start, r.End, r.Bars, r.Expected, r.Elapsed.Round(time.Millisecond), status)
	}
	return tw.Flush()
}
