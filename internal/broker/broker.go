// Package broker resolves (ticker, timeframe, window) requests against an
// in-memory store, the on-disk range files, and finally a remote Fetcher.
//
// A Broker is owned by a single goroutine; it does no locking of its own.
package broker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"barcache/internal/cacheerr"
	"barcache/internal/logger"
	"barcache/internal/market"
	"barcache/internal/rangefile"
	"barcache/internal/rangestore"

	"github.com/google/uuid"
)

// DefaultRoot is used when Config.Root is empty.
const DefaultRoot = "@data"

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("broker: closed")

// BarStore holds the bars of one (ticker, timeframe) plus the windows
// already fetched for it.
type BarStore = rangestore.Store[int64, market.Bar, Coverage]

type Config struct {
	Root    string
	Files   market.FileTable
	Fetcher Fetcher
	// Journal is optional.
	Journal Journal
}

type frame struct {
	state Presence
	path  string
	store *BarStore
	dirty bool
}

type ticker struct {
	state  Presence
	dir    string
	frames map[market.Timeframe]*frame
}

type Broker struct {
	root    string
	files   market.FileTable
	fetcher Fetcher
	journal Journal
	tickers map[string]*ticker
	now     func() time.Time
	closed  bool
}

// New creates the root directory if needed and lists the tickers already
// on disk. Nothing is parsed until a ticker is first used.
func New(cfg Config) (*Broker, error) {
	if cfg.Fetcher == nil {
		return nil, cacheerr.Config("broker", "", errors.New("fetcher is required"))
	}
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		root = DefaultRoot
	}
	files := cfg.Files
	if files == nil {
		files = market.DefaultFileTable()
	}
	if err := files.Validate(); err != nil {
		return nil, cacheerr.Config("broker", root, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, cacheerr.Config("mkdir", root, err)
	}
	b := &Broker{
		root:    root,
		files:   files,
		fetcher: cfg.Fetcher,
		journal: cfg.Journal,
		tickers: make(map[string]*ticker),
		now:     time.Now,
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, cacheerr.Config("scan", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b.tickers[e.Name()] = &ticker{state: KnownUnrealized, dir: filepath.Join(root, e.Name())}
	}
	logger.Infof("[broker] root=%s tickers=%d source=%s", root, len(b.tickers), cfg.Fetcher.Name())
	return b, nil
}

func (b *Broker) Root() string { return b.root }

// Retrieve returns the bars of ticker/tf inside [start,end], fetching only
// the closed parts of the window that were never fetched before. The bar
// still forming at now is never requested, so a window reaching into it is
// answered from the closed bars alone.
func (b *Broker) Retrieve(ctx context.Context, name string, tf market.Timeframe, start, end int64) ([]market.Bar, error) {
	name = strings.TrimSpace(name)
	if end < start {
		start, end = end, start
	}
	f, err := b.frame(name, tf)
	if err != nil {
		return nil, err
	}
	windows := b.missing(f.store, tf, start, end)
	if len(windows) == 0 {
		bars := f.store.Query(start, end).Points
		logger.Debugf("[broker] hit %s %s [%d,%d] bars=%d", name, tf, start, end, len(bars))
		return bars, nil
	}

	logger.Infof("[broker] miss %s %s [%d,%d] windows=%d", name, tf, start, end, len(windows))
	stamp := Coverage{Source: b.fetcher.Name(), FetchedAt: b.now().Unix()}
	for _, w := range windows {
		bars, err := b.fetch(ctx, FetchRequest{Symbol: name, Timeframe: tf, Start: w.Start, End: w.End})
		if err != nil {
			if f.dirty {
				if serr := b.save(f); serr != nil {
					logger.Warnf("[broker] save after failed fetch %s: %v", f.path, serr)
				}
			}
			return nil, err
		}
		if len(bars) > 0 {
			if err := f.store.AddRange(bars); err != nil {
				return nil, err
			}
		}
		if err := f.store.SetRange(w.Start, w.End, stamp); err != nil {
			return nil, err
		}
		f.dirty = true
	}
	if err := b.save(f); err != nil {
		return nil, err
	}
	return f.store.Query(start, end).Points, nil
}

// missing lists the windows of [start,end] that hold neither bars nor a
// coverage stamp. The window is first cut at the last closed slot.
func (b *Broker) missing(s *BarStore, tf market.Timeframe, start, end int64) []rangestore.Window[int64] {
	end = min(end, tf.AlignDown(b.now().Unix())-1)
	if end < start {
		return nil
	}
	var out []rangestore.Window[int64]
	for _, g := range s.Gaps(start, end) {
		out = append(out, s.Uncovered(g.Start, g.End)...)
	}
	return out
}

func (b *Broker) fetch(ctx context.Context, req FetchRequest) ([]market.Bar, error) {
	ev := FetchEvent{ID: uuid.NewString(), Source: b.fetcher.Name(), Request: req, StartedAt: b.now()}
	bars, err := b.fetcher.Fetch(ctx, req)
	ev.Elapsed = time.Since(ev.StartedAt)
	ev.Bars, ev.Err = len(bars), err
	if b.journal != nil {
		if jerr := b.journal.RecordFetch(ctx, ev); jerr != nil {
			logger.Warnf("[broker] journal %s: %v", ev.ID, jerr)
		}
	}
	if err != nil {
		if cacheerr.KindOf(err) == cacheerr.KindFetch {
			return nil, err
		}
		return nil, cacheerr.Fetch(b.fetcher.Name(), err)
	}
	logger.Debugf("[broker] fetched %s %s [%d,%d] bars=%d in %s",
		req.Symbol, req.Timeframe, req.Start, req.End, len(bars), ev.Elapsed.Round(time.Millisecond))
	return bars, nil
}

// Has reports whether [start,end] can be answered without a fetch. Like
// Retrieve it only considers the slots closed at now.
func (b *Broker) Has(name string, tf market.Timeframe, start, end int64) (bool, error) {
	f, err := b.frame(name, tf)
	if err != nil {
		return false, err
	}
	if end < start {
		start, end = end, start
	}
	return len(b.missing(f.store, tf, start, end)) == 0, nil
}

// Lookup returns the cached bar opening at ts.
func (b *Broker) Lookup(name string, tf market.Timeframe, ts int64) (market.Bar, bool, error) {
	f, err := b.frame(name, tf)
	if err != nil {
		return market.Bar{}, false, err
	}
	bar, ok := f.store.Point(ts)
	return bar, ok, nil
}

// Insert merges bars obtained elsewhere and saves the file.
func (b *Broker) Insert(name string, tf market.Timeframe, bars []market.Bar) error {
	f, err := b.frame(name, tf)
	if err != nil {
		return err
	}
	if err := f.store.AddRange(bars); err != nil {
		return err
	}
	f.dirty = true
	return b.save(f)
}

// Store exposes the realized store of ticker/tf for read-only use.
func (b *Broker) Store(name string, tf market.Timeframe) (*BarStore, error) {
	f, err := b.frame(name, tf)
	if err != nil {
		return nil, err
	}
	return f.store, nil
}

// Tickers lists every ticker seen on disk or used since New, sorted.
func (b *Broker) Tickers() []string {
	out := make([]string, 0, len(b.tickers))
	for name := range b.tickers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (b *Broker) NumTickers() int { return len(b.tickers) }

// Timeframes realizes the ticker and lists its known timeframes.
func (b *Broker) Timeframes(name string) ([]market.Timeframe, error) {
	t, err := b.ticker(name)
	if err != nil {
		return nil, err
	}
	out := make([]market.Timeframe, 0, len(t.frames))
	for tf, f := range t.frames {
		if f.state != Absent {
			out = append(out, tf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// State reports the ticker presence without touching the disk.
func (b *Broker) State(name string) Presence {
	if t, ok := b.tickers[name]; ok {
		return t.state
	}
	return Absent
}

// TimeframeState reports the timeframe presence without touching the disk.
// Frames of a ticker that is not realized yet report Absent.
func (b *Broker) TimeframeState(name string, tf market.Timeframe) Presence {
	t, ok := b.tickers[name]
	if !ok || t.frames == nil {
		return Absent
	}
	if f, ok := t.frames[tf]; ok {
		return f.state
	}
	return Absent
}

// Path is the file ticker/tf is saved to.
func (b *Broker) Path(name string, tf market.Timeframe) (string, error) {
	name = strings.TrimSpace(name)
	file, ok := b.files.File(tf)
	if !ok {
		return "", cacheerr.Config("path", name, fmt.Errorf("no file name for timeframe %s", tf))
	}
	return filepath.Join(b.root, name, file), nil
}

// Flush saves every store with unsaved changes.
func (b *Broker) Flush() error {
	if b.closed {
		return ErrClosed
	}
	var errs []error
	for _, name := range b.Tickers() {
		t := b.tickers[name]
		for _, f := range t.frames {
			if f.state != Realized || !f.dirty {
				continue
			}
			if err := b.save(f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close flushes and releases the broker. It is safe to call twice.
func (b *Broker) Close() error {
	if b.closed {
		return nil
	}
	err := b.Flush()
	b.closed = true
	return err
}

func (b *Broker) save(f *frame) error {
	if err := rangefile.Save(f.store, f.path); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

func (b *Broker) ticker(name string) (*ticker, error) {
	if b.closed {
		return nil, ErrClosed
	}
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return nil, cacheerr.Config("ticker", name, errors.New("invalid ticker name"))
	}
	t, ok := b.tickers[name]
	if !ok {
		t = &ticker{state: Absent, dir: filepath.Join(b.root, name)}
		b.tickers[name] = t
	}
	if t.state == Realized {
		return t, nil
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return nil, cacheerr.Config("mkdir", t.dir, err)
	}
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.dir, err)
	}
	t.frames = make(map[market.Timeframe]*frame)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		tf, ok := b.files.Lookup(e.Name())
		if !ok {
			continue
		}
		t.frames[tf] = &frame{state: KnownUnrealized, path: filepath.Join(t.dir, e.Name())}
	}
	t.state = Realized
	logger.Debugf("[broker] ticker %s realized with %d timeframe files", name, len(t.frames))
	return t, nil
}

func (b *Broker) frame(name string, tf market.Timeframe) (*frame, error) {
	name = strings.TrimSpace(name)
	if !tf.Valid() {
		return nil, cacheerr.Config("timeframe", name, fmt.Errorf("invalid timeframe %d", int(tf)))
	}
	t, err := b.ticker(name)
	if err != nil {
		return nil, err
	}
	f, ok := t.frames[tf]
	if !ok {
		path, err := b.Path(name, tf)
		if err != nil {
			return nil, err
		}
		f = &frame{state: Absent, path: path}
		t.frames[tf] = f
	}
	switch f.state {
	case Realized:
	case KnownUnrealized:
		store, err := rangefile.LoadOrCreate[int64, market.Bar, Coverage](f.path, market.BarKey)
		if err != nil {
			return nil, err
		}
		f.store, f.state = store, Realized
	default:
		f.store, f.state = rangestore.New[int64, market.Bar, Coverage](market.BarKey), Realized
	}
	return f, nil
}
