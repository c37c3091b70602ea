// Package rangefile persists a rangestore.Store as one pretty-printed JSON
// document per file.
package rangefile

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"barcache/internal/cacheerr"
	"barcache/internal/logger"
	"barcache/internal/rangestore"

	"github.com/tidwall/gjson"
)

// LoadOrCreate opens the store saved at path. A missing file yields an empty
// store after its parent directory has been created. A file that exists but
// cannot be decoded is an error; it is never replaced by an empty store.
func LoadOrCreate[K cmp.Ordered, T any, V any](path string, keyOf func(T) K) (*rangestore.Store[K, T, V], error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := ensureParent(path); err != nil {
			return nil, err
		}
		logger.Debugf("[rangefile] %s missing, starting empty", path)
		return rangestore.New[K, T, V](keyOf), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decode[K, T, V](path, raw, keyOf)
}

func decode[K cmp.Ordered, T any, V any](path string, raw []byte, keyOf func(T) K) (*rangestore.Store[K, T, V], error) {
	if !gjson.ValidBytes(raw) {
		return nil, cacheerr.Parse("load", path, errors.New("not valid JSON"))
	}
	if err := validateDocument(raw); err != nil {
		return nil, cacheerr.Parse("load", path, err)
	}
	var doc rangestore.Document[K, T, V]
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, cacheerr.Parse("load", path, err)
	}
	store, err := rangestore.FromDocument(doc, keyOf)
	if err != nil {
		var ce *cacheerr.Error
		if errors.As(err, &ce) {
			ce.Op, ce.Path = "load", path
			return nil, ce
		}
		return nil, cacheerr.Parse("load", path, err)
	}
	logger.Debugf("[rangefile] loaded %s ranges=%d points=%d intervals=%d",
		path, store.Len(), store.TotalLen(), store.IntervalLen())
	return store, nil
}

// Save writes the store to path, creating parent directories. The file is
// overwritten in place.
func Save[K cmp.Ordered, T any, V any](store *rangestore.Store[K, T, V], path string) error {
	if store == nil {
		return errors.New("rangefile: nil store")
	}
	if err := ensureParent(path); err != nil {
		return err
	}
	raw, err := Marshal(store)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Debugf("[rangefile] saved %s (%d bytes)", path, len(raw))
	return nil
}

// Marshal renders the store document with two-space indentation.
func Marshal[K cmp.Ordered, T any, V any](store *rangestore.Store[K, T, V]) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(store.Document()); err != nil {
		return nil, fmt.Errorf("encode range document: %w", err)
	}
	return buf.Bytes(), nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cacheerr.Config("mkdir", dir, err)
	}
	return nil
}
