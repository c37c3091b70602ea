// Package cacheerr classifies the failures surfaced by the bar cache so
// callers can branch on errors.Is without string matching.
package cacheerr

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an Error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig covers bad root paths and directory creation failures.
	KindConfig
	// KindParse covers corrupt or schema-violating persisted documents.
	KindParse
	// KindRange covers rejected store inputs (empty points, start > end).
	KindRange
	// KindFetch covers remote source failures and timeouts.
	KindFetch
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindParse:
		return "parse"
	case KindRange:
		return "range"
	case KindFetch:
		return "fetch"
	default:
		return "unknown"
	}
}

var (
	ErrConfig = &Error{Kind: KindConfig}
	ErrParse  = &Error{Kind: KindParse}
	ErrRange  = &Error{Kind: KindRange}
	ErrFetch  = &Error{Kind: KindFetch}
)

// Error carries the kind plus the operation and path that failed.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrParse) works
// regardless of Op/Path.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func Config(op, path string, err error) error {
	return &Error{Kind: KindConfig, Op: op, Path: path, Err: err}
}

func Parse(op, path string, err error) error {
	return &Error{Kind: KindParse, Op: op, Path: path, Err: err}
}

func Rangef(op, format string, args ...any) error {
	return &Error{Kind: KindRange, Op: op, Err: fmt.Errorf(format, args...)}
}

func Fetch(op string, err error) error {
	return &Error{Kind: KindFetch, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
