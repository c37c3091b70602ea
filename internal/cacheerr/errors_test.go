package cacheerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Parse("load", "/tmp/x.json", errors.New("unexpected EOF"))
	wrapped := fmt.Errorf("retrieve AAPL: %w", err)

	assert.ErrorIs(t, wrapped, ErrParse)
	assert.NotErrorIs(t, wrapped, ErrConfig)
	assert.Equal(t, KindParse, KindOf(wrapped))
	assert.Contains(t, err.Error(), "/tmp/x.json")
	assert.Contains(t, err.Error(), "unexpected EOF")
}

func TestErrorUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Fetch("fetch", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "range", KindOf(Rangef("add", "empty")).String())
}
