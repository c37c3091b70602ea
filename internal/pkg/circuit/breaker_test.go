package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerTripsAndRecovers(t *testing.T) {
	clock := time.Unix(1_000, 0)
	b := New("test", 2, time.Minute)
	b.now = func() time.Time { return clock }

	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }
	ok := func(context.Context) error { return nil }
	ctx := context.Background()

	assert.ErrorIs(t, b.Do(ctx, fail), boom)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Do(ctx, fail), boom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	clock = clock.Add(time.Minute)
	assert.NoError(t, b.Do(ctx, ok))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Unix(0, 0)
	b := New("test", 1, time.Second)
	b.now = func() time.Time { return clock }
	fail := func(context.Context) error { return errors.New("x") }

	_ = b.Do(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State())
	clock = clock.Add(2 * time.Second)
	_ = b.Do(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := New("test", 1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerZeroThresholdNeverTrips(t *testing.T) {
	b := New("test", 0, time.Hour)
	for i := 0; i < 5; i++ {
		_ = b.Do(context.Background(), func(context.Context) error { return errors.New("x") })
	}
	assert.Equal(t, StateClosed, b.State())
}
