package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntilSucceeds(t *testing.T) {
	attempts := 0
	err := pollUntil(context.Background(), time.Millisecond, 100*time.Millisecond, func(context.Context) (bool, error) {
		attempts++
		return attempts == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestPollUntilTimesOut(t *testing.T) {
	err := pollUntil(context.Background(), time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrSyncTimeout)
}

func TestPollUntilNeverRunsUnbounded(t *testing.T) {
	attempts := 0
	_ = pollUntil(context.Background(), time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		attempts++
		return false, nil
	})
	assert.LessOrEqual(t, attempts, 11)
}

func TestPollUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := pollUntil(ctx, time.Millisecond, time.Minute, func(context.Context) (bool, error) {
		attempts++
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSyncTimeout)
}

func TestPollUntilPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := pollUntil(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPollUntilRejectsBadParams(t *testing.T) {
	err := pollUntil(context.Background(), 0, time.Second, func(context.Context) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, ErrInvalidInput)
}
