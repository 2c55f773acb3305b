package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastdo_auth/internal/lib/logger/sl"
)

type memCleaner struct {
	mu      sync.Mutex
	expires []time.Time
	calls   int
	err     error
}

func (c *memCleaner) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.err != nil {
		return 0, c.err
	}

	var (
		kept    []time.Time
		deleted int64
	)
	for _, exp := range c.expires {
		if exp.Before(now) {
			deleted++
			continue
		}
		kept = append(kept, exp)
	}
	c.expires = kept

	return deleted, nil
}

func (c *memCleaner) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	cleaner := &memCleaner{expires: []time.Time{
		now.Add(-48 * time.Hour),
		now.Add(-time.Second),
		now,
		now.Add(time.Second),
		now.Add(7 * 24 * time.Hour),
	}}

	s := New(sl.NewDiscardLogger(), cleaner, "", time.Second).WithClock(func() time.Time { return now })

	deleted, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	require.Len(t, cleaner.expires, 3)
	for _, exp := range cleaner.expires {
		assert.False(t, exp.Before(now))
	}

	deleted, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSweep_Error(t *testing.T) {
	cleaner := &memCleaner{err: errors.New("connection refused")}

	s := New(sl.NewDiscardLogger(), cleaner, "", 0)

	_, err := s.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNew_DefaultSchedule(t *testing.T) {
	s := New(sl.NewDiscardLogger(), &memCleaner{}, "", 0)
	assert.Equal(t, DefaultSchedule, s.schedule)
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := New(sl.NewDiscardLogger(), &memCleaner{}, "every tuesday-ish", 0)

	require.Error(t, s.Start())
	require.NoError(t, s.Stop(context.Background()))
}

func TestStart_RunsOnSchedule(t *testing.T) {
	cleaner := &memCleaner{}

	s := New(sl.NewDiscardLogger(), cleaner, "@every 1s", time.Second)
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool {
		return cleaner.callCount() > 0
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
}
