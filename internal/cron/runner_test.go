package cron

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakePurger) PurgeBefore(t time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, t)
	return f.n, f.err
}

func (f *fakePurger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(Config{}, &fakePurger{}, nil)

	assert.Equal(t, "@hourly", r.config.Schedule)
	assert.Equal(t, 72*time.Hour, r.config.Retention)
	assert.False(t, r.IsRunning())
}

func TestRunner_RunOnceUsesRetention(t *testing.T) {
	p := &fakePurger{n: 4}
	r := NewRunner(Config{Retention: 24 * time.Hour}, p, nil)
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	n, err := r.RunOnce()
	require.NoError(t, err)

	assert.Equal(t, int64(4), n)
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoffs[0])
}

func TestRunner_RunOnceError(t *testing.T) {
	r := NewRunner(Config{}, &fakePurger{err: errors.New("db locked")}, nil)

	_, err := r.RunOnce()
	assert.Error(t, err)
}

func TestRunner_StartStop(t *testing.T) {
	p := &fakePurger{}
	r := NewRunner(Config{Schedule: "@every 1h"}, p, nil)

	require.NoError(t, r.Start())
	assert.True(t, r.IsRunning())
	assert.Equal(t, 1, p.calls(), "purge runs once on start")

	assert.Error(t, r.Start(), "second start must fail")

	r.Stop()
	assert.False(t, r.IsRunning())
	r.Stop()
}

func TestRunner_InvalidSchedule(t *testing.T) {
	r := NewRunner(Config{Schedule: "every tuesday"}, &fakePurger{}, nil)

	assert.Error(t, r.Start())
	assert.False(t, r.IsRunning())
}
