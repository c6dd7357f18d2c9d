package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/docscan/internal/metrics"
)

func TestRateLimitedProcessor_Scan(t *testing.T) {
	prov := newScripted()
	prov.texts["a"] = "Nome: ANNA"
	prov.texts["b"] = "Nome: BRUNO"
	prov.delays["a"] = 20 * time.Millisecond

	base := NewProcessor(prov, testConfig(), nil, metrics.New())
	rp := NewRateLimitedProcessor(base, RateLimiterConfig{PerSecond: 1000, Burst: 2})

	result, err := rp.Scan(context.Background(), images("a", "b"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, "ANNA", result.Items[0].Record.Name().Value())
	assert.Equal(t, "BRUNO", result.Items[1].Record.Name().Value())
}

func TestRateLimitedProcessor_Unlimited(t *testing.T) {
	rp := NewRateLimitedProcessor(NewProcessor(newScripted(), testConfig(), nil, metrics.New()), RateLimiterConfig{})
	assert.Nil(t, rp.rateLimiter)
	assert.Equal(t, 10, rp.config.LogEvery)
}

func TestRateLimitedProcessor_WaitHonoursContext(t *testing.T) {
	prov := newScripted()
	base := NewProcessor(prov, testConfig(), nil, metrics.New())
	// one token, then a very slow refill
	rp := NewRateLimitedProcessor(base, RateLimiterConfig{PerSecond: 0.001, Burst: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, _ := rp.Scan(ctx, images("a", "b"))
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
}

func TestProgressTracker(t *testing.T) {
	var steps []int
	p := &ProgressTracker{
		Total:     4,
		StartTime: time.Now().Add(-time.Second),
		OnStep:    func(_ *ProgressTracker, completed int) { steps = append(steps, completed) },
	}

	assert.Equal(t, time.Duration(0), p.ETA())

	p.Increment()
	p.Increment()

	assert.Equal(t, []int{1, 2}, steps)
	assert.Equal(t, float64(50), p.Percent())
	assert.Greater(t, p.ETA(), time.Duration(0))
	assert.GreaterOrEqual(t, p.Elapsed(), time.Second)
}
