package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesProviderDefaults(t *testing.T) {
	l := New(ProviderAnthropic)
	assert.Equal(t, ProviderAnthropic, l.Provider())
	for i := 0; i < DefaultLimits[ProviderAnthropic].BurstSize; i++ {
		assert.True(t, l.Allow())
	}
	assert.False(t, l.Allow())
}

func TestNew_UnknownProvider(t *testing.T) {
	l := New("unknown")
	assert.True(t, l.Allow())
}

func TestLimiter_NilIsNoOp(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Wait(context.Background()))
	assert.True(t, l.Allow())
	l.Backoff(time.Second)
}

func TestLimiter_BackoffBlocksAllow(t *testing.T) {
	l := NewWithConfig(Config{RequestsPerSecond: 100, BurstSize: 100})
	l.Backoff(time.Hour)
	assert.False(t, l.Allow())
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := NewWithConfig(Config{RequestsPerSecond: 100, BurstSize: 100})
	l.Backoff(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestLimiter_Observe(t *testing.T) {
	l := NewWithConfig(Config{RequestsPerSecond: 100, BurstSize: 100})

	assert.False(t, l.Observe(&http.Response{StatusCode: http.StatusOK}))
	assert.True(t, l.Allow())

	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "120")
	require.True(t, l.Observe(resp))
	assert.False(t, l.Allow())
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, RetryAfter("5"))
	assert.Zero(t, RetryAfter(""))
	assert.Zero(t, RetryAfter("soon"))

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	d := RetryAfter(future)
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}
