package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_AllowsUpToMax(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _, _ := l.Allow("1.2.3.4")
		require.True(t, allowed)
	}

	allowed, remaining, reset := l.Allow("1.2.3.4")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.Greater(t, reset, 0)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := New(1, time.Minute)

	allowed, _, _ := l.Allow("a")
	require.True(t, allowed)
	allowed, _, _ = l.Allow("b")
	require.True(t, allowed)
	allowed, _, _ = l.Allow("a")
	require.False(t, allowed)
}

func TestAllow_WindowExpires(t *testing.T) {
	l := New(1, 10*time.Millisecond)

	allowed, _, _ := l.Allow("x")
	require.True(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, _, _ = l.Allow("x")
	assert.True(t, allowed)
}

func TestStats_CountsActiveKeys(t *testing.T) {
	l := New(5, time.Minute)
	l.Allow("a")
	l.Allow("a")
	l.Allow("b")

	stats := l.Stats()
	assert.Equal(t, 2, stats.ActiveKeys)
	assert.Equal(t, 3, stats.TotalRequestsInWindow)
}

func TestClear_ResetsState(t *testing.T) {
	l := New(1, time.Minute)
	l.Allow("a")
	l.Clear()

	allowed, _, _ := l.Allow("a")
	assert.True(t, allowed)
}
