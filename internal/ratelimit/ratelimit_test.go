package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsBurstPerUser(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := New(5, 10*time.Second)
	l.now = func() time.Time { return now }

	for i := range 5 {
		assert.True(t, l.Allow("u1"), "command %d", i+1)
	}
	assert.False(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"))

	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
}

func TestLimiterSweep(t *testing.T) {
	now := time.Now()
	l := New(5, 10*time.Second)
	l.now = func() time.Time { return now }

	l.Allow("u1")
	now = now.Add(15 * time.Second)
	l.Allow("u2")
	now = now.Add(10 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Len(t, l.users, 1)
}
