package cooldown

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreReserve(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()
	key := Key("diario", "u1")

	ok, _, err := store.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(20 * time.Second)
	ok, remaining, err := store.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, remaining)

	ok, _, err = store.Reserve(ctx, Key("diario", "u2"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "cooldowns are per user")

	now = now.Add(41 * time.Second)
	ok, _, err = store.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreRelease(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key("cobrar", "u1")

	ok, _, err := store.Reserve(ctx, key, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, key))
	ok, _, err = store.Reserve(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreSweep(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	for i := range 1100 {
		_, _, _ = store.Reserve(context.Background(), Key("cmd", strconv.Itoa(i)), time.Second)
	}
	now = now.Add(2 * time.Second)
	_, _, _ = store.Reserve(context.Background(), "fresh", time.Second)

	assert.Len(t, store.expires, 1)
}
