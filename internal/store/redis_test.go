package store_test

import (
	"browser-pause-agent/internal/pause"
	"browser-pause-agent/internal/store"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistory(t *testing.T, opts ...store.Option) (*store.RedisHistory, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})

	history := store.NewRedisHistoryFromClient(client, "pause:history", opts...)
	t.Cleanup(func() {
		_ = history.Close()
	})

	return history, mr
}

func event(i int) pause.Event {
	return pause.Event{
		ID:            uuid.New(),
		URL:           fmt.Sprintf("https://example.com/%d", i),
		Reason:        "Password field detected",
		Rule:          "password_field",
		InputProvided: i%2 == 0,
		Timestamp:     time.Date(2026, 5, 1, 12, 0, i, 0, time.UTC),
		Waited:        time.Duration(i) * time.Second,
	}
}

func TestRedisHistory_RecordAndList(t *testing.T) {
	ctx := context.Background()
	history, _ := newHistory(t)

	require.NoError(t, history.Ping(ctx))

	for i := 0; i < 3; i++ {
		require.NoError(t, history.Record(ctx, event(i)))
	}

	events, err := history.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "https://example.com/0", events[0].URL)
	assert.Equal(t, "https://example.com/2", events[2].URL)
	assert.True(t, events[0].InputProvided)
	assert.Equal(t, 2*time.Second, events[2].Waited)
}

func TestRedisHistory_Limit(t *testing.T) {
	ctx := context.Background()
	history, _ := newHistory(t, store.WithLimit(2))

	for i := 0; i < 5; i++ {
		require.NoError(t, history.Record(ctx, event(i)))
	}

	events, err := history.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "https://example.com/3", events[0].URL)
	assert.Equal(t, "https://example.com/4", events[1].URL)
}

func TestRedisHistory_EmptyList(t *testing.T) {
	history, _ := newHistory(t)

	events, err := history.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRedisHistory_CorruptEntry(t *testing.T) {
	history, mr := newHistory(t)

	_, err := mr.Push("pause:history", "{not json")
	require.NoError(t, err)

	_, err = history.List(context.Background())
	assert.Error(t, err)
}

func TestRedisHistory_UsableWithSaveFile(t *testing.T) {
	ctx := context.Background()
	history, _ := newHistory(t)
	require.NoError(t, history.Record(ctx, event(1)))

	var rec pause.Recorder = history
	require.NoError(t, pause.SaveFile(ctx, rec, t.TempDir()+"/h.json"))
}
