package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentask/zentask/broker"
	"zentask/zentask/models"
)

var testCreatedAt = time.UnixMilli(1700000000000)

func TestMirrorStoreIDs(t *testing.T) {
	s := NewMirrorStore(NewMemoryStorage(), broker.NewLocalBus(), "")

	seen := map[string]bool{}
	pattern := regexp.MustCompile(`^[0-9a-z]{9}$`)
	for i := 0; i < 50; i++ {
		id, err := s.Create(context.Background(), Tasks, taskFields("user-1", "t"))
		require.NoError(t, err)
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestMirrorStoreBlobShape(t *testing.T) {
	storage := NewMemoryStorage()
	s := NewMirrorStore(storage, broker.NewLocalBus(), "")

	_, err := s.Create(context.Background(), Categories, models.CategoryInput{Name: "Home"}.Fields("user-1"))
	require.NoError(t, err)

	raw, ok, err := storage.Get(MirrorDataKey)
	require.NoError(t, err)
	require.True(t, ok)

	var blob map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &blob))
	assert.Empty(t, blob["tasks"])
	require.Len(t, blob["categories"], 1)
	assert.Equal(t, "Home", blob["categories"][0]["name"])
}

func TestMirrorStoreSharesBusAcrossInstances(t *testing.T) {
	storage := NewMemoryStorage()
	bus := broker.NewLocalBus()
	writer := NewMirrorStore(storage, bus, "")
	reader := NewMirrorStore(storage, bus, "")

	rec := &recorder{}
	defer reader.Subscribe(Tasks, Filter{}, rec.onData, rec.onError)()

	_, err := writer.Create(context.Background(), Tasks, taskFields("user-1", "From another component"))
	require.NoError(t, err)
	assert.Len(t, rec.last(t), 1)
}

func TestMirrorStoreCorruptBlob(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(MirrorDataKey, "{not json"))
	s := NewMirrorStore(storage, broker.NewLocalBus(), "")

	rec := &recorder{}
	defer s.Subscribe(Tasks, Filter{}, rec.onData, rec.onError)()
	assert.Len(t, rec.errs, 1)
	assert.Equal(t, 0, rec.count())

	_, err := s.Create(context.Background(), Tasks, taskFields("user-1", "t"))
	assert.Error(t, err)
}

func TestMirrorStoreClosed(t *testing.T) {
	s := NewMirrorStore(NewMemoryStorage(), broker.NewLocalBus(), "")
	require.NoError(t, s.Close())

	_, err := s.Create(context.Background(), Tasks, taskFields("user-1", "t"))
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestMirrorStoreCancelledContext(t *testing.T) {
	s := NewMirrorStore(NewMemoryStorage(), broker.NewLocalBus(), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, Tasks, taskFields("user-1", "t"))
	assert.ErrorIs(t, err, context.Canceled)
}
