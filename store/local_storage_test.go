package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentask/zentask/models"
)

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)

	_, ok, err := storage.Get(MirrorDataKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Set(MirrorDataKey, `{"tasks":[],"categories":[]}`))
	value, ok, err := storage.Get(MirrorDataKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"tasks":[],"categories":[]}`, value)

	_, err = os.Stat(filepath.Join(dir, MirrorDataKey+".json"))
	assert.NoError(t, err)

	require.NoError(t, storage.Remove(MirrorDataKey))
	require.NoError(t, storage.Remove(MirrorDataKey))
	_, ok, _ = storage.Get(MirrorDataKey)
	assert.False(t, ok)
}

func TestDemoModeFlag(t *testing.T) {
	storage := NewMemoryStorage()
	assert.False(t, MirrorForced(storage))

	require.NoError(t, EnableDemoMode(storage))
	assert.True(t, MirrorForced(storage))

	require.NoError(t, DisableDemoMode(storage))
	assert.False(t, MirrorForced(storage))
}

func TestMirrorUser(t *testing.T) {
	storage := NewMemoryStorage()

	user, err := MirrorUser(storage)
	require.NoError(t, err)
	assert.Nil(t, user)

	profile := models.Profile{UID: "mock-user-123", DisplayName: "Zen User (Demo)", Email: "hello@zentask.ai"}
	require.NoError(t, SaveMirrorUser(storage, profile))

	user, err = MirrorUser(storage)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, profile, *user)

	require.NoError(t, ClearMirrorUser(storage))
	user, err = MirrorUser(storage)
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, storage.Set(MirrorUserKey, "{broken"))
	_, err = MirrorUser(storage)
	assert.Error(t, err)
}
