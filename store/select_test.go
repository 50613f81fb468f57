package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentask/zentask/broker"
	"zentask/zentask/config"
)

func TestResolveMode(t *testing.T) {
	remoteDB := config.Config{StoreMode: "auto", DBDriver: "postgres", DBHost: "db"}

	testCases := []struct {
		name   string
		cfg    config.Config
		forced bool
		want   Mode
	}{
		{"auto without database", config.Config{StoreMode: "auto"}, false, ModeMirror},
		{"auto with database", remoteDB, false, ModeRemote},
		{"explicit mirror", config.Config{StoreMode: "mirror", DBHost: "db"}, false, ModeMirror},
		{"explicit remote", config.Config{StoreMode: "remote"}, false, ModeRemote},
		{"FORCE_MOCK wins", config.Config{StoreMode: "remote", ForceMock: true}, false, ModeMirror},
		{"persisted demo flag wins", remoteDB, true, ModeMirror},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			if tc.forced {
				require.NoError(t, EnableDemoMode(storage))
			}
			assert.Equal(t, tc.want, ResolveMode(tc.cfg, storage))
		})
	}
}

func TestNew(t *testing.T) {
	bus := broker.NewLocalBus()

	s, err := New(config.Config{StoreMode: "mirror"}, nil, bus, NewMemoryStorage())
	require.NoError(t, err)
	assert.Equal(t, ModeMirror, s.Mode())

	_, err = New(config.Config{StoreMode: "remote"}, nil, bus, NewMemoryStorage())
	assert.Error(t, err)
}
