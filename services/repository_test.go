package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentask/zentask/broker"
	"zentask/zentask/models"
	"zentask/zentask/store"
)

func TestTaskRepository_FollowsStore(t *testing.T) {
	st := store.NewMirrorStore(store.NewMemoryStorage(), broker.NewLocalBus(), "")
	repo := NewTaskRepository(st)
	defer repo.Close()

	var mu sync.Mutex
	var changes []string
	repo.OnChange(func(collection string) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, collection)
	})

	repo.SetUser(testUser)
	select {
	case <-repo.Loaded():
	case <-time.After(time.Second):
		t.Fatal("repository never loaded")
	}
	assert.Empty(t, repo.Tasks())

	older := seed(t, st, map[string]interface{}{"createdAt": int64(1)})
	newer := seed(t, st, map[string]interface{}{"createdAt": int64(2)})
	seed(t, st, map[string]interface{}{"userId": "someone-else"})

	tasks := repo.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, newer, tasks[0].ID)
	assert.Equal(t, older, tasks[1].ID)

	mu.Lock()
	assert.Contains(t, changes, store.Tasks)
	assert.Contains(t, changes, store.Categories)
	mu.Unlock()
}

func TestTaskRepository_ReturnsCopies(t *testing.T) {
	st := store.NewMirrorStore(store.NewMemoryStorage(), broker.NewLocalBus(), "")
	repo := NewTaskRepository(st)
	defer repo.Close()
	repo.SetUser(testUser)
	id := seed(t, st, map[string]interface{}{"dueDate": dueIn(time.Hour)})

	task, ok := repo.Task(id)
	require.True(t, ok)
	*task.DueDate = "changed"
	task.Title = "changed"

	again, _ := repo.Task(id)
	assert.Equal(t, "task", again.Title)
	assert.Equal(t, dueIn(time.Hour), *again.DueDate)
}

func TestTaskRepository_SwitchUser(t *testing.T) {
	st := store.NewMirrorStore(store.NewMemoryStorage(), broker.NewLocalBus(), "")
	repo := NewTaskRepository(st)
	defer repo.Close()

	repo.SetUser(testUser)
	mine := seed(t, st, nil)
	theirs := seed(t, st, map[string]interface{}{"userId": "user-2"})

	repo.SetUser("user-2")
	assert.Equal(t, "user-2", repo.UserID())
	_, ok := repo.Task(mine)
	assert.False(t, ok)
	_, ok = repo.Task(theirs)
	assert.True(t, ok)

	repo.SetUser("")
	assert.Empty(t, repo.Tasks())
	assert.Empty(t, repo.Categories())

	// Writes after teardown are not picked up.
	seed(t, st, nil)
	assert.Empty(t, repo.Tasks())
}

func TestTaskRepository_DropsStaleSnapshots(t *testing.T) {
	st := store.NewMirrorStore(store.NewMemoryStorage(), broker.NewLocalBus(), "")
	repo := NewTaskRepository(st)
	defer repo.Close()
	repo.SetUser(testUser)

	deliver := repo.onTasks(0)
	deliver([]models.DocumentData{{"id": "ghost", "userId": testUser, "title": "ghost"}})

	_, ok := repo.Task("ghost")
	assert.False(t, ok)
}

// failingStore reports an error to every subscriber.
type failingStore struct {
	store.Store
}

func (failingStore) Subscribe(collection string, filter store.Filter, onData func([]models.DocumentData), onError func(error)) func() {
	onError(errors.New("permission denied"))
	return func() {}
}

func TestTaskRepository_SubscriptionErrorStillLoads(t *testing.T) {
	repo := NewTaskRepository(failingStore{})
	repo.SetUser(testUser)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	select {
	case <-repo.Loaded():
	case <-ctx.Done():
		t.Fatal("repository never loaded")
	}
	assert.Empty(t, repo.Tasks())
}

func TestComputeStatistics_Empty(t *testing.T) {
	stats := ComputeStatistics(nil, []models.Category{{ID: "c", Name: "Unused"}})
	assert.Equal(t, Statistics{ByCategory: []CategoryCount{}}, stats)
}
