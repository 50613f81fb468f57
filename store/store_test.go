package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentask/zentask/broker"
	"zentask/zentask/database"
	"zentask/zentask/models"
)

// recorder keeps every snapshot a subscription delivered.
type recorder struct {
	mu        sync.Mutex
	snapshots [][]models.DocumentData
	errs      []error
}

func (r *recorder) onData(docs []models.DocumentData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, docs)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) last(t *testing.T) []models.DocumentData {
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.snapshots, "no snapshot delivered")
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func decodeTasks(t *testing.T, docs []models.DocumentData) []models.Task {
	tasks := make([]models.Task, 0, len(docs))
	for _, doc := range docs {
		var task models.Task
		require.NoError(t, doc.Decode(&task))
		tasks = append(tasks, task)
	}
	return tasks
}

type storeFactory func(t *testing.T) Store

func newMirrorForTest(t *testing.T) Store {
	return NewMirrorStore(NewMemoryStorage(), broker.NewLocalBus(), "")
}

func newGormForTest(t *testing.T) Store {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewGormStore(db, broker.NewLocalBus(), "")
}

var factories = map[string]storeFactory{
	"mirror": newMirrorForTest,
	"remote": newGormForTest,
}

func taskFields(owner, title string) map[string]interface{} {
	input := models.TaskInput{Title: title, Description: "details", EstimatedMinutes: 30, DueDate: "2030-01-01T09:00"}
	return input.Fields(owner, testCreatedAt)
}

func TestStoreRoundTrip(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			id, err := s.Create(ctx, Tasks, taskFields("user-1", "Write tests"))
			require.NoError(t, err)
			require.NotEmpty(t, id)

			rec := &recorder{}
			unsubscribe := s.Subscribe(Tasks, Where(OwnerField, "user-1"), rec.onData, rec.onError)
			defer unsubscribe()

			before := decodeTasks(t, rec.last(t))
			require.Len(t, before, 1)
			assert.Equal(t, id, before[0].ID)
			assert.Equal(t, "Write tests", before[0].Title)

			require.NoError(t, s.Update(ctx, Tasks, id, models.TaskPatch{Title: models.Ptr("Write more tests")}.Fields()))

			after := decodeTasks(t, rec.last(t))
			require.Len(t, after, 1)
			assert.Equal(t, "Write more tests", after[0].Title)
			if diff := cmp.Diff(before[0], after[0], cmpopts.IgnoreFields(models.Task{}, "Title")); diff != "" {
				t.Errorf("update changed other fields (-before +after):\n%s", diff)
			}
			assert.Empty(t, rec.errs)
		})
	}
}

func TestStoreSubscribeFiltersByOwner(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			rec := &recorder{}
			unsubscribe := s.Subscribe(Tasks, Where(OwnerField, "user-1"), rec.onData, rec.onError)
			defer unsubscribe()
			assert.Empty(t, rec.last(t))

			_, err := s.Create(ctx, Tasks, taskFields("user-2", "Not mine"))
			require.NoError(t, err)
			_, err = s.Create(ctx, Tasks, taskFields("user-1", "Mine"))
			require.NoError(t, err)

			tasks := decodeTasks(t, rec.last(t))
			require.Len(t, tasks, 1)
			assert.Equal(t, "Mine", tasks[0].Title)
		})
	}
}

func TestStoreSubscribeSkipsOtherOwnersChanges(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			rec := &recorder{}
			defer s.Subscribe(Tasks, Where(OwnerField, "user-1"), rec.onData, rec.onError)()
			require.Equal(t, 1, rec.count())

			id, err := s.Create(ctx, Tasks, taskFields("user-2", "Not mine"))
			require.NoError(t, err)
			require.NoError(t, s.Update(ctx, Tasks, id, map[string]interface{}{"title": "Still not mine"}))
			require.NoError(t, s.Delete(ctx, Tasks, id))
			assert.Equal(t, 1, rec.count())

			_, err = s.Create(ctx, Tasks, taskFields("user-1", "Mine"))
			require.NoError(t, err)
			assert.Equal(t, 2, rec.count())
		})
	}
}

func TestStoreOwnerChangeReachesBothOwners(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			id, err := s.Create(ctx, Tasks, taskFields("user-1", "Handover"))
			require.NoError(t, err)

			from, to := &recorder{}, &recorder{}
			defer s.Subscribe(Tasks, Where(OwnerField, "user-1"), from.onData, from.onError)()
			defer s.Subscribe(Tasks, Where(OwnerField, "user-2"), to.onData, to.onError)()
			require.Len(t, from.last(t), 1)
			require.Empty(t, to.last(t))

			require.NoError(t, s.Update(ctx, Tasks, id, models.TaskPatch{UserID: models.Ptr("user-2")}.Fields()))

			assert.Empty(t, from.last(t))
			tasks := decodeTasks(t, to.last(t))
			require.Len(t, tasks, 1)
			assert.Equal(t, "user-2", tasks[0].UserID)
		})
	}
}

func TestStoreMultipleSubscribersStayConsistent(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			first, second := &recorder{}, &recorder{}
			defer s.Subscribe(Tasks, Filter{}, first.onData, first.onError)()
			defer s.Subscribe(Tasks, Filter{}, second.onData, second.onError)()

			_, err := s.Create(context.Background(), Tasks, taskFields("user-1", "Shared"))
			require.NoError(t, err)

			assert.Len(t, first.last(t), 1)
			assert.Equal(t, first.last(t), second.last(t))
		})
	}
}

func TestStoreUpdateMissingDocument(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			err := s.Update(context.Background(), Tasks, "missing", map[string]interface{}{"title": "x"})
			assert.ErrorIs(t, err, ErrDocumentNotFound)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			id, err := s.Create(ctx, Categories, models.CategoryInput{Name: "Work", Color: "bg-blue-500"}.Fields("user-1"))
			require.NoError(t, err)

			rec := &recorder{}
			defer s.Subscribe(Categories, Where(OwnerField, "user-1"), rec.onData, rec.onError)()
			assert.Len(t, rec.last(t), 1)

			require.NoError(t, s.Delete(ctx, Categories, "missing"))
			require.NoError(t, s.Delete(ctx, Categories, id))
			assert.Empty(t, rec.last(t))
		})
	}
}

func TestStoreUnsubscribeStopsDelivery(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			rec := &recorder{}
			unsubscribe := s.Subscribe(Tasks, Filter{}, rec.onData, rec.onError)
			assert.Equal(t, 1, rec.count())

			unsubscribe()
			unsubscribe()

			_, err := s.Create(context.Background(), Tasks, taskFields("user-1", "Unseen"))
			require.NoError(t, err)
			assert.Equal(t, 1, rec.count())
		})
	}
}

func TestStoreUnknownCollection(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			_, err := s.Create(context.Background(), "notes", map[string]interface{}{})
			assert.ErrorIs(t, err, ErrUnknownCollection)

			rec := &recorder{}
			defer s.Subscribe("notes", Filter{}, rec.onData, rec.onError)()
			require.Len(t, rec.errs, 1)
			assert.ErrorIs(t, rec.errs[0], ErrUnknownCollection)
		})
	}
}

func TestFilterMatch(t *testing.T) {
	doc := models.DocumentData{"userId": "user-1", "categoryId": nil}

	assert.True(t, Filter{}.Match(doc))
	assert.True(t, Where("userId", "user-1").Match(doc))
	assert.False(t, Where("userId", "user-2").Match(doc))
	assert.True(t, Where("categoryId", nil).Match(doc))
	assert.True(t, Where("dependencyId", nil).Match(doc))
	assert.False(t, Where("dependencyId", "x").Match(doc))
}
