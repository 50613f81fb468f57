package services

import (
	"log"
	"slices"
	"strings"
	"sync"

	"zentask/zentask/models"
	"zentask/zentask/store"
)

// TaskRepository keeps the live task and category lists of one user. Each
// store snapshot replaces the whole list; readers always get copies.
type TaskRepository struct {
	store store.Store

	mu           sync.RWMutex
	userID       string
	generation   uint64
	tasks        []models.Task
	categories   []models.Category
	unsubscribes []func()
	loaded       chan struct{}
	loadedOnce   *sync.Once
	listeners    []func(collection string)
}

func NewTaskRepository(s store.Store) *TaskRepository {
	return &TaskRepository{
		store:      s,
		loaded:     make(chan struct{}),
		loadedOnce: &sync.Once{},
	}
}

// SetUser tears down the subscriptions of the previous user and subscribes
// for uid. An empty uid only tears down.
func (r *TaskRepository) SetUser(uid string) {
	r.mu.Lock()
	previous := r.unsubscribes
	r.unsubscribes = nil
	r.generation++
	generation := r.generation
	r.userID = uid
	r.tasks = nil
	r.categories = nil
	r.loaded = make(chan struct{})
	r.loadedOnce = &sync.Once{}
	r.mu.Unlock()

	for _, unsubscribe := range previous {
		unsubscribe()
	}
	if uid == "" {
		return
	}

	filter := store.Where(store.OwnerField, uid)
	unsubscribes := []func(){
		r.store.Subscribe(store.Tasks, filter, r.onTasks(generation), r.onError(generation, store.Tasks)),
		r.store.Subscribe(store.Categories, filter, r.onCategories(generation), r.onError(generation, store.Categories)),
	}

	r.mu.Lock()
	if r.generation != generation {
		r.mu.Unlock()
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
		return
	}
	r.unsubscribes = unsubscribes
	r.mu.Unlock()
}

func (r *TaskRepository) Close() {
	r.SetUser("")
}

func (r *TaskRepository) UserID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userID
}

// Loaded is closed once the first task snapshot (or a subscription error)
// arrived for the current user.
func (r *TaskRepository) Loaded() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// OnChange registers a listener called with the collection name after
// every published snapshot. Listeners must not write to the store
// synchronously.
func (r *TaskRepository) OnChange(listener func(collection string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *TaskRepository) Tasks() []models.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Task, len(r.tasks))
	for i, task := range r.tasks {
		out[i] = task.Clone()
	}
	return out
}

func (r *TaskRepository) Categories() []models.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.categories)
}

func (r *TaskRepository) Task(id string) (models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, task := range r.tasks {
		if task.ID == id {
			return task.Clone(), true
		}
	}
	return models.Task{}, false
}

func (r *TaskRepository) Category(id string) (models.Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, category := range r.categories {
		if category.ID == id {
			return category, true
		}
	}
	return models.Category{}, false
}

func (r *TaskRepository) onTasks(generation uint64) func([]models.DocumentData) {
	return func(docs []models.DocumentData) {
		tasks := make([]models.Task, 0, len(docs))
		for _, doc := range docs {
			var task models.Task
			if err := doc.Decode(&task); err != nil {
				log.Printf("Skipping undecodable task %v: %v", doc["id"], err)
				continue
			}
			tasks = append(tasks, task)
		}
		sortNewestFirst(tasks)

		r.mu.Lock()
		if r.generation != generation {
			r.mu.Unlock()
			return
		}
		r.tasks = tasks
		r.mu.Unlock()

		r.markLoaded(generation)
		r.notify(store.Tasks)
	}
}

func (r *TaskRepository) onCategories(generation uint64) func([]models.DocumentData) {
	return func(docs []models.DocumentData) {
		categories := make([]models.Category, 0, len(docs))
		for _, doc := range docs {
			var category models.Category
			if err := doc.Decode(&category); err != nil {
				log.Printf("Skipping undecodable category %v: %v", doc["id"], err)
				continue
			}
			categories = append(categories, category)
		}

		r.mu.Lock()
		if r.generation != generation {
			r.mu.Unlock()
			return
		}
		r.categories = categories
		r.mu.Unlock()

		r.notify(store.Categories)
	}
}

// onError surfaces subscription failures in the log and still marks the
// repository loaded so callers waiting on Loaded do not hang.
func (r *TaskRepository) onError(generation uint64, collection string) func(error) {
	return func(err error) {
		log.Printf("Error fetching %s: %v", collection, err)
		r.markLoaded(generation)
	}
}

func (r *TaskRepository) markLoaded(generation uint64) {
	r.mu.RLock()
	if r.generation != generation {
		r.mu.RUnlock()
		return
	}
	once, loaded := r.loadedOnce, r.loaded
	r.mu.RUnlock()
	once.Do(func() { close(loaded) })
}

func (r *TaskRepository) notify(collection string) {
	r.mu.RLock()
	listeners := slices.Clone(r.listeners)
	r.mu.RUnlock()
	for _, listener := range listeners {
		listener(collection)
	}
}

func sortNewestFirst(tasks []models.Task) {
	slices.SortStableFunc(tasks, func(a, b models.Task) int {
		if a.CreatedAt != b.CreatedAt {
			if a.CreatedAt > b.CreatedAt {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}
