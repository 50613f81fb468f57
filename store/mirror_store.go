package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"

	"zentask/zentask/broker"
	"zentask/zentask/models"
)

const (
	mirrorIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	mirrorIDLength   = 9
)

// MirrorStore is the local-mirror mode: every collection lives in a single
// JSON blob under MirrorDataKey. Each mutation reads the whole blob,
// changes one array, writes it back and then signals on the bus.
type MirrorStore struct {
	storage LocalStorage
	bus     broker.Bus
	prefix  string

	mu     sync.Mutex
	closed atomic.Bool
}

func NewMirrorStore(storage LocalStorage, bus broker.Bus, prefix string) *MirrorStore {
	return &MirrorStore{storage: storage, bus: bus, prefix: prefix}
}

func (s *MirrorStore) Mode() Mode {
	return ModeMirror
}

type mirrorBlob map[string][]models.DocumentData

func (s *MirrorStore) load() (mirrorBlob, error) {
	blob := mirrorBlob{}
	value, ok, err := s.storage.Get(MirrorDataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", MirrorDataKey, err)
	}
	if ok && value != "" {
		if err := json.Unmarshal([]byte(value), &blob); err != nil {
			return nil, fmt.Errorf("corrupt %s: %w", MirrorDataKey, err)
		}
	}
	for _, collection := range []string{Tasks, Categories} {
		if blob[collection] == nil {
			blob[collection] = []models.DocumentData{}
		}
	}
	return blob, nil
}

func (s *MirrorStore) save(blob mirrorBlob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	return s.storage.Set(MirrorDataKey, string(data))
}

func (s *MirrorStore) check(ctx context.Context, collection string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !knownCollection(collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return nil
}

func newMirrorID(taken map[string]bool) string {
	buf := make([]byte, mirrorIDLength)
	for {
		for i := range buf {
			buf[i] = mirrorIDAlphabet[rand.Intn(len(mirrorIDAlphabet))]
		}
		if id := string(buf); !taken[id] {
			return id
		}
	}
}

func (s *MirrorStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	if err := s.check(ctx, collection); err != nil {
		return "", err
	}

	s.mu.Lock()
	blob, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	taken := make(map[string]bool, len(blob[collection]))
	for _, doc := range blob[collection] {
		taken[documentID(doc)] = true
	}
	id := newMirrorID(taken)
	doc := models.DocumentData(fields).Merge(map[string]interface{}{"id": id})
	blob[collection] = append(blob[collection], doc)
	err = s.save(blob)
	s.mu.Unlock()

	if err != nil {
		log.Printf("Failed to write %s document: %v", collection, err)
		return "", err
	}
	s.signal(collection, models.ChangeCreated, id, ownerOf(doc), ownerOf(doc))
	return id, nil
}

func (s *MirrorStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := s.check(ctx, collection); err != nil {
		return err
	}

	s.mu.Lock()
	blob, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	index := -1
	for i, doc := range blob[collection] {
		if documentID(doc) == id {
			index = i
			break
		}
	}
	if index == -1 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
	}
	previousOwner := ownerOf(blob[collection][index])
	doc := blob[collection][index].Merge(fields)
	doc["id"] = id
	blob[collection][index] = doc
	err = s.save(blob)
	s.mu.Unlock()

	if err != nil {
		log.Printf("Failed to write %s document %s: %v", collection, id, err)
		return err
	}
	s.signal(collection, models.ChangeUpdated, id, ownerOf(doc), previousOwner)
	return nil
}

func (s *MirrorStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.check(ctx, collection); err != nil {
		return err
	}

	s.mu.Lock()
	blob, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	kept := make([]models.DocumentData, 0, len(blob[collection]))
	var removed models.DocumentData
	for _, doc := range blob[collection] {
		if documentID(doc) == id {
			removed = doc
			continue
		}
		kept = append(kept, doc)
	}
	if removed == nil {
		s.mu.Unlock()
		return nil
	}
	blob[collection] = kept
	err = s.save(blob)
	s.mu.Unlock()

	if err != nil {
		log.Printf("Failed to write %s after deleting %s: %v", collection, id, err)
		return err
	}
	s.signal(collection, models.ChangeDeleted, id, ownerOf(removed), ownerOf(removed))
	return nil
}

// signal is called without s.mu held: the local bus runs subscribers
// synchronously and they read the blob back.
func (s *MirrorStore) signal(collection string, op models.ChangeOperation, id, owner, previousOwner string) {
	event := models.NewChangeEvent(collection, op, id, owner)
	if previousOwner != owner {
		event.PreviousOwnerID = previousOwner
	}
	broker.PublishChange(s.bus, s.prefix, event)
}

func (s *MirrorStore) snapshot(collection string, filter Filter) ([]models.DocumentData, error) {
	s.mu.Lock()
	blob, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	docs := []models.DocumentData{}
	for _, doc := range blob[collection] {
		if filter.Match(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *MirrorStore) Subscribe(collection string, filter Filter, onData func([]models.DocumentData), onError func(error)) func() {
	return subscribe(s.bus, s.prefix, collection, filter, func() ([]models.DocumentData, error) {
		if err := s.check(context.Background(), collection); err != nil {
			return nil, err
		}
		return s.snapshot(collection, filter)
	}, onData, onError)
}

func (s *MirrorStore) Close() error {
	s.closed.Store(true)
	return nil
}

// subscribe wires a snapshot function to the change subject of a
// collection. Deliveries are serialized per subscription and stop once
// the returned function has been called. Owner-scoped subscriptions skip
// change events of other owners.
func subscribe(bus broker.Bus, prefix, collection string, filter Filter, read func() ([]models.DocumentData, error), onData func([]models.DocumentData), onError func(error)) func() {
	if onError == nil {
		onError = func(err error) {
			log.Printf("Subscription error on %s: %v", collection, err)
		}
	}

	var (
		mu     sync.Mutex
		active atomic.Bool
	)
	active.Store(true)

	deliver := func() {
		mu.Lock()
		defer mu.Unlock()
		if !active.Load() {
			return
		}
		docs, err := read()
		if err != nil {
			onError(err)
			return
		}
		onData(docs)
	}

	owner, scoped := filter.Value.(string)
	scoped = scoped && filter.Field == OwnerField

	sub, err := bus.Subscribe(broker.ChangeSubject(prefix, collection), func(msg broker.Message) {
		if scoped {
			var event models.ChangeEvent
			if err := event.FromJSON(msg.Data); err == nil && !event.Concerns(owner) {
				return
			}
		}
		deliver()
	})
	if err != nil {
		onError(fmt.Errorf("failed to subscribe to %s: %w", collection, err))
		return func() {}
	}

	deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			active.Store(false)
			if err := sub.Unsubscribe(); err != nil {
				log.Printf("Failed to unsubscribe from %s: %v", collection, err)
			}
		})
	}
}

func documentID(doc models.DocumentData) string {
	id, _ := doc["id"].(string)
	return id
}

func ownerOf(doc map[string]interface{}) string {
	owner, _ := doc[OwnerField].(string)
	return owner
}
