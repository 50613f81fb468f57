package broker

import (
	"errors"
	"sync"
)

var ErrBusClosed = errors.New("bus is closed")

// LocalBus is the in-process bus of the local-mirror mode. Handlers run
// synchronously on the publishing goroutine, in subscription order, so
// every subscriber has seen a change by the time Publish returns.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string]map[uint64]func(Message)
	order    map[string][]uint64
	nextID   uint64
	closed   bool
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		handlers: make(map[string]map[uint64]func(Message)),
		order:    make(map[string][]uint64),
	}
}

func (b *LocalBus) Publish(subject string, data []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	var handlers []func(Message)
	for _, id := range b.order[subject] {
		if handler, ok := b.handlers[subject][id]; ok {
			handlers = append(handlers, handler)
		}
	}
	b.mu.RUnlock()

	msg := Message{Subject: subject, Data: data}
	for _, handler := range handlers {
		handler(msg)
	}
	return nil
}

func (b *LocalBus) Subscribe(subject string, handler func(Message)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}
	b.nextID++
	id := b.nextID
	if b.handlers[subject] == nil {
		b.handlers[subject] = make(map[uint64]func(Message))
	}
	b.handlers[subject][id] = handler
	b.order[subject] = append(b.order[subject], id)

	return &localSubscription{bus: b, subject: subject, id: id}, nil
}

func (b *LocalBus) unsubscribe(subject string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers[subject], id)
	ids := b.order[subject]
	for i, existing := range ids {
		if existing == id {
			b.order[subject] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(b.order[subject]) == 0 {
		delete(b.order, subject)
		delete(b.handlers, subject)
	}
}

// Subscribers reports how many handlers are registered for subject.
func (b *LocalBus) Subscribers(subject string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[subject])
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string]map[uint64]func(Message))
	b.order = make(map[string][]uint64)
	return nil
}

type localSubscription struct {
	bus     *LocalBus
	subject string
	id      uint64
	once    sync.Once
}

func (s *localSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.unsubscribe(s.subject, s.id)
	})
	return nil
}
