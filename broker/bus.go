package broker

import (
	"fmt"
	"log"

	"zentask/zentask/models"
)

// Message is a signal delivered to subscribers of a subject.
type Message struct {
	Subject string
	Data    []byte
}

type Subscription interface {
	Unsubscribe() error
}

// Bus fans change signals out to every subscriber of a subject.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(Message)) (Subscription, error)
	Close() error
}

// ChangeSubject returns the subject change events of a collection are
// published on, e.g. "zentask.changes.tasks".
func ChangeSubject(prefix, collection string) string {
	if prefix == "" {
		prefix = DefaultChangePrefix
	}
	return fmt.Sprintf("%s.%s", prefix, collection)
}

const DefaultChangePrefix = "zentask.changes"

// PublishChange encodes and publishes a change event. Failures are logged
// and returned; the mutation that caused the event has already happened.
func PublishChange(bus Bus, prefix string, event models.ChangeEvent) error {
	data, err := event.ToJSON()
	if err != nil {
		log.Printf("Failed to encode change event %s: %v", event.Name(), err)
		return err
	}
	subject := ChangeSubject(prefix, event.Collection)
	if err := bus.Publish(subject, data); err != nil {
		log.Printf("Failed to publish change event to %s: %v", subject, err)
		return err
	}
	return nil
}
