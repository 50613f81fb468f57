package broker

import (
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsBus carries change signals between processes sharing the remote
// store. Handlers run on the NATS client's delivery goroutine.
type NatsBus struct {
	conn *nats.Conn
}

func NewNatsBus(url string) (*NatsBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("zentask"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	log.Printf("NATS bus connected to %s", conn.ConnectedUrl())
	return &NatsBus{conn: conn}, nil
}

func (b *NatsBus) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

func (b *NatsBus) Subscribe(subject string, handler func(Message)) (Subscription, error) {
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(Message{Subject: msg.Subject, Data: msg.Data})
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *NatsBus) Close() error {
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		log.Printf("Failed to drain NATS connection: %v", err)
		b.conn.Close()
		return err
	}
	return nil
}
