package pkg

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/kds/pkg/event"
	"github.com/nats-io/nats.go"
)

// ErrorHandler receives errors returned by subscription handlers. NATS core
// has no redelivery, so handler errors can only be reported.
type ErrorHandler func(topic string, err error)

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("kds-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	return nil
}

type NATSSubscriber struct {
	conn    *nats.Conn
	onError ErrorHandler

	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewNATSSubscriber(url string, onError ErrorHandler) (*NATSSubscriber, error) {
	conn, err := nats.Connect(url, nats.Name("kds-subscriber"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSubscriber{conn: conn, onError: onError}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler event.HandlerFunc) error {
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil && s.onError != nil {
			s.onError(topic, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	s.mu.Unlock()

	s.conn.Close()
	return nil
}
