package events

import (
	"context"
	"sync"

	"github.com/appetiteclub/kds/pkg/event"
)

// MockSubscriber records the handler so tests can deliver messages directly.
type MockSubscriber struct {
	mu       sync.Mutex
	handlers map[string]event.HandlerFunc
	Err      error
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{handlers: make(map[string]event.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler event.HandlerFunc) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	m.handlers[topic] = handler
	m.mu.Unlock()
	return nil
}

func (m *MockSubscriber) Deliver(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	return h(ctx, msg)
}

type published struct {
	topic string
	msg   []byte
}

type MockPublisher struct {
	mu          sync.Mutex
	messages    []published
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	m.messages = append(m.messages, published{topic: topic, msg: msg})
	m.mu.Unlock()
	return nil
}

func (m *MockPublisher) Messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.messages...)
}
