package event

import "context"

// HandlerFunc processes a raw message delivered on a topic.
type HandlerFunc func(ctx context.Context, msg []byte) error

// Publisher publishes raw messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
}

// Subscriber delivers messages published on a topic to handler.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler HandlerFunc) error
}
