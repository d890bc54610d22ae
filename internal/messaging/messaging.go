// Package messaging defines the transport-agnostic interfaces between the
// ledger and its message broker. The JetStream provider implements them; the
// services only see these contracts.
package messaging

import (
	"context"

	"github.com/tunestake/royalty-ledger/internal/domain"
)

// StreamEventHandler processes one stream-play event. Returning an error
// signals the transport to redeliver the message.
type StreamEventHandler func(ctx context.Context, event *domain.StreamEvent) error

// Subscriber consumes stream-play events from the broker.
type Subscriber interface {
	// SubscribeStreamEvents starts consuming stream events, invoking the
	// handler for each. It returns after the subscription is established.
	SubscribeStreamEvents(ctx context.Context, handler StreamEventHandler) error
	// Close drains the subscription and releases the connection
	Close() error
}

// Publisher publishes messages to the broker.
type Publisher interface {
	// Publish sends data to the given subject
	Publish(ctx context.Context, subject string, data []byte) error
	// Close releases the connection
	Close() error
}
