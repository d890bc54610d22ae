// Package settler runs the stream-event consumption loop: it subscribes to
// stream-play events and feeds them to the royalty settlement service.
package settler

import (
	"context"

	"go.uber.org/zap"

	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/logger"
	"github.com/tunestake/royalty-ledger/internal/messaging"
	"github.com/tunestake/royalty-ledger/internal/royalty"
)

// Settler consumes stream-play events and settles them.
type Settler struct {
	subscriber messaging.Subscriber
	service    *royalty.Service
}

// New creates a settler over the given subscription and settlement service.
func New(subscriber messaging.Subscriber, service *royalty.Service) *Settler {
	return &Settler{subscriber: subscriber, service: service}
}

// Run subscribes and blocks until the context is cancelled.
func (s *Settler) Run(ctx context.Context) error {
	err := s.subscriber.SubscribeStreamEvents(ctx, s.handleEvent)
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down stream settler")
	return ctx.Err()
}

// handleEvent settles one event. A nil return acks the message; malformed
// events and unknown releases return nil because redelivery cannot fix them.
func (s *Settler) handleEvent(ctx context.Context, event *domain.StreamEvent) error {
	_, err := s.service.SettleStream(ctx, event)
	switch err {
	case nil:
		return nil
	case domain.ErrInvalidEvent, domain.ErrReleaseNotFound:
		fields := []zap.Field{zap.Error(err)}
		if event != nil {
			fields = append(fields,
				zap.String("eventID", event.EventID),
				zap.String("releaseID", event.ReleaseID))
		}
		logger.WarnCtx(ctx, "dropping unprocessable stream event", fields...)
		return nil
	default:
		return err
	}
}

// Close drains the subscription.
func (s *Settler) Close() error {
	return s.subscriber.Close()
}
