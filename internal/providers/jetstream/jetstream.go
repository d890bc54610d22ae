// Package jetstream provides the NATS JetStream implementations of the
// messaging interfaces: the publisher used for settlement intents and the
// durable consumer feeding stream-play events to the settler.
package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/logger"
	"github.com/tunestake/royalty-ledger/internal/messaging"
)

// SubjectStreamPlayed carries stream-play events from the streaming platform
const SubjectStreamPlayed = "streams.played"

// Config holds the configuration for a NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	ConsumerName   string
	ConnectionName string
	MaxReconnects  int
	ReconnectWait  time.Duration
	AckWaitTimeout time.Duration
	MaxDeliver     int
	// Workers bounds concurrent event handling in the subscriber
	Workers int
}

func connect(cfg Config) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return nc, js, nil
}

// ensureStream creates the stream if it does not exist and updates it if its
// subject set changed.
func ensureStream(ctx context.Context, js jetstream.JetStream, name string, subjects []string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create/update stream %s: %w", name, err)
	}
	return nil
}

type publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewPublisher creates a JetStream publisher bound to the settlement stream.
func NewPublisher(ctx context.Context, cfg Config) (messaging.Publisher, error) {
	nc, js, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg.StreamName, []string{"settlement.>"}); err != nil {
		nc.Close()
		return nil, err
	}

	return &publisher{nc: nc, js: js}, nil
}

// Publish sends data to the given subject
func (p *publisher) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

type subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config Config
	ctx    jetstream.ConsumeContext
	pool   pond.Pool
}

// NewSubscriber creates a durable JetStream consumer for stream-play events.
func NewSubscriber(ctx context.Context, cfg Config) (messaging.Subscriber, error) {
	nc, js, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg.StreamName, []string{"streams.>"}); err != nil {
		nc.Close()
		return nil, err
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}

	return &subscriber{
		nc:     nc,
		js:     js,
		config: cfg,
		pool:   pond.NewPool(cfg.Workers),
	}, nil
}

// SubscribeStreamEvents starts the durable consumer. Each message is handled
// on the worker pool; the message is acked only after the handler returns nil,
// naked on handler error so JetStream redelivers, and terminated when the
// payload cannot be parsed at all.
func (s *subscriber) SubscribeStreamEvents(ctx context.Context, handler messaging.StreamEventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, s.config.StreamName, jetstream.ConsumerConfig{
		Durable:       s.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.config.AckWaitTimeout,
		MaxDeliver:    s.config.MaxDeliver,
		FilterSubject: SubjectStreamPlayed,
	})
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		s.pool.Submit(func() {
			s.handleMessage(ctx, msg, handler)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.ctx = consumeCtx

	logger.Info("Started consuming stream events",
		zap.String("stream", s.config.StreamName),
		zap.String("subject", SubjectStreamPlayed))
	return nil
}

func (s *subscriber) handleMessage(ctx context.Context, msg jetstream.Msg, handler messaging.StreamEventHandler) {
	metadata, _ := msg.Metadata()

	var event domain.StreamEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal stream event"))
		// unparseable payloads never succeed; drop instead of redelivering
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	if metadata != nil {
		logger.Debug("Received stream event",
			zap.String("eventID", event.EventID),
			zap.String("releaseID", event.ReleaseID),
			zap.Uint64("deliveryCount", metadata.NumDelivered))
	}

	if err := handler(ctx, &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to handle stream event"),
			zap.String("eventID", event.EventID))
		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
	}
}

// Close stops consumption, waits for in-flight handlers, and closes the
// connection.
func (s *subscriber) Close() error {
	if s.ctx != nil {
		s.ctx.Stop()
	}
	s.pool.StopAndWait()
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
