// Package settlement publishes signed settlement intents. The ledger is the
// system of record; an external submitter consumes the intents and performs
// the on-chain transfers, so nothing here blocks a request on chain latency.
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tunestake/royalty-ledger/internal/logger"
	"github.com/tunestake/royalty-ledger/internal/messaging"
)

const (
	// SubjectPurchase carries fractional-share purchase intents
	SubjectPurchase = "settlement.purchase"
	// SubjectDistribution carries royalty distribution intents
	SubjectDistribution = "settlement.distribution"
)

// PurchaseIntent asks the external submitter to settle one share purchase
// on-chain.
type PurchaseIntent struct {
	PurchaseID string          `json:"purchase_id"`
	ReleaseID  string          `json:"release_id"`
	InvestorID string          `json:"investor_id"`
	Shares     int64           `json:"shares"`
	Paid       decimal.Decimal `json:"paid"`
}

// DistributionPayout is one recipient line of a distribution intent.
type DistributionPayout struct {
	InvestorID string          `json:"investor_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// DistributionIntent asks the external submitter to pay out one settled
// stream distribution. RecordHash lets the submitter verify the intent
// against the persisted record.
type DistributionIntent struct {
	RecordID       string               `json:"record_id"`
	ReleaseID      string               `json:"release_id"`
	EventID        string               `json:"event_id"`
	ArtistID       string               `json:"artist_id"`
	PlatformAmount decimal.Decimal      `json:"platform_amount"`
	ArtistAmount   decimal.Decimal      `json:"artist_amount"`
	Payouts        []DistributionPayout `json:"payouts,omitempty"`
	RecordHash     string               `json:"record_hash"`
}

// Envelope is the wire format of a settlement intent: the payload plus an
// HMAC-SHA256 signature over its canonical form.
type Envelope struct {
	Timestamp int64           `json:"timestamp"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

// Submitter hands settlement intents to the external on-chain submitter.
type Submitter interface {
	SubmitPurchase(ctx context.Context, intent PurchaseIntent) error
	SubmitDistribution(ctx context.Context, intent DistributionIntent) error
	Close() error
}

// Config holds submitter configuration
type Config struct {
	// Secret signs every intent payload
	Secret string
	// MaxRetries bounds publish attempts per intent (default 5)
	MaxRetries uint64
	// InitialInterval seeds the exponential backoff (default 500ms)
	InitialInterval time.Duration
}

type natsSubmitter struct {
	publisher messaging.Publisher
	cfg       Config
}

// NewNATSSubmitter creates a submitter publishing signed intents through the
// given publisher. Publishes are retried with exponential backoff; a failure
// after all retries is returned to the caller, who decides whether the intent
// is compensated or merely logged.
func NewNATSSubmitter(publisher messaging.Publisher, cfg Config) Submitter {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	return &natsSubmitter{publisher: publisher, cfg: cfg}
}

func (s *natsSubmitter) SubmitPurchase(ctx context.Context, intent PurchaseIntent) error {
	return s.submit(ctx, SubjectPurchase, intent)
}

func (s *natsSubmitter) SubmitDistribution(ctx context.Context, intent DistributionIntent) error {
	return s.submit(ctx, SubjectDistribution, intent)
}

func (s *natsSubmitter) submit(ctx context.Context, subject string, intent interface{}) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement intent: %w", err)
	}

	timestamp := time.Now().Unix()
	signature, err := SignPayload(s.cfg.Secret, timestamp, payload)
	if err != nil {
		return fmt.Errorf("failed to sign settlement intent: %w", err)
	}

	data, err := json.Marshal(Envelope{
		Timestamp: timestamp,
		Signature: signature,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal settlement envelope: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.InitialInterval

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		if err := s.publisher.Publish(ctx, subject, data); err != nil {
			logger.WarnCtx(ctx, "settlement intent publish failed, retrying",
				zap.String("subject", subject),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.MaxRetries), ctx))
	if err != nil {
		return fmt.Errorf("failed to publish settlement intent to %s: %w", subject, err)
	}

	logger.DebugCtx(ctx, "settlement intent published", zap.String("subject", subject))
	return nil
}

func (s *natsSubmitter) Close() error {
	return s.publisher.Close()
}
