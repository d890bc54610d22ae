package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionTier represents the listener's subscription plan
type SubscriptionTier string

const (
	TierFree     SubscriptionTier = "free"
	TierBasic    SubscriptionTier = "basic"
	TierPremium  SubscriptionTier = "premium"
	TierUltimate SubscriptionTier = "ultimate"
)

// IsValidTier checks if a subscription tier is one of the enumerated plans
func IsValidTier(t SubscriptionTier) bool {
	return t == TierFree ||
		t == TierBasic ||
		t == TierPremium ||
		t == TierUltimate
}

// AudioQuality represents the playback quality of a stream
type AudioQuality string

const (
	QualityStandard AudioQuality = "standard"
	QualityHigh     AudioQuality = "high"
	QualityLossless AudioQuality = "lossless"
)

// IsValidQuality checks if an audio quality is one of the enumerated levels
func IsValidQuality(q AudioQuality) bool {
	return q == QualityStandard ||
		q == QualityHigh ||
		q == QualityLossless
}

// PurchaseStatus tracks the external settlement state of a share purchase
type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "pending"
	PurchaseSettled  PurchaseStatus = "settled"
	PurchaseReverted PurchaseStatus = "reverted"
)

// StreamEvent represents a single stream-play event entering the ledger.
// This is the standard format consumed from NATS and from the REST ingest
// endpoint. Events are ephemeral; only the derived distribution record is
// persisted.
type StreamEvent struct {
	EventID    string           `json:"event_id,omitempty"` // ULID, generated when absent
	ReleaseID  string           `json:"release_id"`
	Tier       SubscriptionTier `json:"tier"`
	Quality    AudioQuality     `json:"quality"`
	Locale     string           `json:"locale"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Valid checks the event carries a release reference and enumerated
// tier/quality values. Locale may be anything; unknown locales price at 1.0.
func (e *StreamEvent) Valid() bool {
	if e.ReleaseID == "" {
		return false
	}
	if !IsValidTier(e.Tier) {
		return false
	}
	if !IsValidQuality(e.Quality) {
		return false
	}
	return true
}

// AmountScale is the number of decimal places carried by every monetary
// amount in the ledger. Splits round down at this scale; residue assignment
// keeps sums exact.
const AmountScale int32 = 8

// SaleState is a point-in-time snapshot of a release's share sale, detached
// from storage so the purchase arithmetic can be exercised standalone.
type SaleState struct {
	TotalShares int64
	SharesSold  int64
	UnitPrice   decimal.Decimal
}

// Remaining returns the number of shares still available for purchase.
func (s SaleState) Remaining() int64 {
	return s.TotalShares - s.SharesSold
}

// Quote is the advisory cost breakdown for a requested purchase. It does not
// reserve shares; a purchase re-validates against current state.
type Quote struct {
	Shares         int64           `json:"shares"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	RemainingAfter int64           `json:"remaining_after"`
}

// QuoteFor computes the cost of buying the requested number of shares against
// this snapshot.
func (s SaleState) QuoteFor(requested int64) (Quote, error) {
	if requested <= 0 {
		return Quote{}, ErrInvalidQuantity
	}
	if requested > s.Remaining() {
		return Quote{}, ErrInsufficientShares
	}
	return Quote{
		Shares:         requested,
		UnitPrice:      s.UnitPrice,
		TotalCost:      s.UnitPrice.Mul(decimal.NewFromInt(requested)),
		RemainingAfter: s.Remaining() - requested,
	}, nil
}

// ValidatePurchase re-runs the quote against this snapshot and requires the
// paid amount to match the quoted cost exactly. No partial fills.
func (s SaleState) ValidatePurchase(requested int64, paid decimal.Decimal) error {
	q, err := s.QuoteFor(requested)
	if err != nil {
		return err
	}
	if !paid.Equal(q.TotalCost) {
		return ErrPriceMismatch
	}
	return nil
}
