package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/tunestake/royalty-ledger/internal/rates"
	"github.com/tunestake/royalty-ledger/internal/store/schema"
)

// CreateReleaseInput holds the fields of a new release. Allocation and sale
// parameters are validated by the ledger service before reaching the store.
type CreateReleaseInput struct {
	ID            string
	Title         string
	ArtistID      string
	Genre         string
	AssetURI      *string
	TotalShares   int64
	PricePerShare decimal.Decimal
	PlatformPct   decimal.Decimal
	ArtistPct     decimal.Decimal
	InvestorPct   decimal.Decimal
}

// PurchaseSharesInput holds one purchase attempt. PurchaseID is assigned by
// the caller (ULID) so the settlement intent can reference it.
type PurchaseSharesInput struct {
	PurchaseID string
	ReleaseID  string
	InvestorID string
	Shares     int64
	Paid       decimal.Decimal
}

// PurchaseSharesResult is the committed outcome of a purchase.
type PurchaseSharesResult struct {
	Purchase *schema.SharePurchase
	Holding  *schema.Holding
	Release  *schema.Release
}

// CreateDistributionInput holds one computed distribution ready to persist.
type CreateDistributionInput struct {
	RecordID           string
	ReleaseID          string
	EventID            string
	Event              datatypes.JSON
	GrossRevenue       decimal.Decimal
	PlatformAmount     decimal.Decimal
	ArtistAmount       decimal.Decimal
	InvestorPoolAmount decimal.Decimal
	RecordHash         string
	CreatedAt          time.Time
	Shares             []CreateDistributionShareInput
}

// CreateDistributionShareInput is one investor row of a distribution.
type CreateDistributionShareInput struct {
	InvestorID  string
	SharesOwned int64
	Amount      decimal.Decimal
}

// Store defines the interface for database operations. It is the single
// owner of shares_sold; purchase mutations are serialized per release by the
// implementation.
type Store interface {
	rates.Persister

	// CreateRelease registers a new release
	CreateRelease(ctx context.Context, input CreateReleaseInput) (*schema.Release, error)
	// GetReleaseByID retrieves a release, or nil if unknown
	GetReleaseByID(ctx context.Context, id string) (*schema.Release, error)
	// ListReleases retrieves releases ordered by creation time descending
	ListReleases(ctx context.Context, limit int, offset int) ([]schema.Release, int64, error)

	// PurchaseShares atomically re-validates and applies one purchase:
	// increments shares_sold, upserts the holding, and inserts the purchase
	// row. Two concurrent purchases for the same release are serialized; the
	// loser of a race for the last shares fails with ErrInsufficientShares.
	PurchaseShares(ctx context.Context, input PurchaseSharesInput) (*PurchaseSharesResult, error)
	// GetPurchaseByID retrieves a purchase, or nil if unknown
	GetPurchaseByID(ctx context.Context, id string) (*schema.SharePurchase, error)
	// MarkPurchaseSettled transitions a pending purchase to settled
	MarkPurchaseSettled(ctx context.Context, purchaseID string) error
	// RevertPurchase compensates a purchase after confirmed external
	// settlement failure: decrements shares_sold and the holding, and marks
	// the purchase reverted. Reverting twice fails with ErrPurchaseReverted.
	RevertPurchase(ctx context.Context, purchaseID string) error

	// GetHolding retrieves one investor's holding on a release, or nil
	GetHolding(ctx context.Context, releaseID, investorID string) (*schema.Holding, error)
	// ListHoldings retrieves all holdings on a release in ascending investor
	// id order (the deterministic distribution order)
	ListHoldings(ctx context.Context, releaseID string) ([]schema.Holding, error)

	// CreateDistribution persists a distribution record with its share rows.
	// A record with the same event id already present is returned as-is
	// (idempotent under redelivery).
	CreateDistribution(ctx context.Context, input CreateDistributionInput) (*schema.DistributionRecord, error)
	// GetDistributionByID retrieves a record with its share rows, or nil
	GetDistributionByID(ctx context.Context, id string) (*schema.DistributionRecord, error)
	// ListDistributions retrieves a release's records, newest first
	ListDistributions(ctx context.Context, releaseID string, limit int, offset int) ([]schema.DistributionRecord, int64, error)
}
