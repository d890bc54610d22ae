// Package ledger is the investment side of the system: release registration,
// purchase quotes, fractional-share purchases, and the settlement lifecycle
// of purchases. Revenue settlement lives in the royalty package.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tunestake/royalty-ledger/internal/allocation"
	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/logger"
	"github.com/tunestake/royalty-ledger/internal/settlement"
	"github.com/tunestake/royalty-ledger/internal/store"
	"github.com/tunestake/royalty-ledger/internal/store/schema"
)

// InvalidReleaseError reports a release registration with out-of-range sale
// parameters.
type InvalidReleaseError struct {
	Reason string
}

func (e *InvalidReleaseError) Error() string {
	return "invalid release: " + e.Reason
}

// CreateReleaseParams holds a release registration request.
type CreateReleaseParams struct {
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

// PurchaseParams holds a purchase request.
type PurchaseParams struct {
	ReleaseID  string
	InvestorID string
	Shares     int64
	Paid       decimal.Decimal
}

// Service implements the investment operations over the store.
type Service struct {
	store     store.Store
	submitter settlement.Submitter
}

// NewService creates a ledger service. The submitter may be nil; purchases
// are then recorded without emitting settlement intents.
func NewService(st store.Store, submitter settlement.Submitter) *Service {
	return &Service{store: st, submitter: submitter}
}

// CreateRelease validates and registers a new release. The allocation must
// sum to 100 with no negative component; total shares must be positive and
// the share price non-negative.
func (s *Service) CreateRelease(ctx context.Context, params CreateReleaseParams) (*schema.Release, error) {
	if params.Title == "" {
		return nil, &InvalidReleaseError{Reason: "title is required"}
	}
	if params.ArtistID == "" {
		return nil, &InvalidReleaseError{Reason: "artist id is required"}
	}
	if params.TotalShares <= 0 {
		return nil, &InvalidReleaseError{Reason: "total shares must be positive"}
	}
	if params.PricePerShare.IsNegative() {
		return nil, &InvalidReleaseError{Reason: "price per share must not be negative"}
	}

	split := allocation.Split{
		Platform:     params.PlatformPct,
		Artist:       params.ArtistPct,
		InvestorPool: params.InvestorPct,
	}
	if err := split.Validate(); err != nil {
		return nil, err
	}

	release, err := s.store.CreateRelease(ctx, store.CreateReleaseInput{
		ID:            uuid.NewString(),
		Title:         params.Title,
		ArtistID:      params.ArtistID,
		Genre:         params.Genre,
		AssetURI:      params.AssetURI,
		TotalShares:   params.TotalShares,
		PricePerShare: params.PricePerShare.RoundDown(domain.AmountScale),
		PlatformPct:   params.PlatformPct,
		ArtistPct:     params.ArtistPct,
		InvestorPct:   params.InvestorPct,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "release registered",
		zap.String("releaseID", release.ID),
		zap.String("artistID", release.ArtistID),
		zap.Int64("totalShares", release.TotalShares))
	return release, nil
}

// GetRelease retrieves a release by id.
func (s *Service) GetRelease(ctx context.Context, id string) (*schema.Release, error) {
	release, err := s.store.GetReleaseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, domain.ErrReleaseNotFound
	}
	return release, nil
}

// ListReleases retrieves a page of releases, newest first.
func (s *Service) ListReleases(ctx context.Context, limit, offset int) ([]schema.Release, int64, error) {
	return s.store.ListReleases(ctx, limit, offset)
}

// Quote prices a prospective purchase against the release's current sale
// state. Quotes are advisory: they reserve nothing.
func (s *Service) Quote(ctx context.Context, releaseID string, shares int64) (*domain.Quote, error) {
	release, err := s.GetRelease(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if release.InvestorPct.IsZero() {
		return nil, domain.ErrNoInvestorPool
	}

	quote, err := release.SaleState().QuoteFor(shares)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// Purchase buys shares. The store applies the ledger effect atomically; the
// settlement intent is emitted afterwards, and its failure leaves the
// purchase pending for the external reconciler rather than undoing a
// committed trade.
func (s *Service) Purchase(ctx context.Context, params PurchaseParams) (*store.PurchaseSharesResult, error) {
	purchaseID := ulid.Make().String()

	result, err := s.store.PurchaseShares(ctx, store.PurchaseSharesInput{
		PurchaseID: purchaseID,
		ReleaseID:  params.ReleaseID,
		InvestorID: params.InvestorID,
		Shares:     params.Shares,
		Paid:       params.Paid,
	})
	if err != nil {
		return nil, err
	}

	if s.submitter != nil {
		intent := settlement.PurchaseIntent{
			PurchaseID: result.Purchase.ID,
			ReleaseID:  result.Purchase.ReleaseID,
			InvestorID: result.Purchase.InvestorID,
			Shares:     result.Purchase.Shares,
			Paid:       result.Purchase.Paid,
		}
		if err := s.submitter.SubmitPurchase(ctx, intent); err != nil {
			logger.ErrorCtx(ctx, err,
				zap.String("message", "failed to submit purchase intent"),
				zap.String("purchaseID", result.Purchase.ID))
		}
	}

	logger.InfoCtx(ctx, "shares purchased",
		zap.String("purchaseID", result.Purchase.ID),
		zap.String("releaseID", params.ReleaseID),
		zap.String("investorID", params.InvestorID),
		zap.Int64("shares", params.Shares))
	return result, nil
}

// GetPurchase retrieves a purchase by id.
func (s *Service) GetPurchase(ctx context.Context, id string) (*schema.SharePurchase, error) {
	purchase, err := s.store.GetPurchaseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, domain.ErrPurchaseNotFound
	}
	return purchase, nil
}

// SettlePurchase marks a purchase settled after the external submitter
// confirms the on-chain transfer. Settling twice is a no-op.
func (s *Service) SettlePurchase(ctx context.Context, purchaseID string) (*schema.SharePurchase, error) {
	if err := s.store.MarkPurchaseSettled(ctx, purchaseID); err != nil {
		return nil, err
	}
	return s.GetPurchase(ctx, purchaseID)
}

// RevertPurchase compensates a purchase after confirmed external settlement
// failure: the shares return to the pool and the holding shrinks.
func (s *Service) RevertPurchase(ctx context.Context, purchaseID string) (*schema.SharePurchase, error) {
	if err := s.store.RevertPurchase(ctx, purchaseID); err != nil {
		return nil, err
	}

	logger.WarnCtx(ctx, "purchase reverted", zap.String("purchaseID", purchaseID))
	return s.GetPurchase(ctx, purchaseID)
}

// Holdings lists a release's cap table in ascending investor id order.
func (s *Service) Holdings(ctx context.Context, releaseID string) ([]schema.Holding, error) {
	if _, err := s.GetRelease(ctx, releaseID); err != nil {
		return nil, err
	}
	return s.store.ListHoldings(ctx, releaseID)
}

// Distributions lists a release's distribution records, newest first.
func (s *Service) Distributions(ctx context.Context, releaseID string, limit, offset int) ([]schema.DistributionRecord, int64, error) {
	if _, err := s.GetRelease(ctx, releaseID); err != nil {
		return nil, 0, err
	}
	return s.store.ListDistributions(ctx, releaseID, limit, offset)
}

// GetDistribution retrieves a distribution record by id.
func (s *Service) GetDistribution(ctx context.Context, id string) (*schema.DistributionRecord, error) {
	record, err := s.store.GetDistributionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrDistributionNotFound
	}
	return record, nil
}
