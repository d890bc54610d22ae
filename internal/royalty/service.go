package royalty

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/logger"
	"github.com/tunestake/royalty-ledger/internal/rates"
	"github.com/tunestake/royalty-ledger/internal/settlement"
	"github.com/tunestake/royalty-ledger/internal/store"
	"github.com/tunestake/royalty-ledger/internal/store/schema"
)

// Service settles stream-play events: it prices the event, splits the
// revenue, persists the distribution record, and hands the payout intent to
// the external settlement submitter.
type Service struct {
	store     store.Store
	rates     *rates.Store
	submitter settlement.Submitter
}

// NewService creates a royalty settlement service. The submitter may be nil;
// distributions are then recorded without emitting settlement intents.
func NewService(st store.Store, rateStore *rates.Store, submitter settlement.Submitter) *Service {
	return &Service{
		store:     st,
		rates:     rateStore,
		submitter: submitter,
	}
}

// recordPayload is the canonical content hashed into a distribution record.
// Field order is irrelevant; the hash is computed over the RFC 8785 form.
type recordPayload struct {
	RecordID           string               `json:"record_id"`
	ReleaseID          string               `json:"release_id"`
	EventID            string               `json:"event_id"`
	GrossRevenue       string               `json:"gross_revenue"`
	PlatformAmount     string               `json:"platform_amount"`
	ArtistAmount       string               `json:"artist_amount"`
	InvestorPoolAmount string               `json:"investor_pool_amount"`
	Shares             []recordPayloadShare `json:"shares"`
}

type recordPayloadShare struct {
	InvestorID  string `json:"investor_id"`
	SharesOwned int64  `json:"shares_owned"`
	Amount      string `json:"amount"`
}

// SettleStream converts one stream-play event into a persisted distribution
// record.
//
// The rate configuration and holdings are read at settlement time, so the
// event is priced and apportioned against the state current when it is
// processed, not when it was played. Settlement is idempotent on the event id:
// a redelivered event returns the original record without emitting a second
// settlement intent.
func (s *Service) SettleStream(ctx context.Context, ev *domain.StreamEvent) (*schema.DistributionRecord, error) {
	if ev == nil || !ev.Valid() {
		return nil, domain.ErrInvalidEvent
	}
	if ev.EventID == "" {
		ev.EventID = ulid.Make().String()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	cfg := s.rates.Get()
	gross, err := GrossRevenue(ev, cfg)
	if err != nil {
		return nil, err
	}

	release, err := s.store.GetReleaseByID(ctx, ev.ReleaseID)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, domain.ErrReleaseNotFound
	}

	holdings, err := s.store.ListHoldings(ctx, ev.ReleaseID)
	if err != nil {
		return nil, err
	}
	shares := make([]HoldingShare, len(holdings))
	for i, h := range holdings {
		shares[i] = HoldingShare{InvestorID: h.InvestorID, SharesOwned: h.SharesOwned}
	}

	dist := Distribute(release.Allocation(), gross, release.SharesSold, shares)

	recordID := ulid.Make().String()
	hash, err := hashRecord(recordID, release.ID, ev.EventID, dist)
	if err != nil {
		return nil, err
	}

	eventJSON, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stream event: %w", err)
	}

	input := store.CreateDistributionInput{
		RecordID:           recordID,
		ReleaseID:          release.ID,
		EventID:            ev.EventID,
		Event:              datatypes.JSON(eventJSON),
		GrossRevenue:       dist.Gross,
		PlatformAmount:     dist.Platform,
		ArtistAmount:       dist.Artist,
		InvestorPoolAmount: dist.InvestorPool,
		RecordHash:         hash,
		CreatedAt:          time.Now().UTC(),
		Shares:             make([]store.CreateDistributionShareInput, len(dist.Investors)),
	}
	for i, inv := range dist.Investors {
		input.Shares[i] = store.CreateDistributionShareInput{
			InvestorID:  inv.InvestorID,
			SharesOwned: inv.SharesOwned,
			Amount:      inv.Amount,
		}
	}

	record, err := s.store.CreateDistribution(ctx, input)
	if err != nil {
		return nil, err
	}
	if record.ID != recordID {
		// redelivery; the original record already settled this event
		logger.InfoCtx(ctx, "stream event already settled",
			zap.String("eventID", ev.EventID),
			zap.String("recordID", record.ID))
		return record, nil
	}

	s.submitIntent(ctx, release, record)

	logger.InfoCtx(ctx, "stream event settled",
		zap.String("eventID", ev.EventID),
		zap.String("recordID", record.ID),
		zap.String("releaseID", release.ID),
		zap.String("gross", dist.Gross.String()))
	return record, nil
}

// submitIntent emits the payout intent for a freshly created record. The
// record is already durable; a publish failure is logged and left for the
// external reconciler rather than failing the settlement.
func (s *Service) submitIntent(ctx context.Context, release *schema.Release, record *schema.DistributionRecord) {
	if s.submitter == nil {
		return
	}

	intent := settlement.DistributionIntent{
		RecordID:       record.ID,
		ReleaseID:      record.ReleaseID,
		EventID:        record.EventID,
		ArtistID:       release.ArtistID,
		PlatformAmount: record.PlatformAmount,
		ArtistAmount:   record.ArtistAmount,
		RecordHash:     record.RecordHash,
		Payouts:        make([]settlement.DistributionPayout, len(record.Shares)),
	}
	for i, sh := range record.Shares {
		intent.Payouts[i] = settlement.DistributionPayout{
			InvestorID: sh.InvestorID,
			Amount:     sh.Amount,
		}
	}

	if err := s.submitter.SubmitDistribution(ctx, intent); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("message", "failed to submit distribution intent"),
			zap.String("recordID", record.ID))
	}
}

func hashRecord(recordID, releaseID, eventID string, dist Distribution) (string, error) {
	payload := recordPayload{
		RecordID:           recordID,
		ReleaseID:          releaseID,
		EventID:            eventID,
		GrossRevenue:       dist.Gross.String(),
		PlatformAmount:     dist.Platform.String(),
		ArtistAmount:       dist.Artist.String(),
		InvestorPoolAmount: dist.InvestorPool.String(),
		Shares:             make([]recordPayloadShare, len(dist.Investors)),
	}
	for i, inv := range dist.Investors {
		payload.Shares[i] = recordPayloadShare{
			InvestorID:  inv.InvestorID,
			SharesOwned: inv.SharesOwned,
			Amount:      inv.Amount.String(),
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record payload: %w", err)
	}
	return settlement.HashPayload(data)
}
