package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/rates"
	"github.com/tunestake/royalty-ledger/internal/store/schema"
)

// MemStore is an in-memory Store used by tests and local development. It
// honors the same transactional semantics as the PostgreSQL implementation:
// purchases are serialized per process by a single mutex, and distribution
// creation is idempotent on the event id.
type MemStore struct {
	mu            sync.Mutex
	releases      map[string]*schema.Release
	holdings      map[string]map[string]*schema.Holding // releaseID -> investorID
	purchases     map[string]*schema.SharePurchase
	distributions map[string]*schema.DistributionRecord
	byEventID     map[string]string // eventID -> recordID
	rateConfig    *rates.Config
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		releases:      make(map[string]*schema.Release),
		holdings:      make(map[string]map[string]*schema.Holding),
		purchases:     make(map[string]*schema.SharePurchase),
		distributions: make(map[string]*schema.DistributionRecord),
		byEventID:     make(map[string]string),
	}
}

func (s *MemStore) CreateRelease(_ context.Context, input CreateReleaseInput) (*schema.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release := &schema.Release{
		ID:            input.ID,
		Title:         input.Title,
		ArtistID:      input.ArtistID,
		Genre:         input.Genre,
		AssetURI:      input.AssetURI,
		TotalShares:   input.TotalShares,
		PricePerShare: input.PricePerShare,
		PlatformPct:   input.PlatformPct,
		ArtistPct:     input.ArtistPct,
		InvestorPct:   input.InvestorPct,
		CreatedAt:     time.Now().UTC(),
	}
	s.releases[release.ID] = release

	cp := *release
	return &cp, nil
}

func (s *MemStore) GetReleaseByID(_ context.Context, id string) (*schema.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, ok := s.releases[id]
	if !ok {
		return nil, nil
	}
	cp := *release
	return &cp, nil
}

func (s *MemStore) ListReleases(_ context.Context, limit int, offset int) ([]schema.Release, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]schema.Release, 0, len(s.releases))
	for _, r := range s.releases {
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemStore) PurchaseShares(_ context.Context, input PurchaseSharesInput) (*PurchaseSharesResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, ok := s.releases[input.ReleaseID]
	if !ok {
		return nil, domain.ErrReleaseNotFound
	}
	if release.InvestorPct.IsZero() {
		return nil, domain.ErrNoInvestorPool
	}
	if err := release.SaleState().ValidatePurchase(input.Shares, input.Paid); err != nil {
		return nil, err
	}

	release.SharesSold += input.Shares

	now := time.Now().UTC()
	byInvestor, ok := s.holdings[release.ID]
	if !ok {
		byInvestor = make(map[string]*schema.Holding)
		s.holdings[release.ID] = byInvestor
	}
	holding, ok := byInvestor[input.InvestorID]
	if ok {
		holding.SharesOwned += input.Shares
		holding.UpdatedAt = now
	} else {
		holding = &schema.Holding{
			ReleaseID:   release.ID,
			InvestorID:  input.InvestorID,
			SharesOwned: input.Shares,
			AcquiredAt:  now,
			UpdatedAt:   now,
		}
		byInvestor[input.InvestorID] = holding
	}

	purchase := &schema.SharePurchase{
		ID:         input.PurchaseID,
		ReleaseID:  release.ID,
		InvestorID: input.InvestorID,
		Shares:     input.Shares,
		UnitPrice:  release.PricePerShare,
		Paid:       input.Paid,
		Status:     domain.PurchasePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.purchases[purchase.ID] = purchase

	purchaseCp := *purchase
	holdingCp := *holding
	releaseCp := *release
	return &PurchaseSharesResult{
		Purchase: &purchaseCp,
		Holding:  &holdingCp,
		Release:  &releaseCp,
	}, nil
}

func (s *MemStore) GetPurchaseByID(_ context.Context, id string) (*schema.SharePurchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, nil
	}
	cp := *purchase
	return &cp, nil
}

func (s *MemStore) MarkPurchaseSettled(_ context.Context, purchaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[purchaseID]
	if !ok {
		return domain.ErrPurchaseNotFound
	}
	if purchase.Status == domain.PurchaseReverted {
		return domain.ErrPurchaseReverted
	}
	if purchase.Status == domain.PurchaseSettled {
		return nil
	}
	purchase.Status = domain.PurchaseSettled
	purchase.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemStore) RevertPurchase(_ context.Context, purchaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[purchaseID]
	if !ok {
		return domain.ErrPurchaseNotFound
	}
	if purchase.Status == domain.PurchaseReverted {
		return domain.ErrPurchaseReverted
	}

	release := s.releases[purchase.ReleaseID]
	release.SharesSold -= purchase.Shares

	if byInvestor, ok := s.holdings[purchase.ReleaseID]; ok {
		if holding, ok := byInvestor[purchase.InvestorID]; ok {
			holding.SharesOwned -= purchase.Shares
			holding.UpdatedAt = time.Now().UTC()
			if holding.SharesOwned <= 0 {
				delete(byInvestor, purchase.InvestorID)
			}
		}
	}

	purchase.Status = domain.PurchaseReverted
	purchase.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemStore) GetHolding(_ context.Context, releaseID, investorID string) (*schema.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byInvestor, ok := s.holdings[releaseID]; ok {
		if holding, ok := byInvestor[investorID]; ok {
			cp := *holding
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemStore) ListHoldings(_ context.Context, releaseID string) ([]schema.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byInvestor := s.holdings[releaseID]
	holdings := make([]schema.Holding, 0, len(byInvestor))
	for _, h := range byInvestor {
		holdings = append(holdings, *h)
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].InvestorID < holdings[j].InvestorID
	})
	return holdings, nil
}

func (s *MemStore) CreateDistribution(_ context.Context, input CreateDistributionInput) (*schema.DistributionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byEventID[input.EventID]; ok {
		cp := *s.distributions[existingID]
		return &cp, nil
	}

	record := &schema.DistributionRecord{
		ID:                 input.RecordID,
		ReleaseID:          input.ReleaseID,
		EventID:            input.EventID,
		Event:              input.Event,
		GrossRevenue:       input.GrossRevenue,
		PlatformAmount:     input.PlatformAmount,
		ArtistAmount:       input.ArtistAmount,
		InvestorPoolAmount: input.InvestorPoolAmount,
		RecordHash:         input.RecordHash,
		CreatedAt:          input.CreatedAt,
		Shares:             make([]schema.DistributionShare, len(input.Shares)),
	}
	for i, sh := range input.Shares {
		record.Shares[i] = schema.DistributionShare{
			RecordID:    record.ID,
			InvestorID:  sh.InvestorID,
			SharesOwned: sh.SharesOwned,
			Amount:      sh.Amount,
		}
	}
	s.distributions[record.ID] = record
	s.byEventID[record.EventID] = record.ID

	cp := *record
	return &cp, nil
}

func (s *MemStore) GetDistributionByID(_ context.Context, id string) (*schema.DistributionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.distributions[id]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

func (s *MemStore) ListDistributions(_ context.Context, releaseID string, limit int, offset int) ([]schema.DistributionRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]schema.DistributionRecord, 0)
	for _, r := range s.distributions {
		if r.ReleaseID == releaseID {
			all = append(all, *r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemStore) SaveRateConfig(_ context.Context, cfg rates.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateConfig = &cfg
	return nil
}

func (s *MemStore) LoadRateConfig(_ context.Context) (*rates.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rateConfig == nil {
		return nil, nil
	}
	cp := *s.rateConfig
	return &cp, nil
}
