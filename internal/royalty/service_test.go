package royalty

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/rates"
	"github.com/tunestake/royalty-ledger/internal/settlement"
	"github.com/tunestake/royalty-ledger/internal/store"
)

// captureSubmitter records submitted intents instead of publishing them.
type captureSubmitter struct {
	mu            sync.Mutex
	distributions []settlement.DistributionIntent
	fail          error
}

func (s *captureSubmitter) SubmitPurchase(_ context.Context, _ settlement.PurchaseIntent) error {
	return nil
}

func (s *captureSubmitter) SubmitDistribution(_ context.Context, intent settlement.DistributionIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.distributions = append(s.distributions, intent)
	return nil
}

func (s *captureSubmitter) Close() error { return nil }

func (s *captureSubmitter) submitted() []settlement.DistributionIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]settlement.DistributionIntent(nil), s.distributions...)
}

const testReleaseID = "3b9f2a44-9176-4f43-a07c-9c2e3de4b5bb"

// seedRelease creates a 100-share release at 1.00 per share with a 15/55/30
// split, and sells 20 shares to inv-a and 30 to inv-b.
func seedRelease(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := st.CreateRelease(ctx, store.CreateReleaseInput{
		ID:            testReleaseID,
		Title:         "Midnight Transit",
		ArtistID:      "artist-1",
		Genre:         "electronic",
		TotalShares:   100,
		PricePerShare: decimal.NewFromInt(1),
		PlatformPct:   dec("15"),
		ArtistPct:     dec("55"),
		InvestorPct:   dec("30"),
	})
	require.NoError(t, err)

	for _, p := range []struct {
		id       string
		investor string
		shares   int64
	}{
		{"01HZX0000000000000000000P1", "inv-a", 20},
		{"01HZX0000000000000000000P2", "inv-b", 30},
	} {
		_, err := st.PurchaseShares(ctx, store.PurchaseSharesInput{
			PurchaseID: p.id,
			ReleaseID:  testReleaseID,
			InvestorID: p.investor,
			Shares:     p.shares,
			Paid:       decimal.NewFromInt(p.shares),
		})
		require.NoError(t, err)
	}
}

func premiumEvent(eventID string) *domain.StreamEvent {
	return &domain.StreamEvent{
		EventID:    eventID,
		ReleaseID:  testReleaseID,
		Tier:       domain.TierPremium,
		Quality:    domain.QualityHigh,
		Locale:     "en-US",
		OccurredAt: time.Now().UTC(),
	}
}

func TestSettleStream(t *testing.T) {
	ctx := context.Background()

	t.Run("settles a priced event into a distribution record", func(t *testing.T) {
		st := store.NewMemStore()
		seedRelease(t, st)
		sub := &captureSubmitter{}
		svc := NewService(st, rates.NewStore(nil), sub)

		record, err := svc.SettleStream(ctx, premiumEvent("ev-1"))
		require.NoError(t, err)

		// premium/high at the default rates: 0.003 * 1.3 * 1.2
		gross := dec("0.00468")
		assert.True(t, record.GrossRevenue.Equal(gross))
		assert.True(t, record.PlatformAmount.
			Add(record.ArtistAmount).
			Add(record.InvestorPoolAmount).
			Equal(gross))

		require.Len(t, record.Shares, 2)
		assert.Equal(t, "inv-a", record.Shares[0].InvestorID)
		assert.Equal(t, "inv-b", record.Shares[1].InvestorID)
		sum := record.Shares[0].Amount.Add(record.Shares[1].Amount)
		assert.True(t, sum.Equal(record.InvestorPoolAmount))

		assert.Len(t, record.RecordHash, 64)

		intents := sub.submitted()
		require.Len(t, intents, 1)
		assert.Equal(t, record.ID, intents[0].RecordID)
		assert.Equal(t, "artist-1", intents[0].ArtistID)
		assert.Equal(t, record.RecordHash, intents[0].RecordHash)
		require.Len(t, intents[0].Payouts, 2)
		assert.True(t, intents[0].Payouts[0].Amount.Equal(record.Shares[0].Amount))
	})

	t.Run("redelivered event returns the original record once", func(t *testing.T) {
		st := store.NewMemStore()
		seedRelease(t, st)
		sub := &captureSubmitter{}
		svc := NewService(st, rates.NewStore(nil), sub)

		first, err := svc.SettleStream(ctx, premiumEvent("ev-dup"))
		require.NoError(t, err)
		second, err := svc.SettleStream(ctx, premiumEvent("ev-dup"))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, sub.submitted(), 1, "redelivery must not emit a second intent")
	})

	t.Run("missing event id is assigned", func(t *testing.T) {
		st := store.NewMemStore()
		seedRelease(t, st)
		svc := NewService(st, rates.NewStore(nil), nil)

		record, err := svc.SettleStream(ctx, premiumEvent(""))
		require.NoError(t, err)
		assert.NotEmpty(t, record.EventID)
	})

	t.Run("nil event rejected", func(t *testing.T) {
		svc := NewService(store.NewMemStore(), rates.NewStore(nil), nil)
		_, err := svc.SettleStream(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	})

	t.Run("malformed event rejected", func(t *testing.T) {
		svc := NewService(store.NewMemStore(), rates.NewStore(nil), nil)
		ev := premiumEvent("ev-bad")
		ev.Tier = "vip"
		_, err := svc.SettleStream(ctx, ev)
		assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	})

	t.Run("unknown release rejected", func(t *testing.T) {
		svc := NewService(store.NewMemStore(), rates.NewStore(nil), nil)
		_, err := svc.SettleStream(ctx, premiumEvent("ev-2"))
		assert.ErrorIs(t, err, domain.ErrReleaseNotFound)
	})

	t.Run("no holders folds the pool into the artist", func(t *testing.T) {
		st := store.NewMemStore()
		_, err := st.CreateRelease(ctx, store.CreateReleaseInput{
			ID:            testReleaseID,
			Title:         "Unsold",
			ArtistID:      "artist-1",
			TotalShares:   100,
			PricePerShare: decimal.NewFromInt(1),
			PlatformPct:   dec("15"),
			ArtistPct:     dec("55"),
			InvestorPct:   dec("30"),
		})
		require.NoError(t, err)
		sub := &captureSubmitter{}
		svc := NewService(st, rates.NewStore(nil), sub)

		record, err := svc.SettleStream(ctx, premiumEvent("ev-3"))
		require.NoError(t, err)

		assert.True(t, record.InvestorPoolAmount.IsZero())
		assert.Empty(t, record.Shares)
		assert.True(t, record.PlatformAmount.Add(record.ArtistAmount).Equal(record.GrossRevenue))

		intents := sub.submitted()
		require.Len(t, intents, 1)
		assert.Empty(t, intents[0].Payouts)
	})

	t.Run("pricing follows the live rate configuration", func(t *testing.T) {
		st := store.NewMemStore()
		seedRelease(t, st)
		rateStore := rates.NewStore(nil)
		svc := NewService(st, rateStore, nil)

		next := rates.DefaultConfig()
		next.BaseRate = dec("0.006")
		require.NoError(t, rateStore.Update(ctx, next))

		record, err := svc.SettleStream(ctx, premiumEvent("ev-4"))
		require.NoError(t, err)
		// 0.006 * 1.3 * 1.2
		assert.True(t, record.GrossRevenue.Equal(dec("0.00936")))
	})

	t.Run("submit failure does not undo the settlement", func(t *testing.T) {
		st := store.NewMemStore()
		seedRelease(t, st)
		sub := &captureSubmitter{fail: assert.AnError}
		svc := NewService(st, rates.NewStore(nil), sub)

		record, err := svc.SettleStream(ctx, premiumEvent("ev-5"))
		require.NoError(t, err)

		stored, err := st.GetDistributionByID(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
	})
}
