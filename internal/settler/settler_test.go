package settler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/messaging"
	"github.com/tunestake/royalty-ledger/internal/rates"
	"github.com/tunestake/royalty-ledger/internal/royalty"
	"github.com/tunestake/royalty-ledger/internal/store"
)

// fakeSubscriber hands the registered handler back to the test.
type fakeSubscriber struct {
	mu      sync.Mutex
	handler messaging.StreamEventHandler
	closed  bool
}

func (f *fakeSubscriber) SubscribeStreamEvents(_ context.Context, handler messaging.StreamEventHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return nil
}

func (f *fakeSubscriber) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSubscriber) subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

const testReleaseID = "3b9f2a44-9176-4f43-a07c-9c2e3de4b5bb"

func newSettler(t *testing.T) (*Settler, *fakeSubscriber, store.Store, *rates.Store) {
	t.Helper()

	st := store.NewMemStore()
	_, err := st.CreateRelease(context.Background(), store.CreateReleaseInput{
		ID:            testReleaseID,
		Title:         "Midnight Transit",
		ArtistID:      "artist-1",
		TotalShares:   100,
		PricePerShare: decimal.NewFromInt(1),
		PlatformPct:   decimal.RequireFromString("15"),
		ArtistPct:     decimal.RequireFromString("55"),
		InvestorPct:   decimal.RequireFromString("30"),
	})
	require.NoError(t, err)

	rateStore := rates.NewStore(nil)
	sub := &fakeSubscriber{}
	return New(sub, royalty.NewService(st, rateStore, nil)), sub, st, rateStore
}

func event(tier domain.SubscriptionTier) *domain.StreamEvent {
	return &domain.StreamEvent{
		EventID:   "ev-1",
		ReleaseID: testReleaseID,
		Tier:      tier,
		Quality:   domain.QualityHigh,
	}
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("settles and acks", func(t *testing.T) {
		s, _, st, _ := newSettler(t)

		require.NoError(t, s.handleEvent(ctx, event(domain.TierPremium)))

		records, total, err := st.ListDistributions(ctx, testReleaseID, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "ev-1", records[0].EventID)
	})

	t.Run("malformed event is dropped, not redelivered", func(t *testing.T) {
		s, _, _, _ := newSettler(t)
		assert.NoError(t, s.handleEvent(ctx, event("vip")))
	})

	t.Run("unknown release is dropped, not redelivered", func(t *testing.T) {
		s, _, _, _ := newSettler(t)
		ev := event(domain.TierPremium)
		ev.ReleaseID = "missing"
		assert.NoError(t, s.handleEvent(ctx, ev))
	})

	t.Run("transient failure is returned for redelivery", func(t *testing.T) {
		s, _, _, rateStore := newSettler(t)

		// a configuration without the premium tier makes pricing fail with an
		// error redelivery could fix once rates are corrected
		next := rates.DefaultConfig()
		delete(next.TierMultipliers, domain.TierPremium)
		require.NoError(t, rateStore.Update(ctx, next))

		assert.Error(t, s.handleEvent(ctx, event(domain.TierPremium)))
	})
}

func TestRun(t *testing.T) {
	t.Run("subscribes and stops on cancellation", func(t *testing.T) {
		s, sub, _, _ := newSettler(t)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- s.Run(ctx)
		}()

		require.Eventually(t, sub.subscribed, time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("settler did not stop after cancellation")
		}
	})

	t.Run("close drains the subscription", func(t *testing.T) {
		s, sub, _, _ := newSettler(t)
		require.NoError(t, s.Close())
		assert.True(t, sub.closed)
	})
}
