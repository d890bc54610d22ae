package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidTier(t *testing.T) {
	tests := []struct {
		name  string
		tier  SubscriptionTier
		valid bool
	}{
		{"free", TierFree, true},
		{"basic", TierBasic, true},
		{"premium", TierPremium, true},
		{"ultimate", TierUltimate, true},
		{"unknown", SubscriptionTier("platinum"), false},
		{"empty", SubscriptionTier(""), false},
		{"case sensitive", SubscriptionTier("Premium"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidTier(tt.tier))
		})
	}
}

func TestIsValidQuality(t *testing.T) {
	tests := []struct {
		name    string
		quality AudioQuality
		valid   bool
	}{
		{"standard", QualityStandard, true},
		{"high", QualityHigh, true},
		{"lossless", QualityLossless, true},
		{"unknown", AudioQuality("8k"), false},
		{"empty", AudioQuality(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidQuality(tt.quality))
		})
	}
}

func TestStreamEventValid(t *testing.T) {
	base := StreamEvent{
		EventID:    "01HZXW3E1R4N8T1V9GYYKQ6RPF",
		ReleaseID:  "3b9f2a44-9176-4f43-a07c-9c2e3de4b5bb",
		Tier:       TierPremium,
		Quality:    QualityHigh,
		Locale:     "en-US",
		OccurredAt: time.Now(),
	}

	t.Run("complete event is valid", func(t *testing.T) {
		ev := base
		assert.True(t, ev.Valid())
	})

	t.Run("event id is optional", func(t *testing.T) {
		ev := base
		ev.EventID = ""
		assert.True(t, ev.Valid())
	})

	t.Run("locale is optional", func(t *testing.T) {
		ev := base
		ev.Locale = ""
		assert.True(t, ev.Valid())
	})

	t.Run("missing release id", func(t *testing.T) {
		ev := base
		ev.ReleaseID = ""
		assert.False(t, ev.Valid())
	})

	t.Run("unknown tier", func(t *testing.T) {
		ev := base
		ev.Tier = "vip"
		assert.False(t, ev.Valid())
	})

	t.Run("unknown quality", func(t *testing.T) {
		ev := base
		ev.Quality = "spatial"
		assert.False(t, ev.Valid())
	})
}

func TestSaleStateQuoteFor(t *testing.T) {
	state := SaleState{
		TotalShares: 100,
		SharesSold:  0,
		UnitPrice:   decimal.NewFromInt(2),
	}

	t.Run("quote prices at unit price times shares", func(t *testing.T) {
		q, err := state.QuoteFor(40)
		require.NoError(t, err)

		assert.Equal(t, int64(40), q.Shares)
		assert.True(t, q.TotalCost.Equal(decimal.NewFromInt(80)), "total cost = %s", q.TotalCost)
		assert.Equal(t, int64(60), q.RemainingAfter)
	})

	t.Run("quote does not reserve shares", func(t *testing.T) {
		_, err := state.QuoteFor(40)
		require.NoError(t, err)
		assert.Equal(t, int64(100), state.Remaining())
	})

	t.Run("zero shares rejected", func(t *testing.T) {
		_, err := state.QuoteFor(0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("negative shares rejected", func(t *testing.T) {
		_, err := state.QuoteFor(-5)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("oversubscription rejected", func(t *testing.T) {
		_, err := state.QuoteFor(101)
		assert.ErrorIs(t, err, ErrInsufficientShares)
	})

	t.Run("remaining shrinks with sold", func(t *testing.T) {
		partial := state
		partial.SharesSold = 70

		q, err := partial.QuoteFor(30)
		require.NoError(t, err)
		assert.Equal(t, int64(0), q.RemainingAfter)

		_, err = partial.QuoteFor(31)
		assert.ErrorIs(t, err, ErrInsufficientShares)
	})

	t.Run("fractional unit price keeps exact cost", func(t *testing.T) {
		frac := SaleState{
			TotalShares: 1000,
			UnitPrice:   decimal.RequireFromString("0.33333333"),
		}
		q, err := frac.QuoteFor(3)
		require.NoError(t, err)
		assert.True(t, q.TotalCost.Equal(decimal.RequireFromString("0.99999999")))
	})
}

func TestSaleStateValidatePurchase(t *testing.T) {
	state := SaleState{
		TotalShares: 100,
		SharesSold:  60,
		UnitPrice:   decimal.RequireFromString("1.5"),
	}

	t.Run("exact payment accepted", func(t *testing.T) {
		err := state.ValidatePurchase(10, decimal.NewFromInt(15))
		assert.NoError(t, err)
	})

	t.Run("payment accepted regardless of representation", func(t *testing.T) {
		err := state.ValidatePurchase(10, decimal.RequireFromString("15.000"))
		assert.NoError(t, err)
	})

	t.Run("underpayment rejected", func(t *testing.T) {
		err := state.ValidatePurchase(10, decimal.RequireFromString("14.99"))
		assert.ErrorIs(t, err, ErrPriceMismatch)
	})

	t.Run("overpayment rejected", func(t *testing.T) {
		err := state.ValidatePurchase(10, decimal.RequireFromString("15.01"))
		assert.ErrorIs(t, err, ErrPriceMismatch)
	})

	t.Run("quantity errors take precedence", func(t *testing.T) {
		err := state.ValidatePurchase(41, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, ErrInsufficientShares)
	})
}
