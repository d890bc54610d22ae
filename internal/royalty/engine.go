// Package royalty converts stream-play events into revenue distribution
// records: gross revenue pricing through the rate tables, the
// platform/artist/investor-pool split, and the per-investor apportionment of
// the pool.
package royalty

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tunestake/royalty-ledger/internal/allocation"
	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/rates"
)

var hundred = decimal.NewFromInt(100)

// GrossRevenue prices a single stream event:
// base × tier × quality × locale. Unknown tiers and qualities fail; unknown
// locales price at 1.0.
func GrossRevenue(ev *domain.StreamEvent, cfg rates.Config) (decimal.Decimal, error) {
	tierM, err := cfg.TierMultiplier(ev.Tier)
	if err != nil {
		return decimal.Zero, err
	}
	qualityM, err := cfg.QualityMultiplier(ev.Quality)
	if err != nil {
		return decimal.Zero, err
	}
	return cfg.BaseRate.
		Mul(tierM).
		Mul(qualityM).
		Mul(cfg.LocaleMultiplier(ev.Locale)), nil
}

// HoldingShare is the share count of one investor at distribution time.
type HoldingShare struct {
	InvestorID  string
	SharesOwned int64
}

// InvestorAmount is one investor's cut of the pool.
type InvestorAmount struct {
	InvestorID  string
	SharesOwned int64
	Amount      decimal.Decimal
}

// Distribution is the computed split of one gross revenue amount. Invariants:
// Platform + Artist + InvestorPool equals Gross exactly, and the investor
// amounts sum to InvestorPool exactly.
type Distribution struct {
	Gross        decimal.Decimal
	Platform     decimal.Decimal
	Artist       decimal.Decimal
	InvestorPool decimal.Decimal
	Investors    []InvestorAmount
}

// Distribute splits gross revenue per the release allocation and apportions
// the investor pool across holders.
//
// Platform and artist amounts round down at the amount scale; the pool is
// computed by subtraction so the three always sum to gross regardless of
// rounding. With no shares sold the pool folds into the artist amount. Each
// holder's cut is pool × shares/sold rounded down, with the final holder in
// ascending investor-id order absorbing the residue, keeping the investor sum
// exact. Pure and deterministic: identical inputs yield identical amounts.
func Distribute(alloc allocation.Split, gross decimal.Decimal, sold int64, holdings []HoldingShare) Distribution {
	platform := gross.Mul(alloc.Platform).Div(hundred).RoundDown(domain.AmountScale)
	artist := gross.Mul(alloc.Artist).Div(hundred).RoundDown(domain.AmountScale)
	pool := gross.Sub(platform).Sub(artist)

	if sold == 0 || len(holdings) == 0 {
		// no holders to pay; the pool belongs to the artist
		return Distribution{
			Gross:        gross,
			Platform:     platform,
			Artist:       artist.Add(pool),
			InvestorPool: decimal.Zero,
		}
	}

	ordered := make([]HoldingShare, len(holdings))
	copy(ordered, holdings)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].InvestorID < ordered[j].InvestorID
	})

	soldDec := decimal.NewFromInt(sold)
	investors := make([]InvestorAmount, len(ordered))
	paid := decimal.Zero
	for i, h := range ordered {
		var amount decimal.Decimal
		if i == len(ordered)-1 {
			amount = pool.Sub(paid)
		} else {
			amount = pool.
				Mul(decimal.NewFromInt(h.SharesOwned)).
				Div(soldDec).
				RoundDown(domain.AmountScale)
			paid = paid.Add(amount)
		}
		investors[i] = InvestorAmount{
			InvestorID:  h.InvestorID,
			SharesOwned: h.SharesOwned,
			Amount:      amount,
		}
	}

	return Distribution{
		Gross:        gross,
		Platform:     platform,
		Artist:       artist,
		InvestorPool: pool,
		Investors:    investors,
	}
}
