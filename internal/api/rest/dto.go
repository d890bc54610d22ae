package rest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tunestake/royalty-ledger/internal/store/schema"
)

// AllocationDTO is the platform/artist/investor-pool percentage split.
type AllocationDTO struct {
	Platform     decimal.Decimal `json:"platform"`
	Artist       decimal.Decimal `json:"artist"`
	InvestorPool decimal.Decimal `json:"investor_pool"`
}

// CreateReleaseRequest registers a new release.
type CreateReleaseRequest struct {
	Title         string          `json:"title"`
	ArtistID      string          `json:"artist_id"`
	Genre         string          `json:"genre"`
	AssetURI      *string         `json:"asset_uri,omitempty"`
	TotalShares   int64           `json:"total_shares"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	Allocation    AllocationDTO   `json:"allocation"`
}

// ReleaseResponse is the public shape of a release.
type ReleaseResponse struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	ArtistID        string          `json:"artist_id"`
	Genre           string          `json:"genre"`
	AssetURI        *string         `json:"asset_uri,omitempty"`
	TotalShares     int64           `json:"total_shares"`
	SharesSold      int64           `json:"shares_sold"`
	SharesRemaining int64           `json:"shares_remaining"`
	PricePerShare   decimal.Decimal `json:"price_per_share"`
	Allocation      AllocationDTO   `json:"allocation"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toReleaseResponse(r *schema.Release) ReleaseResponse {
	return ReleaseResponse{
		ID:              r.ID,
		Title:           r.Title,
		ArtistID:        r.ArtistID,
		Genre:           r.Genre,
		AssetURI:        r.AssetURI,
		TotalShares:     r.TotalShares,
		SharesSold:      r.SharesSold,
		SharesRemaining: r.TotalShares - r.SharesSold,
		PricePerShare:   r.PricePerShare,
		Allocation: AllocationDTO{
			Platform:     r.PlatformPct,
			Artist:       r.ArtistPct,
			InvestorPool: r.InvestorPct,
		},
		CreatedAt: r.CreatedAt,
	}
}

// ListReleasesResponse is a page of releases.
type ListReleasesResponse struct {
	Releases []ReleaseResponse `json:"releases"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// PurchaseSharesRequest buys shares on a release. Paid must equal the quoted
// cost exactly.
type PurchaseSharesRequest struct {
	InvestorID string          `json:"investor_id"`
	Shares     int64           `json:"shares"`
	Paid       decimal.Decimal `json:"paid"`
}

// PurchaseResponse is the public shape of a purchase.
type PurchaseResponse struct {
	ID         string          `json:"id"`
	ReleaseID  string          `json:"release_id"`
	InvestorID string          `json:"investor_id"`
	Shares     int64           `json:"shares"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Paid       decimal.Decimal `json:"paid"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toPurchaseResponse(p *schema.SharePurchase) PurchaseResponse {
	return PurchaseResponse{
		ID:         p.ID,
		ReleaseID:  p.ReleaseID,
		InvestorID: p.InvestorID,
		Shares:     p.Shares,
		UnitPrice:  p.UnitPrice,
		Paid:       p.Paid,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// PurchaseResultResponse returns the purchase together with the buyer's
// resulting position and the release's updated sale state.
type PurchaseResultResponse struct {
	Purchase PurchaseResponse `json:"purchase"`
	Holding  HoldingResponse  `json:"holding"`
	Release  ReleaseResponse  `json:"release"`
}

// HoldingResponse is one investor's position on a release.
type HoldingResponse struct {
	InvestorID  string    `json:"investor_id"`
	SharesOwned int64     `json:"shares_owned"`
	AcquiredAt  time.Time `json:"acquired_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toHoldingResponse(h *schema.Holding) HoldingResponse {
	return HoldingResponse{
		InvestorID:  h.InvestorID,
		SharesOwned: h.SharesOwned,
		AcquiredAt:  h.AcquiredAt,
		UpdatedAt:   h.UpdatedAt,
	}
}

// HoldingsResponse is a release's cap table.
type HoldingsResponse struct {
	ReleaseID string            `json:"release_id"`
	Holdings  []HoldingResponse `json:"holdings"`
}

// DistributionShareResponse is one investor line of a distribution record.
type DistributionShareResponse struct {
	InvestorID  string          `json:"investor_id"`
	SharesOwned int64           `json:"shares_owned"`
	Amount      decimal.Decimal `json:"amount"`
}

// DistributionResponse is the public shape of a distribution record.
type DistributionResponse struct {
	ID                 string                      `json:"id"`
	ReleaseID          string                      `json:"release_id"`
	EventID            string                      `json:"event_id"`
	GrossRevenue       decimal.Decimal             `json:"gross_revenue"`
	PlatformAmount     decimal.Decimal             `json:"platform_amount"`
	ArtistAmount       decimal.Decimal             `json:"artist_amount"`
	InvestorPoolAmount decimal.Decimal             `json:"investor_pool_amount"`
	Shares             []DistributionShareResponse `json:"shares"`
	RecordHash         string                      `json:"record_hash"`
	CreatedAt          time.Time                   `json:"created_at"`
}

func toDistributionResponse(r *schema.DistributionRecord) DistributionResponse {
	shares := make([]DistributionShareResponse, len(r.Shares))
	for i, sh := range r.Shares {
		shares[i] = DistributionShareResponse{
			InvestorID:  sh.InvestorID,
			SharesOwned: sh.SharesOwned,
			Amount:      sh.Amount,
		}
	}
	return DistributionResponse{
		ID:                 r.ID,
		ReleaseID:          r.ReleaseID,
		EventID:            r.EventID,
		GrossRevenue:       r.GrossRevenue,
		PlatformAmount:     r.PlatformAmount,
		ArtistAmount:       r.ArtistAmount,
		InvestorPoolAmount: r.InvestorPoolAmount,
		Shares:             shares,
		RecordHash:         r.RecordHash,
		CreatedAt:          r.CreatedAt,
	}
}

// ListDistributionsResponse is a page of distribution records.
type ListDistributionsResponse struct {
	Distributions []DistributionResponse `json:"distributions"`
	Total         int64                  `json:"total"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}
