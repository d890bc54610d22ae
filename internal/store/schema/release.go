package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tunestake/royalty-ledger/internal/allocation"
	"github.com/tunestake/royalty-ledger/internal/domain"
)

// Release represents the releases table - a registered music work with its
// share-sale configuration and revenue allocation. Title, artist, and genre
// are immutable after creation; shares_sold is mutated only by the purchase
// transaction.
type Release struct {
	// ID is the release identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// Title is the release title
	Title string `gorm:"column:title;not null;type:text"`
	// ArtistID identifies the registering artist
	ArtistID string `gorm:"column:artist_id;not null;type:text;index"`
	// Genre is the release genre
	Genre string `gorm:"column:genre;not null;type:text"`
	// AssetURI is the opaque content-addressed URI returned by the pinning
	// service (nil until the upload completes)
	AssetURI *string `gorm:"column:asset_uri;type:text"`
	// TotalShares is the total number of issuable shares
	TotalShares int64 `gorm:"column:total_shares;not null"`
	// SharesSold is the number of shares already purchased (0 <= sold <= total)
	SharesSold int64 `gorm:"column:shares_sold;not null;default:0"`
	// PricePerShare is the unit price in the base currency
	PricePerShare decimal.Decimal `gorm:"column:price_per_share;not null;type:numeric(30,8)"`
	// PlatformPct, ArtistPct, and InvestorPct are the allocation percentages,
	// summing to exactly 100
	PlatformPct decimal.Decimal `gorm:"column:platform_pct;not null;type:numeric(9,6)"`
	ArtistPct   decimal.Decimal `gorm:"column:artist_pct;not null;type:numeric(9,6)"`
	InvestorPct decimal.Decimal `gorm:"column:investor_pct;not null;type:numeric(9,6)"`
	// CreatedAt is the timestamp when the release was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Holdings []Holding `gorm:"foreignKey:ReleaseID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Release model
func (Release) TableName() string {
	return "releases"
}

// Allocation returns the release's revenue split as a value type.
func (r *Release) Allocation() allocation.Split {
	return allocation.Split{
		Platform:     r.PlatformPct,
		Artist:       r.ArtistPct,
		InvestorPool: r.InvestorPct,
	}
}

// SaleState returns the release's share-sale snapshot for quote and purchase
// validation.
func (r *Release) SaleState() domain.SaleState {
	return domain.SaleState{
		TotalShares: r.TotalShares,
		SharesSold:  r.SharesSold,
		UnitPrice:   r.PricePerShare,
	}
}
