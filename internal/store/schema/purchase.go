package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tunestake/royalty-ledger/internal/domain"
)

// SharePurchase represents the share_purchases table - an immutable row per
// successful purchase. The status column tracks external settlement only; the
// ledger effect (shares_sold, holding) is applied at creation and undone only
// by compensation.
type SharePurchase struct {
	// ID is the purchase identifier (ULID, sortable by creation time)
	ID string `gorm:"column:id;primaryKey;type:text"`
	// ReleaseID references the purchased release
	ReleaseID string `gorm:"column:release_id;not null;type:uuid;index"`
	// InvestorID identifies the buyer
	InvestorID string `gorm:"column:investor_id;not null;type:text;index"`
	// Shares is the number of shares bought in this purchase
	Shares int64 `gorm:"column:shares;not null"`
	// UnitPrice is the price per share at purchase time
	UnitPrice decimal.Decimal `gorm:"column:unit_price;not null;type:numeric(30,8)"`
	// Paid is the total amount paid (equals unit_price * shares exactly)
	Paid decimal.Decimal `gorm:"column:paid;not null;type:numeric(30,8)"`
	// Status is the external settlement state (pending, settled, reverted)
	Status domain.PurchaseStatus `gorm:"column:status;not null;type:text;default:'pending'"`
	// CreatedAt is the purchase timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last status transition
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Release Release `gorm:"foreignKey:ReleaseID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the SharePurchase model
func (SharePurchase) TableName() string {
	return "share_purchases"
}
