package schema

import (
	"time"
)

// Holding represents the holdings table - one investor's running share total
// in one release. Repeat purchases collapse into this row; shares only
// decrease through purchase compensation.
type Holding struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ReleaseID references the release the shares belong to
	ReleaseID string `gorm:"column:release_id;not null;type:uuid;uniqueIndex:idx_holdings_release_investor,priority:1"`
	// InvestorID identifies the holder
	InvestorID string `gorm:"column:investor_id;not null;type:text;uniqueIndex:idx_holdings_release_investor,priority:2"`
	// SharesOwned is the running share total (> 0; zero-share holdings are
	// deleted)
	SharesOwned int64 `gorm:"column:shares_owned;not null"`
	// AcquiredAt is the timestamp of the first purchase
	AcquiredAt time.Time `gorm:"column:acquired_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the most recent purchase
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Release Release `gorm:"foreignKey:ReleaseID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Holding model
func (Holding) TableName() string {
	return "holdings"
}
