package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DistributionRecord represents the distribution_records table - the
// immutable audit record derived from one stream event. The event_id unique
// index makes distribution idempotent under message redelivery.
type DistributionRecord struct {
	// ID is the record identifier (ULID)
	ID string `gorm:"column:id;primaryKey;type:text"`
	// ReleaseID references the streamed release
	ReleaseID string `gorm:"column:release_id;not null;type:uuid;index"`
	// EventID is the stream event identifier this record settles
	EventID string `gorm:"column:event_id;not null;type:text;uniqueIndex"`
	// Event is the stream event snapshot as received (JSONB)
	Event datatypes.JSON `gorm:"column:event;not null;type:jsonb"`
	// GrossRevenue is the computed value of the stream event
	GrossRevenue decimal.Decimal `gorm:"column:gross_revenue;not null;type:numeric(30,8)"`
	// PlatformAmount, ArtistAmount, and InvestorPoolAmount are the split;
	// they sum to gross_revenue exactly
	PlatformAmount     decimal.Decimal `gorm:"column:platform_amount;not null;type:numeric(30,8)"`
	ArtistAmount       decimal.Decimal `gorm:"column:artist_amount;not null;type:numeric(30,8)"`
	InvestorPoolAmount decimal.Decimal `gorm:"column:investor_pool_amount;not null;type:numeric(30,8)"`
	// RecordHash is the SHA-256 of the canonicalized record payload, for
	// downstream audit verification
	RecordHash string `gorm:"column:record_hash;not null;type:text"`
	// CreatedAt is the distribution timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Shares  []DistributionShare `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`
	Release Release             `gorm:"foreignKey:ReleaseID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the DistributionRecord model
func (DistributionRecord) TableName() string {
	return "distribution_records"
}

// DistributionShare represents the distribution_shares table - one investor's
// cut within a distribution record. Share rows of a record sum to its
// investor_pool_amount exactly.
type DistributionShare struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// RecordID references the parent distribution record
	RecordID string `gorm:"column:record_id;not null;type:text;index"`
	// InvestorID identifies the paid holder
	InvestorID string `gorm:"column:investor_id;not null;type:text"`
	// SharesOwned is the holder's share count at distribution time
	SharesOwned int64 `gorm:"column:shares_owned;not null"`
	// Amount is the holder's cut of the investor pool
	Amount decimal.Decimal `gorm:"column:amount;not null;type:numeric(30,8)"`
}

// TableName specifies the table name for the DistributionShare model
func (DistributionShare) TableName() string {
	return "distribution_shares"
}
