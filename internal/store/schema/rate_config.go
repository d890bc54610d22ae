package schema

import (
	"time"

	"gorm.io/datatypes"
)

// RateConfigRow represents the rate_configs table - the single persisted rate
// configuration. The in-memory store is authoritative at runtime; this row
// only carries the last administrative update across restarts.
type RateConfigRow struct {
	// ID is always 1; the table holds one row
	ID int16 `gorm:"column:id;primaryKey;default:1"`
	// Payload is the serialized rate configuration (JSONB)
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// UpdatedAt is the timestamp of the last administrative update
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the RateConfigRow model
func (RateConfigRow) TableName() string {
	return "rate_configs"
}
