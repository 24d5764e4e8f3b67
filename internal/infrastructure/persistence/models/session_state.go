package models

import (
	"time"
)

// SessionStateModel is the persistence model for per-session storefront
// state. One row per browser session; the local cart is stored as an
// opaque JSON blob the way the original client kept it in browser
// storage.
type SessionStateModel struct {
	SessionID     string `gorm:"type:varchar(64);primaryKey"`
	CartID        string `gorm:"type:varchar(64);index"`
	RegionID      string `gorm:"type:varchar(64)"`
	LocalCartJSON string `gorm:"column:local_cart;type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM
func (SessionStateModel) TableName() string {
	return "session_states"
}
