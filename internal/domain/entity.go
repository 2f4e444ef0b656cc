package domain

import (
	"time"
)

// InstrumentInfo is a row of the instrument catalog
type InstrumentInfo struct {
	Symbol    string    `gorm:"primaryKey" json:"ticker"`
	VenueID   string    `gorm:"not null" json:"figi"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Instrument converts the catalog row to the value used by the trading pipeline.
func (i InstrumentInfo) Instrument() Instrument {
	return Instrument{Symbol: i.Symbol, VenueID: i.VenueID}
}

// AppConfig represents runtime state (Key-Value), e.g. the sandbox account id
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
