package domain

// Instrument is a tradable security as the venue knows it.
// VenueID (FIGI for T-Invest) is opaque and passed through verbatim.
type Instrument struct {
	Symbol  string `json:"ticker"`
	VenueID string `json:"figi"`
}
