package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLOpenFIGI = 30 * 24 * time.Hour // CUSIP-to-ticker mappings rarely change
	// TTLOpenFIGIMiss keeps "no match" answers shorter so newly listed securities resolve.
	TTLOpenFIGIMiss = 7 * 24 * time.Hour

	// StaleRetention is how long an expired mapping stays available as the
	// stale fallback for OpenFIGI outages before cleanup deletes it.
	StaleRetention = 90 * 24 * time.Hour
)
