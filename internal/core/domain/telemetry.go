package domain

import "time"

// Telemetry is the latest location fix published by the active streamer.
// Only the most recent sample is retained.
type Telemetry struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	HeadingDeg *float64  `json:"headingDeg"`
	AccuracyM  *float64  `json:"accuracyM"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
