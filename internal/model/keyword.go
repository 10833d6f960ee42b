package model

import "time"

// KeywordRecord is unique per (TargetID, Keyword). Nil measurements are
// unknown, not zero.
type KeywordRecord struct {
	ID           int64     `json:"id"`
	TargetID     int64     `json:"target_id"`
	Keyword      string    `json:"keyword"`
	SearchVolume *int      `json:"search_volume"`
	Difficulty   *float64  `json:"difficulty"`
	Position     *int      `json:"position"`
	LastUpdated  time.Time `json:"last_updated"`
}
