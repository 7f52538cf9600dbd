package domain

import "time"

// UsageRecord is one calculation event: what went in, what came out,
// and when. The remote store assigns the authoritative created_at on
// insert; records built locally carry a provisional local timestamp
// until the next full reload.
type UsageRecord struct {
	Input     float64   `json:"input"`
	Result    float64   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}
