// Package analytics collects lookup events, ships them through Kafka and
// aggregates them into usage statistics for the phrase book.
package analytics

import "time"

// LookupEvent describes one served lookup.
type LookupEvent struct {
	KeyLanguage string    `json:"key_language"`
	Search      string    `json:"search"`
	Returned    int       `json:"returned"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}
