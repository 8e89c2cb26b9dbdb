package model

import "time"

// AlertKind identifies the trigger predicate of an alert.
type AlertKind string

const (
	KindTargetPrice   AlertKind = "target-price"
	KindPriceRange    AlertKind = "price-range"
	KindPercentChange AlertKind = "percent-change"
	KindVolumeChange  AlertKind = "volume-change"
)

// Alert is a user-defined trigger condition on one asset. The Triggered flag
// is monotonic: once set it is never cleared, and triggered alerts are
// excluded from evaluation forever (kept only for history/export).
type Alert struct {
	ID        int64
	UserID    string
	Asset     string // canonical coin id
	Kind      AlertKind
	Target    float64 // target-price
	Low       float64 // price-range, Low < High
	High      float64
	Threshold float64 // percent-change / volume-change, percent
	Triggered bool
	CreatedAt time.Time
}
