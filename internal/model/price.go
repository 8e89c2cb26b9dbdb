package model

import "time"

// PricePoint is a single resolved USD price observation for an asset.
// Immutable once created.
type PricePoint struct {
	Asset string    // canonical coin id, e.g. "bitcoin"
	Price float64   // USD, >= 0
	At    time.Time
}

// Quote is the normalized provider response for one asset. The 24h metrics
// are nil when the provider (or an override/cache fallback) did not supply
// them.
type Quote struct {
	Price        float64
	PctChange24h *float64 // 24h price change, percent
	VolChange24h *float64 // 24h volume change, percent
}
