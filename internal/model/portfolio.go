package model

// Position is the running holdings aggregate for one (user, asset) pair.
// Amount and TotalCost are maintained incrementally on every buy and sell,
// so the weighted-average cost is O(1) to read and the non-negative
// invariant is checked without scanning historical lots.
type Position struct {
	UserID    string
	Asset     string // canonical coin id
	Amount    float64
	TotalCost float64 // USD paid for the current Amount
}

// AvgCost returns the weighted-average acquisition price, or 0 for an empty
// position.
func (p Position) AvgCost() float64 {
	if p.Amount <= 0 {
		return 0
	}
	return p.TotalCost / p.Amount
}
