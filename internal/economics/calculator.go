// Package economics holds the pure deal-economics formulas. Every function
// is total: unknown inputs produce nil, never NaN, Inf or a fabricated
// number.
package economics

import "math"

// Default rates applied when the caller doesn't override them.
const (
	DefaultTransactionCostRate = 0.10
	DefaultTargetMarginRate    = 0.15
)

// Fixed offer-scenario multipliers. Not configurable per deal.
const (
	ConservativeMultiplier = 0.9
	BalancedMultiplier     = 1.0
	AggressiveMultiplier   = 1.1
)

// OfferScenario is a named purchase-price suggestion derived from the
// maximum purchase price.
type OfferScenario struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// MaxPurchasePrice is the most an investor can pay and still clear the
// target margin after renovation and transaction costs:
//
//	arv - renovationCost - arv*transactionCostRate - arv*targetMarginRate
//
// Returns nil when the ARV is unknown.
func MaxPurchasePrice(arv *float64, renovationCost, transactionCostRate, targetMarginRate float64) *float64 {
	if arv == nil {
		return nil
	}
	price := *arv - renovationCost - *arv*transactionCostRate - *arv*targetMarginRate
	return finite(price)
}

// OfferScenarios derives the three named scenarios from the maximum purchase
// price. Returns nil when the maximum is unknown.
func OfferScenarios(maxPrice *float64) []OfferScenario {
	if maxPrice == nil {
		return nil
	}
	return []OfferScenario{
		{Name: "Conservative", Price: *maxPrice * ConservativeMultiplier},
		{Name: "Balanced", Price: *maxPrice * BalancedMultiplier},
		{Name: "Aggressive", Price: *maxPrice * AggressiveMultiplier},
	}
}

// EstimatedProfit is the realized margin for a given purchase price:
//
//	arv - purchasePrice - renovationCost - arv*transactionCostRate
//
// Returns nil when the ARV is unknown.
func EstimatedProfit(arv *float64, purchasePrice, renovationCost, transactionCostRate float64) *float64 {
	if arv == nil {
		return nil
	}
	profit := *arv - purchasePrice - renovationCost - *arv*transactionCostRate
	return finite(profit)
}

// ROI expresses profit as a percentage of the purchase price. A non-positive
// purchase price yields 0, never a division blow-up.
func ROI(profit, purchasePrice float64) float64 {
	if purchasePrice <= 0 {
		return 0
	}
	roi := profit / purchasePrice * 100
	if v := finite(roi); v != nil {
		return *v
	}
	return 0
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
