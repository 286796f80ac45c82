// Package market derives an after-renovation value estimate from a set of
// comparable sales.
package market

import (
	"fmt"
	"sort"
	"time"

	"flipradar/server/internal/models"
)

const (
	confidencePerComparable = 5
	confidenceFloor         = 30
	confidenceCeiling       = 95
)

// Fallback carries the deal values the estimator degrades to when no
// comparables are available. Order matters: target sale price wins over
// purchase price; with neither, the ARV stays unset and the presentation
// layer renders "TBD" rather than a fabricated number.
type Fallback struct {
	TargetSalePrice *float64
	PurchasePrice   *float64
}

// Estimate computes a MarketAnalysis from the comparable set. It never fails:
// an empty set degrades to the fallback chain and a floor confidence.
// The trend signal is a passthrough; pass "" for the default.
func Estimate(subject models.SubjectProperty, comparables []models.SaleRecord, fb Fallback, trend string, now time.Time) models.MarketAnalysis {
	analysis := models.MarketAnalysis{
		MarketTrend:     trend,
		ComparableCount: len(comparables),
		Comparables:     comparables,
		Confidence:      confidence(len(comparables)),
		AnalyzedAt:      now,
	}
	if analysis.MarketTrend == "" {
		analysis.MarketTrend = "stable"
	}

	prices := make([]float64, 0, len(comparables))
	for _, c := range comparables {
		if c.SoldPrice != nil && *c.SoldPrice > 0 {
			prices = append(prices, *c.SoldPrice)
		}
	}

	if arv, ok := median(prices); ok {
		analysis.EstimatedARV = &arv
	} else if fb.TargetSalePrice != nil {
		v := *fb.TargetSalePrice
		analysis.EstimatedARV = &v
	} else if fb.PurchasePrice != nil {
		v := *fb.PurchasePrice
		analysis.EstimatedARV = &v
	}

	analysis.PricePerSqm = pricePerSqm(subject, comparables, analysis.EstimatedARV)
	analysis.AvgDaysOnMarket = avgDaysOnMarket(comparables)
	analysis.Insights = insight(subject, len(comparables))
	return analysis
}

// pricePerSqm divides ARV by the subject's floor area when both are known,
// and otherwise falls back to the median of each comparable's own ratio.
func pricePerSqm(subject models.SubjectProperty, comparables []models.SaleRecord, arv *float64) *float64 {
	if arv != nil && subject.FloorArea != nil && *subject.FloorArea > 0 {
		v := *arv / *subject.FloorArea
		return &v
	}

	var ratios []float64
	for _, c := range comparables {
		if c.SoldPrice != nil && c.FloorArea != nil && *c.FloorArea > 0 {
			ratios = append(ratios, *c.SoldPrice / *c.FloorArea)
		}
	}
	if v, ok := median(ratios); ok {
		return &v
	}
	return nil
}

func avgDaysOnMarket(comparables []models.SaleRecord) *float64 {
	var sum, count float64
	for _, c := range comparables {
		if c.DaysOnMarket != nil {
			sum += float64(*c.DaysOnMarket)
			count++
		}
	}
	if count == 0 {
		return nil
	}
	v := sum / count
	return &v
}

// confidence is a documented heuristic, not a statistical interval: five
// points per comparable, clamped to [30, 95].
func confidence(comparableCount int) int {
	c := comparableCount * confidencePerComparable
	if c < confidenceFloor {
		return confidenceFloor
	}
	if c > confidenceCeiling {
		return confidenceCeiling
	}
	return c
}

func insight(subject models.SubjectProperty, comparableCount int) string {
	locale := subject.City
	if locale == "" {
		locale = "the local market"
	}
	if comparableCount == 0 {
		return fmt.Sprintf("No comparable sales found in %s within the recency window; the value estimate is pending further data.", locale)
	}
	return fmt.Sprintf("Estimate based on %d comparable sales in %s within the recency window.", comparableCount, locale)
}

// median returns the median of values (mean of the two middle values for
// even-length input). ok is false for an empty slice.
func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
