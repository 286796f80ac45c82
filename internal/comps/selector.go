// Package comps selects the comparable sales a market estimate is based on.
package comps

import (
	"strings"
	"time"

	"flipradar/server/internal/models"
)

const (
	// DefaultWindowMonths is how far back a sale may be to count as recent.
	DefaultWindowMonths = 12

	// DefaultMaxResults caps the comparable set fed into estimation.
	DefaultMaxResults = 25

	// Bedroom and bathroom counts may differ by at most this much.
	roomTolerance = 1

	// Floor area must fall within [minAreaRatio, maxAreaRatio] of the subject.
	minAreaRatio = 0.75
	maxAreaRatio = 1.25
)

// Select filters a raw pool of sale records down to the comparables relevant
// to the subject. It is pure: no sorting beyond input order, no errors, and
// an empty result is a valid outcome the estimator must absorb. Records with
// a missing sold date or price can never contribute and are dropped first.
func Select(subject models.SubjectProperty, pool []models.SaleRecord, now time.Time, windowMonths, maxResults int) []models.SaleRecord {
	if windowMonths <= 0 {
		windowMonths = DefaultWindowMonths
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	cutoff := now.AddDate(0, -windowMonths, 0)

	var selected []models.SaleRecord
	for _, candidate := range pool {
		if !isComparable(subject, candidate, cutoff, now) {
			continue
		}
		selected = append(selected, candidate)
		if len(selected) >= maxResults {
			break
		}
	}
	return selected
}

func isComparable(subject models.SubjectProperty, candidate models.SaleRecord, cutoff, now time.Time) bool {
	if candidate.SoldDate == nil || candidate.SoldDate.Before(cutoff) || candidate.SoldDate.After(now) {
		return false
	}
	if candidate.SoldPrice == nil || *candidate.SoldPrice <= 0 {
		return false
	}
	if subject.City != "" && !strings.EqualFold(subject.City, candidate.City) {
		return false
	}
	if subject.Bedrooms != nil && candidate.Bedrooms != nil {
		if absInt(*subject.Bedrooms-*candidate.Bedrooms) > roomTolerance {
			return false
		}
	}
	if subject.Bathrooms != nil && candidate.Bathrooms != nil {
		if absInt(*subject.Bathrooms-*candidate.Bathrooms) > roomTolerance {
			return false
		}
	}
	if subject.FloorArea != nil && candidate.FloorArea != nil && *subject.FloorArea > 0 {
		ratio := *candidate.FloorArea / *subject.FloorArea
		if ratio < minAreaRatio || ratio > maxAreaRatio {
			return false
		}
	}
	return true
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
