// Package renovation estimates renovation scope, cost and timeline for a
// subject property.
package renovation

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/models"
)

// Baseline per-category costs applied when no visual condition signal is
// available. These are contractual: downstream economics depends on
// total_cost always being present, so the fallback bundle must not drift.
const (
	BaselineKitchenCost  = 25000
	BaselineBathroomCost = 15000
	BaselineFlooringCost = 8000
	BaselinePaintingCost = 5000

	BaselineTotalCost     = 53000
	BaselineTimelineWeeks = 8
	BaselineConfidence    = 60
)

// Value-add and budget-rule constants shared with the economics view.
const (
	// Fixed regional multiplier: each renovation dollar is expected to add
	// this much value.
	ValueAddMultiplier = 1.3

	// The renovation budget rule used elsewhere in the system: renovation
	// should cost at most this fraction of ARV. break_even_arv inverts it.
	BudgetRuleOfARV = 0.15
)

// Advisor is the external visual-condition capability. Implementations may
// call out to a vision/LLM backend; the estimator owns the fallback when the
// advisor is absent, fails, or returns an unusable result.
type Advisor interface {
	AssessCondition(ctx context.Context, subject models.SubjectProperty, photoURLs []string) (*models.RenovationAnalysis, error)
}

type Estimator struct {
	advisor Advisor
	logger  *logrus.Logger
	now     func() time.Time
}

// NewEstimator builds an estimator. advisor may be nil, in which case every
// estimate uses the documented baseline bundle.
func NewEstimator(advisor Advisor, logger *logrus.Logger) *Estimator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Estimator{advisor: advisor, logger: logger, now: time.Now}
}

// Estimate produces a renovation analysis for the subject. It never returns
// an error: advisor failures degrade to the baseline bundle, and the ROI
// augmentation is always applied.
func (e *Estimator) Estimate(ctx context.Context, subject models.SubjectProperty, photoURLs []string) models.RenovationAnalysis {
	analysis := e.advised(ctx, subject, photoURLs)
	if analysis == nil {
		baseline := Baseline()
		analysis = &baseline
	}
	e.normalize(analysis)
	augmentROI(analysis)
	analysis.AnalyzedAt = e.now()
	return *analysis
}

func (e *Estimator) advised(ctx context.Context, subject models.SubjectProperty, photoURLs []string) *models.RenovationAnalysis {
	if e.advisor == nil {
		return nil
	}
	analysis, err := e.advisor.AssessCondition(ctx, subject, photoURLs)
	if err != nil {
		e.logger.WithError(err).Warn("Renovation advisor unavailable, using baseline estimates")
		return nil
	}
	if analysis == nil || (analysis.TotalCost <= 0 && len(analysis.Rooms) == 0) {
		e.logger.Warn("Renovation advisor returned an unusable result, using baseline estimates")
		return nil
	}
	return analysis
}

// normalize fills derived fields an advisor is allowed to leave out.
func (e *Estimator) normalize(analysis *models.RenovationAnalysis) {
	if analysis.TotalCost <= 0 {
		for _, room := range analysis.Rooms {
			analysis.TotalCost += room.Cost
		}
	}
	if analysis.TimelineWeeks <= 0 {
		analysis.TimelineWeeks = timelineWeeks(workItems(analysis.Rooms))
	}
	if analysis.Confidence <= 0 {
		analysis.Confidence = BaselineConfidence
	}
	if len(analysis.Recommendations) == 0 {
		analysis.Recommendations = recommendationOrder(analysis.Rooms)
	}
	// Bedroom addition flags are caller-owned; the stage never sets them.
	analysis.BedroomAdditionPotential = nil
	analysis.BedroomAdditionCost = nil
}

// Baseline is the fixed no-signal estimate bundle.
func Baseline() models.RenovationAnalysis {
	rooms := []models.RoomEstimate{
		{Category: "kitchen", Condition: "dated", Cost: BaselineKitchenCost, Priority: 1},
		{Category: "bathrooms", Condition: "dated", Cost: BaselineBathroomCost, Priority: 2},
		{Category: "flooring", Condition: "worn", Cost: BaselineFlooringCost, Priority: 3},
		{Category: "painting", Condition: "tired", Cost: BaselinePaintingCost, Priority: 4},
	}
	return models.RenovationAnalysis{
		Rooms:           rooms,
		TotalCost:       BaselineTotalCost,
		TimelineWeeks:   BaselineTimelineWeeks,
		Confidence:      BaselineConfidence,
		Recommendations: recommendationOrder(rooms),
	}
}

func augmentROI(analysis *models.RenovationAnalysis) {
	total := analysis.TotalCost
	analysis.ExpectedValueAdd = total * ValueAddMultiplier
	if total > 0 {
		analysis.ROIPercentage = (analysis.ExpectedValueAdd - total) / total * 100
		analysis.BreakEvenARV = total / BudgetRuleOfARV
	} else {
		analysis.ROIPercentage = 0
		analysis.BreakEvenARV = 0
	}
	if analysis.ExpectedValueAdd > total && total > 0 {
		analysis.Recommendation = "Proceed"
	} else {
		analysis.Recommendation = "Reconsider"
	}
}

// timelineWeeks derives a schedule from scope: two weeks of setup plus one
// and a half per work item, bounded to something a flip can carry.
func timelineWeeks(items int) int {
	weeks := 2 + int(math.Round(1.5*float64(items)))
	if weeks < 2 {
		weeks = 2
	}
	if weeks > 26 {
		weeks = 26
	}
	return weeks
}

func workItems(rooms []models.RoomEstimate) int {
	n := 0
	for _, room := range rooms {
		if room.Cost > 0 {
			n++
		}
	}
	return n
}

// recommendationOrder lists categories by descending cost, which doubles as
// the priority order when an advisor didn't supply one.
func recommendationOrder(rooms []models.RoomEstimate) []string {
	ordered := make([]models.RoomEstimate, len(rooms))
	copy(ordered, rooms)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].Cost > ordered[i].Cost {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	out := make([]string, 0, len(ordered))
	for _, room := range ordered {
		if room.Cost > 0 {
			out = append(out, room.Category)
		}
	}
	return out
}
