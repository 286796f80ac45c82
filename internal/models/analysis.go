package models

import "time"

// MarketAnalysis is the market estimator's stage output. Every field here is
// owned by the market stage and is rewritten on each run, including explicit
// nulls, so stale values never survive a re-run. Keys the stage does not own
// (e.g. a separately-computed condition_assessment) live only in the deal's
// blob and survive the merge untouched.
type MarketAnalysis struct {
	EstimatedARV    *float64     `json:"estimated_arv"`
	PricePerSqm     *float64     `json:"price_per_sqm"`
	MarketTrend     string       `json:"market_trend"`
	AvgDaysOnMarket *float64     `json:"avg_days_on_market"`
	Confidence      int          `json:"market_confidence"`
	Insights        string       `json:"insights"`
	ComparableCount int          `json:"comparable_count"`
	Comparables     []SaleRecord `json:"comparables"`
	AnalyzedAt      time.Time    `json:"analyzed_at"`
}

// RoomEstimate is one per-room cost/condition entry.
type RoomEstimate struct {
	Category  string  `json:"category"`
	Condition string  `json:"condition"`
	Cost      float64 `json:"cost"`
	Priority  int     `json:"priority"`
	Notes     string  `json:"notes,omitempty"`
}

// RenovationAnalysis is the renovation estimator's stage output.
// BedroomAdditionPotential and its cost are caller-toggled, never computed:
// the stage leaves them nil so the blob merge preserves whatever the user set.
type RenovationAnalysis struct {
	Rooms           []RoomEstimate `json:"rooms"`
	TotalCost       float64        `json:"total_cost"`
	TimelineWeeks   int            `json:"timeline_weeks"`
	Confidence      int            `json:"confidence"`
	Recommendations []string       `json:"recommendations"`

	BedroomAdditionPotential *bool    `json:"bedroom_addition_potential,omitempty"`
	BedroomAdditionCost      *float64 `json:"bedroom_addition_cost,omitempty"`

	ExpectedValueAdd float64   `json:"expected_value_add"`
	ROIPercentage    float64   `json:"roi_percentage"`
	Recommendation   string    `json:"recommendation"`
	BreakEvenARV     float64   `json:"break_even_arv"`
	AnalyzedAt       time.Time `json:"analyzed_at"`
}

// RiskLevel is a coarse bucket derived from a 0-100 score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// LevelForScore maps a 0-100 score to a level. Boundary convention used
// throughout: low for score < 34, medium for 34 <= score <= 66, high above.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 34:
		return RiskLow
	case score <= 66:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RiskCategory is one scored risk dimension. Factors and mitigations are
// narrative; the score and level are deterministic.
type RiskCategory struct {
	Score       float64   `json:"score"`
	Level       RiskLevel `json:"level"`
	Factors     []string  `json:"factors"`
	Mitigations []string  `json:"mitigations"`
}

// RiskAssessment is the risk scorer's stage output. All six categories are
// always present; a missing upstream signal degrades that category to the
// documented default (score 50, medium), never to an omitted field.
type RiskAssessment struct {
	Market     RiskCategory `json:"market"`
	Renovation RiskCategory `json:"renovation"`
	Financial  RiskCategory `json:"financial"`
	Location   RiskCategory `json:"location"`
	Regulatory RiskCategory `json:"regulatory"`
	Liquidity  RiskCategory `json:"liquidity"`

	OverallScore float64   `json:"overall_risk_score"`
	OverallLevel RiskLevel `json:"overall_risk_level"`
	Confidence   int       `json:"confidence"`
	KeyRisks     []string  `json:"key_risks"`
	ExitStrategy []string  `json:"recommended_exit_strategies"`

	RiskAdjustmentFactor   float64   `json:"risk_adjustment_factor"`
	RiskAdjustedProfit     *float64  `json:"risk_adjusted_profit"`
	RecommendedContingency float64   `json:"recommended_contingency"`
	AnalyzedAt             time.Time `json:"analyzed_at"`
}

// RiskNarrative is advisory colour supplied by an external capability. It
// never carries scores; those stay deterministic in the scorer.
type RiskNarrative struct {
	KeyRisks        []string            `json:"key_risks"`
	ExitStrategies  []string            `json:"exit_strategies"`
	CategoryFactors map[string][]string `json:"category_factors"`
	Mitigations     map[string][]string `json:"mitigations"`
}
