// Package risk scores a deal across six risk categories and derives
// risk-adjusted financial metrics.
package risk

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/models"
)

// Category scores fall back to this when the upstream signal is missing.
// Every category is always emitted; a hole in the data never becomes a hole
// in the assessment.
const defaultCategoryScore = 50

// MinContingency and the slope of the contingency recommendation.
const (
	MinContingency   = 0.15
	ContingencySlope = 0.3
)

// Category weights for the overall score. Deterministic and fixed; they sum
// to 1.
const (
	weightMarket     = 0.25
	weightFinancial  = 0.25
	weightRenovation = 0.20
	weightLocation   = 0.10
	weightRegulatory = 0.10
	weightLiquidity  = 0.10
)

// Advisor supplies narrative colour (factors, mitigations, key risks, exit
// strategies). Scores stay deterministic in the scorer regardless of what
// the advisor says.
type Advisor interface {
	AssessRisk(ctx context.Context, deal models.Deal, subject models.SubjectProperty) (*models.RiskNarrative, error)
}

type Scorer struct {
	advisor Advisor
	logger  *logrus.Logger
	now     func() time.Time
}

// NewScorer builds a scorer. advisor may be nil; generic narrative defaults
// apply.
func NewScorer(advisor Advisor, logger *logrus.Logger) *Scorer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scorer{advisor: advisor, logger: logger, now: time.Now}
}

// Assess computes the risk assessment for a deal. projectedProfit is the
// deal's current estimated profit when known. Assess never fails; every
// unavailable signal degrades its category to the documented default.
func (s *Scorer) Assess(ctx context.Context, deal models.Deal, subject models.SubjectProperty, projectedProfit *float64) models.RiskAssessment {
	marketScore, marketKnown := s.marketScore(deal)
	renovationScore, renovationKnown := s.renovationScore(deal)
	financialScore, financialKnown := s.financialScore(deal, projectedProfit)
	locationScore, locationKnown := s.locationScore(subject)
	liquidityScore, liquidityKnown := s.liquidityScore(deal)

	// No regulatory data source is wired yet; the category holds at the
	// documented default until one exists.
	regulatoryScore := float64(defaultCategoryScore)

	overall := marketScore*weightMarket +
		financialScore*weightFinancial +
		renovationScore*weightRenovation +
		locationScore*weightLocation +
		regulatoryScore*weightRegulatory +
		liquidityScore*weightLiquidity

	signals := countTrue(marketKnown, renovationKnown, financialKnown, locationKnown, liquidityKnown)

	assessment := models.RiskAssessment{
		Market:     category(marketScore),
		Renovation: category(renovationScore),
		Financial:  category(financialScore),
		Location:   category(locationScore),
		Regulatory: category(regulatoryScore),
		Liquidity:  category(liquidityScore),

		OverallScore: overall,
		OverallLevel: models.LevelForScore(overall),
		Confidence:   confidence(signals),

		RiskAdjustmentFactor:   (100 - overall) / 100,
		RecommendedContingency: contingency(overall),
		AnalyzedAt:             s.now(),
	}
	if projectedProfit != nil {
		adjusted := *projectedProfit * assessment.RiskAdjustmentFactor
		assessment.RiskAdjustedProfit = &adjusted
	}

	s.applyNarrative(ctx, deal, subject, &assessment)
	return assessment
}

// marketScore inverts the market stage's confidence: well-evidenced values
// carry less valuation risk.
func (s *Scorer) marketScore(deal models.Deal) (float64, bool) {
	ma, ok := deal.DecodedMarketAnalysis()
	if !ok || ma.Confidence <= 0 {
		return defaultCategoryScore, false
	}
	return float64(100 - ma.Confidence), true
}

// renovationScore grades the renovation budget against the budget rule:
// the bigger the slice of ARV the works consume, the riskier the project.
func (s *Scorer) renovationScore(deal models.Deal) (float64, bool) {
	arv := estimatedARV(deal)
	if deal.EstimatedRenovationCost == nil || arv == nil || *arv <= 0 {
		return defaultCategoryScore, false
	}
	ratio := *deal.EstimatedRenovationCost / *arv
	switch {
	case ratio <= 0.10:
		return 30, true
	case ratio <= 0.15:
		return 45, true
	case ratio <= 0.25:
		return 60, true
	default:
		return 75, true
	}
}

// financialScore grades the projected margin as a fraction of ARV.
func (s *Scorer) financialScore(deal models.Deal, projectedProfit *float64) (float64, bool) {
	arv := estimatedARV(deal)
	if projectedProfit == nil || arv == nil || *arv <= 0 {
		return defaultCategoryScore, false
	}
	margin := *projectedProfit / *arv
	switch {
	case margin >= 0.15:
		return 30, true
	case margin >= 0.10:
		return 45, true
	case margin >= 0.05:
		return 60, true
	default:
		return 80, true
	}
}

// locationScore uses the enrichment stage's distance-to-center signal when
// present; unlocated properties hold the default.
func (s *Scorer) locationScore(subject models.SubjectProperty) (float64, bool) {
	if subject.DistanceToCenterKm == nil {
		return defaultCategoryScore, false
	}
	switch {
	case *subject.DistanceToCenterKm <= 5:
		return 30, true
	case *subject.DistanceToCenterKm <= 15:
		return 45, true
	default:
		return 60, true
	}
}

// liquidityScore grades the comparable set's average days on market.
func (s *Scorer) liquidityScore(deal models.Deal) (float64, bool) {
	ma, ok := deal.DecodedMarketAnalysis()
	if !ok || ma.AvgDaysOnMarket == nil {
		return defaultCategoryScore, false
	}
	switch {
	case *ma.AvgDaysOnMarket <= 30:
		return 30, true
	case *ma.AvgDaysOnMarket <= 60:
		return 50, true
	case *ma.AvgDaysOnMarket <= 90:
		return 65, true
	default:
		return 75, true
	}
}

func (s *Scorer) applyNarrative(ctx context.Context, deal models.Deal, subject models.SubjectProperty, assessment *models.RiskAssessment) {
	var narrative *models.RiskNarrative
	if s.advisor != nil {
		n, err := s.advisor.AssessRisk(ctx, deal, subject)
		if err != nil {
			s.logger.WithError(err).Warn("Risk advisor unavailable, using generic narrative")
		} else {
			narrative = n
		}
	}

	categories := map[string]*models.RiskCategory{
		"market":     &assessment.Market,
		"renovation": &assessment.Renovation,
		"financial":  &assessment.Financial,
		"location":   &assessment.Location,
		"regulatory": &assessment.Regulatory,
		"liquidity":  &assessment.Liquidity,
	}
	for name, cat := range categories {
		if narrative != nil {
			cat.Factors = narrative.CategoryFactors[name]
			cat.Mitigations = narrative.Mitigations[name]
		}
		if len(cat.Factors) == 0 {
			cat.Factors = []string{"limited data available for this category"}
		}
		if len(cat.Mitigations) == 0 {
			cat.Mitigations = []string{"gather further due-diligence data before committing"}
		}
	}

	if narrative != nil && len(narrative.KeyRisks) > 0 {
		assessment.KeyRisks = narrative.KeyRisks
	} else {
		assessment.KeyRisks = []string{"overall risk is " + string(assessment.OverallLevel) + " based on available signals"}
	}
	if narrative != nil && len(narrative.ExitStrategies) > 0 {
		assessment.ExitStrategy = narrative.ExitStrategies
	} else {
		assessment.ExitStrategy = []string{"sell after renovation", "hold and rent if the market softens"}
	}
}

func estimatedARV(deal models.Deal) *float64 {
	if ma, ok := deal.DecodedMarketAnalysis(); ok && ma.EstimatedARV != nil {
		return ma.EstimatedARV
	}
	return nil
}

func category(score float64) models.RiskCategory {
	return models.RiskCategory{
		Score: score,
		Level: models.LevelForScore(score),
	}
}

func contingency(overallScore float64) float64 {
	c := overallScore / 100 * ContingencySlope
	if c < MinContingency {
		return MinContingency
	}
	return c
}

func confidence(signalsPresent int) int {
	c := 40 + 10*signalsPresent
	if c > 90 {
		c = 90
	}
	return c
}

func countTrue(values ...bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}
