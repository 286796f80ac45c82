package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/models"
)

// RiskAdvisor asks the model for narrative risk colour. Numeric scores stay
// with the deterministic scorer; the advisor only contributes factors,
// mitigations, key risks and exit strategies.
type RiskAdvisor struct {
	caller LLMCaller
	logger *logrus.Logger
}

func NewRiskAdvisor(caller LLMCaller, logger *logrus.Logger) *RiskAdvisor {
	if logger == nil {
		logger = logrus.New()
	}
	return &RiskAdvisor{caller: caller, logger: logger}
}

func (a *RiskAdvisor) AssessRisk(ctx context.Context, deal models.Deal, subject models.SubjectProperty) (*models.RiskNarrative, error) {
	prompt := riskPrompt(deal, subject)
	raw, err := a.caller.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("risk narrative call failed: %w", err)
	}

	var narrative models.RiskNarrative
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &narrative); err != nil {
		a.logger.WithError(err).Debug("Unparseable risk advisor response")
		return nil, fmt.Errorf("risk narrative response was not valid JSON: %w", err)
	}
	return &narrative, nil
}

func riskPrompt(deal models.Deal, subject models.SubjectProperty) string {
	var sb strings.Builder
	sb.WriteString("Review this renovation-flip deal and respond with JSON matching:\n")
	sb.WriteString(`{"key_risks":[],"exit_strategies":[],"category_factors":{"market":[],"renovation":[],"financial":[],"location":[],"regulatory":[],"liquidity":[]},"mitigations":{"market":[],"renovation":[],"financial":[],"location":[],"regulatory":[],"liquidity":[]}}` + "\n\n")
	sb.WriteString(fmt.Sprintf("Property: %s, %s, %s\n", subject.Address, subject.Suburb, subject.City))
	if deal.PurchasePrice != nil {
		sb.WriteString(fmt.Sprintf("Purchase price: %.0f\n", *deal.PurchasePrice))
	}
	if deal.TargetSalePrice != nil {
		sb.WriteString(fmt.Sprintf("Target sale price: %.0f\n", *deal.TargetSalePrice))
	}
	if deal.EstimatedRenovationCost != nil {
		sb.WriteString(fmt.Sprintf("Estimated renovation cost: %.0f\n", *deal.EstimatedRenovationCost))
	}
	if ma, ok := deal.DecodedMarketAnalysis(); ok {
		if ma.EstimatedARV != nil {
			sb.WriteString(fmt.Sprintf("Estimated ARV: %.0f (confidence %d, %d comparables)\n", *ma.EstimatedARV, ma.Confidence, ma.ComparableCount))
		}
		if ma.AvgDaysOnMarket != nil {
			sb.WriteString(fmt.Sprintf("Average days on market: %.0f\n", *ma.AvgDaysOnMarket))
		}
	}
	sb.WriteString("\nBe concrete and specific to this deal. No more than four items per list.")
	return sb.String()
}
