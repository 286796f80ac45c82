package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/models"
)

// RenovationAdvisor asks the model for a per-room condition assessment. It
// satisfies the renovation estimator's Advisor interface.
type RenovationAdvisor struct {
	caller LLMCaller
	logger *logrus.Logger
}

func NewRenovationAdvisor(caller LLMCaller, logger *logrus.Logger) *RenovationAdvisor {
	if logger == nil {
		logger = logrus.New()
	}
	return &RenovationAdvisor{caller: caller, logger: logger}
}

func (a *RenovationAdvisor) AssessCondition(ctx context.Context, subject models.SubjectProperty, photoURLs []string) (*models.RenovationAnalysis, error) {
	prompt := renovationPrompt(subject, photoURLs)
	raw, err := a.caller.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("renovation condition call failed: %w", err)
	}

	var analysis models.RenovationAnalysis
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &analysis); err != nil {
		a.logger.WithError(err).Debug("Unparseable renovation advisor response")
		return nil, fmt.Errorf("renovation condition response was not valid JSON: %w", err)
	}
	if analysis.TotalCost <= 0 && len(analysis.Rooms) == 0 {
		return nil, fmt.Errorf("renovation condition response had no usable scope")
	}
	return &analysis, nil
}

func renovationPrompt(subject models.SubjectProperty, photoURLs []string) string {
	var sb strings.Builder
	sb.WriteString("Assess the renovation scope for this property and respond with JSON matching:\n")
	sb.WriteString(`{"rooms":[{"category":"kitchen","condition":"dated","cost":25000,"priority":1,"notes":""}],"total_cost":0,"timeline_weeks":0,"confidence":0,"recommendations":[]}` + "\n\n")
	sb.WriteString("Property:\n")
	sb.WriteString(fmt.Sprintf("  address: %s, %s, %s\n", subject.Address, subject.Suburb, subject.City))
	if subject.Bedrooms != nil {
		sb.WriteString(fmt.Sprintf("  bedrooms: %d\n", *subject.Bedrooms))
	}
	if subject.Bathrooms != nil {
		sb.WriteString(fmt.Sprintf("  bathrooms: %d\n", *subject.Bathrooms))
	}
	if subject.FloorArea != nil {
		sb.WriteString(fmt.Sprintf("  floor area: %.0f sqm\n", *subject.FloorArea))
	}
	if subject.PropertyType != "" {
		sb.WriteString(fmt.Sprintf("  type: %s\n", subject.PropertyType))
	}
	if len(photoURLs) > 0 {
		sb.WriteString("Listing photos:\n")
		for _, u := range photoURLs {
			sb.WriteString("  " + u + "\n")
		}
	} else {
		sb.WriteString("No photos are available; assess from the property facts alone.\n")
	}
	sb.WriteString("\nCosts are in NZD. Leave out rooms needing no work.")
	return sb.String()
}
