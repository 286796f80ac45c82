package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"flipradar/server/internal/models"
)

type fakeCaller struct {
	response string
	err      error
	prompt   string
}

func (f *fakeCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
}

func TestNewAnthropicCaller_RequiresKey(t *testing.T) {
	_, err := NewAnthropicCaller("", 0)
	assert.Error(t, err)

	caller, err := NewAnthropicCaller("sk-test", 60*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, caller)
}

func TestRenovationAdvisor_ParsesResponse(t *testing.T) {
	caller := &fakeCaller{response: "```json\n" + `{
		"rooms": [{"category":"kitchen","condition":"dated","cost":30000,"priority":1}],
		"total_cost": 30000,
		"timeline_weeks": 6,
		"confidence": 70
	}` + "\n```"}

	a := NewRenovationAdvisor(caller, quietLogger())
	got, err := a.AssessCondition(context.Background(), models.SubjectProperty{Address: "12 Example St", City: "auckland"}, []string{"https://example.com/p.jpg"})

	assert.NoError(t, err)
	assert.Equal(t, 30000.0, got.TotalCost)
	assert.Equal(t, 6, got.TimelineWeeks)
	assert.Len(t, got.Rooms, 1)
	assert.Contains(t, caller.prompt, "12 Example St")
	assert.Contains(t, caller.prompt, "https://example.com/p.jpg")
}

func TestRenovationAdvisor_RejectsInvalidJSON(t *testing.T) {
	a := NewRenovationAdvisor(&fakeCaller{response: "the kitchen looks fine"}, quietLogger())
	_, err := a.AssessCondition(context.Background(), models.SubjectProperty{}, nil)
	assert.Error(t, err)
}

func TestRenovationAdvisor_RejectsEmptyScope(t *testing.T) {
	a := NewRenovationAdvisor(&fakeCaller{response: `{"rooms":[],"total_cost":0}`}, quietLogger())
	_, err := a.AssessCondition(context.Background(), models.SubjectProperty{}, nil)
	assert.Error(t, err)
}

func TestRenovationAdvisor_PropagatesCallerError(t *testing.T) {
	a := NewRenovationAdvisor(&fakeCaller{err: errors.New("rate limited")}, quietLogger())
	_, err := a.AssessCondition(context.Background(), models.SubjectProperty{}, nil)
	assert.ErrorContains(t, err, "rate limited")
}

func TestRiskAdvisor_ParsesResponse(t *testing.T) {
	caller := &fakeCaller{response: `{
		"key_risks": ["overcapitalization"],
		"exit_strategies": ["sell as-is"],
		"category_factors": {"market": ["thin comparable set"]},
		"mitigations": {"market": ["wait for more sales data"]}
	}`}

	a := NewRiskAdvisor(caller, quietLogger())
	got, err := a.AssessRisk(context.Background(), models.Deal{PurchasePrice: floatPtr(450000)}, models.SubjectProperty{})

	assert.NoError(t, err)
	assert.Equal(t, []string{"overcapitalization"}, got.KeyRisks)
	assert.Equal(t, []string{"thin comparable set"}, got.CategoryFactors["market"])
	assert.Contains(t, caller.prompt, "450000")
}

func TestRiskAdvisor_RejectsInvalidJSON(t *testing.T) {
	a := NewRiskAdvisor(&fakeCaller{response: "not json"}, quietLogger())
	_, err := a.AssessRisk(context.Background(), models.Deal{}, models.SubjectProperty{})
	assert.Error(t, err)
}

func floatPtr(v float64) *float64 { return &v }
