package models

import (
	"encoding/json"
	"time"
)

// DealStage represents where a deal sits in the investment pipeline.
type DealStage string

const (
	StageAnalysis      DealStage = "analysis"
	StageOffer         DealStage = "offer"
	StageUnderContract DealStage = "under_contract"
	StageRenovation    DealStage = "renovation"
	StageListed        DealStage = "listed"
	StageSold          DealStage = "sold"
)

// ValidStages is the set of allowed deal stages.
var ValidStages = []DealStage{
	StageAnalysis,
	StageOffer,
	StageUnderContract,
	StageRenovation,
	StageListed,
	StageSold,
}

// IsValid checks if a deal stage is recognized.
func (s DealStage) IsValid() bool {
	for _, v := range ValidStages {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the stage.
func (s DealStage) Label() string {
	switch s {
	case StageAnalysis:
		return "Analysis"
	case StageOffer:
		return "Offer"
	case StageUnderContract:
		return "Under Contract"
	case StageRenovation:
		return "Renovation"
	case StageListed:
		return "Listed"
	case StageSold:
		return "Sold"
	default:
		return string(s)
	}
}

// Deal is the aggregate record a user tracks through the pipeline. The three
// analysis blobs are independently-addressable JSON documents merged at the
// key level by the store; the pipeline never overwrites a blob wholesale.
type Deal struct {
	ID                      int64           `json:"id"`
	PropertyID              int64           `json:"property_id"`
	Stage                   DealStage       `json:"stage"`
	PurchasePrice           *float64        `json:"purchase_price"`
	TargetSalePrice         *float64        `json:"target_sale_price"`
	CurrentProfit           *float64        `json:"current_profit"`
	CurrentRisk             string          `json:"current_risk"`
	EstimatedRenovationCost *float64        `json:"estimated_renovation_cost"`
	MarketAnalysis          json.RawMessage `json:"market_analysis,omitempty"`
	RenovationAnalysis      json.RawMessage `json:"renovation_analysis,omitempty"`
	RiskAssessment          json.RawMessage `json:"risk_assessment,omitempty"`
	Notes                   string          `json:"notes"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// DecodedMarketAnalysis decodes the market analysis blob. The second return
// is false when the blob is absent or unparseable; callers degrade rather
// than fail.
func (d *Deal) DecodedMarketAnalysis() (*MarketAnalysis, bool) {
	if len(d.MarketAnalysis) == 0 {
		return nil, false
	}
	var ma MarketAnalysis
	if err := json.Unmarshal(d.MarketAnalysis, &ma); err != nil {
		return nil, false
	}
	return &ma, true
}

// DecodedRenovationAnalysis decodes the renovation analysis blob.
func (d *Deal) DecodedRenovationAnalysis() (*RenovationAnalysis, bool) {
	if len(d.RenovationAnalysis) == 0 {
		return nil, false
	}
	var ra RenovationAnalysis
	if err := json.Unmarshal(d.RenovationAnalysis, &ra); err != nil {
		return nil, false
	}
	return &ra, true
}

// DecodedRiskAssessment decodes the risk assessment blob.
func (d *Deal) DecodedRiskAssessment() (*RiskAssessment, bool) {
	if len(d.RiskAssessment) == 0 {
		return nil, false
	}
	var rs RiskAssessment
	if err := json.Unmarshal(d.RiskAssessment, &rs); err != nil {
		return nil, false
	}
	return &rs, true
}
