// Package pipeline runs the multi-stage deal analysis: market valuation,
// geospatial enrichment, renovation scoping and risk assessment, with each
// stage's output persisted before the next stage starts.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/comps"
	"flipradar/server/internal/economics"
	"flipradar/server/internal/market"
	"flipradar/server/internal/models"
)

// Stage names as surfaced in errors and API responses.
const (
	StageMarket     = "market analysis"
	StageEnrichment = "enrichment"
	StageRenovation = "renovation analysis"
	StageRisk       = "risk assessment"
)

// Store is the persistence surface the orchestrator needs. The concrete
// database satisfies it; tests substitute their own.
type Store interface {
	GetDeal(id int64) (*models.Deal, error)
	GetProperty(id int64) (*models.SubjectProperty, error)
	GetSalesSince(city string, since time.Time) ([]models.SaleRecord, error)

	MergeMarketAnalysis(dealID int64, ma *models.MarketAnalysis) error
	MergeRenovationAnalysis(dealID int64, ra *models.RenovationAnalysis) error
	MergeRiskAssessment(dealID int64, rs *models.RiskAssessment, currentProfit *float64) error
}

// Enricher annotates a property with geodata. Optional; enrichment is the one
// non-critical stage and its failures are logged, never propagated.
type Enricher interface {
	Enrich(subject *models.SubjectProperty) error
}

// RenovationEstimator produces the renovation analysis. Total by contract.
type RenovationEstimator interface {
	Estimate(ctx context.Context, subject models.SubjectProperty, photoURLs []string) models.RenovationAnalysis
}

// RiskScorer produces the risk assessment. Total by contract.
type RiskScorer interface {
	Assess(ctx context.Context, deal models.Deal, subject models.SubjectProperty, projectedProfit *float64) models.RiskAssessment
}

// Notifier receives completion events. Optional and best-effort.
type Notifier interface {
	NotifyAnalysisComplete(deal *models.Deal, subject *models.SubjectProperty)
}

type Config struct {
	CompWindowMonths    int
	CompMaxResults      int
	TransactionCostRate float64
}

type Orchestrator struct {
	store      Store
	enricher   Enricher
	renovation RenovationEstimator
	risk       RiskScorer
	notifier   Notifier
	cfg        Config
	logger     *logrus.Logger
	now        func() time.Time
}

func NewOrchestrator(store Store, enricher Enricher, renovation RenovationEstimator, risk RiskScorer, notifier Notifier, cfg Config, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.TransactionCostRate <= 0 {
		cfg.TransactionCostRate = economics.DefaultTransactionCostRate
	}
	return &Orchestrator{
		store:      store,
		enricher:   enricher,
		renovation: renovation,
		risk:       risk,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// RunAnalysis executes the full pipeline for one deal. Each stage merges its
// result into the deal record before the next stage runs, so a failure partway
// through leaves everything completed so far queryable. Critical stage
// failures return a *StageError; a *SyncError means the analysis persisted
// but the final snapshot could not be read, and the last good snapshot is
// returned alongside it.
func (o *Orchestrator) RunAnalysis(ctx context.Context, dealID int64, photoURLs []string) (*models.Deal, error) {
	log := o.logger.WithField("deal_id", dealID)

	deal, err := o.store.GetDeal(dealID)
	if err != nil {
		return nil, &StageError{Stage: StageMarket, Err: fmt.Errorf("failed to load deal: %w", err)}
	}
	subject, err := o.store.GetProperty(deal.PropertyID)
	if err != nil {
		return nil, &StageError{Stage: StageMarket, Err: fmt.Errorf("failed to load property: %w", err)}
	}

	if err := o.runMarket(dealID, deal, subject); err != nil {
		return nil, &StageError{Stage: StageMarket, Err: err}
	}
	log.Info("Market analysis complete")

	// Enrichment is best-effort: a geocoding outage must not block the rest
	// of the run.
	if o.enricher != nil {
		if err := o.enricher.Enrich(subject); err != nil {
			log.WithError(err).Warn("Enrichment failed, continuing without geodata")
		}
	}

	ra := o.renovation.Estimate(ctx, *subject, photoURLs)
	if err := o.store.MergeRenovationAnalysis(dealID, &ra); err != nil {
		return nil, &StageError{Stage: StageRenovation, Err: err}
	}
	log.WithField("total_cost", ra.TotalCost).Info("Renovation analysis complete")

	// Re-read so the risk stage sees exactly what earlier stages persisted,
	// including any caller-owned keys the merges preserved.
	deal, err = o.store.GetDeal(dealID)
	if err != nil {
		return nil, &StageError{Stage: StageRisk, Err: fmt.Errorf("failed to reload deal: %w", err)}
	}

	profit := o.projectedProfit(deal)
	rs := o.risk.Assess(ctx, *deal, *subject, profit)
	if err := o.store.MergeRiskAssessment(dealID, &rs, profit); err != nil {
		return nil, &StageError{Stage: StageRisk, Err: err}
	}
	log.WithFields(logrus.Fields{
		"overall_score": rs.OverallScore,
		"overall_level": rs.OverallLevel,
	}).Info("Risk assessment complete")

	final, err := o.store.GetDeal(dealID)
	if err != nil {
		return deal, &SyncError{Err: err}
	}

	if o.notifier != nil {
		o.notifier.NotifyAnalysisComplete(final, subject)
	}
	return final, nil
}

func (o *Orchestrator) runMarket(dealID int64, deal *models.Deal, subject *models.SubjectProperty) error {
	since := o.now().AddDate(0, -o.windowMonths(), 0)
	pool, err := o.store.GetSalesSince(subject.City, since)
	if err != nil {
		return fmt.Errorf("failed to load sales pool: %w", err)
	}

	comparables := comps.Select(*subject, pool, o.now(), o.cfg.CompWindowMonths, o.cfg.CompMaxResults)
	ma := market.Estimate(*subject, comparables, market.Fallback{
		TargetSalePrice: deal.TargetSalePrice,
		PurchasePrice:   deal.PurchasePrice,
	}, "", o.now())

	return o.store.MergeMarketAnalysis(dealID, &ma)
}

// projectedProfit recomputes the deal's estimated profit from the freshly
// persisted analyses. Nil when either the ARV or the purchase price is
// unknown.
func (o *Orchestrator) projectedProfit(deal *models.Deal) *float64 {
	ma, ok := deal.DecodedMarketAnalysis()
	if !ok || ma.EstimatedARV == nil || deal.PurchasePrice == nil {
		return nil
	}
	var renovationCost float64
	if deal.EstimatedRenovationCost != nil {
		renovationCost = *deal.EstimatedRenovationCost
	}
	return economics.EstimatedProfit(ma.EstimatedARV, *deal.PurchasePrice, renovationCost, o.cfg.TransactionCostRate)
}

func (o *Orchestrator) windowMonths() int {
	if o.cfg.CompWindowMonths > 0 {
		return o.cfg.CompWindowMonths
	}
	return comps.DefaultWindowMonths
}
