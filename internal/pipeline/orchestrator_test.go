package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"flipradar/server/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetDeal(id int64) (*models.Deal, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *mockStore) GetProperty(id int64) (*models.SubjectProperty, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubjectProperty), args.Error(1)
}

func (m *mockStore) GetSalesSince(city string, since time.Time) ([]models.SaleRecord, error) {
	args := m.Called(city, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SaleRecord), args.Error(1)
}

func (m *mockStore) MergeMarketAnalysis(dealID int64, ma *models.MarketAnalysis) error {
	return m.Called(dealID, ma).Error(0)
}

func (m *mockStore) MergeRenovationAnalysis(dealID int64, ra *models.RenovationAnalysis) error {
	return m.Called(dealID, ra).Error(0)
}

func (m *mockStore) MergeRiskAssessment(dealID int64, rs *models.RiskAssessment, currentProfit *float64) error {
	return m.Called(dealID, rs, currentProfit).Error(0)
}

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Enrich(subject *models.SubjectProperty) error {
	return m.Called(subject).Error(0)
}

type stubRenovation struct {
	analysis models.RenovationAnalysis
}

func (s *stubRenovation) Estimate(ctx context.Context, subject models.SubjectProperty, photoURLs []string) models.RenovationAnalysis {
	return s.analysis
}

type stubRisk struct {
	assessment models.RiskAssessment
	gotProfit  *float64
}

func (s *stubRisk) Assess(ctx context.Context, deal models.Deal, subject models.SubjectProperty, projectedProfit *float64) models.RiskAssessment {
	s.gotProfit = projectedProfit
	return s.assessment
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func floatPtr(v float64) *float64 { return &v }

func testOrchestrator(store Store, enricher Enricher) *Orchestrator {
	return NewOrchestrator(store, enricher, &stubRenovation{}, &stubRisk{}, nil, Config{
		CompWindowMonths:    12,
		CompMaxResults:      25,
		TransactionCostRate: 0.10,
	}, quietLogger())
}

func baseDeal() *models.Deal {
	return &models.Deal{ID: 1, PropertyID: 7, PurchasePrice: floatPtr(300000)}
}

func baseSubject() *models.SubjectProperty {
	return &models.SubjectProperty{ID: 7, City: "auckland"}
}

func TestRunAnalysis_HappyPath(t *testing.T) {
	store := new(mockStore)
	store.On("GetDeal", int64(1)).Return(baseDeal(), nil)
	store.On("GetProperty", int64(7)).Return(baseSubject(), nil)
	store.On("GetSalesSince", "auckland", mock.Anything).Return([]models.SaleRecord{}, nil)
	store.On("MergeMarketAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRenovationAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRiskAssessment", int64(1), mock.Anything, mock.Anything).Return(nil)

	o := testOrchestrator(store, nil)
	deal, err := o.RunAnalysis(context.Background(), 1, nil)

	assert.NoError(t, err)
	assert.NotNil(t, deal)
	store.AssertExpectations(t)
}

func TestRunAnalysis_MarketFailureHaltsRun(t *testing.T) {
	store := new(mockStore)
	store.On("GetDeal", int64(1)).Return(baseDeal(), nil)
	store.On("GetProperty", int64(7)).Return(baseSubject(), nil)
	store.On("GetSalesSince", "auckland", mock.Anything).Return(nil, errors.New("db locked"))

	o := testOrchestrator(store, nil)
	deal, err := o.RunAnalysis(context.Background(), 1, nil)

	assert.Nil(t, deal)
	var stageErr *StageError
	assert.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageMarket, stageErr.Stage)
	assert.Equal(t, StageMarket, StageNameFromError(err))

	// later stages never ran
	store.AssertNotCalled(t, "MergeRenovationAnalysis", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "MergeRiskAssessment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAnalysis_EnrichmentFailureIsNonCritical(t *testing.T) {
	store := new(mockStore)
	store.On("GetDeal", int64(1)).Return(baseDeal(), nil)
	store.On("GetProperty", int64(7)).Return(baseSubject(), nil)
	store.On("GetSalesSince", "auckland", mock.Anything).Return([]models.SaleRecord{}, nil)
	store.On("MergeMarketAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRenovationAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRiskAssessment", int64(1), mock.Anything, mock.Anything).Return(nil)

	enricher := new(mockEnricher)
	enricher.On("Enrich", mock.Anything).Return(errors.New("geocoder down"))

	o := testOrchestrator(store, enricher)
	deal, err := o.RunAnalysis(context.Background(), 1, nil)

	assert.NoError(t, err)
	assert.NotNil(t, deal)
	enricher.AssertExpectations(t)
}

func TestRunAnalysis_RenovationMergeFailure(t *testing.T) {
	store := new(mockStore)
	store.On("GetDeal", int64(1)).Return(baseDeal(), nil)
	store.On("GetProperty", int64(7)).Return(baseSubject(), nil)
	store.On("GetSalesSince", "auckland", mock.Anything).Return([]models.SaleRecord{}, nil)
	store.On("MergeMarketAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRenovationAnalysis", int64(1), mock.Anything).Return(errors.New("disk full"))

	o := testOrchestrator(store, nil)
	_, err := o.RunAnalysis(context.Background(), 1, nil)

	assert.Equal(t, StageRenovation, StageNameFromError(err))
	store.AssertNotCalled(t, "MergeRiskAssessment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAnalysis_SyncErrorReturnsLastSnapshot(t *testing.T) {
	store := new(mockStore)
	store.On("GetDeal", int64(1)).Return(baseDeal(), nil).Twice()
	store.On("GetDeal", int64(1)).Return(nil, errors.New("db gone")).Once()
	store.On("GetProperty", int64(7)).Return(baseSubject(), nil)
	store.On("GetSalesSince", "auckland", mock.Anything).Return([]models.SaleRecord{}, nil)
	store.On("MergeMarketAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRenovationAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRiskAssessment", int64(1), mock.Anything, mock.Anything).Return(nil)

	o := testOrchestrator(store, nil)
	deal, err := o.RunAnalysis(context.Background(), 1, nil)

	var syncErr *SyncError
	assert.ErrorAs(t, err, &syncErr)
	// the analysis persisted; the caller still gets the pre-sync snapshot
	assert.NotNil(t, deal)
	assert.Equal(t, int64(1), deal.ID)
	// a sync failure is not attributed to any stage
	assert.Equal(t, "pipeline", StageNameFromError(err))
}

func TestRunAnalysis_ProfitPassedToRiskStage(t *testing.T) {
	// deal re-read after renovation carries the persisted ARV and cost
	ma, _ := json.Marshal(models.MarketAnalysis{EstimatedARV: floatPtr(500000)})
	reloaded := baseDeal()
	reloaded.MarketAnalysis = ma
	reloaded.EstimatedRenovationCost = floatPtr(50000)

	store := new(mockStore)
	store.On("GetDeal", int64(1)).Return(baseDeal(), nil).Once()
	store.On("GetDeal", int64(1)).Return(reloaded, nil)
	store.On("GetProperty", int64(7)).Return(baseSubject(), nil)
	store.On("GetSalesSince", "auckland", mock.Anything).Return([]models.SaleRecord{}, nil)
	store.On("MergeMarketAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRenovationAnalysis", int64(1), mock.Anything).Return(nil)
	store.On("MergeRiskAssessment", int64(1), mock.Anything, mock.Anything).Return(nil)

	risk := &stubRisk{}
	o := NewOrchestrator(store, nil, &stubRenovation{}, risk, nil, Config{
		CompWindowMonths:    12,
		CompMaxResults:      25,
		TransactionCostRate: 0.10,
	}, quietLogger())

	_, err := o.RunAnalysis(context.Background(), 1, nil)
	assert.NoError(t, err)

	// 500000 - 300000 - 50000 - 50000 = 100000
	assert.NotNil(t, risk.gotProfit)
	assert.InDelta(t, 100000.0, *risk.gotProfit, 0.001)
}

func TestStageNameFromError_Default(t *testing.T) {
	assert.Equal(t, "pipeline", StageNameFromError(errors.New("plain")))
}
