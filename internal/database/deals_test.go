package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipradar/server/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

// testDatabase opens a file-backed store: the raw and gorm handles must see
// the same database, which ":memory:" cannot provide.
func testDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestDeal(t *testing.T, db *Database) int64 {
	t.Helper()
	propertyID, err := db.CreateProperty(&models.SubjectProperty{
		Address: "12 Example St",
		Suburb:  "Ponsonby",
		City:    "auckland",
	})
	require.NoError(t, err)

	dealID, err := db.CreateDeal(propertyID, floatPtr(450000), floatPtr(650000), "first walkthrough done")
	require.NoError(t, err)
	return dealID
}

func TestCreateAndGetDeal(t *testing.T) {
	db := testDatabase(t)
	id := createTestDeal(t, db)

	deal, err := db.GetDeal(id)
	require.NoError(t, err)
	assert.Equal(t, models.StageAnalysis, deal.Stage)
	assert.Equal(t, 450000.0, *deal.PurchasePrice)
	assert.Equal(t, 650000.0, *deal.TargetSalePrice)
	assert.Equal(t, "first walkthrough done", deal.Notes)
	assert.Empty(t, deal.MarketAnalysis)
}

func TestGetDeal_NotFound(t *testing.T) {
	db := testDatabase(t)
	_, err := db.GetDeal(999)
	assert.ErrorIs(t, err, ErrDealNotFound)
}

func TestListDeals_StageFilter(t *testing.T) {
	db := testDatabase(t)
	first := createTestDeal(t, db)
	second := createTestDeal(t, db)

	require.NoError(t, db.UpdateDealFields(second, map[string]interface{}{"stage": string(models.StageOffer)}))

	all, err := db.ListDeals("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	offers, err := db.ListDeals(string(models.StageOffer))
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, second, offers[0].ID)

	analysis, err := db.ListDeals(string(models.StageAnalysis))
	require.NoError(t, err)
	require.Len(t, analysis, 1)
	assert.Equal(t, first, analysis[0].ID)
}

func TestUpdateDealFields_RejectsUnknownColumn(t *testing.T) {
	db := testDatabase(t)
	id := createTestDeal(t, db)

	err := db.UpdateDealFields(id, map[string]interface{}{"market_analysis": "{}"})
	assert.Error(t, err)
}

func TestUpdateDealFields_NotFound(t *testing.T) {
	db := testDatabase(t)
	err := db.UpdateDealFields(999, map[string]interface{}{"notes": "x"})
	assert.ErrorIs(t, err, ErrDealNotFound)
}

func TestMergeMarketAnalysis_PreservesForeignKeys(t *testing.T) {
	db := testDatabase(t)
	id := createTestDeal(t, db)

	// a key the market stage does not own lands in the blob first
	require.NoError(t, db.MergeAnalysisKeys(id, "market_analysis", map[string]interface{}{
		"condition_assessment": "roof needs inspection",
	}))

	ma := &models.MarketAnalysis{
		EstimatedARV: floatPtr(600000),
		MarketTrend:  "stable",
		Confidence:   45,
		AnalyzedAt:   time.Now(),
	}
	require.NoError(t, db.MergeMarketAnalysis(id, ma))

	deal, err := db.GetDeal(id)
	require.NoError(t, err)

	decoded, ok := deal.DecodedMarketAnalysis()
	require.True(t, ok)
	assert.Equal(t, 600000.0, *decoded.EstimatedARV)

	// the foreign key survived the stage merge
	assert.Contains(t, string(deal.MarketAnalysis), "roof needs inspection")
}

func TestMergeMarketAnalysis_ExplicitNullOverwritesStaleValue(t *testing.T) {
	db := testDatabase(t)
	id := createTestDeal(t, db)

	require.NoError(t, db.MergeMarketAnalysis(id, &models.MarketAnalysis{EstimatedARV: floatPtr(600000)}))
	// a re-run with no comparables and no fallback clears the ARV
	require.NoError(t, db.MergeMarketAnalysis(id, &models.MarketAnalysis{}))

	deal, err := db.GetDeal(id)
	require.NoError(t, err)
	decoded, ok := deal.DecodedMarketAnalysis()
	require.True(t, ok)
	assert.Nil(t, decoded.EstimatedARV)
}

func TestMergeRenovationAnalysis_PreservesBedroomToggleAndSyncsCost(t *testing.T) {
	db := testDatabase(t)
	id := createTestDeal(t, db)

	// user toggles the bedroom addition before any analysis runs
	require.NoError(t, db.MergeAnalysisKeys(id, "renovation_analysis", map[string]interface{}{
		"bedroom_addition_potential": true,
		"bedroom_addition_cost":      80000,
	}))

	// the stage output omits the caller-owned keys entirely
	ra := &models.RenovationAnalysis{
		Rooms:     []models.RoomEstimate{{Category: "kitchen", Cost: 25000}},
		TotalCost: 25000,
	}
	require.NoError(t, db.MergeRenovationAnalysis(id, ra))

	deal, err := db.GetDeal(id)
	require.NoError(t, err)

	decoded, ok := deal.DecodedRenovationAnalysis()
	require.True(t, ok)
	require.NotNil(t, decoded.BedroomAdditionPotential)
	assert.True(t, *decoded.BedroomAdditionPotential)
	require.NotNil(t, decoded.BedroomAdditionCost)
	assert.Equal(t, 80000.0, *decoded.BedroomAdditionCost)

	// the flat column tracked the blob
	require.NotNil(t, deal.EstimatedRenovationCost)
	assert.Equal(t, 25000.0, *deal.EstimatedRenovationCost)
}

func TestMergeRiskAssessment_SetsScalars(t *testing.T) {
	db := testDatabase(t)
	id := createTestDeal(t, db)

	rs := &models.RiskAssessment{
		OverallScore: 42,
		OverallLevel: models.RiskMedium,
	}
	require.NoError(t, db.MergeRiskAssessment(id, rs, floatPtr(85000)))

	deal, err := db.GetDeal(id)
	require.NoError(t, err)
	assert.Equal(t, "medium", deal.CurrentRisk)
	require.NotNil(t, deal.CurrentProfit)
	assert.Equal(t, 85000.0, *deal.CurrentProfit)

	decoded, ok := deal.DecodedRiskAssessment()
	require.True(t, ok)
	assert.Equal(t, 42.0, decoded.OverallScore)
}

func TestMergeAnalysisColumn_RejectsNonAnalysisColumn(t *testing.T) {
	db := testDatabase(t)
	id := createTestDeal(t, db)

	err := db.MergeAnalysisKeys(id, "notes", map[string]interface{}{"x": 1})
	assert.Error(t, err)
}

func TestMergeAnalysisColumn_DealNotFound(t *testing.T) {
	db := testDatabase(t)
	err := db.MergeMarketAnalysis(999, &models.MarketAnalysis{})
	assert.ErrorIs(t, err, ErrDealNotFound)
}
