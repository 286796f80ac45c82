package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"flipradar/server/internal/models"
)

var ErrDealNotFound = errors.New("deal not found")

// analysisColumns whitelists the blob columns the merge path may touch.
var analysisColumns = map[string]bool{
	"market_analysis":     true,
	"renovation_analysis": true,
	"risk_assessment":     true,
}

// dealColumns whitelists the scalar columns a partial update may touch.
var dealColumns = map[string]bool{
	"stage":             true,
	"purchase_price":    true,
	"target_sale_price": true,
	"notes":             true,
}

func (d *Database) CreateDeal(propertyID int64, purchasePrice, targetSalePrice *float64, notes string) (int64, error) {
	res, err := d.db.Exec(`
		INSERT INTO deals (property_id, stage, purchase_price, target_sale_price, notes)
		VALUES (?, ?, ?, ?, ?)
	`, propertyID, models.StageAnalysis, purchasePrice, targetSalePrice, notes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert deal: %w", err)
	}
	return res.LastInsertId()
}

func (d *Database) GetDeal(id int64) (*models.Deal, error) {
	row := d.db.QueryRow(`
		SELECT id, property_id, stage, purchase_price, target_sale_price,
		       current_profit, current_risk, estimated_renovation_cost,
		       market_analysis, renovation_analysis, risk_assessment,
		       notes, created_at, updated_at
		FROM deals
		WHERE id = ?
	`, id)
	return scanDeal(row)
}

func (d *Database) ListDeals(stage string) ([]models.Deal, error) {
	query := `
		SELECT id, property_id, stage, purchase_price, target_sale_price,
		       current_profit, current_risk, estimated_renovation_cost,
		       market_analysis, renovation_analysis, risk_assessment,
		       notes, created_at, updated_at
		FROM deals
		WHERE (? = '' OR stage = ?)
		ORDER BY updated_at DESC
	`
	rows, err := d.db.Query(query, stage, stage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	return deals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	var deal models.Deal
	var stage, currentRisk, notes sql.NullString
	var market, renovation, risk sql.NullString
	var purchasePrice, targetSalePrice, currentProfit, renovationCost sql.NullFloat64
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&deal.ID,
		&deal.PropertyID,
		&stage,
		&purchasePrice,
		&targetSalePrice,
		&currentProfit,
		&currentRisk,
		&renovationCost,
		&market,
		&renovation,
		&risk,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, err
	}

	deal.Stage = models.DealStage(stage.String)
	deal.CurrentRisk = currentRisk.String
	deal.Notes = notes.String
	if purchasePrice.Valid {
		v := purchasePrice.Float64
		deal.PurchasePrice = &v
	}
	if targetSalePrice.Valid {
		v := targetSalePrice.Float64
		deal.TargetSalePrice = &v
	}
	if currentProfit.Valid {
		v := currentProfit.Float64
		deal.CurrentProfit = &v
	}
	if renovationCost.Valid {
		v := renovationCost.Float64
		deal.EstimatedRenovationCost = &v
	}
	if market.Valid && market.String != "" {
		deal.MarketAnalysis = json.RawMessage(market.String)
	}
	if renovation.Valid && renovation.String != "" {
		deal.RenovationAnalysis = json.RawMessage(renovation.String)
	}
	if risk.Valid && risk.String != "" {
		deal.RiskAssessment = json.RawMessage(risk.String)
	}
	if createdAt.Valid {
		deal.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		deal.UpdatedAt = updatedAt.Time
	}
	return &deal, nil
}

// UpdateDealFields applies a partial field-by-field update. Unknown columns
// are rejected; a full-record overwrite is deliberately impossible here.
func (d *Database) UpdateDealFields(id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	var assignments []string
	var args []interface{}
	for column, value := range fields {
		if !dealColumns[column] {
			return fmt.Errorf("column not updatable: %s", column)
		}
		assignments = append(assignments, column+" = ?")
		args = append(args, value)
	}
	assignments = append(assignments, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := d.db.Exec(
		"UPDATE deals SET "+strings.Join(assignments, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDealNotFound
	}
	return nil
}

// mergeJSONKeys overlays the keys of update onto an existing JSON document.
// Keys absent from update survive untouched, which is what lets one stage
// rewrite its own fields without clobbering siblings written by other stages
// or by the user.
func mergeJSONKeys(existing []byte, update interface{}) ([]byte, error) {
	merged := map[string]json.RawMessage{}
	if len(existing) > 0 {
		// A corrupt blob is replaced rather than propagated.
		_ = json.Unmarshal(existing, &merged)
	}

	encoded, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis update: %w", err)
	}
	updates := map[string]json.RawMessage{}
	if err := json.Unmarshal(encoded, &updates); err != nil {
		return nil, fmt.Errorf("analysis update is not a JSON object: %w", err)
	}

	for key, value := range updates {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// mergeAnalysisColumn performs the read-modify-write of a single blob column
// inside one transaction. Scalar column updates ride along so a stage's blob
// and its derived scalars land atomically.
func (d *Database) mergeAnalysisColumn(dealID int64, column string, update interface{}, scalars map[string]interface{}) error {
	if !analysisColumns[column] {
		return fmt.Errorf("not an analysis column: %s", column)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing sql.NullString
	err = tx.QueryRow("SELECT "+column+" FROM deals WHERE id = ?", dealID).Scan(&existing)
	if err == sql.ErrNoRows {
		return ErrDealNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", column, err)
	}

	merged, err := mergeJSONKeys([]byte(existing.String), update)
	if err != nil {
		return err
	}

	assignments := []string{column + " = ?", "updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{string(merged)}
	for scalar, value := range scalars {
		assignments = append(assignments, scalar+" = ?")
		args = append(args, value)
	}
	args = append(args, dealID)

	if _, err := tx.Exec("UPDATE deals SET "+strings.Join(assignments, ", ")+" WHERE id = ?", args...); err != nil {
		return fmt.Errorf("failed to merge %s: %w", column, err)
	}
	return tx.Commit()
}

// MergeMarketAnalysis merges the market stage output into the deal.
func (d *Database) MergeMarketAnalysis(dealID int64, ma *models.MarketAnalysis) error {
	return d.mergeAnalysisColumn(dealID, "market_analysis", ma, nil)
}

// MergeRenovationAnalysis merges the renovation stage output and keeps the
// flat estimated_renovation_cost column in step with the blob.
func (d *Database) MergeRenovationAnalysis(dealID int64, ra *models.RenovationAnalysis) error {
	return d.mergeAnalysisColumn(dealID, "renovation_analysis", ra, map[string]interface{}{
		"estimated_renovation_cost": ra.TotalCost,
	})
}

// MergeRiskAssessment merges the risk stage output along with the flat
// current_risk level and the (possibly nil) recomputed profit.
func (d *Database) MergeRiskAssessment(dealID int64, rs *models.RiskAssessment, currentProfit *float64) error {
	return d.mergeAnalysisColumn(dealID, "risk_assessment", rs, map[string]interface{}{
		"current_risk":   string(rs.OverallLevel),
		"current_profit": currentProfit,
	})
}

// MergeAnalysisKeys merges loose keys into one analysis blob. This is the
// path for caller-owned keys such as the bedroom-addition toggle or an
// externally computed condition assessment.
func (d *Database) MergeAnalysisKeys(dealID int64, column string, keys map[string]interface{}) error {
	return d.mergeAnalysisColumn(dealID, column, keys, nil)
}
