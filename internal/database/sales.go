package database

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flipradar/server/internal/models"
)

// GetSalesSince reads the comparables pool. An empty city or zero since
// disables that filter; callers pass filter hints, not selection logic —
// the comparable selector owns similarity filtering.
func (d *Database) GetSalesSince(city string, since time.Time) ([]models.SaleRecord, error) {
	query := `
		SELECT id, listing_url, address, city, sold_price, sold_date,
		       bedrooms, bathrooms, floor_area, land_area, property_type,
		       days_on_market, scraped_at
		FROM sales
		WHERE (? = '' OR LOWER(city) = LOWER(?))
	`
	args := []interface{}{city, city}

	if !since.IsZero() {
		query += " AND sold_date >= ?"
		args = append(args, since)
	}
	query += " ORDER BY sold_date DESC"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SaleRecord
	for rows.Next() {
		rec, err := scanSaleRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetRecentSales returns the most recently sold records, newest first.
func (d *Database) GetRecentSales(limit int, city string) ([]models.SaleRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, listing_url, address, city, sold_price, sold_date,
		       bedrooms, bathrooms, floor_area, land_area, property_type,
		       days_on_market, scraped_at
		FROM sales
		WHERE (? = '' OR LOWER(city) = LOWER(?))
		AND sold_date IS NOT NULL
		ORDER BY sold_date DESC
		LIMIT ?
	`, city, city, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SaleRecord
	for rows.Next() {
		rec, err := scanSaleRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanSaleRecord(rows *sql.Rows) (*models.SaleRecord, error) {
	var rec models.SaleRecord
	var listingURL, address, city, propertyType sql.NullString
	var soldPrice, floorArea, landArea sql.NullFloat64
	var soldDate, scrapedAt sql.NullTime
	var bedrooms, bathrooms, daysOnMarket sql.NullInt64

	err := rows.Scan(
		&rec.ID, &listingURL, &address, &city, &soldPrice, &soldDate,
		&bedrooms, &bathrooms, &floorArea, &landArea, &propertyType,
		&daysOnMarket, &scrapedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ListingURL = listingURL.String
	rec.Address = address.String
	rec.City = city.String
	rec.PropertyType = propertyType.String
	if soldPrice.Valid {
		v := soldPrice.Float64
		rec.SoldPrice = &v
	}
	if soldDate.Valid {
		v := soldDate.Time
		rec.SoldDate = &v
	}
	if bedrooms.Valid {
		v := int(bedrooms.Int64)
		rec.Bedrooms = &v
	}
	if bathrooms.Valid {
		v := int(bathrooms.Int64)
		rec.Bathrooms = &v
	}
	if floorArea.Valid {
		v := floorArea.Float64
		rec.FloorArea = &v
	}
	if landArea.Valid {
		v := landArea.Float64
		rec.LandArea = &v
	}
	if daysOnMarket.Valid {
		v := int(daysOnMarket.Int64)
		rec.DaysOnMarket = &v
	}
	if scrapedAt.Valid {
		rec.ScrapedAt = scrapedAt.Time
	}
	return &rec, nil
}

// UpsertSaleRecords writes a batch of scraped sale records inside the given
// gorm transaction, keyed on listing URL so re-scrapes refresh rather than
// duplicate.
func UpsertSaleRecords(tx *gorm.DB, records []*models.SaleRecord) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "listing_url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"address", "city", "sold_price", "sold_date",
			"bedrooms", "bathrooms", "floor_area", "land_area",
			"property_type", "days_on_market", "scraped_at",
		}),
	}).Create(records).Error
}
