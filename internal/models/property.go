package models

import "time"

// SubjectProperty is the property under evaluation. It is immutable input to
// the analysis pipeline; only the enrichment stage writes coordinates back.
type SubjectProperty struct {
	ID                 int64     `json:"id"`
	Address            string    `json:"address"`
	Suburb             string    `json:"suburb"`
	City               string    `json:"city"`
	Bedrooms           *int      `json:"bedrooms"`
	Bathrooms          *int      `json:"bathrooms"`
	FloorArea          *float64  `json:"floor_area"`
	LandArea           *float64  `json:"land_area"`
	PropertyType       string    `json:"property_type"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
	DistanceToCenterKm *float64  `json:"distance_to_center_km"`
	CreatedAt          time.Time `json:"created_at"`
}

// SaleRecord is a historical transaction candidate from the comparables pool.
// Records arrive from the scraper with missing fields; anything optional is a
// pointer and the selector is responsible for excluding unusable records.
type SaleRecord struct {
	ID           int64      `json:"id" gorm:"column:id;primaryKey"`
	ListingURL   string     `json:"listing_url" gorm:"column:listing_url"`
	Address      string     `json:"address" gorm:"column:address"`
	City         string     `json:"city" gorm:"column:city"`
	SoldPrice    *float64   `json:"sold_price" gorm:"column:sold_price"`
	SoldDate     *time.Time `json:"sold_date" gorm:"column:sold_date"`
	Bedrooms     *int       `json:"bedrooms" gorm:"column:bedrooms"`
	Bathrooms    *int       `json:"bathrooms" gorm:"column:bathrooms"`
	FloorArea    *float64   `json:"floor_area" gorm:"column:floor_area"`
	LandArea     *float64   `json:"land_area" gorm:"column:land_area"`
	PropertyType string     `json:"property_type" gorm:"column:property_type"`
	DaysOnMarket *int       `json:"days_on_market" gorm:"column:days_on_market"`
	ScrapedAt    time.Time  `json:"scraped_at" gorm:"column:scraped_at"`
}

// TableName maps SaleRecord onto the sales table for the gorm upsert path
func (SaleRecord) TableName() string {
	return "sales"
}
