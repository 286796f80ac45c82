package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database wraps the SQLite store. Raw SQL serves reads and the deal
// merge-update path; the gorm handle serves only the batched sale upserts
// (see UpsertSaleRecords).
type Database struct {
	db  *sql.DB
	orm *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	orm, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm handle: %w", err)
	}

	return &Database{db: db, orm: orm}, nil
}

func (d *Database) DB() *sql.DB {
	return d.db
}

// ORM returns the gorm handle used by the batch ingestion path.
func (d *Database) ORM() *gorm.DB {
	return d.orm
}

func (d *Database) Close() error {
	if ormDB, err := d.orm.DB(); err == nil {
		ormDB.Close()
	}
	return d.db.Close()
}

func (d *Database) RunMigrations() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			address TEXT NOT NULL,
			suburb TEXT,
			city TEXT,
			bedrooms INTEGER,
			bathrooms INTEGER,
			floor_area REAL,
			land_area REAL,
			property_type TEXT,
			latitude REAL,
			longitude REAL,
			distance_to_center_km REAL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			listing_url TEXT UNIQUE,
			address TEXT,
			city TEXT,
			sold_price REAL,
			sold_date DATETIME,
			bedrooms INTEGER,
			bathrooms INTEGER,
			floor_area REAL,
			land_area REAL,
			property_type TEXT,
			days_on_market INTEGER,
			scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sales_city_date ON sales(city, sold_date);`,
		`CREATE TABLE IF NOT EXISTS deals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			property_id INTEGER NOT NULL REFERENCES properties(id),
			stage TEXT NOT NULL DEFAULT 'analysis',
			purchase_price REAL,
			target_sale_price REAL,
			current_profit REAL,
			current_risk TEXT,
			estimated_renovation_cost REAL,
			market_analysis TEXT,
			renovation_analysis TEXT,
			risk_assessment TEXT,
			notes TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage);`,
		`CREATE TABLE IF NOT EXISTS telegram_config (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_token TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			is_enabled BOOLEAN DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
