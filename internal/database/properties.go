package database

import (
	"database/sql"
	"errors"
	"fmt"

	"flipradar/server/internal/models"
)

var ErrPropertyNotFound = errors.New("property not found")

func (d *Database) CreateProperty(p *models.SubjectProperty) (int64, error) {
	res, err := d.db.Exec(`
		INSERT INTO properties
		(address, suburb, city, bedrooms, bathrooms, floor_area, land_area, property_type, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.Address, p.Suburb, p.City,
		p.Bedrooms, p.Bathrooms, p.FloorArea, p.LandArea,
		p.PropertyType, p.Latitude, p.Longitude,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert property: %w", err)
	}
	return res.LastInsertId()
}

func (d *Database) GetProperty(id int64) (*models.SubjectProperty, error) {
	var p models.SubjectProperty
	var suburb, city, propertyType sql.NullString
	var bedrooms, bathrooms sql.NullInt64
	var floorArea, landArea, latitude, longitude, distance sql.NullFloat64
	var createdAt sql.NullTime

	err := d.db.QueryRow(`
		SELECT id, address, suburb, city, bedrooms, bathrooms, floor_area, land_area,
		       property_type, latitude, longitude, distance_to_center_km, created_at
		FROM properties
		WHERE id = ?
	`, id).Scan(
		&p.ID, &p.Address, &suburb, &city, &bedrooms, &bathrooms, &floorArea, &landArea,
		&propertyType, &latitude, &longitude, &distance, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Suburb = suburb.String
	p.City = city.String
	p.PropertyType = propertyType.String
	if bedrooms.Valid {
		v := int(bedrooms.Int64)
		p.Bedrooms = &v
	}
	if bathrooms.Valid {
		v := int(bathrooms.Int64)
		p.Bathrooms = &v
	}
	if floorArea.Valid {
		v := floorArea.Float64
		p.FloorArea = &v
	}
	if landArea.Valid {
		v := landArea.Float64
		p.LandArea = &v
	}
	if latitude.Valid {
		v := latitude.Float64
		p.Latitude = &v
	}
	if longitude.Valid {
		v := longitude.Float64
		p.Longitude = &v
	}
	if distance.Valid {
		v := distance.Float64
		p.DistanceToCenterKm = &v
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	return &p, nil
}

// UpdatePropertyGeo records the enrichment stage's geodata on the property.
func (d *Database) UpdatePropertyGeo(id int64, latitude, longitude float64, distanceKm *float64) error {
	res, err := d.db.Exec(`
		UPDATE properties
		SET latitude = ?, longitude = ?, distance_to_center_km = ?
		WHERE id = ?
	`, latitude, longitude, distanceKm, id)
	if err != nil {
		return fmt.Errorf("failed to update coordinates: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPropertyNotFound
	}
	return nil
}
