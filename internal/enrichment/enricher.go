// Package enrichment annotates a subject property with geospatial context.
// Enrichment is best-effort: failures are reported but never block analysis.
package enrichment

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/sirupsen/logrus"

	"flipradar/server/config"
	"flipradar/server/internal/database"
	"flipradar/server/internal/models"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	GeocodeAddress(address, suburb, city string) (float64, float64, error)
}

type Enricher struct {
	geocoder Geocoder
	db       *database.Database
	logger   *logrus.Logger
}

func NewEnricher(geocoder Geocoder, db *database.Database, logger *logrus.Logger) *Enricher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Enricher{geocoder: geocoder, db: db, logger: logger}
}

// Enrich fills in the subject's coordinates and distance to the city center,
// persisting what it derives. The subject is mutated in place so callers see
// the enriched values without a re-read.
func (e *Enricher) Enrich(subject *models.SubjectProperty) error {
	if subject.Latitude == nil || subject.Longitude == nil {
		if e.geocoder == nil {
			return fmt.Errorf("no coordinates and no geocoder configured")
		}
		lat, lon, err := e.geocoder.GeocodeAddress(subject.Address, subject.Suburb, subject.City)
		if err != nil {
			return fmt.Errorf("geocoding failed: %w", err)
		}
		subject.Latitude = &lat
		subject.Longitude = &lon
	}

	if subject.DistanceToCenterKm == nil {
		if d, ok := distanceToCenter(*subject.Latitude, *subject.Longitude, subject.City); ok {
			subject.DistanceToCenterKm = &d
		} else {
			e.logger.WithField("city", subject.City).Debug("No center coordinates for city, skipping distance")
		}
	}

	if err := e.db.UpdatePropertyGeo(subject.ID, *subject.Latitude, *subject.Longitude, subject.DistanceToCenterKm); err != nil {
		return fmt.Errorf("failed to persist geodata: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"property_id": subject.ID,
		"latitude":    *subject.Latitude,
		"longitude":   *subject.Longitude,
	}).Info("Enriched property with geodata")
	return nil
}

func distanceToCenter(lat, lon float64, cityName string) (float64, bool) {
	city := config.GetCityByName(cityName)
	if city == nil || len(city.Center) != 2 {
		return 0, false
	}
	// orb points are lon/lat ordered.
	center := orb.Point{city.Center[1], city.Center[0]}
	point := orb.Point{lon, lat}
	return geo.Distance(point, center) / 1000, true
}
