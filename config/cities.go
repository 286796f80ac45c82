package config

import "strings"

// City represents a city tracked by the comparables pool
type City struct {
	Name   string    `json:"name"`
	Center []float64 `json:"center"` // [latitude, longitude]
}

// SupportedCities is the list of cities the scraper refreshes sale records for
var SupportedCities = []City{
	{
		Name:   "auckland",
		Center: []float64{-36.8485, 174.7633},
	},
	{
		Name:   "wellington",
		Center: []float64{-41.2866, 174.7756},
	},
	{
		Name:   "christchurch",
		Center: []float64{-43.5321, 172.6362},
	},
	// Add more cities here as needed
}

// GetCityNames returns a list of supported city names
func GetCityNames() []string {
	names := make([]string, len(SupportedCities))
	for i, city := range SupportedCities {
		names[i] = city.Name
	}
	return names
}

// GetCityByName returns a city configuration by name
func GetCityByName(name string) *City {
	for _, city := range SupportedCities {
		if city.Name == NormalizeCity(name) {
			return &city
		}
	}
	return nil
}

// NormalizeCity lowercases and trims a city name for matching
func NormalizeCity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
