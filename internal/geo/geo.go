package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Location is a geographic point with an optional human-readable address.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Address   string  `json:"address,omitempty"`
}

// Validate checks coordinate ranges.
func (l Location) Validate() error {
	if l.Longitude < -180 || l.Longitude > 180 {
		return errors.New("geo: longitude out of range")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return errors.New("geo: latitude out of range")
	}
	return nil
}

// DistanceKm returns the Haversine great-circle distance in kilometers.
func DistanceKm(a, b Location) float64 {
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
