package chat

import "math"

// Coordinate is a validated geographic position. Construct it through
// NewCoordinate; the zero value is not meaningful.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// NewCoordinate validates the latitude/longitude ranges and rejects NaN and
// infinite values. Validation happens before any geocode lookup is attempted.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return Coordinate{}, ErrInvalidCoordinate
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinate{}, ErrInvalidCoordinate
	}
	return Coordinate{Latitude: lat, Longitude: lon}, nil
}
