package entity

import (
	"fmt"
	"math"
)

// Location географические координаты в градусах
type Location struct {
	Latitude  float64
	Longitude float64
}

// Validate отсекает нечисловые и выходящие за диапазон координаты
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidInput, l.Latitude)
	}
	if math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidInput, l.Longitude)
	}
	return nil
}
