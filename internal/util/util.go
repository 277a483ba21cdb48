// Package util provides small formatting helpers shared by the dashboard views.
package util

import (
	"fmt"
	"math"
)

// ShortID returns the last n characters of an id, or the whole id when it
// is shorter.
func ShortID(id string, n int) string {
	r := []rune(id)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return id
	}
	return string(r[len(r)-n:])
}

// FormatSpeed renders a speed in m/s as whole km/h. Missing or
// non-positive speeds render as "0 km/h".
func FormatSpeed(speed *float64) string {
	if speed == nil || *speed <= 0 {
		return "0 km/h"
	}
	return fmt.Sprintf("%d km/h", int(math.Round(*speed*3.6)))
}

// FormatCoords renders a position with the given number of decimals.
func FormatCoords(lat, lon float64, decimals int) string {
	return fmt.Sprintf("%.*f, %.*f", decimals, lat, decimals, lon)
}
