// Package astro provides celestial coordinates, sky-map projection and a
// small bright-star catalog for the terminal sky view.
package astro

import (
	"fmt"
	"math"
)

// Point is a position on the celestial sphere in degrees.
// Lon is right ascension (0-360), Lat is declination (-90 to +90).
type Point struct {
	Lon float64
	Lat float64
}

// String formats the point as "RA 123.45° Dec -12.34°".
func (p Point) String() string {
	return fmt.Sprintf("RA %.2f° Dec %+.2f°", p.Lon, p.Lat)
}

// Normalized returns the point with Lon wrapped to [0,360) and Lat clamped.
func (p Point) Normalized() Point {
	return Point{Lon: NormalizeLon(p.Lon), Lat: clampLat(p.Lat)}
}

// NormalizeLon wraps a longitude to [0,360).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

// WrapDelta wraps an angular difference to (-180,180].
func WrapDelta(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d <= -180 {
		d += 360
	}
	return d
}

// AngularSeparation returns the great-circle distance in degrees between
// two points, using the haversine formula for small-angle stability.
func AngularSeparation(a, b Point) float64 {
	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLat := lat2 - lat1
	dLon := degToRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return radToDeg(2 * math.Asin(math.Sqrt(h)))
}

func clampLat(lat float64) float64 {
	if lat > 90 {
		return 90
	}
	if lat < -90 {
		return -90
	}
	return lat
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// radToDeg converts radians to degrees.
func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
