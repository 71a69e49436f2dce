// Package geo provides the pure spatial helpers used by the dispatch
// engine: great-circle distance, bounding boxes, and the coarse grid
// cells backing the store's driver index. The grid is intentionally a
// fixed-size bucket approximation, not a spatial index.
package geo

import (
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0

	// CellSizeDeg is the side of one grid cell in degrees. ~2.2 km of
	// latitude per cell keeps nearby-driver scans to a handful of buckets
	// at city-scale dispatch radii.
	CellSizeDeg = 0.02
)

// Bounds is a latitude/longitude axis-aligned bounding box.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundsForRadius returns the bounding box covering a circle of the
// given radius around a point. Longitude span widens with latitude; at
// the poles the box degenerates to the full longitude range.
func BoundsForRadius(lat, lng, radiusKm float64) Bounds {
	latDelta := radiusKm / 111.0 // ~111 km per degree of latitude

	lngScale := math.Cos(lat * math.Pi / 180)
	lngDelta := 180.0
	if lngScale > 1e-6 {
		lngDelta = radiusKm / (111.0 * lngScale)
	}

	return Bounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}

// Contains reports whether the point falls inside the box.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Cell returns the grid-cell key for a point.
func Cell(lat, lng float64) string {
	return fmt.Sprintf("%d:%d", cellIndex(lat), cellIndex(lng))
}

// CellsForBounds enumerates every cell key overlapping the box.
func CellsForBounds(b Bounds) []string {
	minLat, maxLat := cellIndex(b.MinLat), cellIndex(b.MaxLat)
	minLng, maxLng := cellIndex(b.MinLng), cellIndex(b.MaxLng)

	cells := make([]string, 0, (maxLat-minLat+1)*(maxLng-minLng+1))
	for la := minLat; la <= maxLat; la++ {
		for ln := minLng; ln <= maxLng; ln++ {
			cells = append(cells, fmt.Sprintf("%d:%d", la, ln))
		}
	}
	return cells
}

func cellIndex(deg float64) int {
	return int(math.Floor(deg / CellSizeDeg))
}
