package geo

import (
	"math"
	"testing"
)

func TestHaversineKm_ZeroDistance(t *testing.T) {
	if d := HaversineKm(-1.2864, 36.8172, -1.2864, 36.8172); d != 0 {
		t.Fatalf("distance to self must be 0, got %f", d)
	}
}

func TestHaversineKm_KnownPair(t *testing.T) {
	// Nairobi CBD to Westlands is roughly 2.2 km.
	d := HaversineKm(-1.2864, 36.8172, -1.2672, 36.8110)
	if d < 2.0 || d > 2.5 {
		t.Fatalf("unexpected distance: %f km", d)
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := HaversineKm(-1.2864, 36.8172, -1.30, 36.85)
	b := HaversineKm(-1.30, 36.85, -1.2864, 36.8172)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance must be symmetric: %f vs %f", a, b)
	}
}

func TestBoundsForRadius_ContainsCircle(t *testing.T) {
	lat, lng := -1.2864, 36.8172
	b := BoundsForRadius(lat, lng, 5)

	if !b.Contains(lat, lng) {
		t.Fatal("bounds must contain the center")
	}

	// Points 4.9 km due north/east must still be inside the box.
	north := lat + 4.9/111.0
	if !b.Contains(north, lng) {
		t.Fatal("bounds must contain a point just inside the radius to the north")
	}
	east := lng + 4.9/(111.0*math.Cos(lat*math.Pi/180))
	if !b.Contains(lat, east) {
		t.Fatal("bounds must contain a point just inside the radius to the east")
	}

	// A point 20 km away must be outside.
	if b.Contains(lat+20.0/111.0, lng) {
		t.Fatal("bounds must not contain a point far outside the radius")
	}
}

func TestCell_StableBuckets(t *testing.T) {
	// Two points inside the same 0.02 degree bucket share a key.
	if Cell(-1.2864, 36.8172) != Cell(-1.2865, 36.8173) {
		t.Fatal("neighboring points in one bucket must share a cell key")
	}
	// Points a full cell apart must not.
	if Cell(-1.2864, 36.8172) == Cell(-1.2864+CellSizeDeg*2, 36.8172) {
		t.Fatal("points two cells apart must not share a cell key")
	}
}

func TestCellsForBounds_CoversCenter(t *testing.T) {
	b := BoundsForRadius(-1.2864, 36.8172, 3)
	cells := CellsForBounds(b)
	if len(cells) == 0 {
		t.Fatal("covering set must not be empty")
	}

	center := Cell(-1.2864, 36.8172)
	found := false
	for _, c := range cells {
		if c == center {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("covering set %v must include the center cell %s", cells, center)
	}
}
