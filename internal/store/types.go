package store

// Bounds is a geographic rectangle in degrees. When West > East the box
// crosses the antimeridian and covers [West,180] and [-180,East].
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// CrossesAntimeridian reports whether the longitude range wraps around.
func (b Bounds) CrossesAntimeridian() bool {
	return b.West > b.East
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lat, lng float64) bool {
	if lat < b.South || lat > b.North {
		return false
	}
	if b.CrossesAntimeridian() {
		return lng >= b.West || lng <= b.East
	}
	return lng >= b.West && lng <= b.East
}
