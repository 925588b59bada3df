package geo

import "math"

// isometric returns the isometric latitude of lat, in degrees.
// atanh(sin x) == asinh(tan x) for -90 <= x <= 90.
func (e Ellipsoid) isometric(lat float64) float64 {
	ecc := e.E()
	return Arctanh(Sin(lat)) - ecc*Arctanh(ecc*Sin(lat))
}

// parallelRadius is the radius of the circle of latitude lat.
func (e Ellipsoid) parallelRadius(lat float64) float64 {
	return e.A / math.Sqrt(1-e.Es()*math.Pow(Sin(lat), 2)) * Cos(lat)
}

// meridianDistance is the length of the meridian arc between two
// latitudes.
func (e Ellipsoid) meridianDistance(oldLat, newLat float64) float64 {
	var s12 float64
	e.geodesic().Inverse(oldLat, 0, newLat, 0, &s12, nil, nil)
	return s12
}

// LoxodromeInverse computes the rhumb-line distance in metres, the forward
// bearing and the back bearing (degrees clockwise from north) from the old
// position to the new one.
func (e Ellipsoid) LoxodromeInverse(oldLat, oldLong, newLat, newLong float64) (distance, forward, back float64) {
	deltaLong := DeltaLongitude(newLong, oldLong)
	forward = Arctan2(deltaLong, e.isometric(newLat)-e.isometric(oldLat))
	// Staying at a pole.
	if math.IsNaN(forward) {
		forward = newLat + 90
	}

	distance = math.Abs(e.meridianDistance(oldLat, newLat) / Cos(forward))
	// Along a parallel the meridian arc vanishes; poles excluded to avoid
	// rounding error.
	if newLat == oldLat && math.Abs(newLat) != 90 {
		distance = e.parallelRadius(newLat) * radians(math.Abs(deltaLong))
	}
	return distance, Mod(forward, 360), Mod(forward-180, 360)
}

// LoxodromeDirect computes the position reached by following a rhumb line
// of the given forward bearing for distance metres, and the back bearing.
func (e Ellipsoid) LoxodromeDirect(oldLat, oldLong, distance, forward float64) (newLat, newLong, back float64) {
	e.geodesic().Direct(oldLat, 0, 0, Cos(forward)*distance, &newLat, nil, nil)

	newLong = Tan(forward)*(e.isometric(newLat)-e.isometric(oldLat)) + oldLong
	newLong = DeltaLongitude(newLong, 0)

	// Due east or west the bearing's tangent diverges: walk the parallel.
	if !((newLong != oldLong || Mod(forward, 180) == 0) && Mod(forward, 180) != 90) {
		arc := degrees(distance / e.parallelRadius(oldLat))
		newLong = DeltaLongitude(-sign(Mod(forward, 360)-180)*arc+oldLong, 0)
	}
	return newLat, newLong, Mod(forward-180, 360)
}

// GeodesicInverse computes the shortest distance in metres, the initial
// bearing and the back bearing between two positions.
func (e Ellipsoid) GeodesicInverse(oldLat, oldLong, newLat, newLong float64) (distance, initial, back float64) {
	var azi1, azi2 float64
	e.geodesic().Inverse(oldLat, oldLong, newLat, newLong, &distance, &azi1, &azi2)
	return distance, Mod(azi1, 360), Mod(azi2-180, 360)
}

// GeodesicDirect computes the position reached by following the geodesic
// with the given initial bearing for distance metres, and the back bearing.
func (e Ellipsoid) GeodesicDirect(oldLat, oldLong, distance, initial float64) (newLat, newLong, back float64) {
	var azi2 float64
	e.geodesic().Direct(oldLat, oldLong, initial, distance, &newLat, &newLong, &azi2)
	return newLat, newLong, Mod(azi2-180, 360)
}
