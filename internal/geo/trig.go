// Package geo holds the Earth model used by winds: degree trigonometry,
// reference ellipsoids, rhumb lines (loxodromes) and geodesics.
package geo

import "math"

// Sin is the sine of an angle in degrees.
func Sin(angle float64) float64 { return math.Sin(radians(angle)) }

// Cos is the cosine of an angle in degrees.
func Cos(angle float64) float64 { return math.Cos(radians(angle)) }

// Tan is the tangent of an angle in degrees.
func Tan(angle float64) float64 { return math.Tan(radians(angle)) }

// Arctanh is the inverse hyperbolic tangent expressed in degrees.
func Arctanh(x float64) float64 { return degrees(math.Atanh(x)) }

// Arctan2 is atan2(y, x) expressed in degrees.
func Arctan2(y, x float64) float64 { return degrees(math.Atan2(y, x)) }

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Mod is the floored modulus: the result has the sign of m.
func Mod(x, m float64) float64 {
	return x - m*math.Floor(x/m)
}

// DeltaLongitude returns newLong-oldLong wrapped into [-180, 180].
func DeltaLongitude(newLong, oldLong float64) float64 {
	d := newLong - oldLong
	if d >= 360 {
		d = Mod(d, 360)
	}
	if d <= -360 {
		d = Mod(d, -360)
	}
	if d >= 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
