package proj

import (
	"math"

	"github.com/rtm0/winds/internal/errs"
)

type stereMode int

const (
	northPole stereMode = iota
	southPole
	oblique
)

// stereographic is the ellipsoidal stereographic projection. With lat_0 at
// a pole it is the polar stereographic with latitude of true scale lat_ts.
type stereographic struct {
	params Params
	mode   stereMode
	e      float64
	akm1   float64
	sinX1  float64
	cosX1  float64
}

func newStereographic(p Params) *stereographic {
	s := &stereographic{params: p, e: p.Ellipsoid.E()}
	phi0 := radians(p.Lat0)

	switch {
	case math.Abs(math.Abs(phi0)-halfPi) < eps10 && phi0 < 0:
		s.mode = southPole
	case math.Abs(math.Abs(phi0)-halfPi) < eps10:
		s.mode = northPole
	default:
		s.mode = oblique
	}

	phits := math.Abs(radians(p.LatTS))
	e := s.e
	switch s.mode {
	case northPole, southPole:
		if math.Abs(phits-halfPi) < eps10 {
			s.akm1 = 2 * p.K0 / math.Sqrt(math.Pow(1+e, 1+e)*math.Pow(1-e, 1-e))
		} else {
			t := math.Sin(phits)
			s.akm1 = math.Cos(phits) / tsfn(phits, t, e)
			t *= e
			s.akm1 /= math.Sqrt(1 - t*t)
		}
	case oblique:
		// Also covers the equatorial aspect, where X1 is zero.
		t := math.Sin(phi0)
		x := 2*math.Atan(ssfn(phi0, t, e)) - halfPi
		t *= e
		s.akm1 = 2 * p.K0 * math.Cos(phi0) / math.Sqrt(1-t*t)
		s.sinX1 = math.Sin(x)
		s.cosX1 = math.Cos(x)
	}
	return s
}

func (s *stereographic) Params() Params { return s.params }

func (s *stereographic) Forward(lat, long float64) (float64, float64, error) {
	if math.Abs(lat) > 90 {
		return 0, 0, errs.Errorf(errs.EINVALID, "latitude %v out of range", lat)
	}
	phi := radians(lat)
	lam := adjlon(radians(long - s.params.Long0))
	coslam, sinlam, sinphi := math.Cos(lam), math.Sin(lam), math.Sin(phi)

	var x, y float64
	switch s.mode {
	case oblique:
		bigX := 2*math.Atan(ssfn(phi, sinphi, s.e)) - halfPi
		sinX, cosX := math.Sin(bigX), math.Cos(bigX)
		denom := s.cosX1 * (1 + s.sinX1*sinX + s.cosX1*cosX*coslam)
		if denom == 0 {
			return 0, 0, errs.Errorf(errs.EINVALID, "point (%v, %v) projects to infinity", lat, long)
		}
		a := s.akm1 / denom
		y = a * (s.cosX1*sinX - s.sinX1*cosX*coslam)
		x = a * cosX
	case southPole, northPole:
		if s.mode == southPole {
			phi, coslam, sinphi = -phi, -coslam, -sinphi
		}
		if math.Abs(phi-halfPi) >= 1e-15 {
			x = s.akm1 * tsfn(phi, sinphi, s.e)
		}
		y = -x * coslam
	}
	x *= sinlam

	a := s.params.Ellipsoid.A
	return a * x, a * y, nil
}

func (s *stereographic) Inverse(x, y float64) (float64, float64, error) {
	a := s.params.Ellipsoid.A
	x, y = x/a, y/a
	rho := math.Hypot(x, y)

	var tp, phiL, halfpi, halfe float64
	switch s.mode {
	case oblique:
		tp = 2 * math.Atan2(rho*s.cosX1, s.akm1)
		cosphi, sinphi := math.Cos(tp), math.Sin(tp)
		if rho == 0 {
			phiL = math.Asin(cosphi * s.sinX1)
		} else {
			phiL = math.Asin(cosphi*s.sinX1 + (y * sinphi * s.cosX1 / rho))
		}
		tp = math.Tan(.5 * (halfPi + phiL))
		x *= sinphi
		y = rho*s.cosX1*cosphi - y*s.sinX1*sinphi
		halfpi = halfPi
		halfe = .5 * s.e
	case northPole, southPole:
		if s.mode == northPole {
			y = -y
		}
		tp = -rho / s.akm1
		phiL = halfPi - 2*math.Atan(tp)
		halfpi = -halfPi
		halfe = -.5 * s.e
	}

	for i := 0; i < nIter; i++ {
		sinphi := s.e * math.Sin(phiL)
		phi := 2*math.Atan(tp*math.Pow((1+sinphi)/(1-sinphi), halfe)) - halfpi
		if math.Abs(phiL-phi) < conv {
			if s.mode == southPole {
				phi = -phi
			}
			lam := 0.0
			if x != 0 || y != 0 {
				lam = math.Atan2(x, y)
			}
			return degrees(phi), degrees(adjlon(lam + radians(s.params.Long0))), nil
		}
		phiL = phi
	}
	return 0, 0, errs.Errorf(errs.EINVALID, "inverse projection of (%v, %v) did not converge", x*a, y*a)
}
