package proj

import (
	"math"

	"github.com/rtm0/winds/internal/errs"
)

// mercator is the ellipsoidal Mercator projection with latitude of true
// scale lat_ts.
type mercator struct {
	params Params
	e      float64
	k0     float64
}

func newMercator(p Params) (*mercator, error) {
	if err := checkCylindricalLatTS(p.LatTS); err != nil {
		return nil, err
	}
	m := &mercator{params: p, e: p.Ellipsoid.E(), k0: p.K0}
	if p.LatTS != 0 {
		phits := math.Abs(radians(p.LatTS))
		sin := math.Sin(phits)
		m.k0 = math.Cos(phits) / math.Sqrt(1-p.Ellipsoid.Es()*sin*sin)
	}
	return m, nil
}

// checkCylindricalLatTS rejects a latitude of true scale at or beyond a
// pole, where the scale factor collapses to zero.
func checkCylindricalLatTS(latTS float64) error {
	if math.Abs(latTS) >= 90 {
		return errs.Errorf(errs.EINVALID, "lat_ts must be between -90 and 90 for cylindrical projections but was %v", latTS)
	}
	return nil
}

func (m *mercator) Params() Params { return m.params }

func (m *mercator) Forward(lat, long float64) (float64, float64, error) {
	if math.Abs(math.Abs(lat)-90) <= eps10 {
		return 0, 0, errs.Errorf(errs.EINVALID, "latitude %v has no Mercator projection", lat)
	}
	phi := radians(lat)
	lam := adjlon(radians(long - m.params.Long0))
	a := m.params.Ellipsoid.A
	x := a * m.k0 * lam
	y := -a * m.k0 * math.Log(tsfn(phi, math.Sin(phi), m.e))
	return x, y, nil
}

func (m *mercator) Inverse(x, y float64) (float64, float64, error) {
	a := m.params.Ellipsoid.A
	phi, err := phi2(math.Exp(-y/(a*m.k0)), m.e)
	if err != nil {
		return 0, 0, err
	}
	lam := x / (a * m.k0)
	return degrees(phi), degrees(adjlon(lam + radians(m.params.Long0))), nil
}

// equidistantCylindrical is the plate carrée generalised to any latitude of
// true scale. Distances are computed on a sphere of radius a.
type equidistantCylindrical struct {
	params Params
	rc     float64
}

func newEquidistantCylindrical(p Params) (*equidistantCylindrical, error) {
	if err := checkCylindricalLatTS(p.LatTS); err != nil {
		return nil, err
	}
	return &equidistantCylindrical{params: p, rc: math.Cos(radians(p.LatTS))}, nil
}

func (q *equidistantCylindrical) Params() Params { return q.params }

func (q *equidistantCylindrical) Forward(lat, long float64) (float64, float64, error) {
	if math.Abs(lat) > 90 {
		return 0, 0, errs.Errorf(errs.EINVALID, "latitude %v out of range", lat)
	}
	a := q.params.Ellipsoid.A
	lam := adjlon(radians(long - q.params.Long0))
	return a * q.rc * lam, a * radians(lat-q.params.Lat0), nil
}

func (q *equidistantCylindrical) Inverse(x, y float64) (float64, float64, error) {
	a := q.params.Ellipsoid.A
	lat := degrees(y/a) + q.params.Lat0
	if math.Abs(lat) > 90 {
		return 0, 0, errs.Errorf(errs.EINVALID, "y of %v is outside the projection", y)
	}
	lam := x / (a * q.rc)
	return lat, degrees(adjlon(lam + radians(q.params.Long0))), nil
}
