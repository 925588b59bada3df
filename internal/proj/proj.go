// Package proj implements the map projections satellite imagery is
// delivered in. Coordinates in projection space are metres; geographic
// coordinates are degrees.
package proj

import (
	"fmt"
	"math"
	"strings"

	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/geo"
)

const (
	halfPi = math.Pi / 2
	eps10  = 1e-10
	conv   = 1e-10
	nIter  = 15
)

// Projection converts between geographic and projected coordinates.
type Projection interface {
	Forward(lat, long float64) (x, y float64, err error)
	Inverse(x, y float64) (lat, long float64, err error)
	// Params returns the PROJ-style parameters describing the projection.
	Params() Params
}

// Params are the parameters of a projection in PROJ terms.
type Params struct {
	Name      string
	LatTS     float64
	Lat0      float64
	Long0     float64
	K0        float64
	Ellipsoid geo.Ellipsoid
}

// String renders the parameters like a proj4 string.
func (p Params) String() string {
	return fmt.Sprintf("+proj=%s +lat_ts=%v +lat_0=%v +lon_0=%v +k_0=%v +a=%v +f=%v",
		p.Name, p.LatTS, p.Lat0, p.Long0, p.K0, p.Ellipsoid.A, p.Ellipsoid.F)
}

// Names lists the supported projection names.
var Names = []string{"stere", "merc", "eqc"}

// New returns the projection named by p.Name. An empty name means "stere".
func New(p Params) (Projection, error) {
	if p.K0 == 0 {
		p.K0 = 1
	}
	if p.Ellipsoid.A == 0 {
		p.Ellipsoid = geo.WGS84
	}
	switch strings.ToLower(p.Name) {
	case "", "stere":
		p.Name = "stere"
		return newStereographic(p), nil
	case "merc":
		p.Name = "merc"
		return newMercator(p)
	case "eqc":
		p.Name = "eqc"
		return newEquidistantCylindrical(p)
	}
	return nil, errs.Errorf(errs.EINVALID, "unsupported projection %q (supported: %s)", p.Name, strings.Join(Names, ", "))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// adjlon wraps a longitude in radians into [-pi, pi].
func adjlon(lam float64) float64 {
	if math.Abs(lam) <= math.Pi {
		return lam
	}
	lam = math.Mod(lam+math.Pi, 2*math.Pi)
	if lam < 0 {
		lam += 2 * math.Pi
	}
	return lam - math.Pi
}

// tsfn is Snyder's t function (eq. 7-10).
func tsfn(phi, sinphi, e float64) float64 {
	sinphi *= e
	return math.Tan(.5*(halfPi-phi)) / math.Pow((1-sinphi)/(1+sinphi), .5*e)
}

// ssfn is the conformal latitude helper used by the oblique stereographic.
func ssfn(phi, sinphi, e float64) float64 {
	sinphi *= e
	return math.Tan(.5*(halfPi+phi)) * math.Pow((1-sinphi)/(1+sinphi), .5*e)
}

// phi2 inverts tsfn.
func phi2(ts, e float64) (float64, error) {
	eccnth := .5 * e
	phi := halfPi - 2*math.Atan(ts)
	for i := 0; i < nIter; i++ {
		con := e * math.Sin(phi)
		dphi := halfPi - 2*math.Atan(ts*math.Pow((1-con)/(1+con), eccnth)) - phi
		phi += dphi
		if math.Abs(dphi) <= conv {
			return phi, nil
		}
	}
	return 0, errs.Errorf(errs.EINVALID, "latitude did not converge")
}
