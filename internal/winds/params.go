// Package winds computes wind vectors from the pixel displacements of two
// satellite images of the same projected area.
//
// Each pixel is located twice: where the feature is in the later image
// ("new") and where it came from in the earlier one ("old"). The rhumb
// line between the two gives the wind's speed and direction.
package winds

import (
	"strings"

	"github.com/rtm0/winds/internal/area"
	"github.com/rtm0/winds/internal/flow"
	"github.com/rtm0/winds/internal/geo"
	"github.com/rtm0/winds/internal/proj"
	"github.com/rtm0/winds/internal/units"
)

// DefaultLatTS is the latitude of true scale used for stereographic areas
// when none is given. Cylindrical projections default to the equator.
const DefaultLatTS = 90.0

// Params describe the area, the displacements and the pixel to work on.
// Area quantities are given in (y, x) order.
type Params struct {
	LatTS *float64
	Lat0  *float64
	Long0 *float64
	// DeltaTime is the time between the two images in minutes.
	DeltaTime float64

	// Displacements is a file path or an inline list. Field, when set,
	// is used instead.
	Displacements string
	Field         *flow.Field

	// J and I select a single pixel. Both or neither must be set.
	J *int
	I *int

	Projection          string
	AreaExtent          units.Quantity
	Shape               []int
	Center              units.Quantity
	PixelSize           units.Quantity
	UpperLeftExtent     units.Quantity
	Radius              units.Quantity
	Units               string
	ProjectionEllipsoid geo.Ellipsoid
	EarthEllipsoid      geo.Ellipsoid
}

// hasDisplacements reports whether a displacement source was given.
func (p Params) hasDisplacements() bool {
	return p.Field != nil || p.Displacements != ""
}

// hasAreaArgs reports whether anything beyond the shape describes an area.
func (p Params) hasAreaArgs() bool {
	return p.LatTS != nil || p.Lat0 != nil || p.Long0 != nil || p.Projection != "" || p.Units != "" ||
		p.ProjectionEllipsoid.A != 0 || !p.AreaExtent.IsZero() || !p.Center.IsZero() ||
		!p.PixelSize.IsZero() || !p.UpperLeftExtent.IsZero() || !p.Radius.IsZero()
}

func (p Params) areaParams(shape []int, center units.Quantity) area.Params {
	latTS := DefaultLatTS
	switch {
	case p.LatTS != nil:
		latTS = *p.LatTS
	case !isStereographic(p.Projection):
		latTS = 0
	}
	return area.Params{
		Projection: proj.Params{
			Name:      p.Projection,
			LatTS:     latTS,
			Lat0:      deref(p.Lat0),
			Long0:     deref(p.Long0),
			Ellipsoid: p.ProjectionEllipsoid,
		},
		AreaExtent:      p.AreaExtent,
		Shape:           shape,
		Center:          center,
		PixelSize:       p.PixelSize,
		UpperLeftExtent: p.UpperLeftExtent,
		Radius:          p.Radius,
		Units:           p.Units,
	}
}

func isStereographic(name string) bool {
	name = strings.ToLower(name)
	return name == "" || name == "stere"
}

func (p Params) earth() geo.Ellipsoid {
	if p.EarthEllipsoid.A == 0 {
		return geo.WGS84
	}
	return p.EarthEllipsoid
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
