// Package area describes the projected grid that satellite images cover.
//
// Every parameter is accepted in (y, x) order, the way the images are
// indexed, and kept in (x, y) order internally. A definition may be
// incomplete: it is only usable for pixel conversions once both its
// extent and its shape are known.
package area

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/geo"
	"github.com/rtm0/winds/internal/proj"
	"github.com/rtm0/winds/internal/units"
)

// Params are the user-supplied pieces of an area definition. Quantities
// without units use Units, which defaults to metres. Center defaults to
// degrees.
type Params struct {
	Projection      proj.Params
	AreaExtent      units.Quantity // ll_y, ll_x, ur_y, ur_x
	Shape           []int          // height, width
	Center          units.Quantity // y, x
	PixelSize       units.Quantity // dy[, dx]
	UpperLeftExtent units.Quantity // y, x
	Radius          units.Quantity // dy[, dx]
	Units           string
}

// HasAny reports whether any area argument beyond the shape was given.
func (p Params) HasAny() bool {
	return !p.AreaExtent.IsZero() || !p.Center.IsZero() || !p.PixelSize.IsZero() ||
		!p.UpperLeftExtent.IsZero() || !p.Radius.IsZero()
}

// Definition is a (possibly incomplete) projected grid.
type Definition struct {
	Proj proj.Projection
	// Extent is [ll_x, ll_y, ur_x, ur_y] of the outer pixel edges in
	// metres, nil when unknown.
	Extent []float64
	Height int
	Width  int
	// PixelX and PixelY are zero when unknown.
	PixelX float64
	PixelY float64

	logger *slog.Logger
}

// New resolves p into a definition. Missing information leaves the
// definition incomplete rather than failing; contradictory or malformed
// input fails with EINVALID.
func New(p Params, logger *slog.Logger) (*Definition, error) {
	pr, err := proj.New(p.Projection)
	if err != nil {
		return nil, err
	}
	def := &Definition{Proj: pr, logger: logger}
	if p.Units == "" {
		p.Units = "m"
	}
	if !units.Known(p.Units) {
		return nil, errs.Errorf(errs.EINVALID, "unknown units %q", p.Units)
	}

	if p.Shape != nil {
		if len(p.Shape) != 2 || p.Shape[0] <= 0 || p.Shape[1] <= 0 {
			return nil, errs.Errorf(errs.EINVALID, "shape must be two positive integers (height, width) but was %v", p.Shape)
		}
		def.Height, def.Width = p.Shape[0], p.Shape[1]
	}

	if !p.PixelSize.IsZero() {
		if def.PixelX, def.PixelY, err = length(p.PixelSize.WithDefault(p.Units), "pixel_size"); err != nil {
			return nil, err
		}
	}
	var radius []float64
	if !p.Radius.IsZero() {
		rx, ry, err := length(p.Radius.WithDefault(p.Units), "radius")
		if err != nil {
			return nil, err
		}
		radius = []float64{rx, ry}
	}
	var center, upperLeft []float64
	if !p.Center.IsZero() {
		if center, err = point(pr, p.Center.WithDefault("degrees"), "center"); err != nil {
			return nil, err
		}
	}
	if !p.UpperLeftExtent.IsZero() {
		if upperLeft, err = point(pr, p.UpperLeftExtent.WithDefault(p.Units), "upper_left_extent"); err != nil {
			return nil, err
		}
	}

	switch {
	case !p.AreaExtent.IsZero():
		if def.Extent, err = extent(pr, p.AreaExtent.WithDefault(p.Units)); err != nil {
			return nil, err
		}
	case center != nil && radius != nil:
		def.Extent = []float64{center[0] - radius[0], center[1] - radius[1], center[0] + radius[0], center[1] + radius[1]}
	case center != nil && def.hasShape() && def.hasPixelSize():
		rx, ry := float64(def.Width)*def.PixelX/2, float64(def.Height)*def.PixelY/2
		def.Extent = []float64{center[0] - rx, center[1] - ry, center[0] + rx, center[1] + ry}
	case upperLeft != nil && radius != nil:
		def.Extent = []float64{upperLeft[0], upperLeft[1] - 2*radius[1], upperLeft[0] + 2*radius[0], upperLeft[1]}
	case upperLeft != nil && def.hasShape() && def.hasPixelSize():
		def.Extent = []float64{upperLeft[0], upperLeft[1] - float64(def.Height)*def.PixelY,
			upperLeft[0] + float64(def.Width)*def.PixelX, upperLeft[1]}
	}

	if def.Extent != nil {
		width, height := def.Extent[2]-def.Extent[0], def.Extent[3]-def.Extent[1]
		switch {
		case !def.hasShape() && def.hasPixelSize():
			def.Width = int(math.Round(math.Abs(width / def.PixelX)))
			def.Height = int(math.Round(math.Abs(height / def.PixelY)))
			if def.Width == 0 || def.Height == 0 {
				return nil, errs.Errorf(errs.EINVALID, "pixel size %vx%v is larger than the area", def.PixelY, def.PixelX)
			}
		case def.hasShape() && !def.hasPixelSize():
			def.PixelX = width / float64(def.Width)
			def.PixelY = height / float64(def.Height)
		}
	}
	return def, nil
}

func (d *Definition) hasShape() bool { return d.Height > 0 && d.Width > 0 }

func (d *Definition) hasPixelSize() bool { return d.PixelX != 0 && d.PixelY != 0 }

// Complete reports whether the definition can convert between pixels and
// positions.
func (d *Definition) Complete() bool {
	return d.Extent != nil && d.hasShape()
}

// Shape returns (height, width), or nil when unknown.
func (d *Definition) Shape() []int {
	if !d.hasShape() {
		return nil
	}
	return []int{d.Height, d.Width}
}

// PixelUpperLeft is the projected position of the centre of the upper-left
// pixel.
func (d *Definition) PixelUpperLeft() (x, y float64) {
	return d.Extent[0] + d.PixelX/2, d.Extent[3] - d.PixelY/2
}

// PixelToPos converts fractional pixel coordinates to projected metres.
func (d *Definition) PixelToPos(j, i float64) (x, y float64) {
	ulx, uly := d.PixelUpperLeft()
	return ulx + d.PixelX*i, uly - d.PixelY*j
}

// PosToPixel converts projected metres to fractional pixel coordinates.
func (d *Definition) PosToPixel(x, y float64) (j, i float64) {
	ulx, uly := d.PixelUpperLeft()
	return (uly - y) / d.PixelY, (x - ulx) / d.PixelX
}

// LatLong returns the geographic position of the pixel (j, i).
func (d *Definition) LatLong(j, i float64) (lat, long float64, err error) {
	if !d.Complete() {
		return 0, 0, errs.Errorf(errs.EINVALID, "not enough information provided to create an area for projection")
	}
	return d.Proj.Inverse(d.PixelToPos(j, i))
}

// Pixel returns the fractional pixel that the geographic position falls on.
func (d *Definition) Pixel(lat, long float64) (j, i float64, err error) {
	if !d.Complete() {
		return 0, 0, errs.Errorf(errs.EINVALID, "not enough information provided to create an area for projection")
	}
	x, y, err := d.Proj.Forward(lat, long)
	if err != nil {
		return 0, 0, err
	}
	j, i = d.PosToPixel(x, y)
	return j, i, nil
}

// String describes the definition for debug logs.
func (d *Definition) String() string {
	return fmt.Sprintf("%s extent=%v shape=%v pixel=%vx%v", d.Proj.Params(), d.Extent, d.Shape(), d.PixelY, d.PixelX)
}

// point converts a (y, x) quantity to projected (x, y) metres. Angular
// units are read as (lat, long) and projected.
func point(pr proj.Projection, q units.Quantity, name string) ([]float64, error) {
	if len(q.Values) != 2 {
		return nil, errs.Errorf(errs.EINVALID, "%s needs two values (y, x) but got %d", name, len(q.Values))
	}
	if units.IsAngle(q.Units) {
		lat, err := units.ToDegrees(q.Values[0], q.Units)
		if err != nil {
			return nil, err
		}
		long, err := units.ToDegrees(q.Values[1], q.Units)
		if err != nil {
			return nil, err
		}
		x, y, err := pr.Forward(lat, long)
		if err != nil {
			return nil, err
		}
		return []float64{x, y}, nil
	}
	y, err := units.ToMetres(q.Values[0], q.Units)
	if err != nil {
		return nil, err
	}
	x, err := units.ToMetres(q.Values[1], q.Units)
	if err != nil {
		return nil, err
	}
	return []float64{x, y}, nil
}

// length converts a dy[, dx] quantity to metres. A single value is used in
// both directions.
func length(q units.Quantity, name string) (dx, dy float64, err error) {
	if len(q.Values) != 1 && len(q.Values) != 2 {
		return 0, 0, errs.Errorf(errs.EINVALID, "%s needs one or two values (dy[, dx]) but got %d", name, len(q.Values))
	}
	if units.IsAngle(q.Units) {
		return 0, 0, errs.Errorf(errs.EINVALID, "%s must be a length, not %s", name, q.Units)
	}
	if dy, err = units.ToMetres(q.Values[0], q.Units); err != nil {
		return 0, 0, err
	}
	dx = dy
	if len(q.Values) == 2 {
		if dx, err = units.ToMetres(q.Values[1], q.Units); err != nil {
			return 0, 0, err
		}
	}
	if dx <= 0 || dy <= 0 {
		return 0, 0, errs.Errorf(errs.EINVALID, "%s must be positive but was %v", name, q.Values)
	}
	return dx, dy, nil
}

// extent converts (ll_y, ll_x, ur_y, ur_x) to [ll_x, ll_y, ur_x, ur_y].
func extent(pr proj.Projection, q units.Quantity) ([]float64, error) {
	if len(q.Values) != 4 {
		return nil, errs.Errorf(errs.EINVALID, "area_extent needs four values (ll_y, ll_x, ur_y, ur_x) but got %d", len(q.Values))
	}
	ll, err := point(pr, units.Of(q.Units, q.Values[0], q.Values[1]), "area_extent")
	if err != nil {
		return nil, err
	}
	ur, err := point(pr, units.Of(q.Units, q.Values[2], q.Values[3]), "area_extent")
	if err != nil {
		return nil, err
	}
	return []float64{ll[0], ll[1], ur[0], ur[1]}, nil
}

// Info summarises a definition the way the area command reports it.
type Info struct {
	Projection        string
	LatTS             float64
	Lat0              float64
	Long0             float64
	EquatorialRadius  float64
	Eccentricity      float64
	InverseFlattening float64
	Shape             []int
	// AreaExtent is [ll_lat, ll_long, ur_lat, ur_long] in degrees.
	AreaExtent []float64
	// PixelSize is [dy, dx] in metres.
	PixelSize []float64
	// Center is [lat, long] in degrees.
	Center []float64
}

// Info converts the definition to geographic terms. A lower-left corner
// that ends up above or to the right of the upper-right one is logged.
func (d *Definition) Info() (Info, error) {
	p := d.Proj.Params()
	info := Info{
		Projection:        p.Name,
		LatTS:             p.LatTS,
		Lat0:              p.Lat0,
		Long0:             p.Long0,
		EquatorialRadius:  p.Ellipsoid.A,
		Eccentricity:      p.Ellipsoid.E(),
		InverseFlattening: p.Ellipsoid.InverseFlattening(),
		Shape:             d.Shape(),
	}
	if d.hasPixelSize() {
		info.PixelSize = []float64{d.PixelY, d.PixelX}
	}
	if d.Extent == nil {
		return info, nil
	}

	cx, cy := (d.Extent[0]+d.Extent[2])/2, (d.Extent[1]+d.Extent[3])/2
	lat, long, err := d.Proj.Inverse(cx, cy)
	if err != nil {
		return Info{}, err
	}
	info.Center = []float64{lat, long}

	llLat, llLong, err := d.Proj.Inverse(d.Extent[0], d.Extent[1])
	if err != nil {
		return Info{}, err
	}
	urLat, urLong, err := d.Proj.Inverse(d.Extent[2], d.Extent[3])
	if err != nil {
		return Info{}, err
	}
	info.AreaExtent = []float64{llLat, llLong, urLat, urLong}
	if urLat-llLat < 0 || urLong-llLong < 0 {
		d.logger.Warn("Invalid area_extent: lower left corner is above or to the right of the upper right corner",
			"area_extent", info.AreaExtent)
	}
	return info, nil
}

// Fields returns the info as ordered key/value pairs, keys named the way
// the area command prints them.
func (in Info) Fields() []Field {
	return []Field{
		{"projection", in.Projection},
		{"lat-ts", in.LatTS},
		{"lat-0", in.Lat0},
		{"long-0", in.Long0},
		{"equatorial-radius", in.EquatorialRadius},
		{"eccentricity", in.Eccentricity},
		{"inverse-flattening", in.InverseFlattening},
		{"shape", in.Shape},
		{"area-extent", in.AreaExtent},
		{"pixel-size", in.PixelSize},
		{"center", in.Center},
	}
}

// Field is a named value.
type Field struct {
	Key   string
	Value any
}

// GridMapping returns CF polar_stereographic grid-mapping attributes for
// the definition, in the order they are written.
func (d *Definition) GridMapping() ([]Field, error) {
	p := d.Proj.Params()
	up, err := upLongitude(d.Proj)
	if err != nil {
		return nil, err
	}
	e := p.Ellipsoid.E()
	return []Field{
		{"straight_vertical_longitude_from_pole", up},
		{"latitude_of_projection_origin", p.Lat0},
		{"scale_factor_at_projection_origin", scaleFactor(p.LatTS, e)},
		{"standard_parallel", p.LatTS},
		{"resolution_at_standard_parallel", d.PixelY},
		{"false_easting", 0.0},
		{"false_northing", 0.0},
		{"semi_major_axis", p.Ellipsoid.A},
		{"semi_minor_axis", p.Ellipsoid.B()},
		{"inverse_flattening", p.Ellipsoid.InverseFlattening()},
	}, nil
}

// upLongitude is the longitude pointing straight up from the pole.
func upLongitude(pr proj.Projection) (float64, error) {
	_, long, err := pr.Inverse(0, 100)
	if err != nil {
		return 0, err
	}
	if long == 180 {
		long = -180
	}
	return long, nil
}

// scaleFactor is the polar stereographic k0 for a latitude of true scale,
// from NGA's "Polar Stereographic phi1 from k0" memo.
func scaleFactor(latTS, e float64) float64 {
	sin := geo.Sin(latTS)
	k90 := math.Sqrt(math.Pow(1+e, 1+e) * math.Pow(1-e, 1-e))
	return (1 + sin) / 2 * k90 / math.Sqrt(math.Pow(1+e*sin, 1+e)*math.Pow(1-e*sin, 1-e))
}
