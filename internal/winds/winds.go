package winds

import (
	"log/slog"
	"time"

	"github.com/rtm0/winds/internal/area"
	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/geo"
	"github.com/rtm0/winds/internal/store"
)

// Calculator runs the wind computations.
type Calculator struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewCalculator creates a new calculator that logs to logger.
func NewCalculator(logger *slog.Logger) *Calculator {
	return &Calculator{logger: logger, now: time.Now}
}

// Pair holds two variables for every pixel of a scene in row-major order.
// Shape is nil when a single pixel was selected.
type Pair struct {
	Shape  []int
	Values [2][]float64
}

// Record describes the wind at one pixel. Latitude and Longitude are the
// pixel's ("new") position; Angle is the bearing the wind blows towards in
// degrees clockwise from north; Speed, V (northward) and U (eastward) are
// in m/s.
type Record struct {
	Latitude  float64
	Longitude float64
	Speed     float64
	Angle     float64
	V         float64
	U         float64
}

// Row returns the record as [lat, long, speed, angle, v, u].
func (r Record) Row() []float64 {
	return []float64{r.Latitude, r.Longitude, r.Speed, r.Angle, r.V, r.U}
}

// positions holds the geographic positions of every selected pixel.
type positions struct {
	newLat, newLong []float64
	oldLat, oldLong []float64
}

// velocities adds the rhumb-line motion between positions.
type velocities struct {
	positions
	speed, angle []float64
	v, u         []float64
}

// Area returns the area the arguments and displacement data describe.
func (c *Calculator) Area(p Params) (area.Info, error) {
	if err := requireOrigin(p); err != nil {
		return area.Info{}, err
	}
	s, err := c.discover(p, nil)
	if err != nil {
		return area.Info{}, err
	}
	return s.def.Info()
}

// Displacements returns the j and i displacements.
func (c *Calculator) Displacements(p Params) (Pair, error) {
	if !p.hasDisplacements() {
		return Pair{}, errs.Errorf(errs.EINVALID, "displacement_data is required to find displacements but was not provided or found")
	}
	s, err := c.discover(p, nil)
	if err != nil {
		return Pair{}, err
	}
	px := s.pixels()
	out := Pair{Shape: s.outShape(), Values: [2][]float64{make([]float64, len(px)), make([]float64, len(px))}}
	for k, ji := range px {
		out.Values[0][k], out.Values[1][k] = s.displacement(ji[0], ji[1])
	}
	return out, nil
}

// LatLong returns the latitude and longitude each pixel's feature started
// from. Without displacements these are the pixels' own positions.
func (c *Calculator) LatLong(p Params) (Pair, error) {
	s, pos, err := c.latLong(p, nil)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Shape: s.outShape(), Values: [2][]float64{pos.oldLat, pos.oldLong}}, nil
}

// Velocity returns the speed and angle of the wind at each pixel.
func (c *Calculator) Velocity(p Params) (Pair, error) {
	s, vel, err := c.velocity(p, nil)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Shape: s.outShape(), Values: [2][]float64{vel.speed, vel.angle}}, nil
}

// VU returns the northward and eastward components of the wind at each
// pixel.
func (c *Calculator) VU(p Params) (Pair, error) {
	s, vel, err := c.vu(p, nil)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Shape: s.outShape(), Values: [2][]float64{vel.v, vel.u}}, nil
}

// PositionToPixel returns the fractional pixel (j, i) that the position
// falls on.
func (c *Calculator) PositionToPixel(p Params, lat, long float64) (j, i float64, err error) {
	if err := requireOrigin(p); err != nil {
		return 0, 0, err
	}
	s, err := c.discover(p, nil)
	if err != nil {
		return 0, 0, err
	}
	if err := requireArea(s); err != nil {
		return 0, 0, err
	}
	return s.def.Pixel(lat, long)
}

func (c *Calculator) latLong(p Params, ds *store.Dataset) (*scene, positions, error) {
	if err := requireOrigin(p); err != nil {
		return nil, positions{}, err
	}
	s, err := c.discover(p, ds)
	if err != nil {
		return nil, positions{}, err
	}
	if err := requireArea(s); err != nil {
		return nil, positions{}, err
	}
	c.logger.Debug("All area data found")
	c.logger.Debug("Finding latitudes and longitudes")

	px := s.pixels()
	pos := positions{
		newLat:  make([]float64, len(px)),
		newLong: make([]float64, len(px)),
		oldLat:  make([]float64, len(px)),
		oldLong: make([]float64, len(px)),
	}
	for k, ji := range px {
		j, i := float64(ji[0]), float64(ji[1])
		if pos.newLat[k], pos.newLong[k], err = s.def.LatLong(j, i); err != nil {
			return nil, positions{}, err
		}
		dj, di := s.displacement(ji[0], ji[1])
		if dj == 0 && di == 0 {
			pos.oldLat[k], pos.oldLong[k] = pos.newLat[k], pos.newLong[k]
			continue
		}
		if pos.oldLat[k], pos.oldLong[k], err = s.def.LatLong(j-dj, i-di); err != nil {
			return nil, positions{}, err
		}
	}

	if ds != nil {
		if err := savePositions(ds, s, pos); err != nil {
			return nil, positions{}, err
		}
	}
	return s, pos, nil
}

func (c *Calculator) velocity(p Params, ds *store.Dataset) (*scene, velocities, error) {
	if p.DeltaTime <= 0 {
		return nil, velocities{}, errs.Errorf(errs.EINVALID, "delta_time must be a positive number of minutes but was %v", p.DeltaTime)
	}
	s, pos, err := c.latLong(p, ds)
	if err != nil {
		return nil, velocities{}, err
	}
	c.logger.Debug("Calculating speed and angle (velocity)")

	vel := velocities{positions: pos, speed: make([]float64, len(pos.newLat)), angle: make([]float64, len(pos.newLat))}
	earth := p.earth()
	for k := range pos.newLat {
		vel.speed[k], vel.angle[k] = motion(earth, p.DeltaTime, pos.oldLat[k], pos.oldLong[k], pos.newLat[k], pos.newLong[k])
	}
	if ds != nil {
		if err := saveVelocity(ds, s, vel); err != nil {
			return nil, velocities{}, err
		}
	}
	return s, vel, nil
}

func (c *Calculator) vu(p Params, ds *store.Dataset) (*scene, velocities, error) {
	s, vel, err := c.velocity(p, ds)
	if err != nil {
		return nil, velocities{}, err
	}
	c.logger.Debug("Finding v and u components")

	vel.v = make([]float64, len(vel.speed))
	vel.u = make([]float64, len(vel.speed))
	for k := range vel.speed {
		vel.v[k], vel.u[k] = components(vel.speed[k], vel.angle[k])
	}
	if ds != nil {
		if err := saveVU(ds, s, vel); err != nil {
			return nil, velocities{}, err
		}
	}
	return s, vel, nil
}

// motion returns the speed in m/s and the forward bearing of the rhumb line
// travelled in deltaTime minutes.
func motion(earth geo.Ellipsoid, deltaTime, oldLat, oldLong, newLat, newLong float64) (speed, angle float64) {
	distance, forward, _ := earth.LoxodromeInverse(oldLat, oldLong, newLat, newLong)
	return distance / (deltaTime * 60), forward
}

// components splits a speed along a bearing measured clockwise from north
// into its northward (v) and eastward (u) parts.
func components(speed, angle float64) (v, u float64) {
	return geo.Cos(angle) * speed, geo.Sin(angle) * speed
}
