package winds

import (
	"github.com/rtm0/winds/internal/area"
	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/flow"
	"github.com/rtm0/winds/internal/store"
	"github.com/rtm0/winds/internal/units"
)

// scene is everything known about the images once the area and the
// displacements have been discovered.
type scene struct {
	shape []int
	field *flow.Field // nil without displacement data
	pixel *flow.Pixel // nil for every pixel
	def   *area.Definition
}

// displacement returns the displacement of pixel (j, i), zero without
// displacement data.
func (s *scene) displacement(j, i int) (dj, di float64) {
	if s.field == nil {
		return 0, 0
	}
	return s.field.At(j, i)
}

// pixels lists the (j, i) pairs the scene covers in row-major order.
func (s *scene) pixels() [][2]int {
	if s.pixel != nil {
		return [][2]int{{s.pixel.J, s.pixel.I}}
	}
	out := make([][2]int, 0, s.shape[0]*s.shape[1])
	for j := 0; j < s.shape[0]; j++ {
		for i := 0; i < s.shape[1]; i++ {
			out = append(out, [2]int{j, i})
		}
	}
	return out
}

// outShape is the shape results are reported in: nil for a single pixel.
func (s *scene) outShape() []int {
	if s.pixel != nil {
		return nil
	}
	return s.shape
}

// discover builds the area and reads the displacements. The area is tried
// from the arguments first, then with the shape found in the displacement
// data, then centred on (lat_0, long_0).
func (c *Calculator) discover(p Params, ds *store.Dataset) (*scene, error) {
	if err := flow.CheckShape(p.Shape); err != nil {
		return nil, err
	}
	s := &scene{shape: p.Shape}
	hasArea := p.hasAreaArgs()

	if hasArea {
		if p.LatTS == nil || p.Lat0 == nil || p.Long0 == nil {
			c.logger.Warn("Area information provided but at least one of lat_ts, lat_0, or long_0 was not defined")
		}
		c.logger.Debug("Finding area information before reading displacements")
		def, err := area.New(p.areaParams(s.shape, p.Center), c.logger)
		if err != nil {
			c.logger.Warn("Error in creating an area", "err", err)
			return nil, err
		}
		s.def = def
		if shape := def.Shape(); shape != nil {
			s.shape = shape
		}
	}

	if err := c.readDisplacements(p, s); err != nil {
		return nil, err
	}

	if hasArea && s.def.Shape() == nil && s.shape != nil {
		c.logger.Debug("Using shape found from displacement data to try to make an area definition")
		def, err := area.New(p.areaParams(s.shape, p.Center), c.logger)
		if err != nil {
			return nil, err
		}
		s.def = def
	}
	if hasArea && s.def.Extent == nil && p.Center.IsZero() {
		c.logger.Debug("Using lat_0 and long_0 as center to try to make an area definition")
		center := units.Of("degrees", deref(p.Lat0), deref(p.Long0))
		def, err := area.New(p.areaParams(s.shape, center), c.logger)
		if err != nil {
			return nil, err
		}
		s.def = def
	}
	if s.def != nil {
		if s.shape == nil {
			s.shape = s.def.Shape()
		}
		c.logger.Debug("Area definition", "area", s.def.String())
	}

	pixel, err := flow.SelectPixel(p.J, p.I, s.shape)
	if err != nil {
		return nil, err
	}
	s.pixel = pixel

	if ds != nil {
		if err := saveScene(ds, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// readDisplacements loads and shapes the displacement data, if any.
func (c *Calculator) readDisplacements(p Params, s *scene) error {
	if !p.hasDisplacements() {
		return nil
	}
	field := p.Field
	if field == nil {
		var err error
		if field, err = flow.Load(p.Displacements, c.logger); err != nil {
			if errs.ErrorCode(err) == errs.ENOTFOUND {
				c.logger.Warn("displacement_data is required, but was not found or provided", "source", p.Displacements)
			}
			return err
		}
	} else {
		copied := *field
		field = &copied
	}
	if err := field.Resolve(s.shape, c.logger); err != nil {
		return err
	}
	s.field = field
	s.shape = field.Shape()
	return nil
}

// requireArea fails unless the scene's area can locate pixels.
func requireArea(s *scene) error {
	if s.def == nil || !s.def.Complete() {
		return errs.Errorf(errs.EINVALID, "not enough information provided to create an area for projection")
	}
	return nil
}

// requireOrigin fails unless lat_0 and long_0 were given.
func requireOrigin(p Params) error {
	if p.Lat0 == nil || p.Long0 == nil {
		return errs.Errorf(errs.EINVALID, "lat_0 and long_0 must be given")
	}
	return nil
}
