package winds

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/flow"
	"github.com/rtm0/winds/internal/store"
)

// TimestampLayout formats the time stamp appended to output directories.
const TimestampLayout = "20060102_150405"

// GridMappingName names the grid-mapping variable every saved grid refers
// to.
const GridMappingName = "polar_stereographic"

// SaveOptions control where WindInfo writes its results.
type SaveOptions struct {
	// NoSave only computes; nothing is written.
	NoSave bool
	// Directory is the parent of the output directory, defaulting to the
	// working directory.
	Directory string
	// Timestamp names the output directory, defaulting to now.
	Timestamp time.Time
}

// Winds is the result of WindInfo.
type Winds struct {
	// Shape is nil when a single pixel was selected.
	Shape   []int
	Records []Record
	// Dir is the output directory, empty when nothing was saved.
	Dir string
}

// Rows returns every record as [lat, long, speed, angle, v, u].
func (w *Winds) Rows() [][]float64 {
	rows := make([][]float64, len(w.Records))
	for k, r := range w.Records {
		rows[k] = r.Row()
	}
	return rows
}

// OutputDir names the directory results from source are saved in:
// <parent>/<file name or "list">_output_<YYYYmmdd_HHMMSS>.
func OutputDir(parent, source string, ts time.Time) string {
	name := "list"
	if source != "" && !flow.IsInline(source) {
		name = filepath.Base(source)
	}
	return filepath.Join(parent, name+"_output_"+ts.Format(TimestampLayout))
}

// WindInfo computes the position, speed, angle, v and u of the wind at
// each pixel and, unless opts.NoSave is set, saves every intermediate
// variable as text and NetCDF.
func (c *Calculator) WindInfo(p Params, opts SaveOptions) (*Winds, error) {
	if opts.NoSave && opts.Directory != "" {
		c.logger.Warn("Conflicting options: --print and --save-directory. Listening to --print")
	}

	var ds *store.Dataset
	if !opts.NoSave {
		var err error
		if ds, err = c.createDataset(p, opts); err != nil {
			return nil, err
		}
	}

	s, vel, err := c.vu(p, ds)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Formatting wind_info")
	out := &Winds{Shape: s.outShape(), Records: make([]Record, len(vel.speed))}
	for k := range vel.speed {
		out.Records[k] = Record{
			Latitude:  vel.newLat[k],
			Longitude: vel.newLong[k],
			Speed:     vel.speed[k],
			Angle:     vel.angle[k],
			V:         vel.v[k],
			U:         vel.u[k],
		}
	}

	if ds != nil {
		c.logger.Debug("Saving wind_info")
		if err := ds.AddTable("wind_info", out.Rows(), gridAttrs(
			store.Attr{Key: "standard_name", Value: "wind_speed"},
			store.Attr{Key: "description", Value: "new_lat, new_long, speed, angle, v, u"},
		)); err != nil {
			return nil, err
		}
		if err := ds.Close(); err != nil {
			return nil, err
		}
		out.Dir = ds.Dir()
	}
	return out, nil
}

// createDataset prepares the output directory. It returns nil when the
// displacement file does not exist, which is only worth a warning here.
func (c *Calculator) createDataset(p Params, opts SaveOptions) (*store.Dataset, error) {
	if !p.hasDisplacements() {
		return nil, errs.Errorf(errs.EINVALID, "cannot save data without displacement_data")
	}
	parent := opts.Directory
	if parent == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		parent = wd
	}
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	source := p.Displacements
	if p.Field != nil {
		source = ""
	}
	dir := OutputDir(parent, source, ts)

	if source != "" && !flow.IsInline(source) {
		if _, err := os.Stat(source); err != nil {
			c.logger.Warn("Save directory not created: displacement_data not found or provided", "dir", dir)
			return nil, nil
		}
	}
	c.logger.Debug("Creating save file", "dir", dir)
	return store.Create(dir, c.logger)
}

func gridAttrs(attrs ...store.Attr) []store.Attr {
	return append(attrs, store.Attr{Key: "grid_mapping_name", Value: GridMappingName})
}

func saveScene(ds *store.Dataset, s *scene) error {
	if s.field == nil {
		return errs.Errorf(errs.EINVALID, "cannot save data without displacement_data")
	}
	if s.def != nil {
		fields, err := s.def.GridMapping()
		if err != nil {
			return err
		}
		attrs := make([]store.Attr, len(fields))
		for k, f := range fields {
			attrs[k] = store.Attr{Key: f.Key, Value: f.Value}
		}
		if err := ds.AddGridMapping(GridMappingName, attrs); err != nil {
			return err
		}
	}

	px := s.pixels()
	j, i := make([]float64, len(px)), make([]float64, len(px))
	for k, ji := range px {
		j[k], i[k] = s.displacement(ji[0], ji[1])
	}
	if err := ds.AddGrid("j_displacement", j, s.shape, gridAttrs(
		store.Attr{Key: "standard_name", Value: "divergence_of_wind"},
		store.Attr{Key: "description", Value: "vertical pixel displacement at each pixel"},
	)); err != nil {
		return err
	}
	return ds.AddGrid("i_displacement", i, s.shape, gridAttrs(
		store.Attr{Key: "standard_name", Value: "divergence_of_wind"},
		store.Attr{Key: "description", Value: "horizontal pixel displacement at each pixel"},
	))
}

func savePositions(ds *store.Dataset, s *scene, pos positions) error {
	vars := []struct {
		name, standard string
		values         []float64
	}{
		{"new_latitude", "latitude", pos.newLat},
		{"new_longitude", "longitude", pos.newLong},
		{"old_latitude", "latitude", pos.oldLat},
		{"old_longitude", "longitude", pos.oldLong},
	}
	for _, v := range vars {
		if err := ds.AddGrid(v.name, v.values, s.shape, gridAttrs(
			store.Attr{Key: "standard_name", Value: v.standard},
			store.Attr{Key: "units", Value: "degrees"},
		)); err != nil {
			return err
		}
	}
	return nil
}

func saveVelocity(ds *store.Dataset, s *scene, vel velocities) error {
	if err := ds.AddGrid("speed", vel.speed, s.shape, gridAttrs(
		store.Attr{Key: "standard_name", Value: "wind_speed"},
		store.Attr{Key: "units", Value: "m/s"},
	)); err != nil {
		return err
	}
	return ds.AddGrid("angle", vel.angle, s.shape, gridAttrs(
		store.Attr{Key: "standard_name", Value: "wind_to_direction"},
		store.Attr{Key: "units", Value: "degrees"},
		store.Attr{Key: "description", Value: "Forward bearing of rhumb line"},
	))
}

func saveVU(ds *store.Dataset, s *scene, vel velocities) error {
	if err := ds.AddGrid("v", vel.v, s.shape, gridAttrs(
		store.Attr{Key: "standard_name", Value: "northward_wind"},
		store.Attr{Key: "units", Value: "m/s"},
	)); err != nil {
		return err
	}
	return ds.AddGrid("u", vel.u, s.shape, gridAttrs(
		store.Attr{Key: "standard_name", Value: "eastward_wind"},
		store.Attr{Key: "units", Value: "m/s"},
	))
}
