package main

import (
	"fmt"
	"path/filepath"

	"github.com/rtm0/winds/internal/area"
	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/store"
	"github.com/rtm0/winds/internal/units"
	"github.com/rtm0/winds/internal/winds"
)

// AreaCmd is the "area" subcommand.
type AreaCmd struct {
	AreaFlags   `embed:""`
	SourceFlags `embed:""`
}

// Run executes the area command.
func (c *AreaCmd) Run(deps *Dependencies) error {
	base, err := c.params(deps)
	if err != nil {
		return err
	}
	calc := winds.NewCalculator(deps.Logger)
	infos, err := runEach(deps, deps.sources(c.DisplacementData, true, true), deps.Config.Concurrency,
		func(source string) (area.Info, error) {
			p := base
			p.Displacements = source
			return calc.Area(p)
		})
	if err != nil {
		return err
	}
	for _, info := range infos {
		printArea(deps.Stdout, info, deps.precision)
	}
	return nil
}

// DisplacementsCmd is the "displacements" subcommand.
type DisplacementsCmd struct {
	SourceFlags `embed:""`
	PixelFlags  `embed:""`
	Shape       []int `placeholder:"HEIGHT,WIDTH" help:"Number of pixels in the y and x direction."`
}

// Run executes the displacements command.
func (c *DisplacementsCmd) Run(deps *Dependencies) error {
	calc := winds.NewCalculator(deps.Logger)
	return runPairs(deps, deps.sources(c.DisplacementData, true, false), func(source string) (winds.Pair, error) {
		return calc.Displacements(winds.Params{Displacements: source, Shape: c.Shape, J: c.J, I: c.I})
	})
}

// LatLongCmd is the "lat-long" subcommand.
type LatLongCmd struct {
	AreaFlags   `embed:""`
	SourceFlags `embed:""`
	PixelFlags  `embed:""`
}

// Run executes the lat-long command.
func (c *LatLongCmd) Run(deps *Dependencies) error {
	base, err := c.params(deps)
	if err != nil {
		return err
	}
	base.J, base.I = c.J, c.I
	calc := winds.NewCalculator(deps.Logger)
	return runPairs(deps, deps.sources(c.DisplacementData, false, false), func(source string) (winds.Pair, error) {
		p := base
		p.Displacements = source
		return calc.LatLong(p)
	})
}

// MotionArgs are shared by the commands that turn displacements into wind.
type MotionArgs struct {
	DeltaTime float64 `arg:"" name:"delta-time" help:"Minutes between the two images."`

	AreaFlags   `embed:""`
	SourceFlags `embed:""`
	PixelFlags  `embed:""`
	EarthFlags  `embed:""`
}

func (a *MotionArgs) motionParams(deps *Dependencies) (winds.Params, error) {
	p, err := a.params(deps)
	if err != nil {
		return winds.Params{}, err
	}
	if p.EarthEllipsoid, err = a.earth(deps); err != nil {
		return winds.Params{}, err
	}
	p.DeltaTime = a.DeltaTime
	p.J, p.I = a.J, a.I
	return p, nil
}

// VelocityCmd is the "velocity" subcommand.
type VelocityCmd struct {
	MotionArgs `embed:""`
}

// Run executes the velocity command.
func (c *VelocityCmd) Run(deps *Dependencies) error {
	base, err := c.motionParams(deps)
	if err != nil {
		return err
	}
	calc := winds.NewCalculator(deps.Logger)
	return runPairs(deps, deps.sources(c.DisplacementData, true, false), func(source string) (winds.Pair, error) {
		p := base
		p.Displacements = source
		return calc.Velocity(p)
	})
}

// VUCmd is the "vu" subcommand.
type VUCmd struct {
	MotionArgs `embed:""`
}

// Run executes the vu command.
func (c *VUCmd) Run(deps *Dependencies) error {
	base, err := c.motionParams(deps)
	if err != nil {
		return err
	}
	calc := winds.NewCalculator(deps.Logger)
	return runPairs(deps, deps.sources(c.DisplacementData, true, false), func(source string) (winds.Pair, error) {
		p := base
		p.Displacements = source
		return calc.VU(p)
	})
}

func runPairs(deps *Dependencies, sources []string, fn func(string) (winds.Pair, error)) error {
	pairs, err := runEach(deps, sources, deps.Config.Concurrency, fn)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		printPair(deps.Stdout, p, deps.precision)
	}
	return nil
}

// WindInfoCmd is the "wind-info" subcommand.
type WindInfoCmd struct {
	MotionArgs `embed:""`

	Print         bool   `short:"p" aliases:"no-save" help:"Print data to the shell without saving."`
	SaveDirectory string `short:"s" name:"save-directory" placeholder:"DIR" help:"Directory to save to (default: the working directory)."`
	VMInsertURL   string `name:"vm-insert-url" placeholder:"URL" help:"Victoria Metrics insert API URL, e.g. http://localhost:8428/write."`
	MetricPrefix  string `name:"metric-prefix" placeholder:"PREFIX" help:"Prefix of exported metric names (default winds)."`
	Concurrency   *int   `placeholder:"N" help:"Number of files processed and requests sent at once."`
	RecsPerInsert *int   `name:"recs-per-insert" placeholder:"N" help:"Number of records sent to Victoria Metrics in one batch."`

	InsertsPerSecond *float64 `name:"inserts-per-second" placeholder:"RATE" help:"Maximum number of insert requests per second (default: unlimited)."`
}

// Run executes the wind-info command.
func (c *WindInfoCmd) Run(deps *Dependencies) error {
	base, err := c.motionParams(deps)
	if err != nil {
		return err
	}
	cfg := deps.Config
	if c.Concurrency != nil {
		cfg.Concurrency = *c.Concurrency
	}
	if c.RecsPerInsert != nil {
		cfg.RecsPerInsert = *c.RecsPerInsert
	}
	if c.InsertsPerSecond != nil {
		cfg.InsertsPerSecond = *c.InsertsPerSecond
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := winds.SaveOptions{NoSave: c.Print, Directory: c.SaveDirectory, Timestamp: deps.Now()}
	if !opts.NoSave && opts.Directory == "" {
		opts.Directory = or(deps.Config.SaveDirectory, deps.WorkDir)
	}

	sources := deps.sources(c.DisplacementData, true, false)
	calc := winds.NewCalculator(deps.Logger)
	results, err := runEach(deps, sources, cfg.Concurrency, func(source string) (*winds.Winds, error) {
		p := base
		p.Displacements = source
		return calc.WindInfo(p, opts)
	})
	if err != nil {
		return err
	}
	for _, w := range results {
		switch {
		case c.Print:
			printWinds(deps.Stdout, w, deps.precision)
		case w.Dir != "":
			fmt.Fprintf(deps.Stdout, "Saving wind_info to:\n%s\n%s\n",
				filepath.Join(w.Dir, "wind_info.txt"), filepath.Join(w.Dir, store.NetCDFName))
		}
	}

	insertURL := or(c.VMInsertURL, cfg.VMInsertURL)
	if insertURL == "" {
		return nil
	}
	return export(deps, exportConfig{
		insertURL:        insertURL,
		metricPrefix:     or(c.MetricPrefix, cfg.MetricPrefix),
		concurrency:      cfg.Concurrency,
		recsPerInsert:    cfg.RecsPerInsert,
		insertsPerSecond: cfg.InsertsPerSecond,
	}, sources, results, opts.Timestamp)
}

// PositionToPixelCmd is the "position-to-pixel" subcommand.
type PositionToPixelCmd struct {
	Lat  float64 `arg:"" help:"Latitude of the position."`
	Long float64 `arg:"" help:"Longitude of the position."`

	AreaFlags   `embed:""`
	SourceFlags `embed:""`
}

// Run executes the position-to-pixel command.
func (c *PositionToPixelCmd) Run(deps *Dependencies) error {
	base, err := c.params(deps)
	if err != nil {
		return err
	}
	calc := winds.NewCalculator(deps.Logger)
	pixels, err := runEach(deps, deps.sources(c.DisplacementData, false, false), deps.Config.Concurrency,
		func(source string) ([2]float64, error) {
			p := base
			p.Displacements = source
			j, i, err := calc.PositionToPixel(p, c.Lat, c.Long)
			return [2]float64{j, i}, err
		})
	if err != nil {
		return err
	}
	for _, ji := range pixels {
		printValues(deps.Stdout, deps.precision, ji[0], ji[1])
	}
	return nil
}

// TrackArgs are shared by the commands that work from two positions.
type TrackArgs struct {
	DeltaTime float64 `arg:"" name:"delta-time" help:"Minutes spent travelling between the two positions."`
	OldLat    float64 `arg:"" name:"old-lat" help:"Latitude of the starting position."`
	OldLong   float64 `arg:"" name:"old-long" help:"Longitude of the starting position."`
	NewLat    float64 `arg:"" name:"new-lat" help:"Latitude of the ending position."`
	NewLong   float64 `arg:"" name:"new-long" help:"Longitude of the ending position."`

	EarthFlags `embed:""`
}

func (a *TrackArgs) track(deps *Dependencies) (winds.Track, error) {
	earth, err := a.earth(deps)
	if err != nil {
		return winds.Track{}, err
	}
	return winds.Track{
		OldLat:    a.OldLat,
		OldLong:   a.OldLong,
		NewLat:    a.NewLat,
		NewLong:   a.NewLong,
		DeltaTime: a.DeltaTime,
		Earth:     earth,
	}, nil
}

// VelocityFLLCmd is the "velocity-fll" subcommand.
type VelocityFLLCmd struct {
	TrackArgs `embed:""`
}

// Run executes the velocity-fll command.
func (c *VelocityFLLCmd) Run(deps *Dependencies) error {
	t, err := c.track(deps)
	if err != nil {
		return err
	}
	speed, angle, err := winds.VelocityFLL(t)
	if err != nil {
		return err
	}
	printValues(deps.Stdout, deps.precision, speed, angle)
	return nil
}

// VUFLLCmd is the "vu-fll" subcommand.
type VUFLLCmd struct {
	TrackArgs `embed:""`
}

// Run executes the vu-fll command.
func (c *VUFLLCmd) Run(deps *Dependencies) error {
	t, err := c.track(deps)
	if err != nil {
		return err
	}
	v, u, err := winds.VUFLL(t)
	if err != nil {
		return err
	}
	printValues(deps.Stdout, deps.precision, v, u)
	return nil
}

// WindInfoFLLCmd is the "wind-info-fll" subcommand.
type WindInfoFLLCmd struct {
	TrackArgs `embed:""`
}

// Run executes the wind-info-fll command.
func (c *WindInfoFLLCmd) Run(deps *Dependencies) error {
	t, err := c.track(deps)
	if err != nil {
		return err
	}
	r, err := winds.WindInfoFLL(t)
	if err != nil {
		return err
	}
	printValues(deps.Stdout, deps.precision, r.Row()...)
	return nil
}

// LineArgs are shared by loxodrome and geodesic. Without --inverse the
// arguments are two positions; with it, a position, a distance and a
// bearing.
type LineArgs struct {
	OldLat  float64        `arg:"" name:"old-lat" help:"Latitude of the starting position."`
	OldLong float64        `arg:"" name:"old-long" help:"Longitude of the starting position."`
	Third   units.Quantity `arg:"" name:"new-lat-or-distance" help:"Latitude of the ending position, or with --inverse the distance travelled (e.g. 100:km)."`
	Fourth  float64        `arg:"" name:"new-long-or-bearing" help:"Longitude of the ending position, or with --inverse the bearing in degrees."`
	Inverse bool           `help:"Find the ending position from a distance and bearing."`

	EarthFlags `embed:""`
}

// newLat reads the third argument as a latitude.
func (a *LineArgs) newLat() (float64, error) {
	if len(a.Third.Values) != 1 {
		return 0, errs.Errorf(errs.EINVALID, "new-lat must be a single value but was %v", a.Third)
	}
	if !units.IsAngle(a.Third.Units) && a.Third.Units != "" {
		return 0, errs.Errorf(errs.EINVALID, "new-lat must be an angle, not %s", a.Third.Units)
	}
	return units.ToDegrees(a.Third.Values[0], a.Third.Units)
}

// distance reads the third argument as a length in metres.
func (a *LineArgs) distance() (float64, error) {
	if len(a.Third.Values) != 1 {
		return 0, errs.Errorf(errs.EINVALID, "distance must be a single value but was %v", a.Third)
	}
	if units.IsAngle(a.Third.Units) {
		return 0, errs.Errorf(errs.EINVALID, "distance must be a length, not %s", a.Third.Units)
	}
	return units.ToMetres(a.Third.Values[0], a.Third.Units)
}

// LoxodromeCmd is the "loxodrome" subcommand.
type LoxodromeCmd struct {
	LineArgs `embed:""`
}

// Run executes the loxodrome command.
func (c *LoxodromeCmd) Run(deps *Dependencies) error {
	earth, err := c.earth(deps)
	if err != nil {
		return err
	}
	if c.Inverse {
		d, err := c.distance()
		if err != nil {
			return err
		}
		lat, long, back := earth.LoxodromeDirect(c.OldLat, c.OldLong, d, c.Fourth)
		printValues(deps.Stdout, deps.precision, lat, long, back)
		return nil
	}
	newLat, err := c.newLat()
	if err != nil {
		return err
	}
	d, forward, back := earth.LoxodromeInverse(c.OldLat, c.OldLong, newLat, c.Fourth)
	printValues(deps.Stdout, deps.precision, d, forward, back)
	return nil
}

// GeodesicCmd is the "geodesic" subcommand.
type GeodesicCmd struct {
	LineArgs `embed:""`
}

// Run executes the geodesic command.
func (c *GeodesicCmd) Run(deps *Dependencies) error {
	earth, err := c.earth(deps)
	if err != nil {
		return err
	}
	if c.Inverse {
		d, err := c.distance()
		if err != nil {
			return err
		}
		lat, long, back := earth.GeodesicDirect(c.OldLat, c.OldLong, d, c.Fourth)
		printValues(deps.Stdout, deps.precision, lat, long, back)
		return nil
	}
	newLat, err := c.newLat()
	if err != nil {
		return err
	}
	d, initial, back := earth.GeodesicInverse(c.OldLat, c.OldLong, newLat, c.Fourth)
	printValues(deps.Stdout, deps.precision, d, initial, back)
	return nil
}
