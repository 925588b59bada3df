package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rtm0/winds/internal/config"
	"github.com/rtm0/winds/internal/flow"
	"github.com/rtm0/winds/internal/geo"
	"github.com/rtm0/winds/internal/units"
	"github.com/rtm0/winds/internal/winds"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
	Config  config.Config
	WorkDir string
	Now     func() time.Time

	precision int
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose   int    `short:"v" type:"counter" help:"Each occurrence increases verbosity one level through ERROR-WARN-INFO-DEBUG."`
	Precision *int   `placeholder:"INT" help:"Number of decimal places to round printed output to (default 2)."`
	LogFormat string `name:"log-format" placeholder:"text|json" help:"Log format."`
	Config    string `env:"WINDS_CONFIG" placeholder:"FILE" help:"YAML, TOML or JSON file with defaults."`

	Area            AreaCmd            `cmd:"" name:"area" help:"Print the area the images cover"`
	Displacements   DisplacementsCmd   `cmd:"" name:"displacements" help:"Print the j and i pixel displacements"`
	LatLong         LatLongCmd         `cmd:"" name:"lat-long" help:"Print the latitude and longitude features started from"`
	Velocity        VelocityCmd        `cmd:"" name:"velocity" help:"Print the wind speed and angle"`
	VU              VUCmd              `cmd:"" name:"vu" help:"Print the v and u wind components"`
	WindInfo        WindInfoCmd        `cmd:"" name:"wind-info" help:"Compute and save latitude, longitude, speed, angle, v and u"`
	PositionToPixel PositionToPixelCmd `cmd:"" name:"position-to-pixel" help:"Print the pixel a position falls on"`
	VelocityFLL     VelocityFLLCmd     `cmd:"" name:"velocity-fll" help:"Print the wind speed and angle between two positions"`
	VUFLL           VUFLLCmd           `cmd:"" name:"vu-fll" help:"Print the v and u wind components between two positions"`
	WindInfoFLL     WindInfoFLLCmd     `cmd:"" name:"wind-info-fll" help:"Print latitude, longitude, speed, angle, v and u between two positions"`
	Loxodrome       LoxodromeCmd       `cmd:"" name:"loxodrome" help:"Solve the rhumb-line problem"`
	Geodesic        GeodesicCmd        `cmd:"" name:"geodesic" help:"Solve the geodesic problem"`
}

// AreaFlags describe the projected area both images cover. Quantities take
// optional units after a colon, e.g. --pixel-size=4:km.
type AreaFlags struct {
	LatTS               *float64       `name:"lat-ts" placeholder:"DEG" help:"Projection latitude of true scale (default 90)."`
	Lat0                *float64       `name:"lat-0" placeholder:"DEG" help:"Projection latitude of origin."`
	Long0               *float64       `name:"long-0" placeholder:"DEG" help:"Projection central meridian."`
	Projection          string         `placeholder:"NAME" help:"Projection the images are in: stere, merc or eqc."`
	AreaExtent          units.Quantity `name:"area-extent" placeholder:"LL_Y,LL_X,UR_Y,UR_X[:UNITS]" help:"Projection coordinates of the lower-left and upper-right corners."`
	Shape               []int          `placeholder:"HEIGHT,WIDTH" help:"Number of pixels in the y and x direction."`
	Center              units.Quantity `placeholder:"Y,X[:UNITS]" help:"Center of the area. Defaults to latitude,longitude in degrees."`
	PixelSize           units.Quantity `name:"pixel-size" placeholder:"DY[,DX][:UNITS]" help:"Size of pixels in the y and x direction."`
	UpperLeftExtent     units.Quantity `name:"upper-left-extent" placeholder:"Y,X[:UNITS]" help:"Projection coordinates of the upper-left corner of the upper-left pixel."`
	Radius              units.Quantity `placeholder:"DY[,DX][:UNITS]" help:"Length from the center to the outer edges."`
	Units               string         `placeholder:"UNITS" help:"Units of every length given without units."`
	ProjectionEllipsoid geo.Spec       `name:"projection-ellipsoid" placeholder:"NAME|a=..,f=.." help:"Ellipsoid of the projection."`
}

// SourceFlags locate the displacement data.
type SourceFlags struct {
	DisplacementData string `name:"displacement-data" placeholder:"FILE|LIST" help:"File, glob or inline list such as [[j...],[i...]]."`
}

// PixelFlags select a single pixel.
type PixelFlags struct {
	J *int `short:"j" placeholder:"ROW" help:"Row to run calculations on."`
	I *int `short:"i" placeholder:"COL" help:"Column to run calculations on."`
}

// EarthFlags select the ellipsoid distances are measured on.
type EarthFlags struct {
	EarthEllipsoid geo.Spec `name:"earth-ellipsoid" placeholder:"NAME|a=..,f=.." help:"Ellipsoid of the Earth (default WGS84)."`
}

func (f *AreaFlags) params(deps *Dependencies) (winds.Params, error) {
	spec := f.ProjectionEllipsoid
	if spec.IsZero() {
		var err error
		if spec, err = geo.ParseSpec(deps.Config.ProjectionEllipsoid); err != nil {
			return winds.Params{}, err
		}
	}
	ellipsoid, err := spec.Ellipsoid(deps.Logger)
	if err != nil {
		return winds.Params{}, err
	}
	return winds.Params{
		LatTS:               f.LatTS,
		Lat0:                f.Lat0,
		Long0:               f.Long0,
		Projection:          or(f.Projection, deps.Config.Projection),
		AreaExtent:          f.AreaExtent,
		Shape:               f.Shape,
		Center:              f.Center,
		PixelSize:           f.PixelSize,
		UpperLeftExtent:     f.UpperLeftExtent,
		Radius:              f.Radius,
		Units:               or(f.Units, deps.Config.Units),
		ProjectionEllipsoid: ellipsoid,
	}, nil
}

func (f *EarthFlags) earth(deps *Dependencies) (geo.Ellipsoid, error) {
	spec := f.EarthEllipsoid
	if spec.IsZero() {
		var err error
		if spec, err = geo.ParseSpec(deps.Config.EarthEllipsoid); err != nil {
			return geo.Ellipsoid{}, err
		}
	}
	return spec.Ellipsoid(deps.Logger)
}

// sources expands the displacement flag. With fallback an empty flag means
// every .flo file in the working directory. A glob that matches nothing is
// passed on as is, so reading it fails, unless optional is set, in which
// case the command runs without displacements.
func (d *Dependencies) sources(flag string, fallback, optional bool) []string {
	if flow.IsInline(flag) || (flag == "" && !fallback) {
		return []string{flag}
	}
	pattern := flag
	if pattern == "" {
		pattern = "*.flo"
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(d.WorkDir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		d.Logger.Warn("Bad displacement pattern", "pattern", pattern, "err", err)
	}
	if len(matches) > 0 {
		return matches
	}
	if optional {
		return []string{""}
	}
	return []string{pattern}
}

// sourceName labels results from source.
func sourceName(source string) string {
	if source == "" || flow.IsInline(source) {
		return "list"
	}
	return filepath.Base(source)
}

// runEach calls fn once per source, at most limit at a time, and returns
// the results in source order.
func runEach[T any](deps *Dependencies, sources []string, limit int, fn func(string) (T, error)) ([]T, error) {
	out := make([]T, len(sources))
	g, ctx := errgroup.WithContext(deps.Ctx)
	g.SetLimit(max(limit, 1))
	for k, source := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := fn(source)
			if err != nil {
				return err
			}
			out[k] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
