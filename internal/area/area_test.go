package area_test

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/rtm0/winds/internal/area"
	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/proj"
	"github.com/rtm0/winds/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func northParams() area.Params {
	return area.Params{
		Projection: proj.Params{LatTS: 60, Lat0: 90, Long0: 20},
		Center:     units.Of("", 40, 10),
		PixelSize:  units.Of("", 5000),
		Shape:      []int{10, 10},
	}
}

func TestNew_CenterShapePixelSize(t *testing.T) {
	t.Parallel()

	def, err := area.New(northParams(), discardLogger())
	require.NoError(t, err)
	require.True(t, def.Complete())

	lat, long, err := def.LatLong(8, 1)
	require.NoError(t, err)
	assert.InDelta(t, 39.83916060902502, lat, 1e-9)
	assert.InDelta(t, 9.854132443688258, long, 1e-9)

	lat, long, err = def.LatLong(8-810, 1-1620)
	require.NoError(t, err)
	assert.InDelta(t, 14.530507763963618, lat, 1e-9)
	assert.InDelta(t, -60.999091673814945, long, 1e-9)

	j, i, err := def.Pixel(39.83916060902502, 9.854132443688258)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, j, 1e-6)
	assert.InDelta(t, 1.0, i, 1e-6)
}

func TestNew_South(t *testing.T) {
	t.Parallel()

	def, err := area.New(area.Params{
		Projection: proj.Params{LatTS: -60, Lat0: -90, Long0: 20},
		Center:     units.Of("deg", -40, 0),
		PixelSize:  units.Of("km", 5),
		Shape:      []int{5, 5},
	}, discardLogger())
	require.NoError(t, err)

	lat, long, err := def.LatLong(4, 1)
	require.NoError(t, err)
	assert.InDelta(t, -40.06093707207117, lat, 1e-9)
	assert.InDelta(t, -0.08384609261679543, long, 1e-9)

	lat, long, err = def.LatLong(4-210, 1-210)
	require.NoError(t, err)
	assert.InDelta(t, -29.630583490124856, lat, 1e-9)
	assert.InDelta(t, -5.268446192715743, long, 1e-9)
}

func TestNew_Resolution(t *testing.T) {
	t.Parallel()

	pp := proj.Params{Lat0: 90}

	t.Run("area extent and shape give the pixel size", func(t *testing.T) {
		t.Parallel()

		def, err := area.New(area.Params{
			Projection: pp,
			AreaExtent: units.Of("km", -10, -20, 10, 20),
			Shape:      []int{4, 8},
		}, discardLogger())

		require.NoError(t, err)
		assert.Equal(t, []float64{-20000, -10000, 20000, 10000}, def.Extent)
		assert.Equal(t, 5000.0, def.PixelX)
		assert.Equal(t, 5000.0, def.PixelY)
		x, y := def.PixelUpperLeft()
		assert.Equal(t, -17500.0, x)
		assert.Equal(t, 7500.0, y)
	})

	t.Run("area extent and pixel size give the shape", func(t *testing.T) {
		t.Parallel()

		def, err := area.New(area.Params{
			Projection: pp,
			AreaExtent: units.Of("", -10000, -20000, 10000, 20000),
			PixelSize:  units.Of("", 5000, 2500),
		}, discardLogger())

		require.NoError(t, err)
		assert.Equal(t, []int{4, 16}, def.Shape())
	})

	t.Run("upper left and radius", func(t *testing.T) {
		t.Parallel()

		def, err := area.New(area.Params{
			Projection:      pp,
			UpperLeftExtent: units.Of("", 100, -100),
			Radius:          units.Of("", 50),
			Shape:           []int{2, 2},
		}, discardLogger())

		require.NoError(t, err)
		assert.Equal(t, []float64{-100, 0, 0, 100}, def.Extent)
		assert.Equal(t, 50.0, def.PixelX)
	})

	t.Run("upper left, shape and pixel size", func(t *testing.T) {
		t.Parallel()

		def, err := area.New(area.Params{
			Projection:      pp,
			UpperLeftExtent: units.Of("", 100, -100),
			PixelSize:       units.Of("", 10),
			Shape:           []int{3, 5},
			Units:           "m",
		}, discardLogger())

		require.NoError(t, err)
		assert.Equal(t, []float64{-100, 70, -50, 100}, def.Extent)
	})

	t.Run("center and radius", func(t *testing.T) {
		t.Parallel()

		def, err := area.New(area.Params{
			Projection: pp,
			Center:     units.Of("m", 0, 0),
			Radius:     units.Of("", 10, 20),
		}, discardLogger())

		require.NoError(t, err)
		assert.Equal(t, []float64{-20, -10, 20, 10}, def.Extent)
		assert.False(t, def.Complete())
	})

	t.Run("no extent is incomplete", func(t *testing.T) {
		t.Parallel()

		def, err := area.New(area.Params{Projection: pp, PixelSize: units.Of("", 10)}, discardLogger())

		require.NoError(t, err)
		assert.False(t, def.Complete())
		_, _, err = def.LatLong(0, 0)
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("position to pixel round trip", func(t *testing.T) {
		t.Parallel()

		def, err := area.New(area.Params{
			Projection: pp,
			AreaExtent: units.Of("", -10000, -20000, 10000, 20000),
			Shape:      []int{4, 8},
		}, discardLogger())
		require.NoError(t, err)

		x, y := def.PixelToPos(1.5, 2.25)
		j, i := def.PosToPixel(x, y)
		assert.InDelta(t, 1.5, j, 1e-12)
		assert.InDelta(t, 2.25, i, 1e-12)
	})
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]area.Params{
		"angular pixel size": {PixelSize: units.Of("deg", 1)},
		"angular radius":     {Radius: units.Of("rad", 1)},
		"three pixel sizes":  {PixelSize: units.Of("", 1, 2, 3)},
		"negative pixel":     {PixelSize: units.Of("", -1)},
		"one value center":   {Center: units.Of("", 1)},
		"short extent":       {AreaExtent: units.Of("", 1, 2, 3)},
		"bad shape":          {Shape: []int{0, 3}},
		"bad units":          {Units: "furlong"},
		"bad projection":     {Projection: proj.Params{Name: "utm"}},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := area.New(p, discardLogger())
			assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
		})
	}
}

func TestInfo(t *testing.T) {
	t.Parallel()

	def, err := area.New(northParams(), discardLogger())
	require.NoError(t, err)

	info, err := def.Info()
	require.NoError(t, err)
	assert.Equal(t, "stere", info.Projection)
	assert.Equal(t, 60.0, info.LatTS)
	assert.Equal(t, 6378137.0, info.EquatorialRadius)
	assert.InDelta(t, 298.257223563, info.InverseFlattening, 1e-9)
	assert.Equal(t, []int{10, 10}, info.Shape)
	assert.Equal(t, []float64{5000, 5000}, info.PixelSize)
	require.Len(t, info.Center, 2)
	assert.InDelta(t, 40.0, info.Center[0], 1e-9)
	assert.InDelta(t, 10.0, info.Center[1], 1e-9)
	require.Len(t, info.AreaExtent, 4)

	fields := info.Fields()
	require.Len(t, fields, 11)
	assert.Equal(t, "projection", fields[0].Key)
	assert.Equal(t, "center", fields[10].Key)
}

func TestInfo_InvertedExtent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	def, err := area.New(area.Params{
		Projection: proj.Params{Lat0: 90},
		AreaExtent: units.Of("", 1e6, 1e6, -1e6, -1e6),
		Shape:      []int{2, 2},
	}, logger)
	require.NoError(t, err)

	_, err = def.Info()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Invalid area_extent")
}

func TestGridMapping(t *testing.T) {
	t.Parallel()

	def, err := area.New(area.Params{
		Projection: proj.Params{LatTS: 90, Lat0: 90},
		AreaExtent: units.Of("", -1000, -1000, 1000, 1000),
		Shape:      []int{2, 2},
	}, discardLogger())
	require.NoError(t, err)

	attrs, err := def.GridMapping()
	require.NoError(t, err)
	got := make(map[string]any, len(attrs))
	for _, f := range attrs {
		got[f.Key] = f.Value
	}
	assert.Equal(t, -180.0, got["straight_vertical_longitude_from_pole"])
	assert.InDelta(t, 1.0, got["scale_factor_at_projection_origin"], 1e-12)
	assert.Equal(t, 1000.0, got["resolution_at_standard_parallel"])
	assert.Equal(t, 90.0, got["latitude_of_projection_origin"])
	assert.InDelta(t, 6356752.314245179, got["semi_minor_axis"], 1e-6)
}
