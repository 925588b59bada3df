package winds_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/flow"
	"github.com/rtm0/winds/internal/units"
	"github.com/rtm0/winds/internal/winds"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

// northList is 100 pixels whose k-th displacement is (10k, 20k).
func northList(t *testing.T) string {
	t.Helper()
	j, i := make([]float64, 100), make([]float64, 100)
	for k := range j {
		j[k], i[k] = float64(10*k), float64(20*k)
	}
	b, err := json.Marshal([][]float64{j, i})
	require.NoError(t, err)
	return string(b)
}

// northParams describes a 10x10 polar stereographic grid of 5 km pixels
// centred on (40, 10). The shape comes from the displacements.
func northParams(t *testing.T) winds.Params {
	return winds.Params{
		LatTS:         ptr(60.0),
		Lat0:          ptr(90.0),
		Long0:         ptr(20.0),
		DeltaTime:     100,
		Displacements: northList(t),
		Center:        units.Of("", 40, 10),
		PixelSize:     units.Of("", 5),
		Units:         "km",
	}
}

func southParams() winds.Params {
	j, i := make([]float64, 25), make([]float64, 25)
	for k := range j {
		j[k], i[k] = float64(10*k), float64(10*k)
	}
	return winds.Params{
		LatTS:     ptr(-60.0),
		Lat0:      ptr(-90.0),
		Long0:     ptr(20.0),
		DeltaTime: 100,
		Field:     &flow.Field{J: j, I: i},
		Center:    units.Of("deg", -40, 0),
		PixelSize: units.Of("m", 5000),
		Shape:     []int{5, 5},
	}
}

func TestWindInfo_Pixel(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		params winds.Params
		j, i   int
		want   winds.Record
	}{
		"north": {
			params: northParams(t),
			j:      8, i: 1,
			want: winds.Record{
				Latitude: 39.83916, Longitude: 9.85413, Speed: 1246.43686,
				Angle: 67.97448, V: 467.4381, U: 1155.46808,
			},
		},
		"south": {
			params: southParams(),
			j:      4, i: 1,
			want: winds.Record{
				Latitude: -40.06094, Longitude: -0.08385, Speed: 208.33805,
				Angle: 157.77175, V: -192.85523, U: 78.81372,
			},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := tt.params
			p.J, p.I = ptr(tt.j), ptr(tt.i)
			got, err := winds.NewCalculator(discardLogger()).WindInfo(p, winds.SaveOptions{NoSave: true})

			require.NoError(t, err)
			assert.Nil(t, got.Shape)
			assert.Empty(t, got.Dir)
			require.Len(t, got.Records, 1)
			r := got.Records[0]
			assert.InDelta(t, tt.want.Latitude, r.Latitude, 1e-5)
			assert.InDelta(t, tt.want.Longitude, r.Longitude, 1e-5)
			assert.InDelta(t, tt.want.Speed, r.Speed, 1e-5)
			assert.InDelta(t, tt.want.Angle, r.Angle, 1e-5)
			assert.InDelta(t, tt.want.V, r.V, 1e-4)
			assert.InDelta(t, tt.want.U, r.U, 1e-4)

			all, err := winds.NewCalculator(discardLogger()).WindInfo(tt.params, winds.SaveOptions{NoSave: true})
			require.NoError(t, err)
			require.NotNil(t, all.Shape)
			assert.Equal(t, r, all.Records[tt.j*all.Shape[1]+tt.i])
		})
	}
}

func TestVelocityAndVU(t *testing.T) {
	t.Parallel()

	calc := winds.NewCalculator(discardLogger())
	p := northParams(t)

	vel, err := calc.Velocity(p)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10}, vel.Shape)
	require.Len(t, vel.Values[0], 100)
	assert.InDelta(t, 1246.43686, vel.Values[0][81], 1e-5)
	assert.InDelta(t, 67.97448, vel.Values[1][81], 1e-5)
	// Pixel (0, 0) does not move.
	assert.Equal(t, 0.0, vel.Values[0][0])

	vu, err := calc.VU(p)
	require.NoError(t, err)
	assert.InDelta(t, 467.4381, vu.Values[0][81], 1e-4)
	assert.InDelta(t, 1155.46808, vu.Values[1][81], 1e-4)
}

func TestLatLong(t *testing.T) {
	t.Parallel()

	calc := winds.NewCalculator(discardLogger())

	p := northParams(t)
	p.J, p.I = ptr(8), ptr(1)
	old, err := calc.LatLong(p)
	require.NoError(t, err)
	assert.InDelta(t, 14.53051, old.Values[0][0], 1e-5)
	assert.InDelta(t, -60.99909, old.Values[1][0], 1e-5)

	// Without displacements the positions are the pixels' own.
	p.Displacements = ""
	p.Shape = []int{10, 10}
	pos, err := calc.LatLong(p)
	require.NoError(t, err)
	assert.InDelta(t, 39.83916, pos.Values[0][0], 1e-5)
	assert.InDelta(t, 9.85413, pos.Values[1][0], 1e-5)
}

func TestDisplacements(t *testing.T) {
	t.Parallel()

	calc := winds.NewCalculator(discardLogger())

	got, err := calc.Displacements(winds.Params{Displacements: "[[1, 2, 3, 4], [5, 6, 7, 8]]"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, got.Shape)
	assert.Equal(t, [2][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}}, got.Values)

	got, err = calc.Displacements(winds.Params{Displacements: "[[1, 2, 3, 4, 5, 6], [7, 8, 9, 10, 11, 12]]", Shape: []int{2, 3}, J: ptr(1), I: ptr(0)})
	require.NoError(t, err)
	assert.Nil(t, got.Shape)
	assert.Equal(t, [2][]float64{{4}, {10}}, got.Values)

	_, err = calc.Displacements(winds.Params{})
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestArea(t *testing.T) {
	t.Parallel()

	info, err := winds.NewCalculator(discardLogger()).Area(northParams(t))

	require.NoError(t, err)
	assert.Equal(t, []int{10, 10}, info.Shape)
	assert.Equal(t, []float64{5000, 5000}, info.PixelSize)
	assert.InDelta(t, 40.0, info.Center[0], 1e-9)
	assert.InDelta(t, 10.0, info.Center[1], 1e-9)
}

func TestArea_CenteredOnOrigin(t *testing.T) {
	t.Parallel()

	info, err := winds.NewCalculator(discardLogger()).Area(winds.Params{
		Lat0:      ptr(90.0),
		Long0:     ptr(0.0),
		PixelSize: units.Of("", 1000),
		Shape:     []int{4, 4},
	})

	require.NoError(t, err)
	assert.InDelta(t, 90.0, info.Center[0], 1e-9)
}

func TestArea_CylindricalDefaultLatTS(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"merc", "eqc"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			info, err := winds.NewCalculator(discardLogger()).Area(winds.Params{
				Projection: name,
				Lat0:       ptr(0.0),
				Long0:      ptr(0.0),
				Center:     units.Of("", 10, 10),
				PixelSize:  units.Of("", 1000),
				Shape:      []int{10, 10},
			})

			require.NoError(t, err)
			assert.Equal(t, 0.0, info.LatTS)
			assert.InDelta(t, 10.0, info.Center[0], 1e-6)
			assert.InDelta(t, 10.0, info.Center[1], 1e-6)
			assert.InDelta(t, 9.96, info.AreaExtent[0], 0.01)
			assert.InDelta(t, 10.04, info.AreaExtent[2], 0.01)
		})
	}
}

func TestPositionToPixel(t *testing.T) {
	t.Parallel()

	j, i, err := winds.NewCalculator(discardLogger()).PositionToPixel(northParams(t), 39.83916060902502, 9.854132443688258)

	require.NoError(t, err)
	assert.InDelta(t, 8.0, j, 1e-6)
	assert.InDelta(t, 1.0, i, 1e-6)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	calc := winds.NewCalculator(discardLogger())

	t.Run("missing origin", func(t *testing.T) {
		t.Parallel()

		p := northParams(t)
		p.Lat0 = nil
		_, err := calc.LatLong(p)
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("incomplete area", func(t *testing.T) {
		t.Parallel()

		p := northParams(t)
		p.Displacements = ""
		_, err := calc.LatLong(p)
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("zero delta time", func(t *testing.T) {
		t.Parallel()

		p := northParams(t)
		p.DeltaTime = 0
		_, err := calc.Velocity(p)
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("one-dimensional shape", func(t *testing.T) {
		t.Parallel()

		_, err := calc.Displacements(winds.Params{Displacements: "[[1, 2, 3, 4], [5, 6, 7, 8]]", Shape: []int{4}})
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("only j", func(t *testing.T) {
		t.Parallel()

		p := northParams(t)
		p.J = ptr(1)
		_, err := calc.VU(p)
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("pixel out of range", func(t *testing.T) {
		t.Parallel()

		p := northParams(t)
		p.J, p.I = ptr(10), ptr(0)
		_, err := calc.VU(p)
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("angular pixel size", func(t *testing.T) {
		t.Parallel()

		p := northParams(t)
		p.PixelSize = units.Of("deg", 1)
		_, err := calc.Velocity(p)
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		p := northParams(t)
		p.Displacements = filepath.Join(t.TempDir(), "missing.flo")
		_, err := calc.Velocity(p)
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
	})
}

func TestWindInfo_Save(t *testing.T) {
	t.Parallel()

	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("inline list", func(t *testing.T) {
		t.Parallel()

		parent := t.TempDir()
		got, err := winds.NewCalculator(discardLogger()).WindInfo(northParams(t), winds.SaveOptions{Directory: parent, Timestamp: ts})

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(parent, "list_output_20200102_030405"), got.Dir)
		for _, name := range []string{
			"polar_stereographic.txt", "j_displacement.txt", "i_displacement.txt",
			"new_latitude.txt", "new_longitude.txt", "old_latitude.txt", "old_longitude.txt",
			"speed.txt", "angle.txt", "v.txt", "u.txt", "wind_info.txt", "wind_info.nc",
		} {
			assert.FileExists(t, filepath.Join(got.Dir, name))
		}
		b, err := os.ReadFile(filepath.Join(got.Dir, "wind_info.txt"))
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(b)), "\n")
		assert.Len(t, lines, 100)
		assert.Equal(t, "39.84,9.85,1246.44,67.97,467.44,1155.47", lines[81])

		b, err = os.ReadFile(filepath.Join(got.Dir, "j_displacement.txt"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "0.00,10.00,20.00,"))
	})

	t.Run("flo file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		src := filepath.Join(dir, "pair.flo")
		p := southParams()
		require.NoError(t, flow.WriteFloFile(src, &flow.Field{Height: 5, Width: 5, J: p.Field.J, I: p.Field.I}))
		p.Field = nil
		p.Displacements = src
		p.J, p.I = ptr(4), ptr(1)

		got, err := winds.NewCalculator(discardLogger()).WindInfo(p, winds.SaveOptions{Directory: dir, Timestamp: ts})

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "pair.flo_output_20200102_030405"), got.Dir)
		b, err := os.ReadFile(filepath.Join(got.Dir, "wind_info.txt"))
		require.NoError(t, err)
		assert.Equal(t, "-40.06,-0.08,208.34,157.77,-192.86,78.81\n", string(b))
	})

	t.Run("missing file saves nothing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := northParams(t)
		p.Displacements = filepath.Join(dir, "missing.flo")

		_, err := winds.NewCalculator(discardLogger()).WindInfo(p, winds.SaveOptions{Directory: dir, Timestamp: ts})

		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("failure leaves no directory behind", func(t *testing.T) {
		t.Parallel()

		// The old position of the top row is pushed past the pole.
		dir := t.TempDir()
		p := winds.Params{
			Projection: "eqc",
			LatTS:      ptr(0.0),
			Lat0:       ptr(0.0),
			Long0:      ptr(0.0),
			DeltaTime:  100,
			Field:      &flow.Field{J: []float64{50, 50, 0, 0}, I: []float64{0, 0, 0, 0}},
			Center:     units.Of("deg", 89, 0),
			PixelSize:  units.Of("km", 100),
			Shape:      []int{2, 2},
		}

		_, err := winds.NewCalculator(discardLogger()).WindInfo(p, winds.SaveOptions{Directory: dir, Timestamp: ts})

		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("no displacements", func(t *testing.T) {
		t.Parallel()

		p := northParams(t)
		p.Displacements = ""
		p.Shape = []int{10, 10}

		_, err := winds.NewCalculator(discardLogger()).WindInfo(p, winds.SaveOptions{Directory: t.TempDir(), Timestamp: ts})

		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})
}

func TestOutputDir(t *testing.T) {
	t.Parallel()

	ts := time.Date(2019, 12, 31, 23, 59, 58, 0, time.UTC)
	assert.Equal(t, filepath.Join("out", "a.flo_output_20191231_235958"), winds.OutputDir("out", "/data/a.flo", ts))
	assert.Equal(t, filepath.Join("out", "list_output_20191231_235958"), winds.OutputDir("out", "[[1], [2]]", ts))
	assert.Equal(t, filepath.Join("out", "list_output_20191231_235958"), winds.OutputDir("out", "", ts))
}

func TestFLL(t *testing.T) {
	t.Parallel()

	track := winds.Track{
		OldLat: 14.530507763963618, OldLong: -60.999091673814945,
		NewLat: 39.83916060902502, NewLong: 9.854132443688258,
		DeltaTime: 100,
	}

	r, err := winds.WindInfoFLL(track)
	require.NoError(t, err)
	assert.Equal(t, track.NewLat, r.Latitude)
	assert.InDelta(t, 1246.436863693267, r.Speed, 1e-5)
	assert.InDelta(t, 67.97448346654694, r.Angle, 1e-6)

	speed, angle, err := winds.VelocityFLL(track)
	require.NoError(t, err)
	assert.Equal(t, r.Speed, speed)
	assert.Equal(t, r.Angle, angle)

	v, u, err := winds.VUFLL(track)
	require.NoError(t, err)
	assert.InDelta(t, 467.4380985994531, v, 1e-4)
	assert.InDelta(t, 1155.4680779455725, u, 1e-4)

	track.DeltaTime = -1
	_, err = winds.WindInfoFLL(track)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}
