package store_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readText(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name+".txt"))
	require.NoError(t, err)
	return string(b)
}

func TestDataset(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	ds, err := store.Create(dir, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, dir, ds.Dir())

	require.NoError(t, ds.AddGridMapping("polar_stereographic", []store.Attr{
		{Key: "latitude_of_projection_origin", Value: 90.0},
		{Key: "false_easting", Value: 0.0},
	}))
	require.NoError(t, ds.AddGrid("speed", []float64{1, 2.346, 3, 4, 5, 6.004}, []int{2, 3}, []store.Attr{
		{Key: "units", Value: "m/s"},
	}))
	require.NoError(t, ds.AddTable("wind_info", [][]float64{{1, 2}, {3, 4}}, nil))
	require.NoError(t, ds.Close())

	assert.Equal(t, "latitude_of_projection_origin: 90\nfalse_easting: 0\n", readText(t, dir, "polar_stereographic"))
	assert.Equal(t, "1.00,2.35,3.00\n4.00,5.00,6.00\n", readText(t, dir, "speed"))
	assert.Equal(t, "1.00,2.00\n3.00,4.00\n", readText(t, dir, "wind_info"))

	nc, err := netcdf.Open(filepath.Join(dir, store.NetCDFName))
	require.NoError(t, err)
	defer nc.Close()

	conventions, ok := nc.Attributes().Get("Conventions")
	require.True(t, ok)
	assert.Equal(t, "CF-1.7", conventions)

	speed, err := nc.GetVariable("speed")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, speed.Dimensions)
	assert.Equal(t, [][]float32{{1, 2.346, 3}, {4, 5, 6.004}}, speed.Values)
	units, ok := speed.Attributes.Get("units")
	require.True(t, ok)
	assert.Equal(t, "m/s", units)

	gm, err := nc.GetVariable("polar_stereographic")
	require.NoError(t, err)
	origin, ok := gm.Attributes.Get("latitude_of_projection_origin")
	require.True(t, ok)
	assert.Equal(t, 90.0, origin)
}

func TestDataset_SinglePixel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ds, err := store.Create(dir, discardLogger())
	require.NoError(t, err)

	require.NoError(t, ds.AddGrid("v", []float64{-1.234}, []int{5, 5}, nil))
	require.NoError(t, ds.AddTable("wind_info", [][]float64{{1, 2, 3, 4, 5, 6}}, nil))
	require.NoError(t, ds.Close())

	assert.Equal(t, "-1.23\n", readText(t, dir, "v"))
	assert.Equal(t, "1.00,2.00,3.00,4.00,5.00,6.00\n", readText(t, dir, "wind_info"))

	nc, err := netcdf.Open(filepath.Join(dir, store.NetCDFName))
	require.NoError(t, err)
	defer nc.Close()

	info, err := nc.GetVariable("wind_info")
	require.NoError(t, err)
	assert.Equal(t, []string{"vars"}, info.Dimensions)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, info.Values)
}

func TestDataset_WritesOnClose(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	ds, err := store.Create(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, ds.AddGrid("speed", []float64{1, 2}, []int{1, 2}, nil))

	assert.NoDirExists(t, dir)
	require.NoError(t, ds.Close())
	assert.Equal(t, "1.00,2.00\n", readText(t, dir, "speed"))
}

func TestDataset_FailedCloseRemovesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	ds, err := store.Create(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, ds.AddGrid("speed", []float64{1, 2}, []int{1, 2}, nil))
	require.NoError(t, ds.AddGrid(filepath.Join("missing", "angle"), []float64{3, 4}, []int{1, 2}, nil))

	require.Error(t, ds.Close())
	assert.NoDirExists(t, dir)
}

func TestDataset_Invalid(t *testing.T) {
	t.Parallel()

	ds, err := store.Create(t.TempDir(), discardLogger())
	require.NoError(t, err)

	err = ds.AddGrid("speed", []float64{1, 2, 3}, []int{2, 2}, nil)
	assert.Equal(t, errs.EINTERNAL, errs.ErrorCode(err))

	require.NoError(t, ds.AddGrid("angle", []float64{1, 2}, []int{1, 2}, nil))
	err = ds.AddGrid("angle", []float64{1, 2}, []int{1, 2}, nil)
	assert.Equal(t, errs.EINTERNAL, errs.ErrorCode(err))
}
