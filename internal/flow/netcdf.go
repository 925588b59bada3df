package flow

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/rtm0/winds/internal/errs"
)

// ReadNetCDF reads the j_displacement and i_displacement variables of a
// NetCDF file, such as a wind_info.nc written by an earlier run. The
// variables are either 2-D (y, x) or a single pixel.
func ReadNetCDF(path string) (*Field, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer nc.Close()

	j, jShape, err := gridValues(nc, "j_displacement")
	if err != nil {
		return nil, err
	}
	i, iShape, err := gridValues(nc, "i_displacement")
	if err != nil {
		return nil, err
	}
	if len(j) != len(i) {
		return nil, errs.Errorf(errs.EINVALID, "%s: j and i displacements differ in size", path)
	}
	field := &Field{J: j, I: i}
	if jShape != nil && iShape != nil && jShape[0] == iShape[0] && jShape[1] == iShape[1] {
		field.Height, field.Width = jShape[0], jShape[1]
	}
	return field, nil
}

// gridValues flattens a variable to float64 in row-major order and returns
// its 2-D shape when it has one.
func gridValues(nc api.Group, name string) ([]float64, []int, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, nil, errs.Errorf(errs.EINVALID, "variable %s not found", name)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, nil, err
	}
	switch vals := v.(type) {
	case [][]float32:
		return flatten(vals), shapeOf(vals), nil
	case [][]float64:
		return flatten(vals), shapeOf(vals), nil
	case []float32:
		return widen(vals), nil, nil
	case []float64:
		return vals, nil, nil
	case float32:
		return []float64{float64(vals)}, []int{1, 1}, nil
	case float64:
		return []float64{vals}, []int{1, 1}, nil
	}
	return nil, nil, errs.Errorf(errs.EINVALID, "variable %s has unsupported type %T", name, v)
}

func flatten[T float32 | float64](rows [][]T) []float64 {
	var out []float64
	for _, row := range rows {
		out = append(out, widen(row)...)
	}
	return out
}

func widen[T float32 | float64](vals []T) []float64 {
	out := make([]float64, len(vals))
	for k, v := range vals {
		out[k] = float64(v)
	}
	return out
}

func shapeOf[T any](rows [][]T) []int {
	if len(rows) == 0 {
		return nil
	}
	return []int{len(rows), len(rows[0])}
}
