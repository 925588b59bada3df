package flow

import (
	"encoding/json"
	"slices"

	"github.com/rtm0/winds/internal/errs"
)

// ParseList reads inline displacements with shape (2, n) or (2, y, x):
// the first entry holds j displacements and the second i displacements.
func ParseList(s string) (*Field, error) {
	var flat [][]float64
	if err := json.Unmarshal([]byte(s), &flat); err == nil {
		return listField(flat, nil)
	}

	var grid [][][]float64
	if err := json.Unmarshal([]byte(s), &grid); err != nil {
		return nil, errs.Errorf(errs.EINVALID, "displacement_data should have shape (2, y * x) or (2, y, x)")
	}
	if len(grid) != 2 {
		return nil, errs.Errorf(errs.EINVALID, "displacement_data should have shape (2, y * x) or (2, y, x), but has %d rows", len(grid))
	}
	flat = make([][]float64, 2)
	var shape []int
	for k, rows := range grid {
		for _, row := range rows {
			if len(row) != len(rows[0]) {
				return nil, errs.Errorf(errs.EINVALID, "displacement_data rows must all have the same length")
			}
			flat[k] = append(flat[k], row...)
		}
		var rowsShape []int
		if len(rows) > 0 {
			rowsShape = []int{len(rows), len(rows[0])}
		}
		if k > 0 && !slices.Equal(shape, rowsShape) {
			return nil, errs.Errorf(errs.EINVALID, "j and i displacements differ in shape: %v vs %v", shape, rowsShape)
		}
		shape = rowsShape
	}
	return listField(flat, shape)
}

func listField(flat [][]float64, shape []int) (*Field, error) {
	if len(flat) != 2 {
		return nil, errs.Errorf(errs.EINVALID, "displacement_data should have shape (2, y * x) or (2, y, x), but has %d rows", len(flat))
	}
	if len(flat[0]) != len(flat[1]) {
		return nil, errs.Errorf(errs.EINVALID, "j and i displacements differ in size: %d vs %d", len(flat[0]), len(flat[1]))
	}
	f := &Field{J: flat[0], I: flat[1]}
	if shape != nil {
		f.Height, f.Width = shape[0], shape[1]
	}
	return f, nil
}
