// Package flow reads the per-pixel displacements produced by optical-flow
// tools. Displacements are measured in pixels: j rows down and i columns
// to the right of where a feature was in the earlier image.
package flow

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rtm0/winds/internal/errs"
)

// Field holds row-major displacements. Height and Width are zero when the
// source did not carry a shape.
type Field struct {
	Height int
	Width  int
	J      []float64
	I      []float64
}

// Len returns the number of pixels in the field.
func (f *Field) Len() int { return len(f.J) }

// Shape returns (height, width), or nil when unknown.
func (f *Field) Shape() []int {
	if f.Height == 0 || f.Width == 0 {
		return nil
	}
	return []int{f.Height, f.Width}
}

// At returns the displacement of pixel (j, i).
func (f *Field) At(j, i int) (dj, di float64) {
	k := j*f.Width + i
	return f.J[k], f.I[k]
}

// CheckShape reports an error unless shape is nil or two positive
// integers (height, width).
func CheckShape(shape []int) error {
	if shape != nil && (len(shape) != 2 || shape[0] <= 0 || shape[1] <= 0) {
		return errs.Errorf(errs.EINVALID, "shape must be two positive integers (height, width) but was %v", shape)
	}
	return nil
}

// Resolve settles the field's shape. A requested shape wins over the
// source's own, with a warning when they disagree. Without either, the
// field is assumed to be square.
func (f *Field) Resolve(shape []int, logger *slog.Logger) error {
	if len(f.J) != len(f.I) {
		return errs.Errorf(errs.EINVALID, "j and i displacements differ in size: %d vs %d", len(f.J), len(f.I))
	}
	if err := CheckShape(shape); err != nil {
		return err
	}
	switch {
	case shape != nil && f.Shape() != nil && (shape[0] != f.Height || shape[1] != f.Width):
		logger.Warn("Shape from area or provided by user does not match the shape of the file",
			"shape", shape, "fileShape", f.Shape())
		f.Height, f.Width = shape[0], shape[1]
	case shape != nil:
		f.Height, f.Width = shape[0], shape[1]
	case f.Shape() != nil:
		logger.Debug("Native shape of file found", "shape", f.Shape())
	default:
		logger.Info("No shape could be found, attempting to find square shape of data")
		side := math.Sqrt(float64(len(f.J)))
		if side != math.Trunc(side) {
			return errs.Errorf(errs.EINVALID,
				"shape was not provided and %d pixels do not make a square", len(f.J))
		}
		f.Height, f.Width = int(side), int(side)
	}
	if f.Height != f.Width {
		logger.Debug("Shape given or found is not square", "shape", f.Shape())
	}
	if f.Height <= 0 || f.Width <= 0 || f.Height*f.Width != len(f.J) {
		return errs.Errorf(errs.EINVALID, "could not reshape displacement data of size %d to shape %v",
			len(f.J), []int{f.Height, f.Width})
	}
	return nil
}

// Load reads displacements from source, which is either a file path or an
// inline list such as "[[1, 2], [3, 4]]". Files ending in ".nc" are read
// as NetCDF; anything else as Middlebury .flo.
func Load(source string, logger *slog.Logger) (*Field, error) {
	if IsInline(source) {
		logger.Debug("Reading displacements from a list")
		return ParseList(strings.TrimSpace(source))
	}
	if _, err := os.Stat(source); err != nil {
		return nil, errs.Errorf(errs.ENOTFOUND, "displacement data %s not found", source)
	}
	logger.Info("Reading displacements", "path", source)
	if strings.EqualFold(filepath.Ext(source), ".nc") {
		return ReadNetCDF(source)
	}
	return ReadFloFile(source, logger)
}

// IsInline reports whether source is an inline list rather than a path.
func IsInline(source string) bool {
	return strings.HasPrefix(strings.TrimSpace(source), "[")
}

// Pixel is a single (row, column) selection.
type Pixel struct {
	J int
	I int
}

// SelectPixel validates an optional pixel selection against shape. Both
// or neither of j and i must be set; nil means every pixel.
func SelectPixel(j, i *int, shape []int) (*Pixel, error) {
	if j == nil && i == nil {
		return nil, nil
	}
	if j == nil || i == nil {
		return nil, errs.Errorf(errs.EINVALID, "i and j must both be integers or both be unset")
	}
	if *j < 0 {
		return nil, errs.Errorf(errs.EINVALID, "j must be a positive integer")
	}
	if *i < 0 {
		return nil, errs.Errorf(errs.EINVALID, "i must be a positive integer")
	}
	if err := CheckShape(shape); err != nil {
		return nil, err
	}
	if shape != nil {
		if *j >= shape[0] {
			return nil, errs.Errorf(errs.EINVALID, "index %d is out of bounds for vertical axis with size %d", *j, shape[0])
		}
		if *i >= shape[1] {
			return nil, errs.Errorf(errs.EINVALID, "index %d is out of bounds for horizontal axis with size %d", *i, shape[1])
		}
	}
	return &Pixel{J: *j, I: *i}, nil
}
