// Package store persists computed wind variables. Variables are collected
// in memory and only written when the dataset is closed: each to its own
// comma-separated text file, and all of them to a single NetCDF file.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/rtm0/winds/internal/errs"
)

// NetCDFName is the file every variable is collected into.
const NetCDFName = "wind_info.nc"

// Attr is a variable attribute.
type Attr struct {
	Key   string
	Value any
}

type variable struct {
	name   string
	dims   []string
	values any
	attrs  []Attr
	text   string
}

// Dataset collects variables for one output directory.
type Dataset struct {
	dir    string
	vars   []variable
	names  map[string]bool
	logger *slog.Logger
}

// Create returns an empty dataset that will write into dir. Nothing
// touches the filesystem until Close.
func Create(dir string, logger *slog.Logger) (*Dataset, error) {
	if dir == "" {
		return nil, errs.Errorf(errs.EINVALID, "save directory required")
	}
	return &Dataset{dir: dir, names: make(map[string]bool), logger: logger}, nil
}

// Dir returns the output directory.
func (d *Dataset) Dir() string { return d.dir }

// AddGridMapping records a grid-mapping variable. Its text file lists the
// attributes as "key: value" lines.
func (d *Dataset) AddGridMapping(name string, attrs []Attr) error {
	lines := make([]string, len(attrs))
	for k, a := range attrs {
		lines[k] = fmt.Sprintf("%s: %v", a.Key, a.Value)
	}
	return d.add(variable{name: name, dims: []string{"grid_mapping"}, values: []int32{0}, attrs: attrs,
		text: strings.Join(lines, "\n")})
}

// AddGrid records row-major values of the given (height, width) shape. A
// single value is stored as one pixel regardless of shape.
func (d *Dataset) AddGrid(name string, values []float64, shape []int, attrs []Attr) error {
	if len(values) == 1 {
		return d.add(variable{name: name, dims: []string{"pixel"}, values: narrow(values), attrs: attrs,
			text: format(values[0])})
	}
	if len(shape) != 2 || shape[0]*shape[1] != len(values) {
		return errs.Errorf(errs.EINTERNAL, "%s: %d values do not fit shape %v", name, len(values), shape)
	}
	rows := make([][]float64, shape[0])
	for r := range rows {
		rows[r] = values[r*shape[1] : (r+1)*shape[1]]
	}
	return d.add(variable{name: name, dims: []string{"y", "x"}, values: narrowRows(rows), attrs: attrs,
		text: formatRows(rows)})
}

// AddTable records one row per pixel. A single row is stored as a vector.
func (d *Dataset) AddTable(name string, rows [][]float64, attrs []Attr) error {
	text := formatRows(rows)
	if len(rows) == 1 {
		return d.add(variable{name: name, dims: []string{"vars"}, values: narrow(rows[0]), attrs: attrs, text: text})
	}
	return d.add(variable{name: name, dims: []string{"yx", "vars"}, values: narrowRows(rows), attrs: attrs, text: text})
}

func (d *Dataset) add(v variable) error {
	if d.names[v.name] {
		return errs.Errorf(errs.EINTERNAL, "variable %s saved twice", v.name)
	}
	d.names[v.name] = true
	d.vars = append(d.vars, v)
	return nil
}

func (d *Dataset) writeText(name, text string) (err error) {
	path := filepath.Join(d.dir, name+".txt")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(text + "\n"); err != nil {
		return err
	}
	return w.Flush()
}

// Close creates the directory, including parents, and writes every
// variable as text and to wind_info.nc with CF-1.7 conventions. When
// writing fails, a directory Close created is removed again.
func (d *Dataset) Close() (err error) {
	_, statErr := os.Stat(d.dir)
	created := errors.Is(statErr, fs.ErrNotExist)
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("creating save directory: %w", err)
	}
	d.logger.Debug("Save directory created", "dir", d.dir)
	defer func() {
		if err != nil && created {
			d.logger.Warn("Removing incomplete save directory", "dir", d.dir)
			err = errors.Join(err, os.RemoveAll(d.dir))
		}
	}()

	for _, v := range d.vars {
		if err := d.writeText(v.name, v.text); err != nil {
			return err
		}
	}
	return d.writeNetCDF()
}

func (d *Dataset) writeNetCDF() (err error) {
	path := filepath.Join(d.dir, NetCDFName)
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, cw.Close())
	}()

	global, err := attributeMap([]Attr{{"Conventions", "CF-1.7"}})
	if err != nil {
		return err
	}
	if err := cw.AddGlobalAttrs(global); err != nil {
		return err
	}
	for _, v := range d.vars {
		attrs, err := attributeMap(v.attrs)
		if err != nil {
			return err
		}
		if err := cw.AddVar(v.name, api.Variable{Values: v.values, Dimensions: v.dims, Attributes: attrs}); err != nil {
			return fmt.Errorf("adding %s: %w", v.name, err)
		}
	}
	d.logger.Debug("Data saved successfully", "path", path, "variables", len(d.vars))
	return nil
}

func attributeMap(attrs []Attr) (api.AttributeMap, error) {
	keys := make([]string, len(attrs))
	vals := make(map[string]any, len(attrs))
	for k, a := range attrs {
		keys[k] = a.Key
		vals[a.Key] = a.Value
	}
	return util.NewOrderedMap(keys, vals)
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatRows(rows [][]float64) string {
	var sb strings.Builder
	for r, row := range rows {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c, v := range row {
			if c > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(format(v))
		}
	}
	return sb.String()
}

func narrow(values []float64) []float32 {
	out := make([]float32, len(values))
	for k, v := range values {
		out[k] = float32(v)
	}
	return out
}

func narrowRows(rows [][]float64) [][]float32 {
	out := make([][]float32, len(rows))
	for r, row := range rows {
		out[r] = narrow(row)
	}
	return out
}
