// Package units parses command-line quantities such as "4:km" or
// "40,-10:deg" and converts lengths to metres and angles to degrees.
package units

import (
	"math"
	"strconv"
	"strings"

	"github.com/rtm0/winds/internal/errs"
)

// Metres per unit of length.
var lengths = map[string]float64{
	"m":      1,
	"meter":  1,
	"meters": 1,
	"metre":  1,
	"metres": 1,
	"km":     1000,
	"dm":     0.1,
	"cm":     0.01,
	"mm":     0.001,
	"in":     0.0254,
	"ft":     0.3048,
	"us-ft":  1200.0 / 3937.0,
	"yd":     0.9144,
	"mi":     1609.344,
	"nmi":    1852,
}

// Degrees per unit of angle.
var angles = map[string]float64{
	"deg":     1,
	"degree":  1,
	"degrees": 1,
	"rad":     180 / math.Pi,
	"radian":  180 / math.Pi,
	"radians": 180 / math.Pi,
}

// Quantity is one or more numbers sharing an optional unit.
type Quantity struct {
	Values []float64
	Units  string
}

// Parse reads a quantity in the form "v1[,v2...][:units]". The units may
// also follow an "@". Brackets, parentheses and surrounding whitespace are
// ignored. An empty string or "none" yields the zero Quantity.
func Parse(s string) (Quantity, error) {
	s = strings.NewReplacer("(", "", ")", "", "[", "", "]", "").Replace(strings.TrimSpace(s))
	if s == "" || strings.EqualFold(s, "none") {
		return Quantity{}, nil
	}

	var q Quantity
	if idx := strings.IndexAny(s, ":@"); idx >= 0 {
		q.Units = strings.TrimSpace(s[idx+1:])
		s = s[:idx]
		if !Known(q.Units) {
			return Quantity{}, errs.Errorf(errs.EINVALID, "unknown units %q", q.Units)
		}
	}

	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Quantity{}, errs.Errorf(errs.EINVALID, "%q is not a number", field)
		}
		q.Values = append(q.Values, v)
	}
	if len(q.Values) == 0 {
		return Quantity{}, errs.Errorf(errs.EINVALID, "no values in %q", s)
	}
	return q, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so a Quantity can be
// used directly as a flag type.
func (q *Quantity) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// String renders the quantity in the form accepted by Parse.
func (q Quantity) String() string {
	parts := make([]string, len(q.Values))
	for i, v := range q.Values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strings.Join(parts, ",")
	if q.Units != "" {
		s += ":" + q.Units
	}
	return s
}

// IsZero reports whether the quantity was not provided.
func (q Quantity) IsZero() bool {
	return len(q.Values) == 0
}

// Of returns a quantity with the given values and units.
func Of(u string, values ...float64) Quantity {
	return Quantity{Values: values, Units: u}
}

// WithDefault returns q with units set to def when q has none.
func (q Quantity) WithDefault(def string) Quantity {
	if q.Units == "" {
		q.Units = def
	}
	return q
}

// Known reports whether u is a supported unit name.
func Known(u string) bool {
	u = strings.ToLower(u)
	_, length := lengths[u]
	_, angle := angles[u]
	return length || angle
}

// IsAngle reports whether u names an angular unit.
func IsAngle(u string) bool {
	_, ok := angles[strings.ToLower(u)]
	return ok
}

// ToMetres converts v in units u to metres. An empty unit means metres.
func ToMetres(v float64, u string) (float64, error) {
	if u == "" {
		return v, nil
	}
	f, ok := lengths[strings.ToLower(u)]
	if !ok {
		return 0, errs.Errorf(errs.EINVALID, "%q is not a unit of length", u)
	}
	return v * f, nil
}

// ToDegrees converts v in angular units u to degrees. An empty unit means
// degrees.
func ToDegrees(v float64, u string) (float64, error) {
	if u == "" {
		return v, nil
	}
	f, ok := angles[strings.ToLower(u)]
	if !ok {
		return 0, errs.Errorf(errs.EINVALID, "%q is not a unit of angle", u)
	}
	return v * f, nil
}
