package geo

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/units"
	"github.com/tidwall/geodesic"
)

// Ellipsoid is a reference ellipsoid defined by its semi-major axis A in
// metres and its flattening F.
type Ellipsoid struct {
	Name string
	A    float64
	F    float64

	geod *geodesic.Ellipsoid
}

// NewEllipsoid returns an ellipsoid with semi-major axis a (metres) and
// flattening f.
func NewEllipsoid(a, f float64) (Ellipsoid, error) {
	if a <= 0 {
		return Ellipsoid{}, errs.Errorf(errs.EINVALID, "invalid major axis of %v: must be positive", a)
	}
	if f < 0 || f >= 1 {
		return Ellipsoid{}, errs.Errorf(errs.EINVALID, "invalid flattening of %v: 0 <= flattening < 1", f)
	}
	return Ellipsoid{A: a, F: f, geod: geodesic.NewEllipsoid(a, f)}, nil
}

// B is the semi-minor axis in metres.
func (e Ellipsoid) B() float64 { return e.A * (1 - e.F) }

// Es is the first eccentricity squared.
func (e Ellipsoid) Es() float64 { return (2 - e.F) * e.F }

// E is the first eccentricity.
func (e Ellipsoid) E() float64 { return math.Sqrt(e.Es()) }

// InverseFlattening is 1/F, or 0 for a sphere.
func (e Ellipsoid) InverseFlattening() float64 {
	if e.F == 0 {
		return 0
	}
	return 1 / e.F
}

// String renders the ellipsoid the way PROJ init strings do.
func (e Ellipsoid) String() string {
	if e.Name != "" {
		return fmt.Sprintf("ellps=%s a=%v f=%v", e.Name, e.A, e.F)
	}
	return fmt.Sprintf("a=%v f=%v", e.A, e.F)
}

func (e Ellipsoid) geodesic() *geodesic.Ellipsoid {
	if e.geod == nil {
		return geodesic.NewEllipsoid(e.A, e.F)
	}
	return e.geod
}

// ellipsoids lists the named ellipsoids as (a, rf) or, when rf is zero,
// (a, b).
var ellipsoids = map[string]struct{ a, rf, b float64 }{
	"WGS84":    {a: 6378137.0, rf: 298.257223563},
	"GRS80":    {a: 6378137.0, rf: 298.257222101},
	"WGS72":    {a: 6378135.0, rf: 298.26},
	"WGS66":    {a: 6378145.0, rf: 298.25},
	"NWL9D":    {a: 6378145.0, rf: 298.25},
	"GRS67":    {a: 6378160.0, rf: 298.2471674270},
	"aust_SA":  {a: 6378160.0, rf: 298.25},
	"intl":     {a: 6378388.0, rf: 297.0},
	"krass":    {a: 6378245.0, rf: 298.3},
	"helmert":  {a: 6378200.0, rf: 298.3},
	"hough":    {a: 6378270.0, rf: 297.0},
	"fschr60":  {a: 6378166.0, rf: 298.3},
	"bessel":   {a: 6377397.155, rf: 299.1528128},
	"evrst30":  {a: 6377276.345, rf: 300.8017},
	"clrk80":   {a: 6378249.145, rf: 293.4663},
	"clrk66":   {a: 6378206.4, b: 6356583.8},
	"airy":     {a: 6377563.396, b: 6356256.910},
	"mod_airy": {a: 6377340.189, b: 6356034.446},
	"new_intl": {a: 6378157.5, b: 6356772.2},
	"sphere":   {a: 6370997.0, b: 6370997.0},
}

// WGS84 is the default Earth and projection ellipsoid.
var WGS84 = mustNamed("WGS84")

func mustNamed(name string) Ellipsoid {
	e, err := Named(name)
	if err != nil {
		panic(err)
	}
	return e
}

// Named returns one of the well-known ellipsoids by its PROJ name. Names
// are matched case-insensitively.
func Named(name string) (Ellipsoid, error) {
	for key, def := range ellipsoids {
		if !strings.EqualFold(key, name) {
			continue
		}
		f := 0.0
		if def.rf != 0 {
			f = 1 / def.rf
		} else {
			f = (def.a - def.b) / def.a
		}
		e, err := NewEllipsoid(def.a, f)
		if err != nil {
			return Ellipsoid{}, err
		}
		e.Name = key
		return e, nil
	}
	return Ellipsoid{}, errs.Errorf(errs.EINVALID, "unknown ellipsoid %q (known: %s)", name, strings.Join(EllipsoidNames(), ", "))
}

// EllipsoidNames returns the sorted names accepted by Named.
func EllipsoidNames() []string {
	names := make([]string, 0, len(ellipsoids))
	for name := range ellipsoids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var ellipsoidKeys = map[string]bool{"a": true, "b": true, "rf": true, "e": true, "f": true, "es": true}

// FromParams builds an ellipsoid from any combination of a, b, f, rf, e and
// es. Only a and b may carry units of length. When a is missing it is
// derived from b.
func FromParams(params map[string]units.Quantity, logger *slog.Logger) (Ellipsoid, error) {
	vals := make(map[string]float64, len(params))
	for key, q := range params {
		if !ellipsoidKeys[key] {
			logger.Warn("Invalid parameter passed to ellipsoid", "param", key)
			continue
		}
		if len(q.Values) != 1 {
			return Ellipsoid{}, errs.Errorf(errs.EINVALID, "ellipsoid parameter %s needs exactly one value", key)
		}
		v := q.Values[0]
		if q.Units != "" {
			if key == "a" || key == "b" {
				m, err := units.ToMetres(v, q.Units)
				if err != nil {
					return Ellipsoid{}, err
				}
				v = m
			} else {
				logger.Warn("Only a and b have units", "param", key, "units", q.Units)
			}
		}
		vals[key] = v
	}

	if rf, ok := vals["rf"]; ok {
		if rf == 0 {
			return Ellipsoid{}, errs.Errorf(errs.EINVALID, "invalid inverse flattening of 0")
		}
		vals["f"] = 1 / rf
	}
	if e, ok := vals["e"]; ok {
		vals["es"] = e * e
	}
	if f, ok := vals["f"]; ok && (f < 0 || f >= 1) {
		return Ellipsoid{}, errs.Errorf(errs.EINVALID, "invalid flattening of %v: 0 <= flattening < 1", f)
	}
	if es, ok := vals["es"]; ok && (es < 0 || es >= 1) {
		return Ellipsoid{}, errs.Errorf(errs.EINVALID, "invalid eccentricity of %v: 0 <= eccentricity < 1", es)
	}

	a, hasA := vals["a"]
	b, hasB := vals["b"]
	if !hasA {
		if !hasB {
			logger.Warn("Neither the major axis (a) nor the minor axis (b) were provided")
			return Ellipsoid{}, errs.Errorf(errs.EINVALID, "ellipsoid needs a major axis (a) or a minor axis (b)")
		}
		switch f, hasF := vals["f"]; {
		case hasF:
			a = b / (1 - f)
		case vals["es"] != 0:
			a = b / math.Sqrt(1-vals["es"])
		default:
			a = b
		}
	}

	var f float64
	if v, ok := vals["f"]; ok {
		f = v
	} else if hasB && hasA {
		f = (a - b) / a
	} else if es, ok := vals["es"]; ok {
		f = 1 - math.Sqrt(1-es)
	} else if hasB {
		f = (a - b) / a
	}
	return NewEllipsoid(a, f)
}

// Spec describes an ellipsoid on the command line: either a name such as
// "WGS84" or a list of parameters such as "a=6371:km,f=0".
type Spec struct {
	Name   string
	Params map[string]units.Quantity
}

// ParseSpec parses an ellipsoid description.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return Spec{}, nil
	}
	if !strings.Contains(s, "=") {
		return Spec{Name: s}, nil
	}

	spec := Spec{Params: make(map[string]units.Quantity)}
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			return Spec{}, errs.Errorf(errs.EINVALID, "ellipsoid parameter %q must look like key=value", field)
		}
		q, err := units.Parse(val)
		if err != nil {
			return Spec{}, err
		}
		spec.Params[strings.ToLower(strings.TrimSpace(key))] = q
	}
	return spec, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Spec) UnmarshalText(text []byte) error {
	v, err := ParseSpec(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsZero reports whether no ellipsoid was specified.
func (s Spec) IsZero() bool {
	return s.Name == "" && len(s.Params) == 0
}

// Ellipsoid resolves the spec, defaulting to WGS84.
func (s Spec) Ellipsoid(logger *slog.Logger) (Ellipsoid, error) {
	switch {
	case s.Name != "":
		return Named(s.Name)
	case len(s.Params) > 0:
		return FromParams(s.Params, logger)
	}
	return WGS84, nil
}
