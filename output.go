package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rtm0/winds/internal/area"
	"github.com/rtm0/winds/internal/winds"
)

// round rounds v to precision decimal places.
func round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// formatFloat renders v rounded to precision. Whole numbers keep a ".0".
func formatFloat(v float64, precision int) string {
	s := strconv.FormatFloat(round(v, precision), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

// formatNested renders values as nested lists with the given dimensions,
// e.g. dims (2, 3) gives "[[a, b, c], [d, e, f]]".
func formatNested(values []float64, dims []int, precision int) string {
	var sb strings.Builder
	writeNested(&sb, values, dims, precision)
	return sb.String()
}

func writeNested(sb *strings.Builder, values []float64, dims []int, precision int) {
	sb.WriteByte('[')
	if len(dims) == 1 {
		for k, v := range values {
			if k > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatFloat(v, precision))
		}
	} else {
		step := len(values) / dims[0]
		for k := 0; k < dims[0]; k++ {
			if k > 0 {
				sb.WriteString(", ")
			}
			writeNested(sb, values[k*step:(k+1)*step], dims[1:], precision)
		}
	}
	sb.WriteByte(']')
}

func printPair(w io.Writer, p winds.Pair, precision int) {
	values := append(append([]float64{}, p.Values[0]...), p.Values[1]...)
	dims := []int{2}
	if p.Shape != nil {
		dims = []int{2, p.Shape[0], p.Shape[1]}
	}
	fmt.Fprintln(w, formatNested(values, dims, precision))
}

func printWinds(w io.Writer, out *winds.Winds, precision int) {
	values := make([]float64, 0, 6*len(out.Records))
	for _, r := range out.Records {
		values = append(values, r.Row()...)
	}
	dims := []int{6}
	if out.Shape != nil {
		dims = []int{out.Shape[0], out.Shape[1], 6}
	}
	fmt.Fprintln(w, formatNested(values, dims, precision))
}

func printValues(w io.Writer, precision int, values ...float64) {
	fmt.Fprintln(w, formatNested(values, []int{len(values)}, precision))
}

// printArea writes one "key: value" line per field. Eccentricity keeps at
// least six decimal places.
func printArea(w io.Writer, info area.Info, precision int) {
	for _, f := range info.Fields() {
		var val string
		switch v := f.Value.(type) {
		case string:
			val = v
		case float64:
			p := precision
			if f.Key == "eccentricity" {
				p = max(p, 6)
			}
			val = formatFloat(v, p)
		case []float64:
			val = "none"
			if v != nil {
				val = formatNested(v, []int{len(v)}, precision)
			}
		case []int:
			val = "none"
			if v != nil {
				val = strings.Join(strings.Fields(fmt.Sprint(v)), ", ")
			}
		default:
			val = fmt.Sprint(v)
		}
		fmt.Fprintf(w, "%s: %s\n", f.Key, val)
	}
}
