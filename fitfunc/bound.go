// SPDX-License-Identifier: MIT

package fitfunc

import (
	"math"
	"strconv"
	"strings"

	"github.com/katalvlaran/lvfit/expr"
)

// Bound is an inequality constraint on one parameter. Strict and non-strict
// comparisons are treated alike.
type Bound struct {
	Param    string
	Lower    float64
	Upper    float64
	HasLower bool
	HasUpper bool
}

// String renders the bound in the syntax Constrain accepts.
func (b Bound) String() string {
	switch {
	case b.HasLower && b.HasUpper:
		return formatFloat(b.Lower) + "<" + b.Param + "<" + formatFloat(b.Upper)
	case b.HasLower:
		return b.Param + ">" + formatFloat(b.Lower)
	case b.HasUpper:
		return b.Param + "<" + formatFloat(b.Upper)
	}

	return b.Param
}

// Contains reports whether v satisfies the bound.
func (b Bound) Contains(v float64) bool {
	return (!b.HasLower || v >= b.Lower) && (!b.HasUpper || v <= b.Upper)
}

// Project returns v clamped into the bound.
func (b Bound) Project(v float64) float64 {
	if b.HasLower {
		v = math.Max(v, b.Lower)
	}
	if b.HasUpper {
		v = math.Min(v, b.Upper)
	}

	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// comparison is one '<', '<=', '>' or '>=' found at the top level.
type comparison struct {
	at, width int
	less      bool
}

// ParseBounds parses a comma-separated list such as "0<A<10, Sigma>0".
// Each element names one parameter on its own side of the comparison; the
// other sides are constant expressions.
func ParseBounds(src string) ([]Bound, error) {
	items := expr.Split(src, ',')
	if len(items) == 0 {
		return nil, fitfuncErrorf(ErrInvalidConstraint, "empty constraint %q", src)
	}
	out := make([]Bound, 0, len(items))
	for _, item := range items {
		b, err := parseBound(item)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}

	return out, nil
}

func parseBound(src string) (Bound, error) {
	cmps := scanComparisons(src)
	if len(cmps) == 0 || len(cmps) > 2 {
		return Bound{}, fitfuncErrorf(ErrInvalidConstraint, "%q: want one or two comparisons", src)
	}
	if len(cmps) == 2 && cmps[0].less != cmps[1].less {
		return Bound{}, fitfuncErrorf(ErrInvalidConstraint, "%q: mixed comparison directions", src)
	}

	// Cut src into operands around the comparisons.
	operands := make([]string, 0, len(cmps)+1)
	last := 0
	for _, c := range cmps {
		operands = append(operands, strings.TrimSpace(src[last:c.at]))
		last = c.at + c.width
	}
	operands = append(operands, strings.TrimSpace(src[last:]))

	less := cmps[0].less
	var b Bound
	switch len(operands) {
	case 2:
		if name, ok := paramOperand(operands[0]); ok {
			v, err := constOperand(src, operands[1])
			if err != nil {
				return Bound{}, err
			}
			b = Bound{Param: name}
			b.setSide(!less, v) // p < v: upper; p > v: lower
		} else if name, ok := paramOperand(operands[1]); ok {
			v, err := constOperand(src, operands[0])
			if err != nil {
				return Bound{}, err
			}
			b = Bound{Param: name}
			b.setSide(less, v) // v < p: lower; v > p: upper
		} else {
			return Bound{}, fitfuncErrorf(ErrInvalidConstraint, "%q: no parameter operand", src)
		}
	case 3:
		name, ok := paramOperand(operands[1])
		if !ok {
			return Bound{}, fitfuncErrorf(ErrInvalidConstraint, "%q: middle operand must be a parameter", src)
		}
		left, err := constOperand(src, operands[0])
		if err != nil {
			return Bound{}, err
		}
		right, err := constOperand(src, operands[2])
		if err != nil {
			return Bound{}, err
		}
		b = Bound{Param: name}
		b.setSide(less, left)
		b.setSide(!less, right)
	}

	if b.HasLower && b.HasUpper && b.Lower > b.Upper {
		return Bound{}, fitfuncErrorf(ErrInvalidConstraint, "%q: empty range", src)
	}

	return b, nil
}

// setSide stores v as the lower bound when lower is true, else as the upper.
func (b *Bound) setSide(lower bool, v float64) {
	if lower {
		b.Lower, b.HasLower = v, true
		return
	}
	b.Upper, b.HasUpper = v, true
}

func scanComparisons(src string) []comparison {
	var cmps []comparison
	depth := 0
	for i := 0; i < len(src); i++ {
		switch ch := src[i]; ch {
		case '(':
			depth++
		case ')':
			depth--
		case '<', '>':
			if depth != 0 {
				continue
			}
			c := comparison{at: i, width: 1, less: ch == '<'}
			if i+1 < len(src) && src[i+1] == '=' {
				c.width = 2
				i++
			}
			cmps = append(cmps, c)
		}
	}

	return cmps
}

// paramOperand reports whether s is a bare parameter path.
func paramOperand(s string) (string, bool) {
	e, err := expr.Parse(s)
	if err != nil {
		return "", false
	}

	return e.Path()
}

func constOperand(src, s string) (float64, error) {
	v, err := expr.Constant(s)
	if err != nil {
		return 0, fitfuncErrorf(ErrInvalidConstraint, "%q: %v", src, err)
	}

	return v, nil
}
