package expr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Variable is the name bound to the independent variable inside a Formula.
const Variable = "x"

// Formula is an expression of one independent variable x and a set of
// named parameters, e.g. "h*exp(-a*x)".
type Formula struct {
	expr   *Expression
	params []string
}

// CompileFormula parses src and collects its parameter names in order of
// first appearance. Dotted names are rejected.
func CompileFormula(src string) (*Formula, error) {
	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	f := &Formula{expr: e}
	for _, ref := range e.References() {
		if strings.Contains(ref, ".") {
			return nil, fmt.Errorf("%w: formula %q uses dotted name %q", ErrSyntax, src, ref)
		}
		if ref == Variable {
			continue
		}
		f.params = append(f.params, ref)
	}

	return f, nil
}

// String returns the formula source.
func (f *Formula) String() string { return f.expr.String() }

// Params returns the parameter names, excluding x.
func (f *Formula) Params() []string {
	out := make([]string, len(f.params))
	copy(out, f.params)

	return out
}

// Eval writes f(x[i]) into out[i] for the given parameter values, which
// are ordered as Params().
func (f *Formula) Eval(params, x, out []float64) error {
	if len(params) != len(f.params) {
		return fmt.Errorf("%w: formula %q wants %d parameters, got %d",
			ErrEval, f.expr.src, len(f.params), len(params))
	}
	if len(out) < len(x) {
		return fmt.Errorf("%w: output length %d < %d points", ErrEval, len(out), len(x))
	}

	vars := make(map[string]cty.Value, len(params)+1)
	for i, name := range f.params {
		v, err := numberVal(params[i])
		if err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		vars[name] = v
	}
	ctx := &hcl.EvalContext{Variables: vars, Functions: functions}

	for i, xi := range x {
		v, err := numberVal(xi)
		if err != nil {
			return fmt.Errorf("x[%d]: %w", i, err)
		}
		vars[Variable] = v
		y, err := f.expr.eval(ctx)
		if err != nil {
			return fmt.Errorf("x[%d]=%g: %w", i, xi, err)
		}
		out[i] = y
	}

	return nil
}
