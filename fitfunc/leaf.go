// SPDX-License-Identifier: MIT

package fitfunc

import (
	"github.com/katalvlaran/lvfit/expr"
)

// Leaf is a Function backed by a single Kernel. It owns the parameter
// values, their standard errors and the constraints declared against its
// local parameter names.
type Leaf struct {
	kernel Kernel
	names  []string
	index  map[string]int
	values []float64
	errs   []float64
	fixed  []bool
	ties   map[string]*expr.Expression
	bounds map[string]Bound
	parent *Composite
}

var _ Function = (*Leaf)(nil)

// NewLeaf wraps k, starting every parameter at its declared default and
// applying the kernel's default constraints when it is a Constrainer.
func NewLeaf(k Kernel) (*Leaf, error) {
	if k == nil {
		return nil, fitfuncErrorf(ErrInvalidKernel, "NewLeaf")
	}
	specs := k.Parameters()
	l := &Leaf{
		kernel: k,
		names:  make([]string, len(specs)),
		index:  make(map[string]int, len(specs)),
		values: make([]float64, len(specs)),
		errs:   make([]float64, len(specs)),
		fixed:  make([]bool, len(specs)),
		ties:   make(map[string]*expr.Expression),
		bounds: make(map[string]Bound),
	}
	for i, s := range specs {
		if _, dup := l.index[s.Name]; dup || s.Name == "" {
			return nil, fitfuncErrorf(ErrInvalidKernel, "%s: parameter %q", k.Name(), s.Name)
		}
		l.names[i] = s.Name
		l.index[s.Name] = i
		l.values[i] = s.Default
	}
	if c, ok := k.(Constrainer); ok {
		for _, src := range c.Constraints() {
			if err := l.Constrain(src); err != nil {
				return nil, fitfuncErrorf(err, "%s: default constraint", k.Name())
			}
		}
	}

	return l, nil
}

// Kernel returns the wrapped kernel.
func (l *Leaf) Kernel() Kernel { return l.kernel }

// Name returns the kernel name.
func (l *Leaf) Name() string { return l.kernel.Name() }

// Attributes returns the kernel attributes, or nil.
func (l *Leaf) Attributes() []Attribute {
	if a, ok := l.kernel.(Attributed); ok {
		return a.Attributes()
	}

	return nil
}

func (l *Leaf) NumParams() int { return len(l.names) }

func (l *Leaf) ParameterName(i int) (string, error) {
	if i < 0 || i >= len(l.names) {
		return "", fitfuncErrorf(ErrUnknownParameter, "%s: parameter index %d", l.Name(), i)
	}

	return l.names[i], nil
}

func (l *Leaf) ParameterNames() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)

	return out
}

func (l *Leaf) HasParameter(name string) bool {
	_, ok := l.index[name]

	return ok
}

// lookup returns the index of name or ErrUnknownParameter.
func (l *Leaf) lookup(name string) (int, error) {
	i, ok := l.index[name]
	if !ok {
		return 0, fitfuncErrorf(ErrUnknownParameter, "%s: %q", l.Name(), name)
	}

	return i, nil
}

func (l *Leaf) Parameter(name string) (float64, error) {
	i, err := l.lookup(name)
	if err != nil {
		return 0, err
	}

	return l.values[i], nil
}

func (l *Leaf) SetParameter(name string, v float64) error {
	i, err := l.lookup(name)
	if err != nil {
		return err
	}
	l.values[i] = v

	return nil
}

func (l *Leaf) ParameterError(name string) (float64, error) {
	i, err := l.lookup(name)
	if err != nil {
		return 0, err
	}

	return l.errs[i], nil
}

// Fix holds name at its current value. Fixing a tied parameter removes the tie.
func (l *Leaf) Fix(name string) error {
	i, err := l.lookup(name)
	if err != nil {
		return err
	}
	clearTie(l, name)
	l.fixed[i] = true

	return nil
}

// Unfix releases name; unfixing a free parameter is a no-op.
func (l *Leaf) Unfix(name string) error {
	i, err := l.lookup(name)
	if err != nil {
		return err
	}
	l.fixed[i] = false

	return nil
}

func (l *Leaf) IsFixed(name string) (bool, error) {
	i, err := l.lookup(name)
	if err != nil {
		return false, err
	}

	return l.fixed[i], nil
}

func (l *Leaf) FixAllParameters() {
	for _, name := range l.names {
		_ = l.Fix(name)
	}
}

// Tie binds name to expression, which may reference this leaf's other
// parameters. Any tie on name elsewhere in the tree is replaced and the
// parameter is unfixed.
func (l *Leaf) Tie(name, expression string) error {
	i, err := l.lookup(name)
	if err != nil {
		return err
	}
	e, err := parseTie(name, expression)
	if err != nil {
		return err
	}
	for _, ref := range e.References() {
		if !l.HasParameter(ref) {
			return fitfuncErrorf(ErrUnknownParameter, "tie %s=%s: %q", name, expression, ref)
		}
	}
	clearTie(l, name)
	l.fixed[i] = false
	l.ties[name] = e

	return nil
}

// TieMap applies every tie in ties, stopping at the first failure.
// Ties are applied in parameter order so the outcome is deterministic.
func (l *Leaf) TieMap(ties map[string]string) error {
	for name := range ties {
		if _, err := l.lookup(name); err != nil {
			return err
		}
	}
	for _, name := range l.names {
		if src, ok := ties[name]; ok {
			if err := l.Tie(name, src); err != nil {
				return err
			}
		}
	}

	return nil
}

// Untie removes the tie on name wherever it is held; a missing tie is ignored.
func (l *Leaf) Untie(name string) error {
	if _, err := l.lookup(name); err != nil {
		return err
	}
	clearTie(l, name)

	return nil
}

func (l *Leaf) UntieAllParameters() {
	for _, name := range l.names {
		clearTie(l, name)
	}
}

func (l *Leaf) Ties() []Tie {
	out := make([]Tie, 0, len(l.ties))
	for _, name := range l.names {
		if e, ok := l.ties[name]; ok {
			out = append(out, Tie{Target: name, Expr: e.String()})
		}
	}

	return out
}

// Constrain parses a comma-separated bound list and applies it. Either
// every bound is applied or none is. A new bound on a parameter replaces
// the previous one.
func (l *Leaf) Constrain(expressions string) error {
	bounds, err := ParseBounds(expressions)
	if err != nil {
		return err
	}

	return l.applyBounds(bounds)
}

func (l *Leaf) applyBounds(bounds []Bound) error {
	for _, b := range bounds {
		if _, err := l.lookup(b.Param); err != nil {
			return err
		}
	}
	for _, b := range bounds {
		l.bounds[b.Param] = b
	}

	return nil
}

// Unconstrain drops the bound on name; a missing bound is ignored.
func (l *Leaf) Unconstrain(name string) error {
	if _, err := l.lookup(name); err != nil {
		return err
	}
	delete(l.bounds, name)

	return nil
}

func (l *Leaf) Bound(name string) (Bound, bool, error) {
	if _, err := l.lookup(name); err != nil {
		return Bound{}, false, err
	}
	b, ok := l.bounds[name]

	return b, ok, nil
}

// Free removes both the tie and the bound on name.
func (l *Leaf) Free(name string) error {
	if err := l.Untie(name); err != nil {
		return err
	}

	return l.Unconstrain(name)
}

func (l *Leaf) Evaluate(x, out []float64) error {
	return l.kernel.Evaluate(l.values, x, out)
}

func (l *Leaf) EvaluateWith(values, x, out []float64) error {
	if len(values) != len(l.names) {
		return fitfuncErrorf(ErrValueCount, "%s: %d values for %d parameters",
			l.Name(), len(values), len(l.names))
	}

	return l.kernel.Evaluate(values, x, out)
}

func (l *Leaf) Parent() *Composite { return l.parent }

func (l *Leaf) setParent(c *Composite) { l.parent = c }

func (l *Leaf) String() string { return formatFunction(l) }

// parseTie parses a tie expression, mapping syntax errors to ErrInvalidConstraint.
func parseTie(target, src string) (*expr.Expression, error) {
	e, err := expr.Parse(src)
	if err != nil {
		return nil, fitfuncErrorf(ErrInvalidConstraint, "tie %s: %v", target, err)
	}

	return e, nil
}

// clearTie removes every tie on parameter name of l, at the leaf and at
// each enclosing composite.
func clearTie(l *Leaf, name string) {
	delete(l.ties, name)
	path := name
	var cur Function = l
	for p := l.parent; p != nil; p = p.parent {
		path = LocalPath(path, p.indexOf(cur))
		p.dropTie(path)
		cur = p
	}
}
