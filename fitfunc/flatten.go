// SPDX-License-Identifier: MIT

package fitfunc

import (
	"context"
	"errors"
	"strconv"

	"github.com/katalvlaran/lvfit/core"
	"github.com/katalvlaran/lvfit/dfs"
	"github.com/katalvlaran/lvfit/expr"
)

// FlatParameter is one entry of the flattened parameter vector.
type FlatParameter struct {
	Name  string
	Value float64
	// Free is false when the parameter is fixed or tied.
	Free  bool
	Fixed bool
	Tied  bool
	Bound *Bound
}

// Flat is the resolved form of a function tree handed to a fit driver.
// Parameters are in depth-first, child-index ascending, declared order.
// Ties are fully qualified and ordered so that every tie comes after the
// ties its expression depends on.
type Flat struct {
	Parameters []FlatParameter
	Ties       []Tie
}

// Index returns the position of name in Parameters, or -1.
func (f Flat) Index(name string) int {
	for i, p := range f.Parameters {
		if p.Name == name {
			return i
		}
	}

	return -1
}

// Values returns the parameter values in flat order.
func (f Flat) Values() []float64 {
	out := make([]float64, len(f.Parameters))
	for i, p := range f.Parameters {
		out[i] = p.Value
	}

	return out
}

// FreeIndices returns the positions of the free parameters.
func (f Flat) FreeIndices() []int {
	var out []int
	for i, p := range f.Parameters {
		if p.Free {
			out = append(out, i)
		}
	}

	return out
}

// Flatten resolves fn into its flat parameter list and qualified ties.
// A tie whose target or references do not resolve fails with
// ErrUnknownParameter; self-referencing or cyclic ties fail with
// ErrInvalidConstraint and name the cycle.
func Flatten(fn Function) (Flat, error) {
	return FlattenContext(context.Background(), fn)
}

// FlattenContext is Flatten with a context that cancels tie ordering.
func FlattenContext(ctx context.Context, fn Function) (Flat, error) {
	if isNilFunction(fn) {
		return Flat{}, fitfuncErrorf(ErrInvalidChild, "Flatten: nil function")
	}
	var flat Flat
	flattenInto(fn, "", &flat)

	// Stage 1: index parameters by qualified name.
	index := make(map[string]int, len(flat.Parameters))
	for i, p := range flat.Parameters {
		index[p.Name] = i
	}

	// Stage 2: validate ties and build the dependency graph.
	g := core.NewGraph(core.WithDirected(true), core.WithLoops())
	byTarget := make(map[string]Tie, len(flat.Ties))
	refs := make(map[string][]string, len(flat.Ties))
	for _, t := range flat.Ties {
		i, ok := index[t.Target]
		if !ok {
			return Flat{}, fitfuncErrorf(ErrUnknownParameter, "tie target %q", t.Target)
		}
		if _, dup := byTarget[t.Target]; dup {
			return Flat{}, fitfuncErrorf(ErrInvalidConstraint, "%q is tied twice", t.Target)
		}
		e, err := expr.Parse(t.Expr)
		if err != nil {
			return Flat{}, fitfuncErrorf(ErrInvalidConstraint, "tie %s: %v", t, err)
		}
		for _, ref := range e.References() {
			if _, ok := index[ref]; !ok {
				return Flat{}, fitfuncErrorf(ErrUnknownParameter, "tie %s: %q", t, ref)
			}
		}
		byTarget[t.Target] = t
		refs[t.Target] = e.References()
		flat.Parameters[i].Tied = true
		_ = g.AddVertex(t.Target)
	}
	for _, t := range flat.Ties {
		for _, ref := range refs[t.Target] {
			if _, tied := byTarget[ref]; tied {
				if _, err := g.AddEdge(ref, t.Target); err != nil {
					return Flat{}, fitfuncErrorf(ErrInvalidConstraint, "tie %s: %v", t, err)
				}
			}
		}
	}

	// Stage 3: order ties so dependencies come first.
	order, err := dfs.TopologicalSort(g, dfs.WithCancelContext(ctx))
	if err != nil {
		if errors.Is(err, dfs.ErrCycleDetected) {
			return Flat{}, fitfuncErrorf(ErrInvalidConstraint, "cyclic ties: %v", err)
		}
		return Flat{}, err
	}
	flat.Ties = flat.Ties[:0]
	for _, target := range order {
		flat.Ties = append(flat.Ties, byTarget[target])
	}

	for i := range flat.Parameters {
		p := &flat.Parameters[i]
		p.Free = !p.Fixed && !p.Tied
	}

	return flat, nil
}

// flattenInto appends the parameters and ties of fn, qualified with prefix.
func flattenInto(fn Function, prefix string, flat *Flat) {
	switch f := fn.(type) {
	case *Leaf:
		for i, name := range f.names {
			p := FlatParameter{Name: prefix + name, Value: f.values[i], Fixed: f.fixed[i]}
			if b, ok := f.bounds[name]; ok {
				b.Param = p.Name
				p.Bound = &b
			}
			flat.Parameters = append(flat.Parameters, p)
		}
		for _, name := range f.names {
			if e, ok := f.ties[name]; ok {
				flat.Ties = append(flat.Ties, Tie{Target: prefix + name, Expr: e.Qualify(prefix)})
			}
		}
	case *Composite:
		for _, t := range f.ties {
			flat.Ties = append(flat.Ties, Tie{Target: prefix + t.target, Expr: t.e.Qualify(prefix)})
		}
		for i, ch := range f.children {
			flattenInto(ch, prefix+"f"+strconv.Itoa(i)+".", flat)
		}
	}
}

// FittedParameter is one fitted value reported by a fit driver.
type FittedParameter struct {
	Name  string
	Value float64
	Error float64
}

// slot addresses one stored parameter.
type slot struct {
	leaf *Leaf
	i    int
}

func slotsOf(fn Function, out []slot) []slot {
	switch f := fn.(type) {
	case *Leaf:
		for i := range f.names {
			out = append(out, slot{leaf: f, i: i})
		}
	case *Composite:
		for _, ch := range f.children {
			out = slotsOf(ch, out)
		}
	}

	return out
}

// Apply writes fitted values and standard errors back into fn. fitted must
// list every parameter in Flatten order; nothing is written on mismatch.
func Apply(fn Function, fitted []FittedParameter) error {
	if isNilFunction(fn) {
		return fitfuncErrorf(ErrInvalidChild, "Apply: nil function")
	}
	names := fn.ParameterNames()
	if len(fitted) != len(names) {
		return fitfuncErrorf(ErrValueCount, "Apply: %d results for %d parameters", len(fitted), len(names))
	}
	for i, p := range fitted {
		if p.Name != names[i] {
			return fitfuncErrorf(ErrUnknownParameter, "Apply: result %d is %q, want %q", i, p.Name, names[i])
		}
	}
	for i, s := range slotsOf(fn, make([]slot, 0, len(names))) {
		s.leaf.values[s.i] = fitted[i].Value
		s.leaf.errs[s.i] = fitted[i].Error
	}

	return nil
}
