// SPDX-License-Identifier: MIT

package fit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvfit/expr"
	"github.com/katalvlaran/lvfit/fitfunc"
)

// stepScale is the relative forward-difference step, √ε for float64.
const stepScale = 1.49e-8

// tie is a flattened tie compiled for repeated evaluation.
type tie struct {
	target int
	e      *expr.Expression
	refs   []int
}

// problem is the least-squares view of a function tree over a data set.
// Free parameters form the vector the driver moves; the full flat vector
// is rebuilt from it by projecting bounds and evaluating ties.
type problem struct {
	fn    fitfunc.Function
	flat  fitfunc.Flat
	free  []int
	ties  []tie
	data  Data
	w     []float64
	model []float64
}

func newProblem(ctx context.Context, fn fitfunc.Function, data Data, cost CostFunction) (*problem, error) {
	flat, err := fitfunc.FlattenContext(ctx, fn)
	if err != nil {
		return nil, err
	}
	p := &problem{
		fn:    fn,
		flat:  flat,
		free:  flat.FreeIndices(),
		data:  data,
		w:     weights(data, cost),
		model: make([]float64, len(data.X)),
	}
	for _, t := range flat.Ties {
		e, err := expr.Parse(t.Expr)
		if err != nil {
			return nil, err
		}
		ct := tie{target: flat.Index(t.Target), e: e}
		for _, ref := range e.References() {
			ct.refs = append(ct.refs, flat.Index(ref))
		}
		p.ties = append(p.ties, ct)
	}

	return p, nil
}

// weights returns the per-point residual weights for cost.
func weights(data Data, cost CostFunction) []float64 {
	w := make([]float64, len(data.X))
	for i := range w {
		w[i] = 1
		if cost == LeastSquares && data.E != nil && data.E[i] > 0 {
			w[i] = 1 / data.E[i]
		}
	}

	return w
}

// start returns the initial free vector, projected into its bounds.
func (p *problem) start() []float64 {
	out := make([]float64, len(p.free))
	for j, i := range p.free {
		out[j] = p.project(j, p.flat.Parameters[i].Value)
	}

	return out
}

func (p *problem) project(j int, v float64) float64 {
	if b := p.flat.Parameters[p.free[j]].Bound; b != nil {
		return b.Project(v)
	}

	return v
}

// expand writes the free vector into vals and evaluates ties in
// dependency order.
func (p *problem) expand(free, vals []float64) error {
	for i, fp := range p.flat.Parameters {
		vals[i] = fp.Value
	}
	for j, i := range p.free {
		vals[i] = free[j]
	}
	for _, t := range p.ties {
		scope := make(expr.Scope, len(t.refs))
		for _, r := range t.refs {
			scope[p.flat.Parameters[r].Name] = vals[r]
		}
		v, err := t.e.Eval(scope)
		if err != nil {
			return fitErrorf(err, "tie %s", p.flat.Parameters[t.target].Name)
		}
		vals[t.target] = v
	}

	return nil
}

// residuals fills r with w·(y - f(vals)) and returns chi² = Σr².
func (p *problem) residuals(vals, r []float64) (float64, error) {
	if err := p.fn.EvaluateWith(vals, p.data.X, p.model); err != nil {
		return 0, err
	}
	floats.SubTo(r, p.data.Y, p.model)
	floats.Mul(r, p.w)

	return floats.Dot(r, r), nil
}

// jacobian fills a (points × free) with ∂(w·f)/∂p by forward differences
// around free, whose residuals are r0. Steps that would leave an upper
// bound are taken backwards.
func (p *problem) jacobian(free, r0 []float64, a *mat.Dense) error {
	var (
		m     = len(r0)
		probe = make([]float64, len(free))
		vals  = make([]float64, len(p.flat.Parameters))
		rt    = make([]float64, m)
	)
	copy(probe, free)
	for j, v := range free {
		h := stepScale * math.Abs(v)
		if h == 0 {
			h = stepScale
		}
		if b := p.flat.Parameters[p.free[j]].Bound; b != nil && b.HasUpper && v+h > b.Upper {
			h = -h
		}
		probe[j] = v + h
		if err := p.expand(probe, vals); err != nil {
			return err
		}
		if _, err := p.residuals(vals, rt); err != nil {
			return err
		}
		probe[j] = v
		for i := 0; i < m; i++ {
			a.Set(i, j, (r0[i]-rt[i])/h)
		}
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
