// SPDX-License-Identifier: MIT

package fit

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvfit/ctxlog"
	"github.com/katalvlaran/lvfit/fitfunc"
	"github.com/katalvlaran/lvfit/matrix"
)

// Data is a one-dimensional data set. E holds the standard errors of Y
// and may be nil.
type Data struct {
	X, Y, E []float64
}

// Status tells why the iteration stopped.
type Status string

const (
	// StatusConverged: the relative chi² decrease or the relative step
	// fell below the tolerance.
	StatusConverged Status = "converged"

	// StatusStalled: no step reduced chi² before the damping limit.
	// The parameters are at a (possibly local) minimum to working precision.
	StatusStalled Status = "stalled"

	// StatusMaxIterations: the iteration budget ran out.
	StatusMaxIterations Status = "max iterations"
)

// Result reports a finished fit.
type Result struct {
	// Parameters holds every parameter in Flatten order. Fixed and tied
	// parameters report a zero error.
	Parameters []fitfunc.FittedParameter

	// Covariance is n×n in Flatten order; rows and columns of non-free
	// parameters are zero.
	Covariance *matrix.Dense
	// Correlation is Covariance normalised to unit diagonal.
	Correlation *matrix.Dense

	ChiSquared        float64
	ReducedChiSquared float64
	Iterations        int
	Status            Status
}

// Fit minimises the weighted sum of squared residuals of fn over data with
// the Levenberg–Marquardt method.
//
// Only free parameters move. Bounds are enforced by projection after every
// step and ties are re-evaluated in dependency order, so the function sees
// a consistent parameter vector on every evaluation. Unless WithoutApply is
// given, fitted values and errors are written back into fn.
//
// Errors: ErrBadData, ErrNoFreeParameters, ErrNotFinite,
// ErrSingularJacobian, the context's error, and fitfunc errors from
// flattening or evaluating fn.
func Fit(ctx context.Context, fn fitfunc.Function, data Data, opts ...Option) (*Result, error) {
	o := gatherOptions(opts...)
	log := ctxlog.FromContext(ctx)

	// Stage 1: validate data and resolve the tree.
	if err := data.validate(); err != nil {
		return nil, err
	}
	p, err := newProblem(ctx, fn, data, o.cost)
	if err != nil {
		return nil, err
	}
	m, k := len(data.X), len(p.free)
	if k == 0 {
		return nil, ErrNoFreeParameters
	}
	if m < k {
		return nil, fitErrorf(ErrBadData, "%d points for %d free parameters", m, k)
	}

	// Stage 2: starting point.
	params := p.start()
	vals := make([]float64, len(p.flat.Parameters))
	if err = p.expand(params, vals); err != nil {
		return nil, err
	}
	r := make([]float64, m)
	chi2, err := p.residuals(vals, r)
	if err != nil {
		return nil, err
	}
	if !finite(chi2) {
		return nil, fitErrorf(ErrNotFinite, "chi² at the starting point")
	}
	log.Debug("Starting fit", "points", m, "free", k, "cost", o.cost.String(), "chi2", chi2)

	// Stage 3: iterate.
	res := &Result{Status: StatusMaxIterations}
	var (
		a      = mat.NewDense(m, k, nil)
		diag   = make([]float64, k)
		trial  = make([]float64, k)
		tvals  = make([]float64, len(vals))
		rt     = make([]float64, m)
		lambda = o.damping
	)
	if chi2 == 0 {
		res.Status = StatusConverged
	}
iterate:
	for res.Status == StatusMaxIterations && res.Iterations < o.maxIterations {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		res.Iterations++
		if err = p.jacobian(params, r, a); err != nil {
			return nil, err
		}
		updateScale(a, diag)

		for {
			delta, err := dampedStep(a, r, diag, lambda)
			if err == nil {
				floats.AddTo(trial, params, delta)
				chi2t, ok := p.try(trial, tvals, rt)
				if ok && chi2t < chi2 {
					step := floats.Distance(trial, params, 2)
					decrease := (chi2 - chi2t) / chi2
					copy(params, trial)
					copy(vals, tvals)
					copy(r, rt)
					chi2 = chi2t
					lambda = math.Max(lambda/10, math.SmallestNonzeroFloat64)
					log.Debug("Fit iteration", "iteration", res.Iterations, "chi2", chi2, "lambda", lambda)
					if decrease <= o.tolerance || step <= o.tolerance*(floats.Norm(params, 2)+o.tolerance) || chi2 == 0 {
						res.Status = StatusConverged
					}
					continue iterate
				}
			}
			lambda *= 10
			if lambda > maxDamping {
				res.Status = StatusStalled
				break iterate
			}
		}
	}

	// Stage 4: covariance at the solution.
	if err = p.jacobian(params, r, a); err != nil {
		return nil, err
	}
	dof := max(m-k, 1)
	scale := 1.0
	if o.cost == UnweightedLeastSquares {
		scale = chi2 / float64(dof)
	}
	res.Covariance, err = p.covariance(a, scale)
	if err != nil {
		return nil, err
	}

	if res.Correlation, err = matrix.Correlation(res.Covariance); err != nil {
		return nil, err
	}
	res.ChiSquared = chi2
	res.ReducedChiSquared = chi2 / float64(dof)
	res.Parameters = make([]fitfunc.FittedParameter, len(vals))
	for i, fp := range p.flat.Parameters {
		v, _ := res.Covariance.At(i, i)
		res.Parameters[i] = fitfunc.FittedParameter{Name: fp.Name, Value: vals[i], Error: math.Sqrt(v)}
	}
	log.Info("Fit finished",
		"status", string(res.Status), "iterations", res.Iterations,
		"chi2", res.ChiSquared, "reduced_chi2", res.ReducedChiSquared)

	if o.apply {
		if err = fitfunc.Apply(fn, res.Parameters); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// try projects the trial point into its bounds and returns its chi².
// ok is false when the model cannot be evaluated there.
func (p *problem) try(trial, vals, r []float64) (float64, bool) {
	for j := range trial {
		trial[j] = p.project(j, trial[j])
	}
	if err := p.expand(trial, vals); err != nil {
		return 0, false
	}
	chi2, err := p.residuals(vals, r)
	if err != nil || !finite(chi2) {
		return 0, false
	}

	return chi2, true
}

// updateScale keeps diag[j] at the largest column norm of a seen so far.
// A column that has never moved the model gets scale 1.
func updateScale(a *mat.Dense, diag []float64) {
	for j := range diag {
		diag[j] = math.Max(diag[j], floats.Norm(mat.Col(nil, j, a), 2))
		if diag[j] == 0 {
			diag[j] = 1
		}
	}
}

// dampedStep solves min ‖aδ - r‖² + λ‖Dδ‖² as the least-squares problem
// [a; √λ·D] δ = [r; 0].
func dampedStep(a *mat.Dense, r, diag []float64, lambda float64) ([]float64, error) {
	m, k := a.Dims()
	aug := mat.NewDense(m+k, k, nil)
	b := mat.NewVecDense(m+k, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < k; j++ {
			aug.Set(i, j, a.At(i, j))
		}
		b.SetVec(i, r[i])
	}
	sl := math.Sqrt(lambda)
	for j := 0; j < k; j++ {
		aug.Set(m+j, j, sl*diag[j])
	}

	qr := new(mat.QR)
	qr.Factorize(aug)
	var delta mat.VecDense
	if err := qr.SolveVecTo(&delta, false, b); err != nil {
		return nil, err
	}
	out := make([]float64, k)
	for j := range out {
		out[j] = delta.AtVec(j)
		if !finite(out[j]) {
			return nil, errStepNotFinite
		}
	}

	return out, nil
}

// covariance returns scale·(aᵀa)⁻¹ spread over the flat parameter order.
// The normal matrix is equilibrated to unit diagonal before inversion.
func (p *problem) covariance(a *mat.Dense, scale float64) (*matrix.Dense, error) {
	m, k := a.Dims()
	jac, err := matrix.NewDenseFrom(m, k, a.RawMatrix().Data)
	if err != nil {
		return nil, err
	}
	jt, err := matrix.Transpose(jac)
	if err != nil {
		return nil, err
	}
	normal, err := matrix.Mul(jt, jac)
	if err != nil {
		return nil, err
	}

	s := make([]float64, k)
	for j, d := range normal.Diagonal() {
		if d <= 0 {
			return nil, fitErrorf(ErrSingularJacobian, "parameter %s does not affect the model",
				p.flat.Parameters[p.free[j]].Name)
		}
		s[j] = 1 / math.Sqrt(d)
	}
	if normal, err = matrix.ScaleSymmetric(normal, s); err != nil {
		return nil, err
	}
	inv, err := matrix.Inverse(normal)
	if err != nil {
		if errors.Is(err, matrix.ErrSingular) {
			return nil, fitErrorf(ErrSingularJacobian, "%v", err)
		}
		return nil, err
	}
	if inv, err = matrix.ScaleSymmetric(inv, s); err != nil {
		return nil, err
	}
	if inv, err = matrix.Scale(inv, scale); err != nil {
		return nil, err
	}

	n := len(p.flat.Parameters)
	cov, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i, fi := range p.free {
		for j, fj := range p.free {
			v, _ := inv.At(i, j)
			if err = cov.Set(fi, fj, v); err != nil {
				return nil, err
			}
		}
	}

	return cov, nil
}

func (d Data) validate() error {
	if len(d.X) == 0 {
		return fitErrorf(ErrBadData, "no points")
	}
	if len(d.Y) != len(d.X) {
		return fitErrorf(ErrBadData, "%d x values, %d y values", len(d.X), len(d.Y))
	}
	if d.E != nil && len(d.E) != len(d.X) {
		return fitErrorf(ErrBadData, "%d x values, %d errors", len(d.X), len(d.E))
	}
	for i := range d.X {
		if !finite(d.X[i]) || !finite(d.Y[i]) || (d.E != nil && !finite(d.E[i])) {
			return fitErrorf(ErrBadData, "point %d is not finite", i)
		}
	}

	return nil
}
