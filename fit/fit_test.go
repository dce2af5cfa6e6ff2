// SPDX-License-Identifier: MIT

package fit_test

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvfit/ctxlog"
	"github.com/katalvlaran/lvfit/factory"
	"github.com/katalvlaran/lvfit/fit"
	"github.com/katalvlaran/lvfit/fitfunc"
)

func leaf(t *testing.T, name string, params map[string]float64) *fitfunc.Leaf {
	t.Helper()
	l, err := factory.Create(name, params)
	require.NoError(t, err)

	return l
}

// sample evaluates fn on an even grid over [lo, hi].
func sample(t *testing.T, fn fitfunc.Function, lo, hi float64, n int) fit.Data {
	t.Helper()
	x := make([]float64, n)
	for i := range x {
		x[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	y := make([]float64, n)
	require.NoError(t, fn.Evaluate(x, y))

	return fit.Data{X: x, Y: y}
}

func param(t *testing.T, fn fitfunc.Function, path string) float64 {
	t.Helper()
	v, err := fn.Parameter(path)
	require.NoError(t, err)

	return v
}

func TestFit_Line(t *testing.T) {
	truth := leaf(t, factory.LinearBackground, map[string]float64{"A0": 1, "A1": 2})
	data := sample(t, truth, 0, 5, 11)

	f := leaf(t, factory.LinearBackground, nil)
	res, err := fit.Fit(context.Background(), f, data)
	require.NoError(t, err)
	assert.NotEqual(t, fit.StatusMaxIterations, res.Status)
	assert.Less(t, res.ChiSquared, 1e-12)
	assert.InDelta(t, 1, param(t, f, "A0"), 1e-6)
	assert.InDelta(t, 2, param(t, f, "A1"), 1e-6)
	assert.Equal(t, "A0", res.Parameters[0].Name)
}

func TestFit_GaussianOnBackground(t *testing.T) {
	truth, err := fitfunc.Combine(
		leaf(t, factory.FlatBackground, map[string]float64{"A0": 2}),
		leaf(t, factory.Gaussian, map[string]float64{"Height": 10, "PeakCentre": 5, "Sigma": 1}))
	require.NoError(t, err)
	data := sample(t, truth, 0, 10, 101)

	f, err := fitfunc.Combine(
		leaf(t, factory.FlatBackground, map[string]float64{"A0": 1}),
		leaf(t, factory.Gaussian, map[string]float64{"Height": 8, "PeakCentre": 5.3, "Sigma": 1.3}))
	require.NoError(t, err)

	res, err := fit.Fit(context.Background(), f, data)
	require.NoError(t, err)
	assert.NotEqual(t, fit.StatusMaxIterations, res.Status)
	assert.InDelta(t, 2, param(t, f, "f0.A0"), 1e-6)
	assert.InDelta(t, 10, param(t, f, "f1.Height"), 1e-6)
	assert.InDelta(t, 5, param(t, f, "f1.PeakCentre"), 1e-6)
	assert.InDelta(t, 1, param(t, f, "f1.Sigma"), 1e-6)
}

func TestFit_Constraints(t *testing.T) {
	truth, err := fitfunc.NewComposite(
		leaf(t, factory.FlatBackground, map[string]float64{"A0": 1}),
		leaf(t, factory.Gaussian, map[string]float64{"Height": 4, "PeakCentre": 3, "Sigma": 0.8}),
		leaf(t, factory.Gaussian, map[string]float64{"Height": 6, "PeakCentre": 7, "Sigma": 0.8}))
	require.NoError(t, err)
	data := sample(t, truth, 0, 10, 201)

	f, err := fitfunc.NewComposite(
		leaf(t, factory.FlatBackground, map[string]float64{"A0": 1}),
		leaf(t, factory.Gaussian, map[string]float64{"Height": 3, "PeakCentre": 3.2, "Sigma": 1}),
		leaf(t, factory.Gaussian, map[string]float64{"Height": 5, "PeakCentre": 6.8, "Sigma": 1}))
	require.NoError(t, err)
	require.NoError(t, f.Fix("f0.A0"))
	require.NoError(t, f.Tie("f2.Sigma", "f1.Sigma"))
	require.NoError(t, f.Constrain("f1.Height<3.5"))

	res, err := fit.Fit(context.Background(), f, data)
	require.NoError(t, err)

	assert.Equal(t, 1.0, param(t, f, "f0.A0"), "fixed parameter must not move")
	assert.Equal(t, param(t, f, "f1.Sigma"), param(t, f, "f2.Sigma"), "tie holds after the fit")
	assert.LessOrEqual(t, param(t, f, "f1.Height"), 3.5, "bound holds after the fit")
	assert.InDelta(t, 3.5, param(t, f, "f1.Height"), 1e-3)

	for _, p := range res.Parameters {
		switch p.Name {
		case "f0.A0", "f2.Sigma":
			assert.Zero(t, p.Error, p.Name)
		}
	}
	fixed, err := f.IsFixed("f0.A0")
	require.NoError(t, err)
	assert.True(t, fixed, "constraints survive the fit")

	// Flatten order: f0.A0, f1.Height, ...
	corr := res.Correlation.Diagonal()
	assert.Zero(t, corr[0])
	assert.InDelta(t, 1, corr[1], 1e-12)
}

func TestFit_Errors(t *testing.T) {
	// A constant through four points: the standard error is known in closed form.
	data := fit.Data{X: []float64{0, 1, 2, 3}, Y: []float64{1, 2, 3, 4}, E: []float64{0.5, 0.5, 0.5, 0.5}}

	f := leaf(t, factory.FlatBackground, nil)
	res, err := fit.Fit(context.Background(), f, data)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, res.Parameters[0].Value, 1e-9)
	assert.InDelta(t, 0.25, res.Parameters[0].Error, 1e-6)
	assert.InDelta(t, 20, res.ChiSquared, 1e-6)
	assert.InDelta(t, 20.0/3, res.ReducedChiSquared, 1e-6)

	f = leaf(t, factory.FlatBackground, nil)
	res, err = fit.Fit(context.Background(), f, data, fit.WithCostFunction(fit.UnweightedLeastSquares))
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5.0/12), res.Parameters[0].Error, 1e-6)

	cov, err := res.Covariance.At(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0/12, cov, 1e-6)
}

func TestFit_WithoutApply(t *testing.T) {
	data := fit.Data{X: []float64{0, 1, 2}, Y: []float64{3, 3, 3}}
	f := leaf(t, factory.FlatBackground, map[string]float64{"A0": 1})

	res, err := fit.Fit(context.Background(), f, data, fit.WithoutApply())
	require.NoError(t, err)
	assert.InDelta(t, 3, res.Parameters[0].Value, 1e-9)
	assert.Equal(t, 1.0, param(t, f, "A0"))
}

func TestFit_Failures(t *testing.T) {
	ctx := context.Background()
	f := leaf(t, factory.LinearBackground, nil)

	_, err := fit.Fit(ctx, f, fit.Data{})
	assert.ErrorIs(t, err, fit.ErrBadData)

	_, err = fit.Fit(ctx, f, fit.Data{X: []float64{1, 2}, Y: []float64{1}})
	assert.ErrorIs(t, err, fit.ErrBadData)

	_, err = fit.Fit(ctx, f, fit.Data{X: []float64{1, 2}, Y: []float64{1, math.NaN()}})
	assert.ErrorIs(t, err, fit.ErrBadData)

	_, err = fit.Fit(ctx, f, fit.Data{X: []float64{1}, Y: []float64{1}})
	assert.ErrorIs(t, err, fit.ErrBadData, "fewer points than free parameters")

	f.FixAllParameters()
	_, err = fit.Fit(ctx, f, fit.Data{X: []float64{1, 2}, Y: []float64{1, 2}})
	assert.ErrorIs(t, err, fit.ErrNoFreeParameters)

	g := leaf(t, factory.Gaussian, nil)
	_, err = fit.Fit(ctx, g, fit.Data{X: []float64{1, 2, 3}, Y: []float64{1, 2, 3}})
	assert.ErrorIs(t, err, factory.ErrDomain, "model errors at the start propagate")
}

func TestFit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := leaf(t, factory.FlatBackground, nil)
	_, err := fit.Fit(ctx, f, fit.Data{X: []float64{0, 1}, Y: []float64{1, 1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFit_MaxIterations(t *testing.T) {
	truth := leaf(t, factory.Gaussian, map[string]float64{"Height": 10, "PeakCentre": 5, "Sigma": 1})
	data := sample(t, truth, 0, 10, 51)

	f := leaf(t, factory.Gaussian, map[string]float64{"Height": 5, "PeakCentre": 4, "Sigma": 2})
	res, err := fit.Fit(context.Background(), f, data, fit.WithMaxIterations(1))
	require.NoError(t, err)
	assert.Equal(t, fit.StatusMaxIterations, res.Status)
	assert.Equal(t, 1, res.Iterations)
}

func TestFit_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	f := leaf(t, factory.FlatBackground, nil)
	_, err := fit.Fit(ctx, f, fit.Data{X: []float64{0, 1}, Y: []float64{2, 2}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Fit finished")
	assert.Contains(t, buf.String(), "Fit iteration")
}

func TestOptions_Panics(t *testing.T) {
	assert.Panics(t, func() { fit.WithMaxIterations(0) })
	assert.Panics(t, func() { fit.WithTolerance(0) })
	assert.Panics(t, func() { fit.WithTolerance(math.Inf(1)) })
	assert.Panics(t, func() { fit.WithInitialDamping(-1) })
	assert.Panics(t, func() { fit.WithCostFunction(fit.CostFunction(7)) })
}

func TestParseCostFunction(t *testing.T) {
	for name, want := range map[string]fit.CostFunction{
		"Least squares":            fit.LeastSquares,
		"unweighted least squares": fit.UnweightedLeastSquares,
		"unweighted_least_squares": fit.UnweightedLeastSquares,
	} {
		got, err := fit.ParseCostFunction(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := fit.ParseCostFunction("chi squared")
	assert.Error(t, err)
}
