// SPDX-License-Identifier: MIT
// Package fit: functional configuration of the Levenberg–Marquardt driver.
//
// Option constructors panic only on nonsensical values (programmer error);
// Fit itself never panics on user input.

package fit

import (
	"fmt"
	"math"
	"strings"
)

// CostFunction selects how residuals are weighted.
type CostFunction int

const (
	// LeastSquares weights each residual by 1/E[i]; points with E[i] <= 0
	// or no errors at all get weight 1.
	LeastSquares CostFunction = iota

	// UnweightedLeastSquares uses weight 1 everywhere and scales the
	// covariance by chi²/dof.
	UnweightedLeastSquares
)

// String returns the conventional display name.
func (c CostFunction) String() string {
	switch c {
	case LeastSquares:
		return "Least squares"
	case UnweightedLeastSquares:
		return "Unweighted least squares"
	}

	return fmt.Sprintf("CostFunction(%d)", int(c))
}

// ParseCostFunction accepts the display name (case-insensitive) or the
// snake_case form, e.g. "unweighted_least_squares".
func ParseCostFunction(name string) (CostFunction, error) {
	n := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, "_", " ")))
	for _, c := range []CostFunction{LeastSquares, UnweightedLeastSquares} {
		if n == strings.ToLower(c.String()) {
			return c, nil
		}
	}

	return 0, fmt.Errorf("fit: unknown cost function %q", name)
}

// ---------- Defaults ----------

const (
	// DefaultMaxIterations bounds the number of Jacobian evaluations.
	DefaultMaxIterations = 500

	// DefaultTolerance is the relative chi² decrease (and relative step
	// length) at which the fit is considered converged.
	DefaultTolerance = 1e-12

	// DefaultInitialDamping is Marquardt's starting λ.
	DefaultInitialDamping = 1e-3

	// DefaultCostFunction is LeastSquares.
	DefaultCostFunction = LeastSquares

	// DefaultApply writes the fitted values back into the function tree.
	DefaultApply = true
)

// maxDamping stops the fit when no step of any length reduces chi².
const maxDamping = 1e20

// ---------- Internal panic messages ----------

const (
	panicMaxIterationsInvalid = "fit: WithMaxIterations: n must be > 0"
	panicToleranceInvalid     = "fit: WithTolerance: tol must be finite and > 0"
	panicDampingInvalid       = "fit: WithInitialDamping: lambda must be finite and > 0"
	panicCostFunctionInvalid  = "fit: WithCostFunction: unknown cost function"
)

// Option mutates the driver configuration.
type Option func(*Options)

// Options is the effective configuration after applying Option setters.
type Options struct {
	maxIterations int          // DefaultMaxIterations
	tolerance     float64      // DefaultTolerance
	damping       float64      // DefaultInitialDamping
	cost          CostFunction // DefaultCostFunction
	apply         bool         // DefaultApply
}

// WithMaxIterations caps the number of iterations (Jacobian evaluations).
// Panics if n <= 0.
func WithMaxIterations(n int) Option {
	if n <= 0 {
		panic(panicMaxIterationsInvalid)
	}

	return func(o *Options) { o.maxIterations = n }
}

// WithTolerance sets the convergence tolerance. Panics unless tol is finite
// and positive.
func WithTolerance(tol float64) Option {
	if !isPositiveFinite(tol) {
		panic(panicToleranceInvalid)
	}

	return func(o *Options) { o.tolerance = tol }
}

// WithInitialDamping sets the starting λ. Panics unless lambda is finite
// and positive.
func WithInitialDamping(lambda float64) Option {
	if !isPositiveFinite(lambda) {
		panic(panicDampingInvalid)
	}

	return func(o *Options) { o.damping = lambda }
}

// WithCostFunction selects the residual weighting.
func WithCostFunction(c CostFunction) Option {
	if c != LeastSquares && c != UnweightedLeastSquares {
		panic(panicCostFunctionInvalid)
	}

	return func(o *Options) { o.cost = c }
}

// WithoutApply leaves the function tree untouched; results are only
// reported in the Result.
func WithoutApply() Option {
	return func(o *Options) { o.apply = false }
}

func defaultOptions() Options {
	return Options{
		maxIterations: DefaultMaxIterations,
		tolerance:     DefaultTolerance,
		damping:       DefaultInitialDamping,
		cost:          DefaultCostFunction,
		apply:         DefaultApply,
	}
}

// gatherOptions applies opts over the defaults; nil options are skipped.
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
