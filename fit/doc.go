// Package fit is a Levenberg–Marquardt least-squares driver for fitfunc
// trees.
//
// Fit flattens the tree, moves only its free parameters, re-evaluates ties
// in dependency order after every step and clamps bounded parameters into
// range. The damped step is solved as an augmented least-squares problem
// with a QR factorisation (gonum/mat); the covariance of the result is
// (JᵀJ)⁻¹, scaled by chi²/dof for the unweighted cost.
//
//	res, err := fit.Fit(ctx, f, fit.Data{X: x, Y: y, E: e},
//		fit.WithCostFunction(fit.UnweightedLeastSquares))
//
// Progress is logged at Debug and the summary at Info on the logger found
// in ctx (see ctxlog).
package fit
