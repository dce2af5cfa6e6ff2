// Package lvfit builds parameterised fit functions, composes them and fits
// them to data.
//
// A function tree is made of leaves (one kernel each: Gaussian, Lorentzian,
// backgrounds, user formulas) and composites whose value is the sum of
// their children. Parameters of a composite are addressed by paths such as
// "f1.f0.Sigma" and may be fixed, tied to an expression of other
// parameters, or bounded:
//
//	f, _ := factory.Parse("name=LinearBackground;name=Gaussian,Height=10,Sigma=0.5;name=Gaussian,Height=5")
//	_ = f.Tie("f2.Sigma", "f1.Sigma")
//	_ = f.Constrain("0 < f1.Height < 20")
//	res, _ := fit.Fit(ctx, f, fit.Data{X: x, Y: y})
//
// Packages:
//
//	fitfunc/   Leaf, Composite, ties, bounds, flattening for fit drivers
//	expr/      tie and formula expressions (HCL native syntax)
//	factory/   named kinds and init strings
//	fit/       Levenberg–Marquardt driver
//	session/   YAML fit sessions
//	core/, dfs/ dependency graph used to order ties
//	matrix/    dense matrices for covariance
//	ctxlog/    slog.Logger carried in context.Context
//	cmd/lvfit  command-line front end
//
//	go install github.com/katalvlaran/lvfit/cmd/lvfit@latest
package lvfit
