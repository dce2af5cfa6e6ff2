// Package expr parses and evaluates the arithmetic expressions that appear in
// tie constraints, bound constraints and user formulas.
//
// Expressions use HCL native syntax: parameter paths are traversals
// ("f0.Sigma", "f1.f0.Height"), numbers are literals, and a fixed table of
// math functions is available:
//
//	exp log ln log10 sqrt sin cos tan asin acos atan sinh cosh tanh erf
//	pow abs min max
//
// Power is written pow(a, b); conditionals (a > 0 ? a : 0) are allowed.
//
// Evaluation happens against a Scope, a flat map from dotted paths to values
// that is turned into nested cty objects. Results must be finite numbers.
package expr
