package expr

import "errors"

var (
	// ErrSyntax is returned when an expression cannot be parsed or uses a
	// construct outside the supported subset (indexing, nested formula names).
	ErrSyntax = errors.New("expr: syntax error")

	// ErrEval is returned when a parsed expression fails to evaluate
	// (unknown variable, wrong argument type, non-numeric result).
	ErrEval = errors.New("expr: evaluation failed")

	// ErrNonFinite is returned when an input or result is NaN or ±Inf.
	ErrNonFinite = errors.New("expr: non-finite value")

	// ErrScopeConflict is returned when a Scope assigns a value to a path
	// that is also used as a prefix of another path.
	ErrScopeConflict = errors.New("expr: conflicting scope paths")
)
