// SPDX-License-Identifier: MIT
// Package fitfunc: sentinel errors.
// Every operation returns one of these (possibly wrapped with context) and
// callers match with errors.Is. User input never panics.

package fitfunc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownParameter is returned when a parameter name or qualified path
	// does not exist in the tree at the time of the call. Stale ParamRefs
	// (taken before a Remove on their path) also report it.
	ErrUnknownParameter = errors.New("fitfunc: unknown parameter")

	// ErrIndexOutOfRange is returned when a child index is outside [0, NumChildren).
	ErrIndexOutOfRange = errors.New("fitfunc: child index out of range")

	// ErrMissingParameter is returned by TieAll and FixAll when some child
	// lacks the requested parameter.
	ErrMissingParameter = errors.New("fitfunc: parameter missing in child")

	// ErrInvalidConstraint marks a malformed tie or bound expression, an
	// empty bound range, or a cyclic set of ties.
	ErrInvalidConstraint = errors.New("fitfunc: invalid constraint")

	// ErrInvalidChild is returned by Append and Combine for nil children,
	// children that already have a parent, and attempts to create a cycle.
	ErrInvalidChild = errors.New("fitfunc: invalid child")

	// ErrValueCount is returned when a value slice does not match the
	// number of parameters of the function it is applied to.
	ErrValueCount = errors.New("fitfunc: wrong number of values")

	// ErrInvalidKernel is returned by NewLeaf for nil kernels and kernels
	// declaring duplicate parameter names.
	ErrInvalidKernel = errors.New("fitfunc: invalid kernel")
)

// fitfuncErrorf prefixes err with a formatted context, keeping errors.Is intact.
func fitfuncErrorf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
