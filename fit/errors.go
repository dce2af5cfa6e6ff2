// SPDX-License-Identifier: MIT
// Package fit: sentinel error set.

package fit

import (
	"errors"
	"fmt"
)

var (
	// ErrBadData reports mismatched, empty or non-finite data, or fewer
	// points than free parameters.
	ErrBadData = errors.New("fit: bad data")

	// ErrNoFreeParameters is returned when every parameter is fixed or tied.
	ErrNoFreeParameters = errors.New("fit: no free parameters")

	// ErrSingularJacobian is returned when the normal matrix JᵀJ at the
	// solution cannot be inverted, so no covariance exists.
	ErrSingularJacobian = errors.New("fit: singular jacobian")

	// ErrNotFinite is returned when the model at the starting point is NaN or ±Inf.
	ErrNotFinite = errors.New("fit: model is not finite")

	// errStepNotFinite rejects a damped step; the driver raises λ and retries.
	errStepNotFinite = errors.New("fit: non-finite step")
)

// fitErrorf adds context to one of the sentinels above.
func fitErrorf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
