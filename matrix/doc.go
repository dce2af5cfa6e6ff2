// SPDX-License-Identifier: MIT

// Package matrix provides the dense linear-algebra primitives lvfit needs to
// report fit uncertainties: a row-major Dense type, products, transposes and
// an LU-based inverse.
//
// The covariance matrix returned by package fit is a *Dense indexed in the
// same depth-first order fitfunc.Flatten emits parameters in.
//
// Policy:
//   - Fail fast: every kernel validates shapes and returns package sentinels
//     (ErrNilMatrix, ErrDimensionMismatch, ErrSingular, ...) wrapped with an
//     operation tag; match them with errors.Is.
//   - Deterministic loop orders; no pivoting in LU, so identical inputs give
//     bit-identical outputs.
//   - Inputs are never mutated; every kernel allocates its result.
package matrix
