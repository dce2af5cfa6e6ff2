// SPDX-License-Identifier: MIT
// Package matrix: linear-algebra kernels (Mul, Transpose, Scale,
// ScaleSymmetric, Correlation, LU, Inverse).
//
// Notes:
//   - All kernels use the central validators and wrap failures via matrixErrorf.
//   - *Dense operands take a flat-slice fast path; other Matrix
//     implementations go through At/Set with the same loop order.

package matrix

import (
	"fmt"
	"math"
)

// ZeroSum is the initial sum value for forward/backward substitution and similar.
const ZeroSum = 0.0

// ZeroPivot is the sentinel for detecting a zero pivot in LU/Inverse routines.
const ZeroPivot = 0.0

// Operation name constants for unified error wrapping.
const (
	opMul       = "Mul"
	opTranspose = "Transpose"
	opScale     = "Scale"
	opScaleSym  = "ScaleSymmetric"
	opCorr      = "Correlation"
	opLU        = "LU"
	opInverse   = "Inverse"
)

// matrixErrorf wraps err with an operation tag, preserving it for errors.Is.
// Call only with a non-nil err.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// toDense returns m as *Dense, copying through At when m is another implementation.
func toDense(m Matrix) (*Dense, error) {
	if d, ok := m.(*Dense); ok {
		return d, nil
	}
	out, err := NewDense(m.Rows(), m.Cols())
	if err != nil {
		return nil, err
	}
	var v float64
	for i := 0; i < out.r; i++ {
		for j := 0; j < out.c; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, fmt.Errorf("At(%d,%d): %w", i, j, err)
			}
			out.data[i*out.c+j] = v
		}
	}

	return out, nil
}

// Mul computes the matrix product a × b into a fresh Dense.
//
// Errors: ErrNilMatrix, ErrDimensionMismatch (a.Cols != b.Rows).
// Complexity: O(r*n*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	da, err := toDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	db, err := toDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	aRows, aCols, bCols := da.r, da.c, db.c
	res, err := NewDense(aRows, bCols)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	// row-major i-k-j order: da.data[i*aCols+k], db.data[k*bCols+j]
	var (
		i, j, k                            int
		av                                 float64
		rowOffsetA, rowOffsetB, rowOffsetR int
	)
	for i = 0; i < aRows; i++ {
		rowOffsetA = i * aCols
		rowOffsetR = i * bCols
		for k = 0; k < aCols; k++ {
			av = da.data[rowOffsetA+k]
			if av == 0 {
				continue // skip zero for performance
			}
			rowOffsetB = k * bCols
			for j = 0; j < bCols; j++ {
				res.data[rowOffsetR+j] += av * db.data[rowOffsetB+j]
			}
		}
	}

	return res, nil
}

// Transpose returns a new matrix with rows and columns swapped (mᵀ).
// Complexity: O(r*c).
func Transpose(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	dm, err := toDense(m)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	res, err := NewDense(dm.c, dm.r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	for i := 0; i < dm.r; i++ {
		for j := 0; j < dm.c; j++ {
			res.data[j*dm.r+i] = dm.data[i*dm.c+j]
		}
	}

	return res, nil
}

// Scale returns alpha*m as a fresh Dense.
// Complexity: O(r*c).
func Scale(m Matrix, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	dm, err := toDense(m)
	if err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	res := dm.Clone().(*Dense)
	for idx := range res.data {
		res.data[idx] *= alpha
	}

	return res, nil
}

// ScaleSymmetric returns D·m·D for D = diag(d), i.e. m[i,j]·d[i]·d[j].
// Equilibrating a normal matrix to unit diagonal before Inverse and undoing
// it afterwards keeps badly scaled parameters from losing precision.
//
// Errors: ErrNilMatrix, ErrDimensionMismatch (m not square or len(d) != n).
// Complexity: O(n^2).
func ScaleSymmetric(m Matrix, d []float64) (*Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, matrixErrorf(opScaleSym, err)
	}
	dm, err := toDense(m)
	if err != nil {
		return nil, matrixErrorf(opScaleSym, err)
	}
	n := dm.r
	if len(d) != n {
		return nil, matrixErrorf(opScaleSym, fmt.Errorf("%d factors for %dx%d: %w", len(d), n, n, ErrDimensionMismatch))
	}
	res, _ := NewDense(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			res.data[i*n+j] = dm.data[i*n+j] * d[i] * d[j]
		}
	}

	return res, nil
}

// Correlation normalises a covariance matrix: c[i,j]/√(c[i,i]·c[j,j]).
// Rows and columns with a non-positive variance (fixed or tied
// parameters) are left zero.
//
// Errors: ErrNilMatrix, ErrDimensionMismatch (non-square).
// Complexity: O(n^2).
func Correlation(cov Matrix) (*Dense, error) {
	if err := ValidateSquare(cov); err != nil {
		return nil, matrixErrorf(opCorr, err)
	}
	dm, err := toDense(cov)
	if err != nil {
		return nil, matrixErrorf(opCorr, err)
	}
	n := dm.r
	inv := make([]float64, n)
	for i := 0; i < n; i++ {
		if v := dm.data[i*n+i]; v > 0 {
			inv[i] = 1 / math.Sqrt(v)
		}
	}

	return ScaleSymmetric(dm, inv)
}

// LU computes the Doolittle factorization A = L*U with unit diagonal on L.
// No pivoting: symmetric positive-definite inputs (normal matrices JᵀJ)
// factor without it.
//
// Errors: ErrNilMatrix, ErrDimensionMismatch, ErrSingular (zero pivot U[i,i]).
// Complexity: O(n^3) time, O(n^2) space.
func LU(m Matrix) (*Dense, *Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, nil, matrixErrorf(opLU, err)
	}
	a, err := toDense(m)
	if err != nil {
		return nil, nil, matrixErrorf(opLU, err)
	}
	n := a.r
	L, _ := NewIdentity(n)
	U, _ := NewDense(n, n)

	var (
		i, j, k int
		sum     float64
	)
	for i = 0; i < n; i++ {
		// Row i of U for columns j >= i
		for j = i; j < n; j++ {
			sum = ZeroSum
			for k = 0; k < i; k++ {
				sum += L.data[i*n+k] * U.data[k*n+j]
			}
			U.data[i*n+j] = a.data[i*n+j] - sum
		}
		if U.data[i*n+i] == ZeroPivot {
			return nil, nil, matrixErrorf(opLU, fmt.Errorf("zero pivot at %d: %w", i, ErrSingular))
		}
		// Column i of L for rows j > i
		for j = i + 1; j < n; j++ {
			sum = ZeroSum
			for k = 0; k < i; k++ {
				sum += L.data[j*n+k] * U.data[k*n+i]
			}
			L.data[j*n+i] = (a.data[j*n+i] - sum) / U.data[i*n+i]
		}
	}

	return L, U, nil
}

// Inverse returns A^{-1} via LU and one pair of triangular solves per
// identity column.
//
// Errors: ErrNilMatrix, ErrDimensionMismatch, ErrSingular.
// Complexity: O(n^3) time, O(n^2) space.
func Inverse(m Matrix) (*Dense, error) {
	L, U, err := LU(m)
	if err != nil {
		return nil, matrixErrorf(opInverse, err)
	}
	n := L.r
	inv, _ := NewDense(n, n)

	var (
		col, i, k int
		sum       float64
		y         = make([]float64, n) // forward substitution workspace
		x         = make([]float64, n) // backward substitution workspace
	)
	for col = 0; col < n; col++ {
		// Forward substitution: L*y = e_col
		for i = 0; i < n; i++ {
			sum = ZeroSum
			for k = 0; k < i; k++ {
				sum += L.data[i*n+k] * y[k]
			}
			if i == col {
				y[i] = 1.0 - sum
			} else {
				y[i] = -sum
			}
		}
		// Backward substitution: U*x = y (pivots checked by LU)
		for i = n - 1; i >= 0; i-- {
			sum = ZeroSum
			for k = i + 1; k < n; k++ {
				sum += U.data[i*n+k] * x[k]
			}
			x[i] = (y[i] - sum) / U.data[i*n+i]
		}
		for i = 0; i < n; i++ {
			inv.data[i*n+col] = x[i]
		}
	}

	return inv, nil
}
