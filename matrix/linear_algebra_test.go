// Package matrix_test contains unit tests for the Dense type and kernels.
package matrix_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvfit/matrix"
)

// hide wraps a Matrix to force the At/Set fallback paths.
type hide struct{ matrix.Matrix }

// MustDenseFrom builds a Dense or fails the test.
func MustDenseFrom(t *testing.T, rows, cols int, values ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows, cols, values)
	require.NoError(t, err)

	return m
}

func TestNewDenseDefaultZero(t *testing.T) {
	for _, tc := range []struct{ rows, cols int }{{1, 1}, {3, 3}, {2, 5}} {
		t.Run(fmt.Sprintf("%dx%d", tc.rows, tc.cols), func(t *testing.T) {
			m, err := matrix.NewDense(tc.rows, tc.cols)
			require.NoError(t, err)
			for i := 0; i < tc.rows; i++ {
				for j := 0; j < tc.cols; j++ {
					v, err := m.At(i, j)
					require.NoError(t, err)
					assert.Zero(t, v)
				}
			}
		})
	}
}

func TestDense_Errors(t *testing.T) {
	_, err := matrix.NewDense(0, 3)
	assert.ErrorIs(t, err, matrix.ErrInvalidDimensions)

	_, err = matrix.NewDenseFrom(2, 2, []float64{1, 2, 3})
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	m := MustDenseFrom(t, 1, 2, 1, 2)
	_, err = m.At(1, 0)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
	assert.ErrorIs(t, m.Set(0, -1, 3), matrix.ErrOutOfRange)
}

func TestDense_CloneIsIndependent(t *testing.T) {
	m := MustDenseFrom(t, 2, 2, 1, 2, 3, 4)
	c := m.Clone()
	require.NoError(t, c.Set(0, 0, 99))
	v, _ := m.At(0, 0)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, []float64{1, 4}, m.Diagonal())
	assert.Equal(t, []float64{3, 4}, m.RawRow(1))
	assert.Equal(t, "[1, 2]\n[3, 4]\n", m.String())
}

func TestMulTranspose(t *testing.T) {
	a := MustDenseFrom(t, 2, 3, 1, 2, 3, 4, 5, 6)

	at, err := matrix.Transpose(a)
	require.NoError(t, err)
	assert.Equal(t, 3, at.Rows())
	assert.Equal(t, 2, at.Cols())

	// a·aᵀ = [[14, 32], [32, 77]]
	p, err := matrix.Mul(a, at)
	require.NoError(t, err)
	assert.Equal(t, "[14, 32]\n[32, 77]\n", p.String())

	// Same product through the interface fallback.
	p2, err := matrix.Mul(hide{a}, hide{at})
	require.NoError(t, err)
	assert.Equal(t, p.String(), p2.String())

	_, err = matrix.Mul(a, a)
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = matrix.Mul(nil, a)
	assert.ErrorIs(t, err, matrix.ErrNilMatrix)

	s, err := matrix.Scale(a, 2)
	require.NoError(t, err)
	assert.Equal(t, "[2, 4, 6]\n[8, 10, 12]\n", s.String())
}

func TestInverse(t *testing.T) {
	// Symmetric positive-definite input, as produced by JᵀJ.
	a := MustDenseFrom(t, 3, 3,
		4, 12, -16,
		12, 37, -43,
		-16, -43, 98,
	)
	inv, err := matrix.Inverse(a)
	require.NoError(t, err)

	id, err := matrix.Mul(a, inv)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v, _ := id.At(i, j)
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, v, 1e-9, "identity[%d,%d]", i, j)
		}
	}
}

func TestInverse_Errors(t *testing.T) {
	_, err := matrix.Inverse(MustDenseFrom(t, 2, 2, 1, 2, 2, 4))
	assert.ErrorIs(t, err, matrix.ErrSingular)

	_, err = matrix.Inverse(MustDenseFrom(t, 1, 2, 1, 2))
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	var nilDense *matrix.Dense
	_, err = matrix.Inverse(nilDense)
	assert.ErrorIs(t, err, matrix.ErrNilMatrix)
}

func TestScaleSymmetric(t *testing.T) {
	a := MustDenseFrom(t, 2, 2, 4, 2, 2, 9)
	s, err := matrix.ScaleSymmetric(a, []float64{0.5, 1.0 / 3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1}, s.Diagonal(), 1e-15)
	v, _ := s.At(0, 1)
	assert.InDelta(t, 1.0/3, v, 1e-15)

	_, err = matrix.ScaleSymmetric(a, []float64{1})
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestCorrelation(t *testing.T) {
	// The middle parameter is fixed: zero variance, zero row and column.
	cov := MustDenseFrom(t, 3, 3,
		4, 0, -3,
		0, 0, 0,
		-3, 0, 9,
	)
	c, err := matrix.Correlation(cov)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0, 1}, c.Diagonal(), 1e-15)
	v, _ := c.At(0, 2)
	assert.InDelta(t, -0.5, v, 1e-15)
	assert.Equal(t, []float64{0, 0, 0}, c.RawRow(1))

	_, err = matrix.Correlation(MustDenseFrom(t, 1, 2, 1, 2))
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}
