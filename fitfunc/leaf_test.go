package fitfunc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvfit/fitfunc"
)

func TestLeaf_SetGetRoundTrip(t *testing.T) {
	l := gauss(t, 0, 0, 0)
	for _, v := range []float64{0, -1.5, 1e300, 42} {
		require.NoError(t, l.SetParameter("x0", v))
		got, err := l.Parameter("x0")
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err := l.Parameter("nope")
	assert.ErrorIs(t, err, fitfunc.ErrUnknownParameter)
	assert.ErrorIs(t, l.SetParameter("nope", 1), fitfunc.ErrUnknownParameter)
}

func TestNewLeaf_Errors(t *testing.T) {
	_, err := fitfunc.NewLeaf(nil)
	assert.ErrorIs(t, err, fitfunc.ErrInvalidKernel)

	_, err = fitfunc.NewLeaf(poly{name: "Dup", params: []string{"A", "A"}})
	assert.ErrorIs(t, err, fitfunc.ErrInvalidKernel)

	_, err = fitfunc.NewLeaf(poly{name: "Bad", params: []string{"A"}, bounds: []string{"0<A<"}})
	assert.ErrorIs(t, err, fitfunc.ErrInvalidConstraint)
}

func TestNewLeaf_DefaultConstraints(t *testing.T) {
	l, err := fitfunc.NewLeaf(poly{name: "Decay", params: []string{"H", "T"}, bounds: []string{"T>1e-9"}})
	require.NoError(t, err)
	b, ok, err := l.Bound("T")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, b.HasLower)
	assert.False(t, b.HasUpper)
	assert.InDelta(t, 1e-9, b.Lower, 1e-24)
}

func TestLeaf_FixUnfixLenient(t *testing.T) {
	l := gauss(t, 1, 2, 3)

	assert.NoError(t, l.Unfix("A"), "unfixing a free parameter is a no-op")
	assert.NoError(t, l.Untie("A"), "untying an untied parameter is a no-op")
	assert.NoError(t, l.Unconstrain("A"))
	assert.NoError(t, l.Free("A"))

	require.NoError(t, l.Fix("A"))
	fixed, err := l.IsFixed("A")
	require.NoError(t, err)
	assert.True(t, fixed)

	require.NoError(t, l.Unfix("A"))
	fixed, _ = l.IsFixed("A")
	assert.False(t, fixed)

	for _, op := range []func(string) error{l.Fix, l.Unfix, l.Untie, l.Unconstrain, l.Free} {
		assert.ErrorIs(t, op("nope"), fitfunc.ErrUnknownParameter)
	}
}

func TestLeaf_TieAndFixExclusive(t *testing.T) {
	l := gauss(t, 1, 2, 3)

	require.NoError(t, l.Tie("s", "x0/10"))
	assert.Equal(t, []fitfunc.Tie{{Target: "s", Expr: "x0/10"}}, l.Ties())

	require.NoError(t, l.Fix("s"))
	assert.Empty(t, l.Ties(), "fixing replaces the tie")

	require.NoError(t, l.Tie("s", "2*A"))
	fixed, _ := l.IsFixed("s")
	assert.False(t, fixed, "tying releases the fix")
	assert.Equal(t, "2*A", l.Ties()[0].Expr)
}

func TestLeaf_TieErrors(t *testing.T) {
	l := gauss(t, 1, 2, 3)
	assert.ErrorIs(t, l.Tie("nope", "A"), fitfunc.ErrUnknownParameter)
	assert.ErrorIs(t, l.Tie("A", "x0 +"), fitfunc.ErrInvalidConstraint)
	assert.ErrorIs(t, l.Tie("A", "zz*2"), fitfunc.ErrUnknownParameter)
	assert.Empty(t, l.Ties())
}

func TestLeaf_TieMap(t *testing.T) {
	l := gauss(t, 1, 2, 3)
	require.NoError(t, l.TieMap(map[string]string{"s": "A/2", "x0": "A+1"}))
	assert.Equal(t, []fitfunc.Tie{
		{Target: "x0", Expr: "A+1"},
		{Target: "s", Expr: "A/2"},
	}, l.Ties())

	assert.ErrorIs(t, l.TieMap(map[string]string{"A": "1", "zz": "2"}), fitfunc.ErrUnknownParameter)

	l.UntieAllParameters()
	assert.Empty(t, l.Ties())
}

func TestLeaf_ConstrainAllOrNothing(t *testing.T) {
	l := gauss(t, 1, 2, 3)
	require.NoError(t, l.Constrain("0<s<5, A>0"))

	b, ok, err := l.Bound("s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0<s<5", b.String())

	err = l.Constrain("x0<1, zz>0")
	assert.ErrorIs(t, err, fitfunc.ErrUnknownParameter)
	_, ok, _ = l.Bound("x0")
	assert.False(t, ok, "a failing call applies nothing")

	require.NoError(t, l.Constrain("s<10"))
	b, _, _ = l.Bound("s")
	assert.Equal(t, "s<10", b.String(), "a new bound replaces the old one")

	require.NoError(t, l.Free("s"))
	_, ok, _ = l.Bound("s")
	assert.False(t, ok)
}

func TestLeaf_FixAllParameters(t *testing.T) {
	l := gauss(t, 1, 2, 3)
	require.NoError(t, l.Tie("A", "x0"))
	l.FixAllParameters()
	for _, name := range l.ParameterNames() {
		fixed, err := l.IsFixed(name)
		require.NoError(t, err)
		assert.True(t, fixed, name)
	}
	assert.Empty(t, l.Ties())
}

func TestLeaf_Evaluate(t *testing.T) {
	l := newLeaf(t, "Line", []string{"A0", "A1"}, 1, 2)
	out := make([]float64, 3)
	require.NoError(t, l.Evaluate([]float64{0, 1, 2}, out))
	assert.Equal(t, []float64{1, 3, 5}, out)

	require.NoError(t, l.EvaluateWith([]float64{0, 1}, []float64{0, 1, 2}, out))
	assert.Equal(t, []float64{0, 1, 2}, out)

	assert.ErrorIs(t, l.EvaluateWith([]float64{1}, []float64{0}, out), fitfunc.ErrValueCount)
}

func TestLeaf_ParameterName(t *testing.T) {
	l := gauss(t, 1, 2, 3)
	name, err := l.ParameterName(1)
	require.NoError(t, err)
	assert.Equal(t, "x0", name)
	_, err = l.ParameterName(3)
	assert.ErrorIs(t, err, fitfunc.ErrUnknownParameter)
	assert.Equal(t, 3, l.NumParams())
	assert.Nil(t, l.Parent())
}

func TestLeaf_String(t *testing.T) {
	l := gauss(t, 100, 5, 1)
	assert.Equal(t, "name=Gauss,A=100,x0=5,s=1", l.String())

	require.NoError(t, l.Fix("A"))
	require.NoError(t, l.Tie("s", "x0/5"))
	require.NoError(t, l.Constrain("0<s<5"))
	assert.Equal(t, "name=Gauss,A=100,x0=5,s=1,ties=(A=100,s=x0/5),constraints=(0<s<5)", l.String())
}
