package fitfunc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvfit/fitfunc"
)

// poly is a test kernel computing Σ params[k]·x^k under caller-chosen names.
type poly struct {
	name   string
	params []string
	bounds []string
}

func (p poly) Name() string { return p.name }

func (p poly) Parameters() []fitfunc.ParameterSpec {
	specs := make([]fitfunc.ParameterSpec, len(p.params))
	for i, n := range p.params {
		specs[i] = fitfunc.ParameterSpec{Name: n}
	}

	return specs
}

func (p poly) Evaluate(params, x, out []float64) error {
	for i, xi := range x {
		v, pw := 0.0, 1.0
		for _, c := range params {
			v += c * pw
			pw *= xi
		}
		out[i] = v
	}

	return nil
}

func (p poly) Constraints() []string { return p.bounds }

// newLeaf builds a poly leaf with the given parameter names and values.
func newLeaf(t *testing.T, name string, params []string, values ...float64) *fitfunc.Leaf {
	t.Helper()
	l, err := fitfunc.NewLeaf(poly{name: name, params: params})
	require.NoError(t, err)
	for i, v := range values {
		require.NoError(t, l.SetParameter(params[i], v))
	}

	return l
}

// gauss builds a leaf with parameters A, x0, s.
func gauss(t *testing.T, a, x0, s float64) *fitfunc.Leaf {
	t.Helper()

	return newLeaf(t, "Gauss", []string{"A", "x0", "s"}, a, x0, s)
}

// composite builds a composite or fails the test.
func composite(t *testing.T, children ...fitfunc.Function) *fitfunc.Composite {
	t.Helper()
	c, err := fitfunc.NewComposite(children...)
	require.NoError(t, err)

	return c
}
