package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvfit/factory"
	"github.com/katalvlaran/lvfit/fitfunc"
)

func TestParse_Leaf(t *testing.T) {
	f, err := factory.Parse("name=Gaussian, Height=10, PeakCentre=1, Sigma=0.5, ties=(Height=12), constraints=(0<Sigma<2)")
	require.NoError(t, err)
	leaf, ok := f.(*fitfunc.Leaf)
	require.True(t, ok)

	v, _ := leaf.Parameter("Height")
	assert.Equal(t, 12.0, v, "tie to a constant sets the value")
	fixed, _ := leaf.IsFixed("Height")
	assert.True(t, fixed, "tie to a constant fixes")
	v, _ = leaf.Parameter("Sigma")
	assert.Equal(t, 0.5, v)
	b, ok, _ := leaf.Bound("Sigma")
	require.True(t, ok)
	assert.Equal(t, "0<Sigma<2", b.String())
}

func TestParse_Composite(t *testing.T) {
	f, err := factory.Parse(
		"name=LinearBackground,A0=1,A1=0;" +
			"(name=Gaussian,Height=10,PeakCentre=1,Sigma=0.5;name=Gaussian,Height=5,PeakCentre=3,Sigma=0.5);" +
			"ties=(f1.f1.Sigma=f1.f0.Sigma);constraints=(f0.A0>0)")
	require.NoError(t, err)
	c, ok := f.(*fitfunc.Composite)
	require.True(t, ok)
	require.Equal(t, 2, c.NumChildren())

	inner, err := c.Child(1)
	require.NoError(t, err)
	_, nested := inner.(*fitfunc.Composite)
	assert.True(t, nested)

	assert.Equal(t, []fitfunc.Tie{{Target: "f1.f1.Sigma", Expr: "f1.f0.Sigma"}}, c.Ties())
	_, ok, _ = c.Bound("f0.A0")
	assert.True(t, ok)

	v, err := c.Parameter("f1.f1.Height")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestParse_RoundTrip(t *testing.T) {
	user, err := factory.Create(factory.UserFunction, map[string]float64{"b1": 700, "b4": 1},
		factory.WithAttribute("Formula", "b1/pow(1+exp(b2-b3*x), 1/b4)"))
	require.NoError(t, err)
	g, err := factory.Create(factory.Gaussian, map[string]float64{"Height": 3, "Sigma": 1})
	require.NoError(t, err)
	require.NoError(t, g.Fix("Height"))
	require.NoError(t, g.Tie("PeakCentre", "Sigma*2"))

	inner, err := fitfunc.NewComposite(g)
	require.NoError(t, err)
	root, err := fitfunc.Combine(user, inner)
	require.NoError(t, err)
	require.NoError(t, root.Tie("f0.b2", "f1.f0.Sigma+1"))
	require.NoError(t, root.Constrain("f0.b3>0"))

	src := root.String()
	parsed, err := factory.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, src, parsed.String())

	want, err := fitfunc.Flatten(root)
	require.NoError(t, err)
	got, err := fitfunc.Flatten(parsed)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParse_SingleChildComposite(t *testing.T) {
	f, err := factory.Parse("composite=CompositeFunction;name=FlatBackground,A0=2")
	require.NoError(t, err)
	c, ok := f.(*fitfunc.Composite)
	require.True(t, ok)
	assert.Equal(t, 1, c.NumChildren())

	f, err = factory.Parse("composite=CompositeFunction")
	require.NoError(t, err)
	assert.Equal(t, 0, f.(*fitfunc.Composite).NumChildren())
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]error{
		"":                                       factory.ErrSyntax,
		"name=Voigt,A=1":                         factory.ErrUnknownFunction,
		"name=Gaussian,Height":                   factory.ErrSyntax,
		"name=Gaussian,Height=abc+":              factory.ErrSyntax,
		"name=Gaussian,Width=1":                  fitfunc.ErrUnknownParameter,
		"name=Gaussian,ties=Height=1":            factory.ErrSyntax,
		"name=Gaussian,ties=(Height)":            factory.ErrSyntax,
		"name=Gaussian,constraints=(Sigma<)":     fitfunc.ErrInvalidConstraint,
		"name=Gaussian;bogus":                    factory.ErrSyntax,
		"composite=Convolution;name=Gaussian":    factory.ErrUnknownFunction,
		"name=Gaussian;ties=(f3.Sigma=f0.Sigma)": fitfunc.ErrUnknownParameter,
		`name=UserFunction,Formula="a*x`:         factory.ErrSyntax,
	}
	for src, want := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := factory.Parse(src)
			assert.ErrorIs(t, err, want)
		})
	}
}
