package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvfit/fit"
	"github.com/katalvlaran/lvfit/fitfunc"
	"github.com/katalvlaran/lvfit/session"
)

const lineSession = `
function: name=LinearBackground,A0=0,A1=0
data:
  x: [0, 1, 2, 3, 4]
  y: [1, 3, 5, 7, 9]
minimizer:
  max_iterations: 100
  cost_function: Unweighted least squares
  tolerance: 1e-14
`

func TestParse_Run(t *testing.T) {
	s, err := session.Parse([]byte(lineSession))
	require.NoError(t, err)
	assert.Equal(t, 100, s.Minimizer.MaxIterations)
	assert.Len(t, s.Options(), 3)

	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, fit.StatusMaxIterations, rep.Result.Status)

	a0, err := rep.Function.Parameter("A0")
	require.NoError(t, err)
	a1, err := rep.Function.Parameter("A1")
	require.NoError(t, err)
	assert.InDelta(t, 1, a0, 1e-6)
	assert.InDelta(t, 2, a1, 1e-6)
}

func TestBuild_Functions(t *testing.T) {
	src := `
functions:
  - name: Gaussian
    parameters: {Height: 1, PeakCentre: 1, Sigma: 0.5}
  - name: Gaussian
    parameters: {Height: 2, PeakCentre: 3, Sigma: 0.5}
fix: [f0.PeakCentre]
fix_all: [Height]
tie_all: [Sigma]
ties:
  f1.PeakCentre: f0.PeakCentre+2
constrain_all: ["Sigma > 0"]
data: {x: [0, 1, 2], y: [0, 1, 0]}
`
	s, err := session.Parse([]byte(src))
	require.NoError(t, err)

	f, err := s.Build(context.Background())
	require.NoError(t, err)
	c, ok := f.(*fitfunc.Composite)
	require.True(t, ok)
	assert.Equal(t, 2, c.NumChildren())

	for _, p := range []string{"f0.Height", "f1.Height", "f0.PeakCentre"} {
		fixed, err := c.IsFixed(p)
		require.NoError(t, err)
		assert.True(t, fixed, p)
	}
	assert.Equal(t, []fitfunc.Tie{
		{Target: "f1.PeakCentre", Expr: "f0.PeakCentre+2"},
		{Target: "f1.Sigma", Expr: "f0.Sigma"},
	}, c.Ties())
	for _, p := range []string{"f0.Sigma", "f1.Sigma"} {
		_, ok, err = c.Bound(p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}
}

func TestBuild_MissingInChild(t *testing.T) {
	src := `
functions:
  - name: Gaussian
  - name: FlatBackground
tie_all: [Sigma]
data: {x: [1], y: [1]}
`
	s, err := session.Parse([]byte(src))
	require.NoError(t, err)
	_, err = s.Build(context.Background())
	assert.ErrorIs(t, err, fitfunc.ErrMissingParameter)
}

func TestBuild_UserFunction(t *testing.T) {
	src := `
functions:
  - name: UserFunction
    attributes: {Formula: "h*exp(-a*x)"}
    parameters: {h: 2, a: 1}
data: {x: [0, 1, 2, 3], y: [3, 1.1, 0.4, 0.15]}
`
	s, err := session.Parse([]byte(src))
	require.NoError(t, err)
	f, err := s.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"f0.h", "f0.a"}, f.ParameterNames())
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()
	tests := map[string]string{
		"leaf fix_all": "function: name=FlatBackground\nfix_all: [A0]\ndata: {x: [1], y: [1]}",
		"bad init":     "function: name=Voigt\ndata: {x: [1], y: [1]}",
		"bad tie":      "function: name=FlatBackground\nties: {A1: A0}\ndata: {x: [1], y: [1]}",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := session.Parse([]byte(src))
			require.NoError(t, err)
			_, err = s.Build(ctx)
			assert.Error(t, err)
		})
	}

	s, err := session.Parse([]byte(tests["leaf fix_all"]))
	require.NoError(t, err)
	_, err = s.Build(ctx)
	assert.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"no function": "data: {x: [1], y: [1]}",
		"both":        "function: name=FlatBackground\nfunctions: [{name: Gaussian}]\ndata: {x: [1], y: [1]}",
		"unnamed":     "functions: [{parameters: {A0: 1}}]\ndata: {x: [1], y: [1]}",
		"no data":     "function: name=FlatBackground",
		"short y":     "function: name=FlatBackground\ndata: {x: [1, 2], y: [1]}",
		"short e":     "function: name=FlatBackground\ndata: {x: [1, 2], y: [1, 2], e: [1]}",
		"iterations":  "function: name=FlatBackground\ndata: {x: [1], y: [1]}\nminimizer: {max_iterations: -1}",
		"tolerance":   "function: name=FlatBackground\ndata: {x: [1], y: [1]}\nminimizer: {tolerance: .inf}",
		"cost":        "function: name=FlatBackground\ndata: {x: [1], y: [1]}\nminimizer: {cost_function: huber}",
		"unknown key": "function: name=FlatBackground\ndata: {x: [1], y: [1]}\nweights: [1]",
		"not yaml":    "function: [",
		"wrong type":  "function: name=FlatBackground\ndata: {x: [a], y: [1]}",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := session.Parse([]byte(src))
			assert.ErrorIs(t, err, session.ErrInvalidSession)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.yaml")
	require.NoError(t, os.WriteFile(path, []byte(lineSession), 0o600))

	s, err := session.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "name=LinearBackground,A0=0,A1=0", s.Function)

	_, err = session.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
