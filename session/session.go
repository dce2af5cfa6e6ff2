package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lvfit/ctxlog"
	"github.com/katalvlaran/lvfit/factory"
	"github.com/katalvlaran/lvfit/fit"
	"github.com/katalvlaran/lvfit/fitfunc"
)

// ErrInvalidSession reports a document that cannot describe a fit.
var ErrInvalidSession = errors.New("session: invalid session")

// Session is one fit: a function tree, its constraints, the data and the
// minimizer settings.
type Session struct {
	// Function is an init string; Functions a list of leaves combined
	// into a composite. Exactly one of the two is set.
	Function  string         `yaml:"function"`
	Functions []FunctionSpec `yaml:"functions"`

	// Ties maps a parameter path to an expression.
	Ties map[string]string `yaml:"ties"`
	// TieAll ties a name across all children to the first child's.
	TieAll []string `yaml:"tie_all"`
	Fix    []string `yaml:"fix"`
	// FixAll fixes a name in every child.
	FixAll       []string `yaml:"fix_all"`
	Constraints  []string `yaml:"constraints"`
	ConstrainAll []string `yaml:"constrain_all"`

	Data      DataSpec      `yaml:"data"`
	Minimizer MinimizerSpec `yaml:"minimizer"`
}

// FunctionSpec describes one leaf by kind name.
type FunctionSpec struct {
	Name       string             `yaml:"name"`
	Attributes map[string]string  `yaml:"attributes"`
	Parameters map[string]float64 `yaml:"parameters"`
}

// DataSpec holds the data set; E is optional.
type DataSpec struct {
	X []float64 `yaml:"x"`
	Y []float64 `yaml:"y"`
	E []float64 `yaml:"e"`
}

// MinimizerSpec overrides fit defaults; zero values keep them.
type MinimizerSpec struct {
	MaxIterations int     `yaml:"max_iterations"`
	CostFunction  string  `yaml:"cost_function"`
	Tolerance     float64 `yaml:"tolerance"`
}

// Report is the outcome of Run.
type Report struct {
	Function fitfunc.Function
	Result   *fit.Result
}

// Parse decodes and validates a YAML session. Unknown keys are rejected.
func Parse(data []byte) (*Session, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Session
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidSession)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Load reads and parses the session file at path.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// Validate checks the document shape. Function and constraint syntax is
// checked by Build.
func (s *Session) Validate() error {
	switch {
	case s.Function == "" && len(s.Functions) == 0:
		return fmt.Errorf("%w: function or functions is required", ErrInvalidSession)
	case s.Function != "" && len(s.Functions) > 0:
		return fmt.Errorf("%w: function and functions are exclusive", ErrInvalidSession)
	}
	for i, f := range s.Functions {
		if f.Name == "" {
			return fmt.Errorf("%w: functions[%d]: name is required", ErrInvalidSession, i)
		}
	}
	if len(s.Data.X) == 0 || len(s.Data.X) != len(s.Data.Y) {
		return fmt.Errorf("%w: data needs x and y of equal, non-zero length", ErrInvalidSession)
	}
	if len(s.Data.E) > 0 && len(s.Data.E) != len(s.Data.X) {
		return fmt.Errorf("%w: data.e has %d values for %d points", ErrInvalidSession, len(s.Data.E), len(s.Data.X))
	}
	if s.Minimizer.MaxIterations < 0 {
		return fmt.Errorf("%w: minimizer.max_iterations must be >= 0", ErrInvalidSession)
	}
	if tol := s.Minimizer.Tolerance; tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		return fmt.Errorf("%w: minimizer.tolerance must be finite and >= 0", ErrInvalidSession)
	}
	if s.Minimizer.CostFunction != "" {
		if _, err := fit.ParseCostFunction(s.Minimizer.CostFunction); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
	}

	return nil
}

// Build creates the function tree and applies the session's constraints in
// the order fix, fix_all, ties, tie_all, constraints, constrain_all.
// Children skipped by constrain_all are logged at Warn.
func (s *Session) Build(ctx context.Context) (fitfunc.Function, error) {
	f, err := s.newFunction()
	if err != nil {
		return nil, err
	}

	for _, p := range s.Fix {
		if err = f.Fix(p); err != nil {
			return nil, err
		}
	}
	if len(s.FixAll) > 0 || len(s.TieAll) > 0 || len(s.ConstrainAll) > 0 {
		if _, ok := f.(*fitfunc.Composite); !ok {
			return nil, fmt.Errorf("%w: fix_all, tie_all and constrain_all need a composite", ErrInvalidSession)
		}
	}
	c, _ := f.(*fitfunc.Composite)
	for _, name := range s.FixAll {
		if err = c.FixAll(name); err != nil {
			return nil, err
		}
	}
	if len(s.Ties) > 0 {
		if err = f.TieMap(s.Ties); err != nil {
			return nil, err
		}
	}
	for _, name := range s.TieAll {
		if err = c.TieAll(name); err != nil {
			return nil, err
		}
	}
	for _, expr := range s.Constraints {
		if err = f.Constrain(expr); err != nil {
			return nil, err
		}
	}
	for _, expr := range s.ConstrainAll {
		skipped, err := c.ConstrainAll(expr)
		if err != nil {
			return nil, err
		}
		if len(skipped) > 0 {
			ctxlog.FromContext(ctx).Warn("Constraint skipped", "constraint", expr, "children", skipped)
		}
	}

	return f, nil
}

func (s *Session) newFunction() (fitfunc.Function, error) {
	if s.Function != "" {
		return factory.Parse(s.Function)
	}
	children := make([]fitfunc.Function, 0, len(s.Functions))
	for _, spec := range s.Functions {
		opts := make([]factory.CreateOption, 0, len(spec.Attributes))
		for k, v := range spec.Attributes {
			opts = append(opts, factory.WithAttribute(k, v))
		}
		leaf, err := factory.Create(spec.Name, spec.Parameters, opts...)
		if err != nil {
			return nil, err
		}
		children = append(children, leaf)
	}

	return fitfunc.NewComposite(children...)
}

// Options translates the minimizer settings into fit options.
func (s *Session) Options() []fit.Option {
	var opts []fit.Option
	if s.Minimizer.MaxIterations > 0 {
		opts = append(opts, fit.WithMaxIterations(s.Minimizer.MaxIterations))
	}
	if s.Minimizer.Tolerance > 0 {
		opts = append(opts, fit.WithTolerance(s.Minimizer.Tolerance))
	}
	if c, err := fit.ParseCostFunction(s.Minimizer.CostFunction); err == nil && s.Minimizer.CostFunction != "" {
		opts = append(opts, fit.WithCostFunction(c))
	}

	return opts
}

// Run builds the function and fits it to the session data.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	f, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	data := fit.Data{X: s.Data.X, Y: s.Data.Y}
	if len(s.Data.E) > 0 {
		data.E = s.Data.E
	}
	res, err := fit.Fit(ctx, f, data, s.Options()...)
	if err != nil {
		return nil, err
	}

	return &Report{Function: f, Result: res}, nil
}
