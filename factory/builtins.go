package factory

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvfit/expr"
	"github.com/katalvlaran/lvfit/fitfunc"
)

// Built-in function names.
const (
	Gaussian         = "Gaussian"
	Lorentzian       = "Lorentzian"
	FlatBackground   = "FlatBackground"
	LinearBackground = "LinearBackground"
	ExpDecay         = "ExpDecay"
	UserFunction     = "UserFunction"
)

// MinLifetime is the default lower bound on ExpDecay's Lifetime.
const MinLifetime = 1e-12

func newBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(Gaussian, Kind{New: fixedKind(gaussian{})})
	r.Register(Lorentzian, Kind{New: fixedKind(lorentzian{})})
	r.Register(FlatBackground, Kind{New: fixedKind(flatBackground{})})
	r.Register(LinearBackground, Kind{New: fixedKind(linearBackground{})})
	r.Register(ExpDecay, Kind{New: fixedKind(expDecay{})})
	r.Register(UserFunction, Kind{Attributes: []string{"Formula"}, New: newUserFunction})

	return r
}

// fixedKind returns a constructor for a kernel without attributes.
func fixedKind(k fitfunc.Kernel) func(map[string]string) (fitfunc.Kernel, error) {
	return func(map[string]string) (fitfunc.Kernel, error) { return k, nil }
}

// gaussian: Height·exp(-½((x-PeakCentre)/Sigma)²).
type gaussian struct{}

func (gaussian) Name() string { return Gaussian }

func (gaussian) Parameters() []fitfunc.ParameterSpec {
	return []fitfunc.ParameterSpec{
		{Name: "Height", Description: "peak height"},
		{Name: "PeakCentre", Description: "centre of the peak"},
		{Name: "Sigma", Description: "standard deviation"},
	}
}

func (gaussian) Evaluate(p, x, out []float64) error {
	height, centre, sigma := p[0], p[1], p[2]
	if sigma == 0 {
		return fmt.Errorf("%w: Gaussian Sigma=0", ErrDomain)
	}
	w := 1 / (sigma * sigma)
	for i, xi := range x {
		d := xi - centre
		out[i] = height * math.Exp(-0.5*d*d*w)
	}

	return nil
}

// lorentzian: Amplitude·(Γ/2π) / ((x-PeakCentre)² + (Γ/2)²), Γ = FWHM.
type lorentzian struct{}

func (lorentzian) Name() string { return Lorentzian }

func (lorentzian) Parameters() []fitfunc.ParameterSpec {
	return []fitfunc.ParameterSpec{
		{Name: "Amplitude", Default: 1, Description: "integrated intensity"},
		{Name: "PeakCentre", Description: "centre of the peak"},
		{Name: "FWHM", Description: "full width at half maximum"},
	}
}

func (lorentzian) Evaluate(p, x, out []float64) error {
	amp, centre, fwhm := p[0], p[1], p[2]
	if fwhm == 0 {
		return fmt.Errorf("%w: Lorentzian FWHM=0", ErrDomain)
	}
	half := fwhm / 2
	for i, xi := range x {
		d := xi - centre
		out[i] = amp * (half / math.Pi) / (d*d + half*half)
	}

	return nil
}

type flatBackground struct{}

func (flatBackground) Name() string { return FlatBackground }

func (flatBackground) Parameters() []fitfunc.ParameterSpec {
	return []fitfunc.ParameterSpec{{Name: "A0", Description: "constant level"}}
}

func (flatBackground) Evaluate(p, x, out []float64) error {
	for i := range x {
		out[i] = p[0]
	}

	return nil
}

type linearBackground struct{}

func (linearBackground) Name() string { return LinearBackground }

func (linearBackground) Parameters() []fitfunc.ParameterSpec {
	return []fitfunc.ParameterSpec{
		{Name: "A0", Description: "intercept"},
		{Name: "A1", Description: "slope"},
	}
}

func (linearBackground) Evaluate(p, x, out []float64) error {
	for i, xi := range x {
		out[i] = p[0] + p[1]*xi
	}

	return nil
}

// expDecay: Height·exp(-x/Lifetime).
type expDecay struct{}

func (expDecay) Name() string { return ExpDecay }

func (expDecay) Parameters() []fitfunc.ParameterSpec {
	return []fitfunc.ParameterSpec{
		{Name: "Height", Default: 1, Description: "value at x=0"},
		{Name: "Lifetime", Default: 1, Description: "decay constant"},
	}
}

func (expDecay) Evaluate(p, x, out []float64) error {
	if p[1] == 0 {
		return fmt.Errorf("%w: ExpDecay Lifetime=0", ErrDomain)
	}
	for i, xi := range x {
		out[i] = p[0] * math.Exp(-xi/p[1])
	}

	return nil
}

func (expDecay) Constraints() []string {
	return []string{"Lifetime>" + fmt.Sprint(MinLifetime)}
}

// userFunction evaluates a formula in x; its parameters are the formula's
// free names, all starting at 0.
type userFunction struct {
	formula *expr.Formula
}

func newUserFunction(attrs map[string]string) (fitfunc.Kernel, error) {
	src, ok := attrs["Formula"]
	if !ok || src == "" {
		return nil, fmt.Errorf("%w: Formula is required", ErrInvalidAttribute)
	}
	f, err := expr.CompileFormula(src)
	if err != nil {
		return nil, fmt.Errorf("%w: Formula: %v", ErrInvalidAttribute, err)
	}

	return userFunction{formula: f}, nil
}

func (u userFunction) Name() string { return UserFunction }

func (u userFunction) Parameters() []fitfunc.ParameterSpec {
	names := u.formula.Params()
	specs := make([]fitfunc.ParameterSpec, len(names))
	for i, n := range names {
		specs[i] = fitfunc.ParameterSpec{Name: n}
	}

	return specs
}

func (u userFunction) Evaluate(p, x, out []float64) error {
	return u.formula.Eval(p, x, out)
}

func (u userFunction) Attributes() []fitfunc.Attribute {
	return []fitfunc.Attribute{{Name: "Formula", Value: u.formula.String()}}
}
