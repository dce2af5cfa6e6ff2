// Package factory creates fitfunc leaves by name and reads init strings.
//
// The default registry knows Gaussian, Lorentzian, FlatBackground,
// LinearBackground, ExpDecay and UserFunction (attribute Formula, e.g.
// "h*exp(-a*x)", whose parameters are the formula's names other than x).
//
//	g, err := factory.Create("Gaussian", map[string]float64{"Height": 10, "Sigma": 0.5})
//	f, err := factory.Parse("name=LinearBackground,A0=1;name=Gaussian,Height=10,Sigma=0.5")
//
// Parse accepts what fitfunc.Function.String writes, so trees round-trip.
package factory
