// Package session reads fit sessions from YAML and runs them.
//
//	function: name=FlatBackground,A0=1;name=Gaussian,Height=10,PeakCentre=5,Sigma=1
//	ties:
//	  f1.Sigma: "1"
//	constraints: ["0 < f1.Height < 100"]
//	data:
//	  x: [0, 1, 2, 3]
//	  y: [1.2, 3.4, 9.8, 3.1]
//	minimizer:
//	  cost_function: unweighted_least_squares
//
// Instead of an init string, functions may list leaves by name with
// attributes and parameters; they are combined into a composite.
package session
