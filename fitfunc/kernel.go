// SPDX-License-Identifier: MIT

package fitfunc

// ParameterSpec declares one parameter of a Kernel.
type ParameterSpec struct {
	Name        string
	Default     float64
	Description string
}

// Attribute is a non-fitted setting of a Kernel (e.g. a user formula).
// Value holds a string or a float64.
type Attribute struct {
	Name  string
	Value any
}

// Kernel is the mathematical object a Leaf wraps. Implementations live in
// package factory; tests may supply their own.
type Kernel interface {
	// Name identifies the kernel kind, e.g. "Gaussian".
	Name() string
	// Parameters lists the parameters in declared order. Names must be unique.
	Parameters() []ParameterSpec
	// Evaluate writes the function value at each x into out, with params
	// ordered as Parameters(). len(out) >= len(x).
	Evaluate(params, x, out []float64) error
}

// Attributed is implemented by kernels that carry attributes.
type Attributed interface {
	Attributes() []Attribute
}

// Constrainer is implemented by kernels that come with default bounds,
// written in the same syntax Leaf.Constrain accepts.
type Constrainer interface {
	Constraints() []string
}
