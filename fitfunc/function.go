// SPDX-License-Identifier: MIT

package fitfunc

import (
	"strconv"
	"strings"
)

// CompositeName is the Name of every Composite.
const CompositeName = "CompositeFunction"

// Tie binds Target to the value of Expr. Both use names local to the
// function that holds the tie.
type Tie struct {
	Target string
	Expr   string
}

// String renders the tie as "Target=Expr".
func (t Tie) String() string { return t.Target + "=" + t.Expr }

// Function is a node of a function tree: a *Leaf or a *Composite.
//
// Parameter names are local: a Leaf uses its kernel's names ("Sigma"), a
// Composite uses qualified paths ("f1.Sigma", "f0.f2.Height").
type Function interface {
	// Name is the kernel name for a Leaf and CompositeName for a Composite.
	Name() string
	NumParams() int
	ParameterName(i int) (string, error)
	ParameterNames() []string
	HasParameter(name string) bool
	Parameter(name string) (float64, error)
	SetParameter(name string, v float64) error
	// ParameterError is the standard error recorded by Apply (0 before a fit).
	ParameterError(name string) (float64, error)

	Fix(name string) error
	Unfix(name string) error
	IsFixed(name string) (bool, error)
	FixAllParameters()

	Tie(name, expression string) error
	TieMap(ties map[string]string) error
	Untie(name string) error
	UntieAllParameters()
	// Ties lists the ties held at this level, in a stable order.
	Ties() []Tie

	Constrain(expressions string) error
	Unconstrain(name string) error
	// Bound returns the bound on name, if any.
	Bound(name string) (Bound, bool, error)
	Free(name string) error

	Evaluate(x, out []float64) error
	// EvaluateWith evaluates using values (ordered as ParameterNames)
	// instead of the stored parameter values.
	EvaluateWith(values, x, out []float64) error

	// Parent is the owning Composite, or nil for a root.
	Parent() *Composite
	String() string

	setParent(c *Composite)
}

// LocalPath returns the path of a child parameter as seen from its parent:
// "f{index}.{name}".
func LocalPath(name string, index int) string {
	return "f" + strconv.Itoa(index) + "." + name
}

// splitChild cuts "f{i}.rest" into i and rest.
func splitChild(path string) (int, string, bool) {
	head, rest, ok := strings.Cut(path, ".")
	if !ok || len(head) < 2 || head[0] != 'f' || rest == "" {
		return 0, "", false
	}
	idx, err := strconv.Atoi(head[1:])
	if err != nil || idx < 0 || strconv.Itoa(idx) != head[1:] {
		return 0, "", false
	}

	return idx, rest, true
}

// isNilFunction catches untyped nil and typed-nil pointers.
func isNilFunction(f Function) bool {
	switch v := f.(type) {
	case nil:
		return true
	case *Leaf:
		return v == nil
	case *Composite:
		return v == nil
	}

	return false
}
