// SPDX-License-Identifier: MIT

package fitfunc

import (
	"iter"
	"sort"
	"strconv"
	"strings"

	"github.com/katalvlaran/lvfit/expr"
)

// compositeTie is a tie held at composite scope; target and references are
// paths relative to the composite.
type compositeTie struct {
	target string
	e      *expr.Expression
}

// Composite is an ordered collection of child functions whose value is the
// sum of its children. Child i addresses its parameters through the prefix
// "f{i}.", so indices and prefixes shift when a child is removed.
type Composite struct {
	children []Function
	ties     []compositeTie
	removed  []int // child indices passed to Remove, oldest first
	parent   *Composite
}

var _ Function = (*Composite)(nil)

// NewComposite returns a composite owning children, in order.
func NewComposite(children ...Function) (*Composite, error) {
	c := &Composite{}
	if _, err := c.Append(children...); err != nil {
		return nil, err
	}

	return c, nil
}

// Combine returns a new composite [a, b]. Neither argument may already
// belong to a composite. A composite argument becomes a nested child; it is
// never merged into.
func Combine(a, b Function) (*Composite, error) {
	return NewComposite(a, b)
}

func (c *Composite) Name() string { return CompositeName }

func (c *Composite) NumChildren() int { return len(c.children) }

// Child returns child i.
func (c *Composite) Child(i int) (Function, error) {
	if i < 0 || i >= len(c.children) {
		return nil, fitfuncErrorf(ErrIndexOutOfRange, "child %d of %d", i, len(c.children))
	}

	return c.children[i], nil
}

// Children returns a copy of the child list.
func (c *Composite) Children() []Function {
	out := make([]Function, len(c.children))
	copy(out, c.children)

	return out
}

// All iterates over (index, child) pairs of a snapshot of the child list.
// Every call starts a fresh pass.
func (c *Composite) All() iter.Seq2[int, Function] {
	snapshot := c.Children()

	return func(yield func(int, Function) bool) {
		for i, ch := range snapshot {
			if !yield(i, ch) {
				return
			}
		}
	}
}

// LocalPath returns the path of parameter name of child index, as seen
// from c. It does not check that the child or parameter exists.
func (c *Composite) LocalPath(name string, index int) string {
	return LocalPath(name, index)
}

// Append adds children at the end and returns c. Either all children are
// added or none: nil children, children that already have a parent and
// children that would make the tree cyclic are rejected with ErrInvalidChild.
func (c *Composite) Append(children ...Function) (*Composite, error) {
	for i, ch := range children {
		if isNilFunction(ch) {
			return c, fitfuncErrorf(ErrInvalidChild, "child %d is nil", i)
		}
		if ch.Parent() != nil {
			return c, fitfuncErrorf(ErrInvalidChild, "child %d (%s) already has a parent", i, ch.Name())
		}
		if sub, ok := ch.(*Composite); ok && sub.isAncestorOf(c) {
			return c, fitfuncErrorf(ErrInvalidChild, "child %d contains the composite", i)
		}
		for _, prev := range children[:i] {
			if prev == ch {
				return c, fitfuncErrorf(ErrInvalidChild, "child %d given twice", i)
			}
		}
	}
	for _, ch := range children {
		ch.setParent(c)
		c.children = append(c.children, ch)
	}

	return c, nil
}

// isAncestorOf reports whether c is f or encloses it.
func (c *Composite) isAncestorOf(f *Composite) bool {
	for cur := f; cur != nil; cur = cur.parent {
		if cur == c {
			return true
		}
	}

	return false
}

// Remove detaches child i and returns it. Later children move down one
// index. Ties held by c or its ancestors that involve the removed child are
// dropped; ties on later children are renumbered. ParamRefs taken through c
// to child i or a later one become stale.
func (c *Composite) Remove(i int) (Function, error) {
	if i < 0 || i >= len(c.children) {
		return nil, fitfuncErrorf(ErrIndexOutOfRange, "remove child %d of %d", i, len(c.children))
	}

	// 1. Rewrite ties at c and every ancestor scope.
	prefix := ""
	var cur Function = c
	for scope := c; scope != nil; {
		scope.shiftTies(prefix, i)
		p := scope.parent
		if p == nil {
			break
		}
		prefix = "f" + strconv.Itoa(p.indexOf(cur)) + "." + prefix
		cur, scope = p, p
	}

	// 2. Detach the child.
	removed := c.children[i]
	c.children = append(c.children[:i], c.children[i+1:]...)
	removed.setParent(nil)
	c.removed = append(c.removed, i)

	return removed, nil
}

// shiftTies updates the ties of c for removal of child removed of the
// composite reached through prefix.
func (c *Composite) shiftTies(prefix string, removed int) {
	kept := c.ties[:0]
	for _, t := range c.ties {
		target, ok := shiftPath(t.target, prefix, removed)
		if !ok {
			continue
		}
		drop := false
		src := t.e.Rewrite(func(ref string) string {
			p, ok := shiftPath(ref, prefix, removed)
			if !ok {
				drop = true
				return ref
			}
			return p
		})
		if drop {
			continue
		}
		if src != t.e.String() {
			e, err := expr.Parse(src)
			if err != nil {
				continue
			}
			t.e = e
		}
		t.target = target
		kept = append(kept, t)
	}
	c.ties = kept
}

// shiftPath renumbers path for removal of child removed below prefix.
// It reports false when path points into the removed child.
func shiftPath(path, prefix string, removed int) (string, bool) {
	if !strings.HasPrefix(path, prefix) {
		return path, true
	}
	idx, rest, ok := splitChild(path[len(prefix):])
	switch {
	case !ok || idx < removed:
		return path, true
	case idx == removed:
		return "", false
	}

	return prefix + LocalPath(rest, idx-1), true
}

// indexOf returns the index of child f, or -1.
func (c *Composite) indexOf(f Function) int {
	for i, ch := range c.children {
		if ch == f {
			return i
		}
	}

	return -1
}

// resolve finds the leaf and local name a qualified path designates. When
// stamps is non-nil every composite on the way is recorded.
func (c *Composite) resolve(path string, stamps *[]stamp) (*Leaf, string, error) {
	cur := c
	rest := path
	for {
		idx, tail, ok := splitChild(rest)
		if !ok || idx >= len(cur.children) {
			return nil, "", fitfuncErrorf(ErrUnknownParameter, "%q", path)
		}
		if stamps != nil {
			*stamps = append(*stamps, stamp{c: cur, index: idx, removals: len(cur.removed)})
		}
		switch ch := cur.children[idx].(type) {
		case *Leaf:
			if !ch.HasParameter(tail) {
				return nil, "", fitfuncErrorf(ErrUnknownParameter, "%q", path)
			}
			return ch, tail, nil
		case *Composite:
			cur, rest = ch, tail
		}
	}
}

func (c *Composite) NumParams() int {
	n := 0
	for _, ch := range c.children {
		n += ch.NumParams()
	}

	return n
}

func (c *Composite) ParameterName(i int) (string, error) {
	if i >= 0 {
		for idx, ch := range c.children {
			n := ch.NumParams()
			if i >= n {
				i -= n
				continue
			}
			name, err := ch.ParameterName(i)
			if err != nil {
				return "", err
			}
			return LocalPath(name, idx), nil
		}
	}

	return "", fitfuncErrorf(ErrUnknownParameter, "parameter index out of range")
}

func (c *Composite) ParameterNames() []string {
	out := make([]string, 0, c.NumParams())
	for idx, ch := range c.children {
		for _, name := range ch.ParameterNames() {
			out = append(out, LocalPath(name, idx))
		}
	}

	return out
}

func (c *Composite) HasParameter(path string) bool {
	_, _, err := c.resolve(path, nil)

	return err == nil
}

func (c *Composite) Parameter(path string) (float64, error) {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return 0, err
	}

	return l.Parameter(name)
}

func (c *Composite) SetParameter(path string, v float64) error {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return err
	}

	return l.SetParameter(name, v)
}

func (c *Composite) ParameterError(path string) (float64, error) {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return 0, err
	}

	return l.ParameterError(name)
}

func (c *Composite) Fix(path string) error {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return err
	}

	return l.Fix(name)
}

func (c *Composite) Unfix(path string) error {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return err
	}

	return l.Unfix(name)
}

func (c *Composite) IsFixed(path string) (bool, error) {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return false, err
	}

	return l.IsFixed(name)
}

func (c *Composite) FixAllParameters() {
	for _, ch := range c.children {
		ch.FixAllParameters()
	}
}

// FixAll fixes name in every child, in index order. The first child
// without name stops the loop with ErrMissingParameter; children before it
// stay fixed.
func (c *Composite) FixAll(name string) error {
	for i, ch := range c.children {
		if !ch.HasParameter(name) {
			return fitfuncErrorf(ErrMissingParameter, "FixAll: %q", LocalPath(name, i))
		}
		if err := ch.Fix(name); err != nil {
			return err
		}
	}

	return nil
}

// Tie binds the parameter at path to expression, whose references are
// paths relative to c. Any other tie on that parameter is replaced.
func (c *Composite) Tie(path, expression string) error {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return err
	}
	e, err := parseTie(path, expression)
	if err != nil {
		return err
	}
	for _, ref := range e.References() {
		if _, _, err := c.resolve(ref, nil); err != nil {
			return fitfuncErrorf(err, "tie %s=%s", path, expression)
		}
	}
	if err := l.Unfix(name); err != nil {
		return err
	}
	clearTie(l, name)
	c.ties = append(c.ties, compositeTie{target: path, e: e})

	return nil
}

// TieMap applies every tie in ties after checking that all targets exist.
// Ties are applied in sorted target order.
func (c *Composite) TieMap(ties map[string]string) error {
	targets := make([]string, 0, len(ties))
	for path := range ties {
		if _, _, err := c.resolve(path, nil); err != nil {
			return err
		}
		targets = append(targets, path)
	}
	sort.Strings(targets)
	for _, path := range targets {
		if err := c.Tie(path, ties[path]); err != nil {
			return err
		}
	}

	return nil
}

// TieAll ties name in children 1..N-1 to name in child 0. Every child is
// checked before any tie is created.
func (c *Composite) TieAll(name string) error {
	for i, ch := range c.children {
		if !ch.HasParameter(name) {
			return fitfuncErrorf(ErrMissingParameter, "TieAll: %q", LocalPath(name, i))
		}
	}
	for i := 1; i < len(c.children); i++ {
		if err := c.Tie(LocalPath(name, i), LocalPath(name, 0)); err != nil {
			return err
		}
	}

	return nil
}

func (c *Composite) Untie(path string) error {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return err
	}

	return l.Untie(name)
}

// UntieAll removes the tie on name from every child that has one.
// Children without name are skipped.
func (c *Composite) UntieAll(name string) {
	for _, ch := range c.children {
		if ch.HasParameter(name) {
			_ = ch.Untie(name)
		}
	}
}

func (c *Composite) UntieAllParameters() {
	c.ties = nil
	for _, ch := range c.children {
		ch.UntieAllParameters()
	}
}

// Ties lists the composite-scope ties in the order they were added.
func (c *Composite) Ties() []Tie {
	out := make([]Tie, len(c.ties))
	for i, t := range c.ties {
		out[i] = Tie{Target: t.target, Expr: t.e.String()}
	}

	return out
}

// dropTie removes the composite-scope tie on path, if any.
func (c *Composite) dropTie(path string) {
	for i, t := range c.ties {
		if t.target == path {
			c.ties = append(c.ties[:i], c.ties[i+1:]...)
			return
		}
	}
}

// Constrain applies a comma-separated bound list whose names are paths
// relative to c. Either every bound is applied or none is.
func (c *Composite) Constrain(expressions string) error {
	bounds, err := ParseBounds(expressions)
	if err != nil {
		return err
	}
	leaves := make([]*Leaf, len(bounds))
	for i, b := range bounds {
		l, name, err := c.resolve(b.Param, nil)
		if err != nil {
			return err
		}
		leaves[i] = l
		bounds[i].Param = name
	}
	for i, b := range bounds {
		leaves[i].bounds[b.Param] = b
	}

	return nil
}

// ConstrainAll applies a bound list written with local parameter names to
// every leaf below c. Syntax errors fail before anything is applied. Leaves
// lacking one of the names are left untouched and returned as qualified
// child paths ("f1", "f2.f0").
func (c *Composite) ConstrainAll(expressions string) ([]string, error) {
	bounds, err := ParseBounds(expressions)
	if err != nil {
		return nil, err
	}
	var skipped []string
	c.constrainAll(bounds, "", &skipped)

	return skipped, nil
}

func (c *Composite) constrainAll(bounds []Bound, prefix string, skipped *[]string) {
	for i, ch := range c.children {
		path := prefix + "f" + strconv.Itoa(i)
		switch ch := ch.(type) {
		case *Leaf:
			if err := ch.applyBounds(bounds); err != nil {
				*skipped = append(*skipped, path)
			}
		case *Composite:
			ch.constrainAll(bounds, path+".", skipped)
		}
	}
}

func (c *Composite) Unconstrain(path string) error {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return err
	}

	return l.Unconstrain(name)
}

// Bound returns the bound on path with Param set to path.
func (c *Composite) Bound(path string) (Bound, bool, error) {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return Bound{}, false, err
	}
	b, ok, err := l.Bound(name)
	if ok {
		b.Param = path
	}

	return b, ok, err
}

func (c *Composite) Free(path string) error {
	l, name, err := c.resolve(path, nil)
	if err != nil {
		return err
	}

	return l.Free(name)
}

// Evaluate writes the sum of the children at each x into out.
func (c *Composite) Evaluate(x, out []float64) error {
	return c.sum(x, out, func(_ int, ch Function, buf []float64) error {
		return ch.Evaluate(x, buf)
	})
}

func (c *Composite) EvaluateWith(values, x, out []float64) error {
	if len(values) != c.NumParams() {
		return fitfuncErrorf(ErrValueCount, "%d values for %d parameters", len(values), c.NumParams())
	}
	offset := 0

	return c.sum(x, out, func(_ int, ch Function, buf []float64) error {
		n := ch.NumParams()
		err := ch.EvaluateWith(values[offset:offset+n], x, buf)
		offset += n
		return err
	})
}

func (c *Composite) sum(x, out []float64, eval func(int, Function, []float64) error) error {
	if len(out) < len(x) {
		return fitfuncErrorf(ErrValueCount, "output length %d < %d points", len(out), len(x))
	}
	out = out[:len(x)]
	for i := range out {
		out[i] = 0
	}
	buf := make([]float64, len(x))
	for i, ch := range c.children {
		if err := eval(i, ch, buf); err != nil {
			return fitfuncErrorf(err, "f%d", i)
		}
		for k, v := range buf {
			out[k] += v
		}
	}

	return nil
}

func (c *Composite) Parent() *Composite { return c.parent }

func (c *Composite) setParent(p *Composite) { c.parent = p }

func (c *Composite) String() string { return formatFunction(c) }
