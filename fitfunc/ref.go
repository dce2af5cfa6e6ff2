// SPDX-License-Identifier: MIT

package fitfunc

// stamp records the child index a ref passes through in c and how many
// removals c had seen at Ref time.
type stamp struct {
	c        *Composite
	index    int
	removals int
}

// stale reports whether a removal at or before the stamped index happened
// after the stamp was taken. Removals above the index leave it in place.
func (s stamp) stale() bool {
	for _, i := range s.c.removed[s.removals:] {
		if i <= s.index {
			return true
		}
	}

	return false
}

// ParamRef is a qualified parameter path retained across calls. It stays
// valid until a composite on its path removes the child the path goes
// through or one before it; after that
// every use fails with ErrUnknownParameter instead of resolving to
// whichever child now sits at the old index.
type ParamRef struct {
	root   *Composite
	path   string
	leaf   *Leaf
	local  string
	stamps []stamp
}

// Path returns the qualified path the ref was taken for.
func (r ParamRef) Path() string { return r.path }

// Ref resolves path now and returns a handle to it.
func (c *Composite) Ref(path string) (ParamRef, error) {
	var stamps []stamp
	l, local, err := c.resolve(path, &stamps)
	if err != nil {
		return ParamRef{}, err
	}

	return ParamRef{root: c, path: path, leaf: l, local: local, stamps: stamps}, nil
}

// check reports ErrUnknownParameter for refs that are stale or belong to
// another composite.
func (c *Composite) check(r ParamRef) error {
	if r.root != c || r.leaf == nil {
		return fitfuncErrorf(ErrUnknownParameter, "ref %q does not belong to this composite", r.path)
	}
	for _, s := range r.stamps {
		if s.stale() {
			return fitfuncErrorf(ErrUnknownParameter, "stale ref %q", r.path)
		}
	}

	return nil
}

// ParameterByRef returns the value behind r.
func (c *Composite) ParameterByRef(r ParamRef) (float64, error) {
	if err := c.check(r); err != nil {
		return 0, err
	}

	return r.leaf.Parameter(r.local)
}

// SetParameterByRef sets the value behind r.
func (c *Composite) SetParameterByRef(r ParamRef, v float64) error {
	if err := c.check(r); err != nil {
		return err
	}

	return r.leaf.SetParameter(r.local, v)
}
