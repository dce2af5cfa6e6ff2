package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Scope maps dotted parameter paths to values.
// "f0.Sigma" becomes attribute Sigma of root variable f0.
type Scope map[string]float64

// node is an intermediate tree used to build nested cty objects.
type node struct {
	leaf     bool
	value    float64
	children map[string]*node
}

// evalContext builds the HCL evaluation context for s.
func (s Scope) evalContext() (*hcl.EvalContext, error) {
	vars, err := s.variables()
	if err != nil {
		return nil, err
	}

	return &hcl.EvalContext{Variables: vars, Functions: functions}, nil
}

// variables converts s into root-level cty values.
func (s Scope) variables() (map[string]cty.Value, error) {
	root := &node{children: map[string]*node{}}

	// Sorted insertion keeps conflict errors deterministic.
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := root.insert(p, s[p]); err != nil {
			return nil, err
		}
	}

	vars := make(map[string]cty.Value, len(root.children))
	for name, child := range root.children {
		v, err := child.value2cty()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		vars[name] = v
	}

	return vars, nil
}

func (n *node) insert(path string, value float64) error {
	cur := n
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrScopeConflict, path)
		}
		if cur.leaf {
			return fmt.Errorf("%w: %q extends a value path", ErrScopeConflict, path)
		}
		next, ok := cur.children[part]
		if !ok {
			next = &node{children: map[string]*node{}}
			cur.children[part] = next
		}
		if i == len(parts)-1 {
			if len(next.children) > 0 {
				return fmt.Errorf("%w: %q is also a prefix", ErrScopeConflict, path)
			}
			next.leaf, next.value = true, value
		}
		cur = next
	}

	return nil
}

func (n *node) value2cty() (cty.Value, error) {
	if n.leaf {
		return numberVal(n.value)
	}
	attrs := make(map[string]cty.Value, len(n.children))
	for name, child := range n.children {
		v, err := child.value2cty()
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: %w", name, err)
		}
		attrs[name] = v
	}

	return cty.ObjectVal(attrs), nil
}
