package factory

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/katalvlaran/lvfit/expr"
	"github.com/katalvlaran/lvfit/fitfunc"
)

// Parse builds a function tree from an init string, the format
// fitfunc.Function.String produces:
//
//	name=Gaussian,Height=10,PeakCentre=1,Sigma=0.5,ties=(Height=10),constraints=(Sigma>0)
//	composite=CompositeFunction;name=...;(name=...;name=...);ties=(f1.Sigma=f0.Sigma)
//
// Functions are separated by ';', nested composites are parenthesised and a
// tie to a constant fixes the parameter at that value. A string with a
// single function and no composite header yields a *fitfunc.Leaf.
func (r *Registry) Parse(init string) (fitfunc.Function, error) {
	if strings.TrimSpace(init) == "" {
		return nil, fmt.Errorf("%w: empty init string", ErrSyntax)
	}

	return r.parseFunction(init)
}

func (r *Registry) parseFunction(src string) (fitfunc.Function, error) {
	var (
		header      bool
		children    []fitfunc.Function
		ties        []string
		constraints []string
	)
	for _, seg := range expr.Split(src, ';') {
		key, value, _ := strings.Cut(seg, "=")
		switch key = strings.TrimSpace(key); {
		case strings.HasPrefix(seg, "("):
			inner, err := unparen(seg)
			if err != nil {
				return nil, err
			}
			child, err := r.parseFunction(inner)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		case key == "composite":
			if strings.TrimSpace(value) != fitfunc.CompositeName {
				return nil, fmt.Errorf("%w: composite type %q", ErrUnknownFunction, value)
			}
			header = true
		case key == "ties":
			list, err := unparen(value)
			if err != nil {
				return nil, err
			}
			ties = append(ties, expr.Split(list, ',')...)
		case key == "constraints":
			list, err := unparen(value)
			if err != nil {
				return nil, err
			}
			constraints = append(constraints, list)
		case key == "name":
			leaf, err := r.parseLeaf(seg)
			if err != nil {
				return nil, err
			}
			children = append(children, leaf)
		default:
			return nil, fmt.Errorf("%w: unexpected segment %q", ErrSyntax, seg)
		}
	}

	if !header && len(children) == 1 && len(ties) == 0 && len(constraints) == 0 {
		return children[0], nil
	}
	c, err := fitfunc.NewComposite(children...)
	if err != nil {
		return nil, err
	}
	if err := applyTies(c, ties); err != nil {
		return nil, err
	}
	for _, list := range constraints {
		if err := c.Constrain(list); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// parseLeaf reads "name=Kind,attr=...,Param=value,...,ties=(...),constraints=(...)".
func (r *Registry) parseLeaf(src string) (*fitfunc.Leaf, error) {
	items := expr.Split(src, ',')
	_, name, _ := strings.Cut(items[0], "=")
	name = strings.TrimSpace(name)
	kind, err := r.kind(name)
	if err != nil {
		return nil, err
	}

	type assignment struct{ key, value string }
	var (
		attrs       = make(map[string]string)
		params      []assignment
		ties        []string
		constraints []string
	)
	for _, item := range items[1:] {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s is not key=value", ErrSyntax, item, name)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch {
		case key == "ties":
			list, err := unparen(value)
			if err != nil {
				return nil, err
			}
			ties = append(ties, expr.Split(list, ',')...)
		case key == "constraints":
			list, err := unparen(value)
			if err != nil {
				return nil, err
			}
			constraints = append(constraints, list)
		case slices.Contains(kind.Attributes, key):
			v, err := unquote(value)
			if err != nil {
				return nil, err
			}
			attrs[key] = v
		default:
			params = append(params, assignment{key, value})
		}
	}

	leaf, err := r.newLeaf(name, attrs)
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		v, err := expr.Constant(p.value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrSyntax, name, p.key, err)
		}
		if err := leaf.SetParameter(p.key, v); err != nil {
			return nil, err
		}
	}
	if err := applyTies(leaf, ties); err != nil {
		return nil, err
	}
	for _, list := range constraints {
		if err := leaf.Constrain(list); err != nil {
			return nil, err
		}
	}

	return leaf, nil
}

// applyTies applies "target=expression" items; a constant expression fixes
// the target at that value.
func applyTies(f fitfunc.Function, ties []string) error {
	for _, t := range ties {
		target, src, ok := strings.Cut(t, "=")
		if !ok {
			return fmt.Errorf("%w: tie %q is not target=expression", ErrSyntax, t)
		}
		target, src = strings.TrimSpace(target), strings.TrimSpace(src)
		if v, err := expr.Constant(src); err == nil {
			if err := f.SetParameter(target, v); err != nil {
				return err
			}
			if err := f.Fix(target); err != nil {
				return err
			}
			continue
		}
		if err := f.Tie(target, src); err != nil {
			return err
		}
	}

	return nil
}

// unparen strips one pair of enclosing parentheses.
func unparen(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return "", fmt.Errorf("%w: expected (...), got %q", ErrSyntax, s)
	}

	return s[1 : len(s)-1], nil
}

// unquote removes double quotes written around attribute values.
func unquote(s string) (string, error) {
	if !strings.HasPrefix(s, `"`) {
		return s, nil
	}
	v, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("%w: attribute value %s: %v", ErrSyntax, s, err)
	}

	return v, nil
}
