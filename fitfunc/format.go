// SPDX-License-Identifier: MIT

package fitfunc

import (
	"fmt"
	"strings"
)

// CompositeHeader opens the init string of every Composite.
const CompositeHeader = "composite=" + CompositeName

// formatFunction renders fn as an init string:
//
//	name=Gaussian,Height=10,PeakCentre=0,Sigma=1,ties=(Height=10),constraints=(0<Sigma<5)
//	composite=CompositeFunction;name=...;(composite=CompositeFunction;name=...);ties=(f1.Sigma=f0.Sigma)
//
// Fixed parameters are written as ties to their current value.
func formatFunction(fn Function) string {
	switch f := fn.(type) {
	case *Leaf:
		return formatLeaf(f)
	case *Composite:
		return formatComposite(f)
	}

	return ""
}

func formatLeaf(l *Leaf) string {
	parts := []string{"name=" + l.Name()}
	for _, a := range l.Attributes() {
		parts = append(parts, a.Name+"="+formatAttribute(a.Value))
	}
	var ties, bounds []string
	for i, name := range l.names {
		parts = append(parts, name+"="+formatFloat(l.values[i]))
		switch e, tied := l.ties[name]; {
		case l.fixed[i]:
			ties = append(ties, name+"="+formatFloat(l.values[i]))
		case tied:
			ties = append(ties, name+"="+e.String())
		}
		if b, ok := l.bounds[name]; ok {
			bounds = append(bounds, b.String())
		}
	}
	if len(ties) > 0 {
		parts = append(parts, "ties=("+strings.Join(ties, ",")+")")
	}
	if len(bounds) > 0 {
		parts = append(parts, "constraints=("+strings.Join(bounds, ",")+")")
	}

	return strings.Join(parts, ",")
}

func formatComposite(c *Composite) string {
	parts := []string{CompositeHeader}
	for _, ch := range c.children {
		s := formatFunction(ch)
		if _, nested := ch.(*Composite); nested {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	if len(c.ties) > 0 {
		ties := make([]string, len(c.ties))
		for i, t := range c.ties {
			ties[i] = t.target + "=" + t.e.String()
		}
		parts = append(parts, "ties=("+strings.Join(ties, ",")+")")
	}

	return strings.Join(parts, ";")
}

// formatAttribute quotes string values that would otherwise break the
// init-string grammar.
func formatAttribute(v any) string {
	switch v := v.(type) {
	case float64:
		return formatFloat(v)
	case string:
		if strings.ContainsAny(v, ",;()=\" ") {
			return fmt.Sprintf("%q", v)
		}
		return v
	}

	return fmt.Sprint(v)
}
