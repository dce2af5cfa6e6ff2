package fitfunc_test

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/lvfit/fitfunc"
)

// ExampleFlatten builds two peaks that share a width and shows what a fit
// driver receives.
func ExampleFlatten() {
	newPeak := func(height, centre, width float64) *fitfunc.Leaf {
		l, _ := fitfunc.NewLeaf(poly{name: "Peak", params: []string{"A", "x0", "s"}})
		_ = l.SetParameter("A", height)
		_ = l.SetParameter("x0", centre)
		_ = l.SetParameter("s", width)
		return l
	}

	c, _ := fitfunc.Combine(newPeak(100, 5, 1), newPeak(50, 15, 2))
	_ = c.TieAll("s")
	_, _ = c.ConstrainAll("0<x0<20")

	flat, _ := fitfunc.Flatten(c)
	for _, p := range flat.Parameters {
		bound := ""
		if p.Bound != nil {
			bound = p.Bound.String()
		}
		line := fmt.Sprintf("%-6s %4g free=%-5v %s", p.Name, p.Value, p.Free, bound)
		fmt.Println(strings.TrimRight(line, " "))
	}
	for _, t := range flat.Ties {
		fmt.Println("tie", t)
	}
	// Output:
	// f0.A    100 free=true
	// f0.x0     5 free=true  0<f0.x0<20
	// f0.s      1 free=true
	// f1.A     50 free=true
	// f1.x0    15 free=true  0<f1.x0<20
	// f1.s      2 free=false
	// tie f1.s=f0.s
}
