package expr

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions is the fixed function table shared by every evaluation.
var functions = map[string]function.Function{
	"exp":   unaryFunc(math.Exp),
	"log":   unaryFunc(math.Log),
	"ln":    unaryFunc(math.Log),
	"log10": unaryFunc(math.Log10),
	"sqrt":  unaryFunc(math.Sqrt),
	"sin":   unaryFunc(math.Sin),
	"cos":   unaryFunc(math.Cos),
	"tan":   unaryFunc(math.Tan),
	"asin":  unaryFunc(math.Asin),
	"acos":  unaryFunc(math.Acos),
	"atan":  unaryFunc(math.Atan),
	"sinh":  unaryFunc(math.Sinh),
	"cosh":  unaryFunc(math.Cosh),
	"tanh":  unaryFunc(math.Tanh),
	"erf":   unaryFunc(math.Erf),
	"pow":   binaryFunc(math.Pow),
	"abs":   stdlib.AbsoluteFunc,
	"min":   stdlib.MinFunc,
	"max":   stdlib.MaxFunc,
}

// FunctionNames lists the callable function names in sorted order.
func FunctionNames() []string {
	return slices.Sorted(maps.Keys(functions))
}

// numberVal converts f into a cty number, rejecting NaN and ±Inf.
func numberVal(f float64) (cty.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return cty.NilVal, fmt.Errorf("%w: %v", ErrNonFinite, f)
	}

	return cty.NumberFloatVal(f), nil
}

// floatOf converts a known cty number to float64.
func floatOf(v cty.Value) float64 {
	f, _ := v.AsBigFloat().Float64()

	return f
}

func unaryFunc(fn func(float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "x", Type: cty.Number}},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return numberVal(fn(floatOf(args[0])))
		},
	})
}

func binaryFunc(fn func(float64, float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "a", Type: cty.Number},
			{Name: "b", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return numberVal(fn(floatOf(args[0]), floatOf(args[1])))
		},
	})
}
