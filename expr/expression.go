package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// sourceName labels diagnostics produced while parsing.
const sourceName = "expression"

// reference is one parameter path occurrence inside the source text.
type reference struct {
	path       string
	start, end int // byte range in src
}

// Expression is a parsed expression together with its source text.
type Expression struct {
	src  string
	expr hclsyntax.Expression
	refs []reference // in source order, with duplicates
}

// Parse parses src as an HCL native-syntax expression. A minus sign always
// subtracts, so "f0.x0-2" reads as f0.x0 - 2 even without spaces.
// Indexing (a[0]) and splats are rejected with ErrSyntax: parameters are
// addressed by dotted paths only.
func Parse(src string) (*Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	norm := normalize(src)
	parsed, diags := hclsyntax.ParseExpression([]byte(norm.text), sourceName, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %q: %s", ErrSyntax, src, diags.Error())
	}

	e := &Expression{src: src, expr: parsed}
	for _, traversal := range parsed.Variables() {
		path, err := traversalPath(traversal)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
		}
		rng := traversal.SourceRange()
		start, end := norm.source(rng.Start.Byte, rng.End.Byte)
		e.refs = append(e.refs, reference{path: path, start: start, end: end})
	}
	sort.SliceStable(e.refs, func(i, j int) bool { return e.refs[i].start < e.refs[j].start })

	return e, nil
}

// traversalPath renders a root+attribute traversal as a dotted path.
func traversalPath(t hcl.Traversal) (string, error) {
	parts := make([]string, 0, len(t))
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			parts = append(parts, s.Name)
		case hcl.TraverseAttr:
			parts = append(parts, s.Name)
		default:
			return "", fmt.Errorf("unsupported traversal step in %q", parts)
		}
	}

	return strings.Join(parts, "."), nil
}

// String returns the source text.
func (e *Expression) String() string { return e.src }

// References returns the distinct parameter paths in order of first appearance.
func (e *Expression) References() []string {
	seen := make(map[string]struct{}, len(e.refs))
	out := make([]string, 0, len(e.refs))
	for _, r := range e.refs {
		if _, ok := seen[r.path]; ok {
			continue
		}
		seen[r.path] = struct{}{}
		out = append(out, r.path)
	}

	return out
}

// Path reports whether the whole expression is a single parameter path and
// returns it.
func (e *Expression) Path() (string, bool) {
	traversal, diags := hcl.AbsTraversalForExpr(e.expr)
	if diags.HasErrors() {
		return "", false
	}
	path, err := traversalPath(traversal)
	if err != nil {
		return "", false
	}

	return path, true
}

// Rewrite returns the source text with every reference replaced by
// rename(path). Text outside references is kept verbatim.
func (e *Expression) Rewrite(rename func(path string) string) string {
	var sb strings.Builder
	last := 0
	for _, r := range e.refs {
		sb.WriteString(e.src[last:r.start])
		sb.WriteString(rename(r.path))
		last = r.end
	}
	sb.WriteString(e.src[last:])

	return sb.String()
}

// Qualify prefixes every reference with prefix (e.g. "f1."); an empty
// prefix returns the source unchanged.
func (e *Expression) Qualify(prefix string) string {
	if prefix == "" {
		return e.src
	}

	return e.Rewrite(func(path string) string { return prefix + path })
}

// Eval evaluates the expression against scope.
func (e *Expression) Eval(scope Scope) (float64, error) {
	ctx, err := scope.evalContext()
	if err != nil {
		return 0, err
	}

	return e.eval(ctx)
}

// eval evaluates against a prepared context and converts the result.
func (e *Expression) eval(ctx *hcl.EvalContext) (result float64, err error) {
	// cty arithmetic panics with big.ErrNaN on 0*Inf and similar.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %q: %v", ErrNonFinite, e.src, r)
		}
	}()

	v, diags := e.expr.Value(ctx)
	if diags.HasErrors() {
		return 0, fmt.Errorf("%w: %q: %s", ErrEval, e.src, diags.Error())
	}
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.Number {
		return 0, fmt.Errorf("%w: %q does not yield a number", ErrEval, e.src)
	}
	f := floatOf(v)
	if _, err = numberVal(f); err != nil {
		return 0, fmt.Errorf("%q: %w", e.src, err)
	}

	return f, nil
}

// Constant parses and evaluates a variable-free expression such as "1e-3"
// or "2*pow(10, 3)".
func Constant(src string) (float64, error) {
	e, err := Parse(src)
	if err != nil {
		return 0, err
	}
	if len(e.refs) > 0 {
		return 0, fmt.Errorf("%w: %q references %v", ErrEval, src, e.References())
	}

	return e.Eval(nil)
}
