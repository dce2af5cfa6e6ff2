package expr

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// normalized is source text rewritten for the HCL parser. offset maps each
// byte of text back to src; inserted bytes hold -1.
type normalized struct {
	text   string
	offset []int
}

// normalize spaces out binary minus signs that HCL would read as part of an
// identifier ("b2-b3" is a single HCL name). Exponents of numeric segments
// such as "a-1e-3" are kept together.
func normalize(src string) normalized {
	tokens, diags := hclsyntax.LexExpression([]byte(src), sourceName, hcl.InitialPos)
	n := normalized{offset: make([]int, 0, len(src))}
	if diags.HasErrors() {
		n.text = src
		for i := 0; i < len(src); i++ {
			n.offset = append(n.offset, i)
		}
		return n
	}

	var sb strings.Builder
	sb.Grow(len(src))
	copyRange := func(from, to int) {
		for i := from; i < to; i++ {
			sb.WriteByte(src[i])
			n.offset = append(n.offset, i)
		}
	}
	insert := func(s string) {
		sb.WriteString(s)
		for range len(s) {
			n.offset = append(n.offset, -1)
		}
	}

	last := 0
	for _, tok := range tokens {
		if tok.Type != hclsyntax.TokenIdent || !strings.Contains(string(tok.Bytes), "-") {
			continue
		}
		start := tok.Range.Start.Byte
		copyRange(last, start)
		segment := start
		for i := start; i < tok.Range.End.Byte; i++ {
			if src[i] != '-' || isExponent(src[segment:i]) {
				continue
			}
			copyRange(segment, i)
			insert(" ")
			copyRange(i, i+1)
			insert(" ")
			segment = i + 1
		}
		copyRange(segment, tok.Range.End.Byte)
		last = tok.Range.End.Byte
	}
	copyRange(last, len(src))
	n.text = sb.String()

	return n
}

// isExponent reports whether seg is a mantissa awaiting a signed exponent,
// like "1e" or "25E".
func isExponent(seg string) bool {
	if len(seg) < 2 || (seg[len(seg)-1] != 'e' && seg[len(seg)-1] != 'E') {
		return false
	}
	for _, r := range seg[:len(seg)-1] {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// source maps the byte range [start, end) of the normalized text to src.
func (n normalized) source(start, end int) (int, int) {
	return n.offset[start], n.offset[end-1] + 1
}
