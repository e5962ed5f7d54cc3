package rules

import (
	"slices"
	"strconv"
	"strings"
)

// Holds reports whether the condition is satisfied by ctx. Unknown or
// undefined fields and type mismatches evaluate false.
func (c Condition) Holds(ctx Context) bool {
	v, ok := ctx.lookup(c.Field)
	if !ok {
		return false
	}

	switch v.kind {
	case kindNumber:
		return c.holdsNumber(v.num)
	case kindString:
		return c.holdsString(v.str)
	case kindSet:
		return c.holdsSet(v.set)
	}
	return false
}

func (c Condition) holdsNumber(n float64) bool {
	lit := c.Value
	switch c.Op {
	case OpIn, OpNotIn:
		found := slices.ContainsFunc(lit.List, func(s string) bool {
			m, err := strconv.ParseFloat(s, 64)
			return err == nil && m == n
		})
		return found == (c.Op == OpIn)
	}
	if !lit.IsNum {
		return false
	}
	switch c.Op {
	case OpEq:
		return n == lit.Num
	case OpNe:
		return n != lit.Num
	case OpGt:
		return n > lit.Num
	case OpGte:
		return n >= lit.Num
	case OpLt:
		return n < lit.Num
	case OpLte:
		return n <= lit.Num
	}
	return false
}

func (c Condition) holdsString(s string) bool {
	want := strings.ToLower(c.Value.Raw)
	switch c.Op {
	case OpEq:
		return s == want
	case OpNe:
		return s != want
	case OpIn:
		return slices.Contains(c.Value.List, s)
	case OpNotIn:
		return !slices.Contains(c.Value.List, s)
	case OpContains:
		return strings.Contains(s, want)
	}
	return false
}

func (c Condition) holdsSet(set []string) bool {
	switch c.Op {
	case OpContains:
		return slices.Contains(set, strings.ToLower(c.Value.Raw))
	case OpIn:
		return slices.ContainsFunc(set, func(s string) bool { return slices.Contains(c.Value.List, s) })
	case OpNotIn:
		return !slices.ContainsFunc(set, func(s string) bool { return slices.Contains(c.Value.List, s) })
	}
	return false
}
