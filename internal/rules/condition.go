package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	dErrors "veriflow/pkg/domain-errors"
)

// Operator is a comparison supported in rule conditions.
type Operator string

const (
	OpEq       Operator = "=="
	OpNe       Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpIn       Operator = "in"
	OpNotIn    Operator = "not in"
	OpContains Operator = "contains"
)

// operatorTokens is ordered so longer spellings are tried before their
// prefixes (">=" before ">", "not in" before "in").
var operatorTokens = []struct {
	token string
	op    Operator
}{
	{"not in", OpNotIn},
	{"contains", OpContains},
	{"in", OpIn},
	{">=", OpGte},
	{"<=", OpLte},
	{"==", OpEq},
	{"!=", OpNe},
	{">", OpGt},
	{"<", OpLt},
	{"=", OpEq},
}

// Literal is the right-hand side of a condition, pre-parsed at load time.
type Literal struct {
	Raw   string
	Num   float64
	IsNum bool
	// List holds the lowercased members for in / not in.
	List []string
}

// Condition is one parsed `field operator literal` clause.
type Condition struct {
	Field string
	Op    Operator
	Value Literal
}

func (c Condition) String() string {
	if c.Op == OpIn || c.Op == OpNotIn {
		return fmt.Sprintf("%s %s [%s]", c.Field, c.Op, strings.Join(c.Value.List, ", "))
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Value.Raw)
}

// ParseCondition parses text such as "country == DE", "risk_score > 0.7",
// "latency < 5s", "watchlist contains PEP" or "country in [DE, FR]".
// Field names are case-insensitive; string literals may be quoted.
func ParseCondition(text string) (Condition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Condition{}, dErrors.New(dErrors.CodeValidation, "condition cannot be empty")
	}

	end := 0
	for end < len(text) && isFieldChar(text[end]) {
		end++
	}
	if end == 0 {
		return Condition{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("condition %q: missing field", text))
	}
	field := strings.ToLower(text[:end])
	rest := strings.TrimSpace(text[end:])

	for _, cand := range operatorTokens {
		if !hasOperatorPrefix(rest, cand.token) {
			continue
		}
		raw := strings.TrimSpace(rest[len(cand.token):])
		if raw == "" {
			return Condition{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("condition %q: missing value", text))
		}
		lit, err := parseLiteral(cand.op, raw)
		if err != nil {
			return Condition{}, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("condition %q", text))
		}
		return Condition{Field: field, Op: cand.op, Value: lit}, nil
	}
	return Condition{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("condition %q: unsupported operator", text))
}

// hasOperatorPrefix matches word operators only when followed by a space so
// "index" is not read as "in dex".
func hasOperatorPrefix(s, token string) bool {
	if !strings.HasPrefix(strings.ToLower(s), token) {
		return false
	}
	if token[0] >= 'a' && token[0] <= 'z' {
		return len(s) > len(token) && s[len(token)] == ' '
	}
	return true
}

func isFieldChar(b byte) bool {
	return b == '_' || b == '.' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func parseLiteral(op Operator, raw string) (Literal, error) {
	if op == OpIn || op == OpNotIn {
		inner := strings.TrimSpace(raw)
		inner = strings.TrimPrefix(inner, "[")
		inner = strings.TrimSuffix(inner, "]")
		inner = strings.TrimPrefix(inner, "(")
		inner = strings.TrimSuffix(inner, ")")
		var list []string
		for _, part := range strings.Split(inner, ",") {
			if v := strings.ToLower(unquote(strings.TrimSpace(part))); v != "" {
				list = append(list, v)
			}
		}
		if len(list) == 0 {
			return Literal{}, dErrors.New(dErrors.CodeValidation, "empty list")
		}
		return Literal{Raw: raw, List: list}, nil
	}

	value := unquote(raw)
	lit := Literal{Raw: value}
	if n, ok := parseNumber(value); ok {
		lit.Num = n
		lit.IsNum = true
	}
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		if !lit.IsNum {
			return Literal{}, dErrors.New(dErrors.CodeValidation, "ordering operators need a numeric value")
		}
	}
	return lit, nil
}

// parseNumber accepts plain numbers, percentages ("85%") and durations
// ("5s", "750ms"), the latter expressed in seconds.
func parseNumber(s string) (float64, bool) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, true
	}
	if strings.HasSuffix(s, "%") {
		if n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err == nil {
			return n / 100, true
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d.Seconds(), true
	}
	return 0, false
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
