package rules

import (
	"strings"
)

// Context carries the facts a rule set is evaluated against for one
// request. Optional numeric facts are nil when undefined; conditions on an
// undefined fact evaluate false.
type Context struct {
	Country      string
	DocumentType string
	RiskProfile  string
	Client       string

	// Score is the mean score of successful vendor results.
	Score *float64
	// DeclaredRiskScore is the risk score supplied with the evidence.
	DeclaredRiskScore *float64
	// Latency is the slowest successful vendor latency, in seconds.
	Latency *float64

	VendorCount int
	FailedCount int

	Watchlist []string
	Checks    []string
	Device    []string
}

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindSet
)

type value struct {
	kind valueKind
	str  string
	num  float64
	set  []string
}

// lookup resolves a field name. ok is false for unknown fields and for
// optional facts that are undefined.
func (c Context) lookup(field string) (value, bool) {
	switch field {
	case "country":
		return strValue(c.Country), true
	case "document_type", "document":
		return strValue(c.DocumentType), true
	case "risk_profile":
		return strValue(c.RiskProfile), true
	case "client", "client_id":
		return strValue(c.Client), true
	case "risk_score", "score":
		return optNum(c.Score)
	case "declared_risk_score":
		return optNum(c.DeclaredRiskScore)
	case "latency":
		return optNum(c.Latency)
	case "vendor_count":
		return value{kind: kindNumber, num: float64(c.VendorCount)}, true
	case "failed_count":
		return value{kind: kindNumber, num: float64(c.FailedCount)}, true
	case "watchlist":
		return setValue(c.Watchlist), true
	case "checks":
		return setValue(c.Checks), true
	case "device":
		return setValue(c.Device), true
	}
	return value{}, false
}

func strValue(s string) value {
	return value{kind: kindString, str: strings.ToLower(strings.TrimSpace(s))}
}

func optNum(n *float64) (value, bool) {
	if n == nil {
		return value{}, false
	}
	return value{kind: kindNumber, num: *n}, true
}

func setValue(items []string) value {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if v := strings.ToLower(strings.TrimSpace(it)); v != "" {
			out = append(out, v)
		}
	}
	return value{kind: kindSet, set: out}
}
