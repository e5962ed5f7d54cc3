// Package rules evaluates prioritized business rules against the facts of
// one verification request. Conditions are parsed once when a rule set is
// compiled; evaluation is pure and deterministic.
package rules

import (
	"sort"
	"strings"

	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
)

// Definition is a rule as delivered by the administrative configuration.
type Definition struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Priority   int      `yaml:"priority" json:"priority"`
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	Conditions []string `yaml:"conditions" json:"conditions"`
	Action     string   `yaml:"action" json:"action"`
}

// Rule is a compiled rule.
//
// Invariants:
//   - ID is a non-empty slug
//   - Conditions is non-empty; all must hold for the rule to match
type Rule struct {
	ID         id.RuleID
	Name       string
	Priority   int
	Enabled    bool
	Conditions []Condition
	Action     string
	Directive  Directive
}

// NewRule parses a definition.
func NewRule(def Definition) (Rule, error) {
	ruleID, err := id.ParseRuleID(def.ID)
	if err != nil {
		return Rule{}, err
	}
	if len(def.Conditions) == 0 {
		return Rule{}, dErrors.New(dErrors.CodeValidation, "rule "+ruleID.String()+": at least one condition is required")
	}
	conds := make([]Condition, 0, len(def.Conditions))
	for _, text := range def.Conditions {
		c, err := ParseCondition(text)
		if err != nil {
			return Rule{}, dErrors.Wrap(err, dErrors.CodeValidation, "rule "+ruleID.String())
		}
		conds = append(conds, c)
	}
	return Rule{
		ID:         ruleID,
		Name:       strings.TrimSpace(def.Name),
		Priority:   def.Priority,
		Enabled:    def.Enabled,
		Conditions: conds,
		Action:     strings.TrimSpace(def.Action),
		Directive:  ParseDirective(def.Action),
	}, nil
}

// RuleSet is an immutable, priority-ordered list of enabled rules.
type RuleSet struct {
	version string
	rules   []Rule
	total   int
}

// NewRuleSet orders enabled rules by ascending priority. Rules with equal
// priority keep their input order.
func NewRuleSet(version string, rules []Rule) *RuleSet {
	enabled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})
	return &RuleSet{version: version, rules: enabled, total: len(rules)}
}

// Compile parses definitions into a rule set. Duplicate ids are rejected.
func Compile(version string, defs []Definition) (*RuleSet, error) {
	rules := make([]Rule, 0, len(defs))
	seen := make(map[id.RuleID]struct{}, len(defs))
	for _, def := range defs {
		r, err := NewRule(def)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[r.ID]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate rule id "+r.ID.String())
		}
		seen[r.ID] = struct{}{}
		rules = append(rules, r)
	}
	return NewRuleSet(version, rules), nil
}

func (rs *RuleSet) Version() string {
	if rs == nil {
		return ""
	}
	return rs.version
}

// Rules returns the enabled rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	return rs.rules
}

// Total counts all compiled rules, disabled ones included.
func (rs *RuleSet) Total() int {
	if rs == nil {
		return 0
	}
	return rs.total
}
