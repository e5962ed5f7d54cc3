package rules

import (
	id "veriflow/pkg/domain"
)

// Match identifies the rule that fired.
type Match struct {
	RuleID    id.RuleID `json:"rule_id"`
	RuleName  string    `json:"rule_name"`
	Action    string    `json:"action"`
	Directive Directive `json:"-"`
}

// RuleTrace records how far evaluation of one rule went.
type RuleTrace struct {
	RuleID  id.RuleID `json:"rule_id"`
	Matched bool      `json:"matched"`
	// ConditionsEvaluated counts conditions checked before the rule was
	// decided; evaluation stops at the first false condition.
	ConditionsEvaluated int `json:"conditions_evaluated"`
	// FailedCondition is the first condition that did not hold.
	FailedCondition string `json:"failed_condition,omitempty"`
}

// Evaluation is the result of running a rule set.
type Evaluation struct {
	Match     *Match      `json:"match,omitempty"`
	Evaluated []RuleTrace `json:"evaluated"`
}

// Evaluate runs enabled rules in priority order. The first rule whose
// conditions all hold wins and no later rule is evaluated. A nil rule set
// yields no match.
func Evaluate(rs *RuleSet, ctx Context) Evaluation {
	var eval Evaluation
	for _, rule := range rs.Rules() {
		trace := RuleTrace{RuleID: rule.ID, Matched: true}
		for _, cond := range rule.Conditions {
			trace.ConditionsEvaluated++
			if !cond.Holds(ctx) {
				trace.Matched = false
				trace.FailedCondition = cond.String()
				break
			}
		}
		eval.Evaluated = append(eval.Evaluated, trace)
		if trace.Matched {
			eval.Match = &Match{
				RuleID:    rule.ID,
				RuleName:  rule.Name,
				Action:    rule.Action,
				Directive: rule.Directive,
			}
			return eval
		}
	}
	return eval
}
