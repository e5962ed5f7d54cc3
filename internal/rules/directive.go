package rules

import (
	"strings"
	"unicode"

	id "veriflow/pkg/domain"
)

// Directive is what a matched rule's action text asks for.
type Directive struct {
	// ForceStatus is empty for informational actions.
	ForceStatus id.VerificationStatus
	Notify      bool
	Text        string
}

// Forces reports whether the directive overrides the threshold outcome.
func (d Directive) Forces() bool {
	return d.ForceStatus != ""
}

// leadingVerbs maps the verb an action starts with to the status it forces.
var leadingVerbs = map[string]id.VerificationStatus{
	"review":  id.StatusReview,
	"reject":  id.StatusFailed,
	"decline": id.StatusFailed,
	"deny":    id.StatusFailed,
	"fail":    id.StatusFailed,
	"hold":    id.StatusPending,
	"defer":   id.StatusPending,
	"pending": id.StatusPending,
	"approve": id.StatusSuccess,
	"accept":  id.StatusSuccess,
}

// routingVerbs send a request somewhere; the destination decides the status
// ("Route to manual review", "Escalate for review").
var routingVerbs = map[string]bool{
	"route":    true,
	"send":     true,
	"escalate": true,
	"flag":     true,
}

// fillers may precede the verb ("Auto-approve", "Immediately reject").
var fillers = map[string]bool{
	"auto":        true,
	"immediately": true,
	"then":        true,
}

// ParseDirective reads free-form action text. Only the leading verb phrase,
// up to the first "and" or "then", decides the status: "Reject", "Decline",
// "Deny" or "Fail" force failed; "Hold", "Defer" or "Pending" force pending;
// "Approve" or "Accept" force success; "Review", or a routing verb ("Route",
// "Send", "Escalate", "Flag") whose phrase mentions review, forces review.
// A "webhook" or "notify" anywhere in the text sets Notify. Everything else
// is informational, so "Notify compliance of failed checks" forces nothing.
func ParseDirective(action string) Directive {
	d := Directive{Text: strings.TrimSpace(action)}
	words := strings.FieldsFunc(strings.ToLower(action), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, w := range words {
		if w == "webhook" || w == "webhooks" || strings.HasPrefix(w, "notif") {
			d.Notify = true
			break
		}
	}

	phrase := leadingPhrase(words)
	if len(phrase) == 0 {
		return d
	}
	verb := phrase[0]
	if status, ok := leadingVerbs[verb]; ok {
		d.ForceStatus = status
		return d
	}
	if routingVerbs[verb] {
		for _, w := range phrase[1:] {
			if w == "review" {
				d.ForceStatus = id.StatusReview
				break
			}
		}
	}
	return d
}

// leadingPhrase returns the words of the first clause with fillers dropped.
func leadingPhrase(words []string) []string {
	i := 0
	for i < len(words) && fillers[words[i]] {
		i++
	}
	end := i
	for end < len(words) && words[end] != "and" && words[end] != "then" {
		end++
	}
	return words[i:end]
}
