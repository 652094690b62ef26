// Package flags derives the coarse-grained signal flags consumed by
// downstream coaching from grouped phrase match results.
//
// The mapping is a fixed rule table keyed on matcher id and speaker role.
// Extending the vocabulary means adding a row, never branching on matcher
// internals.
package flags

import (
	"sort"

	"convocoach/internal/catalog"
	"convocoach/internal/conversation"
	"convocoach/internal/match"
)

// Derived flag names.
const (
	AgentComplianceViolation = "AGENT_COMPLIANCE_VIOLATION"
	CustomerEscalation       = "CUSTOMER_ESCALATION"
	VulnerabilityDetected    = "VULNERABILITY_DETECTED"
	AgentEmpathyShown        = "AGENT_EMPATHY_SHOWN"
	DisclosurePresent        = "DISCLOSURE_PRESENT"
)

type rule struct {
	matcherID string
	// speaker restricts the rule to matches from one role; empty means any
	// speaker triggers it.
	speaker conversation.SpeakerRole
	flag    string
}

var rules = []rule{
	{catalog.MatcherComplianceViolations, conversation.SpeakerAgent, AgentComplianceViolation},
	{catalog.MatcherEscalationTriggers, conversation.SpeakerCustomer, CustomerEscalation},
	{catalog.MatcherVulnerabilityIndicators, "", VulnerabilityDetected},
	{catalog.MatcherEmpathyIndicators, conversation.SpeakerAgent, AgentEmpathyShown},
	{catalog.MatcherRequiredDisclosures, conversation.SpeakerAgent, DisclosurePresent},
}

// Derive maps grouped match results to the flag set. The result is sorted so
// repeated runs over the same input produce identical output; consumers treat
// it as a set.
func Derive(results []match.MatcherResult) []string {
	set := make(map[string]struct{})
	for _, result := range results {
		for _, r := range rules {
			if r.matcherID != result.MatcherID {
				continue
			}
			if _, already := set[r.flag]; already {
				continue
			}
			for _, m := range result.Matches {
				if r.speaker == "" || m.Speaker == r.speaker {
					set[r.flag] = struct{}{}
					break
				}
			}
		}
	}

	out := make([]string, 0, len(set))
	for flag := range set {
		out = append(out, flag)
	}
	sort.Strings(out)
	return out
}
