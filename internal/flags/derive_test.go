package flags_test

import (
	"reflect"
	"testing"

	"convocoach/internal/catalog"
	"convocoach/internal/conversation"
	"convocoach/internal/flags"
	"convocoach/internal/match"
)

func result(matcherID string, speakers ...conversation.SpeakerRole) match.MatcherResult {
	matches := make([]match.Record, 0, len(speakers))
	for i, s := range speakers {
		matches = append(matches, match.Record{MatcherID: matcherID, TurnIndex: i, Speaker: s, Phrase: "p"})
	}
	return match.MatcherResult{MatcherID: matcherID, MatchCount: len(matches), Matches: matches}
}

func TestDeriveRuleTable(t *testing.T) {
	cases := []struct {
		name    string
		results []match.MatcherResult
		want    []string
	}{
		{
			name:    "agent compliance violation",
			results: []match.MatcherResult{result(catalog.MatcherComplianceViolations, conversation.SpeakerAgent)},
			want:    []string{flags.AgentComplianceViolation},
		},
		{
			name:    "compliance phrase from customer does not flag",
			results: []match.MatcherResult{result(catalog.MatcherComplianceViolations, conversation.SpeakerCustomer)},
			want:    []string{},
		},
		{
			name:    "customer escalation",
			results: []match.MatcherResult{result(catalog.MatcherEscalationTriggers, conversation.SpeakerCustomer)},
			want:    []string{flags.CustomerEscalation},
		},
		{
			name:    "escalation phrase from agent does not flag",
			results: []match.MatcherResult{result(catalog.MatcherEscalationTriggers, conversation.SpeakerAgent)},
			want:    []string{},
		},
		{
			name:    "vulnerability from either speaker",
			results: []match.MatcherResult{result(catalog.MatcherVulnerabilityIndicators, conversation.SpeakerCustomer)},
			want:    []string{flags.VulnerabilityDetected},
		},
		{
			name:    "vulnerability from agent",
			results: []match.MatcherResult{result(catalog.MatcherVulnerabilityIndicators, conversation.SpeakerAgent)},
			want:    []string{flags.VulnerabilityDetected},
		},
		{
			name:    "agent empathy",
			results: []match.MatcherResult{result(catalog.MatcherEmpathyIndicators, conversation.SpeakerAgent)},
			want:    []string{flags.AgentEmpathyShown},
		},
		{
			name:    "agent disclosure",
			results: []match.MatcherResult{result(catalog.MatcherRequiredDisclosures, conversation.SpeakerAgent)},
			want:    []string{flags.DisclosurePresent},
		},
		{
			name:    "disclosure phrase from customer does not flag",
			results: []match.MatcherResult{result(catalog.MatcherRequiredDisclosures, conversation.SpeakerCustomer)},
			want:    []string{},
		},
		{
			name:    "empty input",
			results: nil,
			want:    []string{},
		},
		{
			name: "combined and sorted",
			results: []match.MatcherResult{
				result(catalog.MatcherVulnerabilityIndicators, conversation.SpeakerCustomer),
				result(catalog.MatcherComplianceViolations, conversation.SpeakerAgent),
			},
			want: []string{flags.AgentComplianceViolation, flags.VulnerabilityDetected},
		},
		{
			name: "mixed speakers within one matcher",
			results: []match.MatcherResult{
				result(catalog.MatcherComplianceViolations, conversation.SpeakerCustomer, conversation.SpeakerAgent),
			},
			want: []string{flags.AgentComplianceViolation},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := flags.Derive(tc.results)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Derive() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeriveMonotonicUnderSupersetCatalog(t *testing.T) {
	base := []match.MatcherResult{
		result(catalog.MatcherComplianceViolations, conversation.SpeakerAgent),
	}
	superset := append([]match.MatcherResult{}, base...)
	superset = append(superset,
		result(catalog.MatcherEscalationTriggers, conversation.SpeakerCustomer),
		result(catalog.MatcherVulnerabilityIndicators, conversation.SpeakerCustomer),
	)

	baseFlags := flags.Derive(base)
	supersetFlags := flags.Derive(superset)

	have := make(map[string]struct{}, len(supersetFlags))
	for _, f := range supersetFlags {
		have[f] = struct{}{}
	}
	for _, f := range baseFlags {
		if _, ok := have[f]; !ok {
			t.Fatalf("flag %q lost under superset catalog", f)
		}
	}
}

func TestDeriveDeduplicates(t *testing.T) {
	results := []match.MatcherResult{
		result(catalog.MatcherComplianceViolations, conversation.SpeakerAgent, conversation.SpeakerAgent, conversation.SpeakerAgent),
	}
	got := flags.Derive(results)
	if len(got) != 1 || got[0] != flags.AgentComplianceViolation {
		t.Fatalf("expected single deduplicated flag, got %v", got)
	}
}
