package catalog

// Canonical matcher ids.
const (
	MatcherComplianceViolations    = "compliance_violations"
	MatcherRequiredDisclosures     = "required_disclosures"
	MatcherEmpathyIndicators       = "empathy_indicators"
	MatcherEscalationTriggers      = "escalation_triggers"
	MatcherVulnerabilityIndicators = "vulnerability_indicators"
)

var builtinMatchers = []Matcher{
	{
		ID:          MatcherComplianceViolations,
		DisplayName: "Compliance Violations",
		Phrases: []string{
			"legal action",
			"take you to court",
			"sue you",
			"garnish your wages",
			"garnish wages",
			"seize your property",
			"lien on your property",
			"send lawyers",
			"our lawyers",
			"heard every excuse",
			"not our problem",
			"doesn't pay bills",
			"don't be dramatic",
			"irresponsible",
			"couldn't be bothered",
		},
	},
	{
		ID:          MatcherRequiredDisclosures,
		DisplayName: "Required Disclosures",
		Phrases: []string{
			"right to dispute",
			"dispute this",
			"raise a dispute",
			"hardship",
			"hardship program",
			"hardship hold",
			"financial hardship",
			"hardship provisions",
			"payment arrangement",
			"payment plan",
			"flexible",
			"confirm your",
			"verify your",
			"date of birth",
		},
	},
	{
		ID:          MatcherEmpathyIndicators,
		DisplayName: "Empathy Indicators",
		Phrases: []string{
			"I understand",
			"I'm sorry",
			"I apologise",
			"that must be",
			"I can hear how",
			"I appreciate",
			"thank you for sharing",
			"difficult situation",
			"here to help",
			"let me help",
		},
	},
	{
		ID:          MatcherEscalationTriggers,
		DisplayName: "Escalation Triggers",
		Phrases: []string{
			"speak to supervisor",
			"speak to manager",
			"speak to a manager",
			"make a complaint",
			"file a complaint",
			"formal complaint",
			"recording this",
			"this is harassment",
			"stop calling",
			"stop harassing",
			"ombudsman",
			"AFCA",
		},
	},
	{
		ID:          MatcherVulnerabilityIndicators,
		DisplayName: "Vulnerability Indicators",
		Phrases: []string{
			"cancer",
			"hospital",
			"medical",
			"diagnosis",
			"surgery",
			"mental health",
			"anxiety",
			"depression",
			"panic attack",
			"dialysis",
			"lost my job",
			"job loss",
			"unemployed",
			"no income",
			"rent behind",
			"can't afford",
			"family violence",
			"domestic violence",
			"divorce",
			"separation",
		},
	},
}

// Builtin returns the compiled-in matcher catalog.
func Builtin() *Catalog {
	cat, err := New(builtinMatchers)
	if err != nil {
		// The builtin definitions are validated by tests; a construction
		// failure here is a programming error.
		panic(err)
	}
	return cat
}
