package narrative

import (
	"regexp"
	"strings"
)

// Structured is the labeled-section form of a narrative, when the model
// honored the requested format. All fields are optional.
type Structured struct {
	Summary         string `json:"summary,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`
	RiskAssessment  string `json:"risk_assessment,omitempty"`
	ActionItems     string `json:"action_items,omitempty"`

	// Market outlook variant
	ShortTerm  string `json:"short_term,omitempty"`
	MediumTerm string `json:"medium_term,omitempty"`
	KeyFactors string `json:"key_factors,omitempty"`
	Support    string `json:"support,omitempty"`
	Resistance string `json:"resistance,omitempty"`
	FairValue  string `json:"fair_value,omitempty"`
	Trend      string `json:"trend,omitempty"`
}

// ParseResult carries the raw model output plus the structured form when
// one could be extracted. Consumers must handle Structured == nil
// explicitly: a parse miss is a normal variant, not an error.
type ParseResult struct {
	Raw        string      `json:"raw"`
	Structured *Structured `json:"structured,omitempty"`
}

// sectionLabels maps wire labels to Structured field setters.
var sectionLabels = []struct {
	label string
	set   func(*Structured, string)
}{
	{"SUMMARY", func(s *Structured, v string) { s.Summary = v }},
	{"RECOMMENDATIONS", func(s *Structured, v string) { s.Recommendations = v }},
	{"RISK_ASSESSMENT", func(s *Structured, v string) { s.RiskAssessment = v }},
	{"ACTION_ITEMS", func(s *Structured, v string) { s.ActionItems = v }},
	{"SHORT_TERM", func(s *Structured, v string) { s.ShortTerm = v }},
	{"MEDIUM_TERM", func(s *Structured, v string) { s.MediumTerm = v }},
	{"KEY_FACTORS", func(s *Structured, v string) { s.KeyFactors = v }},
	{"SUPPORT", func(s *Structured, v string) { s.Support = v }},
	{"RESISTANCE", func(s *Structured, v string) { s.Resistance = v }},
	{"FAIR_VALUE", func(s *Structured, v string) { s.FairValue = v }},
	{"TREND", func(s *Structured, v string) { s.Trend = v }},
}

// labelPattern matches "LABEL:" at the start of a line, tolerating
// leading whitespace and markdown bold markers.
var labelPattern = regexp.MustCompile(`(?m)^\s*\**([A-Z_]+)\**\s*:`)

// Parse extracts labeled sections from model output.
// The raw text is always preserved; Structured is set only when at least
// one known section label was found.
func Parse(raw string) ParseResult {
	result := ParseResult{Raw: raw}

	matches := labelPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return result
	}

	known := make(map[string]bool, len(sectionLabels))
	for _, sl := range sectionLabels {
		known[sl.label] = true
	}

	// Slice the text between consecutive labels
	sections := make(map[string]string)
	for i, m := range matches {
		label := raw[m[2]:m[3]]
		if !known[label] {
			continue
		}

		bodyStart := m[1] // end of the "LABEL:" match
		bodyEnd := len(raw)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}

		body := strings.TrimSpace(raw[bodyStart:bodyEnd])
		if body != "" {
			sections[label] = body
		}
	}

	if len(sections) == 0 {
		return result
	}

	structured := &Structured{}
	for _, sl := range sectionLabels {
		if v, ok := sections[sl.label]; ok {
			sl.set(structured, v)
		}
	}
	result.Structured = structured
	return result
}
