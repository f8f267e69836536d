package workflow

import (
	"regexp"
	"strings"
)

// Keyword rule table for module assignment when the reasoning adapter is
// unavailable. First match wins, in declaration order.
var moduleRules = []struct {
	module   string
	keywords []string
}{
	{"CNTR", []string{"container", "cmau", "mscu", "cntr_no", "duplicate", "identical containers", "bay", "slots"}},
	{"VSL", []string{"vessel", "mv", "vessel advice", "vessel_err_4", "system vessel name", "baplie", "coarri", "terminal", "load completed"}},
	{"EDI/API", []string{"edi", "message", "ref-ift", "stuck in error", "acknowledgment", "ack_at is null", "correlation_id", "httpstatus"}},
	{"Infra/SRE", []string{"database", "connection", "timeout", "service", "system", "infrastructure"}},
}

// Structural entity patterns: container codes, vessel names, message
// references, error codes.
var (
	containerPattern = regexp.MustCompile(`[CM]MAU\d+|[CM]SCU\d+`)
	vesselPattern    = regexp.MustCompile(`MV\s+[A-Z][A-Z\s]*`)
	messagePattern   = regexp.MustCompile(`REF-[A-Z]+-\d+`)
	errorCodePattern = regexp.MustCompile(`[A-Z_]+_ERR_\d+`)
)

var (
	highSeverityTerms   = []string{"critical", "urgent", "immediate", "down", "failed", "error"}
	mediumSeverityTerms = []string{"warning", "issue", "problem"}
	lowSeverityTerms    = []string{"info", "information", "notice"}
)

const maxFallbackEntities = 5

// classifyByKeywords is the deterministic fallback classifier: fixed module
// rules, structural entity extraction, and a keyword severity ladder.
func classifyByKeywords(alertText string) Classification {
	lower := strings.ToLower(alertText)

	module := "Unknown"
	var entities []string

	for _, rule := range moduleRules {
		if !containsAny(lower, rule.keywords) {
			continue
		}
		module = rule.module
		switch module {
		case "CNTR":
			entities = append(entities, containerPattern.FindAllString(alertText, -1)...)
		case "VSL":
			entities = append(entities, trimAll(vesselPattern.FindAllString(alertText, -1))...)
		case "EDI/API":
			entities = append(entities, messagePattern.FindAllString(alertText, -1)...)
		}
		break
	}

	entities = append(entities, errorCodePattern.FindAllString(alertText, -1)...)
	if len(entities) > maxFallbackEntities {
		entities = entities[:maxFallbackEntities]
	}
	if entities == nil {
		entities = []string{}
	}

	severity, urgency := "medium", "medium"
	switch {
	case containsAny(lower, highSeverityTerms):
		severity, urgency = "high", "high"
	case containsAny(lower, mediumSeverityTerms):
		severity, urgency = "medium", "medium"
	case containsAny(lower, lowSeverityTerms):
		severity, urgency = "low", "low"
	}

	alertType := "info"
	switch {
	case strings.Contains(lower, "error"):
		alertType = "error"
	case strings.Contains(lower, "warning"):
		alertType = "warning"
	}

	return Classification{
		Module:    module,
		Entities:  entities,
		AlertType: alertType,
		Severity:  severity,
		Urgency:   urgency,
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
