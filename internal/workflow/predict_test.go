package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/quaylabs/foghorn/internal/histcase"
)

func histRow(id, statement string, hours float64) histcase.Row {
	return histcase.Row{
		CaseID:           id,
		Module:           "CNTR",
		ProblemStatement: statement,
		Resolution:       "resolved",
		ResolutionHours:  hours,
	}
}

func TestPredictiveAgent_NoMatchesIsLowRisk(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{errs: []error{errors.New("should not be called")}}
	corpus := histcase.NewCorpus(nil)
	agent := NewPredictiveAgent(provider, corpus, testExecutor(), nil, nil)

	got := agent.Run(context.Background(), "alert about nothing known", nil)

	want := Prediction{
		PredictedImpact:    "No similar historical incidents found",
		HistoricalPatterns: []string{},
		RiskAssessment:     "low",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("prediction mismatch (-want +got):\n%s", diff)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times, want 0", provider.calls)
	}
}

func TestPredictiveAgent_ParsesAdapterResponse(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{responses: []string{
		`{"predicted_impact": "Booking delays up to 4 hours", "historical_patterns": ["recurring dedup failure"], "risk_assessment": "high"}`,
	}}
	corpus := histcase.NewCorpus([]histcase.Row{
		histRow("HC-1", "duplicate container rows", 2),
	})
	agent := NewPredictiveAgent(provider, corpus, testExecutor(), nil, nil)

	got := agent.Run(context.Background(), "duplicate rows again", []string{"duplicate"})

	if got.PredictedImpact != "Booking delays up to 4 hours" {
		t.Errorf("PredictedImpact = %q", got.PredictedImpact)
	}
	if got.RiskAssessment != "high" {
		t.Errorf("RiskAssessment = %q, want high", got.RiskAssessment)
	}
}

func TestPredictiveAgent_InvalidRiskBecomesMedium(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{responses: []string{
		`{"predicted_impact": "Some impact", "historical_patterns": [], "risk_assessment": "catastrophic"}`,
	}}
	corpus := histcase.NewCorpus([]histcase.Row{
		histRow("HC-1", "timeout on gateway", 1),
	})
	agent := NewPredictiveAgent(provider, corpus, testExecutor(), nil, nil)

	got := agent.Run(context.Background(), "gateway timeout", nil)
	if got.RiskAssessment != "medium" {
		t.Errorf("RiskAssessment = %q, want medium for out-of-vocabulary value", got.RiskAssessment)
	}
}

func TestPredictiveAgent_AdapterErrorAggregates(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{errs: []error{errors.New("adapter down")}}
	corpus := histcase.NewCorpus([]histcase.Row{
		histRow("HC-1", "duplicate container rows", 2),
		histRow("HC-2", "duplicate container rows", 4),
		histRow("HC-3", "stuck EDI message", 6),
	})
	agent := NewPredictiveAgent(provider, corpus, testExecutor(), nil, nil)

	got := agent.Run(context.Background(), "duplicate rows", []string{"duplicate", "stuck"})

	if got.PredictedImpact != "Based on 3 similar cases, expect resolution time of 4.0 hours" {
		t.Errorf("PredictedImpact = %q", got.PredictedImpact)
	}
	want := []string{"duplicate container rows", "stuck EDI message"}
	if diff := cmp.Diff(want, got.HistoricalPatterns); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}
	if got.RiskAssessment != "medium" {
		t.Errorf("RiskAssessment = %q, want medium for 3 matches", got.RiskAssessment)
	}
}

func TestPredictiveAgent_LargeMatchSetForcesHigh(t *testing.T) {
	t.Parallel()

	// The adapter reports low risk, but six matches override it.
	provider := &fakeProvider{responses: []string{
		`{"predicted_impact": "Minor", "historical_patterns": [], "risk_assessment": "low"}`,
	}}
	rows := make([]histcase.Row, 0, forceHighAbove+1)
	for i := 0; i <= forceHighAbove; i++ {
		rows = append(rows, histRow(fmt.Sprintf("HC-%d", i), "connection reset on pool", 1))
	}
	corpus := histcase.NewCorpus(rows)
	agent := NewPredictiveAgent(provider, corpus, testExecutor(), nil, nil)

	got := agent.Run(context.Background(), "connection reset", nil)
	if got.RiskAssessment != "high" {
		t.Errorf("RiskAssessment = %q, want high when matches exceed %d", got.RiskAssessment, forceHighAbove)
	}
}

func TestAggregateMatches_TopPatternsByFrequency(t *testing.T) {
	t.Parallel()

	rows := []histcase.Row{
		histRow("1", "pattern c", 1),
		histRow("2", "pattern a", 1),
		histRow("3", "pattern a", 1),
		histRow("4", "pattern b", 1),
		histRow("5", "pattern b", 1),
		histRow("6", "pattern d", 1),
	}

	got := aggregateMatches(rows)

	// Frequency descending, lexical on ties, capped at three.
	want := []string{"pattern a", "pattern b", "pattern c"}
	if diff := cmp.Diff(want, got.HistoricalPatterns); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}
	if got.RiskAssessment != "high" {
		t.Errorf("RiskAssessment = %q, want high for 6 matches", got.RiskAssessment)
	}
}

func TestFilterTerms(t *testing.T) {
	t.Parallel()

	got := filterTerms([]string{"CMAU1234567", "MV EXPLORER"})

	if got[0] != "cmau1234567" || got[1] != "mv explorer" {
		t.Errorf("entities not lowercased: %v", got[:2])
	}
	if len(got) != 2+len(incidentKeywords) {
		t.Errorf("len = %d, want entities plus incident vocabulary", len(got))
	}
}

func TestBuildPredictivePrompt_CapsDigest(t *testing.T) {
	t.Parallel()

	rows := make([]histcase.Row, 0, maxDigestCases+5)
	for i := 0; i < maxDigestCases+5; i++ {
		rows = append(rows, histRow(fmt.Sprintf("HC-%02d", i), "repeat incident", 1))
	}

	prompt := buildPredictivePrompt("alert", rows)

	if want := fmt.Sprintf("SIMILAR HISTORICAL CASES (%d total)", len(rows)); !strings.Contains(prompt, want) {
		t.Errorf("prompt missing total count %q", want)
	}
	if strings.Contains(prompt, fmt.Sprintf("HC-%02d", maxDigestCases)) {
		t.Errorf("prompt includes case beyond digest cap of %d", maxDigestCases)
	}
	if !strings.Contains(prompt, fmt.Sprintf("HC-%02d", maxDigestCases-1)) {
		t.Error("prompt missing last case inside digest cap")
	}
}
