package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"github.com/quaylabs/foghorn/internal/histcase"
	"github.com/quaylabs/foghorn/internal/resilience"
)

// Prediction is the predictive stage output. RiskAssessment is a routing
// contract with exactly three values: low, medium, high.
type Prediction struct {
	PredictedImpact    string
	HistoricalPatterns []string
	RiskAssessment     string
}

// Incident vocabulary appended to the entity terms when filtering the
// historical corpus.
var incidentKeywords = []string{"error", "failed", "timeout", "duplicate", "stuck", "mismatch", "connection"}

const (
	maxDigestCases = 10
	forceHighAbove = 5
)

// PredictiveAgent forecasts impact from the historical case corpus.
type PredictiveAgent struct {
	provider Provider
	corpus   *histcase.Corpus
	exec     *resilience.Executor
	logger   log.Logger
	metrics  *Metrics
}

// NewPredictiveAgent creates a PredictiveAgent.
func NewPredictiveAgent(provider Provider, corpus *histcase.Corpus, exec *resilience.Executor, logger log.Logger, metrics *Metrics) *PredictiveAgent {
	if logger == nil {
		logger = log.Nop()
	}
	return &PredictiveAgent{provider: provider, corpus: corpus, exec: exec, logger: logger, metrics: metrics}
}

// Run forecasts impact for the alert. It never fails: an empty match set
// yields a fixed low-risk result without an adapter call, and adapter
// trouble degrades to aggregate statistics over the matched cases.
func (a *PredictiveAgent) Run(ctx context.Context, alertText string, entities []string) Prediction {
	matched := a.corpus.Filter(filterTerms(entities))
	if len(matched) == 0 {
		return Prediction{
			PredictedImpact:    "No similar historical incidents found",
			HistoricalPatterns: []string{},
			RiskAssessment:     "low",
		}
	}

	pred, ok := a.fromAdapter(ctx, alertText, matched)
	if !ok {
		pred = aggregateMatches(matched)
	}

	// A large match count means a recurring incident class regardless of
	// what the adapter said.
	if len(matched) > forceHighAbove {
		pred.RiskAssessment = "high"
	}
	return pred
}

func (a *PredictiveAgent) fromAdapter(ctx context.Context, alertText string, matched []histcase.Row) (Prediction, bool) {
	raw, err := a.generate(ctx, buildPredictivePrompt(alertText, matched))
	if err != nil {
		a.logger.Warn(ctx, "predictive adapter failed, using aggregate statistics", "error", err.Error())
		a.metrics.IncFallback(StagePredictive)
		return Prediction{}, false
	}

	var parsed map[string]any
	if err := decodeResponse(raw, &parsed); err != nil {
		a.logger.Warn(ctx, "predictive response unparsable, using aggregate statistics", "error", err.Error())
		a.metrics.IncFallback(StagePredictive)
		return Prediction{}, false
	}

	risk := strings.ToLower(stringField(parsed, "risk_assessment", "medium"))
	switch risk {
	case "low", "medium", "high":
	default:
		risk = "medium"
	}

	return Prediction{
		PredictedImpact:    stringField(parsed, "predicted_impact", "Unknown"),
		HistoricalPatterns: stringSliceField(parsed, "historical_patterns"),
		RiskAssessment:     risk,
	}, true
}

func (a *PredictiveAgent) generate(ctx context.Context, prompt string) (string, error) {
	var raw string
	err := a.exec.Do(ctx, "llm.predictive", func(ctx context.Context) error {
		var genErr error
		raw, genErr = a.provider.Generate(ctx, prompt)
		return genErr
	})
	a.metrics.IncLLMCall(StagePredictive, err == nil)
	return raw, err
}

// filterTerms lowercases the extracted entities and appends the fixed
// incident vocabulary.
func filterTerms(entities []string) []string {
	terms := make([]string, 0, len(entities)+len(incidentKeywords))
	for _, e := range entities {
		terms = append(terms, strings.ToLower(e))
	}
	return append(terms, incidentKeywords...)
}

func buildPredictivePrompt(alertText string, matched []histcase.Row) string {
	var sb strings.Builder
	for i, row := range matched {
		if i == maxDigestCases {
			break
		}
		fmt.Fprintf(&sb, "\nCase %s (%s): %s\nResolution: %s (%.1f hours)\n",
			row.CaseID, row.Module, row.ProblemStatement, row.Resolution, row.ResolutionHours)
	}

	return fmt.Sprintf(`Based on this alert and similar historical cases, predict the potential impact.

CURRENT ALERT:
%s

SIMILAR HISTORICAL CASES (%d total):
%s

Return JSON with:
{
    "predicted_impact": "Expected business and operational impact",
    "historical_patterns": ["pattern1", "pattern2"],
    "risk_assessment": "low|medium|high"
}`, alertText, len(matched), sb.String())
}

// aggregateMatches is the deterministic fallback: average resolution time
// as the impact estimate and the most frequent problem statements as the
// patterns. Risk scales with match count.
func aggregateMatches(matched []histcase.Row) Prediction {
	var totalHours float64
	freq := make(map[string]int, len(matched))
	for _, row := range matched {
		totalHours += row.ResolutionHours
		freq[row.ProblemStatement]++
	}

	statements := make([]string, 0, len(freq))
	for s := range freq {
		statements = append(statements, s)
	}
	sort.Slice(statements, func(i, j int) bool {
		if freq[statements[i]] != freq[statements[j]] {
			return freq[statements[i]] > freq[statements[j]]
		}
		return statements[i] < statements[j]
	})
	if len(statements) > 3 {
		statements = statements[:3]
	}

	risk := "medium"
	if len(matched) > forceHighAbove {
		risk = "high"
	}

	return Prediction{
		PredictedImpact: fmt.Sprintf("Based on %d similar cases, expect resolution time of %.1f hours",
			len(matched), totalHours/float64(len(matched))),
		HistoricalPatterns: statements,
		RiskAssessment:     risk,
	}
}
