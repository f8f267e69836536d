package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"github.com/quaylabs/foghorn/internal/evidence"
	"github.com/quaylabs/foghorn/internal/resilience"
)

// Retriever supplies grounding evidence for diagnosis. Retrieval never
// errors; degraded evidence arrives as an empty slice.
type Retriever interface {
	Retrieve(ctx context.Context, alertText, module string, entities []string) []evidence.Document
}

// Diagnosis is the diagnostic stage output. ConfidenceScore is a routing
// contract: <0.3 means insufficient evidence, >0.7 means strong evidence,
// and the stage only emits scores consistent with the evidence it used.
type Diagnosis struct {
	ProblemStatement  string
	RootCause         string
	ConfidenceScore   float64
	BestSOPID         string
	ResolutionSummary string
}

// noEvidenceDiagnosis is returned without consulting the adapter when
// retrieval yields nothing: empty retrieval can never produce confidence.
func noEvidenceDiagnosis() Diagnosis {
	return Diagnosis{
		ProblemStatement:  "Alert requires manual analysis",
		RootCause:         "No relevant procedures found in the evidence corpus",
		ConfidenceScore:   0.3,
		BestSOPID:         "Manual Review Required",
		ResolutionSummary: "Escalate to human analyst",
	}
}

// DiagnosticAgent performs evidence-grounded root-cause analysis.
type DiagnosticAgent struct {
	provider  Provider
	retriever Retriever
	exec      *resilience.Executor
	logger    log.Logger
	metrics   *Metrics
}

// NewDiagnosticAgent creates a DiagnosticAgent.
func NewDiagnosticAgent(provider Provider, retriever Retriever, exec *resilience.Executor, logger log.Logger, metrics *Metrics) *DiagnosticAgent {
	if logger == nil {
		logger = log.Nop()
	}
	return &DiagnosticAgent{provider: provider, retriever: retriever, exec: exec, logger: logger, metrics: metrics}
}

// Run diagnoses the alert against retrieved evidence. It never fails:
// missing evidence short-circuits to a low-confidence result and adapter
// trouble degrades to keyword scoring over the candidates.
func (a *DiagnosticAgent) Run(ctx context.Context, alertText, module string, entities []string) Diagnosis {
	candidates := a.retriever.Retrieve(ctx, alertText, module, entities)
	a.metrics.ObserveRetrieval(len(candidates))

	if len(candidates) == 0 {
		a.logger.Info(ctx, "no candidate evidence, skipping adapter call", "module", module)
		return noEvidenceDiagnosis()
	}

	raw, err := a.generate(ctx, buildDiagnosticPrompt(alertText, candidates, entities))
	if err != nil {
		a.logger.Warn(ctx, "diagnostic adapter failed, using keyword scoring", "error", err.Error())
		a.metrics.IncFallback(StageDiagnostic)
		return scoreByKeywords(alertText, candidates)
	}

	var parsed map[string]any
	if err := decodeResponse(raw, &parsed); err != nil {
		a.logger.Warn(ctx, "diagnostic response unparsable, using keyword scoring", "error", err.Error())
		a.metrics.IncFallback(StageDiagnostic)
		return scoreByKeywords(alertText, candidates)
	}

	return Diagnosis{
		ProblemStatement:  stringField(parsed, "problem_statement", "Unknown"),
		RootCause:         stringField(parsed, "reasoning", "Unknown"),
		ConfidenceScore:   clamp01(floatField(parsed, "confidence_score", 0.5)),
		BestSOPID:         stringField(parsed, "best_sop_id", "None"),
		ResolutionSummary: stringField(parsed, "resolution_summary", "Manual review required"),
	}
}

func (a *DiagnosticAgent) generate(ctx context.Context, prompt string) (string, error) {
	var raw string
	err := a.exec.Do(ctx, "llm.diagnostic", func(ctx context.Context) error {
		var genErr error
		raw, genErr = a.provider.Generate(ctx, prompt)
		return genErr
	})
	a.metrics.IncLLMCall(StageDiagnostic, err == nil)
	return raw, err
}

const candidateContentLimit = 800

// buildDiagnosticPrompt presents semantic and keyword results in separate
// labeled sections so the reasoning step can weigh broad-context matches
// against precise matches.
func buildDiagnosticPrompt(alertText string, candidates []evidence.Document, entities []string) string {
	var sb strings.Builder

	semantic := filterBySearchType(candidates, evidence.SearchKeyword, false)
	keyword := filterBySearchType(candidates, evidence.SearchKeyword, true)

	if len(semantic) > 0 {
		sb.WriteString("=== SEMANTIC SEARCH RESULTS (Broad Context) ===\n")
		writeCandidates(&sb, semantic)
	}
	if len(keyword) > 0 {
		sb.WriteString("\n=== KEYWORD SEARCH RESULTS (Precise Matches) ===\n")
		writeCandidates(&sb, keyword)
	}

	entitiesText := "No specific entities identified"
	if len(entities) > 0 {
		entitiesText = "Key Entities: " + strings.Join(entities, ", ")
	}

	return fmt.Sprintf(`You are an expert systems analyst reviewing evidence from two different search methods to provide the most accurate diagnosis.

ALERT TO ANALYZE:
%s

%s

SEARCH RESULTS FROM HYBRID SEARCH:
%s

Review the semantic results for broad context and the keyword results for precise technical matches, then select the best procedure based on the combined evidence.

Return JSON with:
{
    "problem_statement": "Clear description of the issue",
    "reasoning": "Why the selected procedure is the best match",
    "best_sop_id": "Selected procedure title",
    "resolution_summary": "Step-by-step resolution",
    "confidence_score": 0.85
}

The confidence_score must be in [0,1]: above 0.7 only when both search methods support the same procedure, below 0.3 when no candidate truly matches.`,
		alertText, entitiesText, sb.String())
}

func filterBySearchType(docs []evidence.Document, st evidence.SearchType, match bool) []evidence.Document {
	var out []evidence.Document
	for _, d := range docs {
		if (d.SearchType == st) == match {
			out = append(out, d)
		}
	}
	return out
}

func writeCandidates(sb *strings.Builder, docs []evidence.Document) {
	for i, doc := range docs {
		content := doc.Content
		if len(content) > candidateContentLimit {
			content = content[:candidateContentLimit] + "..."
		}
		fmt.Fprintf(sb, "\n--- Candidate %d ---\n", i+1)
		fmt.Fprintf(sb, "Title: %s\n", doc.Title())
		fmt.Fprintf(sb, "Relevance Score: %.3f\n", doc.RelevanceScore())
		fmt.Fprintf(sb, "Content: %s\n", content)
	}
}

// Fixed keyword list for the diagnostic fallback scorer.
var diagnosticKeywords = []string{"error", "issue", "problem", "failed", "stuck", "duplicate", "inconsistent"}

// Module terms worth a double score when present in both alert and
// candidate content.
var moduleTerms = []string{"container", "vessel", "edi"}

// scoreByKeywords selects a candidate by keyword overlap when the adapter
// cannot be used: +1 per shared keyword, +2 per shared module term. Ties
// keep the first candidate encountered.
func scoreByKeywords(alertText string, candidates []evidence.Document) Diagnosis {
	alertLower := strings.ToLower(alertText)

	best := candidates[0]
	bestScore := -1
	for _, cand := range candidates {
		content := strings.ToLower(cand.Content)

		score := 0
		for _, kw := range diagnosticKeywords {
			if strings.Contains(alertLower, kw) && strings.Contains(content, kw) {
				score++
			}
		}
		for _, term := range moduleTerms {
			if strings.Contains(alertLower, term) && strings.Contains(content, term) {
				score += 2
			}
		}

		if score > bestScore {
			bestScore = score
			best = cand
		}
	}

	summary := alertText
	if len(summary) > 100 {
		summary = summary[:100] + "..."
	}

	return Diagnosis{
		ProblemStatement:  "Alert requires analysis: " + summary,
		RootCause:         fmt.Sprintf("Selected by keyword matching (score: %d)", bestScore),
		ConfidenceScore:   0.4,
		BestSOPID:         best.Title(),
		ResolutionSummary: "Follow procedure: " + best.Title(),
	}
}
