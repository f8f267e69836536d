package workflow

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/go-core/log"
	"github.com/quaylabs/foghorn/internal/resilience"
)

// Classification is the triage stage output.
type Classification struct {
	Module    string
	Entities  []string
	AlertType string
	Severity  string
	Urgency   string
}

// TriageAgent classifies raw alert text. When the reasoning adapter is
// unavailable or its output is unparsable twice, a deterministic keyword
// classifier takes over.
type TriageAgent struct {
	provider Provider
	exec     *resilience.Executor
	logger   log.Logger
	metrics  *Metrics
}

// NewTriageAgent creates a TriageAgent.
func NewTriageAgent(provider Provider, exec *resilience.Executor, logger log.Logger, metrics *Metrics) *TriageAgent {
	if logger == nil {
		logger = log.Nop()
	}
	return &TriageAgent{provider: provider, exec: exec, logger: logger, metrics: metrics}
}

// Run classifies the alert. It never fails: adapter trouble degrades to the
// fallback classifier.
func (a *TriageAgent) Run(ctx context.Context, alertText string) Classification {
	raw, err := a.generate(ctx, buildTriagePrompt(alertText))
	if err != nil {
		a.logger.Warn(ctx, "triage adapter failed, using fallback classifier", "error", err.Error())
		a.metrics.IncFallback(StageTriage)
		return classifyByKeywords(alertText)
	}

	var parsed map[string]any
	if err := decodeResponse(raw, &parsed); err != nil {
		a.logger.Warn(ctx, "triage response unparsable, using fallback classifier", "error", err.Error())
		a.metrics.IncFallback(StageTriage)
		return classifyByKeywords(alertText)
	}

	// Missing keys get safe defaults: partial success is success.
	return Classification{
		Module:    stringField(parsed, "module", "Unknown"),
		Entities:  stringSliceField(parsed, "entities"),
		AlertType: stringField(parsed, "alert_type", "error"),
		Severity:  stringField(parsed, "severity", "medium"),
		Urgency:   stringField(parsed, "urgency", "medium"),
	}
}

func (a *TriageAgent) generate(ctx context.Context, prompt string) (string, error) {
	var raw string
	err := a.exec.Do(ctx, "llm.triage", func(ctx context.Context) error {
		var genErr error
		raw, genErr = a.provider.Generate(ctx, prompt)
		return genErr
	})
	a.metrics.IncLLMCall(StageTriage, err == nil)
	return raw, err
}

func buildTriagePrompt(alertText string) string {
	return fmt.Sprintf(`Analyze this operational alert and extract key information in JSON format.

Alert: %s

Return JSON with:
{
    "module": "CNTR|VSL|EDI/API|Infra/SRE",
    "entities": ["entity1", "entity2"],
    "alert_type": "error|warning|info",
    "severity": "critical|high|medium|low",
    "urgency": "immediate|high|medium|low"
}`, alertText)
}
