package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/quaylabs/foghorn/internal/escalate"
	"github.com/quaylabs/foghorn/internal/histcase"
)

var tracer = otel.Tracer("github.com/quaylabs/foghorn/internal/workflow")

var (
	// ErrCaseNotFound means no case with the given ID exists.
	ErrCaseNotFound = errors.New("case not found")

	// ErrCaseExists means the caller supplied a case ID that is already in use.
	ErrCaseExists = errors.New("case already exists")

	// ErrNotAwaitingReview means a review decision arrived for a case that is
	// not suspended at human review.
	ErrNotAwaitingReview = errors.New("case is not awaiting human review")

	// ErrEmptyAlert means the submitted alert text was empty.
	ErrEmptyAlert = errors.New("alert text is empty")
)

// Notifier delivers case outcomes to an external channel. Delivery is
// fire-and-forget; failures are logged, never surfaced to the workflow.
type Notifier interface {
	Send(ctx context.Context, state *State) error
}

// Orchestrator drives a case through the staged workflow. Stage agents
// never fail; the orchestrator owns routing, persistence, suspension at
// human review, and terminal-state bookkeeping.
type Orchestrator struct {
	triage     *TriageAgent
	diagnostic *DiagnosticAgent
	predictive *PredictiveAgent
	escalator  *escalate.Builder
	store      Store
	corpus     *histcase.Corpus
	notifier   Notifier
	logger     log.Logger
	metrics    *Metrics
}

// NewOrchestrator creates an Orchestrator. notifier may be nil.
func NewOrchestrator(
	triage *TriageAgent,
	diagnostic *DiagnosticAgent,
	predictive *PredictiveAgent,
	escalator *escalate.Builder,
	store Store,
	corpus *histcase.Corpus,
	notifier Notifier,
	logger log.Logger,
	metrics *Metrics,
) *Orchestrator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Orchestrator{
		triage:     triage,
		diagnostic: diagnostic,
		predictive: predictive,
		escalator:  escalator,
		store:      store,
		corpus:     corpus,
		notifier:   notifier,
		logger:     logger,
		metrics:    metrics,
	}
}

// Start accepts an alert and runs the workflow until it completes or
// suspends at human review. An empty caseID gets a generated ULID; a
// supplied caseID must be unused. The returned State reflects the case at
// the moment Start returns: terminal, or suspended with
// NeedsHumanReview set.
func (o *Orchestrator) Start(ctx context.Context, alertText, caseID string) (*State, error) {
	if alertText == "" {
		o.metrics.IncSubmit("rejected")
		return nil, ErrEmptyAlert
	}

	if caseID == "" {
		caseID = ulid.Make().String()
	} else if _, ok, err := o.store.Get(ctx, caseID); err != nil {
		return nil, fmt.Errorf("check case id: %w", err)
	} else if ok {
		o.metrics.IncSubmit("duplicate")
		return nil, fmt.Errorf("%w: %s", ErrCaseExists, caseID)
	}

	st := NewState(caseID, alertText)
	if err := o.store.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("persist new case: %w", err)
	}

	o.metrics.IncSubmit("accepted")
	o.metrics.CaseStarted()
	o.logger.Info(ctx, "case started", "case_id", caseID)

	if err := o.run(ctx, st, StageTriage); err != nil {
		return st, err
	}
	return st, nil
}

// Approve resumes a case suspended at human review with an approval, which
// routes it to escalation.
func (o *Orchestrator) Approve(ctx context.Context, caseID string) (*State, error) {
	return o.review(ctx, caseID, true, "")
}

// Reject resumes a case suspended at human review with a rejection, which
// closes it out without escalating. reason is recorded on the case.
func (o *Orchestrator) Reject(ctx context.Context, caseID, reason string) (*State, error) {
	return o.review(ctx, caseID, false, reason)
}

// Status returns the current state of a case.
func (o *Orchestrator) Status(ctx context.Context, caseID string) (*State, error) {
	st, ok, err := o.store.Get(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	return st, nil
}

// List returns up to limit recent cases.
func (o *Orchestrator) List(ctx context.Context, limit int) ([]*State, error) {
	return o.store.List(ctx, limit)
}

func (o *Orchestrator) review(ctx context.Context, caseID string, approved bool, reason string) (*State, error) {
	st, ok, err := o.store.Get(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if !st.NeedsHumanReview || st.Status != StatusProcessing || st.lastStage() != StageHumanReview {
		return nil, fmt.Errorf("%w: %s", ErrNotAwaitingReview, caseID)
	}

	st.NeedsHumanReview = false
	st.HumanApproved = approved
	st.ReviewComment = reason

	decision := "approved"
	if !approved {
		decision = "rejected"
	}
	o.metrics.IncReview(decision)
	o.logger.Info(ctx, "review decision recorded", "case_id", caseID, "decision", decision)

	if err := o.store.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("persist review decision: %w", err)
	}

	if err := o.run(ctx, st, nextStage(StageHumanReview, st)); err != nil {
		return st, err
	}
	return st, nil
}

// run executes stages starting at stage until the workflow terminates or
// suspends. A panic inside a stage marks the case failed instead of taking
// the process down.
func (o *Orchestrator) run(ctx context.Context, st *State, stage Stage) (err error) {
	ctx, span := tracer.Start(ctx, "workflow.run")
	defer span.End()
	span.SetAttributes(attribute.String("case.id", st.Case.ID))

	defer func() {
		if r := recover(); r != nil {
			o.fail(ctx, st, fmt.Sprintf("stage %s panicked: %v", st.lastStage(), r))
			err = nil
		}
	}()

	for stage != StageEnd {
		st.enterStage(stage)
		o.metrics.IncStage(stage)
		if err := o.store.Put(ctx, st); err != nil {
			o.fail(ctx, st, fmt.Sprintf("persist at stage %s: %v", stage, err))
			return nil
		}

		began := time.Now()
		suspended := o.execute(ctx, st, stage)
		o.metrics.ObserveStage(stage, time.Since(began).Seconds())

		if suspended {
			if err := o.store.Put(ctx, st); err != nil {
				o.fail(ctx, st, fmt.Sprintf("persist suspension: %v", err))
			}
			return nil
		}

		next := nextStage(stage, st)

		// Escalation reached by policy, not by a human decision.
		if next == StageEscalation && (stage == StageDiagnostic || stage == StagePredictive) {
			st.AutoEscalate = true
		}

		if next == StageEnd && stage == StageTriage {
			st.FinalRecommendation = fmt.Sprintf(
				"No action required: %s severity alert closed at triage.", st.Severity)
			o.complete(ctx, st)
			return nil
		}

		if err := o.store.Put(ctx, st); err != nil {
			o.fail(ctx, st, fmt.Sprintf("persist after stage %s: %v", stage, err))
			return nil
		}
		stage = next
	}
	return nil
}

// execute runs one stage against the state. The human review stage reports
// suspension; every other stage runs to completion.
func (o *Orchestrator) execute(ctx context.Context, st *State, stage Stage) (suspended bool) {
	switch stage {
	case StageTriage:
		cls := o.triage.Run(ctx, st.Case.AlertText)
		st.Module = cls.Module
		st.Entities = cls.Entities
		st.AlertType = cls.AlertType
		st.Severity = cls.Severity
		st.Urgency = cls.Urgency
		o.logger.Info(ctx, "alert classified",
			"case_id", st.Case.ID,
			"module", st.Module,
			"severity", st.Severity,
			"entities", len(st.Entities),
		)

	case StageDiagnostic:
		d := o.diagnostic.Run(ctx, st.Case.AlertText, st.Module, st.Entities)
		st.ProblemStatement = d.ProblemStatement
		st.RootCause = d.RootCause
		st.ConfidenceScore = d.ConfidenceScore
		st.BestSOPID = d.BestSOPID
		st.ResolutionSummary = d.ResolutionSummary
		o.logger.Info(ctx, "alert diagnosed",
			"case_id", st.Case.ID,
			"confidence", st.ConfidenceScore,
			"sop", st.BestSOPID,
		)

	case StagePredictive:
		p := o.predictive.Run(ctx, st.Case.AlertText, st.Entities)
		st.PredictedImpact = p.PredictedImpact
		st.HistoricalPatterns = p.HistoricalPatterns
		st.RiskAssessment = p.RiskAssessment
		o.logger.Info(ctx, "impact predicted",
			"case_id", st.Case.ID,
			"risk", st.RiskAssessment,
		)

	case StageHumanReview:
		st.NeedsHumanReview = true
		o.logger.Info(ctx, "case suspended for human review", "case_id", st.Case.ID)
		return true

	case StageEscalation:
		record, email := o.escalator.Build(escalate.Input{
			AlertText:         st.Case.AlertText,
			Module:            st.Module,
			AlertType:         st.AlertType,
			Severity:          st.Severity,
			Urgency:           st.Urgency,
			Entities:          st.Entities,
			ProblemStatement:  st.ProblemStatement,
			RootCause:         st.RootCause,
			BestSOPID:         st.BestSOPID,
			ResolutionSummary: st.ResolutionSummary,
			PredictedImpact:   st.PredictedImpact,
		})
		st.EscalationContact = &record
		st.EmailContent = &email
		o.metrics.IncEscalation()
		o.logger.Info(ctx, "case escalated",
			"case_id", st.Case.ID,
			"contact", record.Primary.Email,
			"auto", st.AutoEscalate,
		)

	case StageFinalize:
		st.FinalRecommendation = renderRecommendation(st)
		o.complete(ctx, st)
	}
	return false
}

// complete marks the case terminal, persists it, and kicks off the
// fire-and-forget outcome hooks.
func (o *Orchestrator) complete(ctx context.Context, st *State) {
	st.Status = StatusCompleted
	st.CompletedAt = time.Now().UTC()
	if err := o.store.Put(ctx, st); err != nil {
		o.logger.Error(ctx, err, "failed to persist completed case", "case_id", st.Case.ID)
	}

	o.metrics.CaseFinished(StatusCompleted, st.CompletedAt.Sub(st.Case.CreatedAt).Seconds())
	o.logger.Info(ctx, "case completed",
		"case_id", st.Case.ID,
		"path", st.ExecutionPath,
	)

	o.recordResolution(st)

	if o.notifier != nil {
		// Copy so the notifier never races a later mutation.
		snapshot := *st
		go func(ctx context.Context) {
			if err := o.notifier.Send(ctx, &snapshot); err != nil {
				o.logger.Error(ctx, err, "outcome notification failed", "case_id", snapshot.Case.ID)
			}
		}(context.WithoutCancel(ctx))
	}
}

// recordResolution feeds a diagnosed, completed case back into the
// historical corpus so future predictions can see it.
func (o *Orchestrator) recordResolution(st *State) {
	if o.corpus == nil || st.ProblemStatement == "" {
		return
	}
	o.corpus.Append(histcase.Row{
		CaseID:           st.Case.ID,
		Module:           st.Module,
		ProblemStatement: st.ProblemStatement,
		Resolution:       st.ResolutionSummary,
		ResolutionHours:  st.CompletedAt.Sub(st.Case.CreatedAt).Hours(),
	})
}

func (o *Orchestrator) fail(ctx context.Context, st *State, msg string) {
	st.Status = StatusError
	st.ErrorMessage = msg
	st.CompletedAt = time.Now().UTC()
	if err := o.store.Put(ctx, st); err != nil {
		o.logger.Error(ctx, err, "failed to persist failed case", "case_id", st.Case.ID)
	}
	o.metrics.CaseFinished(StatusError, st.CompletedAt.Sub(st.Case.CreatedAt).Seconds())
	o.logger.Error(ctx, errors.New(msg), "case failed", "case_id", st.Case.ID)
}

// renderRecommendation summarizes the case outcome for the finalize stage.
func renderRecommendation(st *State) string {
	switch {
	case st.EmailContent != nil:
		return fmt.Sprintf("Escalated to %s. Recommended action: %s",
			st.EscalationContact.Primary.Name, orManual(st.ResolutionSummary))
	case st.lastStage() == StageFinalize && st.ReviewComment != "":
		return fmt.Sprintf("Closed after human review (rejected: %s). Recommended action: %s",
			st.ReviewComment, orManual(st.ResolutionSummary))
	case len(st.ExecutionPath) >= 2 && st.ExecutionPath[len(st.ExecutionPath)-2] == string(StageHumanReview):
		return "Closed after human review. Recommended action: " + orManual(st.ResolutionSummary)
	default:
		return "Recommended action: " + orManual(st.ResolutionSummary)
	}
}

func orManual(s string) string {
	if s == "" {
		return "manual follow-up"
	}
	return s
}
