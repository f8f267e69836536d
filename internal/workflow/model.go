package workflow

import (
	"time"

	"github.com/quaylabs/foghorn/internal/contacts"
	"github.com/quaylabs/foghorn/internal/escalate"
)

// Status tracks where a case is in its lifecycle.
type Status string

const (
	// StatusProcessing means the case is mid-workflow (including suspended
	// at human review).
	StatusProcessing Status = "processing"

	// StatusCompleted means the workflow reached a terminal stage.
	StatusCompleted Status = "completed"

	// StatusError means an unexpected fault stopped the workflow.
	StatusError Status = "error"
)

// Stage identifies a workflow stage. Stage names double as execution-path
// entries.
type Stage string

const (
	StageTriage      Stage = "triage"
	StageDiagnostic  Stage = "diagnostic"
	StagePredictive  Stage = "predictive"
	StageHumanReview Stage = "human_review"
	StageEscalation  Stage = "escalation"
	StageFinalize    Stage = "finalize"

	// StageEnd is the terminal pseudo-stage; it never appears in the
	// execution path.
	StageEnd Stage = "end"
)

// Case is the immutable identity of one alert submission.
type Case struct {
	ID        string    `json:"case_id"`
	AlertText string    `json:"alert_text"`
	CreatedAt time.Time `json:"created_at"`
}

// State is the mutable workflow record for one Case. It is exclusively
// owned by the orchestrator for the lifetime of a run; ExecutionPath is
// append-only and always lists the stages actually entered, in order.
type State struct {
	Case Case `json:"case"`

	// Classification (triage)
	Module    string   `json:"module"`
	Entities  []string `json:"entities"`
	AlertType string   `json:"alert_type"`
	Severity  string   `json:"severity"`
	Urgency   string   `json:"urgency"`

	// Diagnosis
	ProblemStatement  string  `json:"problem_statement"`
	RootCause         string  `json:"root_cause"`
	ConfidenceScore   float64 `json:"confidence_score"`
	BestSOPID         string  `json:"best_sop_id"`
	ResolutionSummary string  `json:"resolution_summary"`

	// Prediction
	PredictedImpact    string   `json:"predicted_impact"`
	HistoricalPatterns []string `json:"historical_patterns"`
	RiskAssessment     string   `json:"risk_assessment"`

	// Control
	NeedsHumanReview bool     `json:"needs_human_review"`
	HumanApproved    bool     `json:"human_approved"`
	AutoEscalate     bool     `json:"auto_escalate"`
	ReviewComment    string   `json:"review_comment,omitempty"`
	ExecutionPath    []string `json:"execution_path"`

	// Output
	EscalationContact   *contacts.Record `json:"escalation_contact,omitempty"`
	EmailContent        *escalate.Email  `json:"email_content,omitempty"`
	FinalRecommendation string           `json:"final_recommendation,omitempty"`
	Status              Status           `json:"status"`
	ErrorMessage        string           `json:"error_message,omitempty"`

	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// NewState initializes a processing State for a fresh case.
func NewState(caseID, alertText string) *State {
	return &State{
		Case: Case{
			ID:        caseID,
			AlertText: alertText,
			CreatedAt: time.Now().UTC(),
		},
		Entities: []string{},
		Status:   StatusProcessing,
	}
}

// enterStage appends the stage to the execution path.
func (s *State) enterStage(stage Stage) {
	s.ExecutionPath = append(s.ExecutionPath, string(stage))
}

// lastStage returns the most recently entered stage, or "" for a fresh case.
func (s *State) lastStage() Stage {
	if len(s.ExecutionPath) == 0 {
		return ""
	}
	return Stage(s.ExecutionPath[len(s.ExecutionPath)-1])
}

// severityIsActionable reports whether the severity warrants automatic
// escalation paths.
func severityIsActionable(severity string) bool {
	return severity == "critical" || severity == "high"
}
