package workflow

// Confidence thresholds for post-diagnostic routing. The lower bound is a
// strict inequality: exactly 0.3 does not force human review.
const (
	confidenceLow  = 0.3
	confidenceHigh = 0.7
)

// nextStage is the decision policy: a pure function of the recorded state
// that picks the stage entered after the given decision point.
func nextStage(after Stage, s *State) Stage {
	switch after {
	case StageTriage:
		return nextAfterTriage(s)
	case StageDiagnostic:
		return nextAfterDiagnostic(s)
	case StagePredictive:
		return nextAfterPredictive(s)
	case StageHumanReview:
		return nextAfterHumanReview(s)
	case StageEscalation:
		return StageFinalize
	default:
		return StageEnd
	}
}

// nextAfterTriage routes on severity: low severity ends processing
// entirely, actionable severity goes straight to diagnosis, everything else
// needs a human.
func nextAfterTriage(s *State) Stage {
	switch {
	case s.Severity == "low":
		return StageEnd
	case severityIsActionable(s.Severity):
		return StageDiagnostic
	default:
		return StageHumanReview
	}
}

// nextAfterDiagnostic routes on confidence: insufficient evidence needs a
// human, strong evidence on an actionable severity auto-escalates, the
// middle ground continues to prediction.
func nextAfterDiagnostic(s *State) Stage {
	switch {
	case s.ConfidenceScore < confidenceLow:
		return StageHumanReview
	case severityIsActionable(s.Severity) && s.ConfidenceScore > confidenceHigh:
		return StageEscalation
	default:
		return StagePredictive
	}
}

// nextAfterPredictive auto-escalates high-risk actionable cases; everything
// else goes to human review.
func nextAfterPredictive(s *State) Stage {
	if s.RiskAssessment == "high" && severityIsActionable(s.Severity) {
		return StageEscalation
	}
	return StageHumanReview
}

// nextAfterHumanReview escalates on approval, otherwise closes out without
// escalating.
func nextAfterHumanReview(s *State) Stage {
	if s.HumanApproved {
		return StageEscalation
	}
	return StageFinalize
}
