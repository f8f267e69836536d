// Package slack sends case outcome notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quaylabs/foghorn/internal/workflow"
)

const (
	maxSummaryLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier sends completed cases to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a case outcome to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, st *workflow.State) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(st)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(st *workflow.State) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(st),
			{"type": "divider"},
			fieldsBlock(st),
			{"type": "divider"},
			outcomeBlock(st),
			{"type": "divider"},
			contextBlock(st),
		},
	}
}

func headerBlock(st *workflow.State) map[string]any {
	emoji := severityEmoji(st.Status, st.Severity)
	title := "Case Completed"
	switch {
	case st.Status == workflow.StatusError:
		title = "Case Failed"
	case st.EmailContent != nil:
		title = "Case Escalated"
	}
	text := fmt.Sprintf("%s %s: %s", emoji, title, st.Module)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(st *workflow.State) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", st.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", st.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Module:* %s", st.Module),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Risk:* %s", orDash(st.RiskAssessment)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.2f", st.ConfidenceScore),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Path:* %s", strings.Join(st.ExecutionPath, " > ")),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func outcomeBlock(st *workflow.State) map[string]any {
	text := truncate(st.FinalRecommendation, maxSummaryLen)
	if st.Status == workflow.StatusError {
		text = truncate(st.ErrorMessage, maxSummaryLen)
	}
	if text == "" {
		text = "_No outcome available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Outcome*\n\n%s", text),
		},
	}
}

func contextBlock(st *workflow.State) map[string]any {
	ts := st.CompletedAt
	if ts.IsZero() {
		ts = st.Case.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("foghorn • case %s • %s", st.Case.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func severityEmoji(status workflow.Status, severity string) string {
	if status == workflow.StatusError {
		return "\U0001f534" // red circle
	}
	switch strings.ToLower(severity) {
	case "critical", "high":
		return "\U0001f534" // red circle
	case "medium":
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
