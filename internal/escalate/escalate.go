// Package escalate builds escalation routing and message content from a
// processed case. Rendering is pure; delivery belongs to a notifier or an
// external mail system.
package escalate

import (
	"fmt"
	"strings"

	"github.com/quaylabs/foghorn/internal/contacts"
)

// Email is rendered escalation message content.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Input carries the case fields embedded in the escalation message.
type Input struct {
	AlertText         string
	Module            string
	AlertType         string
	Severity          string
	Urgency           string
	Entities          []string
	ProblemStatement  string
	RootCause         string
	BestSOPID         string
	ResolutionSummary string
	PredictedImpact   string
}

// Builder resolves modules to contacts and renders escalation emails.
type Builder struct {
	directory *contacts.Directory
}

// NewBuilder creates a Builder over the given contact directory.
func NewBuilder(directory *contacts.Directory) *Builder {
	return &Builder{directory: directory}
}

// Build returns the contact record for the module (generic support when the
// module is unrecognized) and the rendered escalation email.
func (b *Builder) Build(in Input) (contacts.Record, Email) {
	rec := b.directory.Lookup(in.Module)

	email := Email{
		To:      rec.Escalation.Email,
		Subject: fmt.Sprintf("Alert Escalation - %s Module - %s", orUnknown(in.Module), strings.ToUpper(orUnknown(in.Severity))),
		Body:    renderBody(in, rec),
	}
	return rec, email
}

func renderBody(in Input, rec contacts.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Dear %s,\n\n", rec.Escalation.Name)
	sb.WriteString("We are escalating the following alert for your immediate review and action:\n\n")

	sb.WriteString("ALERT DETAILS:\n")
	sb.WriteString(in.AlertText)
	sb.WriteString("\n\n")

	sb.WriteString("PARSED INFORMATION:\n")
	fmt.Fprintf(&sb, "- Module: %s\n", orUnknown(in.Module))
	fmt.Fprintf(&sb, "- Alert Type: %s\n", orUnknown(in.AlertType))
	fmt.Fprintf(&sb, "- Severity: %s\n", strings.ToUpper(orUnknown(in.Severity)))
	fmt.Fprintf(&sb, "- Urgency: %s\n", strings.ToUpper(orUnknown(in.Urgency)))
	fmt.Fprintf(&sb, "- Key Entities: %s\n\n", strings.Join(in.Entities, ", "))

	sb.WriteString("TECHNICAL ANALYSIS:\n")
	fmt.Fprintf(&sb, "- Problem Statement: %s\n", orNA(in.ProblemStatement))
	fmt.Fprintf(&sb, "- Root Cause: %s\n", orNA(in.RootCause))
	fmt.Fprintf(&sb, "- Recommended SOP: %s\n", orNA(in.BestSOPID))
	fmt.Fprintf(&sb, "- Resolution Summary: %s\n", orNA(in.ResolutionSummary))
	fmt.Fprintf(&sb, "- Predicted Impact: %s\n\n", orNA(in.PredictedImpact))

	sb.WriteString("ESCALATION CONTACTS:\n")
	fmt.Fprintf(&sb, "- Primary: %s (%s)\n", rec.Primary.Name, rec.Primary.Email)
	fmt.Fprintf(&sb, "- Escalation: %s (%s)\n\n", rec.Escalation.Name, rec.Escalation.Email)

	sb.WriteString("Please review and take appropriate action immediately.\n")
	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
