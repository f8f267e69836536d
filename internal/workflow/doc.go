// Package workflow implements the alert-processing state machine: staged
// triage, diagnosis, and impact prediction with confidence-driven routing,
// a human-review suspension point, and escalation. It defines the Provider
// and Store interfaces (reasoning adapter, persistence), the pure decision
// policy, the stage agents with their deterministic fallbacks, and the
// Orchestrator that owns per-case execution.
package workflow
