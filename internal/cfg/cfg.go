package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ClaudeAPIKey          string
	ClaudeModel           string
	ClaudeRPS             float64
	DatabaseURL           string
	ChromaURL             string
	OllamaURL             string
	OllamaEmbedModel      string
	CaseLogPath           string
	ContactsPath          string
	SlackWebhookURL       string
	LLMMaxAttempts        int
	LLMBreakerEnabled     bool
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.Float64Var(&c.ClaudeRPS, "claude-rps", 1.0, "max Claude requests per second")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.ChromaURL, "chroma-url", "", "Chroma vector store base URL (empty = in-memory evidence store)")
	fs.StringVar(&c.OllamaURL, "ollama-url", "http://localhost:11434", "Ollama base URL for embeddings")
	fs.StringVar(&c.OllamaEmbedModel, "ollama-embed-model", "nomic-embed-text", "Ollama embedding model")
	fs.StringVar(&c.CaseLogPath, "case-log-path", "", "path to the historical case log XLSX (empty = start with empty corpus)")
	fs.StringVar(&c.ContactsPath, "contacts-path", "", "path to the escalation contacts YAML (empty = built-in defaults)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.IntVar(&c.LLMMaxAttempts, "llm-max-attempts", 2, "attempts per LLM call before falling back (1..5)")
	fs.BoolVar(&c.LLMBreakerEnabled, "llm-breaker-enabled", true, "enable the circuit breaker around LLM calls")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.ClaudeRPS <= 0 {
		errs = append(errs, fmt.Errorf("invalid CLAUDE_RPS %v (must be > 0)", c.ClaudeRPS))
	}

	// Chroma retrieval needs an embedder
	if c.ChromaURL != "" && c.OllamaURL == "" {
		errs = append(errs, errors.New("OLLAMA_URL is required when CHROMA_URL is set"))
	}
	if c.ChromaURL != "" && c.OllamaEmbedModel == "" {
		errs = append(errs, errors.New("OLLAMA_EMBED_MODEL is required when CHROMA_URL is set"))
	}

	if c.LLMMaxAttempts <= 0 || c.LLMMaxAttempts > 5 {
		errs = append(errs, fmt.Errorf("invalid LLM_MAX_ATTEMPTS %d (must be 1..5)", c.LLMMaxAttempts))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
