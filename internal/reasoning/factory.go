package reasoning

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/common"
)

// NewReasoner builds the Reasoner a run's reasoning stage should use. When
// neither provider has a resolvable API key, it returns a RuleReasoner
// directly rather than an LLM reasoner that would fail on every call.
func NewReasoner(cfg *common.Config, dataDir string, logger arbor.ILogger) (Reasoner, AuditLogger, error) {
	auditPath := filepath.Join(dataDir, "llm-audit.jsonl")
	audit, err := NewJSONLAuditLogger(auditPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open reasoning audit log: %w", err)
	}

	if !cfg.LLMConfigured() {
		logger.Info().Msg("No LLM provider API key resolved; using rule-based reasoner")
		return NewRuleReasoner(), audit, nil
	}

	factory := NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, logger)

	model := defaultModelFor(cfg)
	timeout := parseTimeout(cfg, 5*time.Minute)

	logger.Info().Str("provider", string(cfg.LLM.DefaultProvider)).Str("model", model).Msg("Using LLM-backed reasoner")
	return NewLLMReasoner(factory, model, timeout, audit, logger), audit, nil
}

func defaultModelFor(cfg *common.Config) string {
	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return cfg.Claude.Model
	case common.LLMProviderGemini:
		return cfg.Gemini.Model
	default:
		return cfg.Gemini.Model
	}
}

func parseTimeout(cfg *common.Config, fallback time.Duration) time.Duration {
	raw := cfg.Gemini.Timeout
	if cfg.LLM.DefaultProvider == common.LLMProviderClaude {
		raw = cfg.Claude.Timeout
	}
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
