package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// analysisSchema is the JSON schema handed to providers that support
// schema-constrained structured output (Gemini). Claude ignores this and
// relies on lenient parsing of the response text instead.
var analysisSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"categories": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"category":        map[string]interface{}{"type": "string"},
					"severity":        map[string]interface{}{"type": "string", "enum": []string{"none", "low", "medium", "high", "critical"}},
					"confidence":      map[string]interface{}{"type": "number"},
					"pass":            map[string]interface{}{"type": "boolean"},
					"explanation":     map[string]interface{}{"type": "string"},
					"keyFindings":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"falsePositives":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"expectedChanges": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
				"required": []string{"category", "severity", "pass", "explanation"},
			},
		},
		"severity":        map[string]interface{}{"type": "string", "enum": []string{"none", "low", "medium", "high", "critical"}},
		"confidence":      map[string]interface{}{"type": "number"},
		"pass":            map[string]interface{}{"type": "boolean"},
		"explanation":     map[string]interface{}{"type": "string"},
		"recommendations": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
	},
	"required": []string{"categories", "severity", "pass", "explanation"},
}

// LLMReasoner produces Analysis by delegating to a configured provider
// (Claude or Gemini, chosen by the configured model's prefix) and falls back
// to a RuleReasoner whenever the call fails, so a provider outage never
// blocks a run's reasoning stage.
type LLMReasoner struct {
	factory  *ProviderFactory
	model    string
	fallback *RuleReasoner
	audit    AuditLogger
	logger   arbor.ILogger
	timeout  time.Duration
}

// NewLLMReasoner wires a ProviderFactory (already holding the resolved
// Gemini/Claude config) to a Reasoner. model selects the provider and
// concrete model string; timeout bounds a single Analyze call.
func NewLLMReasoner(factory *ProviderFactory, model string, timeout time.Duration, audit AuditLogger, logger arbor.ILogger) *LLMReasoner {
	if audit == nil {
		audit = NewNullAuditLogger()
	}
	return &LLMReasoner{
		factory:  factory,
		model:    model,
		fallback: NewRuleReasoner(),
		audit:    audit,
		logger:   logger,
		timeout:  timeout,
	}
}

func (r *LLMReasoner) Name() string {
	provider := r.factory.DetectProvider(r.model)
	return fmt.Sprintf("llm:%s", provider)
}

func (r *LLMReasoner) Analyze(input AnalysisInput) (Analysis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	provider := r.factory.DetectProvider(r.model)
	started := time.Now()

	request := &ContentRequest{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildAnalysisPrompt(input)},
		},
		Model:        r.model,
		Temperature:  0.2,
		OutputSchema: analysisSchema,
	}

	resp, err := r.factory.GenerateContent(ctx, request)
	duration := time.Since(started)

	if err != nil {
		r.auditLog(provider, false, duration, err, 0, 0)
		r.logger.Warn().Err(err).Str("provider", string(provider)).Msg("Reasoner provider call failed, falling back to rule-based analysis")
		return r.fallback.Analyze(input)
	}

	analysis, parseErr := parseAnalysis(resp.Text)
	if parseErr != nil {
		r.auditLog(provider, false, duration, parseErr, 0, 0)
		r.logger.Warn().Err(parseErr).Str("provider", string(provider)).Msg("Reasoner response failed to parse, falling back to rule-based analysis")
		return r.fallback.Analyze(input)
	}

	analysis.ReasonedBy = fmt.Sprintf("llm:%s", provider)
	r.auditLog(provider, true, duration, nil, 0, 0)
	return analysis, nil
}

func (r *LLMReasoner) auditLog(provider ProviderType, success bool, duration time.Duration, err error, tokensIn, tokensOut int) {
	if auditErr := r.audit.LogReasoning(provider, "analyze", success, duration, err, tokensIn, tokensOut); auditErr != nil {
		r.logger.Warn().Err(auditErr).Msg("Failed to write reasoning audit entry")
	}
}

const systemPrompt = `You are a website-migration quality reviewer. Given a summary of visual, functional, and data differences between a baseline site and a candidate migration, classify the severity of each category and an overall verdict. Respond with a single JSON object only, matching the requested schema. Do not include markdown fences or commentary outside the JSON object.`

func buildAnalysisPrompt(input AnalysisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\nRun: %s\n\n", input.JobName, input.RunID)
	for _, cat := range input.Categories {
		if !cat.Available {
			fmt.Fprintf(&b, "Category %s: unavailable (stage did not run or failed)\n\n", cat.Category)
			continue
		}
		fmt.Fprintf(&b, "Category %s:\n", cat.Category)
		fmt.Fprintf(&b, "  pages tested: %d\n", cat.PagesTested)
		fmt.Fprintf(&b, "  issues found: %d (critical: %d)\n", cat.IssuesFound, cat.CriticalCount)
		for k, v := range cat.Metrics {
			fmt.Fprintf(&b, "  %s: %.2f\n", k, v)
		}
		if len(cat.TopFindings) > 0 {
			fmt.Fprintf(&b, "  top findings: %s\n", strings.Join(cat.TopFindings, "; "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseAnalysis leniently extracts the first balanced JSON object from text
// (providers without a hard schema guarantee sometimes wrap the object in
// prose or markdown fences) and unmarshals it into an Analysis.
func parseAnalysis(text string) (Analysis, error) {
	jsonText, err := extractFirstJSONObject(text)
	if err != nil {
		return Analysis{}, err
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(jsonText), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("failed to unmarshal reasoner response: %w", err)
	}
	return analysis, nil
}

// extractFirstJSONObject scans text for the first balanced {...} span,
// respecting string literals so braces inside quoted strings are ignored.
func extractFirstJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in reasoner response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in reasoner response")
}
