package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/browser"
	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/orchestrator"
	"github.com/ternarybob/parityguard/internal/reasoning"
)

// pageReport is the per-page artifact written under data/{page}/report.json.
type pageReport struct {
	Page               string          `json:"page"`
	Status             PageStatus      `json:"status"`
	TextSimilarity     float64         `json:"textSimilarity"`
	AddedTokens        []string        `json:"addedTokens,omitempty"`
	RemovedTokens      []string        `json:"removedTokens,omitempty"`
	TableDiffs         []TableDiff     `json:"tableDiffs,omitempty"`
	PriceDiffs         []PriceDiff     `json:"priceDiffs,omitempty"`
	JSONDiffs          []JSONDiffEntry `json:"jsonDiffs,omitempty"`
	MetadataChanges    map[string]bool `json:"metadataChanges,omitempty"`
}

// Stage adapts extraction + comparison to the orchestrator.Stage interface.
type Stage struct {
	logger arbor.ILogger
}

func NewStage(logger arbor.ILogger) *Stage {
	return &Stage{logger: logger}
}

func (s *Stage) Name() string { return orchestrator.StageData }

func (s *Stage) Run(sc *orchestrator.StageContext) (orchestrator.StageResult, error) {
	var artifacts []orchestrator.StageArtifact
	mismatchCount, missingDataCount, totalFieldDiffs, criticalMismatches := 0, 0, 0, 0

	var topFindings []string

	for _, page := range sc.MatchedPages {
		capture, ok := sc.Captures[page.BaselinePath]
		if !ok {
			missingDataCount++
			continue
		}

		baselineHTML, candidateHTML := firstHTML(capture.BaselineSnapshots), firstHTML(capture.CandidateSnapshots)
		if baselineHTML == "" || candidateHTML == "" {
			missingDataCount++
			continue
		}

		baseExt := Extract(baselineHTML)
		candExt := Extract(candidateHTML)

		similarity, added, removed := JaccardSimilarity(baseExt.VisibleText, candExt.VisibleText)

		var tableDiffs []TableDiff
		tableCount := len(baseExt.Tables)
		if len(candExt.Tables) > tableCount {
			tableCount = len(candExt.Tables)
		}
		for i := 0; i < tableCount; i++ {
			var baseTable, candTable Table
			if i < len(baseExt.Tables) {
				baseTable = baseExt.Tables[i]
			}
			if i < len(candExt.Tables) {
				candTable = candExt.Tables[i]
			}
			diff := DiffTables(baseTable, candTable)
			if diff.HeaderSizeMismatch || len(diff.Cells) > 0 {
				tableDiffs = append(tableDiffs, diff)
			}
		}

		priceDiffs := DiffPrices(baseExt.Prices, candExt.Prices)

		var jsonDiffs []JSONDiffEntry
		jsonLDCount := len(baseExt.JSONLD)
		if len(candExt.JSONLD) > jsonLDCount {
			jsonLDCount = len(candExt.JSONLD)
		}
		for i := 0; i < jsonLDCount; i++ {
			var baseDoc, candDoc interface{}
			if i < len(baseExt.JSONLD) {
				baseDoc = baseExt.JSONLD[i]
			}
			if i < len(candExt.JSONLD) {
				candDoc = candExt.JSONLD[i]
			}
			jsonDiffs = append(jsonDiffs, DiffJSON(baseDoc, candDoc)...)
		}

		hasTableOrPricingDiffs := len(tableDiffs) > 0 || len(priceDiffs) > 0
		hasStructuredDiffs := hasTableOrPricingDiffs || len(jsonDiffs) > 0

		status := ClassifyPage(similarity, hasStructuredDiffs, hasTableOrPricingDiffs)

		fieldDiffCount := len(added) + len(removed) + len(priceDiffs) + len(jsonDiffs)
		for _, td := range tableDiffs {
			fieldDiffCount += len(td.Cells)
		}
		totalFieldDiffs += fieldDiffCount

		if status == StatusMismatch {
			mismatchCount++
		}
		if status == StatusMismatch && (len(priceDiffs) > 0 || fieldDiffCount > 20) {
			criticalMismatches++
		}

		if status != StatusMatch {
			topFindings = append(topFindings, fmt.Sprintf("%s: %s (similarity %.2f, %d field diff(s))", page.BaselinePath, status, similarity, fieldDiffCount))
		}

		report := pageReport{
			Page:           page.BaselinePath,
			Status:         status,
			TextSimilarity: similarity,
			AddedTokens:    added,
			RemovedTokens:  removed,
			TableDiffs:     tableDiffs,
			PriceDiffs:     priceDiffs,
			JSONDiffs:      jsonDiffs,
		}
		if artifact, err := s.writeReport(sc, page.BaselinePath, report); err == nil {
			artifacts = append(artifacts, artifact)
		}
	}

	summary := reasoning.CategorySummary{
		Category:      "data",
		Available:     true,
		PagesTested:   len(sc.MatchedPages),
		IssuesFound:   mismatchCount + missingDataCount,
		CriticalCount: criticalMismatches,
		Metrics: map[string]float64{
			"totalFieldDiffs":  float64(totalFieldDiffs),
			"missingDataPages": float64(missingDataCount),
		},
		TopFindings: capFindings(topFindings, 10),
	}

	return orchestrator.StageResult{CategorySummary: &summary, Artifacts: artifacts}, nil
}

func firstHTML(snapshots map[string]*browser.PageSnapshot) string {
	for _, snapshot := range snapshots {
		if snapshot != nil && snapshot.HTML != "" {
			return snapshot.HTML
		}
	}
	return ""
}

func (s *Stage) writeReport(sc *orchestrator.StageContext, pagePath string, report pageReport) (orchestrator.StageArtifact, error) {
	dir := filepath.Join("data", sanitizePath(pagePath))
	if err := os.MkdirAll(filepath.Join(sc.ArtifactDir, dir), 0o755); err != nil {
		return orchestrator.StageArtifact{}, err
	}

	rel := filepath.Join(dir, "report.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return orchestrator.StageArtifact{}, err
	}
	if err := os.WriteFile(filepath.Join(sc.ArtifactDir, rel), data, 0o644); err != nil {
		return orchestrator.StageArtifact{}, err
	}

	return orchestrator.StageArtifact{Type: models.ArtifactTypeReport, Label: fmt.Sprintf("%s data integrity report", pagePath), Path: rel}, nil
}

func sanitizePath(p string) string {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '/':
			out = append(out, '-')
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "index"
	}
	return string(out)
}

func capFindings(findings []string, n int) []string {
	if len(findings) <= n {
		return findings
	}
	return findings[:n]
}
