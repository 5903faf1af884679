package visual

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/orchestrator"
	"github.com/ternarybob/parityguard/internal/reasoning"
)

// Stage adapts the pixel-diff engine to the orchestrator.Stage interface,
// comparing every matched page's baseline/candidate screenshots across
// every captured viewport.
type Stage struct {
	thresholds DiffThresholds
	logger     arbor.ILogger
}

func NewStage(thresholds DiffThresholds, logger arbor.ILogger) *Stage {
	return &Stage{thresholds: thresholds, logger: logger}
}

func (s *Stage) Name() string { return orchestrator.StageVisual }

func (s *Stage) Run(sc *orchestrator.StageContext) (orchestrator.StageResult, error) {
	var artifacts []orchestrator.StageArtifact
	totalIssues, criticalCount := 0, 0
	var diffRatioSum float64
	var diffRatioCount int
	var topFindings []string

	for _, page := range sc.MatchedPages {
		capture, ok := sc.Captures[page.BaselinePath]
		if !ok {
			continue
		}

		pageSeverity := SeverityNone
		for viewportName, baselineSnapshot := range capture.BaselineSnapshots {
			candidateSnapshot, ok := capture.CandidateSnapshots[viewportName]
			if !ok || len(baselineSnapshot.Screenshot) == 0 || len(candidateSnapshot.Screenshot) == 0 {
				continue
			}

			baselineImg, err := png.Decode(bytes.NewReader(baselineSnapshot.Screenshot))
			if err != nil {
				s.logger.Warn().Err(err).Str("page", page.BaselinePath).Msg("Failed to decode baseline screenshot")
				continue
			}
			candidateImg, err := png.Decode(bytes.NewReader(candidateSnapshot.Screenshot))
			if err != nil {
				s.logger.Warn().Err(err).Str("page", page.BaselinePath).Msg("Failed to decode candidate screenshot")
				continue
			}

			result := Compare(baselineImg, candidateImg, s.thresholds)
			pageSeverity = MaxSeverity(pageSeverity, result.Severity)

			diffRatioSum += result.DiffRatio
			diffRatioCount++
			if result.Severity != SeverityNone {
				totalIssues++
			}
			if result.Severity == SeverityCritical {
				criticalCount++
			}

			pageArtifacts := s.writeArtifacts(sc, page.BaselinePath, viewportName, result)
			artifacts = append(artifacts, pageArtifacts...)
		}

		if pageSeverity != SeverityNone {
			topFindings = append(topFindings, fmt.Sprintf("%s: %s", page.BaselinePath, pageSeverity))
		}
	}

	averageDiffPercent := 0.0
	if diffRatioCount > 0 {
		averageDiffPercent = (diffRatioSum / float64(diffRatioCount)) * 100
	}

	summary := reasoning.CategorySummary{
		Category:      "visual",
		Available:     true,
		PagesTested:   len(sc.MatchedPages),
		IssuesFound:   totalIssues,
		CriticalCount: criticalCount,
		Metrics:       map[string]float64{"averageDiffPercent": averageDiffPercent},
		TopFindings:   capFindings(topFindings, 10),
	}

	return orchestrator.StageResult{CategorySummary: &summary, Artifacts: artifacts}, nil
}

func (s *Stage) writeArtifacts(sc *orchestrator.StageContext, pagePath, viewport string, result DiffResult) []orchestrator.StageArtifact {
	dir := filepath.Join("visual", sanitize(pagePath), viewport)
	if err := os.MkdirAll(filepath.Join(sc.ArtifactDir, dir), 0o755); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to create visual diff artifact directory")
		return nil
	}

	var artifacts []orchestrator.StageArtifact

	diffRel := filepath.Join(dir, "diff.png")
	if writeImage(filepath.Join(sc.ArtifactDir, diffRel), result.DiffImage) == nil {
		artifacts = append(artifacts, orchestrator.StageArtifact{Type: models.ArtifactTypeOther, Label: fmt.Sprintf("%s %s diff", pagePath, viewport), Path: diffRel})
	}

	heatmapRel := filepath.Join(dir, "heatmap.png")
	if writeImage(filepath.Join(sc.ArtifactDir, heatmapRel), result.Heatmap) == nil {
		artifacts = append(artifacts, orchestrator.StageArtifact{Type: models.ArtifactTypeOther, Label: fmt.Sprintf("%s %s heatmap", pagePath, viewport), Path: heatmapRel})
	}

	return artifacts
}

func writeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func sanitize(p string) string {
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
