// Package capture implements the Capture Stage (SPEC_FULL.md §4.5): for
// every MatchedPage, visit baseline then candidate across the three fixed
// viewports and record a deterministic evidence bundle. The screenshot, HTML
// and visible text are written as run artifacts; console messages, JS errors,
// network traffic and page metadata are kept only in the in-memory
// PageSnapshots on StageContext.Captures and are not written to disk.
package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/browser"
	"github.com/ternarybob/parityguard/internal/orchestrator"
)

// Stage runs the capture sequence: baseline first, then candidate, per
// matched page and per viewport, to keep outputs stable for re-runs.
type Stage struct {
	viewports         []browser.Viewport
	navigationTimeout time.Duration
	logger            arbor.ILogger
}

func NewStage(viewports []browser.Viewport, navigationTimeout time.Duration, logger arbor.ILogger) *Stage {
	if len(viewports) == 0 {
		viewports = browser.DefaultViewports
	}
	return &Stage{viewports: viewports, navigationTimeout: navigationTimeout, logger: logger}
}

func (s *Stage) Name() string { return orchestrator.StageCapture }

func (s *Stage) Run(sc *orchestrator.StageContext) (orchestrator.StageResult, error) {
	if sc.Baseline == nil || sc.Candidate == nil {
		return orchestrator.StageResult{}, fmt.Errorf("capture stage requires baseline and candidate browser drivers")
	}

	sc.Captures = make(map[string]*orchestrator.StageCapture, len(sc.MatchedPages))
	var artifacts []orchestrator.StageArtifact

	for _, page := range sc.MatchedPages {
		capture := &orchestrator.StageCapture{
			BaselineSnapshots:  map[string]*browser.PageSnapshot{},
			CandidateSnapshots: map[string]*browser.PageSnapshot{},
		}

		baselineArtifacts, err := s.captureSide(sc, "baseline", sc.Baseline, page.BaselineURL, page.BaselinePath, capture.BaselineSnapshots)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", page.BaselineURL).Msg("Failed to capture baseline page")
		}
		artifacts = append(artifacts, baselineArtifacts...)

		candidateArtifacts, err := s.captureSide(sc, "candidate", sc.Candidate, page.CandidateURL, page.CandidatePath, capture.CandidateSnapshots)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", page.CandidateURL).Msg("Failed to capture candidate page")
		}
		artifacts = append(artifacts, candidateArtifacts...)

		sc.Captures[page.BaselinePath] = capture
	}

	return orchestrator.StageResult{Artifacts: artifacts}, nil
}

func (s *Stage) captureSide(sc *orchestrator.StageContext, side string, driver browser.Driver, pageURL, pagePath string, out map[string]*browser.PageSnapshot) ([]orchestrator.StageArtifact, error) {
	var artifacts []orchestrator.StageArtifact

	for _, viewport := range s.viewports {
		page, err := driver.OpenPage(sc.Ctx)
		if err != nil {
			return artifacts, err
		}

		snapshot, err := page.Navigate(sc.Ctx, pageURL, browser.NavigateOptions{
			Viewport:          viewport,
			Timeout:           s.navigationTimeout,
			CaptureScreenshot: true,
		})
		page.Close()
		if err != nil {
			return artifacts, fmt.Errorf("navigate %s (%s): %w", pageURL, viewport.Name, err)
		}

		out[viewport.Name] = snapshot

		dir := filepath.Join(side, sanitizePath(pagePath), viewport.Name)
		if err := os.MkdirAll(filepath.Join(sc.ArtifactDir, dir), 0o755); err != nil {
			return artifacts, err
		}

		if len(snapshot.Screenshot) > 0 {
			screenshotRel := filepath.Join(dir, "screenshot.png")
			if err := os.WriteFile(filepath.Join(sc.ArtifactDir, screenshotRel), snapshot.Screenshot, 0o644); err == nil {
				artifacts = append(artifacts, orchestrator.StageArtifact{Type: "screenshot", Label: fmt.Sprintf("%s %s %s screenshot", side, pagePath, viewport.Name), Path: screenshotRel})
			}
		}

		htmlRel := filepath.Join(dir, "snapshot.html")
		_ = os.WriteFile(filepath.Join(sc.ArtifactDir, htmlRel), []byte(snapshot.HTML), 0o644)
		artifacts = append(artifacts, orchestrator.StageArtifact{Type: "other", Label: fmt.Sprintf("%s %s %s HTML", side, pagePath, viewport.Name), Path: htmlRel})

		textRel := filepath.Join(dir, "visible_text.txt")
		_ = os.WriteFile(filepath.Join(sc.ArtifactDir, textRel), []byte(snapshot.VisibleText), 0o644)
	}

	return artifacts, nil
}

// sanitizePath maps "/" to "-", replaces non-[A-Za-z0-9_-] with "_",
// collapses underscore runs, trims leading/trailing "_" and "-", and falls
// back to "index" when empty, per §4.5.
var invalidPathChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
var repeatedUnderscores = regexp.MustCompile(`_+`)

func sanitizePath(p string) string {
	p = strings.ReplaceAll(p, "/", "-")
	p = invalidPathChars.ReplaceAllString(p, "_")
	p = repeatedUnderscores.ReplaceAllString(p, "_")
	p = strings.Trim(p, "_-")
	if p == "" {
		return "index"
	}
	return p
}
