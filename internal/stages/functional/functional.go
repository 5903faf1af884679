package functional

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/browser"
	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/orchestrator"
	"github.com/ternarybob/parityguard/internal/reasoning"
)

// probeTimeout bounds each broken-link navigation probe; a link that
// hasn't resolved by then is treated as broken.
const probeTimeout = 10 * time.Second

// Stage drives form-filling, broken-link probing, JS-error capture, and
// HAR emission for every matched page on both sides (SPEC_FULL.md §4.7).
type Stage struct {
	navigationTimeout time.Duration
	logger            arbor.ILogger
}

func NewStage(navigationTimeout time.Duration, logger arbor.ILogger) *Stage {
	return &Stage{navigationTimeout: navigationTimeout, logger: logger}
}

func (s *Stage) Name() string { return orchestrator.StageFunctional }

func (s *Stage) Run(sc *orchestrator.StageContext) (orchestrator.StageResult, error) {
	if sc.Baseline == nil || sc.Candidate == nil {
		return orchestrator.StageResult{}, fmt.Errorf("functional stage requires both baseline and candidate drivers")
	}

	var artifacts []orchestrator.StageArtifact
	totalIssues, criticalCount := 0, 0
	var topFindings []string

	for _, page := range sc.MatchedPages {
		capture, ok := sc.Captures[page.BaselinePath]
		if !ok {
			continue
		}

		brokenBaseline := s.probeBrokenLinks(sc.Ctx, sc.Baseline, capture.BaselineSnapshots)
		brokenCandidate := s.probeBrokenLinks(sc.Ctx, sc.Candidate, capture.CandidateSnapshots)

		jsErrBaseline := countJSErrors(capture.BaselineSnapshots)
		jsErrCandidate := countJSErrors(capture.CandidateSnapshots)

		baselineFormOutcome := s.probeFirstForm(sc.Ctx, sc.Baseline, capture.BaselineSnapshots, page.BaselineURL)
		candidateFormOutcome := s.probeFirstForm(sc.Ctx, sc.Candidate, capture.CandidateSnapshots, page.CandidateURL)

		pageArtifacts := s.writeHARArtifacts(sc, page.BaselinePath, capture)
		artifacts = append(artifacts, pageArtifacts...)

		newBroken := len(brokenCandidate) - len(brokenBaseline)
		if newBroken > 0 {
			totalIssues++
			topFindings = append(topFindings, fmt.Sprintf("%s: %d new broken link(s)", page.BaselinePath, newBroken))
		}

		newJSErrors := jsErrCandidate - jsErrBaseline
		if newJSErrors > 0 {
			totalIssues++
			if newJSErrors >= 3 {
				criticalCount++
			}
			topFindings = append(topFindings, fmt.Sprintf("%s: %d new console error(s)", page.BaselinePath, newJSErrors))
		}

		if baselineFormOutcome == SubmitSuccess && candidateFormOutcome != "" && candidateFormOutcome != SubmitSuccess {
			totalIssues++
			criticalCount++
			topFindings = append(topFindings, fmt.Sprintf("%s: form submission regressed from success to %s", page.BaselinePath, candidateFormOutcome))
		}
	}

	summary := reasoning.CategorySummary{
		Category:      "functional",
		Available:     true,
		PagesTested:   len(sc.MatchedPages),
		IssuesFound:   totalIssues,
		CriticalCount: criticalCount,
		TopFindings:   capFindings(topFindings, 10),
	}

	return orchestrator.StageResult{CategorySummary: &summary, Artifacts: artifacts}, nil
}

// probeBrokenLinks opens one tab per distinct non-skippable link found in
// the given snapshots and navigates to it, treating a navigation error or
// a 4xx/5xx final status as broken. Each probe restores nothing on the
// driver itself since every probe runs in its own freshly-opened page.
func (s *Stage) probeBrokenLinks(ctx context.Context, driver browser.Driver, snapshots map[string]*browser.PageSnapshot) []string {
	seen := map[string]bool{}
	var broken []string

	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}
		for _, link := range snapshot.Links {
			if isSkippableLinkScheme(link) || seen[link] {
				continue
			}
			seen[link] = true

			page, err := driver.OpenPage(ctx)
			if err != nil {
				continue
			}

			result, err := page.Navigate(ctx, link, browser.NavigateOptions{Timeout: probeTimeout})
			page.Close()

			if err != nil || result == nil || result.Status >= 400 {
				broken = append(broken, link)
			}
		}
	}

	return broken
}

// probeFirstForm finds the first <form> in any captured snapshot for this
// page, fills its inputs per FillValueFor, submits it on a fresh page, and
// returns the observed outcome. Returns "" when the page has no form.
func (s *Stage) probeFirstForm(ctx context.Context, driver browser.Driver, snapshots map[string]*browser.PageSnapshot, pageURL string) SubmitOutcome {
	var formHTML, navigateURL string
	for _, snapshot := range snapshots {
		if snapshot == nil || snapshot.HTML == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot.HTML))
		if err != nil {
			continue
		}
		if form := doc.Find("form").First(); form.Length() > 0 {
			html, err := goquery.OuterHtml(form)
			if err == nil {
				formHTML = html
				navigateURL = snapshot.FinalURL
				break
			}
		}
	}
	if formHTML == "" {
		return ""
	}
	if navigateURL == "" {
		navigateURL = pageURL
	}

	hints, err := formFieldHints(formHTML)
	if err != nil || len(hints) == 0 {
		return ""
	}

	values := map[string]string{}
	for name, hint := range hints {
		values[fmt.Sprintf(`[name="%s"]`, name)] = FillValueFor(hint)
	}

	page, err := driver.OpenPage(ctx)
	if err != nil {
		return SubmitError
	}
	defer page.Close()

	if _, err := page.Navigate(ctx, navigateURL, browser.NavigateOptions{Timeout: probeTimeout}); err != nil {
		return SubmitError
	}

	outcome, err := page.FillForm(ctx, "form", values)
	if err != nil {
		return SubmitError
	}
	if outcome == "success" {
		return SubmitSuccess
	}
	return SubmitError
}

func countJSErrors(snapshots map[string]*browser.PageSnapshot) int {
	count := 0
	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}
		count += len(snapshot.JSErrors)
	}
	return count
}

func (s *Stage) writeHARArtifacts(sc *orchestrator.StageContext, pagePath string, capture *orchestrator.StageCapture) []orchestrator.StageArtifact {
	dir := filepath.Join("functional", sanitizePath(pagePath))
	if err := os.MkdirAll(filepath.Join(sc.ArtifactDir, dir), 0o755); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to create functional artifact directory")
		return nil
	}

	var artifacts []orchestrator.StageArtifact

	baselineHAR := buildHARFromSnapshots(capture.BaselineSnapshots)
	if rel, err := writeHAR(sc.ArtifactDir, filepath.Join(dir, "baseline.har"), baselineHAR); err == nil {
		artifacts = append(artifacts, orchestrator.StageArtifact{Type: models.ArtifactTypeHAR, Label: fmt.Sprintf("%s baseline HAR", pagePath), Path: rel})
	}

	candidateHAR := buildHARFromSnapshots(capture.CandidateSnapshots)
	if rel, err := writeHAR(sc.ArtifactDir, filepath.Join(dir, "candidate.har"), candidateHAR); err == nil {
		artifacts = append(artifacts, orchestrator.StageArtifact{Type: models.ArtifactTypeHAR, Label: fmt.Sprintf("%s candidate HAR", pagePath), Path: rel})
	}

	return artifacts
}

// buildHARFromSnapshots merges every viewport's requests/responses for a
// page into one HAR; if no snapshots captured any network activity, the
// empty-entries fallback from BuildHAR is returned as-is.
func buildHARFromSnapshots(snapshots map[string]*browser.PageSnapshot) HAR {
	var requests []browser.NetworkRequest
	var responses []browser.NetworkResponse
	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}
		requests = append(requests, snapshot.Requests...)
		responses = append(responses, snapshot.Responses...)
	}
	return BuildHAR(requests, responses)
}

func writeHAR(artifactDir, relPath string, har HAR) (string, error) {
	data, err := json.MarshalIndent(har, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(artifactDir, relPath), data, 0o644); err != nil {
		return "", err
	}
	return relPath, nil
}

// sanitizePath mirrors the capture stage's rule: slashes become dashes,
// everything else outside [A-Za-z0-9_-] becomes an underscore, underscore
// runs collapse, leading/trailing '_' and '-' are trimmed, and an empty
// result falls back to "index".
func sanitizePath(p string) string {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '/':
			out = append(out, '-')
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-':
			out = append(out, c)
		default:
			if len(out) == 0 || out[len(out)-1] != '_' {
				out = append(out, '_')
			}
		}
	}
	s := strings.Trim(string(out), "_-")
	if s == "" {
		return "index"
	}
	return s
}

func capFindings(findings []string, n int) []string {
	if len(findings) <= n {
		return findings
	}
	return findings[:n]
}

// formFieldHints extracts name/id/placeholder/type hints for every input
// in a form's HTML so FillValueFor can classify each field.
func formFieldHints(formHTML string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(formHTML))
	if err != nil {
		return nil, err
	}

	hints := map[string]string{}
	doc.Find("input, textarea").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		if name == "" {
			name, _ = sel.Attr("id")
		}
		if name == "" {
			return
		}
		placeholder, _ := sel.Attr("placeholder")
		typ, _ := sel.Attr("type")
		hints[name] = name + " " + placeholder + " " + typ
	})

	return hints, nil
}
