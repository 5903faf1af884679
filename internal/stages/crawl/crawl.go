package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/browser"
	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/orchestrator"
)

// Engine runs the bounded BFS described in §4.4 against one site, using a
// BrowserDriver for headless fetches.
type Engine struct {
	driver            browser.Driver
	httpClient        *http.Client
	navigationTimeout time.Duration
	logger            arbor.ILogger
}

func NewEngine(driver browser.Driver, navigationTimeout time.Duration, logger arbor.ILogger) *Engine {
	return &Engine{
		driver:            driver,
		httpClient:        &http.Client{Timeout: 15 * time.Second},
		navigationTimeout: navigationTimeout,
		logger:            logger,
	}
}

type frontierEntry struct {
	url   string
	depth int
}

// Crawl runs the bounded BFS from seedURL and returns discovered pages in
// discovery order (PageDescriptor.Order is stable and zero-based).
func (e *Engine) Crawl(ctx context.Context, seedURL string, cfg models.CrawlConfig) ([]models.PageDescriptor, error) {
	normalizedSeed, err := normalizeURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}

	visited := map[string]bool{}
	var frontier []frontierEntry
	frontier = append(frontier, frontierEntry{url: normalizedSeed, depth: 0})

	for _, sitemapURL := range e.discoverSitemapURLs(ctx, normalizedSeed) {
		if n, err := normalizeURL(sitemapURL); err == nil && !visited[n] {
			frontier = append(frontier, frontierEntry{url: n, depth: 0})
		}
	}

	var pages []models.PageDescriptor
	order := 0

	for len(frontier) > 0 && len(pages) < cfg.MaxPages {
		entry := frontier[0]
		frontier = frontier[1:]

		if visited[entry.url] {
			continue
		}
		visited[entry.url] = true

		if entry.depth > cfg.MaxDepth {
			continue
		}
		if !matchesPatterns(entry.url, cfg.IncludePatterns, cfg.ExcludePatterns) {
			continue
		}

		page, links, err := e.fetch(ctx, entry.url, entry.depth, order)
		if err != nil {
			e.logger.Warn().Err(err).Str("url", entry.url).Msg("Crawl fetch failed, skipping page")
			continue
		}
		if page.Status >= 400 {
			continue
		}

		pages = append(pages, page)
		order++

		for _, link := range links {
			if visited[link] {
				continue
			}
			if !cfg.FollowExternalLinks && !sameOrigin(normalizedSeed, link) {
				continue
			}
			frontier = append(frontier, frontierEntry{url: link, depth: entry.depth + 1})
		}
	}

	return pages, nil
}

func (e *Engine) fetch(ctx context.Context, pageURL string, depth, order int) (models.PageDescriptor, []string, error) {
	page, err := e.driver.OpenPage(ctx)
	if err != nil {
		return models.PageDescriptor{}, nil, err
	}
	defer page.Close()

	snapshot, err := page.Navigate(ctx, pageURL, browser.NavigateOptions{Timeout: e.navigationTimeout})
	if err != nil {
		return models.PageDescriptor{}, nil, err
	}

	u, _ := url.Parse(pageURL)
	path := "/"
	if u != nil {
		path = u.Path
		if path == "" {
			path = "/"
		}
	}

	desc := models.PageDescriptor{
		URL:      snapshot.FinalURL,
		Path:     path,
		Title:    snapshot.Title,
		Status:   snapshot.Status,
		Depth:    depth,
		Metadata: extractMetadata(snapshot.HTML),
		Order:    order,
	}

	var links []string
	for _, href := range snapshot.Links {
		if resolved, ok := resolveLink(href, snapshot.FinalURL); ok {
			links = append(links, resolved)
		}
	}

	return desc, links, nil
}

// extractMetadata pulls the bounded set of metadata tags §4.4 requires:
// description, keywords, og:title, og:description.
func extractMetadata(html string) map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	meta := map[string]string{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		switch strings.ToLower(name) {
		case "description":
			meta["description"] = content
		case "keywords":
			meta["keywords"] = content
		}
		switch strings.ToLower(property) {
		case "og:title":
			meta["og:title"] = content
		case "og:description":
			meta["og:description"] = content
		}
	})
	if len(meta) == 0 {
		return nil
	}
	return meta
}

type sitemapIndex struct {
	XMLName xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// discoverSitemapURLs fetches /sitemap.xml and, recursively, any nested
// sitemap indexes, returning every <loc> found.
func (e *Engine) discoverSitemapURLs(ctx context.Context, seedURL string) []string {
	base, err := url.Parse(seedURL)
	if err != nil {
		return nil
	}
	sitemapURL := base.Scheme + "://" + base.Host + "/sitemap.xml"
	return e.fetchSitemap(ctx, sitemapURL, 0)
}

func (e *Engine) fetchSitemap(ctx context.Context, sitemapURL string, depth int) []string {
	if depth > 3 {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil
	}

	var index sitemapIndex
	if xml.Unmarshal(body, &index) == nil && len(index.Sitemaps) > 0 {
		var urls []string
		for _, s := range index.Sitemaps {
			urls = append(urls, e.fetchSitemap(ctx, s.Loc, depth+1)...)
		}
		return urls
	}

	var set urlSet
	if xml.Unmarshal(body, &set) == nil {
		var urls []string
		for _, u := range set.URLs {
			urls = append(urls, u.Loc)
		}
		return urls
	}

	return nil
}

// Stage adapts Engine into the orchestrator.Stage interface: it crawls
// both sites, matches pages, and stores the result in the StageContext for
// Capture and the diff stages to consume.
type Stage struct {
	navigationTimeout time.Duration
	logger            arbor.ILogger
}

func NewStage(navigationTimeout time.Duration, logger arbor.ILogger) *Stage {
	return &Stage{navigationTimeout: navigationTimeout, logger: logger}
}

func (s *Stage) Name() string { return orchestrator.StageCrawl }

func (s *Stage) Run(sc *orchestrator.StageContext) (orchestrator.StageResult, error) {
	if sc.Baseline == nil || sc.Candidate == nil {
		return orchestrator.StageResult{}, fmt.Errorf("crawl stage requires baseline and candidate browser drivers")
	}

	baselineEngine := NewEngine(sc.Baseline, s.navigationTimeout, s.logger)
	candidateEngine := NewEngine(sc.Candidate, s.navigationTimeout, s.logger)

	baselinePages, err := baselineEngine.Crawl(sc.Ctx, sc.Job.BaselineURL, sc.Job.CrawlConfig)
	if err != nil {
		return orchestrator.StageResult{}, fmt.Errorf("crawling baseline: %w", err)
	}
	candidatePages, err := candidateEngine.Crawl(sc.Ctx, sc.Job.CandidateURL, sc.Job.CrawlConfig)
	if err != nil {
		return orchestrator.StageResult{}, fmt.Errorf("crawling candidate: %w", err)
	}

	matched, unmatchedBaseline, unmatchedCandidate := MatchPages(baselinePages, candidatePages, sc.Job.PageMap)
	sc.MatchedPages = matched

	s.logger.Info().
		Int("matched", len(matched)).
		Int("unmatched_baseline", len(unmatchedBaseline)).
		Int("unmatched_candidate", len(unmatchedCandidate)).
		Msg("Crawl and page-matching complete")

	return orchestrator.StageResult{}, nil
}
