// Package bfs implements the bounded, cancel-aware, politeness-throttled
// traversal that drives a crawl run. It owns the frontier and
// admission-time visited set directly; since this driver issues fetches
// sequentially (one in flight per run) no mutex is needed.
package bfs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hydrafrog/internal/config"
	"hydrafrog/internal/fetch"
	"hydrafrog/internal/model"
	"hydrafrog/internal/persistence"
	"hydrafrog/internal/rules"
	"hydrafrog/internal/signature"
	"hydrafrog/internal/urlnorm"
)

// statusPollInterval is how often (in frontier iterations) the driver
// re-reads run status to notice cancellation.
const statusPollInterval = 20

// frontierEntry is one FIFO entry: a normalized URL and its BFS depth.
type frontierEntry struct {
	url   string
	depth int
}

// Store is the narrow persistence surface the BFS driver depends on.
type Store interface {
	ReadRunStatus(ctx context.Context, crawlRunID string) (model.CrawlRunStatus, error)
	PersistPageWithIssues(ctx context.Context, page *model.Page, drafts []rules.Draft) (string, error)
	PersistLinks(ctx context.Context, links []model.Link) error
}

const defaultFetchTimeout = 30 * time.Second

// Driver runs bounded BFS traversal for one CrawlRun.
type Driver struct {
	store   Store
	logger  *zap.Logger
	now     func() time.Time
	timeout time.Duration
}

// New builds a Driver. now defaults to time.Now when nil (tests may
// override it for deterministic CONTENT_STALE evaluation).
func New(store Store, logger *zap.Logger, now func() time.Time) *Driver {
	if now == nil {
		now = time.Now
	}
	return &Driver{store: store, logger: logger, now: now, timeout: defaultFetchTimeout}
}

// WithTimeout overrides the per-request HTTP timeout (default 30s).
func (d *Driver) WithTimeout(timeout time.Duration) *Driver {
	d.timeout = timeout
	return d
}

// Run seeds the frontier from project.startUrl and drains it under the
// bounds in settings, persisting pages/issues/links as it goes. It
// returns nil on a clean stop (frontier exhausted or CANCELED observed);
// a non-nil error means the run should transition to FAILED.
func (d *Driver) Run(ctx context.Context, crawlRunID string, project model.Project, settings config.Settings) error {
	ignoreParams := urlnorm.IgnoreSet(settings.IgnoreParams)

	start, ok := urlnorm.Normalize(project.StartURL, ignoreParams)
	if !ok {
		return fmt.Errorf("bfs: invalid start url %q", project.StartURL)
	}

	visited := map[string]struct{}{start: {}}
	frontier := []frontierEntry{{url: start, depth: 0}}

	iterations := 0
	pagesProcessed := 0
	for len(frontier) > 0 {
		if pagesProcessed >= settings.MaxPages {
			break
		}

		iterations++
		if iterations%statusPollInterval == 0 {
			status, err := d.store.ReadRunStatus(ctx, crawlRunID)
			if err != nil {
				return fmt.Errorf("bfs: poll run status: %w", err)
			}
			if status == model.StatusCanceled {
				d.logger.Info("crawl canceled mid-run", zap.String("crawlRunId", crawlRunID))
				return nil
			}
		}

		entry := frontier[0]
		frontier = frontier[1:]

		if entry.depth > settings.MaxDepth {
			continue
		}

		if err := d.processURL(ctx, crawlRunID, entry, project, settings, ignoreParams, &frontier, visited); err != nil {
			return err
		}
		pagesProcessed++

		if settings.ThrottleMs > 0 {
			time.Sleep(time.Duration(settings.ThrottleMs) * time.Millisecond)
		}
	}

	return nil
}

func (d *Driver) processURL(
	ctx context.Context,
	crawlRunID string,
	entry frontierEntry,
	project model.Project,
	settings config.Settings,
	ignoreParams map[string]struct{},
	frontier *[]frontierEntry,
	visited map[string]struct{},
) error {
	result := fetch.Fetch(entry.url, fetch.Options{UserAgent: settings.UserAgent, Timeout: d.timeout})

	page := &model.Page{
		CrawlRunID:      crawlRunID,
		URL:             entry.url,
		NormalizedURL:   entry.url,
		ContentType:     result.ContentType,
		Title:           result.Title,
		MetaDescription: result.MetaDescription,
		H1Count:         result.H1Count,
		Canonical:       result.Canonical,
		RobotsMeta:      result.RobotsMeta,
	}
	if result.HasStatusCode {
		sc := result.StatusCode
		page.StatusCode = &sc
	}
	if result.URL != "" {
		page.URL = result.URL
	}
	if result.HasWordCount {
		wc := result.WordCount
		page.WordCount = &wc
	}
	if !result.LastModified.IsZero() {
		lm := result.LastModified
		page.LastModified = &lm
	}

	var redirectHops []model.RedirectHop
	for _, h := range result.RedirectChain {
		redirectHops = append(redirectHops, model.RedirectHop{URL: h.URL, StatusCode: h.StatusCode})
	}
	if err := page.SetRedirectChain(redirectHops); err != nil {
		return fmt.Errorf("bfs: encode redirect chain: %w", err)
	}

	if result.HTML != "" {
		hash, sig, err := signature.Compute(result.HTML)
		if err != nil {
			d.logger.Warn("signature computation failed", zap.String("url", entry.url), zap.Error(err))
		} else {
			page.TemplateSignatureHash = hash
			if data, err := json.Marshal(sig); err == nil {
				page.TemplateSignatureJSON = string(data)
			}
		}
	}

	fields := rules.PageFields{
		Title:            page.Title,
		MetaDescription:  page.MetaDescription,
		H1Count:          page.H1Count,
		Canonical:        page.Canonical,
		RobotsMeta:       page.RobotsMeta,
		WordCount:        page.WordCount,
		StatusCode:       page.StatusCode,
		RedirectChainLen: len(redirectHops),
		ImagesMissingAlt: result.ImagesMissingAlt,
		LastModified:     page.LastModified,
	}
	drafts := rules.Evaluate(fields, d.now())

	pageID, err := d.store.PersistPageWithIssues(ctx, page, drafts)
	if err != nil {
		d.logger.Error("per-page persistence failed", zap.String("url", entry.url), zap.Error(err))
		return nil
	}

	var links []model.Link
	for _, l := range result.Links {
		normalized, ok := urlnorm.ResolveAndNormalize(l.Href, page.URL, ignoreParams)
		linkType := model.LinkExternal
		var toNormalized string
		if ok {
			toNormalized = normalized
			if urlnorm.IsInternal(normalized, project.Domain, settings.IncludeSubdomains) {
				linkType = model.LinkInternal
			}
		}

		links = append(links, model.Link{
			CrawlRunID:      crawlRunID,
			FromPageID:      &pageID,
			ToURL:           l.Href,
			ToNormalizedURL: toNormalized,
			LinkType:        linkType,
		})

		if linkType == model.LinkInternal {
			if _, seen := visited[toNormalized]; !seen && len(visited) < settings.MaxPages {
				visited[toNormalized] = struct{}{}
				*frontier = append(*frontier, frontierEntry{url: toNormalized, depth: entry.depth + 1})
			}
		}
	}

	return d.store.PersistLinks(ctx, links)
}

// ensure persistence.Store satisfies bfs.Store at compile time.
var _ Store = (*persistence.Store)(nil)
