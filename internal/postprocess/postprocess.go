// Package postprocess implements the run-finalization stage: broken-link
// resolution, totals computation, duplicate-title detection, template
// clustering, and canonical-tag aggregation run over a run's persisted
// Pages.
package postprocess

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"hydrafrog/internal/canonical"
	"hydrafrog/internal/config"
	"hydrafrog/internal/model"
	"hydrafrog/internal/rules"
)

const topErrorPagesLimit = 10
const topIssueTypesLimit = 10
const duplicateTitleExampleLimit = 5

// Store is the narrow persistence surface the post-processor needs.
type Store interface {
	Pages(ctx context.Context, crawlRunID string) ([]model.Page, error)
	Links(ctx context.Context, crawlRunID string) ([]model.Link, error)
	UpdateLinks(ctx context.Context, links []model.Link) error
	PersistGlobalIssues(ctx context.Context, crawlRunID string, drafts []rules.Draft) error
	UpsertTemplates(ctx context.Context, crawlRunID string, clusters map[string][]model.Page) error
	UpdateRunTotals(ctx context.Context, crawlRunID string, totals config.Totals) error
}

// Run executes every finalization stage for crawlRunID. It is not called
// for CANCELED runs: finalization runs once the BFS loop ends normally,
// not on a canceled run.
func Run(ctx context.Context, store Store, crawlRunID string) error {
	pages, err := store.Pages(ctx, crawlRunID)
	if err != nil {
		return err
	}
	links, err := store.Links(ctx, crawlRunID)
	if err != nil {
		return err
	}

	statusByURL := make(map[string]int, len(pages))
	for _, p := range pages {
		if p.StatusCode != nil {
			statusByURL[p.NormalizedURL] = *p.StatusCode
		}
	}

	updatedLinks := resolveBrokenLinks(links, statusByURL)
	if err := store.UpdateLinks(ctx, updatedLinks); err != nil {
		return err
	}

	totals := computeTotals(pages, updatedLinks)

	var globalDrafts []rules.Draft
	globalDrafts = append(globalDrafts, duplicateTitleIssues(pages)...)
	globalDrafts = append(globalDrafts, canonicalIssues(pages)...)

	totals.IssueCountByType = map[string]int{}
	totals.IssueCountBySeverity = map[string]int{}
	for _, d := range globalDrafts {
		totals.IssueCountByType[d.Type]++
		totals.IssueCountBySeverity[string(d.Severity)]++
	}
	totals.IssueCountTotal = len(globalDrafts)
	totals.TopIssueTypes = topIssueTypes(totals.IssueCountByType)

	if err := store.PersistGlobalIssues(ctx, crawlRunID, globalDrafts); err != nil {
		return err
	}

	clusters := clusterTemplates(pages)
	if err := store.UpsertTemplates(ctx, crawlRunID, clusters); err != nil {
		return err
	}

	return store.UpdateRunTotals(ctx, crawlRunID, totals)
}

// resolveBrokenLinks marks INTERNAL links whose target resolved to a
// status >= 400 as broken; links whose target was never visited stay
// isBroken=false, statusCode=nil.
func resolveBrokenLinks(links []model.Link, statusByURL map[string]int) []model.Link {
	out := make([]model.Link, len(links))
	copy(out, links)
	for i := range out {
		if out[i].LinkType != model.LinkInternal {
			continue
		}
		status, ok := statusByURL[out[i].ToNormalizedURL]
		if !ok {
			continue
		}
		if status >= 400 {
			s := status
			out[i].IsBroken = true
			out[i].StatusCode = &s
		}
	}
	return out
}

func computeTotals(pages []model.Page, links []model.Link) config.Totals {
	t := config.Totals{
		StatusCodeDistribution: map[string]int{},
	}
	t.PagesCount = len(pages)

	for _, p := range pages {
		if p.StatusCode != nil {
			t.StatusCodeDistribution[strconv.Itoa(*p.StatusCode)]++
		}
	}

	inLinkCount := map[string]int{}
	for _, l := range links {
		t.LinksCount++
		switch l.LinkType {
		case model.LinkInternal:
			t.InternalLinksCount++
			if l.IsBroken {
				t.BrokenInternalLinksCount++
			}
		case model.LinkExternal:
			t.ExternalLinksCount++
		}
		if l.LinkType == model.LinkInternal {
			inLinkCount[l.ToNormalizedURL]++
		}
	}

	t.TopErrorPages = topErrorPages(pages, inLinkCount)
	return t
}

func topErrorPages(pages []model.Page, inLinkCount map[string]int) []config.ErrorPageStat {
	var stats []config.ErrorPageStat
	for _, p := range pages {
		if p.StatusCode == nil || *p.StatusCode < 400 {
			continue
		}
		stats = append(stats, config.ErrorPageStat{
			URL:        p.NormalizedURL,
			StatusCode: *p.StatusCode,
			Count:      inLinkCount[p.NormalizedURL],
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].URL < stats[j].URL
	})
	if len(stats) > topErrorPagesLimit {
		stats = stats[:topErrorPagesLimit]
	}
	return stats
}

func topIssueTypes(byType map[string]int) []config.IssueTypeStat {
	var stats []config.IssueTypeStat
	for typ, count := range byType {
		stats = append(stats, config.IssueTypeStat{Type: typ, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Type < stats[j].Type
	})
	if len(stats) > topIssueTypesLimit {
		stats = stats[:topIssueTypesLimit]
	}
	return stats
}

// duplicateTitleIssues groups Pages by toLower(trim(title)) and emits a
// DUPLICATE_TITLE draft per member of every group of size >= 2.
func duplicateTitleIssues(pages []model.Page) []rules.Draft {
	groups := map[string][]model.Page{}
	for _, p := range pages {
		key := strings.ToLower(strings.TrimSpace(p.Title))
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], p)
	}

	var drafts []rules.Draft
	var keys []string
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		examples := make([]string, 0, duplicateTitleExampleLimit)
		for i, m := range members {
			if i >= duplicateTitleExampleLimit {
				break
			}
			examples = append(examples, m.NormalizedURL)
		}
		for _, m := range members {
			drafts = append(drafts, rules.Draft{
				Type:        "DUPLICATE_TITLE",
				Severity:    model.SeverityMedium,
				Title:       "Duplicate page title",
				Description: "Multiple pages in this run share the same title.",
				Recommendation: "Give each page a unique, descriptive title.",
				Evidence: map[string]any{
					"title":        members[0].Title,
					"memberCount":  len(members),
					"exampleUrls":  examples,
					"thisPageId":   m.ID,
				},
			})
		}
	}
	return drafts
}

// canonicalIssues runs internal/canonical's validation over a run's
// persisted Pages.
func canonicalIssues(pages []model.Page) []rules.Draft {
	canonicalByPage := map[string]string{}
	statusByURL := map[string]int{}
	pageIDByURL := map[string]string{}

	for _, p := range pages {
		pageIDByURL[p.NormalizedURL] = p.ID
		if p.StatusCode != nil {
			statusByURL[p.NormalizedURL] = *p.StatusCode
		}
		if strings.TrimSpace(p.Canonical) != "" {
			canonicalByPage[p.NormalizedURL] = p.Canonical
		}
	}

	issues := canonical.Validate(canonicalByPage, statusByURL)

	var drafts []rules.Draft
	for _, issue := range issues {
		drafts = append(drafts, rules.Draft{
			Type:           canonicalIssueType(issue.Type),
			Severity:       model.SeverityMedium,
			Title:          "Canonical tag issue",
			Description:    issue.Detail,
			Recommendation: "Review the page's canonical tag target.",
			Evidence: map[string]any{
				"pageUrl":      issue.PageURL,
				"canonicalUrl": issue.CanonicalURL,
				"pageId":       pageIDByURL[issue.PageURL],
			},
		})
	}
	return drafts
}

func canonicalIssueType(t canonical.IssueType) string {
	switch t {
	case canonical.IssueNonHTTPScheme:
		return "CANONICAL_NON_HTTP_SCHEME"
	case canonical.IssueCrossDomain:
		return "CANONICAL_CROSS_DOMAIN"
	case canonical.IssueTargetBroken:
		return "CANONICAL_TARGET_BROKEN"
	case canonical.IssueTargetRedirect:
		return "CANONICAL_TARGET_REDIRECT"
	case canonical.IssueLoopOrChain:
		return "CANONICAL_LOOP_OR_CHAIN"
	default:
		return "CANONICAL_ISSUE"
	}
}

// clusterTemplates groups Pages by their structural signature hash,
// skipping pages with no computed signature (non-HTML responses).
func clusterTemplates(pages []model.Page) map[string][]model.Page {
	clusters := map[string][]model.Page{}
	for _, p := range pages {
		if p.TemplateSignatureHash == "" {
			continue
		}
		clusters[p.TemplateSignatureHash] = append(clusters[p.TemplateSignatureHash], p)
	}
	return clusters
}
