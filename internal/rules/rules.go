// Package rules implements the per-page SEO issue detection rules,
// plus a supplemental CONTENT_STALE rule for pages whose last-modified
// timestamp has aged past a threshold.
package rules

import (
	"strings"
	"time"

	"hydrafrog/internal/model"
)

const staleAfter = 365 * 24 * time.Hour

// PageFields is the subset of extracted page data the rule evaluator
// needs. It is deliberately narrower than model.Page so pure evaluation
// doesn't depend on persistence-layer types.
type PageFields struct {
	StatusCode        *int
	Title             string
	MetaDescription   string
	H1Count           int
	Canonical         string
	RobotsMeta        string
	WordCount         *int
	RedirectChainLen  int
	ImagesMissingAlt  int
	LastModified      *time.Time
}

// Draft is an issue detection before it is assigned an ID/CrawlRunID/PageID.
type Draft struct {
	Type           string
	Severity       model.IssueSeverity
	Title          string
	Description    string
	Recommendation string
	Evidence       map[string]any
}

// Evaluate is total: every applicable rule fires independently against
// fields and now (the reference time for CONTENT_STALE).
func Evaluate(fields PageFields, now time.Time) []Draft {
	var drafts []Draft

	if fields.StatusCode != nil {
		status := *fields.StatusCode
		if status >= 400 {
			drafts = append(drafts, Draft{
				Type: "STATUS_4XX_5XX", Severity: model.SeverityCritical,
				Title:          "Page returns an error status",
				Description:    "The page responded with a client or server error status code.",
				Recommendation: "Fix the underlying error or remove/redirect the URL.",
				Evidence:       map[string]any{"statusCode": status},
			})
		} else if status >= 300 && status < 400 {
			drafts = append(drafts, Draft{
				Type: "STATUS_3XX_REDIRECT", Severity: model.SeverityMedium,
				Title:          "Page is a redirect",
				Description:    "The page responded with a redirect status code.",
				Recommendation: "Update internal links to point directly at the redirect target.",
				Evidence:       map[string]any{"statusCode": status},
			})
		}
	}

	if fields.RedirectChainLen >= 3 {
		drafts = append(drafts, Draft{
			Type: "REDIRECT_CHAIN_LONG", Severity: model.SeverityHigh,
			Title:          "Long redirect chain",
			Description:    "The page was reached through three or more redirect hops.",
			Recommendation: "Shorten the redirect chain to a single hop.",
			Evidence:       map[string]any{"redirectChainLength": fields.RedirectChainLen},
		})
	}

	title := strings.TrimSpace(fields.Title)
	if title == "" {
		drafts = append(drafts, Draft{
			Type: "MISSING_TITLE", Severity: model.SeverityHigh,
			Title:          "Missing page title",
			Description:    "The page has no <title> element or it is empty.",
			Recommendation: "Add a descriptive, unique <title> element.",
			Evidence:       map[string]any{},
		})
	} else if len(title) > 60 {
		drafts = append(drafts, Draft{
			Type: "TITLE_TOO_LONG", Severity: model.SeverityLow,
			Title:          "Title too long",
			Description:    "The page title exceeds 60 characters and may be truncated in search results.",
			Recommendation: "Shorten the title to 60 characters or fewer.",
			Evidence:       map[string]any{"titleLength": len(title)},
		})
	} else if len(title) < 10 {
		drafts = append(drafts, Draft{
			Type: "TITLE_TOO_SHORT", Severity: model.SeverityLow,
			Title:          "Title too short",
			Description:    "The page title is under 10 characters and may not be descriptive enough.",
			Recommendation: "Expand the title to better describe the page's content.",
			Evidence:       map[string]any{"titleLength": len(title)},
		})
	}

	if strings.TrimSpace(fields.MetaDescription) == "" {
		drafts = append(drafts, Draft{
			Type: "MISSING_META_DESCRIPTION", Severity: model.SeverityMedium,
			Title:          "Missing meta description",
			Description:    "The page has no meta[name=description] tag or it is empty.",
			Recommendation: "Add a unique, descriptive meta description.",
			Evidence:       map[string]any{},
		})
	}

	if fields.H1Count == 0 {
		drafts = append(drafts, Draft{
			Type: "H1_MISSING", Severity: model.SeverityHigh,
			Title:          "Missing H1 heading",
			Description:    "The page has no <h1> element.",
			Recommendation: "Add a single, descriptive <h1> element.",
			Evidence:       map[string]any{},
		})
	} else if fields.H1Count > 1 {
		drafts = append(drafts, Draft{
			Type: "H1_MULTIPLE", Severity: model.SeverityLow,
			Title:          "Multiple H1 headings",
			Description:    "The page has more than one <h1> element.",
			Recommendation: "Use a single <h1> per page and demote the rest to <h2> or lower.",
			Evidence:       map[string]any{"h1Count": fields.H1Count},
		})
	}

	if strings.TrimSpace(fields.Canonical) == "" {
		drafts = append(drafts, Draft{
			Type: "CANONICAL_MISSING", Severity: model.SeverityLow,
			Title:          "Missing canonical tag",
			Description:    "The page has no link[rel=canonical] tag.",
			Recommendation: "Add a self-referencing or appropriate canonical tag.",
			Evidence:       map[string]any{},
		})
	}

	if strings.Contains(strings.ToLower(fields.RobotsMeta), "noindex") {
		drafts = append(drafts, Draft{
			Type: "ROBOTS_NOINDEX", Severity: model.SeverityMedium,
			Title:          "Page is marked noindex",
			Description:    "The page's robots meta tag contains noindex.",
			Recommendation: "Remove noindex if the page should be indexed.",
			Evidence:       map[string]any{"robotsMeta": fields.RobotsMeta},
		})
	}

	if fields.WordCount != nil && *fields.WordCount < 150 {
		drafts = append(drafts, Draft{
			Type: "THIN_CONTENT", Severity: model.SeverityLow,
			Title:          "Thin content",
			Description:    "The page has fewer than 150 words of visible text.",
			Recommendation: "Expand the page's content or consolidate it with a related page.",
			Evidence:       map[string]any{"wordCount": *fields.WordCount},
		})
	}

	if fields.ImagesMissingAlt > 0 {
		drafts = append(drafts, Draft{
			Type: "IMAGES_MISSING_ALT", Severity: model.SeverityLow,
			Title:          "Images missing alt text",
			Description:    "One or more <img> elements have no non-empty alt attribute.",
			Recommendation: "Add descriptive alt text to every content image.",
			Evidence:       map[string]any{"imagesMissingAlt": fields.ImagesMissingAlt},
		})
	}

	if fields.LastModified != nil {
		age := now.Sub(*fields.LastModified)
		if age > staleAfter {
			drafts = append(drafts, Draft{
				Type: "CONTENT_STALE", Severity: model.SeverityLow,
				Title:          "Content has not been updated recently",
				Description:    "The page's best-known last-modified timestamp is more than a year old.",
				Recommendation: "Review the page and refresh its content if it is still relevant.",
				Evidence:       map[string]any{"ageDays": int(age.Hours() / 24)},
			})
		}
	}

	return drafts
}
