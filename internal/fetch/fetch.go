// Package fetch retrieves a single normalized URL and extracts the
// SEO-relevant fields and outbound links the BFS driver needs. It runs
// a single-shot (non-recursive) colly collector per call, since
// traversal order and bounds are owned by internal/bfs rather than
// colly itself.
package fetch

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"hydrafrog/internal/lastmod"
)

const (
	defaultUserAgent = "HydraFrogBot/1.0"
	redirectCap      = 10
)

// Options configures a single Fetch call.
type Options struct {
	UserAgent string
	Timeout   time.Duration
}

// Link is one outbound reference discovered on a fetched page.
type Link struct {
	Href string
	Tag  string
}

// RedirectHop is one intermediate hop recorded while following redirects.
type RedirectHop struct {
	URL        string
	StatusCode int
}

// PageResult is the extraction result for one fetched URL.
type PageResult struct {
	URL              string
	StatusCode       int
	HasStatusCode    bool
	ContentType      string
	Title            string
	MetaDescription  string
	H1Count          int
	Canonical        string
	RobotsMeta       string
	WordCount        int
	HasWordCount     bool
	RedirectChain    []RedirectHop
	Links            []Link
	ImagesMissingAlt int
	LastModified     time.Time
	HTML             string
	Error            error
}

// Fetch performs a GET against normalizedURL, following redirects up to
// redirectCap hops, and extracts page fields when the response is HTML.
// Non-HTML responses return a metadata-only result with no links/html.
// Errors are returned on PageResult.Error rather than as a Go error
// return, since the page must still be persisted so it appears in
// reports. Network errors leave HasStatusCode=false; an HTTP error status
// or an HTML parse failure keeps the received status code.
func Fetch(normalizedURL string, opts Options) PageResult {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	result := PageResult{URL: normalizedURL}

	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(opts.UserAgent),
		colly.MaxDepth(1),
	)
	// Robots.txt enforcement is out of scope for this engine.
	c.IgnoreRobotsTxt = true

	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	if err := c.SetRedirectHandler(makeRedirectHandler(&result)); err != nil {
		result.Error = fmt.Errorf("configure redirect handler: %w", err)
		return result
	}

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.HasStatusCode = true
		if r.Request != nil && r.Request.URL != nil {
			result.URL = r.Request.URL.String()
		}
		if r.Headers != nil {
			result.ContentType = r.Headers.Get("Content-Type")
		}

		if !strings.Contains(strings.ToLower(result.ContentType), "text/html") {
			return
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			result.Error = fmt.Errorf("parse html: %w", err)
			return
		}

		extractFields(&result, doc)
		result.HTML = string(r.Body)

		var header http.Header
		if r.Headers != nil {
			header = *r.Headers
		}
		result.LastModified = lastmod.GetLastModified(header, doc, time.Now())
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		if href == "" {
			return
		}
		result.Links = append(result.Links, Link{Href: e.Request.AbsoluteURL(href), Tag: "a"})
	})

	c.OnError(func(r *colly.Response, err error) {
		result.Error = err
		result.HasStatusCode = false
		if r != nil {
			result.StatusCode = r.StatusCode
			result.HasStatusCode = r.StatusCode != 0
		}
	})

	if err := c.Visit(normalizedURL); err != nil && result.Error == nil {
		result.Error = fmt.Errorf("visit %s: %w", normalizedURL, err)
	}

	if len(result.RedirectChain) > redirectCap {
		result.Error = fmt.Errorf("exceeded redirect cap of %d", redirectCap)
	}

	return result
}

// makeRedirectHandler builds the net/http CheckRedirect-shaped callback
// colly.Collector.SetRedirectHandler expects, recording each hop's URL and
// status code into result.RedirectChain and enforcing the redirect cap.
func makeRedirectHandler(result *PageResult) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > 0 {
			prev := via[len(via)-1]
			status := 0
			// req.Response is the redirect response prev's URL returned.
			if req.Response != nil {
				status = req.Response.StatusCode
			}
			result.RedirectChain = append(result.RedirectChain, RedirectHop{
				URL:        prev.URL.String(),
				StatusCode: status,
			})
		}
		if len(via) >= redirectCap {
			return fmt.Errorf("stopped after %d redirects", redirectCap)
		}
		return nil
	}
}

func extractFields(result *PageResult, doc *goquery.Document) {
	result.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		result.MetaDescription = strings.TrimSpace(desc)
	}

	result.H1Count = doc.Find("h1").Length()

	if canon, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		result.Canonical = strings.TrimSpace(canon)
	}

	if robots, ok := doc.Find(`meta[name="robots"]`).First().Attr("content"); ok {
		result.RobotsMeta = strings.TrimSpace(robots)
	}

	bodyText := doc.Clone()
	bodyText.Find("script, style, template, noscript").Remove()
	text := strings.Join(strings.Fields(bodyText.Find("body").Text()), " ")
	result.WordCount = 0
	if text != "" {
		result.WordCount = len(strings.Fields(text))
	}
	result.HasWordCount = true

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, has := s.Attr("alt")
		if !has || strings.TrimSpace(alt) == "" {
			result.ImagesMissingAlt++
		}
	})
}
