// Package model defines the persisted entities of the crawl execution
// engine: CrawlRun, Project, Page, Link, Issue, and Template, plus the
// enums and JSON-shaped value types they carry.
package model

import (
	"encoding/json"
	"time"
)

// CrawlRunStatus is the lifecycle state of a CrawlRun.
type CrawlRunStatus string

const (
	StatusQueued    CrawlRunStatus = "QUEUED"
	StatusRunning   CrawlRunStatus = "RUNNING"
	StatusDone      CrawlRunStatus = "DONE"
	StatusFailed    CrawlRunStatus = "FAILED"
	StatusCanceled  CrawlRunStatus = "CANCELED"
)

// IsTerminal reports whether s is a sink state (DONE, FAILED, CANCELED).
func (s CrawlRunStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// LinkType classifies a Link as staying on the crawled site or leaving it.
type LinkType string

const (
	LinkInternal LinkType = "INTERNAL"
	LinkExternal LinkType = "EXTERNAL"
)

// IssueSeverity ranks how urgently an Issue should be addressed.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "LOW"
	SeverityMedium   IssueSeverity = "MEDIUM"
	SeverityHigh     IssueSeverity = "HIGH"
	SeverityCritical IssueSeverity = "CRITICAL"
)

// Project is the parent of a CrawlRun. Only the fields the engine consumes
// are modeled here; organization/billing/auth fields live in the external
// control plane.
type Project struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	StartURL string `gorm:"not null"`
	Domain   string `gorm:"not null"`
	// SettingsJSON is the raw project.settings document; config.ParseSettings
	// decodes it into the typed Settings snapshot.
	SettingsJSON string `gorm:"column:settings;type:text"`

	CrawlRuns []CrawlRun `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// RedirectHop is one entry in a Page's redirect chain.
type RedirectHop struct {
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
}

// CrawlRun is the unit of work: a single bounded-BFS pass over a Project's
// startURL.
type CrawlRun struct {
	ID          string         `gorm:"primaryKey;type:uuid"`
	ProjectID   string         `gorm:"not null;index"`
	Status      CrawlRunStatus `gorm:"not null;default:QUEUED"`
	StartedAt   *time.Time
	FinishedAt  *time.Time
	// SettingsSnapshotJSON is an immutable copy of project.settings taken
	// at enqueue time.
	SettingsSnapshotJSON string `gorm:"column:settings_snapshot;type:text"`
	// TotalsJSON holds the run's aggregate statistics as JSON.
	TotalsJSON string `gorm:"column:totals;type:text"`

	Pages     []Page     `gorm:"foreignKey:CrawlRunID;constraint:OnDelete:CASCADE"`
	Links     []Link     `gorm:"foreignKey:CrawlRunID;constraint:OnDelete:CASCADE"`
	Issues    []Issue    `gorm:"foreignKey:CrawlRunID;constraint:OnDelete:CASCADE"`
	Templates []Template `gorm:"foreignKey:CrawlRunID;constraint:OnDelete:CASCADE"`
}

// Page is one crawled record per unique normalized URL within a CrawlRun.
type Page struct {
	ID                    string `gorm:"primaryKey;type:uuid"`
	CrawlRunID            string `gorm:"not null;uniqueIndex:idx_page_run_url"`
	URL                   string `gorm:"not null"`
	NormalizedURL         string `gorm:"not null;uniqueIndex:idx_page_run_url"`
	StatusCode            *int
	ContentType           string
	Title                 string
	MetaDescription       string
	H1Count               int
	Canonical             string
	RobotsMeta            string
	WordCount             *int
	RedirectChainJSON     string `gorm:"column:redirect_chain;type:text"`
	TemplateSignatureHash string `gorm:"index"`
	TemplateSignatureJSON string `gorm:"column:template_signature;type:text"`
	TemplateID            *string
	LastModified          *time.Time
	DiscoveredAt          time.Time
}

// RedirectChain decodes the Page's stored redirect hop list.
func (p *Page) RedirectChain() ([]RedirectHop, error) {
	if p.RedirectChainJSON == "" {
		return nil, nil
	}
	var chain []RedirectHop
	if err := json.Unmarshal([]byte(p.RedirectChainJSON), &chain); err != nil {
		return nil, err
	}
	return chain, nil
}

// SetRedirectChain encodes and stores the Page's redirect hop list.
func (p *Page) SetRedirectChain(chain []RedirectHop) error {
	if len(chain) == 0 {
		p.RedirectChainJSON = ""
		return nil
	}
	data, err := json.Marshal(chain)
	if err != nil {
		return err
	}
	p.RedirectChainJSON = string(data)
	return nil
}

// Link is one discovered outbound edge in the run's link graph.
type Link struct {
	ID                string `gorm:"primaryKey;type:uuid"`
	CrawlRunID        string `gorm:"not null;index"`
	FromPageID        *string
	ToURL             string `gorm:"not null"`
	ToNormalizedURL   string `gorm:"index"`
	LinkType          LinkType
	IsBroken          bool
	StatusCode        *int
}

// Issue is a detected problem, either per-page (PageID set) or global
// (PageID nil).
type Issue struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	CrawlRunID     string `gorm:"not null;index"`
	PageID         *string
	Type           string `gorm:"not null;index"`
	Severity       IssueSeverity
	Title          string
	Description    string
	Recommendation string
	EvidenceJSON   string `gorm:"column:evidence;type:text"`
}

// Evidence decodes the Issue's structured evidence payload.
func (i *Issue) Evidence() (map[string]any, error) {
	if i.EvidenceJSON == "" {
		return nil, nil
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(i.EvidenceJSON), &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// SetEvidence encodes and stores the Issue's structured evidence payload.
func (i *Issue) SetEvidence(ev map[string]any) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	i.EvidenceJSON = string(data)
	return nil
}

// Template is a cluster of Pages sharing a structural signature within a
// run.
type Template struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	CrawlRunID    string `gorm:"not null;uniqueIndex:idx_template_run_hash"`
	SignatureHash string `gorm:"not null;uniqueIndex:idx_template_run_hash"`
	SignatureJSON string `gorm:"column:signature;type:text"`
	SamplePageID  string
	PageCount     int
}
