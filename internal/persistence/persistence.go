// Package persistence implements the storage boundary the BFS driver
// and post-processor depend on: wipe-on-start idempotency, per-page
// transactional writes, batched link/issue inserts, and run
// status/totals updates. Built on gorm.io/gorm with GORM-tagged store
// structs.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hydrafrog/internal/config"
	"hydrafrog/internal/model"
	"hydrafrog/internal/rules"
)

// ErrRunNotFound is returned when a crawlRunId has no matching row.
var ErrRunNotFound = errors.New("persistence: crawl run not found")

// batchSize bounds bulk inserts for Issues and Links.
const batchSize = 100

// Store is the GORM-backed persistence adapter.
type Store struct {
	db *gorm.DB
}

// New wraps an already-opened *gorm.DB. Callers choose the dialect
// (postgres in production, sqlite in tests).
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the engine's schema. Safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&model.Project{},
		&model.CrawlRun{},
		&model.Page{},
		&model.Link{},
		&model.Issue{},
		&model.Template{},
	)
}

// WipeChildren deletes all Issues, Links, Pages, and Templates scoped to
// crawlRunId. Called once before the first fetch of a job so re-delivery
// of the same job is safe.
func (s *Store) WipeChildren(ctx context.Context, crawlRunID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("crawl_run_id = ?", crawlRunID).Delete(&model.Issue{}).Error; err != nil {
			return fmt.Errorf("wipe issues: %w", err)
		}
		if err := tx.Where("crawl_run_id = ?", crawlRunID).Delete(&model.Link{}).Error; err != nil {
			return fmt.Errorf("wipe links: %w", err)
		}
		if err := tx.Where("crawl_run_id = ?", crawlRunID).Delete(&model.Page{}).Error; err != nil {
			return fmt.Errorf("wipe pages: %w", err)
		}
		if err := tx.Where("crawl_run_id = ?", crawlRunID).Delete(&model.Template{}).Error; err != nil {
			return fmt.Errorf("wipe templates: %w", err)
		}
		return nil
	})
}

// ReadRunStatus loads the run's current status, used by the BFS driver's
// periodic cancellation poll.
func (s *Store) ReadRunStatus(ctx context.Context, crawlRunID string) (model.CrawlRunStatus, error) {
	var run model.CrawlRun
	if err := s.db.WithContext(ctx).Select("status").First(&run, "id = ?", crawlRunID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrRunNotFound
		}
		return "", err
	}
	return run.Status, nil
}

// LoadRun loads the full run row, including settings snapshot.
func (s *Store) LoadRun(ctx context.Context, crawlRunID string) (model.CrawlRun, error) {
	var run model.CrawlRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", crawlRunID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.CrawlRun{}, ErrRunNotFound
		}
		return model.CrawlRun{}, err
	}
	return run, nil
}

// LoadProject loads a project by ID.
func (s *Store) LoadProject(ctx context.Context, projectID string) (model.Project, error) {
	var p model.Project
	if err := s.db.WithContext(ctx).First(&p, "id = ?", projectID).Error; err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// UpdateRunStatus transitions a run's status and, for terminal
// transitions, stamps finishedAt.
func (s *Store) UpdateRunStatus(ctx context.Context, crawlRunID string, status model.CrawlRunStatus) error {
	updates := map[string]any{"status": status}
	if status.IsTerminal() {
		now := time.Now()
		updates["finished_at"] = &now
	}
	if status == model.StatusRunning {
		now := time.Now()
		updates["started_at"] = &now
	}
	return s.db.WithContext(ctx).Model(&model.CrawlRun{}).Where("id = ?", crawlRunID).Updates(updates).Error
}

// UpdateRunTotals persists the run's aggregate statistics.
func (s *Store) UpdateRunTotals(ctx context.Context, crawlRunID string, totals config.Totals) error {
	data, err := config.MarshalTotals(totals)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&model.CrawlRun{}).
		Where("id = ?", crawlRunID).
		Update("totals", data).Error
}

// SetLastError records a run's last error message without changing status.
func (s *Store) SetLastError(ctx context.Context, crawlRunID string, message string) error {
	run, err := s.LoadRun(ctx, crawlRunID)
	if err != nil {
		return err
	}
	totals, err := config.UnmarshalTotals(run.TotalsJSON)
	if err != nil {
		totals = config.Totals{}
	}
	totals.LastErrorMessage = message
	return s.UpdateRunTotals(ctx, crawlRunID, totals)
}

// PersistPage upserts a Page on (crawlRunId, normalizedUrl); collisions are
// a no-op since admission-time dedup in the BFS driver makes them rare.
// Returns the persisted row's ID (existing or new).
func (s *Store) PersistPage(ctx context.Context, page *model.Page) (string, error) {
	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	if page.DiscoveredAt.IsZero() {
		page.DiscoveredAt = time.Now()
	}

	var existing model.Page
	err := s.db.WithContext(ctx).
		Where("crawl_run_id = ? AND normalized_url = ?", page.CrawlRunID, page.NormalizedURL).
		First(&existing).Error
	switch {
	case err == nil:
		return existing.ID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(page).Error; err != nil {
			return "", fmt.Errorf("persist page: %w", err)
		}
		return page.ID, nil
	default:
		return "", err
	}
}

// PersistIssues bulk-inserts Issue drafts for a page (or as global issues
// when pageID is empty).
func (s *Store) PersistIssues(ctx context.Context, crawlRunID string, pageID string, drafts []rules.Draft) error {
	if len(drafts) == 0 {
		return nil
	}
	issues := make([]model.Issue, 0, len(drafts))
	for _, d := range drafts {
		issue := model.Issue{
			ID:             uuid.NewString(),
			CrawlRunID:     crawlRunID,
			Type:           d.Type,
			Severity:       d.Severity,
			Title:          d.Title,
			Description:    d.Description,
			Recommendation: d.Recommendation,
		}
		if pageID != "" {
			issue.PageID = &pageID
		}
		if err := issue.SetEvidence(d.Evidence); err != nil {
			return fmt.Errorf("encode evidence: %w", err)
		}
		issues = append(issues, issue)
	}
	return s.db.WithContext(ctx).CreateInBatches(issues, batchSize).Error
}

// PersistLinks inserts Link rows unconditionally; the link graph records
// multiplicities.
func (s *Store) PersistLinks(ctx context.Context, links []model.Link) error {
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		if links[i].ID == "" {
			links[i].ID = uuid.NewString()
		}
	}
	return s.db.WithContext(ctx).CreateInBatches(links, batchSize).Error
}

// PersistPageWithIssues commits the Page and its freshly evaluated Issues
// atomically.
func (s *Store) PersistPageWithIssues(ctx context.Context, page *model.Page, drafts []rules.Draft) (string, error) {
	var pageID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := &Store{db: tx}
		id, err := txStore.PersistPage(ctx, page)
		if err != nil {
			return err
		}
		pageID = id
		return txStore.PersistIssues(ctx, page.CrawlRunID, id, drafts)
	})
	return pageID, err
}

// Pages returns every Page row for a run, ordered by discovery.
func (s *Store) Pages(ctx context.Context, crawlRunID string) ([]model.Page, error) {
	var pages []model.Page
	err := s.db.WithContext(ctx).
		Where("crawl_run_id = ?", crawlRunID).
		Order("discovered_at ASC").
		Find(&pages).Error
	return pages, err
}

// Links returns every Link row for a run.
func (s *Store) Links(ctx context.Context, crawlRunID string) ([]model.Link, error) {
	var links []model.Link
	err := s.db.WithContext(ctx).Where("crawl_run_id = ?", crawlRunID).Find(&links).Error
	return links, err
}

// UpdateLinks bulk-updates Link rows in place (broken-link resolution).
func (s *Store) UpdateLinks(ctx context.Context, links []model.Link) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < len(links); i += batchSize {
			end := i + batchSize
			if end > len(links) {
				end = len(links)
			}
			for _, l := range links[i:end] {
				if err := tx.Model(&model.Link{}).Where("id = ?", l.ID).
					Updates(map[string]any{"is_broken": l.IsBroken, "status_code": l.StatusCode}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// PersistGlobalIssues inserts issues with a nil pageID (cross-page issues
// from the post-processor, e.g. DUPLICATE_TITLE, CANONICAL_*).
func (s *Store) PersistGlobalIssues(ctx context.Context, crawlRunID string, drafts []rules.Draft) error {
	return s.PersistIssues(ctx, crawlRunID, "", drafts)
}

// UpsertTemplates replaces a run's Template rows with the given clusters
// and back-fills Page.templateId for their members.
func (s *Store) UpsertTemplates(ctx context.Context, crawlRunID string, clusters map[string][]model.Page) error {
	hashes := make([]string, 0, len(clusters))
	for h := range clusters {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("crawl_run_id = ?", crawlRunID).Delete(&model.Template{}).Error; err != nil {
			return err
		}
		for _, hash := range hashes {
			members := clusters[hash]
			if len(members) == 0 {
				continue
			}
			tmpl := model.Template{
				ID:            uuid.NewString(),
				CrawlRunID:    crawlRunID,
				SignatureHash: hash,
				SignatureJSON: members[0].TemplateSignatureJSON,
				SamplePageID:  members[0].ID,
				PageCount:     len(members),
			}
			if err := tx.Create(&tmpl).Error; err != nil {
				return err
			}
			ids := make([]string, len(members))
			for i, m := range members {
				ids[i] = m.ID
			}
			if err := tx.Model(&model.Page{}).Where("id IN ?", ids).Update("template_id", tmpl.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
