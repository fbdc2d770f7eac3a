// Package jobrunner implements the crawl job state machine: a thin
// handler that wraps a synchronous crawl call with structured zap
// logging before and after.
package jobrunner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hydrafrog/internal/config"
	"hydrafrog/internal/model"
)

// Driver is the narrow BFS surface the runner depends on.
type Driver interface {
	Run(ctx context.Context, crawlRunID string, project model.Project, settings config.Settings) error
}

// Store is the narrow persistence surface the runner depends on, beyond
// what the BFS driver and post-processor already use directly.
type Store interface {
	LoadRun(ctx context.Context, crawlRunID string) (model.CrawlRun, error)
	LoadProject(ctx context.Context, projectID string) (model.Project, error)
	WipeChildren(ctx context.Context, crawlRunID string) error
	UpdateRunStatus(ctx context.Context, crawlRunID string, status model.CrawlRunStatus) error
	ReadRunStatus(ctx context.Context, crawlRunID string) (model.CrawlRunStatus, error)
	SetLastError(ctx context.Context, crawlRunID string, message string) error
}

// PostProcessFunc adapts postprocess.Run's free function signature
// (ctx, postprocess.Store, crawlRunID) to Runner's dependency without
// the jobrunner package importing postprocess's Store type directly.
type PostProcessFunc func(ctx context.Context, crawlRunID string) error

// Runner executes the job state machine for one crawl job.
type Runner struct {
	store       Store
	driver      Driver
	postProcess PostProcessFunc
	logger      *zap.Logger
}

// New builds a Runner.
func New(store Store, driver Driver, postProcess PostProcessFunc, logger *zap.Logger) *Runner {
	return &Runner{store: store, driver: driver, postProcess: postProcess, logger: logger}
}

// Execute runs the full state machine for crawlRunId/projectId. On any
// failure after the run has been loaded it marks the run FAILED with
// totals.lastErrorMessage set, then returns the error so the caller
// (the queue handler) can surface it to asynq for retry accounting. A
// failure to load the run itself is returned without touching the run.
func (r *Runner) Execute(ctx context.Context, crawlRunID, projectID string) error {
	run, err := r.store.LoadRun(ctx, crawlRunID)
	if err != nil {
		return fmt.Errorf("jobrunner: load run: %w", err)
	}
	if run.Status == model.StatusCanceled {
		r.logger.Info("run already canceled, skipping", zap.String("crawlRunId", crawlRunID))
		return nil
	}

	project, err := r.store.LoadProject(ctx, projectID)
	if err != nil {
		return r.fail(ctx, crawlRunID, fmt.Errorf("jobrunner: load project: %w", err))
	}

	settings, err := config.ParseSettings(run.SettingsSnapshotJSON)
	if err != nil {
		return r.fail(ctx, crawlRunID, fmt.Errorf("jobrunner: parse settings: %w", err))
	}

	if err := r.store.WipeChildren(ctx, crawlRunID); err != nil {
		return r.fail(ctx, crawlRunID, fmt.Errorf("jobrunner: wipe children: %w", err))
	}

	if err := r.store.UpdateRunStatus(ctx, crawlRunID, model.StatusRunning); err != nil {
		return r.fail(ctx, crawlRunID, fmt.Errorf("jobrunner: transition to running: %w", err))
	}

	r.logger.Info("starting crawl run", zap.String("crawlRunId", crawlRunID), zap.String("projectId", projectID))

	if err := r.driver.Run(ctx, crawlRunID, project, settings); err != nil {
		return r.fail(ctx, crawlRunID, fmt.Errorf("jobrunner: bfs driver: %w", err))
	}

	status, err := r.store.ReadRunStatus(ctx, crawlRunID)
	if err != nil {
		return r.fail(ctx, crawlRunID, fmt.Errorf("jobrunner: re-read run status: %w", err))
	}

	if status == model.StatusCanceled {
		r.logger.Info("crawl run ended canceled, skipping post-processing", zap.String("crawlRunId", crawlRunID))
		return nil
	}

	if err := r.postProcess(ctx, crawlRunID); err != nil {
		return r.fail(ctx, crawlRunID, fmt.Errorf("jobrunner: post-processor: %w", err))
	}

	if err := r.store.UpdateRunStatus(ctx, crawlRunID, model.StatusDone); err != nil {
		return r.fail(ctx, crawlRunID, fmt.Errorf("jobrunner: transition to done: %w", err))
	}

	r.logger.Info("crawl run completed", zap.String("crawlRunId", crawlRunID))
	return nil
}

func (r *Runner) fail(ctx context.Context, crawlRunID string, cause error) error {
	r.logger.Error("crawl run failed", zap.String("crawlRunId", crawlRunID), zap.Error(cause))
	if err := r.store.UpdateRunStatus(ctx, crawlRunID, model.StatusFailed); err != nil {
		r.logger.Error("failed to mark run FAILED", zap.String("crawlRunId", crawlRunID), zap.Error(err))
	}
	if err := r.store.SetLastError(ctx, crawlRunID, cause.Error()); err != nil {
		r.logger.Error("failed to write lastErrorMessage", zap.String("crawlRunId", crawlRunID), zap.Error(err))
	}
	return cause
}
