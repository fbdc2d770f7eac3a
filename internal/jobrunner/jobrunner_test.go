package jobrunner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hydrafrog/internal/config"
	"hydrafrog/internal/model"
)

type fakeDriver struct {
	err error
}

func (f fakeDriver) Run(ctx context.Context, crawlRunID string, project model.Project, settings config.Settings) error {
	return f.err
}

type fakeStore struct {
	run             model.CrawlRun
	project         model.Project
	statusAfterRun  model.CrawlRunStatus
	wiped           bool
	statusHistory   []model.CrawlRunStatus
	lastErrMessage  string
}

func (f *fakeStore) LoadRun(ctx context.Context, crawlRunID string) (model.CrawlRun, error) {
	return f.run, nil
}

func (f *fakeStore) LoadProject(ctx context.Context, projectID string) (model.Project, error) {
	return f.project, nil
}

func (f *fakeStore) WipeChildren(ctx context.Context, crawlRunID string) error {
	f.wiped = true
	return nil
}

func (f *fakeStore) UpdateRunStatus(ctx context.Context, crawlRunID string, status model.CrawlRunStatus) error {
	f.statusHistory = append(f.statusHistory, status)
	return nil
}

func (f *fakeStore) ReadRunStatus(ctx context.Context, crawlRunID string) (model.CrawlRunStatus, error) {
	return f.statusAfterRun, nil
}

func (f *fakeStore) SetLastError(ctx context.Context, crawlRunID string, message string) error {
	f.lastErrMessage = message
	return nil
}

func TestExecute_HappyPathTransitionsToDone(t *testing.T) {
	store := &fakeStore{
		run:            model.CrawlRun{ID: "r1", Status: model.StatusQueued},
		project:        model.Project{ID: "p1", StartURL: "https://example.com/", Domain: "example.com"},
		statusAfterRun: model.StatusRunning,
	}
	postProcessCalled := false
	runner := New(store, fakeDriver{}, func(ctx context.Context, crawlRunID string) error {
		postProcessCalled = true
		return nil
	}, zap.NewNop())

	err := runner.Execute(context.Background(), "r1", "p1")
	require.NoError(t, err)
	assert.True(t, store.wiped)
	assert.True(t, postProcessCalled)
	assert.Equal(t, []model.CrawlRunStatus{model.StatusRunning, model.StatusDone}, store.statusHistory)
}

func TestExecute_AlreadyCanceledSkipsEverything(t *testing.T) {
	store := &fakeStore{run: model.CrawlRun{ID: "r1", Status: model.StatusCanceled}}
	runner := New(store, fakeDriver{}, func(ctx context.Context, crawlRunID string) error {
		t.Fatal("post-process should not run")
		return nil
	}, zap.NewNop())

	err := runner.Execute(context.Background(), "r1", "p1")
	require.NoError(t, err)
	assert.False(t, store.wiped)
}

func TestExecute_CanceledMidRunSkipsPostProcessor(t *testing.T) {
	store := &fakeStore{
		run:            model.CrawlRun{ID: "r1", Status: model.StatusQueued},
		project:        model.Project{ID: "p1", StartURL: "https://example.com/", Domain: "example.com"},
		statusAfterRun: model.StatusCanceled,
	}
	postProcessCalled := false
	runner := New(store, fakeDriver{}, func(ctx context.Context, crawlRunID string) error {
		postProcessCalled = true
		return nil
	}, zap.NewNop())

	err := runner.Execute(context.Background(), "r1", "p1")
	require.NoError(t, err)
	assert.False(t, postProcessCalled)
	assert.NotContains(t, store.statusHistory, model.StatusDone)
}

func TestExecute_DriverErrorMarksFailedAndSetsLastError(t *testing.T) {
	store := &fakeStore{
		run:     model.CrawlRun{ID: "r1", Status: model.StatusQueued},
		project: model.Project{ID: "p1", StartURL: "https://example.com/", Domain: "example.com"},
	}
	driverErr := errors.New("boom")
	runner := New(store, fakeDriver{err: driverErr}, func(ctx context.Context, crawlRunID string) error {
		t.Fatal("post-process should not run")
		return nil
	}, zap.NewNop())

	err := runner.Execute(context.Background(), "r1", "p1")
	require.Error(t, err)
	assert.Contains(t, store.statusHistory, model.StatusFailed)
	assert.NotEmpty(t, store.lastErrMessage)
}
