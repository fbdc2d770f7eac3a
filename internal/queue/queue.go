// Package queue wires crawl-job dispatch onto hibiken/asynq, a
// Redis-backed task queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"hydrafrog/internal/jobrunner"
)

// TaskTypeCrawlRun is the asynq task type name for a queued crawl job.
const TaskTypeCrawlRun = "crawl:run"

// Payload is the job envelope a Job Runner consumes: (crawlRunId,
// projectId).
type Payload struct {
	CrawlRunID string `json:"crawlRunId"`
	ProjectID  string `json:"projectId"`
}

// ParsePayload decodes an asynq.Task's raw payload bytes.
func ParsePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("queue: parse payload: %w", err)
	}
	return p, nil
}

// Dispatcher enqueues crawl jobs. jobId == crawlRunId, so asynq.TaskID
// gives queue-level idempotent dedup: enqueueing the same crawlRunId
// twice while one is still queued/active is rejected by asynq itself,
// reinforcing (not replacing) the persistence layer's wipe-on-start
// idempotency discipline.
type Dispatcher struct {
	client *asynq.Client
}

// NewDispatcher builds a Dispatcher against a Redis connection.
func NewDispatcher(redisAddr string) *Dispatcher {
	return &Dispatcher{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Close releases the underlying asynq client connection.
func (d *Dispatcher) Close() error {
	return d.client.Close()
}

// Enqueue submits a crawl job for crawlRunId/projectId.
func (d *Dispatcher) Enqueue(ctx context.Context, crawlRunID, projectID string) error {
	payload, err := json.Marshal(Payload{CrawlRunID: crawlRunID, ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("queue: encode payload: %w", err)
	}
	task := asynq.NewTask(TaskTypeCrawlRun, payload)
	_, err = d.client.EnqueueContext(ctx, task, asynq.TaskID(crawlRunID))
	if err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", crawlRunID, err)
	}
	return nil
}

// Server wraps an asynq.Server + ServeMux registered with the job
// runner's handler for TaskTypeCrawlRun.
type Server struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewServer builds a Server bound to redisAddr with the given worker
// concurrency.
func NewServer(redisAddr string, concurrency int, logger *zap.Logger) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{Concurrency: concurrency},
	)
	return &Server{srv: srv, mux: asynq.NewServeMux(), logger: logger}
}

// RegisterCrawlHandler wires runner.Execute to TaskTypeCrawlRun.
func (s *Server) RegisterCrawlHandler(runner *jobrunner.Runner) {
	s.mux.HandleFunc(TaskTypeCrawlRun, func(ctx context.Context, task *asynq.Task) error {
		payload, err := ParsePayload(task.Payload())
		if err != nil {
			s.logger.Error("failed to parse crawl payload", zap.Error(err))
			return err
		}
		s.logger.Info("starting crawl job",
			zap.String("crawlRunId", payload.CrawlRunID),
			zap.String("projectId", payload.ProjectID),
		)
		err = runner.Execute(ctx, payload.CrawlRunID, payload.ProjectID)
		if err != nil {
			s.logger.Error("crawl job failed",
				zap.String("crawlRunId", payload.CrawlRunID),
				zap.Error(err),
			)
			return err
		}
		s.logger.Info("crawl job completed", zap.String("crawlRunId", payload.CrawlRunID))
		return nil
	})
}

// Run blocks, serving registered handlers until the process is signaled
// to stop.
func (s *Server) Run() error {
	return s.srv.Run(s.mux)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
