package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"ytscript/internal/config"
	"ytscript/internal/history"
	"ytscript/internal/jobs"
	"ytscript/internal/pipeline"
	"ytscript/internal/runner"
	"ytscript/pkg/log"
)

// Pipeline is the run engine the service drives. Satisfied by
// pipeline.Orchestrator.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// HistoryStore persists finished runs. Satisfied by history.SQLiteStore.
type HistoryStore interface {
	Append(ctx context.Context, entry history.Entry) (history.Entry, error)
	List(ctx context.Context, limit int) ([]history.Entry, error)
	Get(ctx context.Context, id string) (history.Entry, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunService ties the pipeline, the run queue, run history, and the
// retention schedule together. It is the single entry point for both the
// CLI and the HTTP API.
type RunService struct {
	cfg      *config.Config
	pipeline Pipeline
	store    HistoryStore
	queue    *jobs.Queue
	cron     *cron.Cron
	runner   runner.Runner
	sf       singleflight.Group
}

type Option func(*RunService)

// WithPipeline overrides the default orchestrator.
func WithPipeline(p Pipeline) Option {
	return func(s *RunService) {
		s.pipeline = p
	}
}

// WithHistoryStore overrides the default SQLite store.
func WithHistoryStore(store HistoryStore) Option {
	return func(s *RunService) {
		s.store = store
	}
}

// WithRunner overrides the process runner used for preflight checks.
func WithRunner(r runner.Runner) Option {
	return func(s *RunService) {
		s.runner = r
	}
}

// New builds a RunService from configuration. When no store is injected a
// SQLite store is opened at the configured history path.
func New(cfg *config.Config, opts ...Option) (*RunService, error) {
	s := &RunService{
		cfg:    cfg,
		queue:  jobs.NewQueue(1),
		cron:   cron.New(),
		runner: runner.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		store, err := history.NewSQLiteStore(cfg.History.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		s.store = store
	}
	if s.pipeline == nil {
		s.pipeline = pipeline.NewOrchestrator(cfg, s.runner,
			pipeline.WithRecorder(&historyRecorder{store: s.store}),
		)
	}
	return s, nil
}

// Start launches the queue worker and the history retention schedule.
func (s *RunService) Start() error {
	s.queue.Start(func(ctx context.Context, payload jobs.RunPayload, onStage func(pipeline.State)) (pipeline.Result, error) {
		return s.runShared(ctx, payload, onStage)
	})
	if err := s.scheduleRetention(); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop cancels in-flight runs and halts the retention schedule.
func (s *RunService) Stop() {
	s.queue.Stop()
	<-s.cron.Stop().Done()
}

// Close releases the history store when the service owns one.
func (s *RunService) Close() error {
	if closer, ok := s.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Run executes a run synchronously. Concurrent submissions of the same
// URL and output directory share a single execution.
func (s *RunService) Run(ctx context.Context, payload jobs.RunPayload, onStage func(pipeline.State)) (pipeline.Result, error) {
	return s.runShared(ctx, payload, onStage)
}

func (s *RunService) runShared(ctx context.Context, payload jobs.RunPayload, onStage func(pipeline.State)) (pipeline.Result, error) {
	v, err, _ := s.sf.Do(payload.DedupeKey(), func() (any, error) {
		return s.pipeline.Run(ctx, pipeline.Request{
			URL:       payload.URL,
			OutputDir: payload.OutputDir,
			Language:  payload.Language,
			KeepAudio: payload.KeepAudio,
			Subtitles: payload.Subtitles,
			Summarize: payload.Summarize,
			OnStage:   onStage,
		})
	})
	result, _ := v.(pipeline.Result)
	return result, err
}

// Submit queues a run for background execution. The second return value
// is false when an identical submission is already queued or running.
func (s *RunService) Submit(payload jobs.RunPayload) (*jobs.RunJob, bool) {
	return s.queue.Enqueue(payload)
}

func (s *RunService) Job(id string) (*jobs.RunJob, bool) {
	return s.queue.Get(id)
}

func (s *RunService) Jobs() []*jobs.RunJob {
	return s.queue.List()
}

func (s *RunService) History(ctx context.Context, limit int) ([]history.Entry, error) {
	return s.store.List(ctx, limit)
}

func (s *RunService) HistoryEntry(ctx context.Context, id string) (history.Entry, error) {
	return s.store.Get(ctx, id)
}

func (s *RunService) DeleteHistory(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *RunService) ClearHistory(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// PruneHistory removes entries older than the configured retention window.
func (s *RunService) PruneHistory(ctx context.Context) (int64, error) {
	if s.cfg.History.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -s.cfg.History.RetentionDays)
	return s.store.DeleteOlderThan(ctx, cutoff)
}

func (s *RunService) scheduleRetention() error {
	if s.cfg.History.RetentionDays <= 0 {
		return nil
	}
	_, err := s.cron.AddFunc(s.cfg.History.PruneCronExpr, func() {
		_, _, _ = s.sf.Do("history-prune", func() (any, error) {
			removed, err := s.PruneHistory(context.Background())
			if err != nil {
				log.Error("Failed to prune history: %v", err)
				return nil, err
			}
			if removed > 0 {
				log.Info("Pruned %d history entries older than %d days", removed, s.cfg.History.RetentionDays)
			}
			return nil, nil
		})
	})
	return err
}

// historyRecorder adapts the history store to the pipeline recorder.
type historyRecorder struct {
	store HistoryStore
}

func (r *historyRecorder) RecordRun(ctx context.Context, req pipeline.Request, res pipeline.Result) error {
	_, err := r.store.Append(ctx, history.Entry{
		URL:              req.URL,
		VideoID:          res.VideoID,
		Status:           string(res.Status),
		DetectedLanguage: res.DetectedLanguage,
		OutputDir:        req.OutputDir,
		TranscriptPath:   res.TranscriptPath,
		SubtitlePath:     res.SubtitlePath,
		SummaryPath:      res.SummaryPath,
		AudioPath:        res.AudioPath,
	})
	return err
}
