package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ytscript/internal/pipeline"
)

// Executor runs one pipeline request. onStage receives state transitions
// while the run is in flight.
type Executor func(ctx context.Context, payload RunPayload, onStage func(pipeline.State)) (pipeline.Result, error)

// Queue is an in-memory run queue. A pending or running job with the same
// dedupe key absorbs duplicate submissions; finished jobs are retained for
// inspection until pruned.
type Queue struct {
	workerCount int
	maxJobs     int

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	jobs       map[string]*RunJob
	dedupe     map[string]string
	idCounter  uint64
	started    bool
	pendingIDs chan string
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewQueue(workerCount int) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		workerCount: workerCount,
		maxJobs:     1000,
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(map[string]*RunJob),
		dedupe:      make(map[string]string),
		pendingIDs:  make(chan string, 1024),
	}
}

// Enqueue registers a run. The second return value is false when an active
// job with the same dedupe key already exists; that job is returned instead.
func (q *Queue) Enqueue(payload RunPayload) (*RunJob, bool) {
	now := time.Now()
	key := payload.DedupeKey()

	q.mu.Lock()
	if id, ok := q.dedupe[key]; ok {
		if existing, exists := q.jobs[id]; exists {
			snapshot := cloneJob(existing)
			q.mu.Unlock()
			return snapshot, false
		}
		delete(q.dedupe, key)
	}

	id := fmt.Sprintf("run-%d", atomic.AddUint64(&q.idCounter, 1))
	job := &RunJob{
		ID:        id,
		DedupeKey: key,
		Payload:   payload,
		Status:    StatusPending,
		State:     pipeline.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.jobs[id] = job
	q.dedupe[key] = id
	started := q.started
	snapshot := cloneJob(job)
	q.mu.Unlock()

	if started {
		q.enqueuePendingID(id)
	}
	return snapshot, true
}

func (q *Queue) Get(id string) (*RunJob, bool) {
	q.mu.RLock()
	job, ok := q.jobs[id]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

func (q *Queue) List() []*RunJob {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ret := make([]*RunJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true

	pending := make([]string, 0)
	for id, job := range q.jobs {
		if job.Status == StatusPending {
			pending = append(pending, id)
		}
	}
	q.mu.Unlock()

	for _, id := range pending {
		q.enqueuePendingID(id)
	}

	for range q.workerCount {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

// Stop cancels in-flight runs and waits for workers to drain.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.cancel()
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case id := <-q.pendingIDs:
			job, ok := q.markRunning(id)
			if !ok {
				continue
			}

			result, err := exec(q.ctx, job.Payload, func(state pipeline.State) {
				q.setState(id, state)
			})
			if err != nil {
				q.markFailed(id, result, err)
				continue
			}
			q.markDone(id, result)
		}
	}
}

func (q *Queue) enqueuePendingID(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() {
			select {
			case q.pendingIDs <- id:
			case <-q.ctx.Done():
			}
		}()
	}
}

func (q *Queue) setState(id string, state pipeline.State) {
	q.mu.Lock()
	if job, ok := q.jobs[id]; ok {
		job.State = state
		job.UpdatedAt = time.Now()
	}
	q.mu.Unlock()
}

func (q *Queue) markRunning(id string) (*RunJob, bool) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPending {
		q.mu.Unlock()
		return nil, false
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()
	return snapshot, true
}

func (q *Queue) markDone(id string, result pipeline.Result) {
	status := StatusSuccess
	if result.Status == pipeline.StatusPartialFailure {
		status = StatusPartial
	}

	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.Status = status
	job.State = pipeline.StateDone
	job.Result = &result
	job.Error = ""
	job.UpdatedAt = time.Now()
	q.releaseDedupeLocked(job)
	q.pruneTerminalJobsLocked()
	q.mu.Unlock()
}

func (q *Queue) markFailed(id string, result pipeline.Result, err error) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.Status = StatusFailed
	job.State = pipeline.StateFailed
	job.Result = &result
	if err != nil {
		job.Error = err.Error()
	}
	job.UpdatedAt = time.Now()
	q.releaseDedupeLocked(job)
	q.pruneTerminalJobsLocked()
	q.mu.Unlock()
}

func (q *Queue) releaseDedupeLocked(job *RunJob) {
	if job == nil || job.DedupeKey == "" {
		return
	}
	if id, ok := q.dedupe[job.DedupeKey]; ok && id == job.ID {
		delete(q.dedupe, job.DedupeKey)
	}
}

func (q *Queue) pruneTerminalJobsLocked() {
	if q.maxJobs <= 0 || len(q.jobs) <= q.maxJobs {
		return
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(q.jobs))
	for id, job := range q.jobs {
		if job == nil {
			continue
		}
		if job.Status == StatusPending || job.Status == StatusRunning {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: job.UpdatedAt})
	}
	if len(terminal) == 0 {
		return
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := len(q.jobs) - q.maxJobs
	if toRemove > len(terminal) {
		toRemove = len(terminal)
	}
	for i := 0; i < toRemove; i++ {
		id := terminal[i].id
		q.releaseDedupeLocked(q.jobs[id])
		delete(q.jobs, id)
	}
}

func cloneJob(job *RunJob) *RunJob {
	if job == nil {
		return nil
	}
	tmp := *job
	if job.Result != nil {
		res := *job.Result
		tmp.Result = &res
	}
	return &tmp
}
