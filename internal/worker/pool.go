// Package worker runs batch analysis jobs in the background.
package worker

import (
	"context"
	"sync"

	"callcenter-insights-go/internal/logger"
	"callcenter-insights-go/internal/manifest"
	"callcenter-insights-go/internal/pipeline"
)

// Job is one queued batch run.
type Job struct {
	BatchID string
	Records []manifest.CallRecord
}

// Batch job lifecycle states.
const (
	StateQueued   = "queued"
	StateRunning  = "running"
	StateFinished = "finished"
	StateRejected = "rejected"
)

// Status is the queryable state of a submitted batch.
type Status struct {
	BatchID string                `json:"batch_id"`
	State   string                `json:"state"`
	Result  *pipeline.BatchResult `json:"result,omitempty"`
}

// Pool manages background workers for batch jobs. Submission never blocks;
// a full queue rejects the job.
type Pool struct {
	pipe *pipeline.Pipeline
	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.Mutex
	batches map[string]*Status
}

// NewPool creates a pool with the given queue size. Call Start to launch
// workers and Stop to drain them.
func NewPool(pipe *pipeline.Pipeline, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		pipe:    pipe,
		jobs:    make(chan Job, queueSize),
		batches: map[string]*Status{},
	}
}

// Start launches the worker goroutines. ctx cancellation stops in-flight
// batches between calls.
func (p *Pool) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.process(ctx, job)
			}
		}()
	}
}

// Stop closes the queue and waits for workers to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit queues a batch without blocking. Returns false when the queue is
// full; the batch is then recorded as rejected.
func (p *Pool) Submit(job Job) bool {
	p.setState(job.BatchID, StateQueued, nil)
	select {
	case p.jobs <- job:
		return true
	default:
		p.setState(job.BatchID, StateRejected, nil)
		logger.New().WithComponent("worker").
			WithField("batch_id", job.BatchID).
			Warn("queue full, dropping batch job")
		return false
	}
}

// BatchStatus reports the state of a submitted batch. ok is false for
// unknown ids.
func (p *Pool) BatchStatus(batchID string) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.batches[batchID]
	if !ok {
		return Status{}, false
	}
	return *st, true
}

func (p *Pool) process(ctx context.Context, job Job) {
	p.setState(job.BatchID, StateRunning, nil)
	result := p.pipe.ProcessBatch(ctx, job.BatchID, job.Records)
	p.setState(job.BatchID, StateFinished, &result)
}

func (p *Pool) setState(batchID, state string, result *pipeline.BatchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.batches[batchID]
	if !ok {
		st = &Status{BatchID: batchID}
		p.batches[batchID] = st
	}
	st.State = state
	if result != nil {
		st.Result = result
	}
}
