package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/orgtree/internal/chunker"
	"github.com/dgallion1/orgtree/internal/config"
	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/importer"
	"github.com/dgallion1/orgtree/internal/session"
)

// ErrQueueFull is returned by Submit when no worker slot is free.
var ErrQueueFull = errors.New("job queue is full")

// Orchestrator manages the verification pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	sessions *session.Manager
	reports  ReportStore
	log      *slog.Logger
	cfg      config.Config
	deps     Deps

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. sessions and reports may be nil.
func NewOrchestrator(cfg config.Config, sessions *session.Manager, reports ReportStore, log *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		sessions: sessions,
		reports:  reports,
		log:      log,
		cfg:      cfg,
		deps: Deps{
			Chunk: chunker.Config{
				ChunkSize:    cfg.DefaultChunkSize,
				ChunkOverlap: cfg.DefaultChunkOverlap,
				MinChunk:     100,
			},
			Keywords:  headline.ParseKeywords(cfg.TodoKeywords),
			Import:    importer.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
			ReportTTL: cfg.JobTTL,
		},
	}
	return o
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.sessions, o.reports, o.log, o.deps)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// NewJob builds a queued job for data.
func NewJob(filename string, data []byte, keep bool) *Job {
	now := time.Now()
	job := &Job{
		ID:        session.NewID(),
		Filename:  filename,
		Keep:      keep,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.SetFileData(data)
	return job
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		job.releaseData()
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Status returns a job's state, falling back to the report store once the
// job has left memory.
func (o *Orchestrator) Status(ctx context.Context, id string) (JobSnapshot, bool, error) {
	if job := o.jobs.Get(id); job != nil {
		return job.Snapshot(), true, nil
	}
	if o.reports == nil {
		return JobSnapshot{}, false, nil
	}
	data, err := o.reports.LoadReport(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return JobSnapshot{}, false, nil
	}
	if err != nil {
		return JobSnapshot{}, false, err
	}
	var snap JobSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return JobSnapshot{}, false, fmt.Errorf("decode report %s: %w", id, err)
	}
	return snap, true, nil
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
