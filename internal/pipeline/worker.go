package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dgallion1/orgtree/internal/chunker"
	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/importer"
	"github.com/dgallion1/orgtree/internal/session"
)

// ReportStore persists finished job reports beyond the in-memory TTL.
type ReportStore interface {
	SaveReport(ctx context.Context, jobID string, report []byte, ttl time.Duration) error
	LoadReport(ctx context.Context, jobID string) ([]byte, error)
}

// Worker processes a single verification job.
type Worker struct {
	sessions  *session.Manager
	reports   ReportStore
	log       *slog.Logger
	chunkCfg  chunker.Config
	keywords  headline.Context
	importOpt importer.Options
	reportTTL time.Duration

	// backoff is Backoff except in tests.
	backoff func(int) time.Duration
}

func NewWorker(sessions *session.Manager, reports ReportStore, log *slog.Logger, deps Deps) *Worker {
	return &Worker{
		sessions:  sessions,
		reports:   reports,
		log:       log,
		chunkCfg:  deps.Chunk,
		keywords:  deps.Keywords,
		importOpt: deps.Import,
		reportTTL: deps.ReportTTL,
		backoff:   Backoff,
	}
}

// Deps carries the settings every worker shares.
type Deps struct {
	Chunk     chunker.Config
	Keywords  headline.Context
	Import    importer.Options
	ReportTTL time.Duration
}

// Process runs import, verification and storage for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	defer job.releaseData()

	data := job.FileData()
	job.setContentHash(ContentHashHex(data))
	text := string(data)

	// Phase 1: Import foreign formats.
	imported := false
	if ext := filepath.Ext(job.Filename); ext != "" && !importer.IsNative(job.Filename) {
		job.SetStatus(StatusImporting, "importing")
		out, err := importer.ToOutline(bytes.NewReader(data), job.Filename, w.importOpt)
		if err != nil {
			log.Error("import failed", "error", err)
			job.AddError(fmt.Sprintf("import: %s", err))
			job.SetStatus(StatusFailed, "importing")
			w.store(ctx, job, log)
			return
		}
		text = out
		imported = true
	}

	// Phase 2: Parse and verify in a fresh arena.
	job.SetStatus(StatusVerifying, "verifying")
	res, doc, err := Verify(text, w.keywords, w.chunkCfg)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "verifying")
		w.store(ctx, job, log)
		return
	}
	res.Imported = imported
	for _, e := range res.Errors {
		job.AddError(e)
	}
	log.Info("verified document",
		"bytes", res.Bytes,
		"sections", res.Sections,
		"chunks", res.Chunks,
		"ok", res.OK(),
	)

	// Phase 3: Optionally keep the document as an editing session.
	if job.Keep && res.OK() && w.sessions != nil {
		s, err := w.sessions.Create(ctx, job.Filename, doc.Emit())
		if err != nil {
			log.Warn("session create failed", "error", err)
			job.AddError(fmt.Sprintf("session: %s", err))
		} else {
			res.DocID = s.ID
		}
	}
	job.SetResult(res)

	if res.OK() {
		job.SetStatus(StatusCompleted, "done")
	} else {
		job.SetStatus(StatusMismatch, "done")
	}
	w.store(ctx, job, log)
}

// store writes the finished job's report, retrying transient store errors.
func (w *Worker) store(ctx context.Context, job *Job, log *slog.Logger) {
	if w.reports == nil {
		return
	}
	snap := job.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		log.Error("marshal report failed", "error", err)
		return
	}
	err = retry(ctx, w.backoff, func() error {
		err := w.reports.SaveReport(ctx, job.ID, data, w.reportTTL)
		if err != nil && IsRetryable(err) {
			log.Warn("retryable report write error", "error", err)
		}
		return err
	})
	if err != nil {
		log.Error("report write failed", "error", err)
	}
}
