package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a verification job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusImporting JobStatus = "importing"
	StatusVerifying JobStatus = "verifying"
	StatusCompleted JobStatus = "completed"
	StatusMismatch  JobStatus = "mismatch"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the verification of a single document.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	Filename string `json:"filename"`

	// Keep opens an editing session on the verified text.
	Keep bool `json:"keep"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Result Result `json:"result"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Result holds what verification found.
type Result struct {
	Imported   bool     `json:"imported"`
	Bytes      int      `json:"bytes"`
	Sections   int      `json:"sections"`
	MaxDepth   int      `json:"max_depth"`
	Chunks     int      `json:"chunks"`
	RoundTrip  bool     `json:"round_trip"`
	Idempotent bool     `json:"idempotent"`
	Invariants bool     `json:"invariants"`
	DocID      string   `json:"doc_id,omitempty"`
	Errors     []string `json:"errors"`
}

// OK reports whether every check passed.
func (r Result) OK() bool {
	return r.RoundTrip && r.Idempotent && r.Invariants
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updated()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updated() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Result.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetResult records verification findings, keeping accumulated errors.
func (j *Job) SetResult(r Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	r.Errors = j.errors
	j.Result = r
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

func (j *Job) setContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// releaseData drops the input once the job no longer needs it.
func (j *Job) releaseData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Filename    string    `json:"filename"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	ContentHash string    `json:"content_hash,omitempty"`
	Result      Result    `json:"result"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	res := j.Result
	res.Errors = append([]string{}, j.errors...)
	return JobSnapshot{
		ID:          j.ID,
		Filename:    j.Filename,
		Status:      j.Status,
		Phase:       j.Phase,
		ContentHash: j.ContentHash,
		Result:      res,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// Done reports whether the job reached a terminal status.
func (s JobSnapshot) Done() bool {
	switch s.Status {
	case StatusCompleted, StatusMismatch, StatusFailed:
		return true
	}
	return false
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
