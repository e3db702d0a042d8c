// Package session keeps editable outline documents alive between requests.
// Each session owns one arena and serializes all access to it. A snapshot
// of the emitted text is written through to an optional SnapshotStore so a
// session can be restored after eviction or a restart.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/orgtree/internal/outline"
)

var ErrNotFound = errors.New("session: not found")

// Session is one editable document.
type Session struct {
	mu sync.Mutex

	ID        string
	Filename  string
	CreatedAt time.Time

	doc       *outline.Document
	revision  int
	updatedAt time.Time
}

// Info is a JSON-safe summary of a session.
type Info struct {
	ID        string    `json:"doc_id"`
	Filename  string    `json:"filename,omitempty"`
	Revision  int       `json:"revision"`
	Sections  int       `json:"sections"`
	Bytes     int       `json:"bytes"`
	ArenaSize int       `json:"arena_size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View runs fn with the document locked. fn must not retain the document.
func (s *Session) View(fn func(doc *outline.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.doc)
}

// Update runs fn with the document locked and bumps the revision when fn
// succeeds.
func (s *Session) Update(fn func(doc *outline.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.doc); err != nil {
		return err
	}
	s.revision++
	s.updatedAt = time.Now()
	return nil
}

// Compact moves the document into a fresh arena, dropping detached and
// superseded nodes. Section IDs change.
func (s *Session) Compact() (before, after int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before = s.doc.Arena().Len()
	doc, err := outline.Rebuild(s.doc)
	if err != nil {
		return before, before, err
	}
	s.doc = doc
	s.revision++
	s.updatedAt = time.Now()
	return before, doc.Arena().Len(), nil
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for range s.doc.Sections() {
		n++
	}
	return Info{
		ID:        s.ID,
		Filename:  s.Filename,
		Revision:  s.revision,
		Sections:  n,
		Bytes:     s.doc.EmitText().Len(),
		ArenaSize: s.doc.Arena().Len(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		Filename:  s.Filename,
		Text:      s.doc.Emit(),
		Revision:  s.revision,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = time.Now()
}

// Manager is a thread-safe session registry with TTL eviction.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	ttl       time.Duration
	snapshots SnapshotStore
	log       *slog.Logger
}

// NewManager creates a manager. snapshots may be nil.
func NewManager(ttl time.Duration, snapshots SnapshotStore, log *slog.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		snapshots: snapshots,
		log:       log,
	}
}

// Create parses text into a fresh arena and registers it as a new session.
func (m *Manager) Create(ctx context.Context, filename, text string) (*Session, error) {
	doc, err := outline.NewArena().Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	now := time.Now()
	s := &Session{
		ID:        NewID(),
		Filename:  filename,
		CreatedAt: now,
		doc:       doc,
		updatedAt: now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.persist(ctx, s)
	return s, nil
}

// Get returns a live session, restoring it from the snapshot store if it
// was evicted.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch()
		return s, nil
	}
	if m.snapshots == nil || !ValidID(id) {
		return nil, ErrNotFound
	}

	snap, err := m.snapshots.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := outline.NewArena().Parse(snap.Text)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	s = &Session{
		ID:        snap.ID,
		Filename:  snap.Filename,
		CreatedAt: snap.CreatedAt,
		doc:       doc,
		revision:  snap.Revision,
		updatedAt: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if live, ok := m.sessions[id]; ok {
		return live, nil
	}
	m.sessions[id] = s
	m.log.Info("session restored", "doc_id", id, "revision", snap.Revision)
	return s, nil
}

// Update applies fn to the session's document and writes a snapshot when
// it succeeds.
func (m *Manager) Update(ctx context.Context, id string, fn func(doc *outline.Document) error) (*Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Update(fn); err != nil {
		return s, err
	}
	m.persist(ctx, s)
	return s, nil
}

// Compact rebuilds the session's arena and writes a snapshot.
func (m *Manager) Compact(ctx context.Context, id string) (before, after int, err error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	before, after, err = s.Compact()
	if err != nil {
		return before, after, err
	}
	m.persist(ctx, s)
	return before, after, nil
}

// Delete drops a session and its snapshot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.snapshots != nil {
		err := m.snapshots.Delete(ctx, id)
		if errors.Is(err, ErrNotFound) && live {
			return nil
		}
		return err
	}
	if !live {
		return ErrNotFound
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Cleanup evicts sessions idle longer than the TTL. Snapshots expire on
// their own.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, s := range m.sessions {
		if now.Sub(s.lastUsed()) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	if m.snapshots == nil {
		return
	}
	snap := s.snapshot()
	if err := m.snapshots.Save(ctx, snap, m.ttl); err != nil {
		m.log.Warn("snapshot write failed", "doc_id", s.ID, "revision", snap.Revision, "error", err)
	}
}
