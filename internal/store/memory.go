package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openboard/relayq/pkg/models"
)

// MemoryStore is the in-memory Store implementation used by tests. A single
// RWMutex guards all state; expiry is evaluated on read against the Now hook
// so TTL behavior can be tested without sleeping.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[uuid.UUID]memoryRecord
	sessions map[string][]uuid.UUID
	counters map[string]*memoryCounter
	indexCap int

	// Now is the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

type memoryRecord struct {
	job       models.Job
	expiresAt time.Time
}

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryStore(indexCap int) *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[uuid.UUID]memoryRecord),
		sessions: make(map[string][]uuid.UUID),
		counters: make(map[string]*memoryCounter),
		indexCap: indexCap,
		Now:      time.Now,
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }
func (s *MemoryStore) Close() error                 { return nil }

func (s *MemoryStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = memoryRecord{job: *job, expiresAt: job.ExpiresAt}

	ids := append([]uuid.UUID{job.ID}, s.sessions[job.SessionID]...)
	if len(ids) > s.indexCap {
		ids = ids[:s.indexCap]
	}
	s.sessions[job.SessionID] = ids
	return nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = memoryRecord{job: *job, expiresAt: job.ExpiresAt}
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.jobs[id]
	if !ok || s.Now().After(rec.expiresAt) {
		return nil, ErrNotFound
	}
	job := rec.job
	return &job, nil
}

func (s *MemoryStore) ListBySession(_ context.Context, sessionID string, limit int) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := []*models.Job{}
	for _, id := range s.sessions[sessionID] {
		if len(jobs) >= limit {
			break
		}
		rec, ok := s.jobs[id]
		if !ok || s.Now().After(rec.expiresAt) {
			continue
		}
		job := rec.job
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

func (s *MemoryStore) IncrWithExpiry(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &memoryCounter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}
