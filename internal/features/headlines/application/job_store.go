package application

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"insightgen/backend/internal/features/headlines/domain"
)

// JobStore is an in-memory record of deck-processing jobs. Jobs live
// for the lifetime of the process; callers get copies so a background
// run can keep updating a job while handlers read it.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*domain.Job)}
}

// Create registers a new job in the processing state.
func (s *JobStore) Create(id, message string) domain.Job {
	job := &domain.Job{
		ID:        id,
		Status:    domain.JobProcessing,
		Message:   message,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()
	return *job
}

// Get returns a copy of the job with the given id.
func (s *JobStore) Get(id string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return *job, nil
}

// List returns copies of all jobs, newest first. Slide payloads are
// omitted; they are served by the result endpoint.
func (s *JobStore) List() []domain.Job {
	s.mu.RLock()
	jobs := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		copied := *job
		copied.Slides = nil
		jobs = append(jobs, copied)
	}
	s.mu.RUnlock()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs
}

// Complete marks the job as finished and attaches the run output.
func (s *JobStore) Complete(id string, slides []domain.Slide, metrics *domain.RunMetrics) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = domain.JobCompleted
	job.Message = "Processing completed successfully"
	job.Slides = slides
	job.Metrics = metrics
	job.CompletedAt = &now
}

// Fail marks the job as failed with the given reason.
func (s *JobStore) Fail(id, reason string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = domain.JobFailed
	job.Message = "Processing failed: " + reason
	job.CompletedAt = &now
}

// Delete removes the job with the given id.
func (s *JobStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	delete(s.jobs, id)
	return nil
}
