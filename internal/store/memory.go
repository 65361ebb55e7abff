package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/isipython-edu/isipython-core/internal/core"
)

// SubmissionRecord is one stored submission, as tracked by MemorySubmissionStore.
type SubmissionRecord struct {
	ID          string
	ChallengeID string
	UserID      string
	SourceCode  string
	Result      *core.SubmissionResult
}

// MemorySubmissionStore is a process-local implementation of
// core.SubmissionStore, suitable for local development and tests; it does
// not persist across restarts.
type MemorySubmissionStore struct {
	mu      sync.Mutex
	records map[string]*SubmissionRecord
}

func NewMemorySubmissionStore() *MemorySubmissionStore {
	return &MemorySubmissionStore{records: map[string]*SubmissionRecord{}}
}

func (s *MemorySubmissionStore) Create(ctx context.Context, challengeID, userID, sourceCode string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.records[id] = &SubmissionRecord{ID: id, ChallengeID: challengeID, UserID: userID, SourceCode: sourceCode}
	return id, nil
}

func (s *MemorySubmissionStore) UpdateResults(ctx context.Context, submissionID string, result core.SubmissionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[submissionID]
	if !ok {
		return fmt.Errorf("store: unknown submission %q", submissionID)
	}
	rec.Result = &result
	return nil
}

// Get returns a copy of the stored record, for callers that need to read
// results back.
func (s *MemorySubmissionStore) Get(submissionID string) (SubmissionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[submissionID]
	if !ok {
		return SubmissionRecord{}, false
	}
	return *rec, true
}

// progressKey identifies one user's progress on one challenge.
type progressKey struct {
	userID      string
	challengeID string
}

// MemoryProgressStore is a process-local implementation of core.ProgressStore.
type MemoryProgressStore struct {
	mu       sync.Mutex
	progress map[progressKey]core.ProgressUpdate
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{progress: map[progressKey]core.ProgressUpdate{}}
}

func (p *MemoryProgressStore) UpdateProgress(ctx context.Context, userID, challengeID string, update core.ProgressUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := progressKey{userID: userID, challengeID: challengeID}
	// Best score is kept, matching the original's "highest attempt counts".
	if existing, ok := p.progress[key]; ok && existing.Score >= update.Score {
		return nil
	}
	p.progress[key] = update
	return nil
}

// Get returns the best recorded progress for a user/challenge pair.
func (p *MemoryProgressStore) Get(userID, challengeID string) (core.ProgressUpdate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	update, ok := p.progress[progressKey{userID: userID, challengeID: challengeID}]
	return update, ok
}

// MemorySavedCodeStore is a process-local implementation of core.SavedCodeStore.
type MemorySavedCodeStore struct {
	mu    sync.Mutex
	items map[string]core.SavedCode
}

func NewMemorySavedCodeStore() *MemorySavedCodeStore {
	return &MemorySavedCodeStore{items: map[string]core.SavedCode{}}
}

func (s *MemorySavedCodeStore) Create(ctx context.Context, userID, title, code string) (core.SavedCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := core.SavedCode{ID: uuid.NewString(), UserID: userID, Title: title, Code: code}
	s.items[sc.ID] = sc
	return sc, nil
}

func (s *MemorySavedCodeStore) FindByUser(ctx context.Context, userID string) ([]core.SavedCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.SavedCode
	for _, sc := range s.items {
		if sc.UserID == userID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *MemorySavedCodeStore) Update(ctx context.Context, id, userID string, title, code *string) (core.SavedCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.items[id]
	if !ok || sc.UserID != userID {
		return core.SavedCode{}, fmt.Errorf("store: saved code %q not found for user %q", id, userID)
	}
	if title != nil {
		sc.Title = *title
	}
	if code != nil {
		sc.Code = *code
	}
	s.items[id] = sc
	return sc, nil
}

func (s *MemorySavedCodeStore) Delete(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.items[id]
	if !ok || sc.UserID != userID {
		return fmt.Errorf("store: saved code %q not found for user %q", id, userID)
	}
	delete(s.items, id)
	return nil
}
