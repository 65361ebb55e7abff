package store

import (
	"context"
	"testing"

	"github.com/isipython-edu/isipython-core/internal/core"
)

func TestMemorySubmissionStoreCreateAndUpdate(t *testing.T) {
	s := NewMemorySubmissionStore()

	id, err := s.Create(context.Background(), "chal-1", "user-1", "print(1)")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatalf("Create returned an empty submission ID")
	}

	if err := s.UpdateResults(context.Background(), id, core.SubmissionResult{Status: "passed", Score: 10}); err != nil {
		t.Fatalf("UpdateResults: %v", err)
	}

	rec, ok := s.Get(id)
	if !ok {
		t.Fatalf("Get(%q) not found after Create", id)
	}
	if rec.Result == nil || rec.Result.Status != "passed" || rec.Result.Score != 10 {
		t.Errorf("rec.Result = %+v, unexpected", rec.Result)
	}
}

func TestMemorySubmissionStoreUpdateUnknownID(t *testing.T) {
	s := NewMemorySubmissionStore()
	if err := s.UpdateResults(context.Background(), "does-not-exist", core.SubmissionResult{}); err == nil {
		t.Fatalf("expected an error updating an unknown submission")
	}
}

func TestMemoryProgressStoreKeepsBestScore(t *testing.T) {
	p := NewMemoryProgressStore()

	_ = p.UpdateProgress(context.Background(), "user-1", "chal-1", core.ProgressUpdate{Status: "failed", Score: 3})
	_ = p.UpdateProgress(context.Background(), "user-1", "chal-1", core.ProgressUpdate{Status: "passed", Score: 10})
	_ = p.UpdateProgress(context.Background(), "user-1", "chal-1", core.ProgressUpdate{Status: "passed", Score: 4})

	got, ok := p.Get("user-1", "chal-1")
	if !ok {
		t.Fatalf("Get not found after updates")
	}
	if got.Score != 10 {
		t.Errorf("Score = %v, want 10 (best attempt kept)", got.Score)
	}
}

func TestMemoryProgressStoreIsolatedByUserAndChallenge(t *testing.T) {
	p := NewMemoryProgressStore()
	_ = p.UpdateProgress(context.Background(), "user-1", "chal-1", core.ProgressUpdate{Score: 5})

	if _, ok := p.Get("user-2", "chal-1"); ok {
		t.Errorf("expected no progress for a different user")
	}
	if _, ok := p.Get("user-1", "chal-2"); ok {
		t.Errorf("expected no progress for a different challenge")
	}
}

func TestMemorySavedCodeStoreCRUD(t *testing.T) {
	s := NewMemorySavedCodeStore()

	sc, err := s.Create(context.Background(), "user-1", "My Snippet", "bhala(\"Molo\")")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := s.FindByUser(context.Background(), "user-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("FindByUser = %v, %v; want 1 item", list, err)
	}

	newTitle := "Renamed"
	updated, err := s.Update(context.Background(), sc.ID, "user-1", &newTitle, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Renamed" || updated.Code != sc.Code {
		t.Errorf("updated = %+v, unexpected", updated)
	}

	if _, err := s.Update(context.Background(), sc.ID, "user-2", &newTitle, nil); err == nil {
		t.Errorf("expected an error updating another user's saved code")
	}

	if err := s.Delete(context.Background(), sc.ID, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ = s.FindByUser(context.Background(), "user-1")
	if len(list) != 0 {
		t.Errorf("expected no saved code after delete, got %d", len(list))
	}
}
