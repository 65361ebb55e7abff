package core

import "context"

// TestCase mirrors the external test-case store's row shape (§6): each case
// exposes input lines, an expected output, a weight, and hidden/example
// flags. Hidden and example may both be false (a plain graded case) but the
// authoring layer that populates this store must never set both true.
type TestCase struct {
	ID             string
	InputData      []string
	ExpectedOutput string
	PointsWeight   float64
	IsHidden       bool
	IsExample      bool
	Explanation    string
}

// TestCaseStore is the external collaborator that owns challenge test cases.
type TestCaseStore interface {
	FindByChallenge(ctx context.Context, challengeID string) ([]TestCase, error)
}

// SubmissionResult is what the grader writes back to the submission store.
type SubmissionResult struct {
	Status      string // "passed" | "failed" | "error"
	Score       float64
	TestsPassed int
	TestsTotal  int
}

// SubmissionStore is the external collaborator owning submission records.
// The grader depends only on Create and UpdateResults (§6).
type SubmissionStore interface {
	Create(ctx context.Context, challengeID, userID, sourceCode string) (submissionID string, err error)
	UpdateResults(ctx context.Context, submissionID string, result SubmissionResult) error
}

// ProgressUpdate is recorded against a user's per-challenge progress.
type ProgressUpdate struct {
	SubmissionID string
	Status       string
	Score        float64
}

// ProgressStore is the external collaborator tracking per-user,
// per-challenge progress.
type ProgressStore interface {
	UpdateProgress(ctx context.Context, userID, challengeID string, update ProgressUpdate) error
}

// SavedCode is a student's named code snippet (supplemented feature, see
// SPEC_FULL.md; grounded on original_source's saved_code model).
type SavedCode struct {
	ID     string
	UserID string
	Title  string
	Code   string
}

// SavedCodeStore is the external collaborator for saved snippets.
type SavedCodeStore interface {
	Create(ctx context.Context, userID, title, code string) (SavedCode, error)
	FindByUser(ctx context.Context, userID string) ([]SavedCode, error)
	Update(ctx context.Context, id, userID string, title, code *string) (SavedCode, error)
	Delete(ctx context.Context, id, userID string) error
}

// Translator is the external LLM diagnostic-paraphrase collaborator (§4.C).
// It is intentionally narrow so tests can substitute a deterministic fake.
type Translator interface {
	// TranslateError paraphrases a (line-remapped) runtime error into
	// beginner-friendly isiXhosa.
	TranslateError(ctx context.Context, remappedErrorText string) (string, error)
	// TranslateTimeout diagnoses a likely infinite-loop pattern from the
	// original isiXhosa source.
	TranslateTimeout(ctx context.Context, originalSource string) (string, error)
}
