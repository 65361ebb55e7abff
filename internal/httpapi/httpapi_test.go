package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/isipython-edu/isipython-core/internal/core"
	"github.com/isipython-edu/isipython-core/internal/grade"
	"github.com/isipython-edu/isipython-core/internal/score"
	"github.com/isipython-edu/isipython-core/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type emptyTestCaseStore struct{}

func (emptyTestCaseStore) FindByChallenge(ctx context.Context, challengeID string) ([]core.TestCase, error) {
	if challengeID == "chal-1" {
		return []core.TestCase{{ID: "1", ExpectedOutput: "Molo", PointsWeight: 10}}, nil
	}
	return nil, nil
}

type noopSubmissionStore struct{}

func (noopSubmissionStore) Create(ctx context.Context, challengeID, userID, sourceCode string) (string, error) {
	return "sub-1", nil
}
func (noopSubmissionStore) UpdateResults(ctx context.Context, submissionID string, result core.SubmissionResult) error {
	return nil
}

type noopProgressStore struct{}

func (noopProgressStore) UpdateProgress(ctx context.Context, userID, challengeID string, update core.ProgressUpdate) error {
	return nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	sv := session.NewSupervisor(session.Config{InterpreterCmd: []string{"sh"}, TempDir: t.TempDir()})
	g := grade.NewGrader(grade.Config{InterpreterCmd: []string{"sh"}, TempDir: t.TempDir()}, emptyTestCaseStore{}, noopSubmissionStore{}, noopProgressStore{}, nil, nil)
	return New(sv, g, nil)
}

func newTestRouter(h *Handler) *gin.Engine {
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := newTestRouter(newTestHandler(t))
	rec := doJSON(t, r, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRunCodeMissingFieldIsBadRequest(t *testing.T) {
	r := newTestRouter(newTestHandler(t))
	rec := doJSON(t, r, http.MethodPost, "/api/code", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRunCodeRejectsForeignKeyword(t *testing.T) {
	r := newTestRouter(newTestHandler(t))
	rec := doJSON(t, r, http.MethodPost, "/api/code", map[string]string{"code": "if x is 1:\n    bhala(x)\n"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body: %s", rec.Code, rec.Body.String())
	}
}

func TestSessionStatusUnknownIDIsNotFound(t *testing.T) {
	r := newTestRouter(newTestHandler(t))
	rec := doJSON(t, r, http.MethodGet, "/api/session/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body: %s", rec.Code, rec.Body.String())
	}
}

func TestKillUnknownSessionIsNotAnError(t *testing.T) {
	r := newTestRouter(newTestHandler(t))
	rec := doJSON(t, r, http.MethodPost, "/api/session/kill/does-not-exist", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (kill is idempotent)", rec.Code)
	}
}

func TestSubmitChallenge(t *testing.T) {
	r := newTestRouter(newTestHandler(t))
	rec := doJSON(t, r, http.MethodPost, "/api/challenge/submit", map[string]string{
		"challenge_id": "chal-1",
		"user_id":      "user-1",
		"code":         "echo Molo\n",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var result grade.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Status != "passed" {
		t.Errorf("Status = %q, want passed", result.Status)
	}
}

func TestSubmitQuiz(t *testing.T) {
	r := newTestRouter(newTestHandler(t))
	rec := doJSON(t, r, http.MethodPost, "/api/quiz/submit", map[string]any{
		"questions": []map[string]any{
			{"id": "q1", "correct_answer": "b", "points_weight": 10},
			{"id": "q2", "correct_answer": "c", "points_weight": 5},
		},
		"user_answers": map[string]string{"q1": "b", "q2": "a"},
		"total_points": 15,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var result score.QuizResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.QuestionsCorrect != 1 {
		t.Errorf("QuestionsCorrect = %d, want 1", result.QuestionsCorrect)
	}
	if result.Percentage != 66.67 {
		t.Errorf("Percentage = %v, want 66.67", result.Percentage)
	}
}
