// Package grade implements the challenge grader (§4.E): transpile once in
// challenge mode, run the program once per test case with its input
// supplied up front, compare trimmed output, and aggregate a visible/hidden
// split plus a weighted score. Grounded on
// original_source/backend/app/services/challenge_executor.py.
package grade

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isipython-edu/isipython-core/internal/core"
	"github.com/isipython-edu/isipython-core/internal/process"
	"github.com/isipython-edu/isipython-core/internal/translate"
	"github.com/isipython-edu/isipython-core/internal/transpile"
	"github.com/isipython-edu/isipython-core/internal/util"
)

const (
	timeoutXhosaMessage  = "Ikhowudi yakho ithathe ixesha elide kakhulu"
	timeoutEnglishReason = "Code took too long to execute"
)

// Config holds the grader's configurable constants (§6 reference values).
type Config struct {
	CaseTimeout    time.Duration // default 10s, per test case
	Concurrency    int           // default 1, cases run concurrently up to this bound
	InterpreterCmd []string      // e.g. {"python3"}
	TempDir        string
}

func (c Config) withDefaults() Config {
	if c.CaseTimeout <= 0 {
		c.CaseTimeout = 10 * time.Second
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if len(c.InterpreterCmd) == 0 {
		c.InterpreterCmd = []string{"python3"}
	}
	return c
}

// TestResult is one test case's execution outcome.
type TestResult struct {
	Status       string // "passed" | "failed"
	ActualOutput string
	ErrorMessage *string // isiXhosa diagnostic, set only on failure
	EnglishError *string // raw interpreter stderr (or a fixed timeout reason)
}

// VisibleResult is the detail shown to the student for a non-hidden case.
type VisibleResult struct {
	InputData      []string `json:"input_data"`
	ExpectedOutput string   `json:"expected_output"`
	ActualOutput   string   `json:"actual_output"`
	Status         string   `json:"status"`
	Explanation    string   `json:"explanation,omitempty"`
	ErrorMessage   *string  `json:"error_message,omitempty"`
	EnglishError   *string  `json:"english_error,omitempty"`
}

// HiddenSummary is the counts-only view of hidden test cases.
type HiddenSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Result is the full outcome of grading one submission.
type Result struct {
	SubmissionID    string
	Status          string // "passed" | "failed" | "error"
	Score           float64
	TestsPassed     int
	TestsTotal      int
	VisibleTests    []VisibleResult
	HiddenTests     HiddenSummary
	ValidationError *string // set only when Status == "error" (transpile rejection)
	EnglishError    *string
}

// Grader runs a submission against a challenge's test cases.
type Grader struct {
	cfg         Config
	testCases   core.TestCaseStore
	submissions core.SubmissionStore
	progress    core.ProgressStore
	translator  core.Translator // optional; nil skips isiXhosa diagnostics
	log         *zap.Logger
}

func NewGrader(cfg Config, testCases core.TestCaseStore, submissions core.SubmissionStore, progress core.ProgressStore, translator core.Translator, log *zap.Logger) *Grader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Grader{
		cfg:         cfg.withDefaults(),
		testCases:   testCases,
		submissions: submissions,
		progress:    progress,
		translator:  translator,
		log:         log,
	}
}

// Grade creates a submission record, transpiles in challenge mode, runs
// every test case, and writes the aggregated result back to the submission
// and progress stores.
func (g *Grader) Grade(ctx context.Context, challengeID, userID, code string) (Result, error) {
	submissionID, err := g.submissions.Create(ctx, challengeID, userID, code)
	if err != nil {
		return Result{}, err
	}

	cases, err := g.testCases.FindByChallenge(ctx, challengeID)
	if err != nil {
		return Result{}, err
	}
	if len(cases) == 0 {
		return Result{SubmissionID: submissionID}, errors.New("grade: no test cases found for this challenge")
	}

	tr, transpileErr := transpile.Transpile(code, transpile.Mode{Challenge: true})
	if transpileErr != nil {
		return g.rejectTranspile(ctx, submissionID, userID, challengeID, transpileErr), nil
	}

	return g.gradeTarget(ctx, submissionID, userID, challengeID, tr.Target, tr.LineMap, cases), nil
}

// gradeTarget runs already-transpiled target source against cases and
// records the aggregated result. Split out from Grade so tests can drive it
// with a scripted fixture instead of requiring a real interpreter (see
// DESIGN.md).
func (g *Grader) gradeTarget(ctx context.Context, submissionID, userID, challengeID, target string, lineMap map[int]int, cases []core.TestCase) Result {
	g.log.Info("grading started", zap.String("challenge_id", challengeID), zap.String("submission_id", submissionID), zap.Int("test_cases", len(cases)))

	outcomes := g.runAll(ctx, target, lineMap, cases)

	var visible []VisibleResult
	hidden := HiddenSummary{}
	var score float64
	var testsPassed int

	for i, tc := range cases {
		outcome := outcomes[i]
		if outcome.Status == "passed" {
			testsPassed++
			score += tc.PointsWeight
		}
		if tc.IsHidden {
			hidden.Total++
			if outcome.Status == "passed" {
				hidden.Passed++
			} else {
				hidden.Failed++
			}
			continue
		}
		visible = append(visible, VisibleResult{
			InputData:      tc.InputData,
			ExpectedOutput: tc.ExpectedOutput,
			ActualOutput:   outcome.ActualOutput,
			Status:         outcome.Status,
			Explanation:    tc.Explanation,
			ErrorMessage:   outcome.ErrorMessage,
			EnglishError:   outcome.EnglishError,
		})
	}

	overallStatus := "failed"
	if testsPassed == len(cases) {
		overallStatus = "passed"
	}

	_ = g.submissions.UpdateResults(ctx, submissionID, core.SubmissionResult{
		Status:      overallStatus,
		Score:       score,
		TestsPassed: testsPassed,
		TestsTotal:  len(cases),
	})
	_ = g.progress.UpdateProgress(ctx, userID, challengeID, core.ProgressUpdate{SubmissionID: submissionID, Status: overallStatus, Score: score})

	g.log.Info("grading finished", zap.String("submission_id", submissionID), zap.String("status", overallStatus), zap.Int("tests_passed", testsPassed), zap.Int("tests_total", len(cases)))

	return Result{
		SubmissionID: submissionID,
		Status:       overallStatus,
		Score:        score,
		TestsPassed:  testsPassed,
		TestsTotal:   len(cases),
		VisibleTests: visible,
		HiddenTests:  hidden,
	}
}

func (g *Grader) rejectTranspile(ctx context.Context, submissionID, userID, challengeID string, transpileErr error) Result {
	englishErr := transpileErr.Error()
	_ = g.submissions.UpdateResults(ctx, submissionID, core.SubmissionResult{Status: "error"})
	_ = g.progress.UpdateProgress(ctx, userID, challengeID, core.ProgressUpdate{SubmissionID: submissionID, Status: "error"})

	validation := englishErr
	if g.translator != nil {
		if translated, tErr := g.translator.TranslateError(ctx, englishErr); tErr == nil && translated != "" {
			validation = translated
		}
	}
	g.log.Warn("submission rejected at transpile", zap.String("challenge_id", challengeID), zap.String("submission_id", submissionID), zap.Error(transpileErr))

	return Result{
		SubmissionID:    submissionID,
		Status:          "error",
		ValidationError: &validation,
		EnglishError:    &englishErr,
	}
}

// runAll executes every test case, bounded by cfg.Concurrency concurrent
// children, preserving result order to match cases.
func (g *Grader) runAll(ctx context.Context, target string, lineMap map[int]int, cases []core.TestCase) []TestResult {
	results := make([]TestResult, len(cases))
	sem := make(chan struct{}, g.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, tc := range cases {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, tc core.TestCase) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = g.runSingleTest(ctx, target, lineMap, tc)
		}(i, tc)
	}
	wg.Wait()
	return results
}

func (g *Grader) runSingleTest(ctx context.Context, target string, lineMap map[int]int, tc core.TestCase) TestResult {
	tempFile, err := g.writeTempFile(target)
	if err != nil {
		msg := err.Error()
		return TestResult{Status: "failed", EnglishError: &msg}
	}
	defer os.Remove(tempFile)

	caseCtx, cancel := context.WithTimeout(ctx, g.cfg.CaseTimeout)
	defer cancel()

	argv := append(append([]string{}, g.cfg.InterpreterCmd...), tempFile)
	child, err := process.Start(caseCtx, argv)
	if err != nil {
		msg := err.Error()
		g.log.Warn("test case failed to spawn", zap.Error(err))
		return TestResult{Status: "failed", EnglishError: &msg}
	}

	inputString := ""
	if len(tc.InputData) > 0 {
		inputString = strings.Join(tc.InputData, "\n") + "\n"
	}
	_ = child.WriteAndClose(inputString)

	var stdout, stderr []string
	done := make(chan struct{})
	go func() {
		for ev := range child.Events() {
			switch ev.Type {
			case process.EventStdout:
				stdout = append(stdout, ev.Line)
			case process.EventStderr:
				stderr = append(stderr, ev.Line)
			}
		}
		close(done)
	}()

	timedOut := false
	select {
	case <-done:
	case <-caseCtx.Done():
		timedOut = true
		_ = child.Kill()
		<-done
	}

	actualOutput := strings.TrimRight(strings.Join(stdout, "\n"), " \t\r\n")

	if timedOut {
		reason := timeoutEnglishReason
		msg := timeoutXhosaMessage
		return TestResult{Status: "failed", ActualOutput: actualOutput, ErrorMessage: &msg, EnglishError: &reason}
	}

	if len(stderr) > 0 {
		englishErr := strings.Join(stderr, "\n")
		result := TestResult{Status: "failed", ActualOutput: actualOutput, EnglishError: &englishErr}
		if g.translator != nil {
			if diagnostic, dErr := translate.Diagnostic(ctx, g.translator, englishErr, lineMap); dErr == nil {
				result.ErrorMessage = &diagnostic
			}
		}
		return result
	}

	expected := strings.TrimRight(tc.ExpectedOutput, " \t\r\n")
	if actualOutput == expected {
		return TestResult{Status: "passed", ActualOutput: actualOutput}
	}
	return TestResult{Status: "failed", ActualOutput: actualOutput}
}

func (g *Grader) writeTempFile(target string) (string, error) {
	dir := g.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := util.SafeFilename(uuid.NewString()) + ".py"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(target), 0o600); err != nil {
		return "", err
	}
	return path, nil
}
