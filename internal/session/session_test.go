package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/isipython-edu/isipython-core/internal/transpile"
)

// fakeClock lets idle-budget tests advance time deterministically instead
// of sleeping on the wall clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(0, 0)} }

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testSupervisor configures the supervisor to run fixtures through /bin/sh
// rather than python3: the session/supervisor logic only depends on the
// D-D-D marker and ">>>" prompt protocol, not on Python semantics, so a
// shell script that speaks the same protocol exercises the same code paths
// without requiring a Python interpreter in the test environment (see
// DESIGN.md).
func testSupervisor(t *testing.T, cfg Config) *Supervisor {
	t.Helper()
	cfg.TempDir = t.TempDir()
	cfg.InterpreterCmd = []string{"sh"}
	return NewSupervisor(cfg)
}

func pollUntil(t *testing.T, sv *Supervisor, id string, timeout time.Duration, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last Snapshot
	for time.Now().Before(deadline) {
		snap, err := sv.Status(id)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		last = snap
		if pred(snap) {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s, last snapshot: %+v", timeout, last)
	return last
}

func TestSupervisorHelloWorld(t *testing.T) {
	sv := testSupervisor(t, Config{})
	snap, err := sv.startFromTarget(context.Background(), `print("Molo")`, "echo Molo\n", map[int]int{1: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	final := pollUntil(t, sv, snap.SessionID, 5*time.Second, func(s Snapshot) bool { return s.Completed })
	if final.Error != nil {
		t.Fatalf("expected no error, got %q", *final.Error)
	}
	if !strings.Contains(final.Output, "Molo") {
		t.Fatalf("expected output to contain Molo, got %q", final.Output)
	}
	if sv.Len() != 0 {
		t.Fatalf("expected the registry to have deregistered the completed session")
	}
}

func TestSupervisorInteractiveInput(t *testing.T) {
	sv := testSupervisor(t, Config{})
	script := "echo '>>>Enter your name: '\nread name\necho \"$name\"\n"

	snap, err := sv.startFromTarget(context.Background(), "igama = input(...)", script, map[int]int{1: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	waiting := pollUntil(t, sv, snap.SessionID, 5*time.Second, func(s Snapshot) bool { return s.WaitingForInput })
	if waiting.Prompt != "Enter your name: " {
		t.Fatalf("unexpected prompt: %q", waiting.Prompt)
	}

	after, err := sv.SupplyInput(snap.SessionID, "Thandiwe")
	if err != nil {
		t.Fatalf("supply input: %v", err)
	}
	if !after.Completed {
		after = pollUntil(t, sv, snap.SessionID, 5*time.Second, func(s Snapshot) bool { return s.Completed })
	}
	if !strings.Contains(after.Output, "Thandiwe") {
		t.Fatalf("expected echoed input in output, got %q", after.Output)
	}
}

func TestSupervisorDebugStepping(t *testing.T) {
	sv := testSupervisor(t, Config{})
	script := "echo 'D-D-D:LINE:1'\n" +
		"echo \"D-D-D:VARS:{'x': 1}\"\n" +
		"echo 'D-D-D:STEP'\n" +
		"read _\n" +
		"echo done\n"

	snap, err := sv.startFromTarget(context.Background(), "x = 1", script, map[int]int{1: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	paused := pollUntil(t, sv, snap.SessionID, 5*time.Second, func(s Snapshot) bool { return s.WaitingForDebugStep })
	if paused.CurrentLine != 1 {
		t.Fatalf("expected current line 1, got %d", paused.CurrentLine)
	}
	if paused.Variables["x"] != int64(1) {
		t.Fatalf("expected x=1, got %v (%T)", paused.Variables["x"], paused.Variables["x"])
	}
	if strings.Contains(paused.Output, "D-D-D:") {
		t.Fatalf("debug markers leaked into filtered output: %q", paused.Output)
	}

	resumed, err := sv.SupplyInput(snap.SessionID, "")
	if err != nil {
		t.Fatalf("resume step: %v", err)
	}
	if !resumed.Completed {
		resumed = pollUntil(t, sv, snap.SessionID, 5*time.Second, func(s Snapshot) bool { return s.Completed })
	}
	if !strings.Contains(resumed.Output, "done") {
		t.Fatalf("expected output to contain done, got %q", resumed.Output)
	}
}

func TestSupervisorIdleTimeoutKillsInfiniteLoop(t *testing.T) {
	clock := newFakeClock()
	sv := testSupervisor(t, Config{IdleBudget: 10 * time.Second, Now: clock.now})
	script := "while true; do echo x; sleep 0.01; done\n"

	snap, err := sv.startFromTarget(context.Background(), "ngexesha Inyaniso:\n    print(1)\n", script, map[int]int{1: 1, 2: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Let the script produce at least one line before evaluating idleness.
	pollUntil(t, sv, snap.SessionID, 5*time.Second, func(s Snapshot) bool { return strings.Contains(s.Output, "x") })

	clock.advance(11 * time.Second)
	killed, err := sv.Status(snap.SessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !killed.Completed {
		t.Fatalf("expected idle session to be reported completed/killed")
	}
	if killed.Error == nil || *killed.Error != "[Timeout]" {
		t.Fatalf("expected a [Timeout] error, got %v", killed.Error)
	}
	if killed.Code == "" {
		t.Fatalf("expected the original source to be returned alongside a timeout")
	}
	if sv.Len() != 0 {
		t.Fatalf("expected the killed session to be deregistered")
	}
}

// TestIdleTimeoutSnapshotStableAcrossRepeatedClassify guards against a
// classify() call after the kill-by-timeout side effects have already run
// (cleanupLocked, state=Killed) reporting a different snapshot than the one
// returned inline from the kill itself: a session whose child wrote to
// stderr before going idle must still report [Timeout]+Code on every
// subsequent call, not the buffered stderr.
func TestIdleTimeoutSnapshotStableAcrossRepeatedClassify(t *testing.T) {
	clock := newFakeClock()
	sv := testSupervisor(t, Config{IdleBudget: 10 * time.Second, Now: clock.now})
	script := "echo boom 1>&2\nwhile true; do sleep 0.01; done\n"

	snap, err := sv.startFromTarget(context.Background(), "ngexesha Inyaniso:\n    print(1)\n", script, map[int]int{1: 1, 2: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	sess := sv.registry.get(snap.SessionID)
	if sess == nil {
		t.Fatalf("expected the freshly started session to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		sess.mu.Lock()
		n := len(sess.errBuf)
		sess.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for the child's stderr line to arrive")
		}
		time.Sleep(10 * time.Millisecond)
	}

	clock.advance(11 * time.Second)

	first := sess.classify()
	if first.Error == nil || *first.Error != "[Timeout]" {
		t.Fatalf("first classify: expected [Timeout], got %v", first.Error)
	}
	if first.Code == "" {
		t.Fatalf("first classify: expected the original source in Code")
	}

	second := sess.classify()
	if second.Error == nil || *second.Error != "[Timeout]" {
		t.Fatalf("second classify: expected [Timeout], got %v (stderr must not leak into Error once timedOut)", second.Error)
	}
	if second.Code != first.Code {
		t.Fatalf("second classify: Code = %q, want %q (same terminal state must yield the same snapshot)", second.Code, first.Code)
	}
}

func TestSupervisorRejectsForeignKeyword(t *testing.T) {
	sv := testSupervisor(t, Config{})
	_, err := sv.Start(context.Background(), "if x is 1:\n    print(x)\n", ModeInteractive)
	if err == nil {
		t.Fatalf("expected a foreign-keyword rejection")
	}
	var tErr *transpile.Error
	if !errors.As(err, &tErr) {
		t.Fatalf("expected a *transpile.Error, got %T", err)
	}
	if sv.Len() != 0 {
		t.Fatalf("a rejected program must never be registered as a session")
	}
}

func TestSupervisorStatusMissingSession(t *testing.T) {
	sv := testSupervisor(t, Config{})
	if _, err := sv.Status("does-not-exist"); err == nil {
		t.Fatalf("expected an error for an unknown session id")
	}
}

func TestSupervisorKillIsIdempotent(t *testing.T) {
	sv := testSupervisor(t, Config{})
	snap, err := sv.startFromTarget(context.Background(), `print("Molo")`, "echo Molo\n", map[int]int{1: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sv.Kill(snap.SessionID); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := sv.Kill(snap.SessionID); err != nil {
		t.Fatalf("second kill should be a no-op, got %v", err)
	}
	if err := sv.Kill("never-existed"); err != nil {
		t.Fatalf("killing an unknown session should be a no-op, got %v", err)
	}
}
