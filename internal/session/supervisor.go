package session

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/isipython-edu/isipython-core/internal/core"
	"github.com/isipython-edu/isipython-core/internal/process"
	"github.com/isipython-edu/isipython-core/internal/transpile"
	"github.com/isipython-edu/isipython-core/internal/util"
)

// Supervisor is the public entry point for §4.D: it transpiles source,
// spawns a supervised child, and exposes Start/Status/SupplyInput/Kill.
// It never talks to a Translator (§7); diagnostic translation happens at
// the caller's boundary, using the LineMapping this package returns.
type Supervisor struct {
	registry *Registry
	cfg      Config
}

func NewSupervisor(cfg Config) *Supervisor {
	return &Supervisor{registry: NewRegistry(), cfg: cfg.withDefaults()}
}

// Len reports the number of in-flight sessions (metrics/tests).
func (sv *Supervisor) Len() int { return sv.registry.Len() }

// Start transpiles source under mode, spawns the interpreter against the
// transpiled file, and registers a new session. A *transpile.Error aborts
// before any process is spawned or registered (§4.D step 1).
func (sv *Supervisor) Start(ctx context.Context, source string, mode Mode) (Snapshot, error) {
	tmode := transpile.Mode{Debug: mode == ModeDebug}
	result, err := transpile.Transpile(source, tmode)
	if err != nil {
		return Snapshot{}, err
	}
	return sv.startFromTarget(ctx, source, result.Target, result.LineMap)
}

// startFromTarget spawns the interpreter against already-transpiled target
// source and registers a new session. Split out from Start so tests can
// drive the supervisor with a scripted fixture without the transpiler's
// target-language assumptions.
func (sv *Supervisor) startFromTarget(ctx context.Context, original, target string, lineMap map[int]int) (Snapshot, error) {
	id := uuid.NewString()
	tempFile, writeErr := sv.writeTempFile(id, target)
	if writeErr != nil {
		return Snapshot{}, core.ErrTranspileIO(id, writeErr)
	}

	argv := append(append([]string{}, sv.cfg.InterpreterCmd...), tempFile)
	child, startErr := process.Start(ctx, argv)
	if startErr != nil {
		_ = removeFile(tempFile)
		return Snapshot{}, core.ErrChildSpawnFailed(id, startErr)
	}

	sess := newSession(id, sv.cfg, sv.registry, child, tempFile, original, target, lineMap)
	sv.registry.put(sess)

	return sess.classify(), nil
}

// Status polls a session without supplying input.
func (sv *Supervisor) Status(id string) (Snapshot, error) {
	sess := sv.registry.get(id)
	if sess == nil {
		return Snapshot{}, core.ErrSessionMissing(id)
	}
	return sess.classify(), nil
}

// SupplyInput writes one line to the child's stdin, clears the prompt
// cache, and reports the session's state after a short courtesy sleep
// (§4.D: give the child time to consume the line before reclassifying).
// A per-session gate keeps two callers from interleaving writes to the same
// stdin: a call made while another is in flight for the same session is
// rejected with ProcessNotRunning rather than queued.
func (sv *Supervisor) SupplyInput(id, line string) (Snapshot, error) {
	sess := sv.registry.get(id)
	if sess == nil {
		return Snapshot{}, core.ErrSessionMissing(id)
	}

	gate := util.GetGate(id)
	if !gate.TryEnter() {
		return Snapshot{}, core.ErrProcessNotRunning(id)
	}
	defer gate.Leave()

	sess.mu.Lock()
	if sess.state == Completed || sess.state == Killed {
		sess.mu.Unlock()
		return sess.classify(), core.ErrProcessNotRunning(id)
	}
	child := sess.child
	sess.promptCache = ""
	sess.lastActivity = sess.cfg.Now()
	sess.mu.Unlock()

	if err := child.WriteLine(line); err != nil {
		return Snapshot{}, core.ErrProcessNotRunning(id)
	}

	time.Sleep(sv.cfg.InputCourtesySleep)
	return sess.classify(), nil
}

// Kill force-terminates a session, if it still exists. Killing an unknown
// or already-terminal session is a no-op, matching the teacher's
// cancel-is-idempotent precedent.
func (sv *Supervisor) Kill(id string) error {
	sess := sv.registry.get(id)
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	if sess.state == Completed || sess.state == Killed {
		sess.mu.Unlock()
		return nil
	}
	sess.state = Killed
	sess.cleanupLocked(true)
	sess.mu.Unlock()
	return nil
}

func (sv *Supervisor) writeTempFile(id, target string) (string, error) {
	dir := sv.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := util.SafeFilename(id) + ".py"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(target), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func removeFile(path string) error {
	return os.Remove(path)
}
