package session

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/isipython-edu/isipython-core/internal/process"
	"github.com/isipython-edu/isipython-core/internal/util"
)

const promptMarkerPrefix = ">>>"
const debugMarkerPrefix = "D-D-D:"
const debugStepLine = "D-D-D:STEP"
const debugLinePrefix = "D-D-D:LINE:"
const debugVarsPrefix = "D-D-D:VARS:"

// Session owns a child interpreter process with three piped streams, a
// bounded output buffer, an append-only error buffer, a current-prompt
// cache, and the lifecycle state machine of §3. One mutex (mu) guards the
// fields mutated by both the aggregator goroutine and the caller of
// Status/SupplyInput, matching the "one mutex per session" policy of §5.
type Session struct {
	ID  string
	cfg Config

	registry *Registry

	mu           sync.Mutex
	state        State
	output       *lineBuffer
	errBuf       []string
	promptCache  string
	lastActivity time.Time
	exited       bool
	exitCode     int
	timedOut     bool

	child          *process.Child
	tempFile       string
	originalSource string
	targetSource   string
	lineMap        map[int]int

	done chan struct{}
}

func newSession(id string, cfg Config, registry *Registry, child *process.Child, tempFile, original, target string, lineMap map[int]int) *Session {
	s := &Session{
		ID:             id,
		cfg:            cfg,
		registry:       registry,
		state:          Running,
		output:         newLineBuffer(cfg.OutputBufferLines),
		lastActivity:   cfg.Now(),
		child:          child,
		tempFile:       tempFile,
		originalSource: original,
		targetSource:   target,
		lineMap:        lineMap,
		done:           make(chan struct{}),
	}
	go s.aggregate()
	return s
}

// aggregate is the session's pair of stream monitors (§4.D), folded into
// one goroutine because process.Child already separates stdout and stderr
// at the source; this loop never merges them, it only routes by Event.Type.
func (s *Session) aggregate() {
	defer close(s.done)
	for ev := range s.child.Events() {
		switch ev.Type {
		case process.EventStdout:
			s.handleStdout(ev.Line)
		case process.EventStderr:
			s.handleStderr(ev.Line)
		case process.EventExit:
			s.handleExit(ev.Code)
		}
	}
}

func (s *Session) handleStdout(line string) {
	line = util.StripANSI(line)
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.HasPrefix(line, promptMarkerPrefix) {
		s.promptCache = strings.TrimPrefix(line, promptMarkerPrefix)
		s.output.Append(s.promptCache)
		return
	}
	s.output.Append(line)
}

func (s *Session) handleStderr(line string) {
	line = util.StripANSI(line)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errBuf = append(s.errBuf, line)
}

func (s *Session) handleExit(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exited = true
	s.exitCode = code
}

// classify implements the five-step state classification of §4.D, in
// order: exit, debug-step, input-wait, idle-timeout, running. It mutates
// lifecycle state and performs terminal cleanup as a side effect.
func (s *Session) classify() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Completed || s.state == Killed {
		return s.terminalSnapshotLocked()
	}

	if s.exited {
		s.state = Completed
		s.cleanupLocked(false)
		return s.terminalSnapshotLocked()
	}

	raw := s.output.All()
	last := ""
	if len(raw) > 0 {
		last = raw[len(raw)-1]
	}

	if last == debugStepLine {
		s.state = WaitingForDebugStep
		s.lastActivity = s.cfg.Now()
		line, vars := scanDebugMarkers(raw)
		return Snapshot{
			SessionID:           s.ID,
			Output:              filterOutput(raw),
			WaitingForDebugStep: true,
			CurrentLine:         line,
			Variables:           vars,
		}
	}

	if s.promptCache != "" && last == s.promptCache {
		s.state = WaitingForInput
		s.lastActivity = s.cfg.Now()
		return Snapshot{
			SessionID:       s.ID,
			Output:          filterOutput(raw),
			WaitingForInput: true,
			Prompt:          s.promptCache,
		}
	}

	if s.cfg.Now().Sub(s.lastActivity) > s.cfg.IdleBudget {
		s.state = Killed
		s.timedOut = true
		s.cleanupLocked(true)
		errMsg := "[Timeout]"
		return Snapshot{
			SessionID:   s.ID,
			Completed:   true,
			Output:      filterOutput(raw),
			Error:       &errMsg,
			LineMapping: s.lineMap,
			Code:        s.originalSource,
		}
	}

	s.state = Running
	return Snapshot{SessionID: s.ID, Output: filterOutput(raw), StillRunning: true}
}

// terminalSnapshotLocked builds the snapshot for a session already in a
// terminal state; callers must hold mu.
func (s *Session) terminalSnapshotLocked() Snapshot {
	raw := s.output.All()
	snap := Snapshot{
		SessionID:   s.ID,
		Completed:   true,
		Output:      filterOutput(raw),
		LineMapping: s.lineMap,
	}
	if s.timedOut {
		msg := "[Timeout]"
		snap.Error = &msg
		snap.Code = s.originalSource
		return snap
	}
	if len(s.errBuf) > 0 {
		joined := strings.Join(s.errBuf, "\n")
		snap.Error = &joined
	}
	return snap
}

// cleanupLocked force-kills the child (idempotent if already exited),
// removes the temp file, and deregisters the session. killChild is false
// when the exit was already observed (no need to signal a dead process).
func (s *Session) cleanupLocked(killChild bool) {
	if killChild {
		_ = s.child.Kill()
	}
	if s.tempFile != "" {
		_ = removeFile(s.tempFile)
		s.tempFile = ""
	}
	if s.registry != nil {
		s.registry.delete(s.ID)
	}
}

func scanDebugMarkers(raw []string) (int, map[string]any) {
	var lineNum int
	var vars map[string]any
	foundLine, foundVars := false, false
	for i := len(raw) - 1; i >= 0 && !(foundLine && foundVars); i-- {
		l := raw[i]
		switch {
		case !foundVars && strings.HasPrefix(l, debugVarsPrefix):
			vars = parseVarsSnapshot(strings.TrimPrefix(l, debugVarsPrefix))
			foundVars = true
		case !foundLine && strings.HasPrefix(l, debugLinePrefix):
			if n, err := strconv.Atoi(strings.TrimPrefix(l, debugLinePrefix)); err == nil {
				lineNum = n
			}
			foundLine = true
		}
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return lineNum, vars
}

// filterOutput strips debugger-only "D-D-D:*" lines from the raw buffer —
// they must never reach the student (§4.D status snapshot).
func filterOutput(raw []string) string {
	var b strings.Builder
	first := true
	for _, l := range raw {
		if strings.HasPrefix(l, debugMarkerPrefix) {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		b.WriteString(l)
		first = false
	}
	return b.String()
}
