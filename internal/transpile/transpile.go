// Package transpile turns isiXhosa source into target-language source plus
// a line map, by pure lexical substitution — no parsing of the source
// language. See spec §4.B.
package transpile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/isipython-edu/isipython-core/internal/keyword"
)

// ErrorKind enumerates the transpiler's one failure mode.
type ErrorKind string

const ForeignKeyword ErrorKind = "ForeignKeyword"

// Error is returned when phase 1 validation rejects the program.
type Error struct {
	Kind                 ErrorKind
	Line                 int
	ForeignLexeme        string // the target-language keyword the student wrote
	SuggestedReplacement string // the source-language keyword they should use instead
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %q is a reserved word in the target language; use %q instead",
		e.Line, e.ForeignLexeme, e.SuggestedReplacement)
}

// Mode selects the optional transpiler passes.
type Mode struct {
	// Debug instruments every statement with step/variable markers (§4.B phase 4).
	Debug bool
	// Challenge suppresses the ">>>" prompt marker (§4.B phase 3).
	Challenge bool
}

// Result is the immutable transpilation artifact: target source plus a
// total, monotonically non-decreasing map from target line to source line.
type Result struct {
	Target  string
	LineMap map[int]int
}

const promptMarker = ">>>"

var (
	inputPromptRE   = regexp.MustCompile(`input\s*\(\s*("[^"]*"|'[^']*')\s*\)`)
	debugPauseRE    = regexp.MustCompile(`debug_pause\(\)`)
	stringLiteralRE = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)

	controlHeaders = map[string]bool{
		"if": true, "elif": true, "else": true, "try": true, "except": true,
		"finally": true, "for": true, "while": true, "def": true, "class": true,
		"with": true,
	}
	exitStatements = map[string]bool{
		"return": true, "break": true, "continue": true, "raise": true,
	}
)

// Transpile runs all four phases and returns the target source + line map,
// or a *Error from phase 1. Phases 2-4 are total.
func Transpile(source string, mode Mode) (Result, error) {
	lines := splitLines(source)

	if err := validateNoForeignKeywords(lines); err != nil {
		return Result{}, err
	}

	// Phase 2: keyword substitution, one output line per source line.
	substituted := make([]string, len(lines))
	lineMap := make(map[int]int, len(lines))
	for i, line := range lines {
		code, comment, hasComment := splitCommentAware(line)
		code = substituteKeywords(code)
		if hasComment {
			substituted[i] = code + "#" + comment
		} else {
			substituted[i] = code
		}
		lineMap[i+1] = i + 1
	}

	out := substituted
	if mode.Debug {
		out, lineMap = instrumentDebug(out, lineMap)
	}

	out, lineMap = splitPrompts(out, lineMap, mode)

	if mode.Debug {
		for i, l := range out {
			out[i] = debugPauseRE.ReplaceAllString(l, `input("")`)
		}
	}

	return Result{Target: strings.Join(out, "\n"), LineMap: lineMap}, nil
}

func splitLines(source string) []string {
	return strings.Split(source, "\n")
}

// validateNoForeignKeywords implements phase 1: reject any target-language
// keyword appearing as a standalone word in code position.
func validateNoForeignKeywords(lines []string) error {
	for i, line := range lines {
		code, _, _ := splitCommentAware(line)

		bestIdx := -1
		var bestEntry keyword.Entry
		for _, e := range keyword.Table {
			re, ok := keyword.TargetWordRegexp(e.Target)
			if !ok {
				continue
			}
			loc := re.FindStringIndex(code)
			if loc == nil {
				continue
			}
			if bestIdx == -1 || loc[0] < bestIdx {
				bestIdx = loc[0]
				bestEntry = e
			}
		}
		if bestIdx >= 0 {
			return &Error{
				Kind:                 ForeignKeyword,
				Line:                 i + 1,
				ForeignLexeme:        bestEntry.Target,
				SuggestedReplacement: bestEntry.Source,
			}
		}
	}
	return nil
}

// substituteKeywords rewrites every source-language keyword in code (not
// comment) position to its target equivalent, at word boundaries, in the
// canonical casing only.
func substituteKeywords(code string) string {
	sub := func(s string) string {
		for _, e := range keyword.Table {
			if re, ok := keyword.SourceWordRegexp(e.Source); ok {
				s = re.ReplaceAllString(s, e.Target)
			}
		}
		return s
	}
	// String literals are copied verbatim; only the text between them is rewritten.
	var b strings.Builder
	last := 0
	for _, loc := range stringLiteralRE.FindAllStringIndex(code, -1) {
		b.WriteString(sub(code[last:loc[0]]))
		b.WriteString(code[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(sub(code[last:]))
	return b.String()
}

// splitCommentAware returns the code part and comment part (without the
// leading '#') of a line, splitting at the first '#' that is not inside a
// quoted string literal. hasComment is false when no such '#' exists.
func splitCommentAware(line string) (code, comment string, hasComment bool) {
	var quote byte
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '#':
			return line[:i], line[i+1:], true
		}
	}
	return line, "", false
}

// instrumentDebug implements phase 4: insert LINE/VARS/STEP markers around
// every instrumentable statement.
func instrumentDebug(lines []string, existing map[int]int) ([]string, map[int]int) {
	out := make([]string, 0, len(lines)*2)
	newMap := make(map[int]int, len(lines)*2)
	outLine := 1

	emit := func(text string, src int) {
		out = append(out, text)
		newMap[outLine] = src
		outLine++
	}

	for i, line := range lines {
		src := existing[i+1]
		stripped := strings.TrimSpace(line)

		if stripped == "" || strings.HasPrefix(stripped, "#") {
			emit(line, src)
			continue
		}
		if isControlHeader(stripped) {
			emit(line, src)
			continue
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

		emit(fmt.Sprintf(`%sprint("D-D-D:LINE:%d")`, indent, src), src)
		emit(line, src)

		if !isExitStatement(stripped) {
			emit(indent+`print("D-D-D:VARS:" + str({k: v for k, v in locals().items() if not k.startswith("__") and type(v) in [int, float, str, bool, list, dict, type(None)]}))`, src)
			emit(indent+`print("D-D-D:STEP")`, src)
			emit(indent+`debug_pause()`, src)
		}
	}
	return out, newMap
}

func firstToken(stripped string) string {
	stripped = strings.TrimSuffix(stripped, ":")
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isControlHeader(stripped string) bool {
	return strings.HasSuffix(stripped, ":") && controlHeaders[firstToken(stripped)]
}

func isExitStatement(stripped string) bool {
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return false
	}
	return exitStatements[fields[0]]
}

// splitPrompts implements phase 3: split input("P") into a preceding
// print() of the (possibly marked) prompt text and a bare input("").
func splitPrompts(lines []string, existing map[int]int, mode Mode) ([]string, map[int]int) {
	out := make([]string, 0, len(lines)+4)
	newMap := make(map[int]int, len(lines)+4)
	outLine := 1

	marker := promptMarker
	if mode.Challenge {
		marker = ""
	}

	for i, line := range lines {
		src := existing[i+1]
		loc := inputPromptRE.FindStringSubmatchIndex(line)
		if loc == nil {
			out = append(out, line)
			newMap[outLine] = src
			outLine++
			continue
		}

		quote := line[loc[2] : loc[2]+1]
		prompt := line[loc[2]+1 : loc[3]-1]
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

		printLine := fmt.Sprintf(`%sprint(%s%s%s%s)`, indent, quote, marker, prompt, quote)
		newLine := line[:loc[0]] + `input("")` + line[loc[1]:]

		out = append(out, printLine)
		newMap[outLine] = src
		outLine++

		out = append(out, newLine)
		newMap[outLine] = src
		outLine++
	}
	return out, newMap
}
