// Package translate remaps target-line numbers in raw error text back to
// source lines and forwards the result to an LLM collaborator for
// isiXhosa paraphrase (§4.C). The translator is non-deterministic by
// design; callers must treat its result as opaque display text.
package translate

import (
	"context"
	"regexp"
	"strconv"

	"github.com/isipython-edu/isipython-core/internal/core"
)

// TimeoutFallback is the hard-coded isiXhosa diagnostic returned when the
// LLM collaborator fails while explaining a timeout termination.
const TimeoutFallback = "Ikhowudi yakho ithathe ixesha elide kakhulu ukusebenza. " +
	"Jonga imijikelezo (loops) yakho ukuba ayiyi kuphela, okanye ukuba ikhowudi yakho ayenzi umsebenzi ongapheliyo."

var lineNumberRE = regexp.MustCompile(`line (\d+)`)

// RemapLines rewrites every "line N" occurrence in text using lineMap; a
// number with no preimage is left unchanged. Idempotent when applied twice
// with the same map: each match is resolved to its fixed point under
// lineMap (see resolveLine), so the value substituted back in is never
// itself looked up again by a later call.
func RemapLines(text string, lineMap map[int]int) string {
	if len(lineMap) == 0 {
		return text
	}
	return lineNumberRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := lineNumberRE.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			return m
		}
		return "line " + strconv.Itoa(resolveLine(n, lineMap))
	})
}

// resolveLine follows lineMap from n to its fixed point: the debug
// instrumentation line maps this package sees can chain a target line
// through several collapsed source positions (e.g. a prompt-splitting pass
// composed with a debug-marker pass), and resolving the whole chain in one
// call is what keeps RemapLines idempotent — the returned value is either
// absent from lineMap or maps to itself, so a second pass over the result
// never finds anything left to substitute. Bounded by len(lineMap) hops so
// a malformed cyclic map cannot spin forever.
func resolveLine(n int, lineMap map[int]int) int {
	for hops := 0; hops < len(lineMap); hops++ {
		orig, ok := lineMap[n]
		if !ok || orig == n {
			return n
		}
		n = orig
	}
	return n
}

// Diagnostic translates a runtime error produced by the child interpreter
// into isiXhosa, remapping line numbers first.
func Diagnostic(ctx context.Context, t core.Translator, rawError string, lineMap map[int]int) (string, error) {
	remapped := RemapLines(rawError, lineMap)
	return t.TranslateError(ctx, remapped)
}

// TimeoutDiagnostic translates a timeout termination into an isiXhosa hint
// about likely infinite-loop patterns, falling back to a hard-coded
// isiXhosa sentence if the collaborator errors.
func TimeoutDiagnostic(ctx context.Context, t core.Translator, originalSource string) string {
	msg, err := t.TranslateTimeout(ctx, originalSource)
	if err != nil || msg == "" {
		return TimeoutFallback
	}
	return msg
}
