package util

import "regexp"

// ansiRE matches the CSI escape sequences a Python child can emit on stdout
// or stderr (coloured tracebacks, cursor moves); session classification
// only ever looks at plain text, so these must be gone before a line is
// buffered or checked against the prompt cache.
var ansiRE = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// StripANSI removes common ANSI escape sequences from a child process's
// output line.
func StripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}
