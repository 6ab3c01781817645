package manager

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"ssh-connect-fast/pkg/fastpath"
)

// FastHostLine is one "Host .fast ..." line of an ssh config file.
type FastHostLine struct {
	// Source is the file path the line came from.
	Source string

	// Line is the 1-based line number in Source.
	Line int

	// Hosts are the space-separated tokens after the marker, in order.
	Hosts []string

	// Suspect lists tokens that look like ssh Host patterns or carry
	// control characters (a tab, a CR from CRLF line endings). The trampoline
	// compares tokens byte for byte, so these rarely match what users type.
	Suspect []string
}

// LoadFastHosts reads every marker line of the ssh config at path.
//
// Notes:
// - Lines are read whole; this is for inspection, not for the hot path.
// - Leading spaces before the marker are accepted, as the trampoline does.
// - Tokens are split on spaces only; tabs, CRs and comments stay part of a token.
// - Include directives are not followed (the trampoline does not follow them).
func LoadFastHosts(path string) ([]FastHostLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ssh config %s: %w", path, err)
	}
	defer f.Close()

	var out []FastHostLine
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	sc.Split(scanRawLines)
	n := 0
	for sc.Scan() {
		n++
		rest, ok := strings.CutPrefix(strings.TrimLeft(sc.Text(), " "), fastpath.Marker)
		if !ok {
			continue
		}
		entry := FastHostLine{Source: path, Line: n}
		for _, tok := range strings.Split(rest, " ") {
			if tok == "" {
				continue
			}
			entry.Hosts = append(entry.Hosts, tok)
			if !isLiteralHostPattern(tok) || strings.ContainsAny(tok, "\r\x00") {
				entry.Suspect = append(entry.Suspect, tok)
			}
		}
		out = append(out, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ssh config %s: %w", path, err)
	}
	return out, nil
}

// FastHostNames flattens lines into a de-duplicated host list, in file order.
func FastHostNames(lines []FastHostLine) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lines {
		for _, h := range l.Hosts {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// scanRawLines is bufio.ScanLines without the CR stripping.
func scanRawLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func isLiteralHostPattern(p string) bool {
	// OpenSSH supports patterns with '*', '?', '[]' and negation with '!'.
	// We'll consider it literal if none of those pattern metacharacters are present
	// and it doesn't start with '!'.
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "!") {
		return false
	}
	if strings.ContainsAny(p, "*?[]") {
		return false
	}
	if strings.IndexFunc(p, func(r rune) bool { return r == ' ' || r == '\t' }) >= 0 {
		return false
	}
	return true
}
