package manager

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"ssh-connect-fast/pkg/fastpath"
)

// Explanation is a printable account of what the trampoline would do for one
// invocation.
type Explanation struct {
	Case         string      `json:"case" yaml:"case"`
	Host         string      `json:"host,omitempty" yaml:"host,omitempty"`
	ConfigFile   string      `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	Matched      bool        `json:"matched" yaml:"matched"`
	Args         []string    `json:"args" yaml:"args"`
	EnvRewritten bool        `json:"env_rewritten" yaml:"env_rewritten"`
	EnvChanges   []EnvChange `json:"env_changes,omitempty" yaml:"env_changes,omitempty"`
	Self         string      `json:"self,omitempty" yaml:"self,omitempty"`
	Candidates   []string    `json:"candidates" yaml:"candidates"`
}

// EnvChange describes one agent variable before and after the decision. A nil
// value means unset.
type EnvChange struct {
	Name   string  `json:"name" yaml:"name"`
	Before *string `json:"before" yaml:"before"`
	After  *string `json:"after" yaml:"after"`
}

// Explain runs the trampoline's decision for args/env without executing
// anything. self is the path PATH search would skip.
func Explain(args []string, env fastpath.Env, self string) Explanation {
	d := fastpath.Decide(args, env)
	e := Explanation{
		Case:         d.Case.String(),
		Host:         d.Host,
		ConfigFile:   d.ConfigFile,
		Matched:      d.Matched,
		Args:         d.Args,
		EnvRewritten: d.EnvRewritten,
		Self:         self,
	}
	for _, name := range []string{fastpath.AgentSockVar, fastpath.FastAgentSockVar} {
		before := lookupPtr(env, name)
		after := lookupPtr(d.Env, name)
		if ptrEqual(before, after) {
			continue
		}
		e.EnvChanges = append(e.EnvChanges, EnvChange{Name: name, Before: before, After: after})
	}
	pathList, ok := d.Env.Lookup("PATH")
	if !ok {
		pathList = fastpath.DefaultPath
	}
	e.Candidates = slices.Collect(fastpath.Candidates(pathList, fastpath.SSHProgram, self))
	return e
}

// WriteJSON writes e as indented JSON.
func (e Explanation) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// WriteYAML writes e as YAML.
func (e Explanation) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(e); err != nil {
		return err
	}
	return enc.Close()
}

// WriteText writes a human readable summary.
func (e Explanation) WriteText(w io.Writer, th Theme) error {
	var b strings.Builder
	caseStyle := th.Dim
	if e.Case == fastpath.CaseFastPath.String() || (e.Case == fastpath.CaseRecursive.String() && e.EnvRewritten) {
		caseStyle = th.Success
	}
	fmt.Fprintf(&b, "%s %s\n", th.Paint(th.Header, "case:"), th.Paint(caseStyle, e.Case))
	if e.Host != "" {
		fmt.Fprintf(&b, "%s %s\n", th.Paint(th.Header, "host:"), e.Host)
	} else {
		fmt.Fprintf(&b, "%s %s\n", th.Paint(th.Header, "host:"), th.Paint(th.Dim, "(none)"))
	}
	if e.ConfigFile != "" {
		fmt.Fprintf(&b, "%s %s (matched: %v)\n", th.Paint(th.Header, "config:"), e.ConfigFile, e.Matched)
	}
	fmt.Fprintf(&b, "%s %s\n", th.Paint(th.Header, "argv:"), th.Paint(th.Accent, shellJoin(e.Args)))
	for _, c := range e.EnvChanges {
		fmt.Fprintf(&b, "%s %s: %s -> %s\n", th.Paint(th.Header, "env:"), c.Name, showPtr(c.Before), showPtr(c.After))
	}
	fmt.Fprintf(&b, "%s\n", th.Paint(th.Header, "ssh candidates:"))
	if len(e.Candidates) == 0 {
		fmt.Fprintf(&b, "  %s\n", th.Paint(th.Error, "(none: ssh-connect-fast would exit with status 121)"))
	}
	for _, c := range e.Candidates {
		fmt.Fprintf(&b, "  %s\n", c)
	}
	if e.Self != "" {
		fmt.Fprintf(&b, "  %s\n", th.Paint(th.Dim, "skipped: "+e.Self))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func lookupPtr(env fastpath.Env, name string) *string {
	if v, ok := env.Lookup(name); ok {
		return &v
	}
	return nil
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func showPtr(p *string) string {
	if p == nil {
		return "(unset)"
	}
	return *p
}

// shellJoin quotes args for display in a POSIX shell.
func shellJoin(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, shellEscapeForSh(a))
	}
	return strings.Join(quoted, " ")
}

// shellEscapeForSh escapes a single string for safe inclusion in a `sh`/`bash` command line.
// Uses single-quote escaping when needed: 'foo bar', and internal ' becomes '"'"'.
func shellEscapeForSh(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, isShellSpecial) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func isShellSpecial(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '"', '\'', '\\', '$', '`', '&', '|', ';', '<', '>', '(', ')', '{', '}', '*', '?', '!', '~', '#':
		return true
	default:
		return false
	}
}
