package manager

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh/agent"

	"ssh-connect-fast/pkg/fastpath"
)

// CheckStatus is the outcome of one doctor check.
type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckInfo CheckStatus = "info"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// Check is one line of `ssh-fast doctor` output.
type Check struct {
	Name   string
	Status CheckStatus
	Detail string
}

// AgentDialer connects to the agent at socket and returns the number of keys
// it holds.
type AgentDialer func(socket string) (int, error)

// DoctorOptions configures Doctor.
type DoctorOptions struct {
	// Self is the trampoline path skipped by the PATH search.
	Self string

	// SSHConfig is the config file to inspect; empty uses $HOME/.ssh/config.
	SSHConfig string

	// DialAgent overrides the agent key count (CountAgentKeys by default).
	DialAgent AgentDialer
}

const agentDialTimeout = 2 * time.Second

// CountAgentKeys dials the agent socket and lists its keys.
func CountAgentKeys(socket string) (int, error) {
	conn, err := net.DialTimeout("unix", socket, agentDialTimeout)
	if err != nil {
		return 0, fmt.Errorf("dial agent %s: %w", socket, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(agentDialTimeout))
	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return 0, fmt.Errorf("list agent keys: %w", err)
	}
	return len(keys), nil
}

// Doctor inspects the environment the trampoline would run in and reports
// anything that keeps the fast path from working.
func Doctor(env fastpath.Env, opts DoctorOptions) []Check {
	if opts.DialAgent == nil {
		opts.DialAgent = CountAgentKeys
	}
	var checks []Check

	configFile := opts.SSHConfig
	if configFile == "" {
		p, ok := fastpath.DefaultConfigFile(env)
		if !ok {
			checks = append(checks, Check{"home", CheckFail, "HOME is unset or too long; every invocation passes through unchanged"})
		}
		configFile = p
	}
	if configFile != "" {
		checks = append(checks, configChecks(configFile)...)
	}
	checks = append(checks, agentChecks(env, opts.DialAgent)...)
	checks = append(checks, pathChecks(env, opts.Self)...)
	return checks
}

func configChecks(path string) []Check {
	lines, err := LoadFastHosts(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Check{{"ssh config", CheckFail, path + " does not exist"}}
		}
		return []Check{{"ssh config", CheckFail, err.Error()}}
	}
	checks := []Check{{"ssh config", CheckOK, path}}
	hosts := FastHostNames(lines)
	if len(hosts) == 0 {
		checks = append(checks, Check{"fast hosts", CheckWarn, "no " + strings.TrimSpace(fastpath.Marker) + " line lists any host"})
		return checks
	}
	checks = append(checks, Check{"fast hosts", CheckOK, fmt.Sprintf("%d host(s) on %d line(s)", len(hosts), len(lines))})
	for _, l := range lines {
		for _, tok := range l.Suspect {
			checks = append(checks, Check{"fast hosts", CheckWarn,
				fmt.Sprintf("%s:%d: %q is compared literally, not as a pattern", l.Source, l.Line, tok)})
		}
	}
	return checks
}

func agentChecks(env fastpath.Env, dial AgentDialer) []Check {
	fast, ok := env.Lookup(fastpath.FastAgentSockVar)
	if !ok || fast == "" {
		return []Check{{"fast agent", CheckInfo, fastpath.FastAgentSockVar + " is unset; only -F is applied for fast hosts"}}
	}
	n, err := dial(fast)
	if err != nil {
		return []Check{{"fast agent", CheckFail, err.Error()}}
	}
	status := CheckOK
	if n == 0 {
		status = CheckWarn
	}
	checks := []Check{{"fast agent", status, fmt.Sprintf("%s holds %d key(s)", fast, n)}}
	if cur, ok := env.Lookup(fastpath.AgentSockVar); ok && cur == fast {
		checks = append(checks, Check{"fast agent", CheckInfo, fastpath.AgentSockVar + " already points at the fast agent"})
	}
	return checks
}

func pathChecks(env fastpath.Env, self string) []Check {
	pathList, ok := env.Lookup("PATH")
	if !ok {
		pathList = fastpath.DefaultPath
	}
	var checks []Check
	var real string
	for candidate := range fastpath.Candidates(pathList, fastpath.SSHProgram, "") {
		if !isExecutableFile(candidate) {
			continue
		}
		if fastpath.IsSelf(candidate, self) {
			checks = append(checks, Check{"PATH", CheckInfo, candidate + " is this launcher (skipped)"})
			continue
		}
		if real == "" {
			real = candidate
		}
	}
	if real == "" {
		return append(checks, Check{"PATH", CheckFail, "no ssh found on PATH; the launcher would exit with status 121"})
	}
	return append(checks, Check{"PATH", CheckOK, "real ssh: " + real})
}

func isExecutableFile(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}

// WriteChecks prints checks one per line.
func WriteChecks(w io.Writer, checks []Check, th Theme) error {
	var b strings.Builder
	for _, c := range checks {
		style := th.Dim
		switch c.Status {
		case CheckOK:
			style = th.Success
		case CheckWarn:
			style = th.Warn
		case CheckFail:
			style = th.Error
		}
		fmt.Fprintf(&b, "%-5s %-11s %s\n", th.Paint(style, string(c.Status)), c.Name, c.Detail)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Failed reports whether any check failed.
func Failed(checks []Check) bool {
	for _, c := range checks {
		if c.Status == CheckFail {
			return true
		}
	}
	return false
}
