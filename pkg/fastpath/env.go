package fastpath

import "strings"

const (
	// FastAgentSockVar names the pre-warmed agent socket exported by the user.
	FastAgentSockVar = "SSH_AUTH_SOCK_FAST"
	// AgentSockVar is the variable ssh reads to find the agent.
	AgentSockVar = "SSH_AUTH_SOCK"
)

// EnvVar is one environment entry. Entries without '=' keep NoValue set so
// they serialize back unchanged.
type EnvVar struct {
	Name    string
	Value   string
	NoValue bool
}

func (v EnvVar) String() string {
	if v.NoValue {
		return v.Name
	}
	return v.Name + "=" + v.Value
}

// Env is an ordered environment, as passed to execve.
type Env []EnvVar

// ParseEnv converts "NAME=VALUE" strings (as returned by os.Environ) to an Env.
func ParseEnv(environ []string) Env {
	env := make(Env, 0, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		env = append(env, EnvVar{Name: name, Value: value, NoValue: !ok})
	}
	return env
}

// Strings serializes env back to "NAME=VALUE" form.
func (e Env) Strings() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.String()
	}
	return out
}

// Lookup returns the value of the first entry named name.
func (e Env) Lookup(name string) (string, bool) {
	for _, v := range e {
		if v.Name == name && !v.NoValue {
			return v.Value, true
		}
	}
	return "", false
}

// RewriteAgentSocket renames SSH_AUTH_SOCK_FAST to SSH_AUTH_SOCK.
//
// Rules:
// - without SSH_AUTH_SOCK_FAST, env is returned as is
// - the first SSH_AUTH_SOCK_FAST entry with a value becomes SSH_AUTH_SOCK in the same position
// - any other SSH_AUTH_SOCK or SSH_AUTH_SOCK_FAST entry is dropped, bare ones included
// - unrelated entries keep their relative order
//
// The input is never modified.
func RewriteAgentSocket(env Env) Env {
	if _, ok := env.Lookup(FastAgentSockVar); !ok {
		return env
	}
	out := make(Env, 0, len(env))
	renamed := false
	for _, v := range env {
		switch {
		case v.Name == FastAgentSockVar:
			if !renamed && !v.NoValue {
				out = append(out, EnvVar{Name: AgentSockVar, Value: v.Value})
				renamed = true
			}
		case v.Name == AgentSockVar:
			// superseded by the fast socket
		default:
			out = append(out, v)
		}
	}
	return out
}
