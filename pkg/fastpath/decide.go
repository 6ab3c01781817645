package fastpath

import "strings"

const (
	// SSHProgram is the name searched on PATH for the real client.
	SSHProgram = "ssh"

	// ConfigSuffix is appended to $HOME to locate the user's ssh config.
	ConfigSuffix = "/.ssh/config"

	// MaxArgs bounds the rewritten argument list, program name and the
	// terminating slot of execve included.
	MaxArgs = 256

	// MaxConfigArgLen bounds the constructed "-F<config>" argument,
	// terminator included.
	MaxConfigArgLen = 256
)

// Case identifies which branch Decide took.
type Case int

const (
	// CaseNoMatch: the destination is not a fast host; nothing changes.
	CaseNoMatch Case = iota
	// CasePassthrough: preconditions failed (no HOME, limits exceeded).
	CasePassthrough
	// CaseFastPath: "-F<config>" inserted and the agent socket swapped.
	CaseFastPath
	// CaseRecursive: the arguments already start with "-F<config>", as
	// produced by CaseFastPath in an earlier launcher on PATH.
	CaseRecursive
)

func (c Case) String() string {
	switch c {
	case CaseNoMatch:
		return "no-match"
	case CasePassthrough:
		return "passthrough"
	case CaseFastPath:
		return "fast-path"
	case CaseRecursive:
		return "recursive"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Decide: the argument list and environment to
// hand to ssh, plus what led there.
type Decision struct {
	Case Case

	// Host is the destination hostname, empty when none was found.
	Host string

	// ConfigFile is the config checked for the marker, empty when none was.
	ConfigFile string

	// Matched reports whether Host was found on a marker line in ConfigFile.
	Matched bool

	Args []string
	Env  Env

	// EnvRewritten reports whether SSH_AUTH_SOCK_FAST was renamed.
	EnvRewritten bool
}

// Decide evaluates one ssh invocation. args[0] is the program name. The input
// slices are never modified; a rewrite produces new ones.
func Decide(args []string, env Env) Decision {
	d := Decision{Case: CasePassthrough, Args: args, Env: env}
	if len(args) == 0 {
		return d
	}
	host, hasHost := TargetHost(args[1:])
	if hasHost {
		d.Host = host
	}

	if len(args) > 1 && strings.HasPrefix(args[1], "-F") && len(args[1]) > 2 {
		d.Case = CaseRecursive
		d.ConfigFile = args[1][2:]
		if _, ok := env.Lookup(FastAgentSockVar); ok && hasHost {
			d.Matched = IsFastHost(d.ConfigFile, host)
			if d.Matched {
				d.Env = RewriteAgentSocket(env)
				d.EnvRewritten = true
			}
		}
		return d
	}

	configFile, ok := DefaultConfigFile(env)
	if !ok || len(args) > MaxArgs-2 {
		return d
	}
	d.ConfigFile = configFile

	if !hasHost || !IsFastHost(configFile, host) {
		d.Case = CaseNoMatch
		return d
	}

	d.Case = CaseFastPath
	d.Matched = true
	rewritten := make([]string, 0, len(args)+1)
	rewritten = append(rewritten, args[0], "-F"+configFile)
	rewritten = append(rewritten, args[1:]...)
	d.Args = rewritten
	d.Env = RewriteAgentSocket(env)
	_, d.EnvRewritten = env.Lookup(FastAgentSockVar)
	return d
}

// DefaultConfigFile returns $HOME/.ssh/config from env. It reports false when
// HOME is unset or empty, or when the resulting "-F" argument would exceed
// MaxConfigArgLen.
func DefaultConfigFile(env Env) (string, bool) {
	home, ok := env.Lookup("HOME")
	if !ok || home == "" {
		return "", false
	}
	p := home + ConfigSuffix
	if len("-F")+len(p)+1 > MaxConfigArgLen {
		return "", false
	}
	return p, true
}
