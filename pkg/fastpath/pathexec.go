package fastpath

import (
	"errors"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"
)

const (
	// DefaultPath is searched when PATH is unset (the glibc default).
	DefaultPath = "/bin:/usr/bin"

	// MaxPathLen bounds a candidate path, terminator included. Longer
	// candidates are skipped.
	MaxPathLen = 4096
)

// ErrNotFound is returned by ExecPath when no PATH candidate could be executed.
var ErrNotFound = errors.New("not found in PATH")

// Execer replaces the current process image. It only returns on failure.
type Execer func(path string, argv, envv []string) error

// Option configures ExecPath and Launch.
type Option func(*options)

type options struct {
	exec   Execer
	logger *slog.Logger
	self   string
}

// WithExec overrides the process replacement call (execve by default).
func WithExec(fn Execer) Option {
	return func(o *options) { o.exec = fn }
}

// WithLogger sets the debug logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSelf sets the launcher's own path, which is never executed by Launch.
func WithSelf(path string) Option {
	return func(o *options) { o.self = path }
}

func buildOptions(opts []Option) options {
	o := options{exec: sysExec}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Candidates yields "<dir>/<prog>" for every ':'-separated entry of pathList,
// in order, skipping:
// - entries whose candidate would not fit in MaxPathLen
// - the candidate equal to skip (when skip is not empty)
//
// An empty pathList yields nothing. An empty entry yields "/<prog>", and a
// trailing ':' does not add an entry.
func Candidates(pathList, prog, skip string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := pathList
		for rest != "" {
			dir, tail, found := strings.Cut(rest, ":")
			rest = tail
			if !found {
				rest = ""
			}
			if len(dir)+1+len(prog)+1 > MaxPathLen {
				continue
			}
			candidate := dir + "/" + prog
			if skip != "" && candidate == skip {
				continue
			}
			if !yield(candidate) {
				return
			}
		}
	}
}

// ExecPath searches PATH from env for prog (which must not contain '/') and
// replaces the current process with the first candidate that executes. Any
// exec failure moves on to the next candidate regardless of errno, like the
// libc execvp search. Candidates equal to skip, or resolving to it through
// symlinks, are never executed.
//
// On success ExecPath does not return (a substituted Execer returning nil
// makes it return nil). It returns ErrNotFound once every candidate failed.
func ExecPath(prog, skip string, argv []string, env Env, opts ...Option) error {
	o := buildOptions(opts)
	pathList, ok := env.Lookup("PATH")
	if !ok {
		pathList = DefaultPath
	}
	envv := env.Strings()
	for candidate := range Candidates(pathList, prog, skip) {
		if IsSelf(candidate, skip) {
			o.logger.Debug("skipping self", "candidate", candidate)
			continue
		}
		err := o.exec(candidate, argv, envv)
		if err == nil {
			// Only a substituted Execer can come back without an error.
			return nil
		}
		o.logger.Debug("exec failed", "candidate", candidate, "error", err)
	}
	return ErrNotFound
}

// IsSelf reports whether candidate names the launcher at self, an absolute
// symlink-free path. Relative candidates (from "." or "bin" PATH entries) are
// made absolute against the working directory, before and after symlink
// resolution. An empty self never matches.
func IsSelf(candidate, self string) bool {
	if self == "" {
		return false
	}
	if candidate == self {
		return true
	}
	if abs, err := filepath.Abs(candidate); err == nil && abs == self {
		return true
	}
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(resolved)
	return err == nil && abs == self
}
