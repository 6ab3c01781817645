package fastpath

import (
	"os"
	"path/filepath"
)

// Launch decides how to run ssh for args/env and replaces the current process
// with the real ssh found on PATH. The launcher's own path (WithSelf) is
// skipped so a launcher installed as "ssh" earlier on PATH does not run itself
// again.
//
// Launch only returns when no ssh could be executed; the error is then
// ErrNotFound and the Decision describes what would have been run.
func Launch(args []string, env Env, opts ...Option) (Decision, error) {
	o := buildOptions(opts)
	d := Decide(args, env)
	o.logger.Debug("decided",
		"case", d.Case.String(),
		"host", d.Host,
		"config", d.ConfigFile,
		"env_rewritten", d.EnvRewritten,
		"self", o.self,
	)

	argv := d.Args
	if len(argv) == 0 {
		argv = []string{SSHProgram}
	}
	err := ExecPath(SSHProgram, o.self, argv, d.Env, opts...)
	return d, err
}

// SelfPath returns the absolute, symlink-resolved path of the running
// executable, or "" if it cannot be determined.
func SelfPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		return resolved
	}
	return exe
}
