//go:build windows
// +build windows

package fastpath

import "errors"

// Windows has no execve; every candidate fails and ExecPath reports ErrNotFound.
func sysExec(path string, argv, envv []string) error {
	return errors.New("process replacement is not supported on windows")
}
