//go:build !windows
// +build !windows

package fastpath

import "golang.org/x/sys/unix"

func sysExec(path string, argv, envv []string) error {
	return unix.Exec(path, argv, envv)
}
