//go:build windows

package manager

import "os"

// watchPTYResize is a no-op on Windows, which has no SIGWINCH.
func watchPTYResize(_ *os.File) (stop func()) {
	return func() {}
}
