//go:build !windows

package manager

import (
	"os"
	"os/signal"
	"syscall"
)

// watchPTYResize keeps the PTY size in sync with the controlling terminal
// until stop is called. It does nothing useful when stdout is not a TTY.
func watchPTYResize(ptmx *os.File) (stop func()) {
	winchCh := make(chan os.Signal, 1)
	signal.Notify(winchCh, syscall.SIGWINCH)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-winchCh:
				syncPTYSize(ptmx)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(winchCh)
		close(done)
	}
}
