//go:build !windows

package main

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// flushTTYInput discards unread bytes queued on the controlling terminal so
// that replies to the picker's terminal queries (OSC/DSR) are not read by ssh
// as typed input. It is a no-op without /dev/tty.
func flushTTYInput() {
	tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err != nil {
		return
	}
	defer func() { _ = tty.Close() }()

	fd := int(tty.Fd())

	// tcflush(fd, TCIFLUSH); TCFLSH is 0x540B on Linux and Darwin.
	const TCFLSH = 0x540B
	_, _, _ = unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(TCFLSH), uintptr(unix.TCIFLUSH))

	// Late replies can arrive right after the flush; drain briefly.
	_ = unix.SetNonblock(fd, true)
	defer func() { _ = unix.SetNonblock(fd, false) }()

	deadline := time.Now().Add(200 * time.Millisecond)
	buf := make([]byte, 512)
	for time.Now().Before(deadline) {
		n, _ := unix.Read(fd, buf)
		if n <= 0 {
			break
		}
		deadline = time.Now().Add(75 * time.Millisecond)
	}
}
