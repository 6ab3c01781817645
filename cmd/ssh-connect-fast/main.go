// Command ssh-connect-fast is an ssh(1) trampoline. Installed as "ssh" earlier
// on PATH (or run in its place), it pins -F ~/.ssh/config and swaps in
// $SSH_AUTH_SOCK_FAST for hosts listed on a "Host .fast" line of
// ~/.ssh/config, then execs the real ssh.
//
// Example ~/.ssh/config line:
//
//	Host .fast build1 build2.example.com
package main

import (
	"os"

	"ssh-connect-fast/pkg/fastpath"
)

// exitNotFound is distinct from ssh's own exit codes (0, 1, 255).
const exitNotFound = 121

func main() {
	env := fastpath.ParseEnv(os.Environ())
	logger := fastpath.DebugLogger(env, os.Stderr)

	_, err := fastpath.Launch(os.Args, env,
		fastpath.WithSelf(fastpath.SelfPath()),
		fastpath.WithLogger(logger),
	)
	logger.Debug("handoff failed", "error", err)
	os.Stderr.WriteString("fatal: ssh not found\n")
	os.Exit(exitNotFound)
}
