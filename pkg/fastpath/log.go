package fastpath

import (
	"io"
	"log/slog"
)

// DebugEnvVar enables decision tracing on stderr when set to anything but ""
// or "0".
const DebugEnvVar = "SSH_CONNECT_FAST_DEBUG"

// DebugLogger returns a text logger writing to w at debug level when
// DebugEnvVar is enabled in env, and a discarding logger otherwise.
func DebugLogger(env Env, w io.Writer) *slog.Logger {
	v, _ := env.Lookup(DebugEnvVar)
	if v == "" || v == "0" {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With("component", "ssh-connect-fast")
}
