// Package fastpath decides whether an ssh invocation can take the fast path
// (a pinned -F config and a pre-warmed agent socket) and hands the invocation
// off to the real ssh binary.
package fastpath

import "strings"

// FlagsWithValue lists the ssh option letters that take an argument.
// Taken from `ssh -h` of OpenSSH 7.3 through 8.2.
const FlagsWithValue = "DEFIJLOQRSWbceilmopw"

// TargetHost extracts the destination hostname from ssh arguments (without the
// program name), following the ssh option grammar:
//
// - tokens starting with '-' are options; scanning stops at the first other token
// - "--" ends options and the next token is the hostname, verbatim (no '@' split)
// - a value-taking letter at the end of a token consumes the next token as its value
// - otherwise "user@host" yields "host" (everything after the first '@')
//
// It returns false when no destination argument is present.
func TargetHost(args []string) (string, bool) {
	dest, verbatim, ok := destinationArg(args)
	if !ok {
		return "", false
	}
	if verbatim {
		return dest, true
	}
	if i := strings.IndexByte(dest, '@'); i >= 0 {
		return dest[i+1:], true
	}
	return dest, true
}

// destinationArg returns the destination token and whether it followed "--".
func destinationArg(args []string) (dest string, verbatim, ok bool) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			return a, false, true
		}
		if a == "--" {
			if i+1 < len(args) {
				return args[i+1], true, true
			}
			return "", false, false
		}
		for j := 1; j < len(a); j++ {
			if strings.IndexByte(FlagsWithValue, a[j]) < 0 {
				continue
			}
			if j == len(a)-1 && i+1 < len(args) {
				i++ // value of this flag, not a destination
			}
			break
		}
	}
	return "", false, false
}
