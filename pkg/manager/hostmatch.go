package manager

import (
	"net"
	"strings"
)

// NormalizeHostFull returns a normalized representation of a hostname suitable
// for loose comparison. It is only used to explain near misses to the user; the
// trampoline itself compares hostnames byte for byte.
//
// Normalization rules:
// - trim spaces
// - lower-case
// - remove a trailing dot (FQDN form)
// - strip surrounding brackets for IPv6 literals like "[2001:db8::1]"
func NormalizeHostFull(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Common: remote systems may be reported with a trailing dot.
	s = strings.TrimSuffix(s, ".")
	// IPv6 literals sometimes appear bracketed.
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(s)
	return strings.ToLower(s)
}

// NormalizeHostShort returns a "shortname" used for loose matching between a
// typed destination and the hosts listed on marker lines.
//
// Rules (after NormalizeHostFull):
// - if it's an IP literal (v4 or v6), return the normalized IP string
// - otherwise, return the first DNS label (before the first '.')
func NormalizeHostShort(s string) string {
	full := NormalizeHostFull(s)
	if full == "" {
		return ""
	}

	// If it's an IP, normalize via net.ParseIP to avoid string-format mismatches.
	if ip := net.ParseIP(full); ip != nil {
		// Prefer canonical string form. (IPv6 will be compressed.)
		return ip.String()
	}

	// Hostname: take first label.
	if i := strings.IndexByte(full, '.'); i >= 0 {
		return full[:i]
	}
	return full
}

// HostNameMatches performs the loose matching strategy:
//
// - exact full-name match first (normalized)
// - else normalized shortname match
//
// It does not attempt regex, glob, or substring matching.
func HostNameMatches(listedHost, typedHost string) bool {
	aFull := NormalizeHostFull(listedHost)
	bFull := NormalizeHostFull(typedHost)
	if aFull == "" || bFull == "" {
		return false
	}
	if aFull == bFull {
		return true
	}
	return NormalizeHostShort(aFull) == NormalizeHostShort(bFull)
}

// NearMisses returns the listed hosts that are not byte-equal to host but
// match it loosely (case, trailing dot, domain suffix). These are the entries
// a user most likely meant when a destination is unexpectedly not fast.
func NearMisses(host string, listed []string) []string {
	var out []string
	for _, h := range listed {
		if h == host {
			continue
		}
		if HostNameMatches(h, host) {
			out = append(out, h)
		}
	}
	return out
}
