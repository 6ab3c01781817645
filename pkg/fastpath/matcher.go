package fastpath

import (
	"errors"
	"io"
	"os"
)

// Marker is the literal prefix of an opt-in line in an ssh config file:
//
//	Host .fast alpha beta.example.com
//
// ssh itself reads it as a Host block for the pattern ".fast", which never
// matches a real destination, so the line is inert for ssh.
const Marker = "Host .fast "

// ChunkSize is the read size used by IsFastHost.
const ChunkSize = 16 * 1024

type scanState uint8

const (
	seekLineStart scanState = iota
	matchMarker
	matchHost
	skipLine
)

// Scanner is a resumable matcher for marker lines. Bytes are fed in arbitrary
// chunks; the only state carried between chunks is the current state and a
// partial match length, so memory use does not depend on line length.
type Scanner struct {
	host    string
	state   scanState
	partial int
	// mismatch is set inside matchHost once the current token diverged from host.
	mismatch bool
	matched  bool
}

// NewScanner returns a Scanner looking for host on marker lines.
func NewScanner(host string) *Scanner {
	return &Scanner{host: host}
}

// Matched reports whether a match has been seen.
func (s *Scanner) Matched() bool { return s.matched }

// Feed consumes the next chunk of input and reports whether host has been
// found on a marker line. Once it returns true further input is ignored.
func (s *Scanner) Feed(chunk []byte) bool {
	if s.matched || s.host == "" {
		return s.matched
	}
	for _, c := range chunk {
		switch s.state {
		case seekLineStart:
			if c == ' ' || c == '\n' {
				continue
			}
			s.state, s.partial = matchMarker, 0
			s.marker(c)
		case matchMarker:
			s.marker(c)
		case skipLine:
			if c == '\n' {
				s.state = seekLineStart
			}
		case matchHost:
			switch c {
			case ' ', '\n':
				if s.tokenComplete() {
					s.matched = true
					return true
				}
				s.partial, s.mismatch = 0, false
				if c == '\n' {
					s.state = seekLineStart
				}
			default:
				if s.mismatch {
					continue
				}
				if s.partial < len(s.host) && c == s.host[s.partial] {
					s.partial++
				} else {
					s.mismatch = true
				}
			}
		}
	}
	return false
}

// Finish is called at end of input. A token running up to end of file counts
// as bounded; anything else still in progress is abandoned.
func (s *Scanner) Finish() bool {
	if !s.matched && s.state == matchHost && s.tokenComplete() {
		s.matched = true
	}
	return s.matched
}

func (s *Scanner) marker(c byte) {
	if c != Marker[s.partial] {
		if c == '\n' {
			s.state = seekLineStart
		} else {
			s.state = skipLine
		}
		s.partial = 0
		return
	}
	s.partial++
	if s.partial == len(Marker) {
		s.state, s.partial, s.mismatch = matchHost, 0, false
	}
}

func (s *Scanner) tokenComplete() bool {
	return !s.mismatch && s.partial > 0 && s.partial == len(s.host)
}

// MatchReader scans r in reads of at most chunkSize bytes. A read error ends
// the scan as if the input had been truncated there without a match.
func MatchReader(r io.Reader, host string, chunkSize int) bool {
	if host == "" {
		return false
	}
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	s := NewScanner(host)
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && s.Feed(buf[:n]) {
			return true
		}
		if errors.Is(err, io.EOF) {
			return s.Finish()
		}
		if err != nil {
			return false
		}
	}
}

// IsFastHost reports whether host is listed on a marker line in the ssh
// config file at path. A file that cannot be opened or read is treated as
// listing no hosts.
func IsFastHost(path, host string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return MatchReader(f, host, ChunkSize)
}
