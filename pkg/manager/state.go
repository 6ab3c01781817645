package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Persistent state for ssh-fast: the hosts most recently launched from the
// picker, stored as JSON under the user's state dir:
//
//   ~/.local/state/ssh-connect-fast/state.json
//
// $XDG_STATE_HOME is used instead of ~/.local/state when set.

const (
	defaultStateDirName  = "ssh-connect-fast"
	defaultStateFilename = "state.json"

	defaultRecentsLimit = 50
)

// State represents the on-disk JSON structure.
type State struct {
	Version int `json:"version,omitempty"`

	// Recents is a most-recently-used list of fast hosts; the first element
	// is the most recent. Names are stored byte for byte.
	Recents []string `json:"recents,omitempty"`

	// Updated tracks the last update time in RFC3339.
	Updated string `json:"updated,omitempty"`
}

// DefaultStatePath returns the full path to state.json.
func DefaultStatePath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, defaultStateDirName, defaultStateFilename), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", defaultStateDirName, defaultStateFilename), nil
}

// LoadState reads the state JSON from path. If path is empty, the default path is used.
// A missing file yields an empty state and nil error.
func LoadState(path string) (*State, error) {
	if path == "" {
		var err error
		if path, err = DefaultStatePath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &State{Version: 1}, nil
		}
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	if st.Version == 0 {
		st.Version = 1
	}
	st.ensureUnique()
	return &st, nil
}

// SaveState writes the state JSON to path atomically.
// If path is empty, the default path is used.
// The parent directory is created with 0700 permissions if missing.
func SaveState(path string, st *State) error {
	if st == nil {
		return errors.New("nil state")
	}
	if path == "" {
		var err error
		if path, err = DefaultStatePath(); err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}

	st2 := *st
	st2.Updated = time.Now().UTC().Format(time.RFC3339)
	st2.ensureUnique()
	payload, err := json.MarshalIndent(st2, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	payload = append(payload, '\n')

	tmp := path + fmt.Sprintf(".tmp-%d-%d", os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write temp state %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename to %s: %w", path, err)
	}
	return nil
}

// AddRecent moves host to the front of Recents, inserting it if absent, and
// caps the list at defaultRecentsLimit.
func (s *State) AddRecent(host string) {
	if host == "" {
		return
	}
	out := make([]string, 0, len(s.Recents)+1)
	out = append(out, host)
	for _, n := range s.Recents {
		if n != host {
			out = append(out, n)
		}
	}
	if len(out) > defaultRecentsLimit {
		out = out[:defaultRecentsLimit]
	}
	s.Recents = out
}

// ensureUnique de-duplicates Recents and drops empty entries.
func (s *State) ensureUnique() {
	if len(s.Recents) == 0 {
		return
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(s.Recents))
	for _, n := range s.Recents {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) > defaultRecentsLimit {
		out = out[:defaultRecentsLimit]
	}
	s.Recents = out
}
