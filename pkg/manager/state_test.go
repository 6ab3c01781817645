package manager

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
)

func TestState_RoundTripAndMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	st, err := LoadState(path)
	if err != nil {
		t.Fatalf("expected missing state to load, got %v", err)
	}
	if st.Version != 1 || len(st.Recents) != 0 {
		t.Fatalf("unexpected empty state %#v", st)
	}

	st.AddRecent("alpha")
	st.AddRecent("bravo")
	st.AddRecent("alpha")
	if err := SaveState(path, st); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	got, err := LoadState(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got.Recents, []string{"alpha", "bravo"}) {
		t.Fatalf("expected [alpha bravo], got %#v", got.Recents)
	}
	if got.Updated == "" {
		t.Fatalf("expected updated timestamp")
	}
}

func TestState_AddRecentCapsAndKeepsBytes(t *testing.T) {
	var st State
	for i := 0; i < defaultRecentsLimit+5; i++ {
		st.AddRecent("h" + strconv.Itoa(i))
	}
	if len(st.Recents) != defaultRecentsLimit {
		t.Fatalf("expected %d recents, got %d", defaultRecentsLimit, len(st.Recents))
	}
	st.AddRecent("")
	st.AddRecent("tab\there")
	if st.Recents[0] != "tab\there" {
		t.Fatalf("expected host stored verbatim, got %q", st.Recents[0])
	}
}

func TestLoadState_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadState(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDefaultStatePath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	p, err := DefaultStatePath()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if want := filepath.Join(dir, "ssh-connect-fast", "state.json"); p != want {
		t.Fatalf("expected %s, got %s", want, p)
	}
}
