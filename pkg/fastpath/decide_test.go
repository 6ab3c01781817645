package fastpath

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeHome creates HOME/.ssh/config with content and returns HOME.
func writeHome(t *testing.T, content string) string {
	t.Helper()
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, ".ssh"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(home, ".ssh", "config"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return home
}

func TestDecide_FastPath(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha beta\n")
	env := ParseEnv([]string{"HOME=" + home, "SSH_AUTH_SOCK=/slow", "SSH_AUTH_SOCK_FAST=/fast", "TERM=xterm"})
	args := []string{"prog", "alpha"}

	d := Decide(args, env)
	if d.Case != CaseFastPath {
		t.Fatalf("expected %v, got %v", CaseFastPath, d.Case)
	}
	wantArgs := []string{"prog", "-F" + home + "/.ssh/config", "alpha"}
	if !reflect.DeepEqual(d.Args, wantArgs) {
		t.Fatalf("expected %#v, got %#v", wantArgs, d.Args)
	}
	wantEnv := []string{"HOME=" + home, "SSH_AUTH_SOCK=/fast", "TERM=xterm"}
	if got := d.Env.Strings(); !reflect.DeepEqual(got, wantEnv) {
		t.Fatalf("expected %#v, got %#v", wantEnv, got)
	}
	if !d.EnvRewritten || !d.Matched || d.Host != "alpha" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if !reflect.DeepEqual(args, []string{"prog", "alpha"}) {
		t.Fatalf("expected input args unchanged, got %#v", args)
	}
}

func TestDecide_FastPathWithoutFastSocket(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha beta\n")
	env := ParseEnv([]string{"HOME=" + home, "SSH_AUTH_SOCK=/slow"})
	d := Decide([]string{"ssh", "-p", "2222", "user@beta", "uptime"}, env)
	if d.Case != CaseFastPath {
		t.Fatalf("expected %v, got %v", CaseFastPath, d.Case)
	}
	want := []string{"ssh", "-F" + home + "/.ssh/config", "-p", "2222", "user@beta", "uptime"}
	if !reflect.DeepEqual(d.Args, want) {
		t.Fatalf("expected %#v, got %#v", want, d.Args)
	}
	if d.EnvRewritten {
		t.Fatalf("expected env not rewritten without %s", FastAgentSockVar)
	}
	if got := d.Env.Strings(); !reflect.DeepEqual(got, env.Strings()) {
		t.Fatalf("expected env unchanged, got %#v", got)
	}
}

func TestDecide_NoMatch(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha beta\n")
	envIn := []string{"HOME=" + home, "SSH_AUTH_SOCK_FAST=/fast"}
	args := []string{"prog", "gamma"}
	d := Decide(args, ParseEnv(envIn))
	if d.Case != CaseNoMatch {
		t.Fatalf("expected %v, got %v", CaseNoMatch, d.Case)
	}
	if !reflect.DeepEqual(d.Args, args) || !reflect.DeepEqual(d.Env.Strings(), envIn) {
		t.Fatalf("expected passthrough, got args=%#v env=%#v", d.Args, d.Env.Strings())
	}
}

func TestDecide_NoDestination(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha\n")
	d := Decide([]string{"ssh", "-V"}, ParseEnv([]string{"HOME=" + home}))
	if d.Case != CaseNoMatch || d.Host != "" {
		t.Fatalf("expected no-match without host, got %+v", d)
	}
}

func TestDecide_MissingConfig(t *testing.T) {
	home := t.TempDir()
	d := Decide([]string{"ssh", "alpha"}, ParseEnv([]string{"HOME=" + home}))
	if d.Case != CaseNoMatch {
		t.Fatalf("expected %v, got %v", CaseNoMatch, d.Case)
	}
}

func TestDecide_HomeUnset(t *testing.T) {
	writeHome(t, "Host .fast  alpha\n")
	for _, envIn := range [][]string{
		{"SSH_AUTH_SOCK_FAST=/fast"},
		{"HOME=", "SSH_AUTH_SOCK_FAST=/fast"},
	} {
		args := []string{"prog", "alpha"}
		d := Decide(args, ParseEnv(envIn))
		if d.Case != CasePassthrough {
			t.Fatalf("expected %v, got %v", CasePassthrough, d.Case)
		}
		if !reflect.DeepEqual(d.Args, args) || !reflect.DeepEqual(d.Env.Strings(), envIn) {
			t.Fatalf("expected passthrough, got args=%#v env=%#v", d.Args, d.Env.Strings())
		}
	}
}

func TestDecide_HomeTooLong(t *testing.T) {
	home := "/" + strings.Repeat("h", MaxConfigArgLen)
	d := Decide([]string{"prog", "alpha"}, ParseEnv([]string{"HOME=" + home}))
	if d.Case != CasePassthrough {
		t.Fatalf("expected %v, got %v", CasePassthrough, d.Case)
	}
}

func TestDefaultConfigFile_Limit(t *testing.T) {
	// "-F" + home + "/.ssh/config" + terminator must fit.
	maxHome := MaxConfigArgLen - len("-F") - len(ConfigSuffix) - 1
	home := "/" + strings.Repeat("h", maxHome-1)
	if _, ok := DefaultConfigFile(ParseEnv([]string{"HOME=" + home})); !ok {
		t.Fatalf("expected home of length %d to fit", len(home))
	}
	if _, ok := DefaultConfigFile(ParseEnv([]string{"HOME=" + home + "h"})); ok {
		t.Fatalf("expected home of length %d not to fit", len(home)+1)
	}
}

func TestDecide_TooManyArgs(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha\n")
	env := ParseEnv([]string{"HOME=" + home})

	args := []string{"prog", "alpha"}
	for len(args) < MaxArgs-2 {
		args = append(args, "x")
	}
	if d := Decide(args, env); d.Case != CaseFastPath || len(d.Args) != MaxArgs-1 {
		t.Fatalf("expected fast path at the limit, got %v with %d args", d.Case, len(d.Args))
	}

	args = append(args, "x")
	if d := Decide(args, env); d.Case != CasePassthrough || len(d.Args) != len(args) {
		t.Fatalf("expected passthrough over the limit, got %v", d.Case)
	}
}

func TestDecide_Recursive(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha\n")
	cfg := home + "/.ssh/config"

	t.Run("match rewrites env only", func(t *testing.T) {
		args := []string{"ssh", "-F" + cfg, "alpha"}
		env := ParseEnv([]string{"SSH_AUTH_SOCK_FAST=/fast", "SSH_AUTH_SOCK=/slow"})
		d := Decide(args, env)
		if d.Case != CaseRecursive || !d.EnvRewritten {
			t.Fatalf("expected recursive rewrite, got %+v", d)
		}
		if !reflect.DeepEqual(d.Args, args) {
			t.Fatalf("expected args unchanged, got %#v", d.Args)
		}
		if got := d.Env.Strings(); !reflect.DeepEqual(got, []string{"SSH_AUTH_SOCK=/fast"}) {
			t.Fatalf("expected renamed socket, got %#v", got)
		}
	})

	t.Run("no match keeps env", func(t *testing.T) {
		envIn := []string{"SSH_AUTH_SOCK_FAST=/fast"}
		d := Decide([]string{"ssh", "-F" + cfg, "gamma"}, ParseEnv(envIn))
		if d.Case != CaseRecursive || d.EnvRewritten {
			t.Fatalf("expected recursive passthrough, got %+v", d)
		}
		if got := d.Env.Strings(); !reflect.DeepEqual(got, envIn) {
			t.Fatalf("expected env unchanged, got %#v", got)
		}
	})

	t.Run("uses the given file even without HOME", func(t *testing.T) {
		other := filepath.Join(t.TempDir(), "other")
		if err := os.WriteFile(other, []byte("Host .fast gamma\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		d := Decide([]string{"ssh", "-F" + other, "gamma"}, ParseEnv([]string{"SSH_AUTH_SOCK_FAST=/f"}))
		if d.Case != CaseRecursive || !d.EnvRewritten || d.ConfigFile != other {
			t.Fatalf("expected recursive match on %s, got %+v", other, d)
		}
	})

	t.Run("separate -F value is not recursive", func(t *testing.T) {
		d := Decide([]string{"ssh", "-F", cfg, "alpha"}, ParseEnv([]string{"HOME=" + home}))
		if d.Case != CaseFastPath {
			t.Fatalf("expected %v, got %v", CaseFastPath, d.Case)
		}
	})
}

func TestDecide_Empty(t *testing.T) {
	if d := Decide(nil, nil); d.Case != CasePassthrough {
		t.Fatalf("expected %v, got %v", CasePassthrough, d.Case)
	}
}
