package fastpath

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

const launchHelperVar = "FASTPATH_LAUNCH_HELPER"

// TestLaunchHelper is not a real test: it runs Launch when re-executed by
// runLaunch, and the fake ssh it execs replaces the test binary.
func TestLaunchHelper(t *testing.T) {
	if os.Getenv(launchHelperVar) != "1" {
		t.Skip("helper process")
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	var env Env
	for _, v := range ParseEnv(os.Environ()) {
		if v.Name != launchHelperVar {
			env = append(env, v)
		}
	}
	_, err := Launch(args, env, WithSelf(os.Getenv("FASTPATH_SELF")))
	fmt.Fprintf(os.Stderr, "launch: %v\n", err)
	os.Exit(121)
}

type fakeSSHRun struct {
	argv []string
	sock string
	fast string
}

// runLaunch re-executes the test binary with args and env, PATH pointing at
// pathDirs. Every directory gets a fake ssh that records the path it ran
// from, its arguments and the agent variables.
func runLaunch(t *testing.T, pathDirs []string, self string, args []string, env []string) (fakeSSHRun, error) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires execve")
	}
	out := filepath.Join(t.TempDir(), "out")
	script := "#!/bin/sh\n" +
		"{ printf '%s\\n' \"$0\"; for a in \"$@\"; do printf '%s\\n' \"$a\"; done; } > \"$FAKE_OUT.argv\"\n" +
		"printf '%s\\n%s\\n' \"${SSH_AUTH_SOCK-unset}\" \"${SSH_AUTH_SOCK_FAST-unset}\" > \"$FAKE_OUT.env\"\n"
	for _, dir := range pathDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "ssh"), []byte(script), 0o755); err != nil {
			t.Fatalf("write fake ssh: %v", err)
		}
	}

	cmd := exec.Command(os.Args[0], append([]string{"-test.run=^TestLaunchHelper$", "--"}, args...)...)
	cmd.Env = append([]string{
		launchHelperVar + "=1",
		"FASTPATH_SELF=" + self,
		"PATH=" + strings.Join(pathDirs, ":"),
		"FAKE_OUT=" + out,
	}, env...)
	if err := cmd.Run(); err != nil {
		return fakeSSHRun{}, err
	}

	argvData, err := os.ReadFile(out + ".argv")
	if err != nil {
		t.Fatalf("fake ssh did not run: %v", err)
	}
	envData, err := os.ReadFile(out + ".env")
	if err != nil {
		t.Fatalf("fake ssh env missing: %v", err)
	}
	vars := strings.Split(strings.TrimSuffix(string(envData), "\n"), "\n")
	if len(vars) != 2 {
		t.Fatalf("unexpected env record %q", envData)
	}
	return fakeSSHRun{
		argv: strings.Split(strings.TrimSuffix(string(argvData), "\n"), "\n"),
		sock: vars[0],
		fast: vars[1],
	}, nil
}

func TestLaunch_EndToEndFastPath(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha beta\n")
	bin := filepath.Join(t.TempDir(), "bin")
	run, err := runLaunch(t, []string{bin}, "", []string{"prog", "alpha"},
		[]string{"HOME=" + home, "SSH_AUTH_SOCK=/slow", "SSH_AUTH_SOCK_FAST=/fast"})
	if err != nil {
		t.Fatalf("helper failed: %v", err)
	}
	// $0 of a script is the path it was run as; the fake records it first.
	want := []string{filepath.Join(bin, "ssh"), "-F" + home + "/.ssh/config", "alpha"}
	if !reflect.DeepEqual(run.argv, want) {
		t.Fatalf("expected argv %#v, got %#v", want, run.argv)
	}
	if run.sock != "/fast" || run.fast != "unset" {
		t.Fatalf("expected SSH_AUTH_SOCK=/fast and no fast var, got %q / %q", run.sock, run.fast)
	}
}

func TestLaunch_EndToEndNoMatchSkipsSelf(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha beta\n")
	root := t.TempDir()
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	run, err := runLaunch(t, []string{first, second}, filepath.Join(first, "ssh"), []string{"prog", "gamma"},
		[]string{"HOME=" + home, "SSH_AUTH_SOCK=/slow", "SSH_AUTH_SOCK_FAST=/fast"})
	if err != nil {
		t.Fatalf("helper failed: %v", err)
	}
	want := []string{filepath.Join(second, "ssh"), "gamma"}
	if !reflect.DeepEqual(run.argv, want) {
		t.Fatalf("expected argv %#v, got %#v", want, run.argv)
	}
	if run.sock != "/slow" || run.fast != "/fast" {
		t.Fatalf("expected env unchanged, got %q / %q", run.sock, run.fast)
	}
}

func TestLaunch_EndToEndNotFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires execve")
	}
	cmd := exec.Command(os.Args[0], "-test.run=^TestLaunchHelper$", "--", "prog", "alpha")
	cmd.Env = []string{launchHelperVar + "=1", "PATH=" + filepath.Join(t.TempDir(), "empty")}
	err := cmd.Run()
	var ee *exec.ExitError
	if !errors.As(err, &ee) || ee.ExitCode() != 121 {
		t.Fatalf("expected exit status 121, got %v", err)
	}
}

func TestLaunch_ReturnsDecisionOnFailure(t *testing.T) {
	home := writeHome(t, "Host .fast  alpha\n")
	rec := &execRecorder{}
	env := ParseEnv([]string{"HOME=" + home, "PATH=/a:/b"})
	d, err := Launch([]string{"ssh", "alpha"}, env, WithExec(rec.exec), WithSelf("/a/ssh"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if d.Case != CaseFastPath {
		t.Fatalf("expected %v, got %v", CaseFastPath, d.Case)
	}
	if !reflect.DeepEqual(rec.tried, []string{"/b/ssh"}) {
		t.Fatalf("expected only /b/ssh, got %#v", rec.tried)
	}
	if rec.argv[0][0] != "ssh" {
		t.Fatalf("expected program name first, got %#v", rec.argv[0])
	}
}
