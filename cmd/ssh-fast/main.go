// Command ssh-fast inspects and exercises the ssh-connect-fast trampoline:
// it explains decisions, lists and checks fast hosts, diagnoses the setup,
// benchmarks the fast path and offers an interactive host picker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"ssh-connect-fast/pkg/fastpath"
	"ssh-connect-fast/pkg/manager"
)

var version = "dev"

// Exit status used when no ssh binary can be found, matching the trampoline.
const exitNotFound = 121

var (
	flagSettings   string
	flagColor      string
	flagTrampoline string
)

// quietExit ends the process with the given status without an error message.
type quietExit int

func (e quietExit) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	fs := pflag.NewFlagSet("ssh-fast", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.StringVar(&flagSettings, "settings", "", "Path to YAML settings (defaults to XDG paths if empty)")
	fs.StringVar(&flagColor, "color", "", "Color output: auto|always|never (overrides settings)")
	fs.StringVar(&flagTrampoline, "trampoline", "", "Path of the installed trampoline (default: ssh-connect-fast on PATH)")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ssh-fast: %v\n", err)
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		usage(fs)
		os.Exit(2)
	}

	if err := run(fs.Arg(0), fs.Args()[1:]); err != nil {
		var q quietExit
		if errors.As(err, &q) {
			os.Exit(int(q))
		}
		fmt.Fprintf(os.Stderr, "ssh-fast: %v\n", err)
		os.Exit(exitCodeFromErr(err))
	}
}

func usage(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "ssh-fast\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  ssh-fast [options] explain [--json|--yaml] [--] <ssh args...>\n")
	fmt.Fprintf(os.Stderr, "  ssh-fast [options] list [--hosts]\n")
	fmt.Fprintf(os.Stderr, "  ssh-fast [options] check <host>\n")
	fmt.Fprintf(os.Stderr, "  ssh-fast [options] doctor\n")
	fmt.Fprintf(os.Stderr, "  ssh-fast [options] bench [-n N] <host>\n")
	fmt.Fprintf(os.Stderr, "  ssh-fast [options] pick [query]\n")
	fmt.Fprintf(os.Stderr, "  ssh-fast version\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  ssh-fast explain -- -p 2222 me@build1
  ssh-fast check build1.example.com
  ssh-fast bench -n 5 build1
`)
}

func run(sub string, args []string) error {
	if sub == "version" {
		fmt.Printf("ssh-fast %s\n", version)
		return nil
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if flagColor != "" {
		cfg.Color = flagColor
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	env := fastpath.ParseEnv(os.Environ())
	th := manager.NewTheme(cfg.Color, os.Stdout)

	switch sub {
	case "explain":
		return runExplain(env, th, args)
	case "list":
		return runList(cfg, env, th, args)
	case "check":
		return runCheck(cfg, env, th, args)
	case "doctor":
		return runDoctor(cfg, env, th, args)
	case "bench":
		return runBench(cfg, env, th, args)
	case "pick":
		return runPick(cfg, env, args)
	default:
		return fmt.Errorf("unknown command %q (see ssh-fast --help)", sub)
	}
}

func loadSettings() (*manager.Config, error) {
	cfg, _, err := manager.LoadConfig(flagSettings)
	if errors.Is(err, manager.ErrConfigNotFound) {
		return manager.DefaultConfig(), nil
	}
	return cfg, err
}

// trampolinePath returns the resolved path of the installed trampoline, or ""
// when it cannot be located.
func trampolinePath() string {
	p := flagTrampoline
	if p == "" {
		found, err := exec.LookPath("ssh-connect-fast")
		if err != nil {
			return ""
		}
		p = found
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return ""
	}
	return resolved
}

func runExplain(env fastpath.Env, th manager.Theme, args []string) error {
	fs := pflag.NewFlagSet("explain", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	asJSON := fs.Bool("json", false, "Print JSON")
	asYAML := fs.Bool("yaml", false, "Print YAML")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *asJSON && *asYAML {
		return errors.New("explain: --json and --yaml are mutually exclusive")
	}

	e := manager.Explain(append([]string{fastpath.SSHProgram}, fs.Args()...), env, trampolinePath())
	switch {
	case *asJSON:
		return e.WriteJSON(os.Stdout)
	case *asYAML:
		return e.WriteYAML(os.Stdout)
	default:
		return e.WriteText(os.Stdout, th)
	}
}

func runList(cfg *manager.Config, env fastpath.Env, th manager.Theme, args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	hostsOnly := fs.Bool("hosts", false, "Print host names only, one per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := cfg.SSHConfigPath(env)
	if err != nil {
		return err
	}
	lines, err := manager.LoadFastHosts(path)
	if err != nil {
		return err
	}

	if *hostsOnly {
		for _, h := range manager.FastHostNames(lines) {
			fmt.Println(h)
		}
		return nil
	}
	if len(lines) == 0 {
		fmt.Println(th.Paint(th.Dim, "no fast hosts in "+path))
		return nil
	}
	for _, l := range lines {
		fmt.Printf("%s %s\n", th.Paint(th.Dim, fmt.Sprintf("%s:%d", l.Source, l.Line)), strings.Join(l.Hosts, " "))
		for _, tok := range l.Suspect {
			fmt.Printf("  %s %q is compared literally\n", th.Paint(th.Warn, "warn"), tok)
		}
	}
	return nil
}

func runCheck(cfg *manager.Config, env fastpath.Env, th manager.Theme, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: ssh-fast check <host>")
	}
	host, ok := fastpath.TargetHost(args)
	if !ok {
		return fmt.Errorf("check: %q is not a destination", args[0])
	}
	path, err := cfg.SSHConfigPath(env)
	if err != nil {
		return err
	}

	if fastpath.IsFastHost(path, host) {
		fmt.Printf("%s %s (%s)\n", th.Paint(th.Success, "fast"), host, path)
		return nil
	}
	fmt.Printf("%s %s (%s)\n", th.Paint(th.Dim, "not fast"), host, path)
	if lines, err := manager.LoadFastHosts(path); err == nil {
		if near := manager.NearMisses(host, manager.FastHostNames(lines)); len(near) > 0 {
			fmt.Printf("  did you mean: %s\n", th.Paint(th.Accent, strings.Join(near, ", ")))
		}
	}
	return quietExit(1)
}

func runDoctor(cfg *manager.Config, env fastpath.Env, th manager.Theme, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: ssh-fast doctor")
	}
	// Without an ssh_config override, Doctor reports on the file the
	// trampoline pins, including the HOME checks.
	var sshConfig string
	if strings.TrimSpace(cfg.SSHConfig) != "" {
		sshConfig, _ = cfg.SSHConfigPath(env)
	}
	checks := manager.Doctor(env, manager.DoctorOptions{
		Self:      trampolinePath(),
		SSHConfig: sshConfig,
	})
	if err := manager.WriteChecks(os.Stdout, checks, th); err != nil {
		return err
	}
	if manager.Failed(checks) {
		return quietExit(1)
	}
	return nil
}

func runBench(cfg *manager.Config, env fastpath.Env, th manager.Theme, args []string) error {
	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	runs := fs.IntP("runs", "n", cfg.Bench.Runs, "Connections per variant")
	timeout := fs.Duration("timeout", cfg.BenchTimeout(), "Timeout per connection")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: ssh-fast bench [-n N] <host>")
	}
	host := fs.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := manager.Bench(ctx, manager.BenchOptions{
		Host:    host,
		Runs:    *runs,
		Command: cfg.Bench.Command,
		Timeout: *timeout,
		Env:     env,
		Self:    trampolinePath(),
	})
	if err != nil {
		return err
	}
	return manager.WriteBench(os.Stdout, host, results, th)
}

func runPick(cfg *manager.Config, env fastpath.Env, args []string) error {
	path, err := cfg.SSHConfigPath(env)
	if err != nil {
		return err
	}
	lines, err := manager.LoadFastHosts(path)
	if err != nil {
		return err
	}
	if note := pickConfigNote(path, env); note != "" {
		fmt.Fprintln(os.Stderr, note)
	}

	st, err := manager.LoadState("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ssh-fast: %v (recents ignored)\n", err)
		st = &manager.State{Version: 1}
	}

	host, err := manager.RunPicker(lines, manager.PickOptions{
		InitialQuery: strings.Join(args, " "),
		MaxResults:   cfg.Pick.MaxResults,
		Theme:        manager.NewTheme(cfg.Color, os.Stdout),
		Recents:      st.Recents,
	})
	if errors.Is(err, manager.ErrPickCancelled) {
		return quietExit(1)
	}
	if err != nil {
		return err
	}

	st.AddRecent(host)
	if err := manager.SaveState("", st); err != nil {
		fmt.Fprintf(os.Stderr, "ssh-fast: %v\n", err)
	}

	flushTTYInput()
	_, err = fastpath.Launch([]string{fastpath.SSHProgram, host}, env,
		fastpath.WithSelf(trampolinePath()),
		fastpath.WithLogger(fastpath.DebugLogger(env, os.Stderr)),
	)
	return fmt.Errorf("launch %s: %w", host, err)
}

// pickConfigNote warns when the picker lists hosts from a file other than the
// one the trampoline matches against, since such a host takes the no-match
// path.
func pickConfigNote(listed string, env fastpath.Env) string {
	pinned, ok := fastpath.DefaultConfigFile(env)
	if !ok {
		return fmt.Sprintf("ssh-fast: note: picking from %s, but the trampoline has no config file (HOME unset or too long)", listed)
	}
	if filepath.Clean(listed) == filepath.Clean(pinned) {
		return ""
	}
	return fmt.Sprintf("ssh-fast: note: picking from %s, but the trampoline only matches hosts in %s", listed, pinned)
}

func exitCodeFromErr(err error) int {
	if errors.Is(err, fastpath.ErrNotFound) {
		return exitNotFound
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if status, ok := ee.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
	}
	return 1
}
