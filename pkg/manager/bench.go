package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"ssh-connect-fast/pkg/fastpath"
)

// Runner runs one ssh connection to completion.
type Runner func(ctx context.Context, path string, argv, env []string) error

// BenchOptions configures Bench.
type BenchOptions struct {
	Host    string
	Runs    int
	Command []string
	Timeout time.Duration

	Env  fastpath.Env
	Self string

	// Run overrides how a connection is started (RunUnderPTY by default).
	Run Runner
}

// BenchResult holds timings for one variant.
type BenchResult struct {
	Variant   string
	Durations []time.Duration
	Failures  int
	LastErr   error
}

// Min returns the fastest successful run.
func (r BenchResult) Min() time.Duration {
	if len(r.Durations) == 0 {
		return 0
	}
	return slices.Min(r.Durations)
}

// Median returns the median successful run.
func (r BenchResult) Median() time.Duration {
	if len(r.Durations) == 0 {
		return 0
	}
	d := slices.Clone(r.Durations)
	slices.Sort(d)
	return d[len(d)/2]
}

// ErrNotFastHost is returned by Bench when host is not listed on a marker line.
var ErrNotFastHost = errors.New("host is not a fast host")

// Bench times `ssh -o BatchMode=yes <host> <command>` as a plain invocation
// and as rewritten by the trampoline. Runs alternate between the variants so
// that warm-up effects (DNS, ControlMaster, agent) hit both alike.
func Bench(ctx context.Context, opts BenchOptions) ([]BenchResult, error) {
	if opts.Runs <= 0 {
		opts.Runs = defaultBenchRuns
	}
	if len(opts.Command) == 0 {
		opts.Command = []string{"true"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(defaultBenchTimeoutMS) * time.Millisecond
	}
	if opts.Run == nil {
		opts.Run = RunUnderPTY
	}

	sshPath, err := RealSSH(opts.Env, opts.Self)
	if err != nil {
		return nil, err
	}

	plainArgs := append([]string{fastpath.SSHProgram, "-o", "BatchMode=yes", opts.Host}, opts.Command...)
	d := fastpath.Decide(plainArgs, opts.Env)
	if !d.Matched {
		return nil, fmt.Errorf("%s: %w", opts.Host, ErrNotFastHost)
	}

	variants := []struct {
		name string
		argv []string
		env  []string
	}{
		{"plain", plainArgs, opts.Env.Strings()},
		{"fast", d.Args, d.Env.Strings()},
	}
	results := make([]BenchResult, len(variants))
	for i, v := range variants {
		results[i].Variant = v.name
	}

	for run := 0; run < opts.Runs; run++ {
		for i, v := range variants {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
			start := time.Now()
			err := opts.Run(runCtx, sshPath, v.argv, v.env)
			elapsed := time.Since(start)
			cancel()
			if err != nil {
				results[i].Failures++
				results[i].LastErr = err
				continue
			}
			results[i].Durations = append(results[i].Durations, elapsed)
		}
	}
	return results, nil
}

// RealSSH returns the ssh the trampoline would exec: the first executable
// PATH candidate that is not self.
func RealSSH(env fastpath.Env, self string) (string, error) {
	pathList, ok := env.Lookup("PATH")
	if !ok {
		pathList = fastpath.DefaultPath
	}
	for candidate := range fastpath.Candidates(pathList, fastpath.SSHProgram, self) {
		if fastpath.IsSelf(candidate, self) {
			continue
		}
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("ssh: %w", fastpath.ErrNotFound)
}

// RunUnderPTY runs path with argv/env attached to a new pseudo terminal, as an
// interactive ssh session would be, and discards its output.
func RunUnderPTY(ctx context.Context, path string, argv, env []string) error {
	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Env = env

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}
	defer func() { _ = ptmx.Close() }()

	syncPTYSize(ptmx)
	stop := watchPTYResize(ptmx)
	defer stop()

	// Reading fails with EIO once the child closes its side.
	_, _ = io.Copy(io.Discard, ptmx)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
	}
	return nil
}

// syncPTYSize copies the size of the controlling terminal onto ptmx.
func syncPTYSize(ptmx *os.File) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if cols, rows, err := term.GetSize(fd); err == nil && rows > 0 && cols > 0 {
		_ = pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	}
}

// WriteBench prints a summary table of results.
func WriteBench(w io.Writer, host string, results []BenchResult, th Theme) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", th.Paint(th.Header, "bench:"), host)
	var plain, fast time.Duration
	for _, r := range results {
		fmt.Fprintf(&b, "  %-6s runs=%d failed=%d min=%s median=%s\n",
			r.Variant, len(r.Durations), r.Failures, r.Min().Round(time.Millisecond), r.Median().Round(time.Millisecond))
		if r.LastErr != nil {
			fmt.Fprintf(&b, "         %s\n", th.Paint(th.Error, r.LastErr.Error()))
		}
		switch r.Variant {
		case "plain":
			plain = r.Median()
		case "fast":
			fast = r.Median()
		}
	}
	if plain > 0 && fast > 0 {
		saved := plain - fast
		style := th.Success
		if saved < 0 {
			style = th.Warn
		}
		fmt.Fprintf(&b, "  %s\n", th.Paint(style, fmt.Sprintf("saved %s per connection (median)", saved.Round(time.Millisecond))))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
