package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oshokin/snapx/internal/config"
	"github.com/oshokin/snapx/internal/logger"
)

const (
	// DefaultShim runs Windows executables on other hosts.
	DefaultShim = "wine"
	// exitCodeUnknown is reported when the process did not exit on its own.
	exitCodeUnknown = -1
	// outputWaitDelay bounds how long output is drained after the process
	// exits while a detached descendant still holds its pipes.
	outputWaitDelay = 2 * time.Second
)

// Result is the outcome of a finished process.
type Result struct {
	// ExitCode is the process exit status, -1 when it was killed.
	ExitCode int
	// Output is the selected and trimmed process output.
	Output string
}

// Runner starts processes. A Runner is safe for concurrent use.
type Runner struct {
	// log is the runner logger.
	log *zap.SugaredLogger
	// pollInterval is how often a long wait is reported.
	pollInterval time.Duration
	// shim prefixes .exe commands on non-Windows hosts.
	shim string
	// goos is the host operating system.
	goos string
}

// Option configures a Runner.
type Option func(*Runner)

// WithPollInterval sets how often a running process is checked on.
func WithPollInterval(interval time.Duration) Option {
	return func(r *Runner) {
		if interval > 0 {
			r.pollInterval = interval
		}
	}
}

// WithShim replaces the compatibility shim used for .exe files on non-Windows hosts.
func WithShim(shim string) Option {
	return func(r *Runner) {
		r.shim = shim
	}
}

// withGOOS overrides host detection in tests.
func withGOOS(goos string) Option {
	return func(r *Runner) {
		r.goos = goos
	}
}

// NewRunner creates a process runner.
func NewRunner(log *zap.SugaredLogger, opts ...Option) *Runner {
	r := &Runner{
		log:          logger.OrNop(log),
		pollInterval: config.DefaultProcessPollInterval,
		shim:         DefaultShim,
		goos:         runtime.GOOS,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Invoke runs command with args in workingDir and waits for it to exit.
//
// A non-zero exit code is not an error. Canceling ctx kills the process and
// everything it spawned; the
// returned error then wraps ctx.Err(), and ErrTimeout as well when the
// deadline expired. The partial Result is returned alongside those errors.
func (r *Runner) Invoke(ctx context.Context, command string, args []string, workingDir string) (*Result, error) {
	name, argv := r.resolve(command, args)

	var stdout, stderr bytes.Buffer

	cmd := exec.Command(name, argv...)
	cmd.Dir = workingDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = outputWaitDelay
	isolate(cmd)

	log := r.log.With("command", name)
	log.Debugw("Starting process", "args", argv, "dir", workingDir)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Command: name, Err: err}
	}

	waitCh := make(chan error, 1)

	go func() {
		waitCh <- cmd.Wait()
	}()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	started := time.Now()

	for {
		select {
		case err := <-waitCh:
			return r.finish(name, cmd, err, &stdout, &stderr)
		case <-ticker.C:
			log.Debugw("Process still running", "pid", cmd.Process.Pid, "elapsed", time.Since(started))
		case <-ctx.Done():
			if killErr := kill(cmd); killErr != nil {
				log.Warnw("Failed to kill process", "pid", cmd.Process.Pid, "error", killErr)
			}

			<-waitCh

			log.Warnw("Process killed", "pid", cmd.Process.Pid, "reason", ctx.Err())

			result := &Result{
				ExitCode: exitCodeUnknown,
				Output:   selectOutput(stdout.String(), stderr.String(), exitCodeUnknown),
			}

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return result, fmt.Errorf("run %s: %w: %w", name, ErrTimeout, ctx.Err())
			}

			return result, fmt.Errorf("run %s: %w", name, ctx.Err())
		}
	}
}

func (r *Runner) finish(name string, cmd *exec.Cmd, waitErr error, stdout, stderr *bytes.Buffer) (*Result, error) {
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return nil, fmt.Errorf("wait for %s: %w", name, waitErr)
	}

	code := cmd.ProcessState.ExitCode()

	result := &Result{
		ExitCode: code,
		Output:   selectOutput(stdout.String(), stderr.String(), code),
	}

	r.log.Debugw("Process exited", "command", name, "exit_code", code)

	return result, nil
}

// resolve applies the compatibility shim to Windows executables on other hosts.
func (r *Runner) resolve(command string, args []string) (string, []string) {
	if r.goos == "windows" || r.shim == "" || !strings.HasSuffix(strings.ToLower(command), ".exe") {
		return command, args
	}

	argv := make([]string, 0, len(args)+1)
	argv = append(argv, command)
	argv = append(argv, args...)

	return r.shim, argv
}

// selectOutput returns stdout alone for a clean successful run, and both
// streams joined by a newline otherwise.
func selectOutput(stdout, stderr string, exitCode int) string {
	if strings.TrimSpace(stdout) == "" || exitCode != 0 {
		return strings.TrimSpace(stdout + "\n" + stderr)
	}

	return strings.TrimSpace(stdout)
}
