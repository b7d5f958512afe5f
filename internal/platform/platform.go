package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"
	"go.uber.org/zap"

	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/process"
	"github.com/oshokin/snapx/internal/snapaware"
)

// ErrNotSupported is returned for actions the host OS does not implement.
var ErrNotSupported = errors.New("not supported on this platform")

// linuxCommLength is the length Linux truncates process names to.
const linuxCommLength = 15

// SpecialFolder names a well-known per-user directory.
type SpecialFolder string

// Special folders.
const (
	FolderDesktop      SpecialFolder = "Desktop"
	FolderStartMenu    SpecialFolder = "StartMenu"
	FolderLocalAppData SpecialFolder = "LocalAppData"
)

// Shortcut describes a launcher for an installed executable.
type Shortcut struct {
	// Name is the display name and file name stem.
	Name string
	// Target is the executable to start.
	Target string
	// WorkingDir is the directory the target starts in.
	WorkingDir string
	// Description is an optional tooltip.
	Description string
	// Locations lists where shortcuts are created.
	Locations []SpecialFolder
}

// Capability is the set of OS-specific actions the installer needs.
type Capability interface {
	// InvokeProcess runs a helper executable.
	InvokeProcess(ctx context.Context, command string, args []string, workingDir string) (*process.Result, error)
	// CreateShortcuts creates launchers for shortcut in every requested location.
	CreateShortcuts(ctx context.Context, shortcut *Shortcut) error
	// GetSpecialFolder resolves a well-known directory.
	GetSpecialFolder(folder SpecialFolder) (string, error)
	// GetInstalledSpecAwareBinaries lists spec-aware binaries under dir.
	GetInstalledSpecAwareBinaries(ctx context.Context, dir string, minVersion uint32) ([]snapaware.Binary, error)
	// TerminateProcesses kills running processes with the given executable names.
	TerminateProcesses(ctx context.Context, names []string) error
}

// Invoker is the process runner used by capabilities.
type Invoker interface {
	Invoke(ctx context.Context, command string, args []string, workingDir string) (*process.Result, error)
}

// Current returns the capability of the host OS.
func Current(log *zap.SugaredLogger, runner Invoker) Capability {
	return newCapability(newBase(log, runner, runtime.GOOS))
}

// base holds the actions shared by every OS.
type base struct {
	// log is the platform logger.
	log *zap.SugaredLogger
	// runner starts processes.
	runner Invoker
	// scanner finds spec-aware binaries.
	scanner *snapaware.Scanner
	// goos is the host operating system.
	goos string
	// processes lists running processes.
	processes func() ([]ps.Process, error)
	// kill terminates a process by pid.
	kill func(pid int) error
}

func newBase(log *zap.SugaredLogger, runner Invoker, goos string) *base {
	log = logger.OrNop(log)

	if runner == nil {
		runner = process.NewRunner(log)
	}

	return &base{
		log:       log,
		runner:    runner,
		scanner:   snapaware.NewScanner(log),
		goos:      goos,
		processes: ps.Processes,
		kill:      killProcess,
	}
}

func (b *base) InvokeProcess(
	ctx context.Context,
	command string,
	args []string,
	workingDir string,
) (*process.Result, error) {
	return b.runner.Invoke(ctx, command, args, workingDir)
}

func (b *base) GetInstalledSpecAwareBinaries(
	ctx context.Context,
	dir string,
	minVersion uint32,
) ([]snapaware.Binary, error) {
	return b.scanner.Scan(ctx, dir, minVersion)
}

// TerminateProcesses kills every process whose executable matches one of
// names, except the current process.
func (b *base) TerminateProcesses(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	processList, err := b.processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	self := os.Getpid()

	var errs []error

	for _, proc := range processList {
		if err = ctx.Err(); err != nil {
			return err
		}

		if proc.Pid() == self || !b.matchesAny(proc.Executable(), names) {
			continue
		}

		if err = b.kill(proc.Pid()); err != nil {
			errs = append(errs, fmt.Errorf("kill %s (pid %d): %w", proc.Executable(), proc.Pid(), err))

			continue
		}

		b.log.Infow("Terminated process", "name", proc.Executable(), "pid", proc.Pid())
	}

	return errors.Join(errs...)
}

func (b *base) matchesAny(executable string, names []string) bool {
	for _, name := range names {
		if b.matches(executable, name) {
			return true
		}
	}

	return false
}

// matches compares a process executable with a file name. Windows names are
// case-insensitive; Linux reports names truncated to 15 bytes.
func (b *base) matches(executable, name string) bool {
	switch b.goos {
	case "windows":
		return strings.EqualFold(executable, name)
	case "linux":
		if len(executable) == linuxCommLength && len(name) > linuxCommLength {
			return strings.HasPrefix(name, executable)
		}

		return executable == name
	default:
		return executable == name
	}
}

func killProcess(pid int) error {
	running, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return running.Kill()
}
