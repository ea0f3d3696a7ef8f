package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Command is an external program invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the current process environment.
	Env []string
}

// With returns a copy of c with arg appended.
func (c Command) With(arg string) Command {
	args := make([]string, len(c.Args), len(c.Args)+1)
	copy(args, c.Args)
	c.Args = append(args, arg)
	return c
}

// Runner executes commands. It is an interface so tests can fake it.
type Runner interface {
	// LookPath reports where an executable is installed.
	LookPath(file string) (string, error)

	// Run executes c to completion and returns its exit code and stderr.
	// A non-zero exit is not an error; err is set only when c could not
	// be run at all.
	Run(ctx context.Context, c Command) (exitCode int, stderr []byte, err error)

	// Start launches c and returns its stdout together with a function that
	// reaps the process. The caller closes stdout before calling wait.
	Start(c Command) (stdout io.ReadCloser, wait func() error, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = ExecRunner{}

func (ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (ExecRunner) Run(ctx context.Context, c Command) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return exitErr.ExitCode(), stderr.Bytes(), nil
	}
	if err != nil {
		return -1, stderr.Bytes(), err
	}
	return 0, stderr.Bytes(), nil
}

func (ExecRunner) Start(c Command) (io.ReadCloser, func() error, error) {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	wait := func() error {
		err := cmd.Wait()
		// The exit status of a remote cat whose pipe was closed early is
		// expected to be non-zero or a SIGPIPE.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}
	return stdout, wait, nil
}
