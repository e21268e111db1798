// Package runner executes the external tools that snowxfer drives: the device
// management client, the AWS CLI, tar and diskutil. Every other package talks
// to those tools through the Runner interface so that tests can script their
// responses.
package runner

import (
	"bytes"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// Command describes a single invocation of an external program.
type Command struct {
	Name string
	Args []string

	// Stdin is piped into the process if set.
	Stdin io.Reader

	// Timeout bounds the command. Zero means the command runs to completion.
	Timeout time.Duration

	// Stream copies the process output to the console as it's produced, in
	// addition to capturing it. Used for long running transfers so the
	// operator can see progress.
	Stream bool
}

// Argv returns the program name followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec runs commands as local processes.
type Exec struct {
	// Env is appended to the current environment of every command.
	Env map[string]string
}

// New returns a Runner that executes local processes.
func New() *Exec {
	return &Exec{}
}

// waitDelay bounds how long a killed process may keep its output pipes open,
// e.g. when it left children behind.
const waitDelay = 2 * time.Second

// Mocked for unit testing.
var (
	consoleOut io.Writer = os.Stdout
	consoleErr io.Writer = os.Stderr
)

// Run executes cmd and waits for it to exit. A non-zero exit status is
// returned as an errors.CommandFailed, and a command that exceeds its
// timeout returns errors.ErrTimeout.
func (e *Exec) Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.WaitDelay = waitDelay
	if len(e.Env) > 0 {
		proc.Env = os.Environ()
		for k, v := range e.Env {
			proc.Env = append(proc.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	if cmd.Stdin != nil {
		proc.Stdin = cmd.Stdin
	}

	var stdout, stderr bytes.Buffer
	proc.Stdout, proc.Stderr = &stdout, &stderr
	if cmd.Stream {
		proc.Stdout = io.MultiWriter(&stdout, consoleOut)
		proc.Stderr = io.MultiWriter(&stderr, consoleErr)
	}

	log.WithField("command", cmd.String()).Debug("Running command")
	start := time.Now()
	err := proc.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	log.WithField("command", cmd.Name).
		WithField("duration", time.Since(start)).
		Debug("Command finished")

	if err == nil {
		return res, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		return res, errors.WithContext(errors.ErrTimeout, cmd.Name)
	}

	var exitErr *exec.ExitError
	if goerrors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, errors.CommandFailed{
			Command:  cmd.Argv(),
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}

	res.ExitCode = -1
	if goerrors.Is(err, exec.ErrNotFound) {
		return res, errors.NewFriendlyError("%q was not found in your PATH. "+
			"Please install it before running snowxfer.", cmd.Name)
	}
	return res, errors.WithContext(err, "run "+cmd.Name)
}
