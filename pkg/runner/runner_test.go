package runner

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/snowxfer/pkg/errors"
)

func requireShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

func TestExecRun(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name      string
		cmd       Command
		expStdout string
		expStderr string
		expCode   int
		expError  error
	}{
		{
			name:      "Success",
			cmd:       Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}},
			expStdout: "out\n",
			expStderr: "err\n",
		},
		{
			name:      "Stdin",
			cmd:       Command{Name: "sh", Args: []string{"-c", "cat"}, Stdin: strings.NewReader("piped")},
			expStdout: "piped",
		},
		{
			name:      "NonZeroExit",
			cmd:       Command{Name: "sh", Args: []string{"-c", "echo nope >&2; exit 3"}},
			expStderr: "nope\n",
			expCode:   3,
			expError: errors.CommandFailed{
				Command:  []string{"sh", "-c", "echo nope >&2; exit 3"},
				ExitCode: 3,
				Stderr:   "nope\n",
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			res, err := New().Run(context.Background(), test.cmd)
			assert.Equal(t, test.expStdout, res.Stdout)
			assert.Equal(t, test.expStderr, res.Stderr)
			assert.Equal(t, test.expCode, res.ExitCode)
			assert.Equal(t, test.expError, err)
		})
	}
}

func TestExecRunTimeout(t *testing.T) {
	requireShell(t)

	start := time.Now()
	_, err := New().Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "exec sleep 5"},
		Timeout: 100 * time.Millisecond,
	})
	assert.True(t, errors.Is(err, errors.ErrTimeout))
	assert.True(t, time.Since(start) < 5*time.Second)
}

func TestExecRunNotFound(t *testing.T) {
	_, err := New().Run(context.Background(), Command{Name: "snowxfer-does-not-exist"})
	_, ok := errors.GetFriendlyMessage(err)
	assert.True(t, ok)
}

func TestExecRunStream(t *testing.T) {
	requireShell(t)

	var out bytes.Buffer
	origOut := consoleOut
	consoleOut = &out
	defer func() { consoleOut = origOut }()

	res, err := New().Run(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", "echo progress"},
		Stream: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, "progress\n", res.Stdout)
	assert.Equal(t, "progress\n", out.String())
}

func TestExecRunEnv(t *testing.T) {
	requireShell(t)

	r := &Exec{Env: map[string]string{"SNOWXFER_TEST": "value"}}
	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "printf %s \"$SNOWXFER_TEST\""}})
	assert.NoError(t, err)
	assert.Equal(t, "value", res.Stdout)
}

func TestFake(t *testing.T) {
	fake := &Fake{Handle: func(cmd Command) (Result, error) {
		if HasPrefix(cmd, "aws", "s3") {
			return Result{Stdout: string(ReadStdin(cmd))}, nil
		}
		return Result{}, errors.New("unexpected")
	}}

	res, err := fake.Run(context.Background(), Command{
		Name:  "aws",
		Args:  []string{"s3", "cp", "--profile", "p", "-"},
		Stdin: strings.NewReader("tarball"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "tarball", res.Stdout)

	_, err = fake.Run(context.Background(), Command{Name: "tar"})
	assert.EqualError(t, err, "unexpected")

	assert.Len(t, fake.Calls(), 2)
	calls := fake.CallsTo("aws", "s3", "cp")
	assert.Len(t, calls, 1)
	profile, ok := Flag(calls[0], "--profile")
	assert.True(t, ok)
	assert.Equal(t, "p", profile)
	assert.Equal(t, []byte("tarball"), ReadStdin(calls[0]))
}
