package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

func TestProbe(t *testing.T) {
	endpoint := "http://192.168.1.10:8080"
	failed := errors.CommandFailed{Command: []string{"aws"}, ExitCode: 255}
	timedOut := errors.WithContext(errors.ErrTimeout, "aws")

	tests := []struct {
		name       string
		timeout    time.Duration
		runErr     error
		expOK      bool
		expErr     error
		expTimeout time.Duration
	}{
		{
			name:       "Reachable",
			expOK:      true,
			expTimeout: DefaultTimeout,
		},
		{
			name:    "TimedOut",
			timeout: time.Second,
			runErr:  timedOut,
			expErr: errors.AccessTimeout{
				Endpoint: endpoint,
				Timeout:  time.Second,
				Cause:    timedOut,
			},
			expTimeout: time.Second,
		},
		{
			name:       "Rejected",
			runErr:     failed,
			expErr:     errors.WithContext(failed, "list buckets"),
			expTimeout: DefaultTimeout,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fake := &runner.Fake{Handle: func(runner.Command) (runner.Result, error) {
				return runner.Result{}, test.runErr
			}}

			ok, err := Checker{Runner: fake, Timeout: test.timeout}.Probe(
				context.Background(), "snowcli-abc", endpoint)
			assert.Equal(t, test.expOK, ok)
			assert.Equal(t, test.expErr, err)
			assert.Equal(t, errors.Is(test.runErr, errors.ErrTimeout), errors.Is(err, errors.ErrTimeout))

			calls := fake.Calls()
			assert.Len(t, calls, 1)
			assert.Equal(t, []string{"s3", "ls", "--profile", "snowcli-abc",
				"--endpoint-url", endpoint}, calls[0].Args)
			assert.Equal(t, test.expTimeout, calls[0].Timeout)
		})
	}
}
