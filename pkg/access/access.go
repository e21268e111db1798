// Package access checks that a profile can reach the device's object API.
package access

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

// DefaultTimeout bounds the probe when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Checker probes endpoints with `aws s3 ls`.
type Checker struct {
	Runner  runner.Runner
	Timeout time.Duration
}

// Probe returns whether the endpoint answered a bucket listing with the
// given profile. A probe that exceeds the timeout returns an
// errors.AccessTimeout. Probes are never retried.
func (c Checker) Probe(ctx context.Context, profile, endpoint string) (bool, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	_, err := c.Runner.Run(ctx, runner.Command{
		Name:    "aws",
		Args:    []string{"s3", "ls", "--profile", profile, "--endpoint-url", endpoint},
		Timeout: timeout,
	})
	switch {
	case err == nil:
		log.WithField("endpoint", endpoint).Debug("Endpoint is reachable")
		return true, nil
	case errors.Is(err, errors.ErrTimeout):
		return false, errors.AccessTimeout{Endpoint: endpoint, Timeout: timeout, Cause: err}
	default:
		return false, errors.WithContext(err, "list buckets")
	}
}
