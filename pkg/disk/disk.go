// Package disk remounts source drives read-only, so that nothing modifies
// them while they're being transferred.
package disk

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

// Range is an inclusive range of disk numbers.
type Range struct {
	First int
	Last  int
}

// Validate checks that the range doesn't include the boot disk.
func (r Range) Validate() error {
	if r.First <= 1 {
		return errors.ValidationError{
			Field:  "disk",
			Value:  strconv.Itoa(r.First),
			Reason: "must be greater than 1, which is the boot disk",
		}
	}
	if r.Last < r.First {
		return errors.ValidationError{
			Field:  "max disk",
			Value:  strconv.Itoa(r.Last),
			Reason: fmt.Sprintf("must not be less than the first disk (%d)", r.First),
		}
	}
	return nil
}

// DevicePath returns the data partition of disk n.
func DevicePath(n int) string {
	return fmt.Sprintf("/dev/disk%ds2", n)
}

// Remounter drives diskutil.
type Remounter struct {
	Runner runner.Runner
}

// RemountReadOnly unmounts each disk in r, and mounts it again read-only.
func (m Remounter) RemountReadOnly(ctx context.Context, r Range) error {
	if err := r.Validate(); err != nil {
		return err
	}

	for n := r.First; n <= r.Last; n++ {
		path := DevicePath(n)
		log.WithField("device", path).Info("Remounting read-only")

		_, err := m.Runner.Run(ctx, runner.Command{
			Name: "diskutil",
			Args: []string{"unmount", path},
		})
		if err != nil {
			return errors.WithContext(err, "unmount "+path)
		}

		_, err = m.Runner.Run(ctx, runner.Command{
			Name: "diskutil",
			Args: []string{"mount", "readOnly", path},
		})
		if err != nil {
			return errors.WithContext(err, "mount "+path)
		}
	}
	return nil
}
