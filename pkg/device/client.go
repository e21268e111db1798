package device

import (
	"context"
	"regexp"
	"time"

	"github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

const versionTimeout = 30 * time.Second

// CheckClientVersion returns the version of the installed management client,
// and warns if it's older than minimum.
func CheckClientVersion(ctx context.Context, r runner.Runner, minimum string) (*version.Version, error) {
	res, err := r.Run(ctx, runner.Command{
		Name:    clientBinary,
		Args:    []string{"version"},
		Timeout: versionTimeout,
	})
	if err != nil {
		return nil, errors.WithContext(err, "get client version")
	}

	installed, err := parseClientVersion(res.Stdout)
	if err != nil {
		return nil, err
	}

	minVersion, err := version.NewVersion(minimum)
	if err != nil {
		return nil, errors.WithContext(err, "parse minimum client version")
	}

	if installed.LessThan(minVersion) {
		log.WithField("installed", installed.String()).
			WithField("minimum", minVersion.String()).
			Warnf("%s is older than the minimum supported version. "+
				"Unlocking may not work as expected.", clientBinary)
	}
	return installed, nil
}

func parseClientVersion(output string) (*version.Version, error) {
	match := versionPattern.FindString(output)
	if match == "" {
		return nil, errors.NewFriendlyError("Unable to determine the version of %s "+
			"from its output:\n%s", clientBinary, output)
	}

	v, err := version.NewVersion(match)
	if err != nil {
		return nil, errors.WithContext(err, "parse client version")
	}
	return v, nil
}
