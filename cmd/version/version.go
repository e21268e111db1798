package version

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/device"
	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
	"github.com/sidkik/snowxfer/pkg/version"
)

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	newRunner            = func() runner.Runner { return runner.New() }
	loadConfig           = config.Load
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of snowxfer and of the Snowball Edge client.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background()); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run(ctx context.Context) error {
	fmt.Fprintf(stdout, "snowxfer version: %s\n", version.Version)

	cfg, err := loadConfig(config.User{})
	if err != nil {
		return errors.WithContext(err, "load config")
	}

	clientVersion, err := device.CheckClientVersion(ctx, newRunner(), cfg.MinClientVersion)
	if err != nil {
		return errors.WithContext(err, "get client version")
	}
	fmt.Fprintf(stdout, "client version:   %s\n", clientVersion)
	return nil
}
