package check

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/device"
	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/listing"
	"github.com/sidkik/snowxfer/pkg/manifest"
	"github.com/sidkik/snowxfer/pkg/profile"
	"github.com/sidkik/snowxfer/pkg/reconcile"
	"github.com/sidkik/snowxfer/pkg/transfer"
)

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	loadConfig           = config.Load
	newClient            = func(ctx context.Context, cfg listing.ClientConfig) (listing.ListObjectsV2API, error) {
		return listing.NewClient(ctx, cfg)
	}
)

type options struct {
	drive     string
	overrides config.User
	archive   bool
}

// New creates a new `check` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare a drive with the objects that were uploaded from it",
		Long: "Compare a drive with the objects under its prefix, and print the files\n" +
			"that remain to be transferred. The Snowball Edge is checked by default.\n" +
			"Nothing is uploaded.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&opts.drive, "drive", "d", "", "Path to the drive to check")
	cmd.Flags().BoolVar(&opts.archive, "archive", false,
		"Check the archive prefix in S3 rather than the Snowball Edge")
	cmd.Flags().StringVar(&opts.overrides.Profile, "profile", "",
		"AWS CLI profile of the device")
	cmd.Flags().StringVarP(&opts.overrides.IP, "ip", "i", "", "IP address of the device")
	cmd.Flags().StringVarP(&opts.overrides.Bucket, "bucket", "b", "", "Destination bucket")
	cmd.Flags().StringVarP(&opts.overrides.SnowballPrefix, "prefix", "p", "",
		"Prefix of the Snowball Edge transfer within the bucket")
	cmd.Flags().StringVar(&opts.overrides.ArchivePrefix, "archive-prefix", "",
		"Prefix of the archive transfer within the bucket")
	if err := cmd.MarkFlagRequired("drive"); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, opts options) error {
	if err := util.ValidateDrive(opts.drive); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.overrides)
	if err != nil {
		return errors.WithContext(err, "load config")
	}

	var clientCfg listing.ClientConfig
	var sourceOpts manifest.SourceOptions
	var prefix string
	if opts.archive {
		clientCfg = listing.ClientConfig{Profile: cfg.ArchiveProfile, Region: cfg.Region}
		sourceOpts = manifest.SourceOptions{Subtrees: cfg.Subtrees}
		prefix = cfg.ArchivePrefix
	} else {
		if err := device.ValidateIP(cfg.IP); err != nil {
			return err
		}
		// The device only accepts requests signed for the region that
		// `configure` writes to its profile.
		clientCfg = listing.ClientConfig{
			Profile:  cfg.Profile,
			Region:   profile.Region,
			Endpoint: device.S3Endpoint(cfg.IP),
		}
		sourceOpts = util.SourceOptions(cfg)
		prefix = cfg.SnowballPrefix
	}

	client, err := newClient(ctx, clientCfg)
	if err != nil {
		return errors.WithContext(err, "create S3 client")
	}

	engine := reconcile.Engine{
		Lister: listing.Lister{Source: listing.SDKPageSource{Client: client}},
		Source: sourceOpts,
	}
	res, err := engine.CheckTransfer(ctx, opts.drive, listing.Request{
		Endpoint: clientCfg.Endpoint,
		Bucket:   cfg.Bucket,
		Prefix:   transfer.DrivePrefix(prefix, opts.drive) + "/",
	})
	if err != nil {
		return errors.WithContext(err, "check transfer")
	}

	util.PrintReport(stdout, res)
	return nil
}
