package transfer

import (
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/device"
	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/listing"
	"github.com/sidkik/snowxfer/pkg/profile"
	"github.com/sidkik/snowxfer/pkg/reconcile"
	"github.com/sidkik/snowxfer/pkg/runner"
	"github.com/sidkik/snowxfer/pkg/transfer"
)

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	newRunner            = func() runner.Runner { return runner.New() }
	loadConfig           = config.Load
	newStore             = util.ProfileStore
)

type options struct {
	drive     string
	overrides config.User
	checkOnly bool
	restart   bool
	eavie     bool
}

// New creates a new `transfer` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Upload a drive to the Snowball Edge and check that it's complete",
		Long: "Upload a drive to the Snowball Edge. The drive's sidecar files are\n" +
			"uploaded as a single archive that the device extracts, and media files\n" +
			"are synced individually. The drive is then compared with the objects\n" +
			"on the device.\n\n" +
			"The profile and IP default to the values saved by `snowxfer configure`.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&opts.drive, "drive", "d", "", "Path to the drive to transfer")
	cmd.Flags().StringVar(&opts.overrides.Profile, "profile", "", "AWS CLI profile of the device")
	cmd.Flags().StringVarP(&opts.overrides.IP, "ip", "i", "", "IP address of the device")
	cmd.Flags().StringVarP(&opts.overrides.Bucket, "bucket", "b", "", "Destination bucket")
	cmd.Flags().StringVarP(&opts.overrides.SnowballPrefix, "prefix", "p", "",
		"Prefix within the destination bucket")
	cmd.Flags().BoolVar(&opts.checkOnly, "check-only", false,
		"Only compare the drive with the device")
	cmd.Flags().BoolVar(&opts.restart, "restart", false,
		"Resume an interrupted transfer without uploading the sidecar archive again")
	cmd.Flags().BoolVar(&opts.eavie, "eavie", false,
		"Only sync edit master and service copy files to the root of the bucket")
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

	if cfg.Profile == "" {
		return errors.ValidationError{
			Field:  "profile",
			Reason: "must be set with --profile, or saved by `snowxfer configure`",
		}
	}
	if err := device.ValidateIP(cfg.IP); err != nil {
		return err
	}
	if err := profile.ValidateExists(newStore(cfg), cfg.Profile); err != nil {
		return err
	}

	r := newRunner()
	endpoint := device.S3Endpoint(cfg.IP)
	uploader := transfer.Uploader{
		Runner:            r,
		Profile:           cfg.Profile,
		Endpoint:          endpoint,
		SidecarExtensions: cfg.SidecarExtensions,
	}

	if opts.eavie {
		if err := uploader.ToApplianceEavie(ctx, opts.drive, cfg.Bucket); err != nil {
			return errors.WithContext(err, "transfer")
		}
		return nil
	}

	if !opts.checkOnly {
		err := uploader.ToAppliance(ctx, transfer.ApplianceJob{
			Drive:   opts.drive,
			Bucket:  cfg.Bucket,
			Prefix:  cfg.SnowballPrefix,
			Restart: opts.restart,
		})
		if err != nil {
			return errors.WithContext(err, "transfer")
		}
	}

	engine := reconcile.Engine{
		Lister: listing.Lister{
			Source: listing.CLIPageSource{Runner: r, Profile: cfg.Profile},
		},
		Source: util.SourceOptions(cfg),
	}
	req := listing.Request{
		Endpoint: endpoint,
		Bucket:   cfg.Bucket,
		Prefix:   transfer.DrivePrefix(cfg.SnowballPrefix, opts.drive) + "/",
	}
	log.WithField("request", req.String()).Info("Checking transfer")
	res, err := engine.CheckTransfer(ctx, opts.drive, req)
	if err != nil {
		return errors.WithContext(err, "check transfer")
	}

	util.PrintReport(stdout, res)
	return nil
}
