package archive

import (
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/listing"
	"github.com/sidkik/snowxfer/pkg/manifest"
	"github.com/sidkik/snowxfer/pkg/reconcile"
	"github.com/sidkik/snowxfer/pkg/runner"
	"github.com/sidkik/snowxfer/pkg/transfer"
)

// Mocked for unit testing.
var (
	stdout        io.Writer = os.Stdout
	newRunner               = func() runner.Runner { return runner.New() }
	loadConfig              = config.Load
	newPageSource           = newSDKPageSource
)

type options struct {
	drive        string
	overrides    config.User
	storageClass string
	metadataOnly bool
	checkOnly    bool
	dryRun       bool
}

// New creates a new `archive` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Upload a drive directly to the archive storage class",
		Long: "Upload a drive to S3 in the Deep Archive storage class, without going\n" +
			"through a Snowball Edge. Sidecar files are synced first, followed by\n" +
			"media files unless --metadata-only is set. The drive is then compared\n" +
			"with the objects in the bucket.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&opts.drive, "drive", "d", "", "Path to the drive to upload")
	cmd.Flags().StringVarP(&opts.overrides.Bucket, "bucket", "b", "", "Destination bucket")
	cmd.Flags().StringVarP(&opts.overrides.ArchivePrefix, "prefix", "p", "",
		"Prefix within the destination bucket")
	cmd.Flags().StringVar(&opts.overrides.ArchiveProfile, "profile", "",
		"AWS CLI profile to upload with. Defaults to the default credential chain")
	cmd.Flags().StringVar(&opts.overrides.Region, "region", "", "Region of the bucket")
	cmd.Flags().StringVar(&opts.storageClass, "storage-class", transfer.DeepArchive,
		"Storage class of the uploaded objects")
	cmd.Flags().BoolVar(&opts.metadataOnly, "metadata-only", false,
		"Only upload sidecar files")
	cmd.Flags().BoolVar(&opts.checkOnly, "check-only", false,
		"Only compare the drive with the bucket")
	cmd.Flags().BoolVar(&opts.dryRun, "dryrun", false,
		"Show what would be uploaded without uploading it")
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

	if !opts.checkOnly {
		uploader := transfer.Uploader{
			Runner:            newRunner(),
			Profile:           cfg.ArchiveProfile,
			StorageClass:      opts.storageClass,
			DryRun:            opts.dryRun,
			SidecarExtensions: cfg.SidecarExtensions,
		}
		err := uploader.ToArchive(ctx, transfer.ArchiveJob{
			Drive:        opts.drive,
			Bucket:       cfg.Bucket,
			Prefix:       cfg.ArchivePrefix,
			MetadataOnly: opts.metadataOnly,
		})
		if err != nil {
			return errors.WithContext(err, "upload")
		}
	}

	if opts.dryRun {
		log.Info("Dry run. Skipping the transfer check")
		return nil
	}

	source, err := newPageSource(ctx, cfg)
	if err != nil {
		return errors.WithContext(err, "create S3 client")
	}

	// Sidecar files are synced as individual objects, so they count towards
	// the transfer.
	engine := reconcile.Engine{
		Lister: listing.Lister{Source: source},
		Source: manifest.SourceOptions{Subtrees: cfg.Subtrees},
	}
	req := listing.Request{
		Bucket: cfg.Bucket,
		Prefix: transfer.DrivePrefix(cfg.ArchivePrefix, opts.drive) + "/",
	}
	log.WithField("request", req.String()).Info("Checking transfer")
	res, err := engine.CheckTransfer(ctx, opts.drive, req)
	if err != nil {
		return errors.WithContext(err, "check transfer")
	}

	util.PrintReport(stdout, res)
	return nil
}

func newSDKPageSource(ctx context.Context, cfg config.User) (listing.PageSource, error) {
	client, err := listing.NewClient(ctx, listing.ClientConfig{
		Profile: cfg.ArchiveProfile,
		Region:  cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return listing.SDKPageSource{Client: client}, nil
}
