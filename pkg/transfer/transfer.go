// Package transfer uploads drives with the AWS CLI. Small sidecar files are
// bundled into a single archive that the appliance extracts on arrival, and
// media files are synced individually.
package transfer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

// DeepArchive is the storage class used for the cloud archive tier.
const DeepArchive = "DEEP_ARCHIVE"

// autoExtractMetadata tells the appliance to unpack an uploaded tar in place.
const autoExtractMetadata = "snowball-auto-extract=true"

// Uploader invokes the AWS CLI against a single endpoint.
type Uploader struct {
	Runner runner.Runner

	// Profile and Endpoint are omitted from commands when empty, so the
	// CLI's defaults apply.
	Profile  string
	Endpoint string

	StorageClass string
	DryRun       bool

	// SidecarExtensions select the files bundled into the sidecar archive.
	SidecarExtensions []string
}

// DriveName returns the name that identifies a drive in the bucket.
func DriveName(drive string) string {
	return filepath.Base(filepath.Clean(drive))
}

// DrivePrefix returns the key prefix of a drive's objects.
func DrivePrefix(prefix, drive string) string {
	if prefix == "" {
		return DriveName(drive)
	}
	return strings.TrimSuffix(prefix, "/") + "/" + DriveName(drive)
}

// URI returns the S3 URI of key in bucket.
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

func (u Uploader) commonArgs() []string {
	var args []string
	if u.DryRun {
		args = append(args, "--dryrun")
	}
	if u.StorageClass != "" {
		args = append(args, "--storage-class", u.StorageClass)
	}
	if u.Profile != "" {
		args = append(args, "--profile", u.Profile)
	}
	if u.Endpoint != "" {
		args = append(args, "--endpoint-url", u.Endpoint)
	}
	return args
}

// sidecarPatterns returns the sync filters that select the sidecar files.
func (u Uploader) sidecarPatterns() []string {
	var patterns []string
	for _, ext := range u.SidecarExtensions {
		patterns = append(patterns, "*"+ext)
	}
	return patterns
}

// SyncCommand returns the `aws s3 sync` command that uploads the files in
// source that match includes.
func (u Uploader) SyncCommand(source, dest string, includes []string) runner.Command {
	args := append([]string{"s3", "sync"}, u.commonArgs()...)
	args = append(args, filterArgs(includes)...)
	args = append(args, source, dest)
	return runner.Command{Name: "aws", Args: args, Stream: true}
}

// Sync uploads the files in source that match includes.
func (u Uploader) Sync(ctx context.Context, source, dest string, includes []string) error {
	log.WithField("source", source).WithField("dest", dest).Info("Syncing files")
	_, err := u.Runner.Run(ctx, u.SyncCommand(source, dest, includes))
	return err
}

// ApplianceJob describes the upload of a drive to the appliance.
type ApplianceJob struct {
	Drive  string
	Bucket string
	Prefix string

	// Restart resumes an interrupted transfer. The sidecar archive was
	// already uploaded by the first attempt, so only the media sync runs.
	Restart bool
}

// ToAppliance uploads the drive's sidecar archive and media files.
func (u Uploader) ToAppliance(ctx context.Context, job ApplianceJob) error {
	prefix := DrivePrefix(job.Prefix, job.Drive)
	if job.Restart {
		log.Info("Resuming transfer. Skipping the sidecar archive")
	} else {
		key := prefix + "/" + DriveName(job.Drive) + ".tar"
		if err := u.UploadSidecarArchive(ctx, job.Drive, URI(job.Bucket, key)); err != nil {
			return errors.WithContext(err, "upload sidecar archive")
		}
	}

	if err := u.Sync(ctx, job.Drive, URI(job.Bucket, prefix+"/"), BigFilePatterns); err != nil {
		return errors.WithContext(err, "sync media files")
	}
	return nil
}

// ToApplianceEavie syncs only the edit master and service copy files of the
// drive. They're stored directly under the bucket rather than the prefix.
func (u Uploader) ToApplianceEavie(ctx context.Context, drive, bucket string) error {
	if err := u.Sync(ctx, drive, URI(bucket, DriveName(drive)), EaviePatterns); err != nil {
		return errors.WithContext(err, "sync eavie files")
	}
	return nil
}

// ArchiveJob describes the upload of a drive to the cloud archive tier.
type ArchiveJob struct {
	Drive  string
	Bucket string
	Prefix string

	// MetadataOnly uploads the sidecar files without the media.
	MetadataOnly bool
}

// ToArchive syncs the drive's sidecar files, and then its media files unless
// only metadata was requested.
func (u Uploader) ToArchive(ctx context.Context, job ArchiveJob) error {
	dest := URI(job.Bucket, DrivePrefix(job.Prefix, job.Drive)+"/")
	if sidecars := u.sidecarPatterns(); len(sidecars) == 0 {
		log.Debug("No sidecar extensions configured. Skipping the sidecar sync")
	} else if err := u.Sync(ctx, job.Drive, dest, sidecars); err != nil {
		return errors.WithContext(err, "sync sidecar files")
	}

	if job.MetadataOnly {
		return nil
	}

	if err := u.Sync(ctx, job.Drive, dest, ArchivePatterns); err != nil {
		return errors.WithContext(err, "sync media files")
	}
	return nil
}
