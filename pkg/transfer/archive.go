package transfer

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/manifest"
	"github.com/sidkik/snowxfer/pkg/runner"
)

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

// UploadSidecarArchive streams a tar of every sidecar file under drive to
// dest. The entries are relative to the drive, so the appliance extracts them
// next to the drive's other objects.
func (u Uploader) UploadSidecarArchive(ctx context.Context, drive, dest string) error {
	pr, pw := io.Pipe()
	produced := make(chan error, 1)
	go func() {
		err := u.writeSidecarArchive(drive, pw)
		pw.CloseWithError(err)
		produced <- err
	}()

	args := []string{"s3", "cp", "--metadata", autoExtractMetadata}
	args = append(args, u.commonArgs()...)
	args = append(args, "-", dest)

	log.WithField("dest", dest).Info("Uploading sidecar archive")
	_, runErr := u.Runner.Run(ctx, runner.Command{
		Name:   "aws",
		Args:   args,
		Stdin:  pr,
		Stream: true,
	})

	// Unblock the producer if the upload stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	prodErr := <-produced

	if runErr != nil {
		return runErr
	}
	if prodErr != nil {
		return errors.WithContext(prodErr, "write archive")
	}
	return nil
}

func (u Uploader) writeSidecarArchive(drive string, w io.Writer) error {
	tw := tar.NewWriter(w)
	count := 0
	err := afero.Walk(fs, drive, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !fi.Mode().IsRegular() {
			return nil
		}

		relativePath, err := filepath.Rel(drive, path)
		if err != nil {
			return errors.WithContext(err, "normalize path")
		}
		relativePath = filepath.ToSlash(relativePath)
		if !u.isSidecar(relativePath) {
			return nil
		}

		if err := addToArchive(tw, path, relativePath, fi); err != nil {
			return errors.WithContext(err, "add "+relativePath)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	log.WithField("files", count).Debug("Wrote sidecar archive")
	return tw.Close()
}

// isSidecar returns whether the file at the drive-relative path belongs in the
// sidecar archive. The sync filters' exclusions apply to the archive too.
func (u Uploader) isSidecar(path string) bool {
	if manifest.IsExcluded(path) {
		return false
	}
	ext := filepath.Ext(path)
	for _, sidecar := range u.SidecarExtensions {
		if ext == sidecar {
			return true
		}
	}
	return false
}

func addToArchive(tw *tar.Writer, path, name string, fi os.FileInfo) error {
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = name

	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
