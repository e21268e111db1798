package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/buger/goterm"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/manifest"
	"github.com/sidkik/snowxfer/pkg/profile"
)

// Mocked for unit testing.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
	fs               = afero.NewOsFs()
)

// HandleFatalError logs the error and exits. Errors with a friendly message
// are printed as is, and the full error is only logged in verbose mode.
func HandleFatalError(err error) {
	if msg, ok := errors.GetFriendlyMessage(err); ok {
		fmt.Fprintln(stderr, msg)
		log.WithError(err).Debug("Fatal error")
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic recovers from a panic and logs the stack before exiting. It
// must be deferred directly.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).
			Errorf("Unexpected panic: %v", r)
		exit(1)
	}
}

// ValidateDrive checks that the path is an existing directory.
func ValidateDrive(path string) error {
	fi, err := fs.Stat(path)
	switch {
	case os.IsNotExist(err):
		return errors.ValidationError{Field: "drive", Value: path, Reason: "path does not exist"}
	case err != nil:
		return errors.WithContext(err, "stat drive")
	case !fi.IsDir():
		return errors.ValidationError{Field: "drive", Value: path, Reason: "is not a directory"}
	}
	return nil
}

// SourceOptions returns the subtrees and sidecar files that the config
// selects for reconciliation.
func SourceOptions(cfg config.User) manifest.SourceOptions {
	return manifest.SourceOptions{
		Subtrees:          cfg.Subtrees,
		SidecarExtensions: cfg.SidecarExtensions,
	}
}

// ProfileStore returns the AWS CLI profile store that the config points to.
func ProfileStore(cfg config.User) profile.Store {
	return profile.FileStore{
		CredentialsPath: cfg.CredentialsPath,
		ConfigPath:      cfg.ClientConfigPath,
	}
}

// PrintReport writes the result of a reconciliation for the operator. A nil
// result means that the drive is fully transferred.
func PrintReport(w io.Writer, res *manifest.Result) {
	if res == nil {
		fmt.Fprintln(w, goterm.Color("Drive transfer seems good", goterm.GREEN))
		return
	}

	if len(res.SourceOnly) != 0 {
		fmt.Fprintln(w, "Files on the source drive that are missing from the destination:")
		for _, record := range res.SourceOnly.Sorted() {
			fmt.Fprintf(w, "\t%s (%s)\n", record.Path, humanize.Bytes(uint64(record.Size)))
		}
	}

	if len(res.RemoteOnly) != 0 {
		fmt.Fprintln(w, "Objects in the destination that don't match a source file:")
		for _, record := range res.RemoteOnly.Sorted() {
			fmt.Fprintf(w, "\t%s (%s)\n", record.Path, humanize.Bytes(uint64(record.Size)))
		}
	}

	bytes := res.OutstandingBytes()
	summary := fmt.Sprintf("%d bytes (%s, %d files) to be transferred from source drive",
		bytes, humanize.Bytes(uint64(bytes)), res.OutstandingFiles())
	fmt.Fprintln(w, goterm.Color(summary, goterm.YELLOW))
}
