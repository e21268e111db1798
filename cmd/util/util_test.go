package util

import (
	"bytes"
	"testing"

	"github.com/buger/goterm"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/manifest"
)

func TestHandleFatalError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		expStderr string
	}{
		{
			name: "Friendly",
			err: errors.WithContext(
				errors.NewFriendlyError("The device is not unlocked."), "unlock"),
			expStderr: "The device is not unlocked.\n",
		},
		{
			name: "Unfriendly",
			err:  errors.New("boom"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := bytes.NewBuffer(nil)
			stderr = out
			var exitCode int
			exit = func(code int) { exitCode = code }

			HandleFatalError(test.err)
			assert.Equal(t, 1, exitCode)
			assert.Equal(t, test.expStderr, out.String())
		})
	}
}

func TestHandlePanic(t *testing.T) {
	var exitCode int
	exit = func(code int) { exitCode = code }

	func() {
		defer HandlePanic()
		panic("unexpected")
	}()
	assert.Equal(t, 1, exitCode)
}

func TestValidateDrive(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/Volumes/DRIVE01", 0755))
	require.NoError(t, afero.WriteFile(fs, "/Volumes/file", []byte("x"), 0644))

	assert.NoError(t, ValidateDrive("/Volumes/DRIVE01"))
	assert.Equal(t, errors.ValidationError{Field: "drive", Value: "/Volumes/missing",
		Reason: "path does not exist"}, ValidateDrive("/Volumes/missing"))
	assert.Equal(t, errors.ValidationError{Field: "drive", Value: "/Volumes/file",
		Reason: "is not a directory"}, ValidateDrive("/Volumes/file"))
}

func TestPrintReport(t *testing.T) {
	tests := []struct {
		name   string
		res    *manifest.Result
		expOut string
	}{
		{
			name:   "Complete",
			expOut: goterm.Color("Drive transfer seems good", goterm.GREEN) + "\n",
		},
		{
			name: "Outstanding",
			res: manifest.Diff(
				manifest.New(
					manifest.FileRecord{Path: "/Audio/a.wav", Size: 100},
					manifest.FileRecord{Path: "/Video/b.mkv", Size: 2500000},
				),
				manifest.New(manifest.FileRecord{Path: "/Audio/a.wav", Size: 100}),
			),
			expOut: "Files on the source drive that are missing from the destination:\n" +
				"\t/Video/b.mkv (2.5 MB)\n" +
				goterm.Color("2500000 bytes (2.5 MB, 1 files) to be transferred from source drive",
					goterm.YELLOW) + "\n",
		},
		{
			name: "RemoteOnly",
			res: manifest.Diff(
				manifest.New(),
				manifest.New(manifest.FileRecord{Path: "/stale.wav", Size: 5}),
			),
			expOut: "Objects in the destination that don't match a source file:\n" +
				"\t/stale.wav (5 B)\n" +
				goterm.Color("0 bytes (0 B, 0 files) to be transferred from source drive",
					goterm.YELLOW) + "\n",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := bytes.NewBuffer(nil)
			PrintReport(out, test.res)
			assert.Equal(t, test.expOut, out.String())
		})
	}
}
