package manifest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/snowxfer/pkg/errors"
)

var defaultOptions = SourceOptions{
	Subtrees:          []string{"Audio", "Video", "Film"},
	SidecarExtensions: []string{".txt", ".json"},
}

func writeFiles(t *testing.T, root string, files map[string]int) {
	for path, size := range files {
		fullPath := filepath.Join(root, path)
		require.NoError(t, fs.MkdirAll(filepath.Dir(fullPath), 0755))
		require.NoError(t, afero.WriteFile(fs, fullPath, []byte(strings.Repeat("x", size)), 0644))
	}
}

func TestSnapshotSource(t *testing.T) {
	fs = afero.NewMemMapFs()
	root := "/Volumes/DRIVE01"
	writeFiles(t, root, map[string]int{
		"top.xlsx":                   10,
		"meta.json":                  5,
		"notes.txt":                  5,
		".DS_Store":                  8,
		"._.top.xlsx":                2,
		"Audio/a.wav":                100,
		"Audio/bag/data/b.flac":      200,
		"Audio/bag/manifest-md5.txt": 3,
		"Audio/._a.wav":              4,
		"Video/c.mkv":                300,
		"Video/.DS_Store":            6,
		"Video/.Spotlight-V100/a.db": 7,
		"Images/ignored.tif":         50,
		"Other/nested.wav":           60,
	})
	writeFiles(t, root, map[string]int{".com.apple.timemachine.donotpresent": 1})

	// Only the .DS_Store exclusion applies below the root of the drive, so
	// nested AppleDouble and Spotlight files are counted.
	snapshot, err := SnapshotSource(root, defaultOptions)
	assert.NoError(t, err)
	assert.Equal(t, New(
		FileRecord{Path: "/top.xlsx", Size: 10},
		FileRecord{Path: "/Audio/a.wav", Size: 100},
		FileRecord{Path: "/Audio/bag/data/b.flac", Size: 200},
		FileRecord{Path: "/Audio/._a.wav", Size: 4},
		FileRecord{Path: "/Video/c.mkv", Size: 300},
		FileRecord{Path: "/Video/.Spotlight-V100/a.db", Size: 7},
	), snapshot)
}

func TestSnapshotSourceAppleDouble(t *testing.T) {
	fs = afero.NewMemMapFs()
	root := "/Volumes/DRIVE01"
	writeFiles(t, root, map[string]int{
		"Audio/a.wav":   100,
		"Audio/._a.wav": 4,
	})

	source, err := SnapshotSource(root, defaultOptions)
	require.NoError(t, err)

	remote := New(
		FileRecord{Path: "/Audio/a.wav", Size: 100},
		FileRecord{Path: "/Audio/._a.wav", Size: 4},
	)
	assert.Nil(t, Diff(source, remote))
}

func TestSnapshotSourceErrors(t *testing.T) {
	fs = afero.NewMemMapFs()
	_, err := SnapshotSource("/missing", defaultOptions)
	assert.Equal(t, errors.FileNotFound{Path: "/missing"}, err)

	writeFiles(t, "/", map[string]int{"file": 1})
	_, err = SnapshotSource("/file", defaultOptions)
	_, friendly := errors.GetFriendlyMessage(err)
	assert.True(t, friendly)
}

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		path string
		exp  bool
	}{
		{".DS_Store", true},
		{"Audio/bag/.DS_Store", true},
		{"._.DS_Store", true},
		{".fseventsd/0000001", true},
		{".Spotlight-V100/store.db", true},
		{".Trashes/501/a.wav", true},
		{"$RECYCLE.BIN/desktop.ini", true},
		{".com.apple.timemachine.donotpresent", true},
		{"a.wav", false},
		{"._a.wav", false},
		{"Audio/._a.wav", false},
		{"Audio/.Spotlight-V100/store.db", false},
		{".Trashes", false},
		{"DS_Store", false},
	}

	for _, test := range tests {
		assert.Equal(t, test.exp, IsExcluded(test.path), test.path)
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		source   Manifest
		remote   Manifest
		expDiff  *Result
		expBytes int64
		expFiles int
	}{
		{
			name:   "Identical",
			source: New(FileRecord{"/Audio/a.wav", 100}),
			remote: New(FileRecord{"/Audio/a.wav", 100}),
		},
		{
			name:   "BothEmpty",
			source: Manifest{},
			remote: Manifest{},
		},
		{
			name: "Outstanding",
			source: New(
				FileRecord{"/a", 100},
				FileRecord{"/b", 250},
				FileRecord{"/c", 7},
			),
			remote: New(FileRecord{"/c", 7}),
			expDiff: &Result{
				SourceOnly: New(FileRecord{"/a", 100}, FileRecord{"/b", 250}),
				RemoteOnly: Manifest{},
			},
			expBytes: 350,
			expFiles: 2,
		},
		{
			name:   "SizeMismatch",
			source: New(FileRecord{"/Video/c.mkv", 300}),
			remote: New(FileRecord{"/Video/c.mkv", 120}),
			expDiff: &Result{
				SourceOnly: New(FileRecord{"/Video/c.mkv", 300}),
				RemoteOnly: New(FileRecord{"/Video/c.mkv", 120}),
			},
			expBytes: 300,
			expFiles: 1,
		},
		{
			name:   "RemoteOnly",
			source: Manifest{},
			remote: New(FileRecord{"/stray", 1}),
			expDiff: &Result{
				SourceOnly: Manifest{},
				RemoteOnly: New(FileRecord{"/stray", 1}),
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			diff := Diff(test.source, test.remote)
			assert.Equal(t, test.expDiff, diff)
			assert.Equal(t, test.expBytes, diff.OutstandingBytes())
			assert.Equal(t, test.expFiles, diff.OutstandingFiles())
		})
	}
}

// The symmetric difference must partition the records that aren't shared.
func TestDiffPartitions(t *testing.T) {
	source := Manifest{}
	remote := Manifest{}
	for i := 0; i < 200; i++ {
		r := FileRecord{Path: "/f" + strings.Repeat("x", i%13), Size: int64(i)}
		if i%3 != 0 {
			source.Add(r)
		}
		if i%5 != 0 {
			remote.Add(r)
		}
	}

	diff := Diff(source, remote)
	require.NotNil(t, diff)
	for r := range diff.SourceOnly {
		assert.True(t, source.Contains(r))
		assert.False(t, remote.Contains(r))
	}
	for r := range diff.RemoteOnly {
		assert.True(t, remote.Contains(r))
		assert.False(t, source.Contains(r))
	}
	for r := range source {
		assert.True(t, remote.Contains(r) || diff.SourceOnly.Contains(r))
	}
}

func TestSorted(t *testing.T) {
	m := New(FileRecord{"/b", 1}, FileRecord{"/a", 2}, FileRecord{"/a", 1})
	assert.Equal(t, []FileRecord{{"/a", 1}, {"/a", 2}, {"/b", 1}}, m.Sorted())
}
