package manifest

import (
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

// ExcludePatterns are operating system bookkeeping files that are never
// uploaded. They use the AWS CLI's filter syntax: each pattern is matched
// against the whole path relative to the drive, and * also matches "/".
var ExcludePatterns = []string{
	".fsevents*",
	".Spotlight*",
	".Trashes/*",
	"$RECYCLE.BIN/*",
	"._.*",
	"*.DS_Store",
	".com.apple.timemachine.donotpresent",
}

var excludeGlobs = compileGlobs(ExcludePatterns)

func compileGlobs(patterns []string) []glob.Glob {
	var globs []glob.Glob
	for _, pattern := range patterns {
		globs = append(globs, glob.MustCompile(pattern))
	}
	return globs
}

// IsExcluded returns whether the sync filters skip the file at path, which is
// slash separated and relative to the drive.
func IsExcluded(path string) bool {
	for _, g := range excludeGlobs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// SourceOptions selects the files on a drive that count towards a transfer.
type SourceOptions struct {
	// Subtrees are walked recursively. Missing subtrees are skipped.
	Subtrees []string

	// SidecarExtensions are excluded. Sidecar files are uploaded in a
	// separate archive, so their objects don't appear under the prefix.
	SidecarExtensions []string
}

func (opts SourceOptions) excluded(path string) bool {
	ext := filepath.Ext(path)
	for _, sidecar := range opts.SidecarExtensions {
		if ext == sidecar {
			return true
		}
	}
	return IsExcluded(path)
}

// SnapshotSource returns the manifest of the drive at root: the regular files
// directly under root, and every regular file within the subtrees.
func SnapshotSource(root string, opts SourceOptions) (Manifest, error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat drive")
	}
	if !fi.IsDir() {
		return nil, errors.NewFriendlyError("The drive path %q is not a directory.", root)
	}

	files := Manifest{}
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, errors.WithContext(err, "read drive root")
	}
	for _, entry := range entries {
		if entry.Mode().IsRegular() && !opts.excluded(entry.Name()) {
			files.Add(FileRecord{Path: "/" + entry.Name(), Size: entry.Size()})
		}
	}

	for _, subtree := range opts.Subtrees {
		if err := snapshotSubtree(root, subtree, opts, files); err != nil {
			return nil, errors.WithContext(err, "snapshot "+subtree)
		}
	}
	return files, nil
}

func snapshotSubtree(root, subtree string, opts SourceOptions, files Manifest) error {
	dir := filepath.Join(root, subtree)
	fi, err := fs.Stat(dir)
	switch {
	case os.IsNotExist(err):
		log.WithField("path", dir).Debug("Subtree does not exist. Skipping")
		return nil
	case err != nil:
		return err
	case !fi.IsDir():
		log.WithField("path", dir).Debug("Subtree is not a directory. Skipping")
		return nil
	}

	return afero.Walk(fs, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !fi.Mode().IsRegular() {
			return nil
		}

		relativePath, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithContext(err, "normalize path")
		}
		relativePath = filepath.ToSlash(relativePath)
		if opts.excluded(relativePath) {
			return nil
		}
		files.Add(FileRecord{Path: "/" + relativePath, Size: fi.Size()})
		return nil
	})
}
