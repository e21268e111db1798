// Package reconcile compares a source drive with the objects that have been
// transferred from it.
package reconcile

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/listing"
	"github.com/sidkik/snowxfer/pkg/manifest"
)

// RemoteLister returns the complete listing of a prefix.
type RemoteLister interface {
	ListAll(ctx context.Context, req listing.Request) (manifest.Manifest, error)
}

// Engine compares source drives with remote prefixes.
type Engine struct {
	Lister RemoteLister
	Source manifest.SourceOptions
}

// CheckTransfer compares the drive at sourceRoot with the objects described
// by req. It returns nil if every source file has been transferred and no
// unexpected objects exist.
func (e Engine) CheckTransfer(ctx context.Context, sourceRoot string, req listing.Request) (*manifest.Result, error) {
	source, err := manifest.SnapshotSource(sourceRoot, e.Source)
	if err != nil {
		return nil, errors.WithContext(err, "build source manifest")
	}

	remote, err := e.Lister.ListAll(ctx, req)
	if err != nil {
		return nil, errors.WithContext(err, "build remote manifest")
	}

	log.WithField("source", len(source)).
		WithField("remote", len(remote)).
		Debug("Comparing manifests")
	return manifest.Diff(source, remote), nil
}
