// Package listing produces complete object listings of a bucket prefix, one
// page at a time.
package listing

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/manifest"
)

// Request identifies the objects to list.
type Request struct {
	// Endpoint overrides the S3 endpoint. It's empty for the cloud archive
	// tier.
	Endpoint string
	Bucket   string
	Prefix   string
}

func (req Request) String() string {
	uri := fmt.Sprintf("s3://%s/%s", req.Bucket, req.Prefix)
	if req.Endpoint != "" {
		uri += " at " + req.Endpoint
	}
	return uri
}

// Object is a single entry of a listing page.
type Object struct {
	Key  string
	Size int64
}

// PageSource fetches one page of a listing.
type PageSource interface {
	// ListPage returns objects under the request's prefix whose keys sort
	// after startAfter, in key order. An empty page means there are no more
	// objects.
	ListPage(ctx context.Context, req Request, startAfter string) ([]Object, error)
}

// StalledError is returned when a page doesn't advance the listing.
type StalledError struct {
	StartAfter string
	LastKey    string
}

func (err StalledError) Error() string {
	return fmt.Sprintf("listing did not advance past %q (last key %q)", err.StartAfter, err.LastKey)
}

// Lister builds complete listings from a PageSource.
type Lister struct {
	Source PageSource
}

// ListAll returns every object under the prefix as a manifest. Each key has
// the prefix removed and is rooted at "/".
func (l Lister) ListAll(ctx context.Context, req Request) (manifest.Manifest, error) {
	files := manifest.Manifest{}
	startAfter := ""
	pages := 0
	for {
		page, err := l.Source.ListPage(ctx, req, startAfter)
		if err != nil {
			return nil, errors.WithContext(err, "list page")
		}
		if len(page) == 0 {
			break
		}

		lastKey := page[len(page)-1].Key
		if lastKey <= startAfter {
			return nil, StalledError{StartAfter: startAfter, LastKey: lastKey}
		}

		for _, obj := range page {
			files.Add(manifest.FileRecord{
				Path: RelativePath(obj.Key, req.Prefix),
				Size: obj.Size,
			})
		}
		startAfter = lastKey
		pages++
	}

	log.WithField("request", req.String()).
		WithField("pages", pages).
		WithField("objects", len(files)).
		Debug("Listed remote objects")
	return files, nil
}

// RelativePath strips prefix from the start of key, and roots the result at
// "/".
func RelativePath(key, prefix string) string {
	path := strings.TrimPrefix(key, prefix)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
