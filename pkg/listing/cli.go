package listing

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

// CLIPageSource lists pages with `aws s3api list-objects-v2`.
type CLIPageSource struct {
	Runner  runner.Runner
	Profile string
}

type listObjectsResponse struct {
	Contents []struct {
		Key  string `json:"Key"`
		Size int64  `json:"Size"`
	} `json:"Contents"`
}

// ListPage runs a single non-paginated call, which returns at most one page
// of keys.
func (src CLIPageSource) ListPage(ctx context.Context, req Request, startAfter string) ([]Object, error) {
	args := []string{"s3api", "list-objects-v2", "--no-paginate",
		"--bucket", req.Bucket,
		"--prefix", req.Prefix,
	}
	if startAfter != "" {
		args = append(args, "--start-after", startAfter)
	}
	if src.Profile != "" {
		args = append(args, "--profile", src.Profile)
	}
	if req.Endpoint != "" {
		args = append(args, "--endpoint-url", req.Endpoint)
	}

	res, err := src.Runner.Run(ctx, runner.Command{Name: "aws", Args: args})
	if err != nil {
		return nil, err
	}

	// The CLI prints nothing when there are no matching keys.
	if strings.TrimSpace(res.Stdout) == "" {
		return nil, nil
	}

	var resp listObjectsResponse
	if err := json.Unmarshal([]byte(res.Stdout), &resp); err != nil {
		return nil, errors.WithContext(err, "parse list-objects-v2 response")
	}

	objects := make([]Object, 0, len(resp.Contents))
	for _, obj := range resp.Contents {
		objects = append(objects, Object{Key: obj.Key, Size: obj.Size})
	}
	return objects, nil
}
