package listing

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sidkik/snowxfer/pkg/errors"
)

// ListObjectsV2API is the subset of the S3 client used for listing.
type ListObjectsV2API interface {
	ListObjectsV2(
		ctx context.Context,
		params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
}

// SDKPageSource lists pages with the AWS SDK. The endpoint is fixed when the
// client is created, so Request.Endpoint is ignored.
type SDKPageSource struct {
	Client ListObjectsV2API
}

// ListPage fetches a single page with ListObjectsV2.
func (src SDKPageSource) ListPage(ctx context.Context, req Request, startAfter string) ([]Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(req.Bucket),
		Prefix: aws.String(req.Prefix),
	}
	if startAfter != "" {
		input.StartAfter = aws.String(startAfter)
	}

	output, err := src.Client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, errors.WithContext(err, "list objects")
	}

	objects := make([]Object, 0, len(output.Contents))
	for _, obj := range output.Contents {
		objects = append(objects, Object{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		})
	}
	return objects, nil
}

// ClientConfig selects the credentials and endpoint of an S3 client.
type ClientConfig struct {
	// Profile is a shared config profile. If it's empty, the default
	// credential chain is used.
	Profile string
	Region  string

	// Endpoint overrides the S3 endpoint, e.g. to reach the appliance. Path
	// style addressing is used when it's set.
	Endpoint string
}

// NewClient creates an S3 client.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.WithContext(err, "load aws config")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
