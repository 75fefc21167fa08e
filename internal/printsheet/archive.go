package printsheet

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver stores a copy of a printed sheet and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, name string, pdf []byte) (string, error)
}

// BucketConfig describes an S3-compatible bucket such as Cloudflare R2.
type BucketConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Prefix is prepended to object keys.
	Prefix string
	// PublicURL, when set, is the base of the returned object URLs.
	PublicURL string
}

// Enabled reports whether enough is configured to upload.
func (c BucketConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// BucketArchiver uploads sheets to a bucket.
type BucketArchiver struct {
	client *s3.Client
	cfg    BucketConfig
}

// NewBucketArchiver creates an archiver with static credentials.
func NewBucketArchiver(ctx context.Context, bc BucketConfig) (*BucketArchiver, error) {
	if !bc.Enabled() {
		return nil, fmt.Errorf("archive bucket is not configured")
	}
	region := bc.Region
	if region == "" {
		region = "auto"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			bc.AccessKeyID, bc.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading bucket config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(bc.Endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &BucketArchiver{client: client, cfg: bc}, nil
}

// Archive uploads pdf under the configured prefix. The returned location is
// a public URL when one is configured and the bucket key otherwise.
func (a *BucketArchiver) Archive(ctx context.Context, name string, pdf []byte) (string, error) {
	key := strings.TrimLeft(a.cfg.Prefix+name, "/")

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	if a.cfg.PublicURL == "" {
		return key, nil
	}
	return strings.TrimRight(a.cfg.PublicURL, "/") + "/" + (&url.URL{Path: key}).EscapedPath(), nil
}
