// Package backup performs the aggregator's optional best-effort upload of
// its persisted snapshot file to an S3-compatible bucket.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/weathermesh/wxfabric/internal/config"
	"github.com/weathermesh/wxfabric/pkg/log"
)

// Uploader puts an object into the configured bucket. Satisfied by
// *s3.Client, and by fakes in tests.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Backup uploads the canonical snapshot file after every flush that
// changed it, as long as it is enabled in configuration.
type Backup struct {
	client Uploader
	bucket string
	prefix string
}

// Disabled reports a Backup with no client - uploads are always a no-op.
func Disabled() *Backup { return &Backup{} }

// New builds a Backup from the aggregator's configuration. It returns a
// disabled Backup (no error) when cfg.Enabled is false, since the
// caller should still be able to call Upload unconditionally.
func New(cfg config.Backup) (*Backup, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup: enabled but no bucket configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("backup: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &Backup{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// NewWithStaticCredentials builds a Backup against an explicit
// endpoint/credential pair, for S3-compatible stores that aren't real
// AWS.
func NewWithStaticCredentials(cfg config.Backup, endpoint, region, accessKey, secretKey string, usePathStyle bool) (*Backup, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup: enabled but no bucket configured")
	}
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("backup: load AWS config: %w", err)
	}

	opts := func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = usePathStyle
	}

	client := s3.NewFromConfig(awsCfg, opts)
	return &Backup{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Upload reads path and puts its contents under prefix+basename in the
// configured bucket. It is a no-op on a disabled Backup. Failures are
// the caller's to log - Upload only wraps them with context.
func (b *Backup) Upload(ctx context.Context, path string) error {
	if b == nil || b.client == nil {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("backup: read %s: %w", path, err)
	}

	key := b.prefix + baseName(path)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("backup: put object %q: %w", key, err)
	}
	return nil
}

// UploadBestEffort calls Upload and only logs a failure, so callers on
// the request path never block or fail a flush because of it.
func (b *Backup) UploadBestEffort(path string) {
	if b == nil || b.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Upload(ctx, path); err != nil {
		log.Warnf("backup: snapshot upload failed: %s", err)
	}
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
