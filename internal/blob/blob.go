// Package blob stores sign photos in an S3-compatible bucket.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"parking-sign-backend/config"
)

// ErrDisabled is returned by Disabled uploaders.
var ErrDisabled = errors.New("object storage is not configured")

// Uploader persists raw bytes and returns a public URL for them.
type Uploader interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// Disabled is an Uploader that always fails, used when no bucket is configured.
type Disabled struct{}

// Put implements Uploader.
func (Disabled) Put(context.Context, []byte, string) (string, error) {
	return "", ErrDisabled
}

// putObjectAPI is the subset of the S3 client used here.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes objects under a key prefix in one bucket.
type S3Uploader struct {
	client        putObjectAPI
	bucket        string
	prefix        string
	publicBaseURL string
	now           func() time.Time
}

// NewS3Uploader builds a client from the default AWS credential chain, or
// from static keys when they are configured.
func NewS3Uploader(ctx context.Context, cfg config.StorageConfig) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrDisabled
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = defaultPublicBaseURL(cfg, awsCfg.Region)
	}

	return newS3Uploader(client, cfg.Bucket, cfg.Prefix, base), nil
}

func newS3Uploader(client putObjectAPI, bucket, prefix, publicBaseURL string) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

func defaultPublicBaseURL(cfg config.StorageConfig, region string) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

// Put uploads the image and returns its public URL.
func (u *S3Uploader) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := u.objectKey(extensionFor(contentType))

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", u.bucket, key, err)
	}
	return u.publicBaseURL + "/" + key, nil
}

// objectKey is "<prefix>/<unix millis>-<uuid><ext>".
func (u *S3Uploader) objectKey(ext string) string {
	name := fmt.Sprintf("%d-%s%s", u.now().UnixMilli(), uuid.NewString(), ext)
	if u.prefix == "" {
		return name
	}
	return u.prefix + "/" + name
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
