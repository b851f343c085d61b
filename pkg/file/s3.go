package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of *s3.Client used by S3Storage.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket         string `env:"BUCKET"`
	Region         string `env:"REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"ACCESS_KEY_ID"`
	SecretKey      string `env:"SECRET_KEY"`
	Endpoint       string `env:"ENDPOINT"`         // S3-compatible services such as MinIO
	BaseURL        string `env:"BASE_URL"`         // public URL prefix, defaults to the bucket URL
	ForcePathStyle bool   `env:"FORCE_PATH_STYLE"` // required by most S3-compatible services
}

// S3Storage stores files as public objects in a bucket.
type S3Storage struct {
	client  S3Client
	bucket  string
	baseURL string
}

type S3Option func(*S3Storage)

// WithS3Client replaces the client built from the AWS default config chain.
func WithS3Client(c S3Client) S3Option {
	return func(s *S3Storage) { s.client = c }
}

func NewS3Storage(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
	}

	s := &S3Storage{bucket: cfg.Bucket, baseURL: bucketURL(cfg)}
	for _, opt := range opts {
		opt(s)
	}
	if s.client != nil {
		return s, nil
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %v", ErrInvalidConfig, err)
	}

	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return s, nil
}

func bucketURL(cfg S3Config) string {
	u := cfg.BaseURL
	switch {
	case u != "":
	case cfg.Endpoint != "":
		u = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		u = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return strings.TrimSuffix(u, "/") + "/"
}

func (s *S3Storage) Put(ctx context.Context, p string, r io.Reader, mimeType string) (*File, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, err
	}

	// PutObject needs a seekable body with a known length for signing.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("file: read %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimeType),
	})
	if err != nil {
		return nil, classifyS3Error(err, key)
	}
	return &File{RelativePath: key, MIMEType: mimeType, Size: int64(len(data))}, nil
}

func (s *S3Storage) URL(p string) string {
	key, err := cleanKey(p)
	if err != nil {
		return s.baseURL
	}
	return s.baseURL + key
}

func classifyS3Error(err error, key string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: put %s: %w", ErrUnavailable, key, err)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return ErrBucketNotFound
		case "AccessDenied":
			return fmt.Errorf("%w: put %s", ErrAccessDenied, key)
		case "RequestTimeout", "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: put %s: %s", ErrUnavailable, key, apiErr.ErrorCode())
		}
	}
	return fmt.Errorf("file: put %s: %w", key, err)
}
