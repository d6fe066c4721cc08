package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vvatanabe/shipcode/internal/render"
)

// Sink stores one rendered artifact under name and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, a *render.Artifact) (string, error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, name string, a *render.Artifact) (string, error)

func (f SinkFunc) Put(ctx context.Context, name string, a *render.Artifact) (string, error) {
	return f(ctx, name, a)
}

// DirSink writes artifacts as files below Dir.
type DirSink struct {
	Dir string
}

func (s DirSink) Put(ctx context.Context, name string, a *render.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(p, a.Data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// S3API is the subset of the S3 client used by S3Sink.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket string
	Region string
	// Prefix is prepended to every object key.
	Prefix string
	// AccessKeyID and SecretAccessKey are optional static credentials; the
	// default AWS credential chain is used when they are empty.
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the S3 endpoint, e.g. for MinIO or LocalStack.
	Endpoint string
	// PublicDomain, when set, is used to build object URLs instead of the
	// bucket's S3 domain.
	PublicDomain string
}

// S3Sink uploads artifacts to an S3 bucket.
type S3Sink struct {
	client S3API
	cfg    S3Config
}

func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 export needs a bucket")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3SinkFromClient(client, cfg), nil
}

func NewS3SinkFromClient(client S3API, cfg S3Config) *S3Sink {
	return &S3Sink{client: client, cfg: cfg}
}

func (s *S3Sink) Put(ctx context.Context, name string, a *render.Artifact) (string, error) {
	key := s.key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(a.Data),
		ContentType: aws.String(a.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return s.url(key), nil
}

func (s *S3Sink) key(name string) string {
	prefix := strings.Trim(s.cfg.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func (s *S3Sink) url(key string) string {
	switch {
	case s.cfg.PublicDomain != "":
		return fmt.Sprintf("https://%s/%s", s.cfg.PublicDomain, key)
	case s.cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
	}
}
