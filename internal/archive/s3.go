// Package archive writes exported climate events to S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"smart_climate/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoBucket is returned when the archive is enabled without a bucket.
var ErrNoBucket = errors.New("archive bucket is not configured")

// Options selects the bucket and, for S3-compatible stores, the endpoint.
type Options struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer puts objects into a single bucket.
type S3Writer struct {
	client putObjectAPI
	bucket string
	log    *logger.Logger
}

// NewS3Writer loads the default AWS credential chain and builds a client for o.
func NewS3Writer(ctx context.Context, o Options, log *logger.Logger) (*S3Writer, error) {
	if o.Bucket == "" {
		return nil, ErrNoBucket
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		so.UsePathStyle = o.UsePathStyle
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
	})
	return newS3Writer(client, o.Bucket, log), nil
}

func newS3Writer(client putObjectAPI, bucket string, log *logger.Logger) *S3Writer {
	if log == nil {
		log = logger.Nop()
	}
	return &S3Writer{client: client, bucket: bucket, log: log.Named("archive")}
}

// Put uploads body under key.
func (w *S3Writer) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", w.bucket, key, err)
	}
	w.log.Infow("object_uploaded", "bucket", w.bucket, "key", key, "bytes", len(body))
	return nil
}
