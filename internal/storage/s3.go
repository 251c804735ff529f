package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/orangehats/orangehats/internal/config"
)

// S3Store is a BlobStore backed by S3 or an S3-compatible service
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	region    string
	endpoint  string
	logger    *slog.Logger
}

// NewS3Store builds the client from static credentials. Missing
// credentials or bucket fail here rather than on first use.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*S3Store, error) {
	var missing []string
	if cfg.Region == "" {
		missing = append(missing, config.EnvRegion)
	}
	if cfg.AccessKeyID == "" {
		missing = append(missing, config.EnvAccessKeyID)
	}
	if cfg.SecretAccessKey == "" {
		missing = append(missing, config.EnvSecretAccessKey)
	}
	if cfg.Bucket == "" {
		missing = append(missing, config.EnvBucket)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing storage configuration: %s", strings.Join(missing, ", "))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("S3 client initialized", "bucket", cfg.Bucket, "region", cfg.Region, "endpoint", endpoint)

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  endpoint,
		logger:    logger.With("component", "s3"),
	}, nil
}

// PresignPut signs a PUT of key with the given content type
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return req.URL, nil
}

// PresignGet signs a GET of key
func (s *S3Store) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}

// Exists checks if an object exists
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Copy copies srcKey to dstKey within the bucket
func (s *S3Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	start := time.Now()

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		if isNotFoundError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to copy object: %w", err)
	}

	s.logger.Debug("object copied",
		"from", srcKey,
		"to", dstKey,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Delete removes an object. Deleting a missing key succeeds.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.Debug("object deleted", "key", key)
	return nil
}

// URL returns the unsigned URL of key
func (s *S3Store) URL(key string) string {
	if s.endpoint != "" {
		return s.endpoint + "/" + s.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	// CopyObject reports a missing source as an untyped API error
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
