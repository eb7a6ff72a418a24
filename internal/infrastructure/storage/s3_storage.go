// Package storage provides S3-compatible object storage and an in-memory
// stand-in for development.
package storage

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultRegion        = "us-east-1"
	defaultPresignExpiry = 15 * time.Minute
	defaultMaxObject     = 10 << 20
)

var errKeyRequired = errors.New("storage key is required")

// S3ObjectStorage stores license scans, OCR inputs and bill PDFs in one
// bucket of AWS S3 or a compatible service such as MinIO.
type S3ObjectStorage struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
	maxObjectSize int64
	logger        *zap.Logger
}

type Option func(*S3ObjectStorage)

func WithLogger(logger *zap.Logger) Option {
	return func(s *S3ObjectStorage) { s.logger = logger }
}

// NewS3ObjectStorage builds the client. No request is sent until the first
// operation.
func NewS3ObjectStorage(cfg *config.StorageConfig, opts ...Option) (*S3ObjectStorage, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("storage configuration is required")
	case cfg.Bucket == "":
		return nil, errors.New("storage bucket is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, errors.New("storage access key and secret key are required")
	}
	client, err := newS3Client(cfg)
	if err != nil {
		return nil, err
	}

	s := &S3ObjectStorage{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignExpiry: cmp.Or(max(cfg.PresignExpiry, 0), defaultPresignExpiry),
		maxObjectSize: cmp.Or(max(cfg.MaxUploadBytes, 0), defaultMaxObject),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newS3Client(cfg *config.StorageConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cmp.Or(cfg.Region, defaultRegion)),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		// MinIO rejects the SDK's default trailing checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *S3ObjectStorage) Bucket() string { return s.bucket }

// EnsureBucket creates the bucket unless it already exists.
func (s *S3ObjectStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noBucket) {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &s.bucket})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3ObjectStorage) PresignUpload(ctx context.Context, key, contentType string, expiresIn time.Duration) (common.PresignedURL, error) {
	return s.presign(key, expiresIn, func(opt func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: &s.bucket, Key: &key, ContentType: &contentType,
		}, opt)
	})
}

func (s *S3ObjectStorage) PresignDownload(ctx context.Context, key string, expiresIn time.Duration) (common.PresignedURL, error) {
	return s.presign(key, expiresIn, func(opt func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key}, opt)
	})
}

// presign signs one request valid for expiresIn, or the configured default
// when expiresIn is not positive.
func (s *S3ObjectStorage) presign(key string, expiresIn time.Duration, sign func(func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)) (common.PresignedURL, error) {
	if key == "" {
		return common.PresignedURL{}, errKeyRequired
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiry
	}
	req, err := sign(s3.WithPresignExpires(expiresIn))
	if err != nil {
		return common.PresignedURL{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return common.PresignedURL{URL: req.URL, Key: key, ExpiresAt: time.Now().Add(expiresIn)}, nil
}

func (s *S3ObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errKeyRequired
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   &contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("Object uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Download returns the body and content type of key. Objects larger than
// the upload limit are refused.
func (s *S3ObjectStorage) Download(ctx context.Context, key string) ([]byte, string, error) {
	if key == "" {
		return nil, "", errKeyRequired
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, "", notFoundOr(err, "download "+key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, s.maxObjectSize+1))
	switch {
	case err != nil:
		return nil, "", fmt.Errorf("read %s: %w", key, err)
	case int64(len(data)) > s.maxObjectSize:
		return nil, "", fmt.Errorf("object %s exceeds %d bytes", key, s.maxObjectSize)
	}
	return data, aws.ToString(out.ContentType), nil
}

func (s *S3ObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errKeyRequired
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	if err = notFoundOr(err, "head "+key); errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *S3ObjectStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errKeyRequired
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// notFoundOr maps a missing object to shared.ErrNotFound and wraps anything
// else with op. Some S3-compatible services only report 404 in the message.
func notFoundOr(err error, op string) error {
	var notFound *types.NotFound
	var noKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return shared.ErrNotFound
	}
	msg := err.Error()
	for _, marker := range []string{"NotFound", "NoSuchKey", "StatusCode: 404"} {
		if strings.Contains(msg, marker) {
			return shared.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ common.ObjectStorage = (*S3ObjectStorage)(nil)
