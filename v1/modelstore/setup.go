package modelstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Aleph-Alpha/wordembed/v1/observability"
)

// ErrObjectNotFound is returned when the requested model object does not exist.
var ErrObjectNotFound = errors.New("model object not found")

// Logger is the logging contract of the store.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Debug(string, error, ...map[string]interface{}) {}
func (nopLogger) Error(string, error, ...map[string]interface{}) {}

// Store keeps model files in a single bucket.
type Store struct {
	client   *minio.Client
	cfg      *Config
	logger   Logger
	observer observability.Observer
}

// NewClient connects to the server and makes sure the bucket exists.
func NewClient(cfg *Config, logger Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid modelstore config: %w", err)
	}
	if logger == nil {
		logger = nopLogger{}
	}

	client, err := minio.New(cfg.Connection.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Connection.AccessKeyID, cfg.Connection.SecretAccessKey, ""),
		Secure: cfg.Connection.UseSSL,
		Region: cfg.Connection.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &Store{client: client, cfg: cfg, logger: logger}
	if err := s.ensureBucketExists(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	logger.Info("connected to model store", nil, map[string]interface{}{
		"endpoint": cfg.Connection.Endpoint,
		"bucket":   cfg.Connection.BucketName,
	})
	return s, nil
}

// WithObserver attaches an observer notified after every storage operation.
func (s *Store) WithObserver(o observability.Observer) *Store {
	s.observer = o
	return s
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string { return s.cfg.Connection.BucketName }

func (s *Store) ensureBucketExists(ctx context.Context) error {
	bucket := s.cfg.Connection.BucketName

	timeout := s.cfg.OperationTimeout
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists, bucket: %v, err: %w", bucket, err)
	}
	if exists {
		return nil
	}

	s.logger.Info("bucket does not exist, creating it", nil, map[string]interface{}{
		"bucket": bucket,
		"region": s.cfg.Connection.Region,
	})
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Connection.Region}); err != nil {
		return err
	}
	s.logger.Info("created bucket", nil, map[string]interface{}{"bucket": bucket})
	return nil
}

// translateError maps a missing key response to ErrObjectNotFound.
func translateError(err error, key string) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return err
}
