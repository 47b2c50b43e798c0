package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yungbote/transcoderd/internal/platform/logger"
)

// ErrObjectNotFound is returned when the requested key does not exist in the
// bucket.
var ErrObjectNotFound = errors.New("object not found")

const signedURLTTL = time.Hour

// Config carries the S3 connection settings. EndpointURL is optional: when
// set the client is pointed at a custom S3-compatible endpoint (MinIO and the
// like) with path-style addressing, otherwise the default AWS resolution
// applies.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	EndpointURL     string
	Region          string
}

// LoadConfig reads the S3 settings from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		Bucket:          os.Getenv("S3_BUCKET_NAME"),
		EndpointURL:     os.Getenv("S3_ENDPOINT_URL"),
		Region:          os.Getenv("S3_REGION"),
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.AccessKeyID == "" {
		return Config{}, fmt.Errorf("missing env var S3_ACCESS_KEY_ID")
	}
	if cfg.SecretAccessKey == "" {
		return Config{}, fmt.Errorf("missing env var S3_SECRET_ACCESS_KEY")
	}
	if cfg.Bucket == "" {
		return Config{}, fmt.Errorf("missing env var S3_BUCKET_NAME")
	}
	return cfg, nil
}

// Store is the object storage surface the API and the workers share: media
// blobs go in and out of a single bucket keyed by the paths recorded on jobs.
type Store interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	Download(ctx context.Context, key, path string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Head(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type store struct {
	log     *logger.Logger
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewStore builds a Store from the environment.
func NewStore(log *logger.Logger) (Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewStoreWithConfig(log, cfg)
}

func NewStoreWithConfig(log *logger.Logger, cfg Config) (Store, error) {
	storeLog := log.With("service", "BlobStore")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("Failed to load S3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})
	return &store{
		log:     storeLog,
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// Upload writes the body to the bucket under key. Transfer time scales with
// the object size so the caller's context governs the deadline.
func (s *store) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("Failed to upload object %q: %w", key, err)
	}
	return nil
}

// Download fetches the object under key into a local file at path.
func (s *store) Download(ctx context.Context, key, path string) error {
	body, err := s.Open(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Failed to create local file %q: %w", path, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("Failed to write object %q to %q: %w", key, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("Failed to close local file %q: %w", path, err)
	}
	return nil
}

// Open returns a reader over the object body for streaming responses.
func (s *store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("Failed to get object %q: %w", key, err)
	}
	return out.Body, nil
}

// Head checks that the object exists without fetching its body.
func (s *store) Head(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("Failed to head object %q: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited GET URL for the object so clients can
// fetch large media without proxying through the API.
func (s *store) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(signedURLTTL))
	if err != nil {
		return "", fmt.Errorf("Failed to presign object %q: %w", key, err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
