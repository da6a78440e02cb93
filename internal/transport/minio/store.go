// Package minio stores uploaded PDFs in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/domain"
)

// DefaultMaxFetchBytes caps downloads from URLs outside the bucket.
const DefaultMaxFetchBytes = 32 << 20

// Config holds the bucket connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
	// PublicURL replaces the endpoint in returned blob URLs when set.
	PublicURL     string
	MaxFetchBytes int64
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Store puts and fetches objects by URL.
type Store struct {
	client   *minio.Client
	bucket   string
	base     string
	maxFetch int64
	http     *http.Client
	logger   *zap.Logger
}

// New creates a store. It does not contact the server.
func New(cfg *Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("blob endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("blob bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		base = strings.TrimRight(client.EndpointURL().String(), "/")
	}

	s := &Store{
		client:   client,
		bucket:   cfg.Bucket,
		base:     base,
		maxFetch: cfg.MaxFetchBytes,
		http:     cfg.HTTPClient,
		logger:   cfg.Logger,
	}
	if s.maxFetch <= 0 {
		s.maxFetch = DefaultMaxFetchBytes
	}
	if s.http == nil {
		s.http = &http.Client{Timeout: 2 * time.Minute}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// EnsureBucket creates the bucket when missing.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// A concurrent starter may have won the race.
		if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("blob bucket created", zap.String("bucket", s.bucket))
	return nil
}

// HealthCheck verifies the bucket is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// Put uploads data under key and returns its URL.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %w", domain.ErrTransport, key, err)
	}
	return s.URL(key), nil
}

// Fetch reads the object behind rawURL. URLs of this bucket go through the
// S3 API, anything else is downloaded with a plain GET.
func (s *Store) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if key, ok := s.ObjectKey(rawURL); ok {
		return s.getObject(ctx, key)
	}
	return s.download(ctx, rawURL)
}

// Delete removes the object behind rawURL. Foreign URLs are ignored.
func (s *Store) Delete(ctx context.Context, rawURL string) error {
	key, ok := s.ObjectKey(rawURL)
	if !ok {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove %s: %w", domain.ErrTransport, key, err)
	}
	return nil
}

// URL returns the address of key inside the bucket.
func (s *Store) URL(key string) string {
	return s.base + "/" + s.bucket + "/" + url.PathEscape(key)
}

// ObjectKey reports whether rawURL points into this bucket and returns the object key.
func (s *Store) ObjectKey(rawURL string) (string, bool) {
	prefix := s.base + "/" + s.bucket + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func (s *Store) getObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrTransport, key, err)
	}
	defer obj.Close() //nolint:errcheck // read-only object

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrTransport, key, err)
	}
	return data, nil
}

func (s *Store) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: bad url: %w", domain.ErrTransport, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body drained below

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch: unexpected status %d", domain.ErrTransport, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxFetch+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
	}
	if int64(len(data)) > s.maxFetch {
		return nil, fmt.Errorf("%w: fetch: body exceeds %d bytes", domain.ErrTransport, s.maxFetch)
	}
	return data, nil
}
