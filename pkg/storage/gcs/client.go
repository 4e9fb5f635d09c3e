package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/dentaldesk/dentaldesk-backend/pkg/config"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client stores and serves proof-of-payment objects.
type Client struct {
	svc           *storage.Service
	signer        *urlSigner
	defaultBucket string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a storage client. Signed read URLs need service account
// credentials; with metadata-server credentials SignedReadURL returns an error.
func NewClient(ctx context.Context, cfg config.StorageConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ProofBucket) == "" {
		return nil, errors.New("proof bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(storage.DevstorageReadWriteScope)}
	creds, err := gcp.Credentials()
	if err != nil {
		return nil, err
	}

	var signer *urlSigner
	if creds != nil {
		opts = append(opts, option.WithCredentialsJSON(creds))
		s, err := newURLSigner(string(creds))
		if err != nil {
			return nil, err
		}
		signer = s
	}

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	client := &Client{svc: svc, signer: signer, defaultBucket: cfg.ProofBucket}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}
	return client, nil
}

// DefaultBucket returns the proof bucket name.
func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

// Upload writes the object in one request.
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	_, err := c.svc.Objects.Insert(bucket, &storage.Object{
		Name:        object,
		ContentType: contentType,
	}).Media(body, googleapi.ContentType(contentType)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, object, err)
	}
	return nil
}

// SignedReadURL returns a V4 signed GET URL valid for expires.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	if c == nil || c.signer == nil {
		return "", errors.New("gcs signing credentials not configured")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	return c.signer.signedGetURL(bucket, object, time.Now().UTC(), expires)
}

// Ping checks the proof bucket is listable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.svc.Objects.List(c.defaultBucket).MaxResults(1).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcs object check failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return nil
}
