// Package proofs stores proof-of-payment screenshots and issues read links
// for reviewers.
package proofs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

// ObjectStore is the blob storage the uploader writes to.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) error
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

var allowedTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
}

// Ref points at a stored proof.
type Ref struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
}

// Config tunes the uploader.
type Config struct {
	Bucket     string
	MaxBytes   int64
	ReadURLTTL time.Duration
	Clock      func() time.Time
	Logger     *logger.Logger
}

// Uploader validates proof images and writes them under the payer's prefix.
type Uploader struct {
	store    ObjectStore
	bucket   string
	maxBytes int64
	urlTTL   time.Duration
	now      func() time.Time
	logg     *logger.Logger
}

// NewUploader builds an uploader for the given store.
func NewUploader(store ObjectStore, cfg Config) (*Uploader, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("proof bucket required")
	}
	u := &Uploader{
		store:    store,
		bucket:   strings.TrimSpace(cfg.Bucket),
		maxBytes: cfg.MaxBytes,
		urlTTL:   cfg.ReadURLTTL,
		now:      cfg.Clock,
		logg:     cfg.Logger,
	}
	if u.maxBytes <= 0 {
		u.maxBytes = 10 << 20
	}
	if u.urlTTL <= 0 {
		u.urlTTL = 15 * time.Minute
	}
	if u.now == nil {
		u.now = time.Now
	}
	return u, nil
}

// MaxBytes returns the accepted proof size limit.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Inspect checks an image without writing it and returns its sniffed type.
func (u *Uploader) Inspect(data []byte) (string, error) {
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "proof image is required")
	}
	if int64(len(data)) > u.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "proof image is too large").
			WithDetails(map[string]any{"max_bytes": u.maxBytes})
	}
	detected := mimetype.Detect(data)
	contentType := strings.ToLower(strings.SplitN(detected.String(), ";", 2)[0])
	if _, ok := allowedTypes[contentType]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "proof must be a png, jpeg, webp, gif or heic image").
			WithDetails(map[string]any{"content_type": contentType})
	}
	return contentType, nil
}

// ObjectKey names a proof object as {payerId}/{unixNano}.{ext}.
func ObjectKey(payerID uuid.UUID, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%d.%s", payerID, at.UnixNano(), ext)
}

// Upload stores the image and returns its reference. Validation failures
// perform no write; store failures are reported as upload errors.
func (u *Uploader) Upload(ctx context.Context, payerID uuid.UUID, data []byte) (*Ref, error) {
	if payerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer id is required")
	}
	contentType, err := u.Inspect(data)
	if err != nil {
		return nil, err
	}
	key := ObjectKey(payerID, u.now().UTC(), allowedTypes[contentType])
	if err := u.store.Upload(ctx, u.bucket, key, contentType, bytes.NewReader(data)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpload, err, "proof upload failed").
			WithDetails(map[string]any{"bucket": u.bucket}).
			WithStep("upload_proof")
	}
	if u.logg != nil {
		u.logg.Info(u.logg.WithFields(ctx, map[string]any{
			"bucket":       u.bucket,
			"object":       key,
			"content_type": contentType,
			"size":         len(data),
		}), "proof uploaded")
	}
	return &Ref{Bucket: u.bucket, Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

// ReadURL returns a time-limited link to a stored proof.
func (u *Uploader) ReadURL(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("proof key required")
	}
	return u.store.SignedReadURL(u.bucket, key, u.urlTTL)
}
