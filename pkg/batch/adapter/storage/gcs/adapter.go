// Package gcs provides a Google Cloud Storage implementation of the storage adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/storage"
	config "github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

type gcsAdapter struct {
	client *storage.Client
	name   string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a client from cfg. Without a credentials file the
// application default credentials are used; a custom endpoint (an emulator)
// disables authentication.
func NewGCSAdapter(ctx context.Context, cfg config.GCSConfig, name string) (storageAdapter.StorageConnection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create storage client: %w", name, err)
	}
	return &gcsAdapter{client: client, name: name}, nil
}

// Factory returns a storage.Factory opening a GCS adapter from cfg.
func Factory(cfg config.GCSConfig) storageAdapter.Factory {
	return func(ctx context.Context) (storageAdapter.StorageConnection, error) {
		return NewGCSAdapter(ctx, cfg, "gcs")
	}
}

func (a *gcsAdapter) Close() error {
	return a.client.Close()
}

func (a *gcsAdapter) Type() string {
	return storageAdapter.SchemeGCS
}

func (a *gcsAdapter) Name() string {
	return a.name
}

// Upload streams data into the object.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload gs://%s/%s: %w", bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded gs://%s/%s (gcs adapter '%s').", bucket, objectName, a.name)
	return nil
}

// Download opens a reader on the object.
func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", bucket, objectName, errors.Join(fs.ErrNotExist, err))
		}
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", bucket, objectName, err)
	}
	return r, nil
}

// ListObjects iterates the objects under prefix.
func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	it := a.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs://%s/%s: %w", bucket, prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

// DeleteObject deletes the object. A missing object is ignored.
func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.client.Bucket(bucket).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", bucket, objectName, err)
	}
	return nil
}
