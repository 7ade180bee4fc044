// Package gcs stores objects in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	storageconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// ProviderType is the adapter.storage type handled by this package.
const ProviderType = "gcs"

type gcsAdapter struct {
	client *gcstorage.Client
	cfg    storageconfig.StorageConfig
	name   string
}

// NewGCSAdapter opens a client. Without credentials_file, application default credentials are used.
func NewGCSAdapter(ctx context.Context, cfg storageconfig.StorageConfig, name string) (storage.StorageConnection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs adapter '%s': failed to create client: %w", name, err)
	}
	return NewGCSAdapterWithClient(client, cfg, name), nil
}

// NewGCSAdapterWithClient wraps an existing client, e.g. one pointed at an emulator.
func NewGCSAdapterWithClient(client *gcstorage.Client, cfg storageconfig.StorageConfig, name string) storage.StorageConnection {
	return &gcsAdapter{client: client, cfg: cfg, name: name}
}

func (a *gcsAdapter) Close() error { return a.client.Close() }
func (a *gcsAdapter) Type() string { return ProviderType }
func (a *gcsAdapter) Name() string { return a.name }

func (a *gcsAdapter) bucket(name string) (*gcstorage.BucketHandle, error) {
	if name == "" {
		name = a.cfg.BucketName
	}
	if name == "" {
		return nil, fmt.Errorf("gcs adapter '%s': no bucket given and no bucket_name configured", a.name)
	}
	return a.client.Bucket(name), nil
}

func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	w := b.Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("gcs upload '%s': %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs upload '%s': %w", objectName, err)
	}
	logger.Debugf("Uploaded gs://%s/%s (gcs adapter '%s').", w.Bucket, objectName, a.name)
	return nil
}

func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	b, err := a.bucket(bucket)
	if err != nil {
		return nil, err
	}
	r, err := b.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs download '%s': %w", objectName, err)
	}
	return r, nil
}

func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	it := b.Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gcs list '%s': %w", prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.Object(objectName).Delete(ctx); err != nil && !errors.Is(err, gcstorage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete '%s': %w", objectName, err)
	}
	return nil
}
