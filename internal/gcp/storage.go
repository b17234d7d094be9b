package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// StorageFetcher downloads objects from Cloud Storage into memory.
// Documents are handed to the extraction model in a single call, so
// the whole object is buffered rather than streamed to disk.
type StorageFetcher struct {
	client *storage.Client
}

// NewStorageFetcher creates a fetcher backed by a new storage client.
func NewStorageFetcher(ctx context.Context) (*StorageFetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &StorageFetcher{client: client}, nil
}

// Fetch returns the content and declared content type of one object.
// Missing objects and permission errors are classified in the returned
// error text so batch failure entries stay readable.
func (f *StorageFetcher) Fetch(ctx context.Context, bucket, object string) ([]byte, string, error) {
	reader, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open gs://%s/%s: %s", bucket, object, classifyStorageError(err))
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}

	contentType := reader.Attrs.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return content, contentType, nil
}

func classifyStorageError(err error) string {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Sprintf("object not found: %v", err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusForbidden {
		return fmt.Sprintf("access denied: %v", err)
	}
	return err.Error()
}
