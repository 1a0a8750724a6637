package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
)

const publicBaseURL = "https://storage.googleapis.com"

// BlobStore keeps listing images and avatars in a GCS bucket. Objects are
// expected to be publicly readable through bucket-level IAM.
type BlobStore struct {
	client *storage.Client
	bucket string
}

func NewBlobStore(client *storage.Client, bucket string) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("gcs: storage client is nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs: bucket is empty")
	}
	return &BlobStore{client: client, bucket: bucket}, nil
}

// Put uploads r under objectName. Names are never reused, so an existing
// object (HTTP 412 on the DoesNotExist precondition) is treated as already
// uploaded.
func (s *BlobStore) Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	objectName = strings.TrimLeft(strings.TrimSpace(objectName), "/")
	if objectName == "" {
		return "", errors.New("gcs: object name is empty")
	}

	w := s.client.Bucket(s.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil && !isPreconditionFailed(err) {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return PublicURL(s.bucket, objectName), nil
}

func (s *BlobStore) Delete(ctx context.Context, objectName string) error {
	err := s.client.Bucket(s.bucket).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", objectName, err)
	}
	return nil
}

// PublicURL is the plain https URL of an object.
func PublicURL(bucket, objectName string) string {
	return publicBaseURL + "/" + bucket + "/" + strings.TrimLeft(objectName, "/")
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ErrDisabled is returned by DisabledStore uploads.
var ErrDisabled = fmt.Errorf("%w: image uploads are not configured", entity.ErrInvalidInput)

// DisabledStore stands in when no bucket is configured. Uploads fail and
// deletes are no-ops.
type DisabledStore struct{}

func (DisabledStore) Put(context.Context, string, string, io.Reader) (string, error) {
	return "", ErrDisabled
}

func (DisabledStore) Delete(context.Context, string) error { return nil }
