package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
	"google.golang.org/api/iterator"
)

// StorageGCS is a Google Cloud Storage-based blob store.
// All names are stored under an optional prefix inside the bucket.
type StorageGCS struct {
	bucketName string
	prefix     string
	bucket     *gcs.BucketHandle
	log        logs.Log
}

// Credentials are found via Application Default Credentials (eg GOOGLE_APPLICATION_CREDENTIALS)
func NewStorageGCS(ctx context.Context, log logs.Log, bucketName, prefix string) (*StorageGCS, error) {
	if bucketName == "" {
		return nil, errors.New("GCS bucket name is empty")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Failed to create GCS client: %w", err)
	}
	return &StorageGCS{
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
		bucket:     client.Bucket(bucketName),
		log:        log,
	}, nil
}

func (s *StorageGCS) objectName(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, name)
	}
	if s.prefix == "" {
		return name, nil
	}
	return path.Join(s.prefix, name), nil
}

func (s *StorageGCS) WriteFile(ctx context.Context, name string) (io.WriteCloser, error) {
	obj, err := s.objectName(name)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Writing gs://%v/%v", s.bucketName, obj)
	return s.bucket.Object(obj).NewWriter(ctx), nil
}

func (s *StorageGCS) ReadFile(ctx context.Context, name string) (*File, error) {
	obj, err := s.objectName(name)
	if err != nil {
		return nil, err
	}
	r, err := s.bucket.Object(obj).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	return &File{
		Reader:     r,
		ModifiedAt: r.Attrs.LastModified,
		Size:       r.Attrs.Size,
	}, nil
}

func (s *StorageGCS) DeleteFile(ctx context.Context, name string) error {
	obj, err := s.objectName(name)
	if err != nil {
		return err
	}
	s.log.Infof("Deleting gs://%v/%v", s.bucketName, obj)
	return s.bucket.Object(obj).Delete(ctx)
}

func (s *StorageGCS) List(ctx context.Context, prefix string) ([]string, error) {
	full := prefix
	if s.prefix != "" {
		full = s.prefix + "/" + prefix
	}
	names := []string{}
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: full})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		name := attrs.Name
		if s.prefix != "" {
			name = strings.TrimPrefix(name, s.prefix+"/")
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *StorageGCS) Location() string {
	if s.prefix == "" {
		return "gs://" + s.bucketName
	}
	return "gs://" + s.bucketName + "/" + s.prefix
}
