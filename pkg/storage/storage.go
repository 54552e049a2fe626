// Package storage is where the render batch writes its outputs.
// An output location is either a local directory or a "gs://bucket/prefix" URI.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
)

var ErrInvalidName = errors.New("Invalid file name")

// Storage is an abstraction of a blob store.
// Names are relative, slash-separated paths such as "images/0001.jpg".
type Storage interface {
	// When finished, you must close the WriteCloser
	WriteFile(ctx context.Context, name string) (io.WriteCloser, error)

	// When finished, you must close File.Reader
	ReadFile(ctx context.Context, name string) (*File, error)

	DeleteFile(ctx context.Context, name string) error

	// List the names of all files under prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Human readable location, for log messages
	Location() string
}

// File is an element in blob storage.
type File struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

// Open a storage location. Locations that start with "gs://" are Google Cloud Storage buckets,
// and anything else is a directory on the local filesystem.
func Open(ctx context.Context, log logs.Log, location string) (Storage, error) {
	if strings.HasPrefix(location, "gs://") {
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(location, "gs://"), "/")
		return NewStorageGCS(ctx, log, bucket, prefix)
	}
	return NewStorageFS(log, location)
}

func WriteFile(ctx context.Context, s Storage, name string, content io.Reader) error {
	f, err := s.WriteFile(ctx, name)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, content)
	errClose := f.Close()
	if err != nil {
		return err
	}
	return errClose
}

func ReadFile(ctx context.Context, s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}

func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
