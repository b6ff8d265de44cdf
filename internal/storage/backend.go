// Package storage defines the Backend interface for file content storage
// used by the reference folder server.
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/sharingconfigs/sharingconfigs/internal/metrics"
)

// Backend is the interface for content storage backends.
// Keys are slash separated; missing objects are reported with errors
// matching fs.ErrNotExist.
type Backend interface {
	// GetObject retrieves an object and its size.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// PutObject stores content at the given key, replacing any previous object.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// DeleteObject removes an object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists at the given key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// ListObjects returns the keys under prefix, sorted.
	ListObjects(ctx context.Context, prefix string) ([]string, error)

	// Type returns the backend type identifier ("memory", "local", "s3").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Instrument wraps a backend so every operation is recorded in metrics.
func Instrument(b Backend) Backend {
	return &instrumented{Backend: b}
}

type instrumented struct {
	Backend
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordStorageOperation(i.Type(), op, time.Since(start), err == nil || IsNotFound(err))
}

func (i *instrumented) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	start := time.Now()
	r, size, err := i.Backend.GetObject(ctx, key)
	i.observe("get_object", start, err)
	return r, size, err
}

func (i *instrumented) PutObject(ctx context.Context, key string, body io.Reader, size int64) error {
	start := time.Now()
	err := i.Backend.PutObject(ctx, key, body, size)
	i.observe("put_object", start, err)
	return err
}

func (i *instrumented) DeleteObject(ctx context.Context, key string) error {
	start := time.Now()
	err := i.Backend.DeleteObject(ctx, key)
	i.observe("delete_object", start, err)
	return err
}

func (i *instrumented) ObjectExists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := i.Backend.ObjectExists(ctx, key)
	i.observe("object_exists", start, err)
	return ok, err
}

func (i *instrumented) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := i.Backend.ListObjects(ctx, prefix)
	i.observe("list_objects", start, err)
	return keys, err
}
