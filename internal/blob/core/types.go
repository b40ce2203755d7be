// Package core defines the artifact store abstractions shared by the
// filesystem, S3, and in-memory backends. Export workers write pipeline
// artifacts (CSV frames, run manifests) through the Store interface and never
// touch a concrete backend directly.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete artifact store backend.
type Driver string

const (
	// DriverFilesystem stores artifacts under a local directory root (default, dev).
	DriverFilesystem Driver = "fs"
	// DriverS3 stores artifacts in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps artifacts in process memory (tests).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // user metadata (small, flat key-value)
	// Overwrite replaces an existing artifact at the key. Export reruns write
	// the same deterministic names, so replacement is the common case; Put
	// without Overwrite fails on an existing key.
	Overwrite bool
}

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions struct {
	Method  string        // GET|PUT (currently only GET used internally)
	Expiry  time.Duration // default 15m
	Headers map[string]string
}

// Info describes a stored artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a thin S3-like abstraction over artifact storage.
type Store interface {
	// Put stores an artifact at key. Fails if the key exists unless
	// opts.Overwrite is set.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get retrieves the artifact contents and metadata. Missing keys satisfy
	// errors.Is(err, ErrNotFound).
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes an artifact. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns artifacts whose key has the provided prefix, ordered by key
	// ascending.
	List(ctx context.Context, prefix string) ([]Info, error)
	// PresignURL returns a time-limited URL for the given key (GET).
	// Implementations may return ErrUnsupported.
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	// Driver returns the configured backend driver.
	Driver() Driver
}

// ErrNotFound marks a lookup for an artifact key that does not exist.
var ErrNotFound = errors.New("artifact not found")

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("artifact store: unsupported operation")
