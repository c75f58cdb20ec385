// Package connector adapts remote and local storage backends behind a
// single list/open/info contract. Object-store and drive connectors
// retry idempotent operations on transient failures with
// decorrelated-jitter backoff bounded by attempts and elapsed time.
package connector

import (
	"context"
	"io"
	"time"
)

// ResourceRef identifies one item a connector can open, as produced by
// Connector.List. It is immutable once produced.
type ResourceRef struct {
	ID  string // connector-local path
	URI string // canonical URI (e.g. s3://bucket/key, file:///abs/path)
	Name string
}

// ResourceInfo is metadata about a ResourceRef, as produced by
// Connector.Info.
type ResourceInfo struct {
	SourceURI  string
	ModifiedAt time.Time
	ETag       string
	Size       int64
	Extra      map[string]string
}

// Connector lists and streams bytes from a storage backend. Selectors
// are glob patterns relative to the connector root.
type Connector interface {
	// List enumerates resources matching the optional selectors
	// (glob patterns). A nil/empty selector list lists everything
	// under the connector root.
	List(ctx context.Context, selectors []string) ([]ResourceRef, error)
	// Open returns a stream for ref's bytes. The caller MUST close it
	// on all paths.
	Open(ctx context.Context, ref ResourceRef) (io.ReadCloser, error)
	// Info returns metadata for ref without reading its body.
	Info(ctx context.Context, ref ResourceRef) (ResourceInfo, error)
	// Name identifies the connector instance for error messages and
	// manifest recording.
	Name() string
}
