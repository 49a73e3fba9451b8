// Package source defines the byte-range source interface the rosbag core
// consumes (spec.md §4.1), along with default adapters over a local file, an
// in-memory blob, and an HTTP range server. These adapters are external
// collaborators, not part of the core: the core only ever calls Read/Size.
package source

import (
	"context"
	"errors"
	"fmt"
)

// ErrConcurrentRead is returned by non-reentrant sources when a second Read
// is issued while one is already in flight (spec.md §4.1).
var ErrConcurrentRead = errors.New("source: concurrent read against non-reentrant source")

// Source is the byte-range contract the rosbag core consumes. Implementations
// must deliver exactly length bytes on success.
type Source interface {
	// Read returns exactly length bytes starting at offset, or an error.
	Read(ctx context.Context, offset, length uint64) ([]byte, error)
	// Size returns the total size of the underlying byte range.
	Size(ctx context.Context) (uint64, error)
	// Close releases any resources held by the source.
	Close() error
}

// ReadAll drains a Source end to end; it exists for small bags and tests.
func ReadAll(ctx context.Context, s Source) ([]byte, error) {
	size, err := s.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("source: size: %w", err)
	}
	return s.Read(ctx, 0, size)
}
