package source

import (
	"context"
	"fmt"
)

// MemorySource is a byte-range source backed by an in-memory blob. Reads
// never block and are always safe to issue concurrently, since they only
// ever slice the backing array.
type MemorySource struct {
	data []byte
}

// OpenBlob wraps data as a Source. data is not copied; callers must not
// mutate it while the source is in use.
func OpenBlob(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

func (s *MemorySource) Read(ctx context.Context, offset, length uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := offset + length
	if end > uint64(len(s.data)) || end < offset {
		return nil, fmt.Errorf("source: read %d bytes at %d exceeds blob size %d", length, offset, len(s.data))
	}
	out := make([]byte, length)
	copy(out, s.data[offset:end])
	return out, nil
}

func (s *MemorySource) Size(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return uint64(len(s.data)), nil
}

func (s *MemorySource) Close() error { return nil }
