package decompress

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
)

// DecompressBZ2 inflates a bz2-compressed chunk using the standard library's
// decompress-only bzip2 reader. No third-party bzip2 decoder appears
// anywhere in the example pack (SPEC_FULL.md §3), and the read-only stdlib
// implementation is exactly the shape this registry entry needs.
func DecompressBZ2(compressed []byte, expectedSize uint32) ([]byte, error) {
	r := bzip2.NewReader(bytes.NewReader(compressed))

	buf := make([]byte, expectedSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("decompress: bz2 read: %w", err)
	}
	return buf, nil
}
