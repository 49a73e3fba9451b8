package decompress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// DecompressLZ4 inflates an lz4-compressed chunk, grounded on
// go/libmcap/indexed_message_iterator.go's identical use of pierrec/lz4 for
// MCAP chunk decompression.
func DecompressLZ4(compressed []byte, expectedSize uint32) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(compressed))

	buf := make([]byte, expectedSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("decompress: lz4 read: %w", err)
	}
	return buf, nil
}
