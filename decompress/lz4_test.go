package decompress

import (
	"bytes"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

func compressLZ4(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecompressLZ4RoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("rosbag chunk payload "), 64)
	compressed := compressLZ4(t, original)

	got, err := DecompressLZ4(compressed, uint32(len(original)))
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestDecompressLZ4ShortInputFails(t *testing.T) {
	compressed := compressLZ4(t, []byte("short"))
	_, err := DecompressLZ4(compressed, 100)
	require.Error(t, err)
}
