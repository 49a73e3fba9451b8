package decompress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// bz2Fixture is "hello rosbag" compressed with the reference bzip2 tool.
var bz2Fixture = []byte{
	0x42, 0x5a, 0x68, 0x39, 0x31, 0x41, 0x59, 0x26, 0x53, 0x59, 0xe5, 0x4a, 0x65, 0x02, 0x00, 0x00,
	0x02, 0x91, 0x80, 0x40, 0x00, 0x32, 0xc4, 0x98, 0x00, 0x20, 0x00, 0x31, 0x00, 0x30, 0x20, 0x06,
	0x9e, 0xa2, 0xa1, 0x62, 0x5c, 0xc0, 0x78, 0xbb, 0x92, 0x29, 0xc2, 0x84, 0x87, 0x2a, 0x53, 0x28,
	0x10,
}

func TestDecompressBZ2(t *testing.T) {
	got, err := DecompressBZ2(bz2Fixture, uint32(len("hello rosbag")))
	require.NoError(t, err)
	require.Equal(t, []byte("hello rosbag"), got)
}

func TestDecompressBZ2TruncatedFails(t *testing.T) {
	_, err := DecompressBZ2(bz2Fixture[:10], 12)
	require.Error(t, err)
}
