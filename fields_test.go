package rosbag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractFieldsRoundTrip(t *testing.T) {
	original := Fields{
		"op":    {byte(OpMessageData)},
		"conn":  u32b(7),
		"topic": []byte("/camera/image"),
	}

	encoded := encodeFields(original)
	decoded, err := extractFields(encoded)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestExtractFieldsEmptyValueIsLegal(t *testing.T) {
	encoded := encodeFields(Fields{"callerid": {}})
	decoded, err := extractFields(encoded)
	require.NoError(t, err)
	require.Equal(t, []byte{}, decoded["callerid"])
}

func TestExtractFieldsDuplicateKeyLastWins(t *testing.T) {
	var buf []byte
	buf = append(buf, u32b(uint32(len("k=1")))...)
	buf = append(buf, "k=1"...)
	buf = append(buf, u32b(uint32(len("k=2")))...)
	buf = append(buf, "k=2"...)

	decoded, err := extractFields(buf)
	require.NoError(t, err)
	require.Equal(t, []byte("2"), decoded["k"])
}

func TestExtractFieldsTruncatedHeader(t *testing.T) {
	_, err := extractFields([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrTruncatedHeader)
}

func TestExtractFieldsCorruptHeader(t *testing.T) {
	buf := append(u32b(100), []byte("short")...)
	_, err := extractFields(buf)
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestExtractFieldsMissingEquals(t *testing.T) {
	field := "nodelimiter"
	buf := append(u32b(uint32(len(field))), field...)
	_, err := extractFields(buf)
	require.ErrorIs(t, err, ErrMissingEquals)
}
