package decompress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryHasLZ4AndBZ2(t *testing.T) {
	reg := Default()
	_, err := reg.Lookup("lz4")
	require.NoError(t, err)
	_, err = reg.Lookup("bz2")
	require.NoError(t, err)
}

func TestLookupUnknownCompressionNamesCompressionInError(t *testing.T) {
	reg := Default()
	_, err := reg.Lookup("zstd")

	var unsupported *UnsupportedCompressionError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "zstd", unsupported.Name)
	require.True(t, strings.Contains(err.Error(), "compression"),
		"error message must mention compression: %q", err.Error())
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	reg := Default()
	clone := reg.Clone()
	clone["zstd"] = func(compressed []byte, expectedSize uint32) ([]byte, error) {
		return compressed, nil
	}

	_, err := reg.Lookup("zstd")
	require.Error(t, err, "mutating the clone must not affect the original registry")

	_, err = clone.Lookup("zstd")
	require.NoError(t, err)
}
