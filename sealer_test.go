package pagestore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZstdCompressorRoundTripCompressed(t *testing.T) {
	c := NewZstdCompressor()
	src := bytes.Repeat([]byte("payload"), 500)
	sealed, err := c.Seal(src, 3)
	require.NoError(t, err)
	require.Less(t, len(sealed), len(src))

	got, err := c.Unseal(sealed, len(src))
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestZstdCompressorRoundTripUncompressed(t *testing.T) {
	c := NewZstdCompressor()
	src := []byte("small payload, compression off")
	sealed, err := c.Seal(src, 0)
	require.NoError(t, err)
	require.Equal(t, byte(noCompressionIndicator), sealed[0])

	got, err := c.Unseal(sealed, len(src))
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestZstdCompressorUnsealLengthMismatch(t *testing.T) {
	c := NewZstdCompressor()
	sealed, err := c.Seal([]byte("hello"), 0)
	require.NoError(t, err)

	_, err = c.Unseal(sealed, 999)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestZstdCompressorUnsealEmptyInput(t *testing.T) {
	c := NewZstdCompressor()
	_, err := c.Unseal(nil, 0)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestZstdCompressorUnsealUnknownIndicator(t *testing.T) {
	c := NewZstdCompressor()
	_, err := c.Unseal([]byte{0x7f, 1, 2, 3}, 3)
	require.ErrorIs(t, err, ErrCorrupt)
}
