package pagestore

import "github.com/klauspost/compress/zstd"

// compressionIndicator is a one-byte prefix on every sealed payload naming
// the algorithm used, mirroring the trailer byte pebble's sstable block
// format uses to self-describe a block's compression. It lets Unseal work
// without the reader needing to know the writer's compression setting.
type compressionIndicator byte

const (
	noCompressionIndicator   compressionIndicator = 0
	zstdCompressionIndicator compressionIndicator = 1
)

// Compressor seals (compresses) and unseals (decompresses) page and
// metadata payloads. It is treated by the engine as an external
// collaborator behind a stated contract: Seal takes a compression level and
// returns compressed bytes; Unseal takes the known uncompressed length and
// returns exactly that many decompressed bytes.
type Compressor interface {
	// Seal compresses src at the given level and returns the compressed
	// bytes. level <= 0 disables compression.
	Seal(src []byte, level int) ([]byte, error)
	// Unseal decompresses src, which is known to expand to exactly
	// wantLen bytes.
	Unseal(src []byte, wantLen int) ([]byte, error)
}

// zstdCompressor is the default Compressor, backed by klauspost/compress's
// pure-Go zstd implementation.
type zstdCompressor struct{}

// NewZstdCompressor returns the default Compressor.
func NewZstdCompressor() Compressor {
	return zstdCompressor{}
}

func (zstdCompressor) Seal(src []byte, level int) ([]byte, error) {
	if level <= 0 {
		out := make([]byte, 1+len(src))
		out[0] = byte(noCompressionIndicator)
		copy(out[1:], src)
		return out, nil
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()
	buf := make([]byte, 1, len(src)+1)
	buf[0] = byte(zstdCompressionIndicator)
	return encoder.EncodeAll(src, buf), nil
}

func (zstdCompressor) Unseal(src []byte, wantLen int) ([]byte, error) {
	if len(src) < 1 {
		return nil, ErrCorrupt
	}
	switch compressionIndicator(src[0]) {
	case noCompressionIndicator:
		if len(src)-1 != wantLen {
			return nil, ErrCorrupt
		}
		out := make([]byte, wantLen)
		copy(out, src[1:])
		return out, nil
	case zstdCompressionIndicator:
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer decoder.Close()
		out, err := decoder.DecodeAll(src[1:], make([]byte, 0, wantLen))
		if err != nil {
			return nil, err
		}
		if len(out) != wantLen {
			return nil, ErrCorrupt
		}
		return out, nil
	default:
		return nil, ErrCorrupt
	}
}
