package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// GzipCodec handles compression id 1. Despite the name, squashfs "gzip"
// blocks are zlib streams (RFC 1950).
type GzipCodec struct {
	CompressionLevel uint32
	WindowSize       uint16
	Strategies       uint16
}

// ID implements Codec.
func (c *GzipCodec) ID() types.CompressionID {
	return types.CompressionGzip
}

// Decompress implements Codec.
func (c *GzipCodec) Decompress(in []byte, maxLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", types.ErrCodec, err)
	}
	defer zr.Close()

	out, err := readBounded(zr, maxLen)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", types.ErrCodec, err)
	}
	if out == nil {
		return nil, oversize(c.ID(), maxLen+1, maxLen)
	}
	return out, nil
}

// LoadOptions implements Codec. The gzip options block is 8 bytes:
// compression level, window size, strategy flags.
func (c *GzipCodec) LoadOptions(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("%w: gzip options are %d bytes, expected 8", types.ErrCodec, len(b))
	}
	c.CompressionLevel = binary.LittleEndian.Uint32(b[0:4])
	c.WindowSize = binary.LittleEndian.Uint16(b[4:6])
	c.Strategies = binary.LittleEndian.Uint16(b[6:8])
	return nil
}

// readBounded reads the whole stream, returning nil (no error) when the
// stream exceeds maxLen bytes.
func readBounded(r io.Reader, maxLen int) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, int64(maxLen)+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxLen {
		return nil, nil
	}
	return out, nil
}
