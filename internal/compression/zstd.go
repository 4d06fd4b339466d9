package compression

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

const (
	zstdMinLevel uint32 = 1
	zstdMaxLevel uint32 = 22
)

// ZstdCodec handles compression id 6.
type ZstdCodec struct {
	Level uint32

	once    sync.Once
	decoder *zstd.Decoder
	initErr error
}

// ID implements Codec.
func (c *ZstdCodec) ID() types.CompressionID {
	return types.CompressionZstd
}

// Decompress implements Codec.
func (c *ZstdCodec) Decompress(in []byte, maxLen int) ([]byte, error) {
	c.once.Do(func() {
		// The decoder is stateless in DecodeAll mode and safe for
		// concurrent use.
		c.decoder, c.initErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	if c.initErr != nil {
		return nil, fmt.Errorf("%w: zstd: %v", types.ErrCodec, c.initErr)
	}
	out, err := c.decoder.DecodeAll(in, make([]byte, 0, maxLen))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", types.ErrCodec, err)
	}
	if len(out) > maxLen {
		return nil, oversize(c.ID(), len(out), maxLen)
	}
	return out, nil
}

// LoadOptions implements Codec. The zstd options block is 4 bytes: the
// compression level.
func (c *ZstdCodec) LoadOptions(b []byte) error {
	if len(b) != 4 {
		return fmt.Errorf("%w: zstd options are %d bytes, expected 4", types.ErrCodec, len(b))
	}
	level := binary.LittleEndian.Uint32(b[0:4])
	if level < zstdMinLevel || level > zstdMaxLevel {
		return fmt.Errorf("%w: zstd level %d outside [%d, %d]", types.ErrCodec, level, zstdMinLevel, zstdMaxLevel)
	}
	c.Level = level
	return nil
}
