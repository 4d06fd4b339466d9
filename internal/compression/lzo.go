package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rasky/go-lzo"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// LzoCodec handles compression id 3. All squashfs lzo variants decompress
// with the generic lzo1x decompressor.
type LzoCodec struct {
	Algorithm uint32
	Level     uint32
}

// ID implements Codec.
func (c *LzoCodec) ID() types.CompressionID {
	return types.CompressionLzo
}

// Decompress implements Codec.
func (c *LzoCodec) Decompress(in []byte, maxLen int) ([]byte, error) {
	out, err := lzo.Decompress1X(bytes.NewReader(in), len(in), maxLen)
	if err != nil {
		return nil, fmt.Errorf("%w: lzo: %v", types.ErrCodec, err)
	}
	if len(out) > maxLen {
		return nil, oversize(c.ID(), len(out), maxLen)
	}
	return out, nil
}

// LoadOptions implements Codec. The lzo options block is 8 bytes: algorithm
// selector and compression level.
func (c *LzoCodec) LoadOptions(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("%w: lzo options are %d bytes, expected 8", types.ErrCodec, len(b))
	}
	c.Algorithm = binary.LittleEndian.Uint32(b[0:4])
	c.Level = binary.LittleEndian.Uint32(b[4:8])
	return nil
}
