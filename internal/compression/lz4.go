package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

const lz4Version1 uint32 = 1

// Lz4Codec handles compression id 5. SquashFS stores raw lz4 blocks, not
// the framed format.
type Lz4Codec struct {
	Version uint32
	Flags   uint32
}

// ID implements Codec.
func (c *Lz4Codec) ID() types.CompressionID {
	return types.CompressionLz4
}

// Decompress implements Codec.
func (c *Lz4Codec) Decompress(in []byte, maxLen int) ([]byte, error) {
	out := make([]byte, maxLen)
	n, err := lz4.UncompressBlock(in, out)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", types.ErrCodec, err)
	}
	return out[:n], nil
}

// LoadOptions implements Codec. The lz4 options block is 8 bytes: stream
// version and flags. mksquashfs always writes it.
func (c *Lz4Codec) LoadOptions(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("%w: lz4 options are %d bytes, expected 8", types.ErrCodec, len(b))
	}
	version := binary.LittleEndian.Uint32(b[0:4])
	if version != lz4Version1 {
		return fmt.Errorf("%w: lz4 stream version %d, only %d supported", types.ErrCodec, version, lz4Version1)
	}
	c.Version = version
	c.Flags = binary.LittleEndian.Uint32(b[4:8])
	return nil
}
