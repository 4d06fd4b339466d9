package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// XzCodec handles compression id 4.
type XzCodec struct {
	DictionarySize    uint32
	ExecutableFilters uint32
}

// ID implements Codec.
func (c *XzCodec) ID() types.CompressionID {
	return types.CompressionXz
}

// Decompress implements Codec.
func (c *XzCodec) Decompress(in []byte, maxLen int) ([]byte, error) {
	xr, err := xz.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("%w: xz: %v", types.ErrCodec, err)
	}
	out, err := readBounded(xr, maxLen)
	if err != nil {
		return nil, fmt.Errorf("%w: xz: %v", types.ErrCodec, err)
	}
	if out == nil {
		return nil, oversize(c.ID(), maxLen+1, maxLen)
	}
	return out, nil
}

// LoadOptions implements Codec. The xz options block is 8 bytes: dictionary
// size and BCJ filter flags.
func (c *XzCodec) LoadOptions(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("%w: xz options are %d bytes, expected 8", types.ErrCodec, len(b))
	}
	c.DictionarySize = binary.LittleEndian.Uint32(b[0:4])
	c.ExecutableFilters = binary.LittleEndian.Uint32(b[4:8])
	return nil
}

// LzmaCodec handles compression id 2, the legacy raw-lzma format emitted by
// pre-4.0 tooling that some 4.0 images still carry.
type LzmaCodec struct{}

// ID implements Codec.
func (c *LzmaCodec) ID() types.CompressionID {
	return types.CompressionLzma
}

// Decompress implements Codec.
func (c *LzmaCodec) Decompress(in []byte, maxLen int) ([]byte, error) {
	lr, err := lzma.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma: %v", types.ErrCodec, err)
	}
	out, err := readBounded(lr, maxLen)
	if err != nil {
		return nil, fmt.Errorf("%w: lzma: %v", types.ErrCodec, err)
	}
	if out == nil {
		return nil, oversize(c.ID(), maxLen+1, maxLen)
	}
	return out, nil
}

// LoadOptions implements Codec. lzma has no options block.
func (c *LzmaCodec) LoadOptions(b []byte) error {
	if len(b) != 0 {
		return fmt.Errorf("%w: lzma carries no options, received %d bytes", types.ErrCodec, len(b))
	}
	return nil
}
