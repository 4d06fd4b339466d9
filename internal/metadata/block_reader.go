// Package metadata reads the length-prefixed, optionally-compressed blocks
// that make up a SquashFS image: 8 KiB metadata blocks holding inodes,
// directories and tables, and variable-size data blocks holding file
// contents.
package metadata

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/deploymenttheory/go-squashfs/internal/compression"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// BlockReader reads blocks from absolute byte offsets in the image source,
// decompressing through the codec registry when a block's compressed flag is
// set. The codec for the superblock's compression id is resolved lazily on
// the first compressed block, so fully-uncompressed images never require one.
type BlockReader struct {
	source      io.ReaderAt
	registry    *compression.Registry
	compression types.CompressionID
	blockSize   uint32

	mu    sync.Mutex
	codec compression.Codec
}

// NewBlockReader returns a reader over source for an image with the given
// compression id and data block size.
func NewBlockReader(source io.ReaderAt, registry *compression.Registry, id types.CompressionID, blockSize uint32) *BlockReader {
	return &BlockReader{
		source:      source,
		registry:    registry,
		compression: id,
		blockSize:   blockSize,
	}
}

// Codec resolves the codec for the image's compression id.
func (r *BlockReader) Codec() (compression.Codec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codec == nil {
		c, err := r.registry.Lookup(r.compression)
		if err != nil {
			return nil, err
		}
		r.codec = c
	}
	return r.codec, nil
}

// readFull reads exactly length bytes at offset.
func (r *BlockReader) readFull(offset int64, length int) ([]byte, error) {
	b := make([]byte, length)
	n, err := r.source.ReadAt(b, offset)
	if n == length {
		return b, nil
	}
	if err == nil || err == io.EOF {
		err = fmt.Errorf("%w: %d of %d bytes at offset %d", types.ErrTruncatedImage, n, length, offset)
	}
	return nil, err
}

// ReadMetadataBlock reads the metadata block whose 2-byte length header sits
// at offset. It returns the decompressed payload and the offset of the next
// block header.
func (r *BlockReader) ReadMetadataBlock(offset int64) ([]byte, int64, error) {
	hdr, err := r.readFull(offset, types.MetadataHeaderSize)
	if err != nil {
		return nil, 0, err
	}
	word := binary.LittleEndian.Uint16(hdr)
	length := int(word &^ types.MetadataUncompressedBit)
	stored := word&types.MetadataUncompressedBit != 0
	if length > types.MetadataBlockSize {
		return nil, 0, fmt.Errorf("%w: metadata block at offset %d declares %d bytes, max %d",
			types.ErrTruncatedImage, offset, length, types.MetadataBlockSize)
	}

	next := offset + types.MetadataHeaderSize + int64(length)
	if length == 0 {
		return nil, next, nil
	}

	payload, err := r.readFull(offset+types.MetadataHeaderSize, length)
	if err != nil {
		return nil, 0, err
	}
	if stored {
		return payload, next, nil
	}

	codec, err := r.Codec()
	if err != nil {
		return nil, 0, err
	}
	data, err := codec.Decompress(payload, types.MetadataBlockSize)
	if err != nil {
		return nil, 0, fmt.Errorf("metadata block at offset %d: %w", offset, err)
	}
	return data, next, nil
}

// ReadDataBlock reads a data block at offset. size carries the on-disk byte
// length and the stored-uncompressed flag, as recorded in a file inode's
// block-size list or a fragment entry. Sparse entries (size 0) are the
// caller's concern and never reach the reader.
func (r *BlockReader) ReadDataBlock(offset int64, size types.BlockSize) ([]byte, error) {
	payload, err := r.readFull(offset, int(size.Size()))
	if err != nil {
		return nil, err
	}
	if size.Uncompressed() {
		return payload, nil
	}
	codec, err := r.Codec()
	if err != nil {
		return nil, err
	}
	data, err := codec.Decompress(payload, int(r.blockSize))
	if err != nil {
		return nil, fmt.Errorf("data block at offset %d: %w", offset, err)
	}
	return data, nil
}

// BlockSize returns the image's data block size.
func (r *BlockReader) BlockSize() uint32 {
	return r.blockSize
}
