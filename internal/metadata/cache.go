package metadata

import (
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

type cachedBlock struct {
	data []byte
	next int64
}

// Cache keeps decompressed metadata blocks keyed by the absolute offset of
// their length header, so repeated inode and directory lookups into the same
// block skip the decompression. Safe for concurrent readers: a racing miss
// decompresses the same bytes twice and the overwrite is idempotent.
//
// There is no eviction. Metadata is a small fraction of a bounded image, so
// the cache grows to at most the decompressed metadata size.
type Cache struct {
	reader *BlockReader

	mu     sync.RWMutex
	blocks map[int64]cachedBlock
}

// NewCache returns an empty cache over the given block reader.
func NewCache(reader *BlockReader) *Cache {
	return &Cache{
		reader: reader,
		blocks: make(map[int64]cachedBlock),
	}
}

// Block returns the decompressed metadata block whose header is at offset,
// and the offset of the block after it.
func (c *Cache) Block(offset int64) ([]byte, int64, error) {
	c.mu.RLock()
	cached, ok := c.blocks[offset]
	c.mu.RUnlock()
	if ok {
		return cached.data, cached.next, nil
	}

	data, next, err := c.reader.ReadMetadataBlock(offset)
	if err != nil {
		return nil, 0, err
	}

	c.mu.Lock()
	c.blocks[offset] = cachedBlock{data: data, next: next}
	c.mu.Unlock()
	return data, next, nil
}

// ReadSpan reads length bytes of logically-contiguous metadata, starting
// byteOffset bytes into the decompressed block whose header is at start and
// continuing into consecutive blocks as needed.
func (c *Cache) ReadSpan(start int64, byteOffset, length int) ([]byte, error) {
	if byteOffset < 0 || length < 0 {
		return nil, fmt.Errorf("%w: span of %d bytes at offset %d in block at %d",
			types.ErrTruncatedImage, length, byteOffset, start)
	}
	out := make([]byte, 0, length)
	offset := start
	skip := byteOffset
	for len(out) < length {
		data, next, err := c.Block(offset)
		if err != nil {
			return nil, err
		}
		if skip >= len(data) {
			return nil, fmt.Errorf("%w: offset %d outside %d-byte metadata block at %d",
				types.ErrTruncatedImage, skip, len(data), offset)
		}
		out = append(out, data[skip:]...)
		skip = 0
		offset = next
	}
	return out[:length], nil
}

// Len returns the number of cached blocks.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}
