package metadata

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-squashfs/internal/compression"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// countingReaderAt counts ReadAt calls to observe cache behavior.
type countingReaderAt struct {
	r     io.ReaderAt
	mu    sync.Mutex
	reads int
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.r.ReadAt(p, off)
}

func (c *countingReaderAt) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func TestCacheServesRepeatedReadsFromMemory(t *testing.T) {
	image := appendStoredBlock(nil, []byte("cached payload"))
	source := &countingReaderAt{r: bytes.NewReader(image)}
	cache := NewCache(NewBlockReader(source, compression.NewRegistry(), types.CompressionGzip, 131072))

	first, next, err := cache.Block(0)
	require.NoError(t, err)
	after := source.count()

	second, next2, err := cache.Block(0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, next, next2)
	assert.Equal(t, after, source.count(), "second read must not touch the source")
	assert.Equal(t, 1, cache.Len())
}

func TestReadSpanWithinOneBlock(t *testing.T) {
	image := appendStoredBlock(nil, []byte("abcdefghij"))
	cache := NewCache(newTestReader(image))

	out, err := cache.ReadSpan(0, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("defg"), out)
}

func TestReadSpanAcrossBlocks(t *testing.T) {
	image := appendStoredBlock(nil, []byte("first-"))
	image = appendCompressedBlock(t, image, []byte("second-"))
	image = appendStoredBlock(image, []byte("third"))
	cache := NewCache(newTestReader(image))

	out, err := cache.ReadSpan(0, 2, 14)
	require.NoError(t, err)
	assert.Equal(t, []byte("rst-second-thi"), out)
}

func TestReadSpanPastEnd(t *testing.T) {
	image := appendStoredBlock(nil, []byte("only"))
	cache := NewCache(newTestReader(image))

	_, err := cache.ReadSpan(0, 0, 10)
	assert.ErrorIs(t, err, types.ErrTruncatedImage)

	_, err = cache.ReadSpan(0, 8, 1)
	assert.ErrorIs(t, err, types.ErrTruncatedImage)
}

func TestReadSpanRejectsNegativeBounds(t *testing.T) {
	image := appendStoredBlock(nil, []byte("only"))
	cache := NewCache(newTestReader(image))

	_, err := cache.ReadSpan(0, 0, -1)
	assert.ErrorIs(t, err, types.ErrTruncatedImage)

	_, err = cache.ReadSpan(0, -1, 4)
	assert.ErrorIs(t, err, types.ErrTruncatedImage)
}

func TestCacheConcurrentAccess(t *testing.T) {
	payload := bytes.Repeat([]byte("shared metadata "), 64)
	image := appendCompressedBlock(t, nil, payload)
	cache := NewCache(newTestReader(image))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, _, err := cache.Block(0)
			assert.NoError(t, err)
			assert.Equal(t, payload, data)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Len())
}
