// Package compression maps SquashFS compression ids to decompression
// codecs. Codecs are registered up front but validated lazily: an image
// whose metadata and data are all stored uncompressed never needs one.
package compression

import (
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// Codec decompresses blocks for one compression id.
type Codec interface {
	// ID returns the compression id this codec serves.
	ID() types.CompressionID

	// Decompress inflates a compressed block. maxLen bounds the expected
	// output length; output exceeding it is rejected as corrupt.
	Decompress(in []byte, maxLen int) ([]byte, error)

	// LoadOptions applies the compressor-options block that follows the
	// superblock when the compressor-options flag is set.
	LoadOptions(b []byte) error
}

// Registry maps compression ids to codecs.
type Registry struct {
	mu     sync.RWMutex
	codecs map[types.CompressionID]Codec
}

// NewRegistry returns a registry with all built-in codecs registered.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[types.CompressionID]Codec)}
	r.Register(&GzipCodec{})
	r.Register(&LzmaCodec{})
	r.Register(&LzoCodec{})
	r.Register(&XzCodec{})
	r.Register(&Lz4Codec{})
	r.Register(&ZstdCodec{})
	return r
}

// NewEmptyRegistry returns a registry with no codecs. Useful for builds
// that want to restrict the supported algorithms.
func NewEmptyRegistry() *Registry {
	return &Registry{codecs: make(map[types.CompressionID]Codec)}
}

// Register adds or replaces the codec for its compression id.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.ID()] = c
}

// Lookup returns the codec registered for the id.
func (r *Registry) Lookup(id types.CompressionID) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[id]
	if !ok {
		return nil, fmt.Errorf("%w: no codec registered for id %d (%s)", types.ErrUnsupportedCompression, id, id)
	}
	return c, nil
}

func oversize(id types.CompressionID, got, maxLen int) error {
	return fmt.Errorf("%w: %s output %d bytes exceeds expected maximum %d", types.ErrCodec, id, got, maxLen)
}
