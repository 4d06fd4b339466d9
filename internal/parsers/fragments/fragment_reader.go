// Package fragments decodes fragment table entries: the locations of the
// shared blocks holding packed tail-ends of small files.
package fragments

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// Decode decodes one 16-byte fragment entry: block start(8), size word with
// the stored-uncompressed flag(4), padding(4).
func Decode(b []byte) (types.FragmentEntry, error) {
	if len(b) < types.FragmentEntrySize {
		return types.FragmentEntry{}, fmt.Errorf("%w: %d bytes for fragment entry, need %d",
			types.ErrTruncatedImage, len(b), types.FragmentEntrySize)
	}
	return types.FragmentEntry{
		Start: binary.LittleEndian.Uint64(b[0:8]),
		Size:  types.BlockSize(binary.LittleEndian.Uint32(b[8:12])),
	}, nil
}
