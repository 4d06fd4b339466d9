package services

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-squashfs/internal/metadata"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/xattrs"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// xattrTable resolves extended attribute id entries and their key/value
// streams. The id table is block-chunked like the other lookup tables; the
// entry streams live in a separate metadata region whose start is recorded
// in the table header.
type xattrTable struct {
	chunkedTable
	metaStart int64
}

func newXattrTable(source io.ReaderAt, cache *metadata.Cache, sb *types.Superblock) (*xattrTable, error) {
	header, err := readFull(source, int64(sb.XattrTableStart), types.XattrHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("reading xattr table header: %w", err)
	}
	metaStart := int64(binary.LittleEndian.Uint64(header[0:8]))
	count := binary.LittleEndian.Uint32(header[8:12])
	index, err := readTableIndex(source, int64(sb.XattrTableStart)+types.XattrHeaderSize,
		int(count), types.XattrIDEntrySize)
	if err != nil {
		return nil, fmt.Errorf("reading xattr id index: %w", err)
	}
	return &xattrTable{
		chunkedTable: chunkedTable{cache: cache, index: index, entrySize: types.XattrIDEntrySize, count: int(count)},
		metaStart:    metaStart,
	}, nil
}

func (t *xattrTable) lookupID(i uint32) (types.XattrID, error) {
	if t == nil || int(i) >= t.count {
		count := 0
		if t != nil {
			count = t.count
		}
		return types.XattrID{}, fmt.Errorf("%w: %d outside xattr id table of %d entries",
			types.ErrInvalidXattrIndex, i, count)
	}
	b, err := t.entry(int(i))
	if err != nil {
		return types.XattrID{}, err
	}
	return xattrs.DecodeID(b)
}

// attrs decodes the key/value stream behind an id entry into a map keyed by
// the full attribute name. Out-of-line values are chased through their
// metadata reference.
func (t *xattrTable) attrs(id types.XattrID) (map[string][]byte, error) {
	ref := types.InodeRef(id.Ref)
	span, err := t.cache.ReadSpan(t.metaStart+int64(ref.Block()), int(ref.Offset()), int(id.Size))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, id.Count)
	pos := 0
	for i := uint32(0); i < id.Count; i++ {
		entry, n, err := xattrs.DecodeEntry(span[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		value := entry.Value
		if entry.OutOfLine() {
			if value, err = t.valueAt(types.InodeRef(entry.ValueRef())); err != nil {
				return nil, err
			}
		}
		out[entry.Key()] = value
	}
	return out, nil
}

// valueAt reads an out-of-line value through its packed metadata reference.
func (t *xattrTable) valueAt(ref types.InodeRef) ([]byte, error) {
	head, err := t.cache.ReadSpan(t.metaStart+int64(ref.Block()), int(ref.Offset()), types.XattrValueBaseSize)
	if err != nil {
		return nil, err
	}
	size := int(binary.LittleEndian.Uint32(head))
	span, err := t.cache.ReadSpan(t.metaStart+int64(ref.Block()), int(ref.Offset()), types.XattrValueBaseSize+size)
	if err != nil {
		return nil, err
	}
	value, _, err := xattrs.DecodeValue(span)
	return value, err
}
