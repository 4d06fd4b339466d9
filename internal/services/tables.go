package services

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-squashfs/internal/metadata"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/fragments"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// readFull reads exactly len(b) bytes at offset from the image source.
func readFull(source io.ReaderAt, offset int64, length int) ([]byte, error) {
	b := make([]byte, length)
	n, err := source.ReadAt(b, offset)
	if n == length {
		return b, nil
	}
	if err == nil || err == io.EOF {
		err = fmt.Errorf("%w: %d of %d bytes at offset %d", types.ErrTruncatedImage, n, length, offset)
	}
	return nil, err
}

// readTableIndex reads the first level of a two-level table: the
// uncompressed list of absolute metadata block locations, one per chunk of
// entryCount*entrySize bytes.
func readTableIndex(source io.ReaderAt, start int64, entryCount, entrySize int) ([]int64, error) {
	if entryCount == 0 {
		return nil, nil
	}
	blocks := (entryCount*entrySize + types.MetadataBlockSize - 1) / types.MetadataBlockSize
	raw, err := readFull(source, start, blocks*8)
	if err != nil {
		return nil, err
	}
	index := make([]int64, blocks)
	for i := range index {
		index[i] = int64(binary.LittleEndian.Uint64(raw[i*8 : i*8+8]))
	}
	return index, nil
}

// chunkedTable resolves fixed-size entries from a compressed,
// block-chunked table through the metadata cache.
type chunkedTable struct {
	cache     *metadata.Cache
	index     []int64
	entrySize int
	count     int
}

func (t *chunkedTable) entry(i int) ([]byte, error) {
	pos := i * t.entrySize
	block := pos / types.MetadataBlockSize
	offset := pos % types.MetadataBlockSize
	if block >= len(t.index) {
		return nil, fmt.Errorf("%w: entry %d has no index block", types.ErrTruncatedImage, i)
	}
	return t.cache.ReadSpan(t.index[block], offset, t.entrySize)
}

// idTable resolves 32-bit uids/gids by index.
type idTable struct {
	chunkedTable
}

func newIDTable(source io.ReaderAt, cache *metadata.Cache, sb *types.Superblock) (*idTable, error) {
	index, err := readTableIndex(source, int64(sb.IDTableStart), int(sb.IDCount), types.IDEntrySize)
	if err != nil {
		return nil, fmt.Errorf("reading id table index: %w", err)
	}
	return &idTable{chunkedTable{cache: cache, index: index, entrySize: types.IDEntrySize, count: int(sb.IDCount)}}, nil
}

func (t *idTable) lookup(i uint32) (uint32, error) {
	if int(i) >= t.count {
		return 0, fmt.Errorf("%w: %d outside id table of %d entries", types.ErrInvalidIDIndex, i, t.count)
	}
	b, err := t.entry(int(i))
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// fragmentTable resolves fragment entries by index.
type fragmentTable struct {
	chunkedTable
}

func newFragmentTable(source io.ReaderAt, cache *metadata.Cache, sb *types.Superblock) (*fragmentTable, error) {
	index, err := readTableIndex(source, int64(sb.FragmentTableStart), int(sb.FragmentCount), types.FragmentEntrySize)
	if err != nil {
		return nil, fmt.Errorf("reading fragment table index: %w", err)
	}
	return &fragmentTable{chunkedTable{cache: cache, index: index, entrySize: types.FragmentEntrySize, count: int(sb.FragmentCount)}}, nil
}

func (t *fragmentTable) lookup(i uint32) (types.FragmentEntry, error) {
	if t == nil || int(i) >= t.count {
		count := 0
		if t != nil {
			count = t.count
		}
		return types.FragmentEntry{}, fmt.Errorf("%w: %d outside fragment table of %d entries",
			types.ErrInvalidFragmentIndex, i, count)
	}
	b, err := t.entry(int(i))
	if err != nil {
		return types.FragmentEntry{}, err
	}
	return fragments.Decode(b)
}

// exportTable resolves inode numbers to inode references. Present only on
// exportable images.
type exportTable struct {
	chunkedTable
}

func newExportTable(source io.ReaderAt, cache *metadata.Cache, sb *types.Superblock) (*exportTable, error) {
	index, err := readTableIndex(source, int64(sb.ExportTableStart), int(sb.InodeCount), types.LookupEntrySize)
	if err != nil {
		return nil, fmt.Errorf("reading export table index: %w", err)
	}
	return &exportTable{chunkedTable{cache: cache, index: index, entrySize: types.LookupEntrySize, count: int(sb.InodeCount)}}, nil
}

// lookup maps a 1-based inode number to its reference.
func (t *exportTable) lookup(number uint32) (types.InodeRef, error) {
	if t == nil {
		return 0, fmt.Errorf("%w: image carries no export table", types.ErrInvalidInodeNumber)
	}
	if number == 0 || int(number) > t.count {
		return 0, fmt.Errorf("%w: %d outside [1, %d]", types.ErrInvalidInodeNumber, number, t.count)
	}
	b, err := t.entry(int(number - 1))
	if err != nil {
		return 0, err
	}
	return types.InodeRef(binary.LittleEndian.Uint64(b)), nil
}
