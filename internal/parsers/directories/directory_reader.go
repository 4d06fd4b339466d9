// Package directories decodes directory listings from decompressed
// directory-table metadata: a run of header records, each followed by the
// entries sharing that header's metadata block and base inode number.
package directories

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// MaxEntriesPerHeader bounds the entry count a single header may declare.
const MaxEntriesPerHeader = 256

// Header groups the entries that follow it. StartBlock is the offset of the
// metadata block holding their inodes, relative to the inode table start;
// InodeNumber is the base the entries' signed deltas are added to.
type Header struct {
	Count       uint32
	StartBlock  uint32
	InodeNumber uint32
}

// Entry is one named child of a directory.
type Entry struct {
	// Offset of the child's inode within its decompressed metadata block.
	Offset uint16
	// StartBlock of the child's inode, from the governing header.
	StartBlock  uint32
	InodeNumber uint32
	Type        types.InodeType
	Name        []byte
}

// Ref returns the packed inode reference for the entry.
func (e *Entry) Ref() types.InodeRef {
	return types.NewInodeRef(uint64(e.StartBlock), e.Offset)
}

// DecodeHeader decodes one 12-byte directory header. The stored count is
// one less than the number of entries.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < types.DirectoryHeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes for directory header, need %d",
			types.ErrCorruptDirectory, len(b), types.DirectoryHeaderSize)
	}
	return Header{
		Count:       binary.LittleEndian.Uint32(b[0:4]) + 1,
		StartBlock:  binary.LittleEndian.Uint32(b[4:8]),
		InodeNumber: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// DecodeListing decodes a directory's complete listing span into entries in
// on-disk order. b must hold exactly the listing bytes declared by the
// directory inode (its listing size minus the 3 phantom bytes covering the
// implicit "." and ".." entries).
func DecodeListing(b []byte) ([]Entry, error) {
	var entries []Entry
	pos := 0
	for pos < len(b) {
		header, err := DecodeHeader(b[pos:])
		if err != nil {
			return nil, err
		}
		if header.Count > MaxEntriesPerHeader {
			return nil, fmt.Errorf("%w: header declares %d entries, max %d",
				types.ErrCorruptDirectory, header.Count, MaxEntriesPerHeader)
		}
		pos += types.DirectoryHeaderSize

		for i := uint32(0); i < header.Count; i++ {
			entry, n, err := decodeEntry(b[pos:], header)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
			pos += n
		}
	}
	return entries, nil
}

// decodeEntry decodes one entry: offset(2), inode delta(2, signed),
// type(2), name length(2, stored as length-1), name bytes.
func decodeEntry(b []byte, header Header) (Entry, int, error) {
	if len(b) < types.DirectoryEntryBaseSize {
		return Entry{}, 0, fmt.Errorf("%w: %d bytes for directory entry, need %d",
			types.ErrCorruptDirectory, len(b), types.DirectoryEntryBaseSize)
	}
	delta := int16(binary.LittleEndian.Uint16(b[2:4]))
	nameLen := int(binary.LittleEndian.Uint16(b[6:8])) + 1
	if nameLen > types.DirectoryNameMaxSize {
		return Entry{}, 0, fmt.Errorf("%w: entry name of %d bytes, max %d",
			types.ErrCorruptDirectory, nameLen, types.DirectoryNameMaxSize)
	}
	total := types.DirectoryEntryBaseSize + nameLen
	if len(b) < total {
		return Entry{}, 0, fmt.Errorf("%w: entry name of %d bytes reads past listing end",
			types.ErrCorruptDirectory, nameLen)
	}
	name := make([]byte, nameLen)
	copy(name, b[types.DirectoryEntryBaseSize:total])
	return Entry{
		Offset:      binary.LittleEndian.Uint16(b[0:2]),
		StartBlock:  header.StartBlock,
		InodeNumber: uint32(int64(header.InodeNumber) + int64(delta)),
		Type:        types.InodeType(binary.LittleEndian.Uint16(b[4:6])),
		Name:        name,
	}, total, nil
}
