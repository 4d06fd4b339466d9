package types

import "time"

// InodeRef is a packed 64-bit reference to an inode: the upper 48 bits are
// the byte offset of the metadata block holding the inode, relative to the
// inode table start, and the low 16 bits are the byte offset of the record
// within the decompressed block.
type InodeRef uint64

// NewInodeRef packs a block offset and an intra-block offset.
func NewInodeRef(block uint64, offset uint16) InodeRef {
	return InodeRef(block<<16 | uint64(offset))
}

// Block returns the 48-bit metadata block offset relative to the inode
// table start.
func (r InodeRef) Block() uint64 {
	return uint64(r >> 16)
}

// Offset returns the byte offset within the decompressed metadata block.
func (r InodeRef) Offset() uint16 {
	return uint16(r & 0xffff)
}

// SuperblockFlags is the decoded superblock flags bitfield.
type SuperblockFlags struct {
	UncompressedInodes    bool
	UncompressedData      bool
	UncompressedFragments bool
	NoFragments           bool
	AlwaysFragments       bool
	Duplicates            bool
	Exportable            bool
	UncompressedXattrs    bool
	NoXattrs              bool
	CompressorOptions     bool
	UncompressedIDs       bool
}

// DecodeSuperblockFlags expands the on-disk bitfield.
func DecodeSuperblockFlags(flags uint16) SuperblockFlags {
	return SuperblockFlags{
		UncompressedInodes:    flags&FlagUncompressedInodes != 0,
		UncompressedData:      flags&FlagUncompressedData != 0,
		UncompressedFragments: flags&FlagUncompressedFragments != 0,
		NoFragments:           flags&FlagNoFragments != 0,
		AlwaysFragments:       flags&FlagAlwaysFragments != 0,
		Duplicates:            flags&FlagDuplicates != 0,
		Exportable:            flags&FlagExportable != 0,
		UncompressedXattrs:    flags&FlagUncompressedXattrs != 0,
		NoXattrs:              flags&FlagNoXattrs != 0,
		CompressorOptions:     flags&FlagCompressorOptions != 0,
		UncompressedIDs:       flags&FlagUncompressedIDs != 0,
	}
}

// Superblock is the decoded 96-byte header at offset 0 of every image. Table
// start offsets are absolute byte positions; absent tables carry
// InvalidBlock.
type Superblock struct {
	InodeCount    uint32
	ModTime       time.Time
	BlockSize     uint32
	FragmentCount uint32
	Compression   CompressionID
	BlockLog      uint16
	RawFlags      uint16
	Flags         SuperblockFlags
	IDCount       uint16
	VersionMajor  uint16
	VersionMinor  uint16
	RootInode     InodeRef
	BytesUsed     uint64

	IDTableStart        uint64
	XattrTableStart     uint64
	InodeTableStart     uint64
	DirectoryTableStart uint64
	FragmentTableStart  uint64
	ExportTableStart    uint64
}

// HasFragments reports whether the image carries a fragment table.
func (s *Superblock) HasFragments() bool {
	return s.FragmentCount > 0 && s.FragmentTableStart != InvalidBlock
}

// HasExports reports whether the image carries an export (inode lookup)
// table.
func (s *Superblock) HasExports() bool {
	return s.Flags.Exportable && s.ExportTableStart != InvalidBlock
}

// HasXattrs reports whether the image carries an xattr table.
func (s *Superblock) HasXattrs() bool {
	return !s.Flags.NoXattrs && s.XattrTableStart != InvalidBlock
}
