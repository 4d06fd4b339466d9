// Package types implements data structures for the SquashFS on-disk format.
// Layouts follow the squashfs 4.0 format as produced by mksquashfs and read
// by the Linux kernel.
package types

// SquashfsMagic is the superblock magic, "hsqs" in little-endian.
const SquashfsMagic uint32 = 0x73717368

const (
	// SuperblockSize is the fixed size of the superblock at offset 0.
	SuperblockSize = 96

	// MetadataBlockSize is the uncompressed size of a metadata block.
	// Metadata (inodes, directories, tables) is chunked into blocks of
	// this size, each compressed independently.
	MetadataBlockSize = 8192

	// MetadataHeaderSize is the size of the length header preceding each
	// metadata block on disk.
	MetadataHeaderSize = 2
)

const (
	MajorVersion uint16 = 4
	MinorVersion uint16 = 0
)

const (
	// MinBlockSize and MaxBlockSize bound the data block size recorded in
	// the superblock. The value must also be a power of two.
	MinBlockSize = 4096
	MaxBlockSize = 1048576
)

const (
	// InvalidBlock marks an absent table in the superblock.
	InvalidBlock uint64 = 0xffffffffffffffff

	// InvalidFragment marks a file inode with no tail fragment.
	InvalidFragment uint32 = 0xffffffff

	// InvalidXattr marks an inode with no extended attributes.
	InvalidXattr uint32 = 0xffffffff
)

// MetadataUncompressedBit is set in a metadata block's length header when the
// payload is stored verbatim. The low 15 bits are the on-disk payload length.
const MetadataUncompressedBit uint16 = 0x8000

// DataUncompressedBit is set in a data block size word (block-size list
// entries and fragment entry sizes) when the block is stored verbatim. The
// low 31 bits are the on-disk payload length; a zero length in a block-size
// list marks a sparse hole.
const DataUncompressedBit uint32 = 0x80000000

// CompressionID identifies the compression algorithm recorded in the
// superblock and applied to every compressed block in the image.
type CompressionID uint16

const (
	CompressionGzip CompressionID = 1
	CompressionLzma CompressionID = 2
	CompressionLzo  CompressionID = 3
	CompressionXz   CompressionID = 4
	CompressionLz4  CompressionID = 5
	CompressionZstd CompressionID = 6
)

// String returns the conventional name for the compression id.
func (c CompressionID) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionLzma:
		return "lzma"
	case CompressionLzo:
		return "lzo"
	case CompressionXz:
		return "xz"
	case CompressionLz4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	}
	return "unknown"
}

// Superblock flags bitfield.
const (
	FlagUncompressedInodes    uint16 = 0x0001
	FlagUncompressedData      uint16 = 0x0002
	FlagUncompressedFragments uint16 = 0x0008
	FlagNoFragments           uint16 = 0x0010
	FlagAlwaysFragments       uint16 = 0x0020
	FlagDuplicates            uint16 = 0x0040
	FlagExportable            uint16 = 0x0080
	FlagUncompressedXattrs    uint16 = 0x0100
	FlagNoXattrs              uint16 = 0x0200
	FlagCompressorOptions     uint16 = 0x0400
	FlagUncompressedIDs       uint16 = 0x0800
)

// InodeType is the 16-bit type tag at the start of every inode record.
// Tags 1-7 are the basic variants, 8-14 the extended counterparts in the
// same order.
type InodeType uint16

const (
	InodeBasicDirectory    InodeType = 1
	InodeBasicFile         InodeType = 2
	InodeBasicSymlink      InodeType = 3
	InodeBasicBlockDev     InodeType = 4
	InodeBasicCharDev      InodeType = 5
	InodeBasicFifo         InodeType = 6
	InodeBasicSocket       InodeType = 7
	InodeExtendedDirectory InodeType = 8
	InodeExtendedFile      InodeType = 9
	InodeExtendedSymlink   InodeType = 10
	InodeExtendedBlockDev  InodeType = 11
	InodeExtendedCharDev   InodeType = 12
	InodeExtendedFifo      InodeType = 13
	InodeExtendedSocket    InodeType = 14
)

// Basic reports whether the tag is one of the basic (non-extended) variants.
func (t InodeType) Basic() bool {
	return t >= InodeBasicDirectory && t <= InodeBasicSocket
}

// Extended reports whether the tag is one of the extended variants.
func (t InodeType) Extended() bool {
	return t >= InodeExtendedDirectory && t <= InodeExtendedSocket
}

// BasicType folds an extended tag onto its basic counterpart.
func (t InodeType) BasicType() InodeType {
	if t.Extended() {
		return t - 7
	}
	return t
}

func (t InodeType) String() string {
	switch t.BasicType() {
	case InodeBasicDirectory:
		return "directory"
	case InodeBasicFile:
		return "file"
	case InodeBasicSymlink:
		return "symlink"
	case InodeBasicBlockDev:
		return "block device"
	case InodeBasicCharDev:
		return "character device"
	case InodeBasicFifo:
		return "fifo"
	case InodeBasicSocket:
		return "socket"
	}
	return "unknown"
}

// Record sizes.
const (
	InodeHeaderSize = 16

	DirectoryHeaderSize    = 12
	DirectoryEntryBaseSize = 8
	DirectoryNameMaxSize   = 256
	DirectoryIndexBaseSize = 12

	FragmentEntrySize = 16
	IDEntrySize       = 4
	LookupEntrySize   = 8

	XattrHeaderSize    = 16
	XattrIDEntrySize   = 16
	XattrEntryBaseSize = 4
	XattrValueBaseSize = 4
)

// Table chunking: entries per 8 KiB metadata block.
const (
	IDsPerBlock       = MetadataBlockSize / IDEntrySize
	FragmentsPerBlock = MetadataBlockSize / FragmentEntrySize
	LookupsPerBlock   = MetadataBlockSize / LookupEntrySize
)

// Xattr name prefixes, selected by the low byte of the xattr entry type.
const (
	XattrPrefixUser     uint16 = 0
	XattrPrefixTrusted  uint16 = 1
	XattrPrefixSecurity uint16 = 2

	XattrPrefixMask uint16 = 0x00ff

	// XattrValueOOL marks an entry whose inline value bytes hold a 64-bit
	// reference to the real value elsewhere in the xattr metadata.
	XattrValueOOL uint16 = 0x0100
)
