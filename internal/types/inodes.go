package types

import "time"

// InodeHeader is the 16-byte header shared by all fourteen inode variants.
type InodeHeader struct {
	Type     InodeType
	Mode     uint16
	UIDIndex uint16
	GIDIndex uint16
	ModTime  time.Time
	Number   uint32
}

// BlockSize is one entry of a file inode's block-size list, or the size
// field of a fragment entry. The high bit marks a block stored verbatim;
// the low 31 bits are the on-disk byte length.
type BlockSize uint32

// Size returns the on-disk byte length of the block.
func (b BlockSize) Size() uint32 {
	return uint32(b) &^ DataUncompressedBit
}

// Uncompressed reports whether the block is stored verbatim.
func (b BlockSize) Uncompressed() bool {
	return uint32(b)&DataUncompressedBit != 0
}

// Sparse reports whether the entry denotes a hole: no bytes on disk, the
// whole block reads as zeros.
func (b BlockSize) Sparse() bool {
	return b.Size() == 0
}

// DirectoryIndex is one entry of the index table stored inline in an
// extended directory inode, sorted by name for binary-search seeking.
type DirectoryIndex struct {
	// Index is the byte offset of the indexed header within the
	// directory's decompressed listing.
	Index uint32
	// StartBlock is the offset of the metadata block holding that header,
	// relative to the directory table start.
	StartBlock uint32
	Name       []byte
}

// BasicDirectory is inode type 1.
type BasicDirectory struct {
	StartBlock  uint32
	LinkCount   uint32
	ListingSize uint16
	Offset      uint16
	ParentInode uint32
}

// ExtendedDirectory is inode type 8. It reorders the basic fields, widens
// the listing size and adds an xattr index plus an inline directory index.
type ExtendedDirectory struct {
	LinkCount   uint32
	ListingSize uint32
	StartBlock  uint32
	ParentInode uint32
	IndexCount  uint16
	Offset      uint16
	XattrIndex  uint32
	Indexes     []DirectoryIndex
}

// BasicFile is inode type 2.
type BasicFile struct {
	StartBlock     uint32
	FragmentIndex  uint32
	FragmentOffset uint32
	FileSize       uint32
	BlockSizes     []BlockSize
}

// ExtendedFile is inode type 9, with 64-bit sizes, a sparse byte count, a
// link count and an xattr index.
type ExtendedFile struct {
	StartBlock     uint64
	FileSize       uint64
	Sparse         uint64
	LinkCount      uint32
	FragmentIndex  uint32
	FragmentOffset uint32
	XattrIndex     uint32
	BlockSizes     []BlockSize
}

// BasicSymlink is inode type 3.
type BasicSymlink struct {
	LinkCount uint32
	Target    []byte
}

// ExtendedSymlink is inode type 10; the xattr index trails the target bytes.
type ExtendedSymlink struct {
	LinkCount  uint32
	Target     []byte
	XattrIndex uint32
}

// BasicDevice covers inode types 4 and 5.
type BasicDevice struct {
	LinkCount uint32
	Device    uint32
}

// Major returns the major device number from the packed device id.
func (d BasicDevice) Major() uint32 {
	return (d.Device & 0xfff00) >> 8
}

// Minor returns the minor device number from the packed device id.
func (d BasicDevice) Minor() uint32 {
	return (d.Device & 0xff) | ((d.Device >> 12) & 0xfff00)
}

// ExtendedDevice covers inode types 11 and 12.
type ExtendedDevice struct {
	BasicDevice
	XattrIndex uint32
}

// BasicIPC covers inode types 6 and 7 (fifo and socket).
type BasicIPC struct {
	LinkCount uint32
}

// ExtendedIPC covers inode types 13 and 14.
type ExtendedIPC struct {
	LinkCount  uint32
	XattrIndex uint32
}

// FragmentEntry locates one fragment block: the block holding packed
// tail-ends of small files. On disk the entry is 16 bytes with 4 bytes of
// padding after the size word.
type FragmentEntry struct {
	Start uint64
	Size  BlockSize
}

// XattrID is one entry of the xattr id table. Ref is a packed metadata
// reference into the xattr metadata region (block offset << 16 | byte
// offset), Count the number of key/value entries, Size their total byte
// length.
type XattrID struct {
	Ref   uint64
	Count uint32
	Size  uint32
}

// XattrRef returns the xattr id table index carried by an inode body and
// whether it refers to a real entry. Basic variants never carry one.

func (BasicDirectory) XattrRef() (uint32, bool) { return InvalidXattr, false }
func (BasicFile) XattrRef() (uint32, bool)      { return InvalidXattr, false }
func (BasicSymlink) XattrRef() (uint32, bool)   { return InvalidXattr, false }
func (BasicDevice) XattrRef() (uint32, bool)    { return InvalidXattr, false }
func (BasicIPC) XattrRef() (uint32, bool)       { return InvalidXattr, false }

func (d ExtendedDirectory) XattrRef() (uint32, bool) {
	return d.XattrIndex, d.XattrIndex != InvalidXattr
}
func (f ExtendedFile) XattrRef() (uint32, bool)    { return f.XattrIndex, f.XattrIndex != InvalidXattr }
func (s ExtendedSymlink) XattrRef() (uint32, bool) { return s.XattrIndex, s.XattrIndex != InvalidXattr }
func (d ExtendedDevice) XattrRef() (uint32, bool)  { return d.XattrIndex, d.XattrIndex != InvalidXattr }
func (i ExtendedIPC) XattrRef() (uint32, bool)     { return i.XattrIndex, i.XattrIndex != InvalidXattr }
