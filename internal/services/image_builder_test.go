package services

import (
	"bytes"
	"encoding/binary"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// The test image is assembled by hand, uncompressed, with every table the
// reader knows about:
//
//	/
//	├── abs -> /hello.txt
//	├── data.bin    two data blocks plus a fragment tail
//	├── empty/
//	├── etc/        extended directory with one index
//	│   └── init.d/
//	│       └── start
//	├── hello.txt   fragment-only file with xattrs
//	├── link -> etc
//	├── null        character device 1:3
//	└── sparse.bin  a hole followed by a data block
const (
	testBlockSize = 4096

	rootInodeNumber   = 1
	etcInodeNumber    = 2
	initdInodeNumber  = 3
	startInodeNumber  = 4
	helloInodeNumber  = 5
	dataInodeNumber   = 6
	sparseInodeNumber = 7
	linkInodeNumber   = 8
	absInodeNumber    = 9
	nullInodeNumber   = 10
	emptyInodeNumber  = 11

	testInodeCount = 11
)

var startScript = []byte("#!/bin/sh\necho ok\n")

func le16(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func le32(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }
func le64(v uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, v); return b }

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// storedBlock wraps payload in a metadata block header with the
// stored-verbatim bit set.
func storedBlock(payload []byte) []byte {
	return append(le16(uint16(len(payload))|types.MetadataUncompressedBit), payload...)
}

func inodeHeader(tag types.InodeType, mode uint16, uidIdx, gidIdx uint16, number uint32) []byte {
	return concat(
		le16(uint16(tag)),
		le16(mode),
		le16(uidIdx),
		le16(gidIdx),
		le32(1693000000),
		le32(number),
	)
}

func dirHeader(count, startBlock, baseInode uint32) []byte {
	return concat(le32(count-1), le32(startBlock), le32(baseInode))
}

func dirEntry(offset uint16, delta int16, tag types.InodeType, name string) []byte {
	return concat(
		le16(offset),
		le16(uint16(delta)),
		le16(uint16(tag)),
		le16(uint16(len(name)-1)),
		[]byte(name),
	)
}

// buildTestImage lays out the full synthetic image and returns it with the
// superblock filled in.
func buildTestImage() []byte {
	image := make([]byte, types.SuperblockSize)

	// Data region. All blocks stored verbatim.
	dataStart := uint32(len(image))
	image = append(image, bytes.Repeat([]byte{'A'}, testBlockSize)...)
	image = append(image, bytes.Repeat([]byte{'B'}, testBlockSize)...)
	sparseStart := uint32(len(image))
	image = append(image, bytes.Repeat([]byte{'S'}, testBlockSize)...)
	fragStart := uint64(len(image))
	fragBlock := concat(
		bytes.Repeat([]byte{'H'}, 100), // hello.txt
		bytes.Repeat([]byte{'C'}, 100), // data.bin tail
		startScript,                    // /etc/init.d/start
	)
	image = append(image, fragBlock...)

	// Inode table. Leaf records first; directory records follow at offsets
	// known in advance from the fixed record sizes.
	var inodeTable []byte
	offset := func() uint16 { return uint16(len(inodeTable)) }

	startOff := offset()
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicFile, 0o755, 0, 0, startInodeNumber),
		le32(0), le32(0), le32(200), le32(uint32(len(startScript))),
	)...)

	helloOff := offset()
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeExtendedFile, 0o644, 0, 1, helloInodeNumber),
		le64(0), le64(100), le64(0), le32(1), le32(0), le32(0), le32(0),
	)...)

	dataOff := offset()
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicFile, 0o644, 0, 0, dataInodeNumber),
		le32(dataStart), le32(0), le32(100), le32(2*testBlockSize+100),
		le32(testBlockSize|types.DataUncompressedBit),
		le32(testBlockSize|types.DataUncompressedBit),
	)...)

	sparseOff := offset()
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicFile, 0o644, 0, 0, sparseInodeNumber),
		le32(sparseStart), le32(types.InvalidFragment), le32(0), le32(2*testBlockSize),
		le32(0), // hole
		le32(testBlockSize|types.DataUncompressedBit),
	)...)

	linkOff := offset()
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicSymlink, 0o777, 0, 0, linkInodeNumber),
		le32(1), le32(3), []byte("etc"),
	)...)

	absOff := offset()
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicSymlink, 0o777, 0, 0, absInodeNumber),
		le32(1), le32(10), []byte("/hello.txt"),
	)...)

	nullOff := offset()
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicCharDev, 0o666, 0, 0, nullInodeNumber),
		le32(1), le32(0x103),
	)...)

	// Directory records: basic is 32 bytes, the extended one for /etc is
	// 58 with its single index entry.
	initdOff := offset()
	etcOff := initdOff + 32
	rootOff := etcOff + 58
	emptyOff := rootOff + 32

	// Directory table: the three listings share one metadata block.
	var dirTable []byte
	initdListing := uint16(len(dirTable))
	dirTable = append(dirTable, concat(
		dirHeader(1, 0, startInodeNumber),
		dirEntry(startOff, 0, types.InodeBasicFile, "start"),
	)...)
	etcListing := uint16(len(dirTable))
	dirTable = append(dirTable, concat(
		dirHeader(1, 0, initdInodeNumber),
		dirEntry(initdOff, 0, types.InodeBasicDirectory, "init.d"),
	)...)
	rootListing := uint16(len(dirTable))
	dirTable = append(dirTable, concat(
		dirHeader(8, 0, rootInodeNumber),
		dirEntry(absOff, absInodeNumber-rootInodeNumber, types.InodeBasicSymlink, "abs"),
		dirEntry(dataOff, dataInodeNumber-rootInodeNumber, types.InodeBasicFile, "data.bin"),
		dirEntry(emptyOff, emptyInodeNumber-rootInodeNumber, types.InodeBasicDirectory, "empty"),
		dirEntry(etcOff, etcInodeNumber-rootInodeNumber, types.InodeBasicDirectory, "etc"),
		dirEntry(helloOff, helloInodeNumber-rootInodeNumber, types.InodeBasicFile, "hello.txt"),
		dirEntry(linkOff, linkInodeNumber-rootInodeNumber, types.InodeBasicSymlink, "link"),
		dirEntry(nullOff, nullInodeNumber-rootInodeNumber, types.InodeBasicCharDev, "null"),
		dirEntry(sparseOff, sparseInodeNumber-rootInodeNumber, types.InodeBasicFile, "sparse.bin"),
	)...)

	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicDirectory, 0o755, 0, 0, initdInodeNumber),
		le32(0), le32(2), le16(25+3), le16(initdListing), le32(etcInodeNumber),
	)...)
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeExtendedDirectory, 0o755, 0, 0, etcInodeNumber),
		le32(3), le32(26+3), le32(0), le32(rootInodeNumber),
		le16(1), le16(etcListing), le32(types.InvalidXattr),
		le32(0), le32(0), le32(uint32(len("init.d")-1)), []byte("init.d"),
	)...)
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicDirectory, 0o755, 0, 0, rootInodeNumber),
		le32(0), le32(5), le16(uint16(len(dirTable)-int(rootListing))+3), le16(rootListing), le32(0),
	)...)
	inodeTable = append(inodeTable, concat(
		inodeHeader(types.InodeBasicDirectory, 0o755, 0, 0, emptyInodeNumber),
		le32(0), le32(2), le16(3), le16(0), le32(rootInodeNumber),
	)...)

	inodeTableStart := uint64(len(image))
	image = append(image, storedBlock(inodeTable)...)

	dirTableStart := uint64(len(image))
	image = append(image, storedBlock(dirTable)...)

	// Fragment table: one entry, then its one-block index.
	fragBlockStart := uint64(len(image))
	image = append(image, storedBlock(concat(
		le64(fragStart),
		le32(uint32(len(fragBlock))|types.DataUncompressedBit),
		le32(0),
	))...)
	fragTableStart := uint64(len(image))
	image = append(image, le64(fragBlockStart)...)

	// ID table: uids/gids 0 and 1000.
	idBlockStart := uint64(len(image))
	image = append(image, storedBlock(concat(le32(0), le32(1000)))...)
	idTableStart := uint64(len(image))
	image = append(image, le64(idBlockStart)...)

	// Xattr metadata: an out-of-line value at offset 0, then the two
	// entries for hello.txt.
	oolValue := []byte("LARGEVALUE")
	xattrEntries := concat(
		le16(types.XattrPrefixUser), le16(4), []byte("note"), le32(2), []byte("hi"),
		le16(types.XattrPrefixSecurity|types.XattrValueOOL), le16(3), []byte("big"), le32(8), le64(0),
	)
	xattrPayload := concat(le32(uint32(len(oolValue))), oolValue, xattrEntries)
	xattrMetaStart := uint64(len(image))
	image = append(image, storedBlock(xattrPayload)...)

	xattrIDBlockStart := uint64(len(image))
	entriesOffset := uint16(types.XattrValueBaseSize + len(oolValue))
	image = append(image, storedBlock(concat(
		le64(uint64(types.NewInodeRef(0, entriesOffset))),
		le32(2),
		le32(uint32(len(xattrEntries))),
	))...)
	xattrTableStart := uint64(len(image))
	image = append(image, concat(
		le64(xattrMetaStart), le32(1), le32(0),
		le64(xattrIDBlockStart),
	)...)

	// Export table: inode references indexed by inode number.
	refs := []uint16{
		rootOff, etcOff, initdOff, startOff, helloOff, dataOff,
		sparseOff, linkOff, absOff, nullOff, emptyOff,
	}
	var exports []byte
	for _, off := range refs {
		exports = append(exports, le64(uint64(types.NewInodeRef(0, off)))...)
	}
	exportBlockStart := uint64(len(image))
	image = append(image, storedBlock(exports)...)
	exportTableStart := uint64(len(image))
	image = append(image, le64(exportBlockStart)...)

	// Superblock.
	sb := image[0:types.SuperblockSize]
	binary.LittleEndian.PutUint32(sb[0:4], types.SquashfsMagic)
	binary.LittleEndian.PutUint32(sb[4:8], testInodeCount)
	binary.LittleEndian.PutUint32(sb[8:12], 1693000000)
	binary.LittleEndian.PutUint32(sb[12:16], testBlockSize)
	binary.LittleEndian.PutUint32(sb[16:20], 1) // fragment count
	binary.LittleEndian.PutUint16(sb[20:22], uint16(types.CompressionGzip))
	binary.LittleEndian.PutUint16(sb[22:24], 12) // block log
	binary.LittleEndian.PutUint16(sb[24:26], types.FlagExportable)
	binary.LittleEndian.PutUint16(sb[26:28], 2) // id count
	binary.LittleEndian.PutUint16(sb[28:30], types.MajorVersion)
	binary.LittleEndian.PutUint16(sb[30:32], types.MinorVersion)
	binary.LittleEndian.PutUint64(sb[32:40], uint64(types.NewInodeRef(0, rootOff)))
	binary.LittleEndian.PutUint64(sb[40:48], uint64(len(image)))
	binary.LittleEndian.PutUint64(sb[48:56], idTableStart)
	binary.LittleEndian.PutUint64(sb[56:64], xattrTableStart)
	binary.LittleEndian.PutUint64(sb[64:72], inodeTableStart)
	binary.LittleEndian.PutUint64(sb[72:80], dirTableStart)
	binary.LittleEndian.PutUint64(sb[80:88], fragTableStart)
	binary.LittleEndian.PutUint64(sb[88:96], exportTableStart)

	return image
}
