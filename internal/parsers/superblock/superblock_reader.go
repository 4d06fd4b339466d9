// Package superblock decodes and validates the fixed 96-byte header at
// offset 0 of a SquashFS image.
package superblock

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"time"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// Decode parses the superblock from the first 96 bytes of an image. It
// validates magic, version and the consistency of the recorded block size
// before any other field is trusted.
func Decode(b []byte) (*types.Superblock, error) {
	if len(b) < types.SuperblockSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", types.ErrInvalidSuperblock, len(b), types.SuperblockSize)
	}

	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != types.SquashfsMagic {
		return nil, fmt.Errorf("%w: magic 0x%08x, want 0x%08x", types.ErrInvalidSuperblock, magic, types.SquashfsMagic)
	}

	major := binary.LittleEndian.Uint16(b[28:30])
	minor := binary.LittleEndian.Uint16(b[30:32])
	if major != types.MajorVersion || minor != types.MinorVersion {
		return nil, fmt.Errorf("%w: version %d.%d, only %d.%d supported",
			types.ErrInvalidSuperblock, major, minor, types.MajorVersion, types.MinorVersion)
	}

	blockSize := binary.LittleEndian.Uint32(b[12:16])
	blockLog := binary.LittleEndian.Uint16(b[22:24])
	if blockSize < types.MinBlockSize || blockSize > types.MaxBlockSize || bits.OnesCount32(blockSize) != 1 {
		return nil, fmt.Errorf("%w: block size %d not a power of two in [%d, %d]",
			types.ErrInvalidSuperblock, blockSize, types.MinBlockSize, types.MaxBlockSize)
	}
	if blockSize != 1<<blockLog {
		return nil, fmt.Errorf("%w: block size %d does not match block log %d",
			types.ErrInvalidSuperblock, blockSize, blockLog)
	}

	rawFlags := binary.LittleEndian.Uint16(b[24:26])
	bytesUsed := binary.LittleEndian.Uint64(b[40:48])

	sb := &types.Superblock{
		InodeCount:    binary.LittleEndian.Uint32(b[4:8]),
		ModTime:       time.Unix(int64(binary.LittleEndian.Uint32(b[8:12])), 0).UTC(),
		BlockSize:     blockSize,
		FragmentCount: binary.LittleEndian.Uint32(b[16:20]),
		Compression:   types.CompressionID(binary.LittleEndian.Uint16(b[20:22])),
		BlockLog:      blockLog,
		RawFlags:      rawFlags,
		Flags:         types.DecodeSuperblockFlags(rawFlags),
		IDCount:       binary.LittleEndian.Uint16(b[26:28]),
		VersionMajor:  major,
		VersionMinor:  minor,
		RootInode:     types.InodeRef(binary.LittleEndian.Uint64(b[32:40])),
		BytesUsed:     bytesUsed,

		IDTableStart:        binary.LittleEndian.Uint64(b[48:56]),
		XattrTableStart:     binary.LittleEndian.Uint64(b[56:64]),
		InodeTableStart:     binary.LittleEndian.Uint64(b[64:72]),
		DirectoryTableStart: binary.LittleEndian.Uint64(b[72:80]),
		FragmentTableStart:  binary.LittleEndian.Uint64(b[80:88]),
		ExportTableStart:    binary.LittleEndian.Uint64(b[88:96]),
	}

	// Every present table must sit inside the image.
	for _, t := range []struct {
		name  string
		start uint64
	}{
		{"id table", sb.IDTableStart},
		{"xattr table", sb.XattrTableStart},
		{"inode table", sb.InodeTableStart},
		{"directory table", sb.DirectoryTableStart},
		{"fragment table", sb.FragmentTableStart},
		{"export table", sb.ExportTableStart},
	} {
		if t.start != types.InvalidBlock && t.start >= bytesUsed {
			return nil, fmt.Errorf("%w: %s offset %d outside image of %d bytes",
				types.ErrInvalidSuperblock, t.name, t.start, bytesUsed)
		}
	}

	return sb, nil
}
