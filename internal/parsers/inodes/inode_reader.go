// Package inodes decodes the fourteen SquashFS inode record variants from
// decompressed inode-table metadata. Records carry no length field: the
// fixed portion of each layout is known from the 16-bit type tag alone, and
// variable tails (block-size lists, symlink targets, directory indexes) are
// sized from fields within the fixed portion.
package inodes

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

func unixTime(s uint32) time.Time {
	return time.Unix(int64(s), 0).UTC()
}

// Body is the type-specific portion of a decoded inode.
type Body interface {
	// XattrRef returns the xattr id table index and whether it refers to
	// a real entry.
	XattrRef() (uint32, bool)
}

// Inode is a decoded inode record.
type Inode struct {
	Ref    types.InodeRef
	Header types.InodeHeader
	Body   Body
}

// Type returns the inode's type tag.
func (i *Inode) Type() types.InodeType {
	return i.Header.Type
}

// IsDir reports whether the inode is a directory of either variant.
func (i *Inode) IsDir() bool {
	return i.Header.Type.BasicType() == types.InodeBasicDirectory
}

// IsFile reports whether the inode is a regular file of either variant.
func (i *Inode) IsFile() bool {
	return i.Header.Type.BasicType() == types.InodeBasicFile
}

// IsSymlink reports whether the inode is a symlink of either variant.
func (i *Inode) IsSymlink() bool {
	return i.Header.Type.BasicType() == types.InodeBasicSymlink
}

// Size returns the byte size the inode exposes: listing size for
// directories, file size for files, target length for symlinks, zero for
// the rest.
func (i *Inode) Size() int64 {
	switch b := i.Body.(type) {
	case *types.BasicDirectory:
		return int64(b.ListingSize)
	case *types.ExtendedDirectory:
		return int64(b.ListingSize)
	case *types.BasicFile:
		return int64(b.FileSize)
	case *types.ExtendedFile:
		return int64(b.FileSize)
	case *types.BasicSymlink:
		return int64(len(b.Target))
	case *types.ExtendedSymlink:
		return int64(len(b.Target))
	}
	return 0
}

// BodySize returns the fixed on-disk size of the body for a type tag, not
// counting the 16-byte header or any variable tail.
func BodySize(t types.InodeType) (int, error) {
	switch t {
	case types.InodeBasicDirectory:
		return 16, nil
	case types.InodeExtendedDirectory:
		return 24, nil
	case types.InodeBasicFile:
		return 16, nil
	case types.InodeExtendedFile:
		return 40, nil
	case types.InodeBasicSymlink, types.InodeExtendedSymlink:
		return 8, nil
	case types.InodeBasicBlockDev, types.InodeBasicCharDev:
		return 8, nil
	case types.InodeExtendedBlockDev, types.InodeExtendedCharDev:
		return 12, nil
	case types.InodeBasicFifo, types.InodeBasicSocket:
		return 4, nil
	case types.InodeExtendedFifo, types.InodeExtendedSocket:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: tag %d", types.ErrUnknownInodeType, uint16(t))
}

// DecodeHeader decodes the 16-byte header common to all variants.
func DecodeHeader(b []byte) (types.InodeHeader, error) {
	if len(b) < types.InodeHeaderSize {
		return types.InodeHeader{}, fmt.Errorf("%w: %d bytes for inode header, need %d",
			types.ErrTruncatedImage, len(b), types.InodeHeaderSize)
	}
	return types.InodeHeader{
		Type:     types.InodeType(binary.LittleEndian.Uint16(b[0:2])),
		Mode:     binary.LittleEndian.Uint16(b[2:4]),
		UIDIndex: binary.LittleEndian.Uint16(b[4:6]),
		GIDIndex: binary.LittleEndian.Uint16(b[6:8]),
		ModTime:  unixTime(binary.LittleEndian.Uint32(b[8:12])),
		Number:   binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// Decode decodes a full inode record from b, which must start at the
// record's type tag. When the record's variable tail extends past b, Decode
// returns the number of additional bytes the caller must supply; the caller
// re-reads a larger span and calls Decode again.
func Decode(ref types.InodeRef, b []byte, blockSize uint32) (*Inode, int, error) {
	header, err := DecodeHeader(b)
	if err != nil {
		return nil, 0, err
	}
	fixed, err := BodySize(header.Type)
	if err != nil {
		return nil, 0, err
	}
	if len(b) < types.InodeHeaderSize+fixed {
		return nil, types.InodeHeaderSize + fixed - len(b), nil
	}

	var (
		body  Body
		extra int
	)
	rest := b[types.InodeHeaderSize:]
	switch header.Type {
	case types.InodeBasicDirectory:
		body = decodeBasicDirectory(rest)
	case types.InodeExtendedDirectory:
		body, extra, err = decodeExtendedDirectory(rest)
	case types.InodeBasicFile:
		body, extra = decodeBasicFile(rest, blockSize)
	case types.InodeExtendedFile:
		body, extra = decodeExtendedFile(rest, blockSize)
	case types.InodeBasicSymlink:
		body, extra = decodeBasicSymlink(rest)
	case types.InodeExtendedSymlink:
		body, extra = decodeExtendedSymlink(rest)
	case types.InodeBasicBlockDev, types.InodeBasicCharDev:
		body = decodeBasicDevice(rest)
	case types.InodeExtendedBlockDev, types.InodeExtendedCharDev:
		body = decodeExtendedDevice(rest)
	case types.InodeBasicFifo, types.InodeBasicSocket:
		body = decodeBasicIPC(rest)
	case types.InodeExtendedFifo, types.InodeExtendedSocket:
		body = decodeExtendedIPC(rest)
	}
	if err != nil {
		return nil, 0, err
	}
	if extra > 0 {
		return nil, extra, nil
	}
	return &Inode{Ref: ref, Header: header, Body: body}, 0, nil
}

func decodeBasicDirectory(b []byte) *types.BasicDirectory {
	return &types.BasicDirectory{
		StartBlock:  binary.LittleEndian.Uint32(b[0:4]),
		LinkCount:   binary.LittleEndian.Uint32(b[4:8]),
		ListingSize: binary.LittleEndian.Uint16(b[8:10]),
		Offset:      binary.LittleEndian.Uint16(b[10:12]),
		ParentInode: binary.LittleEndian.Uint32(b[12:16]),
	}
}

func decodeExtendedDirectory(b []byte) (*types.ExtendedDirectory, int, error) {
	d := &types.ExtendedDirectory{
		LinkCount:   binary.LittleEndian.Uint32(b[0:4]),
		ListingSize: binary.LittleEndian.Uint32(b[4:8]),
		StartBlock:  binary.LittleEndian.Uint32(b[8:12]),
		ParentInode: binary.LittleEndian.Uint32(b[12:16]),
		IndexCount:  binary.LittleEndian.Uint16(b[16:18]),
		Offset:      binary.LittleEndian.Uint16(b[18:20]),
		XattrIndex:  binary.LittleEndian.Uint32(b[20:24]),
	}
	indexes, extra, err := decodeDirectoryIndexes(b[24:], int(d.IndexCount))
	if err != nil || extra > 0 {
		return nil, extra, err
	}
	d.Indexes = indexes
	return d, 0, nil
}

// decodeDirectoryIndexes decodes count index entries: index(4),
// start_block(4), size(4), name[size+1]. Returns the shortfall in bytes when
// b ends mid-entry.
func decodeDirectoryIndexes(b []byte, count int) ([]types.DirectoryIndex, int, error) {
	if count == 0 {
		return nil, 0, nil
	}
	indexes := make([]types.DirectoryIndex, 0, count)
	pos := 0
	for i := 0; i < count; i++ {
		if len(b)-pos < types.DirectoryIndexBaseSize {
			return nil, pos + types.DirectoryIndexBaseSize - len(b), nil
		}
		nameLen := int(binary.LittleEndian.Uint32(b[pos+8:pos+12])) + 1
		if nameLen > types.DirectoryNameMaxSize {
			return nil, 0, fmt.Errorf("%w: directory index name of %d bytes", types.ErrCorruptDirectory, nameLen)
		}
		total := types.DirectoryIndexBaseSize + nameLen
		if len(b)-pos < total {
			return nil, pos + total - len(b), nil
		}
		name := make([]byte, nameLen)
		copy(name, b[pos+types.DirectoryIndexBaseSize:pos+total])
		indexes = append(indexes, types.DirectoryIndex{
			Index:      binary.LittleEndian.Uint32(b[pos : pos+4]),
			StartBlock: binary.LittleEndian.Uint32(b[pos+4 : pos+8]),
			Name:       name,
		})
		pos += total
	}
	return indexes, 0, nil
}

// blockListLen returns the number of block-size list entries for a file:
// one per full data block, plus one for the tail only when no fragment
// holds it.
func blockListLen(fileSize uint64, fragmentIndex uint32, blockSize uint32) int {
	if fragmentIndex != types.InvalidFragment {
		return int(fileSize / uint64(blockSize))
	}
	return int((fileSize + uint64(blockSize) - 1) / uint64(blockSize))
}

func decodeBlockSizes(b []byte, count int) []types.BlockSize {
	sizes := make([]types.BlockSize, count)
	for i := 0; i < count; i++ {
		sizes[i] = types.BlockSize(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
	return sizes
}

func decodeBasicFile(b []byte, blockSize uint32) (*types.BasicFile, int) {
	f := &types.BasicFile{
		StartBlock:     binary.LittleEndian.Uint32(b[0:4]),
		FragmentIndex:  binary.LittleEndian.Uint32(b[4:8]),
		FragmentOffset: binary.LittleEndian.Uint32(b[8:12]),
		FileSize:       binary.LittleEndian.Uint32(b[12:16]),
	}
	count := blockListLen(uint64(f.FileSize), f.FragmentIndex, blockSize)
	if len(b)-16 < count*4 {
		return nil, 16 + count*4 - len(b)
	}
	f.BlockSizes = decodeBlockSizes(b[16:], count)
	return f, 0
}

func decodeExtendedFile(b []byte, blockSize uint32) (*types.ExtendedFile, int) {
	f := &types.ExtendedFile{
		StartBlock:     binary.LittleEndian.Uint64(b[0:8]),
		FileSize:       binary.LittleEndian.Uint64(b[8:16]),
		Sparse:         binary.LittleEndian.Uint64(b[16:24]),
		LinkCount:      binary.LittleEndian.Uint32(b[24:28]),
		FragmentIndex:  binary.LittleEndian.Uint32(b[28:32]),
		FragmentOffset: binary.LittleEndian.Uint32(b[32:36]),
		XattrIndex:     binary.LittleEndian.Uint32(b[36:40]),
	}
	count := blockListLen(f.FileSize, f.FragmentIndex, blockSize)
	if len(b)-40 < count*4 {
		return nil, 40 + count*4 - len(b)
	}
	f.BlockSizes = decodeBlockSizes(b[40:], count)
	return f, 0
}

func decodeBasicSymlink(b []byte) (*types.BasicSymlink, int) {
	targetLen := int(binary.LittleEndian.Uint32(b[4:8]))
	if len(b)-8 < targetLen {
		return nil, 8 + targetLen - len(b)
	}
	target := make([]byte, targetLen)
	copy(target, b[8:8+targetLen])
	return &types.BasicSymlink{
		LinkCount: binary.LittleEndian.Uint32(b[0:4]),
		Target:    target,
	}, 0
}

func decodeExtendedSymlink(b []byte) (*types.ExtendedSymlink, int) {
	targetLen := int(binary.LittleEndian.Uint32(b[4:8]))
	if len(b)-8 < targetLen+4 {
		return nil, 8 + targetLen + 4 - len(b)
	}
	target := make([]byte, targetLen)
	copy(target, b[8:8+targetLen])
	return &types.ExtendedSymlink{
		LinkCount:  binary.LittleEndian.Uint32(b[0:4]),
		Target:     target,
		XattrIndex: binary.LittleEndian.Uint32(b[8+targetLen : 8+targetLen+4]),
	}, 0
}

func decodeBasicDevice(b []byte) *types.BasicDevice {
	return &types.BasicDevice{
		LinkCount: binary.LittleEndian.Uint32(b[0:4]),
		Device:    binary.LittleEndian.Uint32(b[4:8]),
	}
}

func decodeExtendedDevice(b []byte) *types.ExtendedDevice {
	return &types.ExtendedDevice{
		BasicDevice: *decodeBasicDevice(b),
		XattrIndex:  binary.LittleEndian.Uint32(b[8:12]),
	}
}

func decodeBasicIPC(b []byte) *types.BasicIPC {
	return &types.BasicIPC{LinkCount: binary.LittleEndian.Uint32(b[0:4])}
}

func decodeExtendedIPC(b []byte) *types.ExtendedIPC {
	return &types.ExtendedIPC{
		LinkCount:  binary.LittleEndian.Uint32(b[0:4]),
		XattrIndex: binary.LittleEndian.Uint32(b[4:8]),
	}
}
