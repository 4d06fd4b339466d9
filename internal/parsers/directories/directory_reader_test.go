package directories

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

func buildDirHeader(count, startBlock, inodeNumber uint32) []byte {
	b := make([]byte, types.DirectoryHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], count-1)
	binary.LittleEndian.PutUint32(b[4:8], startBlock)
	binary.LittleEndian.PutUint32(b[8:12], inodeNumber)
	return b
}

func buildDirEntry(offset uint16, delta int16, t types.InodeType, name string) []byte {
	b := make([]byte, types.DirectoryEntryBaseSize+len(name))
	binary.LittleEndian.PutUint16(b[0:2], offset)
	binary.LittleEndian.PutUint16(b[2:4], uint16(delta))
	binary.LittleEndian.PutUint16(b[4:6], uint16(t))
	binary.LittleEndian.PutUint16(b[6:8], uint16(len(name)-1))
	copy(b[types.DirectoryEntryBaseSize:], name)
	return b
}

func TestDecodeListingAcrossHeaders(t *testing.T) {
	var listing []byte
	listing = append(listing, buildDirHeader(2, 0, 100)...)
	listing = append(listing, buildDirEntry(32, 1, types.InodeBasicDirectory, "bin")...)
	listing = append(listing, buildDirEntry(96, 3, types.InodeBasicFile, "init")...)
	listing = append(listing, buildDirHeader(1, 8192, 200)...)
	listing = append(listing, buildDirEntry(16, -5, types.InodeBasicSymlink, "linuxrc")...)

	entries, err := DecodeListing(listing)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "bin", string(entries[0].Name))
	assert.Equal(t, uint32(101), entries[0].InodeNumber)
	assert.Equal(t, types.InodeBasicDirectory, entries[0].Type)
	assert.Equal(t, types.NewInodeRef(0, 32), entries[0].Ref())

	assert.Equal(t, "init", string(entries[1].Name))
	assert.Equal(t, uint32(103), entries[1].InodeNumber)

	// The second header rebases block, inode number and delta sign.
	assert.Equal(t, "linuxrc", string(entries[2].Name))
	assert.Equal(t, uint32(195), entries[2].InodeNumber)
	assert.Equal(t, types.NewInodeRef(8192, 16), entries[2].Ref())
}

func TestDecodeListingThreeHeaderRuns(t *testing.T) {
	var listing []byte
	listing = append(listing, buildDirHeader(2, 0, 10)...)
	listing = append(listing, buildDirEntry(0, 0, types.InodeBasicDirectory, "a")...)
	listing = append(listing, buildDirEntry(20, 1, types.InodeBasicDirectory, "b")...)
	listing = append(listing, buildDirHeader(1, 0, 50)...)
	listing = append(listing, buildDirEntry(40, -2, types.InodeBasicFile, "c")...)
	listing = append(listing, buildDirHeader(4, 8192, 90)...)
	listing = append(listing, buildDirEntry(0, 1, types.InodeBasicFile, "d")...)
	listing = append(listing, buildDirEntry(24, 2, types.InodeBasicFile, "e")...)
	listing = append(listing, buildDirEntry(48, 3, types.InodeBasicFile, "f")...)
	listing = append(listing, buildDirEntry(72, 4, types.InodeBasicSymlink, "g")...)

	entries, err := DecodeListing(listing)
	require.NoError(t, err)
	require.Len(t, entries, 7)

	names := make([]string, len(entries))
	numbers := make([]uint32, len(entries))
	for i := range entries {
		names[i] = string(entries[i].Name)
		numbers[i] = entries[i].InodeNumber
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, names)
	assert.Equal(t, []uint32{10, 11, 48, 91, 92, 93, 94}, numbers)
}

func TestDecodeListingEmpty(t *testing.T) {
	entries, err := DecodeListing(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecodeHeaderCountIsStoredMinusOne(t *testing.T) {
	header, err := DecodeHeader(buildDirHeader(256, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, uint32(256), header.Count)
}

func TestDecodeListingRejectsCorruptRecords(t *testing.T) {
	testCases := []struct {
		name    string
		listing []byte
	}{
		{
			name:    "truncated header",
			listing: buildDirHeader(1, 0, 100)[:8],
		},
		{
			name:    "header count over limit",
			listing: buildDirHeader(257, 0, 100),
		},
		{
			name: "truncated entry",
			listing: append(
				buildDirHeader(1, 0, 100),
				buildDirEntry(0, 0, types.InodeBasicFile, "config")[:6]...,
			),
		},
		{
			name: "entry name past listing end",
			listing: append(
				buildDirHeader(1, 0, 100),
				buildDirEntry(0, 0, types.InodeBasicFile, "config")[:10]...,
			),
		},
		{
			name: "header declares more entries than stored",
			listing: append(
				buildDirHeader(2, 0, 100),
				buildDirEntry(0, 0, types.InodeBasicFile, "only")...,
			),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeListing(tc.listing)
			assert.ErrorIs(t, err, types.ErrCorruptDirectory)
		})
	}
}
