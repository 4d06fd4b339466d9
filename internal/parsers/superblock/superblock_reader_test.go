package superblock

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// buildSuperblock returns a valid 96-byte superblock for a small gzip image.
func buildSuperblock() []byte {
	b := make([]byte, types.SuperblockSize)
	binary.LittleEndian.PutUint32(b[0:4], types.SquashfsMagic)
	binary.LittleEndian.PutUint32(b[4:8], 5)           // inode count
	binary.LittleEndian.PutUint32(b[8:12], 1693000000) // mkfs time
	binary.LittleEndian.PutUint32(b[12:16], 131072)    // block size
	binary.LittleEndian.PutUint32(b[16:20], 1)         // fragment count
	binary.LittleEndian.PutUint16(b[20:22], uint16(types.CompressionGzip))
	binary.LittleEndian.PutUint16(b[22:24], 17) // block log
	binary.LittleEndian.PutUint16(b[24:26], types.FlagExportable)
	binary.LittleEndian.PutUint16(b[26:28], 2) // id count
	binary.LittleEndian.PutUint16(b[28:30], types.MajorVersion)
	binary.LittleEndian.PutUint16(b[30:32], types.MinorVersion)
	binary.LittleEndian.PutUint64(b[32:40], uint64(types.NewInodeRef(0, 32)))
	binary.LittleEndian.PutUint64(b[40:48], 4096) // bytes used
	binary.LittleEndian.PutUint64(b[48:56], 400)  // id table
	binary.LittleEndian.PutUint64(b[56:64], types.InvalidBlock)
	binary.LittleEndian.PutUint64(b[64:72], 100) // inode table
	binary.LittleEndian.PutUint64(b[72:80], 200) // directory table
	binary.LittleEndian.PutUint64(b[80:88], 300) // fragment table
	binary.LittleEndian.PutUint64(b[88:96], 500) // export table
	return b
}

func TestDecodeValidSuperblock(t *testing.T) {
	sb, err := Decode(buildSuperblock())
	require.NoError(t, err)

	assert.Equal(t, uint32(5), sb.InodeCount)
	assert.Equal(t, time.Unix(1693000000, 0).UTC(), sb.ModTime)
	assert.Equal(t, uint32(131072), sb.BlockSize)
	assert.Equal(t, uint32(1), sb.FragmentCount)
	assert.Equal(t, types.CompressionGzip, sb.Compression)
	assert.Equal(t, uint16(17), sb.BlockLog)
	assert.Equal(t, uint16(2), sb.IDCount)
	assert.Equal(t, types.NewInodeRef(0, 32), sb.RootInode)
	assert.Equal(t, uint64(4096), sb.BytesUsed)
	assert.Equal(t, uint64(100), sb.InodeTableStart)
	assert.Equal(t, uint64(200), sb.DirectoryTableStart)
	assert.Equal(t, uint64(300), sb.FragmentTableStart)
	assert.Equal(t, uint64(400), sb.IDTableStart)
	assert.Equal(t, uint64(500), sb.ExportTableStart)

	assert.True(t, sb.Flags.Exportable)
	assert.True(t, sb.HasFragments())
	assert.True(t, sb.HasExports())
	assert.False(t, sb.HasXattrs())
}

func TestDecodeRejectsCorruptSuperblocks(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(b []byte)
	}{
		{
			name: "bad magic",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint32(b[0:4], 0x64617368)
			},
		},
		{
			name: "unsupported major version",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint16(b[28:30], 3)
			},
		},
		{
			name: "unsupported minor version",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint16(b[30:32], 1)
			},
		},
		{
			name: "block size not a power of two",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint32(b[12:16], 131073)
			},
		},
		{
			name: "block size below minimum",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint32(b[12:16], 2048)
				binary.LittleEndian.PutUint16(b[22:24], 11)
			},
		},
		{
			name: "block size above maximum",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint32(b[12:16], 2097152)
				binary.LittleEndian.PutUint16(b[22:24], 21)
			},
		},
		{
			name: "block log mismatch",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint16(b[22:24], 16)
			},
		},
		{
			name: "inode table outside image",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint64(b[64:72], 5000)
			},
		},
		{
			name: "fragment table outside image",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint64(b[80:88], 4096)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := buildSuperblock()
			tc.mutate(b)
			_, err := Decode(b)
			assert.ErrorIs(t, err, types.ErrInvalidSuperblock)
		})
	}
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, err := Decode(buildSuperblock()[:95])
	assert.ErrorIs(t, err, types.ErrInvalidSuperblock)
}

func TestDecodeAbsentTablesAreNotValidated(t *testing.T) {
	b := buildSuperblock()
	binary.LittleEndian.PutUint16(b[24:26], 0)
	binary.LittleEndian.PutUint64(b[80:88], types.InvalidBlock)
	binary.LittleEndian.PutUint64(b[88:96], types.InvalidBlock)

	sb, err := Decode(b)
	require.NoError(t, err)
	assert.False(t, sb.HasExports())
}
