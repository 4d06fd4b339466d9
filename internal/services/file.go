package services

import (
	"fmt"
	"io"
	"sync"

	"github.com/deploymenttheory/go-squashfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// File streams the contents of a regular file inode. It implements
// io.Reader, io.ReaderAt and io.Seeker; ReadAt is safe for concurrent use,
// the cursor-based Read and Seek are not.
type File struct {
	fs         *FileSystem
	size       int64
	blockSizes []types.BlockSize
	offsets    []int64
	fragIndex  uint32
	fragOffset uint32

	tailOnce sync.Once
	tail     []byte
	tailErr  error

	pos int64
}

// OpenFile prepares a reader over a regular file inode.
func (fs *FileSystem) OpenFile(ino *inodes.Inode) (*File, error) {
	f := &File{fs: fs}
	switch b := ino.Body.(type) {
	case *types.BasicFile:
		f.size = int64(b.FileSize)
		f.blockSizes = b.BlockSizes
		f.fragIndex = b.FragmentIndex
		f.fragOffset = b.FragmentOffset
		f.layout(int64(b.StartBlock))
	case *types.ExtendedFile:
		f.size = int64(b.FileSize)
		f.blockSizes = b.BlockSizes
		f.fragIndex = b.FragmentIndex
		f.fragOffset = b.FragmentOffset
		f.layout(int64(b.StartBlock))
	default:
		return nil, fmt.Errorf("%w: inode %d is a %s", types.ErrNotAFile, ino.Header.Number, ino.Type())
	}
	return f, nil
}

// layout precomputes the absolute offset of every data block. Sparse and
// uncompressed entries still advance by their on-disk length, which for a
// hole is zero.
func (f *File) layout(start int64) {
	f.offsets = make([]int64, len(f.blockSizes))
	off := start
	for i, bs := range f.blockSizes {
		f.offsets[i] = off
		off += int64(bs.Size())
	}
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return f.size
}

// ReadAt implements io.ReaderAt over the file contents.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative read offset %d", off)
	}
	if off >= f.size {
		return 0, io.EOF
	}
	want := len(p)
	if rest := f.size - off; int64(want) > rest {
		want = int(rest)
	}

	blockSize := int64(f.fs.blocks.BlockSize())
	n := 0
	for n < want {
		pos := off + int64(n)
		chunk, err := f.block(pos / blockSize)
		if err != nil {
			return n, err
		}
		skip := int(pos % blockSize)
		if skip >= len(chunk) {
			return n, fmt.Errorf("%w: block %d holds %d bytes, need offset %d",
				types.ErrTruncatedImage, pos/blockSize, len(chunk), skip)
		}
		n += copy(p[n:want], chunk[skip:])
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = f.size + offset
	default:
		return 0, fmt.Errorf("invalid seek whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position %d", pos)
	}
	f.pos = pos
	return pos, nil
}

// block returns the decompressed contents of the i'th data block, or the
// file's slice of the fragment block for the index one past the block list.
func (f *File) block(i int64) ([]byte, error) {
	if i < int64(len(f.blockSizes)) {
		bs := f.blockSizes[i]
		if bs.Sparse() {
			return make([]byte, f.fs.blocks.BlockSize()), nil
		}
		return f.fs.blocks.ReadDataBlock(f.offsets[i], bs)
	}
	if f.fragIndex == types.InvalidFragment {
		return nil, fmt.Errorf("%w: no block %d and no fragment", types.ErrTruncatedImage, i)
	}
	f.tailOnce.Do(f.loadTail)
	return f.tail, f.tailErr
}

// loadTail reads the fragment block and slices out this file's tail.
func (f *File) loadTail() {
	entry, err := f.fs.frags.lookup(f.fragIndex)
	if err != nil {
		f.tailErr = err
		return
	}
	data, err := f.fs.blocks.ReadDataBlock(int64(entry.Start), entry.Size)
	if err != nil {
		f.tailErr = err
		return
	}
	length := int(f.size % int64(f.fs.blocks.BlockSize()))
	end := int(f.fragOffset) + length
	if end > len(data) {
		f.tailErr = fmt.Errorf("%w: fragment block holds %d bytes, tail needs [%d:%d]",
			types.ErrTruncatedImage, len(data), f.fragOffset, end)
		return
	}
	f.tail = data[f.fragOffset:end]
}
