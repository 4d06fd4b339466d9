// Package services assembles the block, inode, directory and table readers
// into a navigable read-only view of a SquashFS image.
package services

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/deploymenttheory/go-squashfs/internal/compression"
	"github.com/deploymenttheory/go-squashfs/internal/metadata"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/directories"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// maxSymlinkHops bounds symlink dereferences during path resolution,
// matching the kernel's ELOOP limit.
const maxSymlinkHops = 40

// FileSystem is an opened SquashFS image. All methods are safe for
// concurrent use.
type FileSystem struct {
	source io.ReaderAt
	sb     *types.Superblock
	blocks *metadata.BlockReader
	cache  *metadata.Cache

	ids     *idTable
	frags   *fragmentTable
	exports *exportTable
	xattrs  *xattrTable

	root *inodes.Inode
}

// Open reads and validates the superblock of the image in source and
// prepares the lookup tables, using the default codec registry.
func Open(source io.ReaderAt) (*FileSystem, error) {
	return OpenWithRegistry(source, compression.NewRegistry())
}

// OpenWithRegistry is Open with a caller-supplied codec registry, for
// restricting or extending the supported compression formats.
func OpenWithRegistry(source io.ReaderAt, registry *compression.Registry) (*FileSystem, error) {
	raw, err := readFull(source, 0, types.SuperblockSize)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb, err := superblock.Decode(raw)
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{
		source: source,
		sb:     sb,
		blocks: metadata.NewBlockReader(source, registry, sb.Compression, sb.BlockSize),
	}
	fs.cache = metadata.NewCache(fs.blocks)

	if sb.Flags.CompressorOptions {
		if err := fs.loadCompressorOptions(); err != nil {
			return nil, err
		}
	}

	if fs.ids, err = newIDTable(source, fs.cache, sb); err != nil {
		return nil, err
	}
	if sb.HasFragments() {
		if fs.frags, err = newFragmentTable(source, fs.cache, sb); err != nil {
			return nil, err
		}
	}
	if sb.HasExports() {
		if fs.exports, err = newExportTable(source, fs.cache, sb); err != nil {
			return nil, err
		}
	}
	if sb.HasXattrs() {
		if fs.xattrs, err = newXattrTable(source, fs.cache, sb); err != nil {
			return nil, err
		}
	}

	if fs.root, err = fs.ResolveInode(sb.RootInode); err != nil {
		return nil, fmt.Errorf("resolving root inode: %w", err)
	}
	if !fs.root.IsDir() {
		return nil, fmt.Errorf("%w: root inode is a %s", types.ErrInvalidSuperblock, fs.root.Type())
	}
	return fs, nil
}

// loadCompressorOptions feeds the options metadata block that trails the
// superblock to the image's codec.
func (fs *FileSystem) loadCompressorOptions() error {
	options, _, err := fs.blocks.ReadMetadataBlock(types.SuperblockSize)
	if err != nil {
		return fmt.Errorf("reading compressor options: %w", err)
	}
	codec, err := fs.blocks.Codec()
	if err != nil {
		return err
	}
	if err := codec.LoadOptions(options); err != nil {
		return fmt.Errorf("compressor options: %w", err)
	}
	return nil
}

// Superblock returns the image's decoded superblock.
func (fs *FileSystem) Superblock() *types.Superblock {
	return fs.sb
}

// Root returns the root directory inode.
func (fs *FileSystem) Root() *inodes.Inode {
	return fs.root
}

// ResolveInode decodes the inode behind a packed reference. Records with
// variable tails are re-read with a widening span until the whole record is
// in hand.
func (fs *FileSystem) ResolveInode(ref types.InodeRef) (*inodes.Inode, error) {
	base := int64(fs.sb.InodeTableStart) + int64(ref.Block())
	need := types.InodeHeaderSize
	for {
		span, err := fs.cache.ReadSpan(base, int(ref.Offset()), need)
		if err != nil {
			return nil, err
		}
		ino, extra, err := inodes.Decode(ref, span, fs.sb.BlockSize)
		if err != nil {
			return nil, err
		}
		if extra == 0 {
			return ino, nil
		}
		need += extra
	}
}

// InodeByNumber resolves an inode by its 1-based inode number through the
// export table.
func (fs *FileSystem) InodeByNumber(number uint32) (*inodes.Inode, error) {
	ref, err := fs.exports.lookup(number)
	if err != nil {
		return nil, err
	}
	return fs.ResolveInode(ref)
}

// UID resolves a uid-table index from an inode header.
func (fs *FileSystem) UID(ino *inodes.Inode) (uint32, error) {
	return fs.ids.lookup(uint32(ino.Header.UIDIndex))
}

// GID resolves a gid-table index from an inode header.
func (fs *FileSystem) GID(ino *inodes.Inode) (uint32, error) {
	return fs.ids.lookup(uint32(ino.Header.GIDIndex))
}

// Fragment returns the fragment table entry at index.
func (fs *FileSystem) Fragment(index uint32) (types.FragmentEntry, error) {
	return fs.frags.lookup(index)
}

// directoryLocation extracts the listing position of a directory inode.
func directoryLocation(ino *inodes.Inode) (startBlock uint32, offset uint16, size int, err error) {
	switch b := ino.Body.(type) {
	case *types.BasicDirectory:
		return b.StartBlock, b.Offset, int(b.ListingSize), nil
	case *types.ExtendedDirectory:
		return b.StartBlock, b.Offset, int(b.ListingSize), nil
	}
	return 0, 0, 0, fmt.Errorf("%w: inode %d is a %s", types.ErrNotADirectory, ino.Header.Number, ino.Type())
}

// ListDirectory returns the entries of a directory inode in on-disk order.
// The listing size counts three phantom bytes for "." and ".." which are
// never stored, so a size of three or less is an empty directory.
func (fs *FileSystem) ListDirectory(ino *inodes.Inode) ([]directories.Entry, error) {
	startBlock, offset, size, err := directoryLocation(ino)
	if err != nil {
		return nil, err
	}
	if size <= 3 {
		return nil, nil
	}
	span, err := fs.cache.ReadSpan(int64(fs.sb.DirectoryTableStart)+int64(startBlock), int(offset), size-3)
	if err != nil {
		return nil, err
	}
	return directories.DecodeListing(span)
}

// LookupEntry finds the named entry in a directory inode. Extended
// directories with an index are seeked through it; if the index turns out to
// be inconsistent the lookup falls back to a full scan.
func (fs *FileSystem) LookupEntry(ino *inodes.Inode, name string) (*directories.Entry, error) {
	startBlock, offset, size, err := directoryLocation(ino)
	if err != nil {
		return nil, err
	}
	if size <= 3 {
		return nil, fmt.Errorf("%w: %q", types.ErrPathNotFound, name)
	}
	length := size - 3

	scanBlock, scanOffset, scanLen := startBlock, int(offset), length
	seeked := false
	if ext, ok := ino.Body.(*types.ExtendedDirectory); ok {
		for _, ix := range ext.Indexes {
			if string(ix.Name) > name {
				break
			}
			// A corrupt index can point past the listing; ignore it and
			// let the full scan below decide.
			if int64(ix.Index) >= int64(length) {
				continue
			}
			scanBlock = ix.StartBlock
			scanOffset = (int(offset) + int(ix.Index)) % types.MetadataBlockSize
			scanLen = length - int(ix.Index)
			seeked = true
		}
	}

	entry, err := fs.scanListing(scanBlock, scanOffset, scanLen, name)
	if (err != nil || entry == nil) && seeked {
		entry, err = fs.scanListing(startBlock, int(offset), length, name)
	}
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %q", types.ErrPathNotFound, name)
	}
	return entry, nil
}

func (fs *FileSystem) scanListing(startBlock uint32, offset, length int, name string) (*directories.Entry, error) {
	span, err := fs.cache.ReadSpan(int64(fs.sb.DirectoryTableStart)+int64(startBlock), offset, length)
	if err != nil {
		return nil, err
	}
	entries, err := directories.DecodeListing(span)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if string(entries[i].Name) == name {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// ResolvePath walks an absolute or root-relative slash-separated path and
// returns the inode it names. Symlinks in intermediate components are
// followed; a trailing symlink is returned as-is. "." and empty components
// are skipped and ".." steps back one resolved component, stopping at the
// root.
func (fs *FileSystem) ResolvePath(p string) (*inodes.Inode, error) {
	return fs.resolve(p, 0)
}

func (fs *FileSystem) resolve(p string, hops int) (*inodes.Inode, error) {
	if hops > maxSymlinkHops {
		return nil, fmt.Errorf("%w: %q: too many levels of symbolic links", types.ErrPathNotFound, p)
	}

	node := fs.root
	dirs := []*inodes.Inode{}
	names := []string{}
	parts := strings.Split(p, "/")

	for i, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(dirs) > 0 {
				node = dirs[len(dirs)-1]
				dirs = dirs[:len(dirs)-1]
				names = names[:len(names)-1]
			}
			continue
		}

		if node.IsSymlink() {
			target, err := fs.ReadLink(node)
			if err != nil {
				return nil, err
			}
			rest := append([]string{fs.linkBase(names, target)}, parts[i:]...)
			return fs.resolve(path.Join(rest...), hops+1)
		}
		if !node.IsDir() {
			return nil, fmt.Errorf("%w: %q in %q", types.ErrNotADirectory, strings.Join(names, "/"), p)
		}

		entry, err := fs.LookupEntry(node, part)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		child, err := fs.ResolveInode(entry.Ref())
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, node)
		names = append(names, part)
		node = child
	}
	return node, nil
}

// linkBase rebases a symlink target: absolute targets restart at the root,
// relative ones at the symlink's parent directory.
func (fs *FileSystem) linkBase(names []string, target string) string {
	if strings.HasPrefix(target, "/") {
		return target
	}
	parent := "/" + strings.Join(names[:len(names)-1], "/")
	return path.Join(parent, target)
}

// ReadLink returns the target of a symlink inode.
func (fs *FileSystem) ReadLink(ino *inodes.Inode) (string, error) {
	switch b := ino.Body.(type) {
	case *types.BasicSymlink:
		return string(b.Target), nil
	case *types.ExtendedSymlink:
		return string(b.Target), nil
	}
	return "", fmt.Errorf("%w: inode %d is a %s", types.ErrNotASymlink, ino.Header.Number, ino.Type())
}

// Xattrs returns the extended attributes of an inode, keyed by the full
// prefixed name. Inodes without attributes yield an empty map.
func (fs *FileSystem) Xattrs(ino *inodes.Inode) (map[string][]byte, error) {
	index, ok := ino.Body.XattrRef()
	if !ok || fs.xattrs == nil {
		return map[string][]byte{}, nil
	}
	id, err := fs.xattrs.lookupID(index)
	if err != nil {
		return nil, err
	}
	return fs.xattrs.attrs(id)
}
