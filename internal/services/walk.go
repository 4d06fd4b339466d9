package services

import (
	"io"
	"path"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/inodes"
)

var (
	_ interfaces.Navigator         = (*FileSystem)(nil)
	_ interfaces.FileReader        = (*FileSystem)(nil)
	_ interfaces.XattrReader       = (*FileSystem)(nil)
	_ interfaces.OwnershipResolver = (*FileSystem)(nil)
)

// ReadFile returns the full contents of a regular file inode.
func (fs *FileSystem) ReadFile(ino *inodes.Inode) ([]byte, error) {
	f, err := fs.OpenFile(ino)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

// Walk visits every entry under root depth-first in on-disk order. An entry
// whose inode fails to resolve is reported to fn with the error rather than
// aborting its siblings.
func (fs *FileSystem) Walk(root string, fn interfaces.WalkFunc) error {
	node, err := fs.ResolvePath(root)
	if err != nil {
		return err
	}
	return fs.walk(path.Join("/", root), node, fn)
}

func (fs *FileSystem) walk(dir string, node *inodes.Inode, fn interfaces.WalkFunc) error {
	entries, err := fs.ListDirectory(node)
	if err != nil {
		return err
	}
	for i := range entries {
		entry := &entries[i]
		name := path.Join(dir, string(entry.Name))
		child, resolveErr := fs.ResolveInode(entry.Ref())
		if err := fn(name, entry, child, resolveErr); err != nil {
			return err
		}
		if resolveErr == nil && child.IsDir() {
			if err := fs.walk(name, child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
