// Package interfaces declares the read-only surfaces the services layer
// exposes to consumers such as the command-line tools.
package interfaces

import (
	"github.com/deploymenttheory/go-squashfs/internal/parsers/directories"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// WalkFunc is called once per directory entry during a tree walk. err
// carries any failure resolving that entry's inode, in which case ino is
// nil; returning a non-nil error stops the walk.
type WalkFunc func(path string, entry *directories.Entry, ino *inodes.Inode, err error) error

// Navigator traverses the directory tree of an opened image.
type Navigator interface {
	Root() *inodes.Inode
	ResolveInode(ref types.InodeRef) (*inodes.Inode, error)
	ResolvePath(path string) (*inodes.Inode, error)
	InodeByNumber(number uint32) (*inodes.Inode, error)
	ListDirectory(ino *inodes.Inode) ([]directories.Entry, error)
	LookupEntry(ino *inodes.Inode, name string) (*directories.Entry, error)
	Walk(root string, fn WalkFunc) error
}

// FileReader reads regular file contents and symlink targets.
type FileReader interface {
	ReadFile(ino *inodes.Inode) ([]byte, error)
	ReadLink(ino *inodes.Inode) (string, error)
}

// XattrReader reads the extended attributes attached to inodes.
type XattrReader interface {
	Xattrs(ino *inodes.Inode) (map[string][]byte, error)
}

// OwnershipResolver maps inode header id indexes to numeric uids and gids.
type OwnershipResolver interface {
	UID(ino *inodes.Inode) (uint32, error)
	GID(ino *inodes.Inode) (uint32, error)
}
