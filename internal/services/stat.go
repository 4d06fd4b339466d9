package services

import (
	iofs "io/fs"
	"time"

	"github.com/deploymenttheory/go-squashfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

const (
	setuidBit = 0o4000
	setgidBit = 0o2000
	stickyBit = 0o1000
)

// EntryInfo is the stat-like view of an inode: size, mode, timestamps and
// resolved ownership.
type EntryInfo struct {
	Size    int64
	Mode    iofs.FileMode
	ModTime time.Time
	Inode   uint32
	UID     uint32
	GID     uint32
}

// Stat resolves an inode's ownership through the id table and folds its
// type tag and permission bits into an io/fs mode.
func (fs *FileSystem) Stat(ino *inodes.Inode) (EntryInfo, error) {
	uid, err := fs.UID(ino)
	if err != nil {
		return EntryInfo{}, err
	}
	gid, err := fs.GID(ino)
	if err != nil {
		return EntryInfo{}, err
	}
	return EntryInfo{
		Size:    ino.Size(),
		Mode:    FileMode(ino.Type(), ino.Header.Mode),
		ModTime: ino.Header.ModTime,
		Inode:   ino.Header.Number,
		UID:     uid,
		GID:     gid,
	}, nil
}

// FileMode combines an inode type tag and on-disk permission bits into an
// io/fs mode.
func FileMode(t types.InodeType, perm uint16) iofs.FileMode {
	mode := iofs.FileMode(perm & 0o777)
	if perm&setuidBit != 0 {
		mode |= iofs.ModeSetuid
	}
	if perm&setgidBit != 0 {
		mode |= iofs.ModeSetgid
	}
	if perm&stickyBit != 0 {
		mode |= iofs.ModeSticky
	}
	switch t.BasicType() {
	case types.InodeBasicDirectory:
		mode |= iofs.ModeDir
	case types.InodeBasicSymlink:
		mode |= iofs.ModeSymlink
	case types.InodeBasicBlockDev:
		mode |= iofs.ModeDevice
	case types.InodeBasicCharDev:
		mode |= iofs.ModeDevice | iofs.ModeCharDevice
	case types.InodeBasicFifo:
		mode |= iofs.ModeNamedPipe
	case types.InodeBasicSocket:
		mode |= iofs.ModeSocket
	}
	return mode
}
