package types

import "errors"

// Decode-time failures. Every structural error surfaced by the reader wraps
// one of these sentinels so callers can classify failures with errors.Is.
var (
	// ErrInvalidSuperblock reports a bad magic, an inconsistent block
	// size, or an unsupported version.
	ErrInvalidSuperblock = errors.New("invalid superblock")

	// ErrUnsupportedCompression reports a compression id with no
	// registered codec.
	ErrUnsupportedCompression = errors.New("unsupported compression")

	// ErrCodec reports input rejected by the decompressor.
	ErrCodec = errors.New("codec error")

	// ErrTruncatedImage reports a read past the end of the byte source.
	ErrTruncatedImage = errors.New("truncated image")

	// ErrUnknownInodeType reports an inode type tag outside 1-14.
	ErrUnknownInodeType = errors.New("unknown inode type")

	// ErrCorruptDirectory reports a directory entry that violates the
	// bounds declared by its directory inode.
	ErrCorruptDirectory = errors.New("corrupt directory")

	// ErrInvalidFragmentIndex reports a fragment index past the fragment
	// table.
	ErrInvalidFragmentIndex = errors.New("invalid fragment index")

	// ErrInvalidIDIndex reports an id index past the id table.
	ErrInvalidIDIndex = errors.New("invalid id index")

	// ErrInvalidXattrIndex reports an xattr index past the xattr id table.
	ErrInvalidXattrIndex = errors.New("invalid xattr index")

	// ErrInvalidInodeNumber reports an inode number outside the export
	// table, or an export lookup on a non-exportable image.
	ErrInvalidInodeNumber = errors.New("invalid inode number")
)

// Traversal failures.
var (
	ErrPathNotFound  = errors.New("path not found")
	ErrNotADirectory = errors.New("not a directory")
	ErrNotAFile      = errors.New("not a file")
	ErrNotASymlink   = errors.New("not a symlink")
)
