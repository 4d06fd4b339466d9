// Package xattrs decodes extended attribute records from the xattr portion
// of the metadata: id-table entries and the key/value records they point at.
package xattrs

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// DecodeID decodes one 16-byte xattr id table entry.
func DecodeID(b []byte) (types.XattrID, error) {
	if len(b) < types.XattrIDEntrySize {
		return types.XattrID{}, fmt.Errorf("%w: %d bytes for xattr id entry, need %d",
			types.ErrTruncatedImage, len(b), types.XattrIDEntrySize)
	}
	return types.XattrID{
		Ref:   binary.LittleEndian.Uint64(b[0:8]),
		Count: binary.LittleEndian.Uint32(b[8:12]),
		Size:  binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// Entry is one decoded xattr record. Value holds the inline bytes; for an
// out-of-line entry it holds the 8-byte reference to the real value.
type Entry struct {
	Type  uint16
	Name  []byte
	Value []byte
}

// OutOfLine reports whether Value holds a reference instead of the value.
func (e *Entry) OutOfLine() bool {
	return e.Type&types.XattrValueOOL != 0
}

// ValueRef returns the packed metadata reference of an out-of-line value.
func (e *Entry) ValueRef() uint64 {
	return binary.LittleEndian.Uint64(e.Value)
}

// Key returns the full attribute name with its namespace prefix expanded
// from the low byte of the type.
func (e *Entry) Key() string {
	var prefix string
	switch e.Type & types.XattrPrefixMask {
	case types.XattrPrefixUser:
		prefix = "user."
	case types.XattrPrefixTrusted:
		prefix = "trusted."
	case types.XattrPrefixSecurity:
		prefix = "security."
	}
	return prefix + string(e.Name)
}

// DecodeEntry decodes one record: type(2), name length(2), name bytes, then
// the value via DecodeValue. Returns the bytes consumed.
func DecodeEntry(b []byte) (Entry, int, error) {
	if len(b) < types.XattrEntryBaseSize {
		return Entry{}, 0, fmt.Errorf("%w: %d bytes for xattr entry, need %d",
			types.ErrTruncatedImage, len(b), types.XattrEntryBaseSize)
	}
	nameLen := int(binary.LittleEndian.Uint16(b[2:4]))
	if len(b) < types.XattrEntryBaseSize+nameLen {
		return Entry{}, 0, fmt.Errorf("%w: xattr name of %d bytes reads past metadata end",
			types.ErrTruncatedImage, nameLen)
	}
	name := make([]byte, nameLen)
	copy(name, b[types.XattrEntryBaseSize:types.XattrEntryBaseSize+nameLen])

	value, n, err := DecodeValue(b[types.XattrEntryBaseSize+nameLen:])
	if err != nil {
		return Entry{}, 0, err
	}
	return Entry{
		Type:  binary.LittleEndian.Uint16(b[0:2]),
		Name:  name,
		Value: value,
	}, types.XattrEntryBaseSize + nameLen + n, nil
}

// DecodeValue decodes a length-prefixed value: size(4), bytes. Returns the
// bytes consumed.
func DecodeValue(b []byte) ([]byte, int, error) {
	if len(b) < types.XattrValueBaseSize {
		return nil, 0, fmt.Errorf("%w: %d bytes for xattr value header, need %d",
			types.ErrTruncatedImage, len(b), types.XattrValueBaseSize)
	}
	valueLen := int(binary.LittleEndian.Uint32(b[0:4]))
	if len(b) < types.XattrValueBaseSize+valueLen {
		return nil, 0, fmt.Errorf("%w: xattr value of %d bytes reads past metadata end",
			types.ErrTruncatedImage, valueLen)
	}
	value := make([]byte, valueLen)
	copy(value, b[types.XattrValueBaseSize:types.XattrValueBaseSize+valueLen])
	return value, types.XattrValueBaseSize + valueLen, nil
}
